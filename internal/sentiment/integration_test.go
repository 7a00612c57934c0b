//go:build integration

package sentiment

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestIntegration_RealAPI(t *testing.T) {
	accountID := os.Getenv("CLOUDFLARE_ACCOUNT_ID")
	apiToken := os.Getenv("CLOUDFLARE_API_TOKEN")

	if accountID == "" || apiToken == "" {
		t.Skip("CLOUDFLARE_ACCOUNT_ID and CLOUDFLARE_API_TOKEN required for integration tests")
	}

	baseURL := fmt.Sprintf(
		"https://api.cloudflare.com/client/v4/accounts/%s/ai/run/@cf/huggingface/distilbert-sst-2-int8",
		accountID,
	)
	client := NewClient(baseURL, apiToken, logrus.New())

	result, err := client.Classify(context.Background(), "this product is terrible and I hate it")
	require.NoError(t, err)
	require.Equal(t, LabelNegative, result.Label)
	require.Greater(t, result.Confidence, 0.5)
}
