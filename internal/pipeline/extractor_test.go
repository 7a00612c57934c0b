package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/painradar/backend/internal/extraction"
	"github.com/painradar/backend/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wellFormedFields(category, severity string) *extraction.Fields {
	return &extraction.Fields{
		ProblemStatement: "exports are painfully slow",
		Category:         category,
		Severity:         severity,
		Tags:             []string{"exports", "slow"},
	}
}

func TestExtractBatch_AllSucceed(t *testing.T) {
	adapter := &fakeAdapter{fn: func(text string) (*extraction.Fields, error) {
		return wellFormedFields("performance", "high"), nil
	}}
	extractor := NewExtractor(adapter, logrus.New())

	items := []models.RawItem{
		{ID: 1, Content: "complaint one"},
		{ID: 2, Content: "complaint two"},
	}

	drafts, err := extractor.ExtractBatch(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, drafts, 2)

	assert.Equal(t, uint(1), drafts[0].RawItemID)
	assert.Equal(t, uint(2), drafts[1].RawItemID)
	assert.Equal(t, 70, drafts[0].OpportunityScore)
}

func TestExtractBatch_MalformedResponseSkipsItem(t *testing.T) {
	adapter := &fakeAdapter{fn: func(text string) (*extraction.Fields, error) {
		if strings.Contains(text, "garbled") {
			return nil, fmt.Errorf("%w: no JSON object in response", extraction.ErrParse)
		}
		return wellFormedFields("support", "medium"), nil
	}}
	extractor := NewExtractor(adapter, logrus.New())

	items := []models.RawItem{
		{ID: 1, Content: "a garbled one"},
		{ID: 2, Content: "a clean one"},
		{ID: 3, Content: "another garbled one"},
	}

	drafts, err := extractor.ExtractBatch(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, uint(2), drafts[0].RawItemID)
}

func TestExtractBatch_UsesItemMetadataForScore(t *testing.T) {
	adapter := &fakeAdapter{fn: func(text string) (*extraction.Fields, error) {
		return wellFormedFields("performance", "critical"), nil
	}}
	extractor := NewExtractor(adapter, logrus.New())

	items := []models.RawItem{{
		ID:      7,
		Content: "popular complaint",
		SourceMetadata: models.JSONMap{
			"score":        float64(120),
			"num_comments": float64(30),
		},
	}}

	drafts, err := extractor.ExtractBatch(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, 98, drafts[0].OpportunityScore)
}

func TestExtractBatch_Cancellation(t *testing.T) {
	adapter := &fakeAdapter{fn: func(text string) (*extraction.Fields, error) {
		return wellFormedFields("other", "low"), nil
	}}
	extractor := NewExtractor(adapter, logrus.New())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := extractor.ExtractBatch(ctx, []models.RawItem{{ID: 1, Content: "x"}})
	assert.ErrorIs(t, err, context.Canceled)
}
