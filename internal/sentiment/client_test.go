package sentiment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Classify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req classifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "this product is terrible", req.Text)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(classifyResponse{
			Result:  []Result{{Label: LabelNegative, Confidence: 0.98}},
			Success: true,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", logrus.New())

	result, err := client.Classify(context.Background(), "this product is terrible")
	require.NoError(t, err)
	assert.Equal(t, LabelNegative, result.Label)
	assert.InDelta(t, 0.98, result.Confidence, 0.001)
}

func TestClient_Classify_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", logrus.New())

	_, err := client.Classify(context.Background(), "anything")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_Classify_EmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":[],"success":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", logrus.New())

	_, err := client.Classify(context.Background(), "anything")
	assert.Error(t, err)
}

func TestNeutral(t *testing.T) {
	result := Neutral()
	assert.Equal(t, LabelNeutral, result.Label)
	assert.Equal(t, 0.5, result.Confidence)
}
