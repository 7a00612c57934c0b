package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Classification labels returned by the Workers AI text-classification models.
const (
	LabelNegative = "NEGATIVE"
	LabelPositive = "POSITIVE"
	LabelNeutral  = "NEUTRAL"
)

// Result is one classification outcome.
type Result struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"score"`
}

// Neutral is the fail-safe result substituted when classification fails.
func Neutral() Result {
	return Result{Label: LabelNeutral, Confidence: 0.5}
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Result  []Result `json:"result"`
	Success bool     `json:"success"`
}

type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(baseURL, apiToken string, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Classify scores the given text. Callers truncate the input to the model's
// limit before calling; the client sends it verbatim. Transport and decode
// failures return an error for the caller to fail open on.
func (c *Client) Classify(ctx context.Context, text string) (Result, error) {
	payload, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(payload))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	c.logger.WithFields(logrus.Fields{
		"url":          c.baseURL,
		"payload_size": len(payload),
	}).Debug("Making Workers AI classification request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("classification request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"status_code":   resp.StatusCode,
		"response_size": len(responseBody),
	}).Debug("Workers AI response received")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("classification failed with status %d: %s", resp.StatusCode, string(responseBody))
	}

	var parsed classifyResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return Result{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(parsed.Result) == 0 {
		return Result{}, fmt.Errorf("classification response contained no results")
	}

	// The model returns one entry per label; the first carries the
	// highest-confidence label.
	return parsed.Result[0], nil
}
