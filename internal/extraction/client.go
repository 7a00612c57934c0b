package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

const systemInstruction = `You are a market research assistant that analyzes customer complaints.
Given one complaint, extract the pain point in structured form.
The response MUST be a single valid JSON object with these keys:

1. problem_statement: One clear sentence describing the core problem.
2. category: One of [pricing, performance, usability, features, support, reliability, integration, documentation, onboarding, other].
3. severity: One of [critical, high, medium, low].
4. context: Additional context about when/why this is a problem.
5. suggested_solution: What would solve this problem.
6. tags: 2-5 relevant keywords.
7. target_audience: Who experiences this (e.g. "small business owners", "developers").
8. related_industry: What industry/niche (e.g. "SaaS", "e-commerce").

Constraints:
- Do NOT wrap the JSON output in a markdown code block.
- The response must contain ONLY the raw JSON string.`

// Client adapts the Gemini API into the extraction adapter the pipeline
// consumes.
type Client struct {
	client *genai.Client
	model  string
	logger *logrus.Logger
}

// NewClient constructs the adapter. A missing key or unreachable backend here
// is fatal to any run that needs extraction.
func NewClient(ctx context.Context, apiKey, model string, logger *logrus.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("extraction adapter unavailable: missing API key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction adapter unavailable: %w", err)
	}

	return &Client{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Extract turns one complaint into structured pain point fields. Returns
// ErrParse-wrapped errors for malformed output and plain errors for transport
// failures; both are per-item recoverable for the caller.
func (c *Client) Extract(ctx context.Context, text string) (*Fields, error) {
	start := time.Now()

	result, err := c.client.Models.GenerateContent(
		ctx,
		c.model,
		genai.Text(text),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}

	fields, err := ParseFields(result.Text())
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"model":      c.model,
		"category":   fields.Category,
		"severity":   fields.Severity,
		"latency_ms": time.Since(start).Milliseconds(),
	}).Debug("Extraction completed")

	return fields, nil
}
