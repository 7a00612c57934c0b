package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/painradar/backend/internal/models"
)

// ErrParse marks adapter output that does not match the expected structure.
// Callers treat it as a recoverable per-item failure.
var ErrParse = errors.New("unparseable extraction output")

// Fields is the structured record the adapter must produce for one complaint.
type Fields struct {
	ProblemStatement  string   `json:"problem_statement"`
	Category          string   `json:"category"`
	Severity          string   `json:"severity"`
	Context           string   `json:"context"`
	SuggestedSolution string   `json:"suggested_solution"`
	Tags              []string `json:"tags"`
	TargetAudience    string   `json:"target_audience"`
	RelatedIndustry   string   `json:"related_industry"`
}

// ParseFields decodes and validates a raw model response. Markdown fences are
// stripped since models wrap JSON in them despite instructions. Unknown
// categories or severities are rejected rather than passed through.
func ParseFields(raw string) (*Fields, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	// Tolerate stray prose around the object
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrParse)
	}

	var fields Fields
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	fields.ProblemStatement = strings.TrimSpace(fields.ProblemStatement)
	fields.Category = strings.ToLower(strings.TrimSpace(fields.Category))
	fields.Severity = strings.ToLower(strings.TrimSpace(fields.Severity))

	if fields.ProblemStatement == "" {
		return nil, fmt.Errorf("%w: missing problem_statement", ErrParse)
	}
	if !models.ValidCategory(fields.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", ErrParse, fields.Category)
	}
	if !models.ValidSeverity(fields.Severity) {
		return nil, fmt.Errorf("%w: unknown severity %q", ErrParse, fields.Severity)
	}

	return &fields, nil
}
