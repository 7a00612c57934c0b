package pipeline

import (
	"context"
	"time"

	"github.com/painradar/backend/internal/extraction"
	"github.com/painradar/backend/internal/models"
	"github.com/sirupsen/logrus"
)

const extractTimeout = 60 * time.Second

// ExtractionAdapter is the structured-extraction adapter the extractor
// consumes.
type ExtractionAdapter interface {
	Extract(ctx context.Context, text string) (*extraction.Fields, error)
}

// Draft is one successfully extracted pain point awaiting persistence,
// carrying the originating item's id.
type Draft struct {
	RawItemID        uint
	Fields           extraction.Fields
	OpportunityScore int
}

// Extractor turns raw items into scored pain point drafts.
type Extractor struct {
	adapter ExtractionAdapter
	logger  *logrus.Logger
}

func NewExtractor(adapter ExtractionAdapter, logger *logrus.Logger) *Extractor {
	return &Extractor{
		adapter: adapter,
		logger:  logger,
	}
}

// ExtractBatch extracts each item in turn. Malformed adapter output or a
// per-call timeout skips that item and the batch continues; only cancellation
// aborts the whole batch.
func (e *Extractor) ExtractBatch(ctx context.Context, items []models.RawItem) ([]Draft, error) {
	drafts := make([]Draft, 0, len(items))

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return drafts, err
		}

		callCtx, cancel := context.WithTimeout(ctx, extractTimeout)
		fields, err := e.adapter.Extract(callCtx, item.Content)
		cancel()
		if err != nil {
			e.logger.WithError(err).WithField("item_id", item.ID).
				Warn("Extraction failed for item, skipping")
			continue
		}

		drafts = append(drafts, Draft{
			RawItemID:        item.ID,
			Fields:           *fields,
			OpportunityScore: OpportunityScore(fields.Severity, item.SourceMetadata),
		})
	}

	e.logger.WithFields(logrus.Fields{
		"items":     len(items),
		"extracted": len(drafts),
	}).Info("Extraction batch completed")

	return drafts, nil
}
