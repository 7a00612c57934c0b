package pipeline

import (
	"fmt"

	"github.com/painradar/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// Ingestor is the ingestion gate: connectors hand it candidate batches and it
// persists only the items not seen before.
type Ingestor struct {
	rawItems models.RawItemRepository
	logger   *logrus.Logger
}

func NewIngestor(rawItems models.RawItemRepository, logger *logrus.Logger) *Ingestor {
	return &Ingestor{
		rawItems: rawItems,
		logger:   logger,
	}
}

// Ingest deduplicates and persists a candidate batch. Each item commits
// independently, so a duplicate or invalid item never rolls back earlier
// inserts. Only storage failures abort the batch.
func (i *Ingestor) Ingest(items []models.CandidateItem) (*models.IngestResult, error) {
	result := &models.IngestResult{}

	for _, candidate := range items {
		item := models.RawItem{
			Source:          candidate.Source,
			ExternalID:      candidate.ExternalID,
			Content:         candidate.Content,
			Author:          candidate.Author,
			URL:             candidate.URL,
			Subreddit:       candidate.Subreddit,
			ProductName:     candidate.ProductName,
			SourceMetadata:  models.JSONMap(candidate.Metadata),
			OriginTimestamp: candidate.OriginTimestamp,
			Processed:       false,
		}

		if err := item.Validate(); err != nil {
			i.logger.WithError(err).WithField("external_id", candidate.ExternalID).
				Warn("Skipping invalid candidate item")
			result.Skipped++
			continue
		}

		inserted, err := i.rawItems.InsertOrSkip(&item)
		if err != nil {
			return result, fmt.Errorf("storage failure during ingest: %w", err)
		}

		if inserted {
			result.Accepted++
		} else {
			i.logger.WithField("external_id", candidate.ExternalID).
				Debug("Skipping duplicate item")
			result.Skipped++
		}
	}

	i.logger.WithFields(logrus.Fields{
		"accepted": result.Accepted,
		"skipped":  result.Skipped,
	}).Info("Ingestion batch completed")

	return result, nil
}
