package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/painradar/backend/internal/models"
	"github.com/painradar/backend/internal/sentiment"
	"github.com/sirupsen/logrus"
)

const (
	// maxClassifyChars caps classifier input; truncation happens here, not
	// in the adapter.
	maxClassifyChars = 1000

	// negativeThreshold is the fixed confidence floor for marking an item
	// negative.
	negativeThreshold = 0.70

	classifyTimeout = 30 * time.Second
)

// Classifier is the sentiment classifier adapter the filter consumes.
type Classifier interface {
	Classify(ctx context.Context, text string) (sentiment.Result, error)
}

// SentimentFilter runs the classifier over unprocessed items and flips each
// item's processed flag exactly once.
type SentimentFilter struct {
	rawItems   models.RawItemRepository
	classifier Classifier
	logger     *logrus.Logger
}

func NewSentimentFilter(rawItems models.RawItemRepository, classifier Classifier, logger *logrus.Logger) *SentimentFilter {
	return &SentimentFilter{
		rawItems:   rawItems,
		classifier: classifier,
		logger:     logger,
	}
}

// Run classifies up to limit unprocessed items. Classifier failures fail open:
// the item is marked processed and neutral so the batch never stalls on a
// broken adapter. Storage failures are fatal.
func (f *SentimentFilter) Run(ctx context.Context, limit int) (*models.SentimentResult, error) {
	items, err := f.rawItems.GetUnprocessed(limit)
	if err != nil {
		return nil, fmt.Errorf("storage failure selecting unprocessed items: %w", err)
	}

	result := &models.SentimentResult{}
	if len(items) == 0 {
		f.logger.Info("No unprocessed items for sentiment pass")
		return result, nil
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		callCtx, cancel := context.WithTimeout(ctx, classifyTimeout)
		classification, err := f.classifier.Classify(callCtx, truncate(item.Content, maxClassifyChars))
		cancel()
		if err != nil {
			f.logger.WithError(err).WithField("item_id", item.ID).
				Warn("Classifier failed, treating item as neutral")
			classification = sentiment.Neutral()
		}

		negative := classification.Label == sentiment.LabelNegative &&
			classification.Confidence > negativeThreshold

		// Negative confidence is stored signed so it reads apart from a
		// positive score of the same magnitude.
		score := classification.Confidence
		if negative {
			score = -classification.Confidence
		}

		if err := f.rawItems.MarkSentiment(item.ID, negative, score); err != nil {
			return result, fmt.Errorf("storage failure marking sentiment: %w", err)
		}

		result.Processed++
		if negative {
			result.Negative++
		}
	}

	f.logger.WithFields(logrus.Fields{
		"processed": result.Processed,
		"negative":  result.Negative,
	}).Info("Sentiment pass completed")

	return result, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
