package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/painradar/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// SessionTracker wraps one extraction run in an ExtractionSession record and
// finalizes it into an immutable scorecard. Precondition: only one session
// runs at a time. Candidate selection is read-then-write, so the host must
// hold the extraction lock before calling Run.
type SessionTracker struct {
	rawItems     models.RawItemRepository
	painPoints   models.PainPointRepository
	sessions     models.ExtractionSessionRepository
	newExtractor ExtractorFactory
	logger       *logrus.Logger
}

// ExtractorFactory builds the extractor for one run. Construction happens
// inside the session boundary so a missing credential or unreachable adapter
// still produces a failed session record rather than a silently dropped run.
type ExtractorFactory func(ctx context.Context) (*Extractor, error)

func NewSessionTracker(
	rawItems models.RawItemRepository,
	painPoints models.PainPointRepository,
	sessions models.ExtractionSessionRepository,
	newExtractor ExtractorFactory,
	logger *logrus.Logger,
) *SessionTracker {
	return &SessionTracker{
		rawItems:     rawItems,
		painPoints:   painPoints,
		sessions:     sessions,
		newExtractor: newExtractor,
		logger:       logger,
	}
}

// Run executes one full extraction session over up to limit candidate items.
// The session always reaches a terminal status when the failure is caught at
// this boundary: completed on success (including the empty-candidate no-op),
// failed with the error recorded otherwise.
func (t *SessionTracker) Run(ctx context.Context, limit int) (*models.SessionResult, error) {
	start := time.Now()
	session := &models.ExtractionSession{
		Name:      fmt.Sprintf("Analysis %s", start.Format("2006-01-02 15:04")),
		StartedAt: start,
		Status:    models.SessionInProgress,
	}

	if err := t.sessions.Create(session); err != nil {
		return nil, fmt.Errorf("storage failure opening session: %w", err)
	}

	t.logger.WithFields(logrus.Fields{
		"session_id":   session.ID,
		"session_name": session.Name,
	}).Info("Extraction session started")

	items, err := t.rawItems.GetExtractable(limit)
	if err != nil {
		return nil, t.fail(session, fmt.Errorf("storage failure selecting candidates: %w", err))
	}

	if len(items) == 0 {
		t.logger.WithField("session_id", session.ID).Info("No new items to extract")
		return t.complete(session, 0, 0, nil, nil, 0, 0, 0)
	}

	extractor, err := t.newExtractor(ctx)
	if err != nil {
		return nil, t.fail(session, fmt.Errorf("extraction adapter unavailable: %w", err))
	}

	drafts, err := extractor.ExtractBatch(ctx, items)
	if err != nil {
		return nil, t.fail(session, fmt.Errorf("session cancelled: %w", err))
	}

	var (
		saved          int
		highCount      int
		criticalCount  int
		scoreSum       int
		categoryCounts = models.CountMap{}
		severityCounts = models.CountMap{}
	)

	for _, draft := range drafts {
		painPoint := &models.PainPoint{
			RawItemID:           draft.RawItemID,
			ExtractionSessionID: session.ID,
			ProblemStatement:    draft.Fields.ProblemStatement,
			Category:            draft.Fields.Category,
			Severity:            draft.Fields.Severity,
			Context:             draft.Fields.Context,
			SuggestedSolution:   draft.Fields.SuggestedSolution,
			Tags:                models.StringArray(draft.Fields.Tags),
			TargetAudience:      draft.Fields.TargetAudience,
			RelatedIndustry:     draft.Fields.RelatedIndustry,
			OpportunityScore:    draft.OpportunityScore,
		}

		if err := t.painPoints.Create(painPoint); err != nil {
			return nil, t.fail(session, fmt.Errorf("storage failure saving pain point: %w", err))
		}

		saved++
		scoreSum += draft.OpportunityScore
		categoryCounts[draft.Fields.Category]++
		severityCounts[draft.Fields.Severity]++

		// Unknown severities stay out of the dedicated counters but
		// still land in the generic breakdown above.
		switch draft.Fields.Severity {
		case "high":
			highCount++
		case "critical":
			criticalCount++
		}
	}

	return t.complete(session, len(items), saved, categoryCounts, severityCounts, scoreSum, highCount, criticalCount)
}

func (t *SessionTracker) complete(
	session *models.ExtractionSession,
	selected, saved int,
	categoryCounts, severityCounts models.CountMap,
	scoreSum, highCount, criticalCount int,
) (*models.SessionResult, error) {
	now := time.Now()

	session.ItemsProcessed = selected
	session.PainPointsExtracted = saved
	session.ItemsSkipped = selected - saved
	session.HighSeverityCount = highCount
	session.CriticalSeverityCount = criticalCount
	session.CategoryBreakdown = categoryCounts
	session.SeverityBreakdown = severityCounts
	session.CompletedAt = &now
	session.DurationSeconds = int(now.Sub(session.StartedAt).Seconds())
	session.Status = models.SessionCompleted
	if saved > 0 {
		session.AvgOpportunityScore = float64(scoreSum) / float64(saved)
	}

	if err := t.sessions.Update(session); err != nil {
		return nil, fmt.Errorf("storage failure finalizing session: %w", err)
	}

	t.logger.WithFields(logrus.Fields{
		"session_id":       session.ID,
		"extracted":        saved,
		"items_processed":  selected,
		"duration_seconds": session.DurationSeconds,
	}).Info("Extraction session completed")

	return &models.SessionResult{
		SessionID:       session.ID,
		SessionName:     session.Name,
		Extracted:       saved,
		Processed:       selected,
		Skipped:         selected - saved,
		DurationSeconds: session.DurationSeconds,
	}, nil
}

// fail transitions the session to its failed terminal state, best effort, and
// returns the causing error. A caught failure must never leave the session
// in_progress.
func (t *SessionTracker) fail(session *models.ExtractionSession, cause error) error {
	now := time.Now()
	session.Status = models.SessionFailed
	session.ErrorMessage = cause.Error()
	session.CompletedAt = &now
	session.DurationSeconds = int(now.Sub(session.StartedAt).Seconds())

	if err := t.sessions.Update(session); err != nil {
		t.logger.WithError(err).WithField("session_id", session.ID).
			Error("Failed to persist failed session state")
	}

	t.logger.WithError(cause).WithField("session_id", session.ID).
		Error("Extraction session failed")

	return cause
}
