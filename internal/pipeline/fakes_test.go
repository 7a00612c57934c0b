package pipeline

import (
	"context"
	"time"

	"github.com/painradar/backend/internal/extraction"
	"github.com/painradar/backend/internal/models"
	"github.com/painradar/backend/internal/sentiment"
)

// In-memory repository fakes backing the pipeline tests.

type fakeRawItemRepo struct {
	items     []*models.RawItem
	nextID    uint
	insertErr error
	selectErr error
	markErr   error

	// externalIDs mirrors the unique index on external_id
	externalIDs map[string]bool

	// extracted marks item ids that already have a pain point, feeding
	// the anti-join in GetExtractable
	extracted map[uint]bool
}

func newFakeRawItemRepo() *fakeRawItemRepo {
	return &fakeRawItemRepo{
		externalIDs: make(map[string]bool),
		extracted:   make(map[uint]bool),
	}
}

func (r *fakeRawItemRepo) InsertOrSkip(item *models.RawItem) (bool, error) {
	if r.insertErr != nil {
		return false, r.insertErr
	}
	if r.externalIDs[item.ExternalID] {
		return false, nil
	}
	r.nextID++
	item.ID = r.nextID
	r.externalIDs[item.ExternalID] = true
	r.items = append(r.items, item)
	return true, nil
}

func (r *fakeRawItemRepo) GetUnprocessed(limit int) ([]models.RawItem, error) {
	if r.selectErr != nil {
		return nil, r.selectErr
	}
	var out []models.RawItem
	for _, item := range r.items {
		if !item.Processed && len(out) < limit {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *fakeRawItemRepo) MarkSentiment(id uint, isNegative bool, score float64) error {
	if r.markErr != nil {
		return r.markErr
	}
	for _, item := range r.items {
		if item.ID == id {
			item.IsNegative = &isNegative
			item.SentimentScore = &score
			item.Processed = true
			return nil
		}
	}
	return nil
}

func (r *fakeRawItemRepo) GetExtractable(limit int) ([]models.RawItem, error) {
	if r.selectErr != nil {
		return nil, r.selectErr
	}
	var out []models.RawItem
	for _, item := range r.items {
		if item.Content != "" && !r.extracted[item.ID] && len(out) < limit {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *fakeRawItemRepo) GetRecent(source string, limit int) ([]models.RawItem, error) {
	var out []models.RawItem
	for _, item := range r.items {
		if (source == "" || item.Source == source) && len(out) < limit {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *fakeRawItemRepo) Count() (int64, error) {
	return int64(len(r.items)), nil
}

func (r *fakeRawItemRepo) CountNegative() (int64, error) {
	var n int64
	for _, item := range r.items {
		if item.IsNegative != nil && *item.IsNegative {
			n++
		}
	}
	return n, nil
}

func (r *fakeRawItemRepo) add(externalID, content string, metadata map[string]interface{}) *models.RawItem {
	item := &models.RawItem{
		Source:         "reddit",
		ExternalID:     externalID,
		Content:        content,
		SourceMetadata: models.JSONMap(metadata),
	}
	r.InsertOrSkip(item)
	return item
}

type fakePainPointRepo struct {
	points    []*models.PainPoint
	nextID    uint
	createErr error
	rawItems  *fakeRawItemRepo
}

func (r *fakePainPointRepo) Create(pp *models.PainPoint) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	pp.ID = r.nextID
	r.points = append(r.points, pp)
	if r.rawItems != nil {
		r.rawItems.extracted[pp.RawItemID] = true
	}
	return nil
}

func (r *fakePainPointRepo) List(filter models.PainPointFilter) ([]models.PainPoint, error) {
	var out []models.PainPoint
	for _, pp := range r.points {
		out = append(out, *pp)
	}
	return out, nil
}

func (r *fakePainPointRepo) GetBySession(sessionID uint, limit int) ([]models.PainPoint, error) {
	var out []models.PainPoint
	for _, pp := range r.points {
		if pp.ExtractionSessionID == sessionID {
			out = append(out, *pp)
		}
	}
	return out, nil
}

func (r *fakePainPointRepo) Count() (int64, error) {
	return int64(len(r.points)), nil
}

func (r *fakePainPointRepo) CategoryCounts() (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, pp := range r.points {
		counts[pp.Category]++
	}
	return counts, nil
}

type fakeSessionRepo struct {
	sessions  map[uint]*models.ExtractionSession
	nextID    uint
	createErr error
	updateErr error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uint]*models.ExtractionSession)}
}

func (r *fakeSessionRepo) Create(session *models.ExtractionSession) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	session.ID = r.nextID
	stored := *session
	r.sessions[session.ID] = &stored
	return nil
}

func (r *fakeSessionRepo) Update(session *models.ExtractionSession) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	stored := *session
	r.sessions[session.ID] = &stored
	return nil
}

func (r *fakeSessionRepo) GetByID(id uint) (*models.ExtractionSession, error) {
	return r.sessions[id], nil
}

func (r *fakeSessionRepo) List(status string, limit int) ([]models.ExtractionSession, error) {
	var out []models.ExtractionSession
	for _, s := range r.sessions {
		if status == "" || s.Status == status {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) MarkStale(olderThan time.Time) (int64, error) {
	var n int64
	for _, s := range r.sessions {
		if s.Status == models.SessionInProgress && s.StartedAt.Before(olderThan) {
			s.Status = models.SessionFailed
			n++
		}
	}
	return n, nil
}

// Adapter fakes

type fakeClassifier struct {
	fn func(text string) (sentiment.Result, error)
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (sentiment.Result, error) {
	return f.fn(text)
}

type fakeAdapter struct {
	fn func(text string) (*extraction.Fields, error)
}

func (f *fakeAdapter) Extract(ctx context.Context, text string) (*extraction.Fields, error) {
	return f.fn(text)
}
