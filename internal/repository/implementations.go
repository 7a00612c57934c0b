package repository

import (
	"time"

	"github.com/painradar/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RawItemRepositoryImpl implements RawItemRepository
type RawItemRepositoryImpl struct {
	db *gorm.DB
}

func NewRawItemRepository(db *gorm.DB) models.RawItemRepository {
	return &RawItemRepositoryImpl{db: db}
}

// InsertOrSkip inserts the item unless the external id is already present.
// ON CONFLICT DO NOTHING keeps duplicate handling out of the error path: a
// duplicate is a zero-rows-affected insert, not a constraint violation.
func (r *RawItemRepositoryImpl) InsertOrSkip(item *models.RawItem) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(item)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *RawItemRepositoryImpl) GetUnprocessed(limit int) ([]models.RawItem, error) {
	var items []models.RawItem
	err := r.db.Where("processed = ?", false).
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *RawItemRepositoryImpl) MarkSentiment(id uint, isNegative bool, score float64) error {
	return r.db.Model(&models.RawItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_negative":     isNegative,
			"sentiment_score": score,
			"processed":       true,
		}).Error
}

// GetExtractable selects items with content that no pain point references yet.
// The NOT EXISTS anti-join is the invariant that prevents double extraction.
func (r *RawItemRepositoryImpl) GetExtractable(limit int) ([]models.RawItem, error) {
	var items []models.RawItem
	err := r.db.Where("content <> ''").
		Where("NOT EXISTS (SELECT 1 FROM pain_points WHERE pain_points.raw_item_id = raw_items.id)").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *RawItemRepositoryImpl) GetRecent(source string, limit int) ([]models.RawItem, error) {
	var items []models.RawItem
	query := r.db.Order("created_at DESC").Limit(limit)
	if source != "" {
		query = query.Where("source = ?", source)
	}
	err := query.Find(&items).Error
	return items, err
}

func (r *RawItemRepositoryImpl) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.RawItem{}).Count(&count).Error
	return count, err
}

func (r *RawItemRepositoryImpl) CountNegative() (int64, error) {
	var count int64
	err := r.db.Model(&models.RawItem{}).
		Where("is_negative = ?", true).
		Count(&count).Error
	return count, err
}

// PainPointRepositoryImpl implements PainPointRepository
type PainPointRepositoryImpl struct {
	db *gorm.DB
}

func NewPainPointRepository(db *gorm.DB) models.PainPointRepository {
	return &PainPointRepositoryImpl{db: db}
}

func (r *PainPointRepositoryImpl) Create(pp *models.PainPoint) error {
	return r.db.Create(pp).Error
}

func (r *PainPointRepositoryImpl) List(filter models.PainPointFilter) ([]models.PainPoint, error) {
	query := r.db.Model(&models.PainPoint{})

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.MinScore > 0 {
		query = query.Where("opportunity_score >= ?", filter.MinScore)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var points []models.PainPoint
	err := query.Order("opportunity_score DESC").
		Limit(limit).
		Find(&points).Error
	return points, err
}

func (r *PainPointRepositoryImpl) GetBySession(sessionID uint, limit int) ([]models.PainPoint, error) {
	query := r.db.Where("extraction_session_id = ?", sessionID).
		Order("opportunity_score DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var points []models.PainPoint
	err := query.Find(&points).Error
	return points, err
}

func (r *PainPointRepositoryImpl) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.PainPoint{}).Count(&count).Error
	return count, err
}

func (r *PainPointRepositoryImpl) CategoryCounts() (map[string]int64, error) {
	type row struct {
		Category string
		Total    int64
	}

	var rows []row
	err := r.db.Model(&models.PainPoint{}).
		Select("category, COUNT(id) AS total").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, rw := range rows {
		counts[rw.Category] = rw.Total
	}
	return counts, nil
}

// ExtractionSessionRepositoryImpl implements ExtractionSessionRepository
type ExtractionSessionRepositoryImpl struct {
	db *gorm.DB
}

func NewExtractionSessionRepository(db *gorm.DB) models.ExtractionSessionRepository {
	return &ExtractionSessionRepositoryImpl{db: db}
}

func (r *ExtractionSessionRepositoryImpl) Create(session *models.ExtractionSession) error {
	return r.db.Create(session).Error
}

func (r *ExtractionSessionRepositoryImpl) Update(session *models.ExtractionSession) error {
	return r.db.Save(session).Error
}

func (r *ExtractionSessionRepositoryImpl) GetByID(id uint) (*models.ExtractionSession, error) {
	var session models.ExtractionSession
	err := r.db.First(&session, id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *ExtractionSessionRepositoryImpl) List(status string, limit int) ([]models.ExtractionSession, error) {
	query := r.db.Order("created_at DESC").Limit(limit)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var sessions []models.ExtractionSession
	err := query.Find(&sessions).Error
	return sessions, err
}

// MarkStale fails in_progress sessions started before the cutoff. Covers runs
// killed between session open and finalization, which would otherwise stay
// in_progress forever.
func (r *ExtractionSessionRepositoryImpl) MarkStale(olderThan time.Time) (int64, error) {
	result := r.db.Model(&models.ExtractionSession{}).
		Where("status = ? AND started_at < ?", models.SessionInProgress, olderThan).
		Updates(map[string]interface{}{
			"status":        models.SessionFailed,
			"error_message": "session exceeded staleness threshold without finalizing",
			"completed_at":  time.Now(),
		})
	return result.RowsAffected, result.Error
}

// RepositoryManager bundles all repositories
type RepositoryManager struct {
	RawItems   models.RawItemRepository
	PainPoints models.PainPointRepository
	Sessions   models.ExtractionSessionRepository
}

func NewRepositoryManager(db *gorm.DB) *RepositoryManager {
	return &RepositoryManager{
		RawItems:   NewRawItemRepository(db),
		PainPoints: NewPainPointRepository(db),
		Sessions:   NewExtractionSessionRepository(db),
	}
}
