package models

// GORM models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Session status values. Transitions only move forward:
// in_progress -> completed or in_progress -> failed.
const (
	SessionInProgress = "in_progress"
	SessionCompleted  = "completed"
	SessionFailed     = "failed"
)

// Closed category set for extracted pain points.
var Categories = []string{
	"pricing", "performance", "usability", "features", "support",
	"reliability", "integration", "documentation", "onboarding", "other",
}

// Closed severity set, ordered most to least severe.
var Severities = []string{"critical", "high", "medium", "low"}

func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

func ValidSeverity(s string) bool {
	for _, v := range Severities {
		if v == s {
			return true
		}
	}
	return false
}

// StringArray for PostgreSQL text[] support
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "{}", nil
	}
	return fmt.Sprintf("{%s}", strings.Join(s, ",")), nil
}

func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}

	switch v := value.(type) {
	case string:
		v = strings.Trim(v, "{}")
		if v == "" {
			*s = StringArray{}
			return nil
		}
		*s = StringArray(strings.Split(v, ","))
	case []byte:
		return s.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into StringArray", value)
	}
	return nil
}

// JSONMap for PostgreSQL jsonb support (free-form source metadata)
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}
}

// CountMap for jsonb breakdowns mapping label -> tally
type CountMap map[string]int

func (m CountMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *CountMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into CountMap", value)
	}
}

// RawItem is one ingested unit of scraped content. Created by the ingestion
// gate; only the sentiment filter mutates it afterwards.
type RawItem struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	Source          string     `json:"source" gorm:"size:50;not null;index"`
	ExternalID      string     `json:"external_id" gorm:"size:255;uniqueIndex;not null"`
	Content         string     `json:"content" gorm:"type:text;not null"`
	Author          string     `json:"author" gorm:"size:255"`
	URL             string     `json:"url" gorm:"type:text"`
	Subreddit       string     `json:"subreddit,omitempty" gorm:"size:255"`
	ProductName     string     `json:"product_name,omitempty" gorm:"size:255"`
	SourceMetadata  JSONMap    `json:"source_metadata" gorm:"type:jsonb"`
	OriginTimestamp *time.Time `json:"origin_timestamp"`
	SentimentScore  *float64   `json:"sentiment_score"`
	IsNegative      *bool      `json:"is_negative" gorm:"index"`
	Processed       bool       `json:"processed" gorm:"default:false;index"`
	CreatedAt       time.Time  `json:"created_at" gorm:"index"`
}

// ExtractionSession is one bounded extraction run with its scorecard. Counters
// and aggregates are written once at run end and frozen afterwards.
type ExtractionSession struct {
	ID                    uint       `json:"id" gorm:"primaryKey"`
	Name                  string     `json:"name" gorm:"size:255"`
	ItemsProcessed        int        `json:"items_processed" gorm:"default:0"`
	PainPointsExtracted   int        `json:"pain_points_extracted" gorm:"default:0"`
	ItemsSkipped          int        `json:"items_skipped" gorm:"default:0"`
	AvgOpportunityScore   float64    `json:"avg_opportunity_score"`
	HighSeverityCount     int        `json:"high_severity_count" gorm:"default:0"`
	CriticalSeverityCount int        `json:"critical_severity_count" gorm:"default:0"`
	CategoryBreakdown     CountMap   `json:"category_breakdown" gorm:"type:jsonb"`
	SeverityBreakdown     CountMap   `json:"severity_breakdown" gorm:"type:jsonb"`
	StartedAt             time.Time  `json:"started_at"`
	CompletedAt           *time.Time `json:"completed_at"`
	DurationSeconds       int        `json:"duration_seconds"`
	Status                string     `json:"status" gorm:"size:20;default:'in_progress';check:status IN ('in_progress','completed','failed')"`
	ErrorMessage          string     `json:"error_message" gorm:"type:text"`
	CreatedAt             time.Time  `json:"created_at" gorm:"index"`
}

// PainPoint is one structured, scored complaint derived from a RawItem.
// At most one per raw item; immutable once created.
type PainPoint struct {
	ID                  uint        `json:"id" gorm:"primaryKey"`
	RawItemID           uint        `json:"raw_item_id" gorm:"index"`
	ExtractionSessionID uint        `json:"extraction_session_id" gorm:"index"`
	ProblemStatement    string      `json:"problem_statement" gorm:"type:text;not null"`
	Category            string      `json:"category" gorm:"size:100;index"`
	Severity            string      `json:"severity" gorm:"size:20;index"`
	Context             string      `json:"context" gorm:"type:text"`
	SuggestedSolution   string      `json:"suggested_solution" gorm:"type:text"`
	Tags                StringArray `json:"tags" gorm:"type:text[]"`
	TargetAudience      string      `json:"target_audience" gorm:"size:100"`
	RelatedIndustry     string      `json:"related_industry" gorm:"size:100"`
	OpportunityScore    int         `json:"opportunity_score" gorm:"index"`
	CreatedAt           time.Time   `json:"created_at"`
}

// CandidateItem is connector output offered to the ingestion gate. Connectors
// never touch storage directly.
type CandidateItem struct {
	ExternalID      string                 `json:"external_id"`
	Source          string                 `json:"source"`
	Content         string                 `json:"content"`
	Author          string                 `json:"author,omitempty"`
	URL             string                 `json:"url,omitempty"`
	Subreddit       string                 `json:"subreddit,omitempty"`
	ProductName     string                 `json:"product_name,omitempty"`
	OriginTimestamp *time.Time             `json:"origin_timestamp,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// PainPointFilter narrows pain point listings.
type PainPointFilter struct {
	Category string
	Severity string
	MinScore int
	Limit    int
}

// Repository interfaces

type RawItemRepository interface {
	// InsertOrSkip persists the item unless its external id already exists.
	// Returns true when a row was inserted, false on a duplicate.
	InsertOrSkip(item *RawItem) (bool, error)
	GetUnprocessed(limit int) ([]RawItem, error)
	MarkSentiment(id uint, isNegative bool, score float64) error
	// GetExtractable selects items with content that no pain point
	// references yet (anti-join on pain_points).
	GetExtractable(limit int) ([]RawItem, error)
	GetRecent(source string, limit int) ([]RawItem, error)
	Count() (int64, error)
	CountNegative() (int64, error)
}

type PainPointRepository interface {
	Create(pp *PainPoint) error
	List(filter PainPointFilter) ([]PainPoint, error)
	GetBySession(sessionID uint, limit int) ([]PainPoint, error)
	Count() (int64, error)
	CategoryCounts() (map[string]int64, error)
}

type ExtractionSessionRepository interface {
	Create(session *ExtractionSession) error
	Update(session *ExtractionSession) error
	GetByID(id uint) (*ExtractionSession, error)
	List(status string, limit int) ([]ExtractionSession, error)
	// MarkStale fails in_progress sessions started before the cutoff.
	MarkStale(olderThan time.Time) (int64, error)
}

// TableName methods for custom table names
func (RawItem) TableName() string           { return "raw_items" }
func (ExtractionSession) TableName() string { return "extraction_sessions" }
func (PainPoint) TableName() string         { return "pain_points" }

// Model validation methods
func (r *RawItem) Validate() error {
	if r.ExternalID == "" {
		return fmt.Errorf("external id is required")
	}
	if r.Source == "" {
		return fmt.Errorf("source is required")
	}
	if r.Content == "" {
		return fmt.Errorf("content is required")
	}
	return nil
}

func (s *ExtractionSession) Validate() error {
	switch s.Status {
	case SessionInProgress, SessionCompleted, SessionFailed:
		return nil
	default:
		return fmt.Errorf("invalid session status: %s", s.Status)
	}
}

func (p *PainPoint) Validate() error {
	if p.ProblemStatement == "" {
		return fmt.Errorf("problem statement is required")
	}
	if !ValidCategory(p.Category) {
		return fmt.Errorf("invalid category: %s", p.Category)
	}
	if !ValidSeverity(p.Severity) {
		return fmt.Errorf("invalid severity: %s", p.Severity)
	}
	if p.OpportunityScore < 1 || p.OpportunityScore > 100 {
		return fmt.Errorf("opportunity score out of range: %d", p.OpportunityScore)
	}
	return nil
}

// GORM hooks
func (r *RawItem) BeforeCreate(tx *gorm.DB) error {
	return r.Validate()
}

func (s *ExtractionSession) BeforeCreate(tx *gorm.DB) error {
	return s.Validate()
}

func (p *PainPoint) BeforeCreate(tx *gorm.DB) error {
	return p.Validate()
}
