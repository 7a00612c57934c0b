package models

// Request and result shapes for the HTTP layer and pipeline entry points.

type IngestRequest struct {
	Items []CandidateItem `json:"items" binding:"required"`
}

type IngestResult struct {
	Accepted int `json:"accepted"`
	Skipped  int `json:"skipped"`
}

type SentimentResult struct {
	Processed int `json:"processed"`
	Negative  int `json:"negative"`
}

type SessionResult struct {
	SessionID       uint   `json:"session_id"`
	SessionName     string `json:"session_name"`
	Extracted       int    `json:"extracted"`
	Processed       int    `json:"processed"`
	Skipped         int    `json:"skipped"`
	DurationSeconds int    `json:"duration_seconds"`
}

type ScrapeRedditRequest struct {
	Subreddit string   `json:"subreddit" binding:"required"`
	Keywords  []string `json:"keywords"`
	Limit     int      `json:"limit"`
}

type StatsResponse struct {
	TotalItemsScraped int64            `json:"total_items_scraped"`
	TotalNegative     int64            `json:"total_negative_items"`
	TotalPainPoints   int64            `json:"total_pain_points"`
	Categories        map[string]int64 `json:"categories"`
}

type Scorecard struct {
	SessionName         string           `json:"session_name"`
	Date                string           `json:"date"`
	Duration            string           `json:"duration"`
	TotalPainPoints     int              `json:"total_pain_points"`
	ItemsAnalyzed       int              `json:"items_analyzed"`
	AvgOpportunityScore float64          `json:"avg_opportunity_score"`
	CriticalCount       int              `json:"critical_count"`
	HighCount           int              `json:"high_count"`
	SeverityBreakdown   CountMap         `json:"severity_breakdown"`
	TopCategory         string           `json:"top_category,omitempty"`
	CategoryBreakdown   CountMap         `json:"category_breakdown"`
	TopOpportunities    []TopOpportunity `json:"top_opportunities"`
	Status              string           `json:"status"`
}

type TopOpportunity struct {
	Problem  string `json:"problem"`
	Category string `json:"category"`
	Severity string `json:"severity"`
	Score    int    `json:"score"`
}
