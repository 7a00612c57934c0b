package pipeline

// Opportunity scoring constants. The social-proof bonuses are capped so a
// viral post cannot dominate severity.
const (
	scoreBase          = 50
	engagementDivisor  = 10
	engagementBonusCap = 15
	commentDivisor     = 5
	commentBonusCap    = 10
)

var severityBonus = map[string]int{
	"critical": 30,
	"high":     20,
	"medium":   10,
	"low":      5,
}

// OpportunityScore computes the 1-100 business-value estimate for a pain
// point. Deterministic in the extracted severity and the item's social-proof
// metadata; unknown severities contribute no bonus.
func OpportunityScore(severity string, metadata map[string]interface{}) int {
	score := scoreBase + severityBonus[severity]

	if metadata != nil {
		engagement := metadataInt(metadata, "score")
		comments := metadataInt(metadata, "num_comments")

		score += capped(engagement/engagementDivisor, engagementBonusCap)
		score += capped(comments/commentDivisor, commentBonusCap)
	}

	if score > 100 {
		score = 100
	}
	if score < 1 {
		score = 1
	}
	return score
}

func capped(v, max int) int {
	if v > max {
		return max
	}
	if v < 0 {
		return 0
	}
	return v
}

// metadataInt reads a numeric metadata value. JSONB round-trips numbers as
// float64, so both forms are accepted.
func metadataInt(metadata map[string]interface{}, key string) int {
	switch v := metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
