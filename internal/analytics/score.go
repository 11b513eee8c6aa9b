package analytics

const (
	maxScore        = 100
	penaltyPerEvent = 2
)

// SafetyScore derives a 0..100 score from today's event count. Each event
// costs two points; negative counts are treated as zero.
func SafetyScore(todayTotal int) int {
	if todayTotal <= 0 {
		return maxScore
	}
	if todayTotal >= maxScore/penaltyPerEvent {
		return 0
	}
	return maxScore - penaltyPerEvent*todayTotal
}
