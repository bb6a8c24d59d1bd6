package earnout

import "math"

// AchievementPercent measures actual performance against the period target,
// clamped to [0, 100]. Overperformance never earns beyond the period share.
func AchievementPercent(actual, target int64) float64 {
	if target <= 0 {
		return 0
	}
	pct := float64(actual) / float64(target) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// EarnedAmount accrues one period's share of the pool at the achieved
// percentage, rounded to the nearest minor unit. The same inputs always
// produce the same amount.
func EarnedAmount(totalAmount int64, achievementPercent float64, periods int) int64 {
	if periods <= 0 {
		return 0
	}
	return int64(math.Round(float64(totalAmount) * achievementPercent / 100 / float64(periods)))
}
