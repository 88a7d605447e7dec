package tier

import "time"

// MonthWindow is the rolling period after which the monthly counter resets.
const MonthWindow = 30 * 24 * time.Hour

// EffectiveMonthlyDeposited returns the counter the program will check
// against at now: zero once the 30-day window since monthStart has elapsed.
func EffectiveMonthlyDeposited(monthStart int64, deposited uint64, now time.Time) uint64 {
	if now.Unix()-monthStart >= int64(MonthWindow/time.Second) {
		return 0
	}
	return deposited
}
