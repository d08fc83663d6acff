package expiry

import (
	"math"
	"time"
)

// DayMillis is one day in milliseconds.
const DayMillis int64 = 24 * 60 * 60 * 1000

// Compute returns the absolute expiry instant in ms for a lifetime of days
// counted from now, or nil (never) when days is not positive. Fractional days
// are rounded to the nearest millisecond.
func Compute(days float64, now time.Time) *int64 {
	if days <= 0 || math.IsNaN(days) {
		return nil
	}
	at := now.UnixMilli() + int64(math.Round(days*float64(DayMillis)))
	return &at
}

// IsExpired reports whether expiresAt lies strictly before now.
func IsExpired(expiresAt *int64, now time.Time) bool {
	return expiresAt != nil && *expiresAt < now.UnixMilli()
}

// RemainingDays rounds the time left up to whole days. It returns -1 for
// mappings that never expire and 0 once the instant has passed.
func RemainingDays(expiresAt *int64, now time.Time) int {
	if expiresAt == nil {
		return -1
	}
	diff := *expiresAt - now.UnixMilli()
	if diff <= 0 {
		return 0
	}
	return int((diff + DayMillis - 1) / DayMillis)
}

// Format renders an expiry instant for reports.
func Format(expiresAt *int64) string {
	if expiresAt == nil {
		return "never"
	}
	return time.UnixMilli(*expiresAt).Format(time.RFC3339)
}
