package chatdb

import "time"

// appleEpoch is 2001-01-01T00:00:00Z, the zero point of chat.db dates.
var appleEpoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

// Stores written by macOS 10.13 and later record nanoseconds; older ones
// record seconds. Anything above this threshold cannot be a plausible
// seconds value (it would be year 5000+).
const nanosThreshold = 100_000_000_000

// AppleTime converts a chat.db date column to UTC. Zero or negative values
// mean "unknown" and map to the zero time.
func AppleTime(raw int64) time.Time {
	if raw <= 0 {
		return time.Time{}
	}
	if raw > nanosThreshold {
		return appleEpoch.Add(time.Duration(raw))
	}
	return appleEpoch.Add(time.Duration(raw) * time.Second)
}

// AppleNanos converts t to the nanosecond encoding used by modern stores.
func AppleNanos(t time.Time) int64 {
	return t.Sub(appleEpoch).Nanoseconds()
}
