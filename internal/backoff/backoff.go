package backoff

import "time"

// RetryDelay maps a post-claim attempt count to the delay before the row
// becomes eligible again.
//
// The schedule is a capped step table, not exponential doubling:
//
//	attempts ≤ 1 →  5 min
//	attempts = 2 → 15 min
//	attempts = 3 → 30 min
//	attempts ≥ 4 → 60 min
//
// The one-hour ceiling bounds worst-case retry latency. There is no jitter;
// many rows failing at once will retry together.
func RetryDelay(attempts int) time.Duration {
	switch {
	case attempts <= 1:
		return 5 * time.Minute
	case attempts == 2:
		return 15 * time.Minute
	case attempts == 3:
		return 30 * time.Minute
	default:
		return 60 * time.Minute
	}
}
