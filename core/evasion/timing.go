package evasion

import (
	"math/rand"
	"time"
)

// Jitter adds up to jitterPercent of random padding on top of base.
// Jitter is only ever additive so paced delays stay monotone while a
// failure run escalates.
func Jitter(rng *rand.Rand, base time.Duration, jitterPercent float64) time.Duration {
	if jitterPercent <= 0 || base <= 0 {
		return base
	}
	span := float64(base) * jitterPercent / 100.0
	return base + time.Duration(rng.Float64()*span)
}

// ExponentialBackoff doubles from floor per attempt, capped.
func ExponentialBackoff(attempt int, floor, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return floor
	}
	delay := floor
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= cap {
			return cap
		}
	}
	return delay
}
