package fetcher

import "time"

// BackoffPolicy bounds the retry loop: up to MaxAttempts visits, with
// sleeps between attempts that start at Base, double each attempt,
// and never exceed Cap.
type BackoffPolicy struct {
	MaxAttempts int
	Base        time.Duration
	Cap         time.Duration
}

// Delay returns the sleep after the given failed attempt (1-based).
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := p.Base
	if base <= 0 {
		base = time.Second
	}

	delay := base * time.Duration(1<<uint(attempt-1))
	if p.Cap > 0 && delay > p.Cap {
		delay = p.Cap
	}
	return delay
}
