package httpclient

import "time"

// Transport defaults applied to every ZivaCare request.
const (
	DefaultTimeout           = 15 * time.Second
	DefaultMaxRetries        = 1
	DefaultBackoffMultiplier = 1.0
)

// Policy bounds one request: per-attempt timeout, number of re-sends after the
// first attempt, and the factor each attempt's timeout grows by.
type Policy struct {
	Timeout           time.Duration
	MaxRetries        int
	BackoffMultiplier float64
}

// DefaultPolicy returns 15s / 1 retry / 1.0 multiplier.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:           DefaultTimeout,
		MaxRetries:        DefaultMaxRetries,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
}

// AttemptTimeout returns the timeout for attempt n (0-based). Each retry adds
// the previous timeout times the multiplier.
func (p Policy) AttemptTimeout(n int) time.Duration {
	t := p.Timeout
	if t <= 0 {
		t = DefaultTimeout
	}
	for i := 0; i < n; i++ {
		t += time.Duration(float64(t) * p.BackoffMultiplier)
	}
	return t
}

func (p Policy) attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}
