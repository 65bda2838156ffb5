package sdk

import (
	"time"

	"github.com/openclearing/clearing-sdk-go/pkg/config"
)

// RetryPolicy is the explicit, injectable reconnect policy applied after an
// unexpected link loss. Tests substitute Sleep to simulate time without real
// delays.
type RetryPolicy struct {
	// MaxAttempts caps the number of reconnect attempts per link loss.
	MaxAttempts int
	// Backoff maps the 1-based attempt number to the delay before it.
	Backoff func(attempt int) time.Duration
	// Sleep waits for the given duration. Defaults to time.Sleep.
	Sleep func(d time.Duration)
}

// ExponentialBackoff doubles the delay per attempt, starting at initial and
// capped at max.
func ExponentialBackoff(initial, max time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		d := initial
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}
		if d > max {
			return max
		}
		return d
	}
}

// policyFromConfig builds the default RetryPolicy from reconnect tuning.
func policyFromConfig(rc config.Reconnect) RetryPolicy {
	rc = rc.WithDefaults()
	return RetryPolicy{
		MaxAttempts: rc.MaxAttempts,
		Backoff:     ExponentialBackoff(rc.InitialBackoff, rc.MaxBackoff),
		Sleep:       time.Sleep,
	}
}

func (p RetryPolicy) sleep(attempt int) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	if p.Backoff == nil {
		return
	}
	sleep(p.Backoff(attempt))
}
