package retry

import "time"

// Config controls retry behavior for a single Do call. Zero values fall
// back to DefaultConfig's fields individually, mirroring the teacher's
// NewRetrier defaulting behavior.
type Config struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	JitterFraction float64 // e.g. 0.3 for ±30%

	// ShouldRetry overrides the default transient classifier. Nil means use
	// IsRetryable.
	ShouldRetry func(err error) bool

	// Tracker, if set, receives every slept duration (both Retry-After and
	// backoff waits) for session throttle-time accumulation.
	Tracker ThrottleTracker
}

// ThrottleTracker accumulates time spent sleeping for retries.
type ThrottleTracker interface {
	AddThrottleWait(d time.Duration)
}

// ThrottleTrackerFunc adapts a plain function to ThrottleTracker.
type ThrottleTrackerFunc func(d time.Duration)

func (f ThrottleTrackerFunc) AddThrottleWait(d time.Duration) { f(d) }

// DefaultConfig returns the spec-mandated defaults: 5 attempts, 5s initial
// delay, 30s max delay, ±30% jitter.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    5,
		InitialDelay:   5 * time.Second,
		MaxDelay:       30 * time.Second,
		JitterFraction: 0.3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.JitterFraction <= 0 {
		c.JitterFraction = d.JitterFraction
	}
	if c.ShouldRetry == nil {
		c.ShouldRetry = IsRetryable
	}
	return c
}
