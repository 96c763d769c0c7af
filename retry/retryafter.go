package retry

import (
	"net/http"
	"strconv"
	"time"
)

// RetryAfterProvider is implemented by errors that carry an upstream
// Retry-After hint. When a retried error provides one, the retry engine
// honors it exactly and resets backoff progression; the error's status code
// is not checked.
type RetryAfterProvider interface {
	RetryAfter() (time.Duration, bool)
}

// ParseRetryAfter parses an HTTP Retry-After header value, which is either
// an integer number of seconds or an HTTP date. Returns (0, false) if the
// value cannot be parsed.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			secs = 0
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(value); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
