package retry

import (
	"regexp"
	"strings"
)

// StatusCoder is implemented by errors that carry an HTTP status code (e.g.
// llxerrors.ApiError). The default classifier uses it to recognize 429/5xx.
type StatusCoder interface {
	StatusCode() int
}

// Coder is implemented by errors that carry a machine-tractable classification
// code (e.g. llxerrors.StreamInterruptionError's "LLXPRT_STREAM_INTERRUPTED").
type Coder interface {
	Code() string
}

// causer mirrors the handful of shapes a dynamically-typed error nest uses
// in the source runtime this was ported from: a "cause", an "originalError",
// or a bare "error" field. Go errors expose this uniformly via Unwrap, but
// we also accept the named interfaces below so adapters that wrap a foreign
// SDK error type (which may not implement Unwrap) still classify correctly.
type causer interface{ Cause() error }
type originalErrorer interface{ OriginalError() error }
type innerErrorer interface{ InnerError() error }

var transientPhrases = []string{
	"connection",
	"socket",
	"stream",
	"timeout",
	"fetch failed",
	"request aborted",
	"read econnreset",
	"write econnreset",
}

var transientRegexes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)econn(reset|refused|aborted)`),
	regexp.MustCompile(`(?i)etimedout`),
	regexp.MustCompile(`(?i)und_err_(socket|connect|headers_timeout|body_timeout)`),
	regexp.MustCompile(`(?i)tcp connection.*(reset|closed)`),
}

var statusRegex = regexp.MustCompile(`5\d{2}`)

var transientCodes = map[string]bool{
	"ECONNRESET":                true,
	"ECONNREFUSED":              true,
	"ECONNABORTED":              true,
	"ENETUNREACH":               true,
	"EHOSTUNREACH":              true,
	"ETIMEDOUT":                 true,
	"EPIPE":                     true,
	"EAI_AGAIN":                 true,
	"STREAM_INTERRUPTED":        true,
	"LLXPRT_STREAM_INTERRUPTED": true,
}

func isTransientCode(code string) bool {
	upper := strings.ToUpper(code)
	if transientCodes[upper] {
		return true
	}
	return strings.HasPrefix(upper, "UND_ERR_")
}

// IsTransient recursively walks err's cause chain (via Unwrap and the
// legacy Cause/OriginalError/InnerError shapes), guarding against cycles,
// and classifies it as transient network failure per spec.md §4.A.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	visited := make(map[error]bool)
	return walkTransient(err, visited)
}

func walkTransient(err error, visited map[error]bool) bool {
	for err != nil {
		if visited[err] {
			return false
		}
		visited[err] = true

		if c, ok := err.(Coder); ok && isTransientCode(c.Code()) {
			return true
		}
		msg := strings.ToLower(err.Error())
		for _, phrase := range transientPhrases {
			if strings.Contains(msg, phrase) {
				return true
			}
		}
		for _, re := range transientRegexes {
			if re.MatchString(msg) {
				return true
			}
		}

		next := unwrapAny(err)
		if next == nil {
			return false
		}
		err = next
	}
	return false
}

func unwrapAny(err error) error {
	if u, ok := err.(interface{ Unwrap() error }); ok {
		if n := u.Unwrap(); n != nil {
			return n
		}
	}
	if c, ok := err.(causer); ok {
		if n := c.Cause(); n != nil {
			return n
		}
	}
	if o, ok := err.(originalErrorer); ok {
		if n := o.OriginalError(); n != nil {
			return n
		}
	}
	if i, ok := err.(innerErrorer); ok {
		if n := i.InnerError(); n != nil {
			return n
		}
	}
	return nil
}

// IsRetryable is the default ShouldRetry predicate: status 429/5xx, a
// message containing "429" or matching /5\d{2}/, or a transient-network
// classification (including StreamInterruptionError).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if sc, ok := err.(StatusCoder); ok {
		if sc.StatusCode() == 429 || (sc.StatusCode() >= 500 && sc.StatusCode() < 600) {
			return true
		}
	}
	msg := err.Error()
	if strings.Contains(msg, "429") || statusRegex.MatchString(msg) {
		return true
	}
	return IsTransient(err)
}
