// Package llxerrors defines the typed error taxonomy shared across the
// provider-dispatch runtime. Errors are values, not strings: every failure
// mode a caller needs to branch on has a distinct type here.
package llxerrors

import "fmt"

// AuthError reports a missing or invalid credential. Never retried.
type AuthError struct {
	ProviderName string
	Hint         string
}

func (e *AuthError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("auth error for provider %q: %s", e.ProviderName, e.Hint)
	}
	return fmt.Sprintf("auth error for provider %q", e.ProviderName)
}

// ConfigError reports a bad settings value or an unknown settings key.
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error for key %q: %s", e.Key, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// InputError reports an invalid argument surfaced directly to the caller.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return fmt.Sprintf("invalid input: %s", e.Message) }

// TurnLimitError reports that a session exceeded its configured turn cap.
type TurnLimitError struct {
	Limit int
}

func (e *TurnLimitError) Error() string {
	return fmt.Sprintf("turn limit of %d exceeded", e.Limit)
}

// ToolDisabledError reports that a tool name is disabled by settings.
type ToolDisabledError struct {
	ToolName string
}

func (e *ToolDisabledError) Error() string {
	return fmt.Sprintf("tool %q is disabled", e.ToolName)
}

// ApiError wraps a non-2xx, non-retried HTTP response from a provider.
type ApiError struct {
	Status  int
	Message string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// StatusCode reports the HTTP status so retry.StatusCoder recognizes 429/5xx.
func (e *ApiError) StatusCode() int { return e.Status }

// StreamInterruptionCode is the machine-tractable code attached to every
// StreamInterruptionError so the retry engine's transient classifier can
// recognize it without string matching on Error().
const StreamInterruptionCode = "LLXPRT_STREAM_INTERRUPTED"

// StreamInterruptionError reports a mid-body disconnect of a streaming call.
// It always classifies as transient (see retry.IsTransient) so the whole
// call is retried at the outer retry boundary.
type StreamInterruptionError struct {
	Details string
	Cause   error
}

func (e *StreamInterruptionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("stream interrupted: %s", e.Details)
	}
	return "stream interrupted"
}

func (e *StreamInterruptionError) Unwrap() error { return e.Cause }

// Code reports the machine-tractable classification code.
func (e *StreamInterruptionError) Code() string { return StreamInterruptionCode }

// MissingProviderRuntimeError is fatal: it reports that a runtime snapshot
// could not be constructed because required settings or config fields were
// absent at snapshot time.
type MissingProviderRuntimeError struct {
	ProviderKey   string
	MissingFields []string
	Stage         string
	Metadata      map[string]any
}

func (e *MissingProviderRuntimeError) Error() string {
	return fmt.Sprintf("missing provider runtime for %q at stage %q: missing fields %v", e.ProviderKey, e.Stage, e.MissingFields)
}

// UnhandledError wraps a lower-level cause that does not map to any other
// taxonomy member.
type UnhandledError struct {
	Cause error
}

func (e *UnhandledError) Error() string { return fmt.Sprintf("unhandled error: %v", e.Cause) }

func (e *UnhandledError) Unwrap() error { return e.Cause }

// Exit codes for process-level callers (spec.md §7).
const (
	ExitAuthError      = 41
	ExitInputError     = 42
	ExitConfigError    = 52
	ExitTurnLimitError = 53
	ExitGeneralError   = 1
)

// ExitCode maps a typed error to the process exit code a CLI-style caller
// should use. Unrecognized errors map to ExitGeneralError.
func ExitCode(err error) int {
	switch err.(type) {
	case *AuthError:
		return ExitAuthError
	case *InputError:
		return ExitInputError
	case *ConfigError:
		return ExitConfigError
	case *TurnLimitError:
		return ExitTurnLimitError
	default:
		return ExitGeneralError
	}
}
