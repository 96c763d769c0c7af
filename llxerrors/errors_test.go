package llxerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode_MapsKnownTypesToDistinctCodes(t *testing.T) {
	assert.Equal(t, ExitAuthError, ExitCode(&AuthError{ProviderName: "acme"}))
	assert.Equal(t, ExitInputError, ExitCode(&InputError{Message: "bad"}))
	assert.Equal(t, ExitConfigError, ExitCode(&ConfigError{Key: "model"}))
	assert.Equal(t, ExitTurnLimitError, ExitCode(&TurnLimitError{Limit: 10}))
}

func TestExitCode_UnrecognizedErrorFallsBackToGeneral(t *testing.T) {
	assert.Equal(t, ExitGeneralError, ExitCode(errors.New("something else")))
	assert.Equal(t, ExitGeneralError, ExitCode(&ToolDisabledError{ToolName: "calc"}))
}

func TestStreamInterruptionError_UnwrapsToCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := &StreamInterruptionError{Details: "body closed", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, StreamInterruptionCode, err.Code())
}

func TestUnhandledError_UnwrapsToCause(t *testing.T) {
	cause := errors.New("unexpected")
	err := &UnhandledError{Cause: cause}
	assert.ErrorIs(t, err, cause)
}

func TestAuthError_MessageIncludesHintWhenPresent(t *testing.T) {
	withHint := &AuthError{ProviderName: "anthropic", Hint: "set ANTHROPIC_API_KEY"}
	assert.Contains(t, withHint.Error(), "set ANTHROPIC_API_KEY")

	withoutHint := &AuthError{ProviderName: "anthropic"}
	assert.NotContains(t, withoutHint.Error(), ":")
}

func TestMissingProviderRuntimeError_MessageNamesStageAndFields(t *testing.T) {
	err := &MissingProviderRuntimeError{ProviderKey: "rt-1", Stage: "dispatch", MissingFields: []string{"activeProvider"}}
	msg := err.Error()
	assert.Contains(t, msg, "rt-1")
	assert.Contains(t, msg, "dispatch")
	assert.Contains(t, msg, "activeProvider")
}
