package obslog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSafeMethods_NilHooksNeverPanic(t *testing.T) {
	var h *Hooks
	assert.NotPanics(t, func() {
		h.SafeLog(context.Background(), "info", "msg", nil)
		h.SafeLLMRequest(context.Background(), "anthropic", "claude", nil)
		h.SafeLLMResponse(context.Background(), "anthropic", "claude", time.Millisecond, nil)
		h.SafeLLMRetry(context.Background(), "anthropic", "claude", 1, errors.New("boom"))
	})
}

func TestSafeMethods_UnsetFieldsNeverPanic(t *testing.T) {
	h := &Hooks{}
	assert.NotPanics(t, func() {
		h.SafeLog(context.Background(), "info", "msg", nil)
		h.SafeLLMRequest(context.Background(), "anthropic", "claude", nil)
	})
}

func TestNewZapHooks_InvokesConfiguredCallbacks(t *testing.T) {
	h := NewZapHooks(nil)
	assert.NotPanics(t, func() {
		h.SafeLog(context.Background(), "warn", "something happened", map[string]any{"k": "v"})
		h.SafeLLMRequest(context.Background(), "openai", "gpt-5", map[string]any{"streaming": true})
		h.SafeLLMResponse(context.Background(), "openai", "gpt-5", 5*time.Millisecond, nil)
		h.SafeLLMRetry(context.Background(), "openai", "gpt-5", 2, errors.New("rate limited"))
	})
}
