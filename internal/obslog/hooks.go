// Package obslog backs the provider-dispatch runtime's optional
// observability callbacks with a structured zap logger, while keeping the
// callback-shaped Hooks struct the teacher used so callers can still inject
// their own functions without taking a hard dependency on zap.
package obslog

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Hooks provides optional callbacks for logging, metrics, and tracing
// around provider calls. All fields are optional; nil fields are no-ops.
type Hooks struct {
	Logf          func(ctx context.Context, level string, msg string, fields map[string]any)
	OnLLMRequest  func(ctx context.Context, provider string, model string, meta map[string]any)
	OnLLMResponse func(ctx context.Context, provider string, model string, latency time.Duration, meta map[string]any)
	OnLLMRetry    func(ctx context.Context, provider string, model string, attempt int, err error)
}

// NewZapHooks builds Hooks backed by logger, matching the field names and
// call sites the rest of this package uses (provider, model).
func NewZapHooks(logger *zap.Logger) *Hooks {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hooks{
		Logf: func(ctx context.Context, level string, msg string, fields map[string]any) {
			fs := toZapFields(fields)
			switch level {
			case "debug":
				logger.Debug(msg, fs...)
			case "warn":
				logger.Warn(msg, fs...)
			case "error":
				logger.Error(msg, fs...)
			default:
				logger.Info(msg, fs...)
			}
		},
		OnLLMRequest: func(ctx context.Context, provider, model string, meta map[string]any) {
			logger.Debug("llm request", zap.String("provider", provider), zap.String("model", model), zap.Any("meta", meta))
		},
		OnLLMResponse: func(ctx context.Context, provider, model string, latency time.Duration, meta map[string]any) {
			logger.Debug("llm response", zap.String("provider", provider), zap.String("model", model), zap.Duration("latency", latency), zap.Any("meta", meta))
		},
		OnLLMRetry: func(ctx context.Context, provider, model string, attempt int, err error) {
			logger.Warn("llm retry", zap.String("provider", provider), zap.String("model", model), zap.Int("attempt", attempt), zap.Error(err))
		},
	}
}

func toZapFields(fields map[string]any) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func (h *Hooks) SafeLog(ctx context.Context, level, msg string, fields map[string]any) {
	if h != nil && h.Logf != nil {
		h.Logf(ctx, level, msg, fields)
	}
}

func (h *Hooks) SafeLLMRequest(ctx context.Context, provider, model string, meta map[string]any) {
	if h != nil && h.OnLLMRequest != nil {
		h.OnLLMRequest(ctx, provider, model, meta)
	}
}

func (h *Hooks) SafeLLMResponse(ctx context.Context, provider, model string, latency time.Duration, meta map[string]any) {
	if h != nil && h.OnLLMResponse != nil {
		h.OnLLMResponse(ctx, provider, model, latency, meta)
	}
}

func (h *Hooks) SafeLLMRetry(ctx context.Context, provider, model string, attempt int, err error) {
	if h != nil && h.OnLLMRetry != nil {
		h.OnLLMRetry(ctx, provider, model, attempt, err)
	}
}
