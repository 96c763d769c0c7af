// Package provider defines the stateless per-call Provider interface every
// provider family (Anthropic-style, Chat-Completions-style, Responses-style,
// Gemini-style) implements, and the Manager that dispatches calls to the
// active one (spec.md §4.F, §4.E). Grounded on the teacher's llm.Client /
// llm.RouterClient pairing, generalized from a single ChatRequest/Response
// pair to the canonical content.Content model and a lazy iter.Seq2 stream.
package provider

import (
	"context"
	"iter"

	"github.com/acoliver/llxprt-core/content"
	"github.com/acoliver/llxprt-core/promptcomposer"
	"github.com/acoliver/llxprt-core/runtime"
	"github.com/acoliver/llxprt-core/settings"
	"github.com/acoliver/llxprt-core/toolschema"
)

// ModelInfo describes one model a provider can serve.
type ModelInfo struct {
	ID           string
	DisplayName  string
	ContextLimit int
}

// Capabilities captures what a provider supports, captured once per
// provider instance and consulted by callers before building a request
// (e.g. whether to attach tools).
type Capabilities struct {
	SupportsTools       bool
	SupportsStreaming   bool
	SupportsVision      bool
	SupportsServerTools bool
}

// NormalizedOptions is the immutable, fully-resolved set of options for one
// GenerateChatCompletion call. It carries no conversation state between
// calls: every field a provider needs is present on every call (spec.md
// §5's "no shared mutable conversation state" invariant).
type NormalizedOptions struct {
	Model        string
	SystemPrompt string
	Messages     []content.Content
	Tools        []toolschema.Declaration
	Temperature  *float64
	MaxTokens    *int
	// PreviousResponseID threads Responses-style continuation state
	// explicitly through the call rather than caching it (spec.md §4.F.3).
	PreviousResponseID string

	// Settings is the call's settings snapshot (spec.md §3's
	// NormalizedGenerateChatOptions.settings): custom headers, streaming
	// toggle, and active-provider overrides an adapter may need to honor
	// for this one call.
	Settings settings.Service
	// Runtime is the call's runtime.Context (spec.md §3's .runtime):
	// carries the cache/auth key plus Settings/Config collaborators.
	Runtime runtime.Context
}

// StreamingDisabled reports whether opts.Settings carries the ephemeral
// settings.KeyStreaming == settings.StreamingDisabled override (spec.md
// §4.F.2): when true, an adapter must make one non-streaming call instead of
// opening an SSE/stream connection.
func StreamingDisabled(ctx context.Context, opts NormalizedOptions) bool {
	if opts.Settings == nil {
		return false
	}
	v, ok := opts.Settings.Get(ctx, settings.KeyStreaming)
	if !ok {
		return false
	}
	s, ok := v.(string)
	return ok && s == settings.StreamingDisabled
}

// ResolveCustomHeaders merges a provider's persisted custom headers
// (settings.Service provider-settings, Extra["customHeaders"]) with the
// call's ephemeral settings.KeyCustomHeaders override, ephemeral winning
// per key (spec.md §4.F step 6: "customHeaders config ⊕ ephemeral
// custom-headers"). Returns an empty, non-nil map when opts.Settings is nil
// or neither source carries anything.
func ResolveCustomHeaders(ctx context.Context, opts NormalizedOptions, providerName string) map[string]string {
	merged := map[string]string{}
	if opts.Settings == nil {
		return merged
	}
	if ps, ok := opts.Settings.GetProviderSettings(ctx, providerName); ok {
		mergeHeaderValue(merged, ps.Extra["customHeaders"])
	}
	if v, ok := opts.Settings.Get(ctx, settings.KeyCustomHeaders); ok {
		mergeHeaderValue(merged, v)
	}
	return merged
}

func mergeHeaderValue(dst map[string]string, raw any) {
	switch m := raw.(type) {
	case map[string]string:
		for k, v := range m {
			dst[k] = v
		}
	case map[string]any:
		for k, v := range m {
			if s, ok := v.(string); ok {
				dst[k] = s
			}
		}
	}
}

// ComposeSystemPrompt resolves the call's system prompt through
// promptcomposer.Compose (spec.md §4.G) when opts.SystemPrompt is empty,
// using templateName as the prompt file's base name and opts.Runtime's
// Config collaborator (if any) for user memory. When opts.SystemPrompt is
// already non-empty, it is returned unchanged: a caller that has already
// composed the prompt (e.g. the OAuth-mode fixed-system substitution) is
// never double-composed.
func ComposeSystemPrompt(ctx context.Context, opts NormalizedOptions, providerName, templateName string) (string, error) {
	if opts.SystemPrompt != "" {
		return opts.SystemPrompt, nil
	}

	var userMemory string
	if opts.Runtime.Config != nil {
		if mem, ok := opts.Runtime.Config.GetUserMemory(ctx); ok {
			userMemory = mem
		}
	}

	vars := promptcomposer.Variables{Model: opts.Model, Provider: providerName}
	composed, err := promptcomposer.Compose(promptcomposer.DefaultPromptsDir(), templateName, vars, userMemory)
	if err != nil {
		// No template on disk for this provider/templateName: fall back to an
		// uncomposed call rather than failing it outright (templates are an
		// optional customization point, not a required one).
		return "", nil
	}
	return composed, nil
}

// Provider is implemented by each provider family. GenerateChatCompletion
// returns a lazy sequence: providers must not do request work until the
// sequence is ranged over, and must stop promptly when the consumer's
// context is cancelled or the yield function returns false.
type Provider interface {
	Name() string
	GenerateChatCompletion(ctx context.Context, opts NormalizedOptions) iter.Seq2[content.Content, error]
	GetModels(ctx context.Context) ([]ModelInfo, error)
	Capabilities() Capabilities
}

// ServerToolsCapable is implemented by providers that can also run
// server-side tools (e.g. Gemini search grounding); the Manager pins at
// most one such provider at a time (spec.md §4.E).
type ServerToolsCapable interface {
	Provider
	ServerTools() []string
}
