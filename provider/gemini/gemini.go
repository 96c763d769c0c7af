// Package gemini implements the Gemini-style provider family via
// google.golang.org/genai. Gemini is the runtime's default
// ServerToolsCapable provider (spec.md §4.E): it is the one family in this
// stack that can run search-grounding tools server-side. Once pinned with
// Manager.PinServerToolsProvider it stays pinned independent of whichever
// provider is otherwise active; the Manager does not pin it automatically.
package gemini

import (
	"context"
	"iter"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/acoliver/llxprt-core/auth"
	"github.com/acoliver/llxprt-core/content"
	"github.com/acoliver/llxprt-core/httpcache"
	"github.com/acoliver/llxprt-core/internal/obslog"
	"github.com/acoliver/llxprt-core/llxerrors"
	"github.com/acoliver/llxprt-core/provider"
	"github.com/acoliver/llxprt-core/retry"
	"github.com/acoliver/llxprt-core/toolformat"
	"github.com/acoliver/llxprt-core/toolschema"
)

// Config configures one Gemini provider instance.
type Config struct {
	Project      string
	Location     string
	DefaultModel string
	Timeout      time.Duration
	Retry        retry.Config
	// Auth resolves the bearer credential for a call, per spec.md §4.C's
	// explicit-key → env-vars → OAuth precedence. Nil means no API key is
	// attached (Vertex AI callers typically rely on ambient credentials
	// instead).
	Auth *auth.Resolver
	// Cache holds one *http.Client per (runtime, base URL, auth hash), so
	// credentials never leak across runtime contexts sharing this Provider
	// instance (spec.md §4.D). A fresh Cache is created in New if left nil.
	Cache *httpcache.Cache
	Hooks *obslog.Hooks
	// ServerTools lists the server-side tool names this provider can run
	// without a round trip to the caller (e.g. "google_search").
	ServerTools []string
}

// Provider implements provider.Provider and provider.ServerToolsCapable for
// Gemini models.
type Provider struct {
	cfg Config
}

// New constructs a Gemini provider.
func New(cfg Config) *Provider {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gemini-2.5-pro"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Cache == nil {
		cfg.Cache = httpcache.New()
	}
	return &Provider{cfg: cfg}
}

func (p *Provider) Name() string { return "gemini" }

func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{SupportsTools: true, SupportsStreaming: true, SupportsVision: true, SupportsServerTools: true}
}

func (p *Provider) ServerTools() []string { return p.cfg.ServerTools }

func (p *Provider) GetModels(ctx context.Context) ([]provider.ModelInfo, error) {
	return []provider.ModelInfo{
		{ID: "gemini-2.5-pro", DisplayName: "Gemini 2.5 Pro", ContextLimit: 1048576},
		{ID: "gemini-2.5-flash", DisplayName: "Gemini 2.5 Flash", ContextLimit: 1048576},
	}, nil
}

// newClient builds a per-call *genai.Client bound to a cached http.Client
// keyed by (runtime, base URL, auth hash) (spec.md §4.D) and this call's
// resolved custom headers (spec.md §4.F step 6). genai.Client carries no
// per-call request-option hook the way the OpenAI-family SDKs do, so the
// cache/auth/header wiring happens once per call at client construction
// instead of via option.RequestOption.
func (p *Provider) newClient(ctx context.Context, opts provider.NormalizedOptions) (*genai.Client, error) {
	cc := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if p.cfg.Project != "" {
		cc.Backend = genai.BackendVertexAI
		cc.Project = p.cfg.Project
		cc.Location = p.cfg.Location
	}

	var tok string
	if p.cfg.Auth != nil {
		resolved, err := p.cfg.Auth.Resolve(ctx, opts.Runtime)
		if err != nil {
			return nil, err
		}
		tok = resolved
		cc.APIKey = tok
	}

	cc.HTTPClient = p.cfg.Cache.GetOrCreate(
		httpcache.Key{
			RuntimeKey: opts.Runtime.Key(),
			BaseURL:    httpcache.NormalizeBaseURL(string(cc.Backend) + "/" + p.cfg.Project + "/" + p.cfg.Location),
			AuthHash:   httpcache.HashAuth(tok),
		},
		func() *http.Client { return &http.Client{Timeout: p.cfg.Timeout} },
	)

	if headers := provider.ResolveCustomHeaders(ctx, opts, "gemini"); len(headers) > 0 {
		h := make(http.Header, len(headers))
		for k, v := range headers {
			h.Set(k, v)
		}
		cc.HTTPOptions.Headers = h
	}

	return genai.NewClient(ctx, cc)
}

// GenerateChatCompletion retries the whole call through retry.Do (spec.md
// §4.A's outer retry boundary): a transient error or a mid-stream
// StreamInterruptionError both cause a fresh attempt rather than surfacing
// straight to the consumer.
func (p *Provider) GenerateChatCompletion(ctx context.Context, opts provider.NormalizedOptions) iter.Seq2[content.Content, error] {
	return func(yield func(content.Content, error) bool) {
		items, err := retry.Do(ctx, func(ctx context.Context, attempt int) ([]content.Content, error) {
			return p.call(ctx, opts)
		}, p.cfg.Retry)
		if err != nil {
			yield(content.Content{}, err)
			return
		}
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

func (p *Provider) call(ctx context.Context, opts provider.NormalizedOptions) ([]content.Content, error) {
	client, err := p.newClient(ctx, opts)
	if err != nil {
		return nil, err
	}

	model := opts.Model
	if model == "" {
		model = p.cfg.DefaultModel
	}

	system, err := provider.ComposeSystemPrompt(ctx, opts, "gemini", "system")
	if err != nil {
		return nil, err
	}

	contents := toGenaiContents(opts.Messages)
	genConfig := &genai.GenerateContentConfig{}
	if system != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if opts.Temperature != nil {
		t := float32(*opts.Temperature)
		genConfig.Temperature = &t
	}
	if opts.MaxTokens != nil {
		genConfig.MaxOutputTokens = int32(*opts.MaxTokens)
	}
	if len(opts.Tools) > 0 {
		genConfig.Tools = toGenaiTools(opts.Tools)
	}

	streaming := !provider.StreamingDisabled(ctx, opts)
	p.cfg.Hooks.SafeLLMRequest(ctx, "gemini", model, map[string]any{"streaming": streaming})
	start := time.Now()

	if !streaming {
		resp, err := client.Models.GenerateContent(ctx, model, contents, genConfig)
		if err != nil {
			return nil, err
		}
		p.cfg.Hooks.SafeLLMResponse(ctx, "gemini", model, time.Since(start), map[string]any{"streaming": false})
		return fromGenaiResponse(resp), nil
	}

	var out []content.Content
	stream := client.Models.GenerateContentStream(ctx, model, contents, genConfig)
	for resp, err := range stream {
		if err != nil {
			return nil, &llxerrors.StreamInterruptionError{Details: err.Error(), Cause: err}
		}
		out = append(out, fromGenaiResponse(resp)...)
	}
	p.cfg.Hooks.SafeLLMResponse(ctx, "gemini", model, time.Since(start), map[string]any{"streaming": true})
	return out, nil
}

func toGenaiContents(history []content.Content) []*genai.Content {
	history = toolformat.PrepareForStrictPairing(history)
	history = toolformat.MergeConsecutiveToolResponses(history)

	out := make([]*genai.Content, 0, len(history))
	for _, item := range history {
		role := genai.RoleUser
		if item.Speaker == content.SpeakerAI {
			role = genai.RoleModel
		}
		var parts []*genai.Part
		for _, b := range item.Blocks {
			switch bl := b.(type) {
			case content.TextBlock:
				parts = append(parts, genai.NewPartFromText(bl.Text))
			case content.ToolCallBlock:
				parts = append(parts, genai.NewPartFromFunctionCall(bl.Name, bl.Parameters))
			case content.ToolResponseBlock:
				result := map[string]any{"result": bl.Result}
				if bl.Error != "" {
					result = map[string]any{"error": bl.Error}
				}
				parts = append(parts, genai.NewPartFromFunctionResponse(bl.CallID, result))
			}
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}
	return out
}

func toGenaiTools(tools []toolschema.Declaration) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  genai.SchemaFromJSONSchema(t.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func fromGenaiResponse(resp *genai.GenerateContentResponse) []content.Content {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	var out []content.Content
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			switch {
			case part.Text != "":
				out = append(out, content.Text(content.SpeakerAI, part.Text))
			case part.FunctionCall != nil:
				out = append(out, content.Content{
					Speaker: content.SpeakerAI,
					Blocks: []content.Block{content.ToolCallBlock{
						ID:         toolformat.ToHistoryID(part.FunctionCall.ID),
						Name:       part.FunctionCall.Name,
						Parameters: part.FunctionCall.Args,
					}},
				})
			}
		}
	}
	return out
}
