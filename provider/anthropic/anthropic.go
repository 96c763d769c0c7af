// Package anthropic implements the Anthropic Messages API provider family:
// official SDK, SSE streaming state machine (content_block_start/delta/stop,
// message_delta), OAuth header + system-prompt-wrap quirk, and canonical
// tool-call ID rewriting via toolformat. Grounded on the teacher's
// llm/anthropic client, generalized from ChatRequest/Response to
// content.Content and from a single-shot fallback stream to full SSE
// accumulation.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"time"

	anth "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/acoliver/llxprt-core/auth"
	"github.com/acoliver/llxprt-core/content"
	"github.com/acoliver/llxprt-core/httpcache"
	"github.com/acoliver/llxprt-core/internal/obslog"
	"github.com/acoliver/llxprt-core/llxerrors"
	"github.com/acoliver/llxprt-core/promptcomposer"
	"github.com/acoliver/llxprt-core/provider"
	"github.com/acoliver/llxprt-core/retry"
	"github.com/acoliver/llxprt-core/toolformat"
	"github.com/acoliver/llxprt-core/toolschema"
)

// oauthBetaHeader is the beta flag Anthropic requires on OAuth-authenticated
// requests (spec.md §6).
const oauthBetaHeader = "oauth-2025-04-20"

// Config configures one Anthropic provider instance.
type Config struct {
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	Retry        retry.Config
	// Auth resolves the bearer credential for a call, per spec.md §4.C's
	// explicit-key → env-vars → OAuth precedence. Nil means no
	// Authorization header is attached (the underlying http.Client or
	// BaseURL gateway is trusted to carry auth some other way).
	Auth *auth.Resolver
	// Cache holds one *http.Client per (runtime, base URL, auth hash), so
	// credentials and base URLs never leak across runtime contexts sharing
	// this Provider instance (spec.md §4.D). A fresh Cache is created in
	// New if left nil.
	Cache     *httpcache.Cache
	OAuthMode bool
	Hooks     *obslog.Hooks
}

// Provider implements provider.Provider for Anthropic Claude models.
type Provider struct {
	cfg    Config
	client anth.Client
}

// New constructs an Anthropic provider.
func New(cfg Config) *Provider {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-5"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Cache == nil {
		cfg.Cache = httpcache.New()
	}
	opts := []option.RequestOption{option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout})}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Provider{cfg: cfg, client: anth.NewClient(opts...)}
}

func (p *Provider) Name() string { return "anthropic" }

func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{SupportsTools: true, SupportsStreaming: true, SupportsVision: true}
}

func (p *Provider) GetModels(ctx context.Context) ([]provider.ModelInfo, error) {
	return []provider.ModelInfo{
		{ID: "claude-sonnet-4-5", DisplayName: "Claude Sonnet 4.5", ContextLimit: 200000},
		{ID: "claude-opus-4-1", DisplayName: "Claude Opus 4.1", ContextLimit: 200000},
	}, nil
}

// GenerateChatCompletion retries the whole call (spec.md §4.A's outer retry
// boundary) through retry.Do, so a 429 with Retry-After or a mid-stream
// StreamInterruptionError both cause a fresh attempt instead of surfacing
// straight to the consumer; once an attempt succeeds, every item it
// produced is replayed in order.
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

// call performs one attempt: a non-streaming request when the call's
// ephemeral settings disable streaming (spec.md §4.F.2), a full SSE
// accumulation otherwise.
func (p *Provider) call(ctx context.Context, opts provider.NormalizedOptions) ([]content.Content, error) {
	requestOpts, err := p.requestOptions(ctx, opts)
	if err != nil {
		return nil, err
	}

	params, err := p.toParams(ctx, opts)
	if err != nil {
		return nil, err
	}

	streaming := !provider.StreamingDisabled(ctx, opts)
	p.cfg.Hooks.SafeLLMRequest(ctx, "anthropic", string(params.Model), map[string]any{"streaming": streaming})
	start := time.Now()

	if !streaming {
		msg, err := p.client.Messages.New(ctx, params, requestOpts...)
		if err != nil {
			return nil, err
		}
		p.cfg.Hooks.SafeLLMResponse(ctx, "anthropic", string(params.Model), time.Since(start), map[string]any{"streaming": false})
		return fromAnthMessage(msg), nil
	}

	stream := p.client.Messages.NewStreaming(ctx, params, requestOpts...)
	defer stream.Close()

	var out []content.Content
	acc := newAccumulator()
	for stream.Next() {
		ev := stream.Current()
		items, done := acc.apply(ev)
		out = append(out, items...)
		if done {
			break
		}
	}
	p.cfg.Hooks.SafeLLMResponse(ctx, "anthropic", string(params.Model), time.Since(start), map[string]any{"streaming": true})

	if err := stream.Err(); err != nil {
		return nil, &llxerrors.StreamInterruptionError{Details: err.Error(), Cause: err}
	}
	return out, nil
}

// requestOptions resolves this call's bearer token (if an auth.Resolver is
// configured), acquires the cached http.Client for (runtime, base URL,
// token), and attaches the OAuth beta header and any resolved custom
// headers (spec.md §4.C, §4.D, §4.F step 6).
func (p *Provider) requestOptions(ctx context.Context, opts provider.NormalizedOptions) ([]option.RequestOption, error) {
	var tok string
	if p.cfg.Auth != nil {
		resolved, err := p.cfg.Auth.Resolve(ctx, opts.Runtime)
		if err != nil {
			return nil, err
		}
		tok = resolved
	}

	client := p.cfg.Cache.GetOrCreate(
		httpcache.Key{
			RuntimeKey: opts.Runtime.Key(),
			BaseURL:    httpcache.NormalizeBaseURL(p.cfg.BaseURL),
			AuthHash:   httpcache.HashAuth(tok),
		},
		func() *http.Client { return &http.Client{Timeout: p.cfg.Timeout} },
	)

	reqOpts := []option.RequestOption{option.WithHTTPClient(client)}
	if tok != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(tok))
	}
	if p.cfg.OAuthMode {
		reqOpts = append(reqOpts, option.WithHeader("anthropic-beta", oauthBetaHeader))
	}
	for k, v := range provider.ResolveCustomHeaders(ctx, opts, "anthropic") {
		reqOpts = append(reqOpts, option.WithHeader(k, v))
	}
	return reqOpts, nil
}

func (p *Provider) toParams(ctx context.Context, opts provider.NormalizedOptions) (anth.MessageNewParams, error) {
	model := opts.Model
	if model == "" {
		model = p.cfg.DefaultModel
	}

	history := toolformat.PrepareForStrictPairing(opts.Messages)
	history = toolformat.MergeConsecutiveToolResponses(history)

	msgs, err := toAnthMessages(history)
	if err != nil {
		return anth.MessageNewParams{}, err
	}

	maxTokens := int64(4096)
	if opts.MaxTokens != nil {
		maxTokens = int64(*opts.MaxTokens)
	}

	params := anth.MessageNewParams{
		Model:     anth.Model(model),
		Messages:  msgs,
		MaxTokens: maxTokens,
	}
	if opts.Temperature != nil {
		params.Temperature = anth.Float(*opts.Temperature)
	}
	if len(opts.Tools) > 0 {
		params.Tools = toAnthTools(opts.Tools)
	}

	system, err := provider.ComposeSystemPrompt(ctx, opts, "anthropic", "system")
	if err != nil {
		return anth.MessageNewParams{}, err
	}
	if p.cfg.OAuthMode {
		// spec.md §6: OAuth mode pins the `system` field; the caller's prompt
		// is instead wrapped and prepended as a user turn.
		wrapped := promptcomposer.WrapOAuthSystemPrompt(system)
		params.System = []anth.TextBlockParam{{Text: promptcomposer.AnthropicOAuthFixedSystem}}
		params.Messages = append([]anth.MessageParam{{
			Role:    anth.MessageParamRoleUser,
			Content: []anth.ContentBlockParamUnion{{OfText: &anth.TextBlockParam{Text: wrapped}}},
		}}, params.Messages...)
	} else if system != "" {
		params.System = []anth.TextBlockParam{{Text: system}}
	}

	return params, nil
}

func toAnthTools(tools []toolschema.Declaration) []anth.ToolUnionParam {
	out := make([]anth.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema := anth.ToolInputSchemaParam{Type: "object"}
		if t.Parameters != nil {
			if props, ok := t.Parameters["properties"]; ok {
				schema.Properties = props
			}
			if req, ok := t.Parameters["required"].([]string); ok {
				schema.Required = req
			}
		}
		out = append(out, anth.ToolUnionParam{OfTool: &anth.ToolParam{
			Name:        t.Name,
			Description: anth.String(t.Description),
			InputSchema: schema,
		}})
	}
	return out
}

// toAnthMessages converts history into Anthropic wire messages. history is
// expected to already have passed through toolformat.PrepareForStrictPairing
// + MergeConsecutiveToolResponses (Anthropic's Messages API rejects orphaned
// tool_result blocks and expects consecutive tool results merged into one
// user-role turn carrying an array of tool_result blocks).
func toAnthMessages(history []content.Content) ([]anth.MessageParam, error) {
	out := make([]anth.MessageParam, 0, len(history))
	for _, item := range history {
		role := anth.MessageParamRoleUser
		if item.Speaker == content.SpeakerAI {
			role = anth.MessageParamRoleAssistant
		}

		var blocks []anth.ContentBlockParamUnion
		for _, b := range item.Blocks {
			switch bl := b.(type) {
			case content.TextBlock:
				blocks = append(blocks, anth.ContentBlockParamUnion{OfText: &anth.TextBlockParam{Text: bl.Text}})
			case content.CodeBlock:
				blocks = append(blocks, anth.ContentBlockParamUnion{OfText: &anth.TextBlockParam{Text: "```" + bl.Language + "\n" + bl.Code + "\n```"}})
			case content.ToolCallBlock:
				id := toolformat.FromHistoryID(bl.ID, toolformat.DialectAnthropic)
				input, err := json.Marshal(bl.Parameters)
				if err != nil {
					return nil, fmt.Errorf("marshal tool call parameters: %w", err)
				}
				blocks = append(blocks, anth.ContentBlockParamUnion{OfToolUse: &anth.ToolUseBlockParam{
					ID:    id,
					Name:  bl.Name,
					Input: json.RawMessage(input),
				}})
			case content.ToolResponseBlock:
				id := toolformat.FromHistoryID(bl.CallID, toolformat.DialectAnthropic)
				result := fmt.Sprintf("%v", bl.Result)
				if bl.Error != "" {
					result = bl.Error
				}
				blocks = append(blocks, anth.ContentBlockParamUnion{OfToolResult: &anth.ToolResultBlockParam{
					ToolUseID: id,
					IsError:   anth.Bool(bl.Error != ""),
					Content:   []anth.ToolResultBlockParamContentUnion{{OfText: &anth.TextBlockParam{Text: result}}},
				}})
			}
		}
		out = append(out, anth.MessageParam{Role: role, Content: blocks})
	}
	return out, nil
}

// fromAnthMessage converts a non-streaming Messages API response into the
// same per-block Content shape the SSE accumulator produces, so callers see
// an identical item sequence regardless of which path served the call
// (spec.md §4.F.2).
func fromAnthMessage(msg *anth.Message) []content.Content {
	out := make([]content.Content, 0, len(msg.Content)+1)
	for _, b := range msg.Content {
		if b.Type == "tool_use" {
			params, _ := toolformat.ParseParameters(string(b.Input))
			out = append(out, content.Content{
				Speaker: content.SpeakerAI,
				Blocks:  []content.Block{content.ToolCallBlock{ID: toolformat.ToHistoryID(b.ID), Name: b.Name, Parameters: params}},
			})
			continue
		}
		out = append(out, content.Content{
			Speaker: content.SpeakerAI,
			Blocks:  []content.Block{content.TextBlock{Text: b.Text}},
		})
	}
	out = append(out, content.Content{
		Speaker: content.SpeakerAI,
		Metadata: &content.Metadata{
			Usage: &content.Usage{
				PromptTokens:     int(msg.Usage.InputTokens),
				CompletionTokens: int(msg.Usage.OutputTokens),
				TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
			},
			ProviderName: "anthropic",
		},
	})
	return out
}
