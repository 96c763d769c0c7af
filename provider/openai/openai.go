// Package openai implements the Chat-Completions-style provider family
// (OpenAI's official SDK, and any OpenAI-compatible endpoint reachable via
// BaseURL — e.g. Qwen/GLM-compatible gateways, per toolformat.DetectFormat).
// Grounded on the teacher's llm/openai client, generalized to accumulate
// per-index streamed tool_calls deltas rather than leaving them unmapped.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	oa "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

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

// Config configures one Chat-Completions-style provider instance.
type Config struct {
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	Retry        retry.Config
	// Auth resolves the bearer credential for a call, per spec.md §4.C's
	// explicit-key → env-vars → OAuth precedence. Nil means no
	// Authorization header is attached.
	Auth *auth.Resolver
	// Cache holds one *http.Client per (runtime, base URL, auth hash), so
	// credentials and base URLs never leak across runtime contexts sharing
	// this Provider instance (spec.md §4.D). A fresh Cache is created in
	// New if left nil.
	Cache        *httpcache.Cache
	Organization string
	Hooks        *obslog.Hooks
}

// Provider implements provider.Provider against the Chat Completions API.
type Provider struct {
	cfg    Config
	client oa.Client
	name   string
}

// New constructs a Chat-Completions-style provider. name overrides the
// reported provider name (e.g. "openai", "qwen", "glm") while the wire
// protocol stays identical.
func New(name string, cfg Config) *Provider {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-4o"
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
	if cfg.Organization != "" {
		opts = append(opts, option.WithOrganization(cfg.Organization))
	}
	return &Provider{cfg: cfg, client: oa.NewClient(opts...), name: name}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{SupportsTools: true, SupportsStreaming: true}
}

func (p *Provider) GetModels(ctx context.Context) ([]provider.ModelInfo, error) {
	return []provider.ModelInfo{{ID: p.cfg.DefaultModel, DisplayName: p.cfg.DefaultModel}}, nil
}

// GenerateChatCompletion retries the whole call through retry.Do (spec.md
// §4.A's outer retry boundary): a 429 with Retry-After or a mid-stream
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
	reqOpts, err := p.requestOptions(ctx, opts)
	if err != nil {
		return nil, err
	}

	params, err := p.toParams(ctx, opts)
	if err != nil {
		return nil, err
	}

	streaming := !provider.StreamingDisabled(ctx, opts)
	p.cfg.Hooks.SafeLLMRequest(ctx, p.name, string(params.Model), map[string]any{"streaming": streaming})
	start := time.Now()

	if !streaming {
		resp, err := p.client.Chat.Completions.New(ctx, params, reqOpts...)
		if err != nil {
			return nil, err
		}
		p.cfg.Hooks.SafeLLMResponse(ctx, p.name, string(params.Model), time.Since(start), map[string]any{"streaming": false})
		return fromChatCompletion(resp), nil
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params, reqOpts...)
	defer stream.Close()

	var out []content.Content
	acc := newToolCallAccumulator()
	for stream.Next() {
		ev := stream.Current()
		if len(ev.Choices) == 0 {
			continue
		}
		choice := ev.Choices[0]

		if choice.Delta.Content != "" {
			out = append(out, content.Text(content.SpeakerAI, choice.Delta.Content))
		}
		for _, tc := range choice.Delta.ToolCalls {
			acc.apply(int(tc.Index), tc.ID, tc.Function.Name, tc.Function.Arguments)
		}
		if choice.FinishReason != "" {
			out = append(out, acc.finish()...)
		}
	}
	p.cfg.Hooks.SafeLLMResponse(ctx, p.name, string(params.Model), time.Since(start), map[string]any{"streaming": true})

	if err := stream.Err(); err != nil {
		return nil, &llxerrors.StreamInterruptionError{Details: err.Error(), Cause: err}
	}
	return out, nil
}

// requestOptions resolves this call's bearer token (if an auth.Resolver is
// configured), acquires the cached http.Client for (runtime, base URL,
// token), and attaches any resolved custom headers (spec.md §4.C, §4.D,
// §4.F step 6).
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
	for k, v := range provider.ResolveCustomHeaders(ctx, opts, p.name) {
		reqOpts = append(reqOpts, option.WithHeader(k, v))
	}
	return reqOpts, nil
}

func (p *Provider) toParams(ctx context.Context, opts provider.NormalizedOptions) (oa.ChatCompletionNewParams, error) {
	model := opts.Model
	if model == "" {
		model = p.cfg.DefaultModel
	}

	system, err := provider.ComposeSystemPrompt(ctx, opts, p.name, "system")
	if err != nil {
		return oa.ChatCompletionNewParams{}, err
	}

	params := oa.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: toOAMessages(opts, system),
	}
	if opts.MaxTokens != nil {
		params.MaxTokens = oa.Int(int64(*opts.MaxTokens))
	}
	if opts.Temperature != nil {
		params.Temperature = oa.Float(*opts.Temperature)
	}
	if len(opts.Tools) > 0 {
		params.Tools = toOATools(opts.Tools)
	}
	return params, nil
}

func toOAMessages(opts provider.NormalizedOptions, system string) []oa.ChatCompletionMessageParamUnion {
	msgs := make([]oa.ChatCompletionMessageParamUnion, 0, len(opts.Messages)+1)
	if system != "" {
		msgs = append(msgs, oa.ChatCompletionMessageParamUnion{
			OfSystem: &oa.ChatCompletionSystemMessageParam{
				Content: oa.ChatCompletionSystemMessageParamContentUnion{OfString: oa.String(system)},
			},
		})
	}

	history := toolformat.PrepareForStrictPairing(opts.Messages)
	history = toolformat.MergeConsecutiveToolResponses(history)

	for _, item := range history {
		switch item.Speaker {
		case content.SpeakerTool:
			for _, b := range item.Blocks {
				tr, ok := b.(content.ToolResponseBlock)
				if !ok {
					continue
				}
				id := toolformat.FromHistoryID(tr.CallID, toolformat.DialectOpenAI)
				result := fmt.Sprintf("%v", tr.Result)
				if tr.Error != "" {
					result = tr.Error
				}
				msgs = append(msgs, oa.ChatCompletionMessageParamUnion{
					OfTool: &oa.ChatCompletionToolMessageParam{
						ToolCallID: id,
						Content:    oa.ChatCompletionToolMessageParamContentUnion{OfString: oa.String(result)},
					},
				})
			}
		case content.SpeakerAI:
			msgs = append(msgs, toAssistantMessage(item))
		default:
			msgs = append(msgs, oa.ChatCompletionMessageParamUnion{
				OfUser: &oa.ChatCompletionUserMessageParam{
					Content: oa.ChatCompletionUserMessageParamContentUnion{OfString: oa.String(item.PlainText())},
				},
			})
		}
	}
	return msgs
}

func toAssistantMessage(item content.Content) oa.ChatCompletionMessageParamUnion {
	asst := &oa.ChatCompletionAssistantMessageParam{}
	var text strings.Builder
	for _, b := range item.Blocks {
		switch bl := b.(type) {
		case content.TextBlock:
			text.WriteString(bl.Text)
		case content.ToolCallBlock:
			id := toolformat.FromHistoryID(bl.ID, toolformat.DialectOpenAI)
			argsBytes, _ := json.Marshal(bl.Parameters)
			args := string(argsBytes)
			asst.ToolCalls = append(asst.ToolCalls, oa.ChatCompletionMessageToolCallUnionParam{
				OfFunction: &oa.ChatCompletionMessageFunctionToolCallParam{
					ID: id,
					Function: oa.ChatCompletionMessageFunctionToolCallFunctionParam{
						Name:      bl.Name,
						Arguments: args,
					},
				},
			})
		}
	}
	if text.Len() > 0 {
		asst.Content = oa.ChatCompletionAssistantMessageParamContentUnion{OfString: oa.String(text.String())}
	}
	return oa.ChatCompletionMessageParamUnion{OfAssistant: asst}
}

func toOATools(tools []toolschema.Declaration) []oa.ChatCompletionToolUnionParam {
	out := make([]oa.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		fn := shared.FunctionDefinitionParam{Name: t.Name}
		if t.Description != "" {
			fn.Description = oa.String(t.Description)
		}
		if t.Parameters != nil {
			fn.Parameters = t.Parameters
		}
		out = append(out, oa.ChatCompletionFunctionTool(fn))
	}
	return out
}

// fromChatCompletion converts a non-streaming Chat Completions response into
// the same per-item shape the streaming accumulator produces (spec.md
// §4.F.2): text first, then any tool calls on the first choice.
func fromChatCompletion(resp *oa.ChatCompletion) []content.Content {
	if resp == nil || len(resp.Choices) == 0 {
		return nil
	}
	msg := resp.Choices[0].Message
	var out []content.Content
	if msg.Content != "" {
		out = append(out, content.Text(content.SpeakerAI, msg.Content))
	}
	for _, tc := range msg.ToolCalls {
		fn := tc.Function
		params, _ := toolformat.ParseParameters(fn.Arguments)
		out = append(out, content.Content{
			Speaker: content.SpeakerAI,
			Blocks:  []content.Block{content.ToolCallBlock{ID: toolformat.ToHistoryID(tc.ID), Name: fn.Name, Parameters: params}},
		})
	}
	return out
}
