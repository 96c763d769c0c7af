// Package responses implements the Responses-style provider family
// (OpenAI's Responses API): output_text.delta / output_item.done streaming
// events, and previous_response_id threaded explicitly per call rather than
// cached (spec.md §4.F.3 — NormalizedOptions carries no server-side session,
// so a caller wanting continuation must pass the prior response's ID back
// in on the next call). Grounded on the teacher's llm/openai client's SDK
// usage pattern, pointed at the Responses API surface instead of Chat
// Completions.
package responses

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
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"

	"github.com/acoliver/llxprt-core/auth"
	"github.com/acoliver/llxprt-core/content"
	"github.com/acoliver/llxprt-core/httpcache"
	"github.com/acoliver/llxprt-core/internal/obslog"
	"github.com/acoliver/llxprt-core/llxerrors"
	"github.com/acoliver/llxprt-core/provider"
	"github.com/acoliver/llxprt-core/retry"
	"github.com/acoliver/llxprt-core/toolformat"
)

// Config configures one Responses-style provider instance.
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
	Cache *httpcache.Cache
	Hooks *obslog.Hooks
}

// Provider implements provider.Provider against the Responses API.
type Provider struct {
	cfg    Config
	client oa.Client
}

// New constructs a Responses-style provider.
func New(cfg Config) *Provider {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-5"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Cache == nil {
		cfg.Cache = httpcache.New()
	}
	opts := []option.RequestOption{option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout})}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Provider{cfg: cfg, client: oa.NewClient(opts...)}
}

func (p *Provider) Name() string { return "responses" }

func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{SupportsTools: true, SupportsStreaming: true}
}

func (p *Provider) GetModels(ctx context.Context) ([]provider.ModelInfo, error) {
	return []provider.ModelInfo{{ID: p.cfg.DefaultModel, DisplayName: p.cfg.DefaultModel}}, nil
}

// GenerateChatCompletion retries the whole call through retry.Do (spec.md
// §4.A's outer retry boundary). opts.PreviousResponseID, when set, is passed
// through verbatim: this package never caches it itself, so a caller that
// forgets to carry it forward simply gets a stateless call.
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
	p.cfg.Hooks.SafeLLMRequest(ctx, "responses", string(params.Model), map[string]any{"streaming": streaming})
	start := time.Now()

	if !streaming {
		resp, err := p.client.Responses.New(ctx, params, reqOpts...)
		if err != nil {
			return nil, err
		}
		p.cfg.Hooks.SafeLLMResponse(ctx, "responses", string(params.Model), time.Since(start), map[string]any{"streaming": false})
		return fromResponse(resp), nil
	}

	stream := p.client.Responses.NewStreaming(ctx, params, reqOpts...)
	defer stream.Close()

	var out []content.Content
	for stream.Next() {
		ev := stream.Current()
		switch variant := ev.AsAny().(type) {
		case responses.ResponseTextDeltaEvent:
			out = append(out, content.Text(content.SpeakerAI, variant.Delta))
		case responses.ResponseOutputItemDoneEvent:
			if item, ok := toolCallFromOutputItem(variant.Item); ok {
				out = append(out, item)
			}
		}
	}
	p.cfg.Hooks.SafeLLMResponse(ctx, "responses", string(params.Model), time.Since(start), map[string]any{"streaming": true})

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
	for k, v := range provider.ResolveCustomHeaders(ctx, opts, "responses") {
		reqOpts = append(reqOpts, option.WithHeader(k, v))
	}
	return reqOpts, nil
}

func (p *Provider) toParams(ctx context.Context, opts provider.NormalizedOptions) (responses.ResponseNewParams, error) {
	model := opts.Model
	if model == "" {
		model = p.cfg.DefaultModel
	}

	system, err := provider.ComposeSystemPrompt(ctx, opts, "responses", "system")
	if err != nil {
		return responses.ResponseNewParams{}, err
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(model),
		Input: toResponsesInput(opts),
	}
	if system != "" {
		params.Instructions = oa.String(system)
	}
	if opts.PreviousResponseID != "" {
		params.PreviousResponseID = oa.String(opts.PreviousResponseID)
	}
	if opts.MaxTokens != nil {
		params.MaxOutputTokens = oa.Int(int64(*opts.MaxTokens))
	}
	if opts.Temperature != nil {
		params.Temperature = oa.Float(*opts.Temperature)
	}
	if len(opts.Tools) > 0 {
		tools := make([]responses.ToolUnionParam, 0, len(opts.Tools))
		for _, t := range opts.Tools {
			tools = append(tools, responses.ToolUnionParam{OfFunction: &responses.FunctionToolParam{
				Name:        t.Name,
				Description: oa.String(t.Description),
				Parameters:  t.Parameters,
			}})
		}
		params.Tools = tools
	}
	return params, nil
}

// toResponsesInput encodes the conversation as Responses API input items
// instead of a single flattened string, so ToolCallBlock/ToolResponseBlock
// structure survives the call: a function_call item per ToolCallBlock, a
// function_call_output item per ToolResponseBlock, an output-message item for
// assistant text, and a plain input-message item for every other turn.
// previous_response_id threading still means only
// the newest turn needs to be sent on a continuation call.
func toResponsesInput(opts provider.NormalizedOptions) responses.ResponseNewParamsInputUnion {
	history := opts.Messages
	if opts.PreviousResponseID != "" && len(history) > 0 {
		history = history[len(history)-1:]
	}
	history = toolformat.PrepareForStrictPairing(history)
	history = toolformat.MergeConsecutiveToolResponses(history)

	items := make(responses.ResponseInputParam, 0, len(history))
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
				items = append(items, responses.ResponseInputItemParamOfFunctionCallOutput(id, result))
			}
		case content.SpeakerAI:
			var text strings.Builder
			for _, b := range item.Blocks {
				switch bl := b.(type) {
				case content.TextBlock:
					text.WriteString(bl.Text)
				case content.ToolCallBlock:
					id := toolformat.FromHistoryID(bl.ID, toolformat.DialectOpenAI)
					argsBytes, _ := json.Marshal(bl.Parameters)
					items = append(items, responses.ResponseInputItemParamOfFunctionCall(string(argsBytes), id, bl.Name))
				}
			}
			if text.Len() > 0 {
				items = append(items, responses.ResponseInputItemParamOfOutputMessage(text.String()))
			}
		default:
			items = append(items, responses.ResponseInputItemParamOfMessage(item.PlainText(), responses.EasyInputMessageRoleUser))
		}
	}
	return responses.ResponseNewParamsInputUnion{OfInputItemList: items}
}

func toolCallFromOutputItem(item responses.ResponseOutputItemUnion) (content.Content, bool) {
	fc := item.AsFunctionCall()
	if fc.Name == "" {
		return content.Content{}, false
	}
	params, _ := toolformat.ParseParameters(fc.Arguments)
	return content.Content{
		Speaker: content.SpeakerAI,
		Blocks: []content.Block{content.ToolCallBlock{
			ID:         toolformat.ToHistoryID(fc.CallID),
			Name:       fc.Name,
			Parameters: params,
		}},
	}, true
}

// fromResponse converts a non-streaming Responses API reply into the same
// per-item shape the streaming path produces (spec.md §4.F.2).
func fromResponse(resp *responses.Response) []content.Content {
	if resp == nil {
		return nil
	}
	var out []content.Content
	for _, item := range resp.Output {
		if msg := item.AsMessage(); len(msg.Content) > 0 {
			var text strings.Builder
			for _, c := range msg.Content {
				text.WriteString(c.AsOutputText().Text)
			}
			if text.Len() > 0 {
				out = append(out, content.Text(content.SpeakerAI, text.String()))
			}
			continue
		}
		if c, ok := toolCallFromOutputItem(item); ok {
			out = append(out, c)
		}
	}
	return out
}
