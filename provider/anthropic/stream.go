package anthropic

import (
	"strings"

	anth "github.com/anthropics/anthropic-sdk-go"

	"github.com/acoliver/llxprt-core/content"
	"github.com/acoliver/llxprt-core/toolformat"
)

// blockAccumulator tracks one in-progress content_block across its start/
// delta/stop events.
type blockAccumulator struct {
	kind     string // "text" or "tool_use"
	text     strings.Builder
	toolID   string
	toolName string
	toolArgs strings.Builder
}

// accumulator is the Anthropic SSE streaming state machine (spec.md §4.F.1):
// content_block_start opens a slot by index, content_block_delta appends to
// it, content_block_stop closes it and yields the completed block as its
// own Content item, and message_delta/message_stop carry usage and signal
// completion.
type accumulator struct {
	blocks map[int64]*blockAccumulator
	usage  content.Usage
}

func newAccumulator() *accumulator {
	return &accumulator{blocks: make(map[int64]*blockAccumulator)}
}

// apply folds one SSE event into the accumulator, returning any Content
// items completed by this event and whether the stream is now done.
func (a *accumulator) apply(ev anth.MessageStreamEventUnion) ([]content.Content, bool) {
	switch ev.Type {
	case "message_start":
		if u := ev.Message.Usage; u.InputTokens > 0 {
			a.usage.PromptTokens = int(u.InputTokens)
		}
		return nil, false

	case "content_block_start":
		idx := ev.Index
		switch ev.ContentBlock.Type {
		case "tool_use":
			a.blocks[idx] = &blockAccumulator{kind: "tool_use", toolID: ev.ContentBlock.ID, toolName: ev.ContentBlock.Name}
		default:
			a.blocks[idx] = &blockAccumulator{kind: "text"}
		}
		return nil, false

	case "content_block_delta":
		idx := ev.Index
		b, ok := a.blocks[idx]
		if !ok {
			return nil, false
		}
		switch ev.Delta.Type {
		case "text_delta":
			b.text.WriteString(ev.Delta.Text)
		case "input_json_delta":
			b.toolArgs.WriteString(ev.Delta.PartialJSON)
		}
		return nil, false

	case "content_block_stop":
		idx := ev.Index
		b, ok := a.blocks[idx]
		if !ok {
			return nil, false
		}
		delete(a.blocks, idx)
		return []content.Content{a.finishBlock(b)}, false

	case "message_delta":
		if u := ev.Usage; u.OutputTokens > 0 {
			a.usage.CompletionTokens = int(u.OutputTokens)
		}
		a.usage.TotalTokens = a.usage.PromptTokens + a.usage.CompletionTokens
		return nil, false

	case "message_stop":
		return []content.Content{{
			Speaker: content.SpeakerAI,
			Metadata: &content.Metadata{
				Usage:        &a.usage,
				ProviderName: "anthropic",
			},
		}}, true
	}
	return nil, false
}

func (a *accumulator) finishBlock(b *blockAccumulator) content.Content {
	if b.kind == "tool_use" {
		params, _ := toolformat.ParseParameters(b.toolArgs.String())
		return content.Content{
			Speaker: content.SpeakerAI,
			Blocks: []content.Block{content.ToolCallBlock{
				ID:         toolformat.ToHistoryID(b.toolID),
				Name:       b.toolName,
				Parameters: params,
			}},
		}
	}
	return content.Content{
		Speaker: content.SpeakerAI,
		Blocks:  []content.Block{content.TextBlock{Text: b.text.String()}},
	}
}
