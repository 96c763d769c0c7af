package openai

import (
	"sort"
	"strings"

	"github.com/acoliver/llxprt-core/content"
	"github.com/acoliver/llxprt-core/toolformat"
)

// toolCallAccumulator assembles streamed tool_calls deltas, keyed by the
// SDK's per-index position (Chat-Completions streams tool_calls split
// across events, each delta naming which index it belongs to rather than
// repeating the full call).
type toolCallAccumulator struct {
	byIndex map[int]*pendingToolCall
}

type pendingToolCall struct {
	id   string
	name string
	args strings.Builder
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{byIndex: make(map[int]*pendingToolCall)}
}

func (a *toolCallAccumulator) apply(index int, id, name, argsDelta string) {
	p, ok := a.byIndex[index]
	if !ok {
		p = &pendingToolCall{}
		a.byIndex[index] = p
	}
	if id != "" {
		p.id = id
	}
	if name != "" {
		p.name = name
	}
	p.args.WriteString(argsDelta)
}

// finish materializes every accumulated tool call as its own Content item,
// in index order, and resets the accumulator for the next turn.
func (a *toolCallAccumulator) finish() []content.Content {
	if len(a.byIndex) == 0 {
		return nil
	}
	indices := make([]int, 0, len(a.byIndex))
	for i := range a.byIndex {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	out := make([]content.Content, 0, len(indices))
	for _, i := range indices {
		p := a.byIndex[i]
		params, _ := toolformat.ParseParameters(p.args.String())
		out = append(out, content.Content{
			Speaker: content.SpeakerAI,
			Blocks: []content.Block{content.ToolCallBlock{
				ID:         toolformat.ToHistoryID(p.id),
				Name:       p.name,
				Parameters: params,
			}},
		})
	}
	a.byIndex = make(map[int]*pendingToolCall)
	return out
}
