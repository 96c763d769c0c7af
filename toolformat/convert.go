package toolformat

import (
	"encoding/json"

	"github.com/acoliver/llxprt-core/content"
)

// PlaceholderHello is prepended when a strict-pairing provider would
// otherwise receive an empty conversation.
var PlaceholderHello = content.Text(content.SpeakerHuman, "Hello")

// PlaceholderContinue is prepended when the first item of a non-empty
// conversation is not speaker=human.
var PlaceholderContinue = content.Text(content.SpeakerHuman, "Continue the conversation")

// PruneOrphans removes ToolResponseBlocks whose CallID was never emitted as
// a ToolCallBlock.ID anywhere in history, and drops any item left with no
// blocks as a result. This is pure data work: no suspension points.
func PruneOrphans(history []content.Content) []content.Content {
	emitted := make(map[string]bool)
	for _, item := range history {
		for _, b := range item.Blocks {
			if tc, ok := b.(content.ToolCallBlock); ok {
				emitted[tc.ID] = true
			}
		}
	}

	out := make([]content.Content, 0, len(history))
	for _, item := range history {
		if item.Speaker != content.SpeakerTool {
			out = append(out, item)
			continue
		}
		var kept []content.Block
		for _, b := range item.Blocks {
			if tr, ok := b.(content.ToolResponseBlock); ok {
				if !emitted[tr.CallID] {
					continue // orphaned tool result
				}
			}
			kept = append(kept, b)
		}
		if len(kept) == 0 {
			continue // drop now-empty tool message
		}
		item.Blocks = kept
		out = append(out, item)
	}
	return out
}

// PrepareForStrictPairing applies the full wire-preparation pipeline a
// strict-pairing provider needs: orphan pruning followed by the leading-
// item invariant (spec.md §3: the first item sent must be speaker=human).
func PrepareForStrictPairing(history []content.Content) []content.Content {
	pruned := PruneOrphans(history)
	if len(pruned) == 0 {
		return []content.Content{PlaceholderHello}
	}
	if pruned[0].Speaker != content.SpeakerHuman {
		return append([]content.Content{PlaceholderContinue}, pruned...)
	}
	return pruned
}

// MergeConsecutiveToolResponses merges adjacent speaker=tool items into a
// single item carrying every ToolResponseBlock in order, matching the wire
// shape strict-pairing providers expect (one user-role turn carrying an
// array of tool_result blocks).
func MergeConsecutiveToolResponses(history []content.Content) []content.Content {
	out := make([]content.Content, 0, len(history))
	for _, item := range history {
		if item.Speaker == content.SpeakerTool && len(out) > 0 {
			last := &out[len(out)-1]
			if last.Speaker == content.SpeakerTool {
				last.Blocks = append(last.Blocks, item.Blocks...)
				continue
			}
		}
		clone := item
		clone.Blocks = append([]content.Block(nil), item.Blocks...)
		out = append(out, clone)
	}
	return out
}

// ParseParameters parses tool-call arguments received as a JSON string
// during streaming. On parse failure it returns an empty map, matching
// spec.md §4.B's documented asymmetry (silently continue, log the event —
// the caller is responsible for logging; see DESIGN.md's Open Question
// resolution).
func ParseParameters(raw string) (map[string]any, bool) {
	if raw == "" {
		return map[string]any{}, true
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]any{}, false
	}
	return out, true
}
