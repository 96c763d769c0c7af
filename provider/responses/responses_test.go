package responses

import (
	"testing"

	sdkresponses "github.com/openai/openai-go/v3/responses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acoliver/llxprt-core/content"
	"github.com/acoliver/llxprt-core/provider"
)

// TestToResponsesInput_PreservesToolStructure is the regression guard for the
// old flattenToInput behavior, which discarded every ToolCallBlock and
// ToolResponseBlock by joining PlainText() across the whole history into one
// string. A history with a tool call and its response must now encode one
// input item per turn rather than collapsing to a single string blob.
func TestToResponsesInput_PreservesToolStructure(t *testing.T) {
	opts := provider.NormalizedOptions{
		Messages: []content.Content{
			content.Text(content.SpeakerHuman, "what's the weather"),
			{
				Speaker: content.SpeakerAI,
				Blocks: []content.Block{content.ToolCallBlock{
					ID:         "hist_tool_abc",
					Name:       "get_weather",
					Parameters: map[string]any{"city": "nyc"},
				}},
			},
			{
				Speaker: content.SpeakerTool,
				Blocks: []content.Block{content.ToolResponseBlock{
					CallID: "hist_tool_abc",
					Result: "sunny",
				}},
			},
		},
	}
	union := toResponsesInput(opts)
	require.Nil(t, union.OfString, "tool-bearing history must not collapse to a flattened string")
	require.Len(t, union.OfInputItemList, 3, "one item per human turn, tool call, and tool response")
}

func TestToResponsesInput_OnlySendsLatestTurnWhenContinuing(t *testing.T) {
	opts := provider.NormalizedOptions{
		PreviousResponseID: "resp_123",
		Messages: []content.Content{
			content.Text(content.SpeakerHuman, "first"),
			content.Text(content.SpeakerHuman, "second"),
		},
	}
	union := toResponsesInput(opts)
	require.Len(t, union.OfInputItemList, 1)
}

func TestToResponsesInput_DropsOrphanedToolResponse(t *testing.T) {
	opts := provider.NormalizedOptions{
		Messages: []content.Content{
			content.Text(content.SpeakerHuman, "hi"),
			{Speaker: content.SpeakerTool, Blocks: []content.Block{content.ToolResponseBlock{
				CallID: "hist_tool_never_called", Result: "orphan",
			}}},
		},
	}
	union := toResponsesInput(opts)
	require.Len(t, union.OfInputItemList, 1)
}

func TestToolCallFromOutputItem_ZeroValueIsNotAFunctionCall(t *testing.T) {
	_, ok := toolCallFromOutputItem(sdkresponses.ResponseOutputItemUnion{})
	assert.False(t, ok)
}
