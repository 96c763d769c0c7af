package openai

import (
	"testing"

	oa "github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acoliver/llxprt-core/content"
	"github.com/acoliver/llxprt-core/provider"
	"github.com/acoliver/llxprt-core/toolschema"
)

func TestToOAMessages_PrependsSystemWhenPresent(t *testing.T) {
	opts := provider.NormalizedOptions{
		Messages: []content.Content{content.Text(content.SpeakerHuman, "hi")},
	}
	msgs := toOAMessages(opts, "be terse")
	require.Len(t, msgs, 2)
	sys := msgs[0].OfSystem
	require.NotNil(t, sys)
	assert.Equal(t, "be terse", *sys.Content.OfString)
}

func TestToOAMessages_OmitsSystemWhenEmpty(t *testing.T) {
	opts := provider.NormalizedOptions{
		Messages: []content.Content{content.Text(content.SpeakerHuman, "hi")},
	}
	msgs := toOAMessages(opts, "")
	require.Len(t, msgs, 1)
}

// TestToOAMessages_RewritesToolIDsToCallPrefix covers the OpenAI side of the
// canonical hist_tool_<uuid> round trip through an assistant tool call and
// its tool-role response.
func TestToOAMessages_RewritesToolIDsToCallPrefix(t *testing.T) {
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
	msgs := toOAMessages(opts, "")
	require.Len(t, msgs, 3)

	asst := msgs[1].OfAssistant
	require.NotNil(t, asst)
	require.Len(t, asst.ToolCalls, 1)
	fn := asst.ToolCalls[0].OfFunction
	require.NotNil(t, fn)
	assert.Equal(t, "call_abc", fn.ID)

	toolMsg := msgs[2].OfTool
	require.NotNil(t, toolMsg)
	assert.Equal(t, "call_abc", toolMsg.ToolCallID)
}

func TestToOAMessages_DropsOrphanedToolResponse(t *testing.T) {
	opts := provider.NormalizedOptions{
		Messages: []content.Content{
			content.Text(content.SpeakerHuman, "hi"),
			{Speaker: content.SpeakerTool, Blocks: []content.Block{content.ToolResponseBlock{
				CallID: "hist_tool_never_called", Result: "orphan",
			}}},
		},
	}
	msgs := toOAMessages(opts, "")
	require.Len(t, msgs, 1)
	assert.NotNil(t, msgs[0].OfUser)
}

func TestToOATools_ConvertsDeclarations(t *testing.T) {
	decls := []toolschema.Declaration{{Name: "get_weather", Description: "fetch weather"}}
	out := toOATools(decls)
	require.Len(t, out, 1)
}

func TestFromChatCompletion_ConvertsTextAndToolCalls(t *testing.T) {
	resp := &oa.ChatCompletion{
		Choices: []oa.ChatCompletionChoice{{
			Message: oa.ChatCompletionMessage{
				Content: "hello there",
				ToolCalls: []oa.ChatCompletionMessageToolCall{{
					ID: "call_xyz",
					Function: oa.ChatCompletionMessageToolCallFunction{
						Name:      "get_weather",
						Arguments: `{"city":"nyc"}`,
					},
				}},
			},
		}},
	}
	out := fromChatCompletion(resp)
	require.Len(t, out, 2)

	textBlock, ok := out[0].Blocks[0].(content.TextBlock)
	require.True(t, ok)
	assert.Equal(t, "hello there", textBlock.Text)

	toolBlock, ok := out[1].Blocks[0].(content.ToolCallBlock)
	require.True(t, ok)
	assert.Equal(t, "hist_tool_xyz", toolBlock.ID)
	assert.Equal(t, "nyc", toolBlock.Parameters["city"])
}

func TestFromChatCompletion_EmptyChoicesYieldsNoItems(t *testing.T) {
	assert.Nil(t, fromChatCompletion(&oa.ChatCompletion{}))
	assert.Nil(t, fromChatCompletion(nil))
}
