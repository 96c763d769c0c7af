package gemini

import (
	"testing"

	"google.golang.org/genai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acoliver/llxprt-core/content"
	"github.com/acoliver/llxprt-core/toolschema"
)

func TestToGenaiContents_AssignsRolesBySpeaker(t *testing.T) {
	history := []content.Content{
		content.Text(content.SpeakerHuman, "hi"),
		content.Text(content.SpeakerAI, "hello"),
	}
	out := toGenaiContents(history)
	require.Len(t, out, 2)
	assert.Equal(t, genai.RoleUser, out[0].Role)
	assert.Equal(t, genai.RoleModel, out[1].Role)
}

// TestToGenaiContents_RewritesToolCallAndResponseParts covers the Gemini side
// of the canonical tool round trip through the strict-pairing pipeline
// applied inside toGenaiContents.
func TestToGenaiContents_RewritesToolCallAndResponseParts(t *testing.T) {
	history := []content.Content{
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
	}
	out := toGenaiContents(history)
	require.Len(t, out, 3)
	require.Len(t, out[1].Parts, 1)
	require.NotNil(t, out[1].Parts[0].FunctionCall)
	assert.Equal(t, "get_weather", out[1].Parts[0].FunctionCall.Name)
	require.Len(t, out[2].Parts, 1)
	require.NotNil(t, out[2].Parts[0].FunctionResponse)
}

func TestToGenaiContents_DropsOrphanedToolResponse(t *testing.T) {
	history := []content.Content{
		content.Text(content.SpeakerHuman, "hi"),
		{Speaker: content.SpeakerTool, Blocks: []content.Block{content.ToolResponseBlock{
			CallID: "hist_tool_never_called", Result: "orphan",
		}}},
	}
	out := toGenaiContents(history)
	require.Len(t, out, 1)
}

func TestToGenaiTools_ConvertsDeclarations(t *testing.T) {
	decls := []toolschema.Declaration{{Name: "get_weather", Description: "fetch weather"}}
	out := toGenaiTools(decls)
	require.Len(t, out, 1)
	require.Len(t, out[0].FunctionDeclarations, 1)
	assert.Equal(t, "get_weather", out[0].FunctionDeclarations[0].Name)
}

func TestFromGenaiResponse_ConvertsTextAndFunctionCall(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []*genai.Part{
					{Text: "hello"},
					{FunctionCall: &genai.FunctionCall{ID: "fc-1", Name: "get_weather", Args: map[string]any{"city": "nyc"}}},
				},
			},
		}},
	}
	out := fromGenaiResponse(resp)
	require.Len(t, out, 2)

	textBlock, ok := out[0].Blocks[0].(content.TextBlock)
	require.True(t, ok)
	assert.Equal(t, "hello", textBlock.Text)

	toolBlock, ok := out[1].Blocks[0].(content.ToolCallBlock)
	require.True(t, ok)
	assert.Equal(t, "hist_tool_fc-1", toolBlock.ID)
	assert.Equal(t, "nyc", toolBlock.Parameters["city"])
}

func TestFromGenaiResponse_NoCandidatesYieldsNoItems(t *testing.T) {
	assert.Nil(t, fromGenaiResponse(&genai.GenerateContentResponse{}))
	assert.Nil(t, fromGenaiResponse(nil))
}
