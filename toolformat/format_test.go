package toolformat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectFormat_ExplicitSettingWins(t *testing.T) {
	assert.Equal(t, Format("glm"), DetectFormat("glm", "qwen-max", FormatOpenAI))
}

func TestDetectFormat_QwenModelNamePattern(t *testing.T) {
	assert.Equal(t, FormatQwen, DetectFormat("", "Qwen2.5-72B-Instruct", FormatOpenAI))
}

func TestDetectFormat_GLMModelNamePattern(t *testing.T) {
	assert.Equal(t, FormatGLM, DetectFormat("", "glm-4-plus", FormatOpenAI))
}

func TestDetectFormat_FallsBackToNativeFormat(t *testing.T) {
	assert.Equal(t, FormatAnthropic, DetectFormat("", "claude-sonnet-4", FormatAnthropic))
}
