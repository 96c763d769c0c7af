package toolformat

import "regexp"

// Format names a declarative tool schema encoding. Most providers use their
// own native encoding; qwen/glm-family OpenAI-compatible endpoints diverge
// enough (strict JSON-schema subset, different tool_choice shape) to need a
// distinct format name even though they ride the OpenAI wire otherwise.
type Format string

const (
	FormatAnthropic Format = "anthropic"
	FormatOpenAI    Format = "openai"
	FormatQwen      Format = "qwen"
	FormatGLM       Format = "glm"
	FormatGemini    Format = "gemini"
)

var (
	qwenModelPattern = regexp.MustCompile(`(?i)qwen`)
	glmModelPattern  = regexp.MustCompile(`(?i)\bglm`)
)

// DetectFormat implements the per-provider tool-format auto-detection rule
// of spec.md §4.B: an explicit setting always wins; otherwise the model name
// is pattern-matched for known dialects, falling back to the provider's
// native format.
func DetectFormat(explicitSetting string, modelName string, nativeFormat Format) Format {
	if explicitSetting != "" {
		return Format(explicitSetting)
	}
	switch {
	case qwenModelPattern.MatchString(modelName):
		return FormatQwen
	case glmModelPattern.MatchString(modelName):
		return FormatGLM
	default:
		return nativeFormat
	}
}
