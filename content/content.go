// Package content defines the provider-neutral conversation item model
// (IContent in spec terms) that every provider adapter converts to and
// from its own wire format.
package content

// Speaker identifies who produced a Content item.
type Speaker string

const (
	SpeakerHuman Speaker = "human"
	SpeakerAI    Speaker = "ai"
	SpeakerTool  Speaker = "tool"
)

// Block is a typed payload within a Content item. Concrete block types are
// TextBlock, CodeBlock, ToolCallBlock, and ToolResponseBlock; callers
// type-switch on the concrete type.
type Block interface {
	isBlock()
}

// TextBlock carries plain text.
type TextBlock struct {
	Text string
}

func (TextBlock) isBlock() {}

// CodeBlock carries a fenced code snippet with an optional language hint.
type CodeBlock struct {
	Language string
	Code     string
}

func (CodeBlock) isBlock() {}

// ToolCallBlock is a model-initiated tool invocation request. Only valid on
// Content with Speaker == SpeakerAI. Parameters is a structured value; any
// wire-level string form is parsed before this block is constructed.
type ToolCallBlock struct {
	ID         string
	Name       string
	Parameters map[string]any
}

func (ToolCallBlock) isBlock() {}

// ToolResponseBlock carries the result of a previously requested tool call.
// Only valid on Content with Speaker == SpeakerTool. CallID must reference a
// ToolCallBlock.ID emitted earlier in the same conversation.
type ToolResponseBlock struct {
	CallID string
	Result any
	Error  string
}

func (ToolResponseBlock) isBlock() {}

// Usage carries token accounting for a single call or delta.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Metadata carries optional out-of-band information attached to a Content
// item: usage accounting and provenance.
type Metadata struct {
	Usage        *Usage
	RuntimeID    string
	ProviderName string
}

// Content is the canonical conversation item (IContent in spec terms).
type Content struct {
	Speaker  Speaker
	Blocks   []Block
	Metadata *Metadata
}

// Text is a convenience constructor for a single-block human/ai text item.
func Text(speaker Speaker, text string) Content {
	return Content{Speaker: speaker, Blocks: []Block{TextBlock{Text: text}}}
}

// PlainText concatenates every TextBlock in item, in order, ignoring other
// block kinds. Used by providers that only accept a single string payload
// for a turn (e.g. a plain user message).
func (c Content) PlainText() string {
	var out string
	for _, b := range c.Blocks {
		if t, ok := b.(TextBlock); ok {
			out += t.Text
		}
	}
	return out
}

// ToolCallIDs returns every ToolCallBlock.ID present across history, in
// order of first appearance.
func ToolCallIDs(history []Content) []string {
	var ids []string
	for _, item := range history {
		for _, b := range item.Blocks {
			if tc, ok := b.(ToolCallBlock); ok {
				ids = append(ids, tc.ID)
			}
		}
	}
	return ids
}

// HasToolResponse reports whether item contains at least one
// ToolResponseBlock.
func HasToolResponse(item Content) bool {
	for _, b := range item.Blocks {
		if _, ok := b.(ToolResponseBlock); ok {
			return true
		}
	}
	return false
}
