// Package toolformat owns the one-way conversions between the canonical
// content model and each provider's wire tool encoding: tool ID rewriting,
// tool-format detection, and the orphan-pruning/placeholder-prepending
// rules every strict-pairing provider needs applied before a conversation is
// sent. Grounded on spec.md §4.B and on the qwen/glm openai-compatible
// dialect split documented across the retrieval pack's provider adapters.
package toolformat

import "strings"

const historyPrefix = "hist_tool_"

// ToHistoryID rewrites any recognized wire-level tool ID form
// (toolu_<u>, call_<u>, raw <u>) into the canonical hist_tool_<u> form.
// Already-canonical IDs pass through unchanged.
func ToHistoryID(wireID string) string {
	switch {
	case strings.HasPrefix(wireID, historyPrefix):
		return wireID
	case strings.HasPrefix(wireID, "toolu_"):
		return historyPrefix + strings.TrimPrefix(wireID, "toolu_")
	case strings.HasPrefix(wireID, "call_"):
		return historyPrefix + strings.TrimPrefix(wireID, "call_")
	default:
		// Bare UUID (or any unrecognized-prefix form): treat as the suffix.
		return historyPrefix + wireID
	}
}

// Dialect names the provider-family tool ID rewriting scheme.
type Dialect string

const (
	DialectAnthropic Dialect = "anthropic"
	DialectOpenAI    Dialect = "openai"
)

// FromHistoryID rewrites a canonical hist_tool_<u> ID into the wire form the
// given dialect expects. IDs not in canonical form pass through unchanged.
func FromHistoryID(id string, dialect Dialect) string {
	if !strings.HasPrefix(id, historyPrefix) {
		return id
	}
	suffix := strings.TrimPrefix(id, historyPrefix)
	switch dialect {
	case DialectAnthropic:
		return "toolu_" + suffix
	case DialectOpenAI:
		return "call_" + suffix
	default:
		return id
	}
}
