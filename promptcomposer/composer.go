// Package promptcomposer builds the system prompt and user-memory
// injection for a call: a pure function of (template directory contents,
// variable map) with deterministic {{VARIABLE}} substitution (spec.md §4.G,
// §9's determinism note).
package promptcomposer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PromptsDirEnv is the environment variable that overrides the default
// template directory.
const PromptsDirEnv = "LLXPRT_PROMPTS_DIR"

// DefaultPromptsDir returns LLXPRT_PROMPTS_DIR if set, else ~/.llxprt/prompts.
func DefaultPromptsDir() string {
	if dir := os.Getenv(PromptsDirEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".llxprt", "prompts")
	}
	return filepath.Join(home, ".llxprt", "prompts")
}

// Variables is the substitution map passed into Compose.
type Variables struct {
	Model    string
	Provider string
	Tools    string // pre-rendered tool listing, empty if no tools
	Extra    map[string]string
}

func (v Variables) lookup(name string) (string, bool) {
	switch name {
	case "MODEL":
		return v.Model, true
	case "PROVIDER":
		return v.Provider, true
	case "TOOLS":
		return v.Tools, true
	}
	if v.Extra != nil {
		if val, ok := v.Extra[name]; ok {
			return val, true
		}
	}
	return "", false
}

// Substitute performs deterministic {{VARIABLE}} substitution over
// template. Unmatched variables resolve to empty string. Nested "{{ }}" is
// kept literal (the inner braces are not treated as a second substitution).
// Unbalanced braces are emitted as-is and scanning resumes right after the
// opening "{{".
func Substitute(template string, vars Variables) string {
	var out strings.Builder
	i := 0
	for i < len(template) {
		start := strings.Index(template[i:], "{{")
		if start == -1 {
			out.WriteString(template[i:])
			break
		}
		start += i
		out.WriteString(template[i:start])

		end := strings.Index(template[start+2:], "}}")
		if end == -1 {
			// Unbalanced: emit the opener literally and resume right after it.
			out.WriteString("{{")
			i = start + 2
			continue
		}
		end += start + 2

		inner := template[start+2 : end]
		if strings.Contains(inner, "{{") {
			if !strings.Contains(template[end+2:], "}}") {
				// The outer opener never closes: unbalanced, so emit it
				// literally and resume right after it.
				out.WriteString("{{")
				i = start + 2
				continue
			}
			// Nested braces: kept literal, including the outer delimiters.
			out.WriteString(template[start : end+2])
			i = end + 2
			continue
		}

		name := strings.TrimSpace(inner)
		if val, ok := vars.lookup(name); ok {
			out.WriteString(val)
		}
		i = end + 2
	}
	return out.String()
}

// Compose loads the named template from dir, substitutes vars, and appends
// userMemory after a "---" separator when non-empty. name is the template
// file's base name without extension; ".txt" is tried first, then ".md".
func Compose(dir, name string, vars Variables, userMemory string) (string, error) {
	tmpl, err := loadTemplate(dir, name)
	if err != nil {
		return "", fmt.Errorf("load prompt template %q: %w", name, err)
	}
	composed := Substitute(tmpl, vars)
	if userMemory != "" {
		composed = composed + "\n---\n" + userMemory
	}
	return composed, nil
}

func loadTemplate(dir, name string) (string, error) {
	for _, ext := range []string{".txt", ".md"} {
		b, err := os.ReadFile(filepath.Join(dir, name+ext))
		if err == nil {
			return string(b), nil
		}
	}
	return "", fmt.Errorf("no template found for %q in %q", name, dir)
}

// WrapOAuthSystemPrompt implements the Anthropic-style OAuth-mode quirk
// (spec.md §4.F.1, §6): when OAuth overrides the `system` field to a fixed
// string, the composed system prompt is instead injected as a wrapped user
// turn prefix.
func WrapOAuthSystemPrompt(systemPrompt string) string {
	return fmt.Sprintf("<system>%s</system>", systemPrompt)
}

// AnthropicOAuthFixedSystem is the fixed system string Anthropic's OAuth
// policy substitutes in place of the caller's `system` field (spec.md §6).
const AnthropicOAuthFixedSystem = "You are Claude Code, Anthropic's official CLI for Claude."
