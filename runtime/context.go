// Package runtime defines the immutable per-call bundle every provider
// adapter receives: which settings and config a call sees, and the runtime
// identifier used to key the HTTP client cache and the auth cache. A
// runtime.Context is constructed once per call and never mutated or shared
// across calls except by explicit snapshot copy (spec.md §3, §4.E).
package runtime

import (
	"github.com/acoliver/llxprt-core/config"
	"github.com/acoliver/llxprt-core/settings"
)

// Context is the immutable per-call bundle. Two Context values with
// different RuntimeID never share cached resources (HTTP clients, auth
// tokens) even if every other field is identical. Settings and Config carry
// the collaborators spec.md §3's RuntimeContext names (settingsService,
// config) so the active-provider ladder and per-call settings snapshot have
// something concrete to read from; both are nil-safe optional fields.
type Context struct {
	RuntimeID string
	Metadata  map[string]any
	Settings  settings.Service
	Config    config.Config
}

// WithMetadata returns a copy of c with key set to value in Metadata,
// leaving the receiver untouched.
func (c Context) WithMetadata(key string, value any) Context {
	clone := Context{RuntimeID: c.RuntimeID, Settings: c.Settings, Config: c.Config, Metadata: make(map[string]any, len(c.Metadata)+1)}
	for k, v := range c.Metadata {
		clone.Metadata[k] = v
	}
	clone.Metadata[key] = value
	return clone
}

// Key resolves the runtime key used by the HTTP client cache and auth
// cache: RuntimeID, falling back to a metadata["runtimeId"] string, then a
// metadata["callId"] string, then the fixed sentinel "default-runtime". Mirrors spec.md §4.D's runtime_key rule.
func (c Context) Key() string {
	if c.RuntimeID != "" {
		return c.RuntimeID
	}
	if v, ok := c.Metadata["runtimeId"].(string); ok && v != "" {
		return v
	}
	if v, ok := c.Metadata["callId"].(string); ok && v != "" {
		return v
	}
	return "default-runtime"
}
