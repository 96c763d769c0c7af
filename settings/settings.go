// Package settings defines the SettingsService capability the core
// consumes (spec.md §6): a scoped key-value store with provider
// sub-namespaces, plus profile export/import. This package specifies the
// interface, an in-memory reference implementation used by tests and
// examples, and a Redis-backed implementation (RedisService); a disk-backed
// implementation is an external
// collaborator out of scope for this module (spec.md §1).
package settings

import "context"

// ProviderSettings is the sub-namespaced view of settings for one provider.
type ProviderSettings struct {
	Model       string
	Temperature *float64
	MaxTokens   *int
	BaseURL     string
	APIKey      string
	ToolFormat  string
	Extra       map[string]any
}

// Service is the SettingsService capability consumed by the core.
type Service interface {
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, value any) error

	GetProviderSettings(ctx context.Context, name string) (ProviderSettings, bool)
	SetProviderSetting(ctx context.Context, name, key string, value any) error

	ExportForProfile(ctx context.Context) (map[string]any, error)
	ImportFromProfile(ctx context.Context, snapshot map[string]any) error

	SetCurrentProfileName(ctx context.Context, name string) error
}

// Ephemeral keys recognized by the core (spec.md §4.F step 6, §6).
const (
	KeyActiveProvider = "activeProvider"
	KeyStreaming      = "streaming"
	KeyCustomHeaders  = "custom-headers"
	KeyCurrentProfile = "currentProfileName"
	StreamingDisabled = "disabled"
)
