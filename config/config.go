// Package config defines the Config capability the core consumes (spec.md
// §6): ephemeral per-session settings plus a handful of session accessors.
// Distinct from settings.Service, which is the durable provider/profile
// store; Config is the ephemeral, session-scoped counterpart.
package config

import "context"

// ContentGeneratorConfig is the minimal bundle Config.GetContentGeneratorConfig
// returns: enough for a caller to know which generator/auth mode is active
// without reaching into provider internals.
type ContentGeneratorConfig struct {
	AuthType string
	Model    string
}

// Config is the Config capability consumed by the core.
type Config interface {
	GetModel() string
	GetProvider() string
	GetProviderManager() (any, bool) // typed as `any` to avoid an import cycle with package provider

	GetEphemeralSettings(ctx context.Context) map[string]any
	GetEphemeralSetting(ctx context.Context, key string) (any, bool)
	SetEphemeralSetting(ctx context.Context, key string, value any) error

	GetUserMemory(ctx context.Context) (string, bool)

	GetContentGeneratorConfig(ctx context.Context) ContentGeneratorConfig
	RefreshAuth(ctx context.Context, authType string) error
}
