package config

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic_GetModelAndProvider(t *testing.T) {
	c := NewStatic("claude-sonnet-4-5", "anthropic")
	assert.Equal(t, "claude-sonnet-4-5", c.GetModel())
	assert.Equal(t, "anthropic", c.GetProvider())
}

func TestStatic_EphemeralSettingsRoundTrip(t *testing.T) {
	c := NewStatic("", "")
	ctx := context.Background()
	_, ok := c.GetEphemeralSetting(ctx, "streaming")
	assert.False(t, ok)

	require.NoError(t, c.SetEphemeralSetting(ctx, "streaming", "disabled"))
	v, ok := c.GetEphemeralSetting(ctx, "streaming")
	require.True(t, ok)
	assert.Equal(t, "disabled", v)

	all := c.GetEphemeralSettings(ctx)
	assert.Equal(t, "disabled", all["streaming"])
}

func TestStatic_ProviderManagerUnsetByDefault(t *testing.T) {
	c := NewStatic("", "")
	_, ok := c.GetProviderManager()
	assert.False(t, ok)

	c.SetProviderManager("some-manager")
	got, ok := c.GetProviderManager()
	require.True(t, ok)
	assert.Equal(t, "some-manager", got)
}

func TestStatic_UserMemoryUnsetUntilSet(t *testing.T) {
	c := NewStatic("", "")
	_, ok := c.GetUserMemory(context.Background())
	assert.False(t, ok)

	c.SetUserMemory("remember this")
	mem, ok := c.GetUserMemory(context.Background())
	require.True(t, ok)
	assert.Equal(t, "remember this", mem)
}

func TestStatic_RefreshAuth_NoopWhenNoCallbackRegistered(t *testing.T) {
	c := NewStatic("", "")
	assert.NoError(t, c.RefreshAuth(context.Background(), "oauth"))
}

func TestStatic_RefreshAuth_InvokesRegisteredCallback(t *testing.T) {
	c := NewStatic("", "")
	var gotAuthType string
	c.OnRefreshAuth(func(ctx context.Context, authType string) error {
		gotAuthType = authType
		return errors.New("refresh failed")
	})
	err := c.RefreshAuth(context.Background(), "oauth")
	assert.Error(t, err)
	assert.Equal(t, "oauth", gotAuthType)
}

func TestStatic_ContentGeneratorConfig(t *testing.T) {
	c := NewStatic("", "")
	c.SetContentGeneratorConfig(ContentGeneratorConfig{AuthType: "oauth", Model: "claude-opus-4-1"})
	got := c.GetContentGeneratorConfig(context.Background())
	assert.Equal(t, "oauth", got.AuthType)
	assert.Equal(t, "claude-opus-4-1", got.Model)
}
