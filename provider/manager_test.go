package provider

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acoliver/llxprt-core/config"
	"github.com/acoliver/llxprt-core/content"
	"github.com/acoliver/llxprt-core/events"
	"github.com/acoliver/llxprt-core/runtime"
	"github.com/acoliver/llxprt-core/settings"
)

// fakeProvider is a minimal scripted Provider for exercising Manager
// dispatch logic without any real network I/O.
type fakeProvider struct {
	name  string
	caps  Capabilities
	items []content.Content
	// failBefore, if true, errors before yielding anything (eligible for
	// fallover). failAfter, if true, yields one item then errors
	// mid-stream (must NOT fail over).
	failBefore bool
	failAfter  bool
	calls      int
}

func (f *fakeProvider) Name() string            { return f.name }
func (f *fakeProvider) Capabilities() Capabilities { return f.caps }
func (f *fakeProvider) GetModels(ctx context.Context) ([]ModelInfo, error) {
	return []ModelInfo{{ID: f.name + "-model"}}, nil
}
func (f *fakeProvider) GenerateChatCompletion(ctx context.Context, opts NormalizedOptions) iter.Seq2[content.Content, error] {
	return func(yield func(content.Content, error) bool) {
		f.calls++
		if f.failBefore {
			yield(content.Content{}, errors.New(f.name+" unavailable"))
			return
		}
		for _, item := range f.items {
			if !yield(item, nil) {
				return
			}
		}
		if f.failAfter {
			yield(content.Content{}, errors.New(f.name+" stream dropped"))
		}
	}
}

func TestSetActive_UnknownProviderReturnsConfigError(t *testing.T) {
	m := NewManager()
	err := m.SetActive(context.Background(), runtime.Context{RuntimeID: "rt-1"}, "nope")
	require.Error(t, err)
}

func TestSetActive_SwitchingProvidersPublishesEvent(t *testing.T) {
	m := NewManager()
	m.Register(&fakeProvider{name: "a"})
	m.Register(&fakeProvider{name: "b"})
	pub := &capturingPublisher{}
	m.Events = pub

	require.NoError(t, m.SetActive(context.Background(), runtime.Context{RuntimeID: "rt-1"}, "a"))
	require.NoError(t, m.SetActive(context.Background(), runtime.Context{RuntimeID: "rt-1"}, "b"))

	require.Len(t, pub.events, 1)
	assert.Equal(t, "a", pub.events[0].FromProvider)
	assert.Equal(t, "b", pub.events[0].ToProvider)
}

func TestSetActive_SettingSameProviderAgainDoesNotPublish(t *testing.T) {
	m := NewManager()
	m.Register(&fakeProvider{name: "a"})
	pub := &capturingPublisher{}
	m.Events = pub

	require.NoError(t, m.SetActive(context.Background(), runtime.Context{RuntimeID: "rt-1"}, "a"))
	require.NoError(t, m.SetActive(context.Background(), runtime.Context{RuntimeID: "rt-1"}, "a"))
	assert.Len(t, pub.events, 0)
}

func TestServerToolsProvider_SurvivesOrdinaryProviderSwitch(t *testing.T) {
	m := NewManager()
	m.Register(&fakeProvider{name: "gemini"})
	m.Register(&fakeProvider{name: "anthropic"})
	require.NoError(t, m.PinServerToolsProvider("gemini"))

	require.NoError(t, m.SetActive(context.Background(), runtime.Context{RuntimeID: "rt-1"}, "anthropic"))
	name, ok := m.ServerToolsProvider()
	assert.True(t, ok)
	assert.Equal(t, "gemini", name)
}

func TestClearServerToolsProvider_UnpinsExplicitly(t *testing.T) {
	m := NewManager()
	m.Register(&fakeProvider{name: "gemini"})
	require.NoError(t, m.PinServerToolsProvider("gemini"))
	m.ClearServerToolsProvider()
	_, ok := m.ServerToolsProvider()
	assert.False(t, ok)
}

func TestGenerateChatCompletion_NoActiveProviderYieldsMissingProviderError(t *testing.T) {
	m := NewManager()
	var gotErr error
	for _, err := range m.GenerateChatCompletion(context.Background(), runtime.Context{RuntimeID: "rt-1"}, NormalizedOptions{}) {
		if err != nil {
			gotErr = err
		}
	}
	require.Error(t, gotErr)
}

func TestGenerateChatCompletion_FallsOverWhenActiveFailsBeforeYielding(t *testing.T) {
	m := NewManager()
	primary := &fakeProvider{name: "primary", failBefore: true}
	secondary := &fakeProvider{name: "secondary", items: []content.Content{content.Text(content.SpeakerAI, "hi")}}
	m.Register(primary)
	m.Register(secondary)
	m.SetFallbackLadder("secondary")
	require.NoError(t, m.SetActive(context.Background(), runtime.Context{RuntimeID: "rt-1"}, "primary"))

	var items []content.Content
	var gotErr error
	for item, err := range m.GenerateChatCompletion(context.Background(), runtime.Context{RuntimeID: "rt-1"}, NormalizedOptions{}) {
		if err != nil {
			gotErr = err
			continue
		}
		items = append(items, item)
	}
	require.NoError(t, gotErr)
	require.Len(t, items, 1)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestGenerateChatCompletion_DoesNotFailOverMidStream(t *testing.T) {
	m := NewManager()
	primary := &fakeProvider{
		name:      "primary",
		items:     []content.Content{content.Text(content.SpeakerAI, "partial")},
		failAfter: true,
	}
	secondary := &fakeProvider{name: "secondary", items: []content.Content{content.Text(content.SpeakerAI, "should not be used")}}
	m.Register(primary)
	m.Register(secondary)
	m.SetFallbackLadder("secondary")
	require.NoError(t, m.SetActive(context.Background(), runtime.Context{RuntimeID: "rt-1"}, "primary"))

	var items []content.Content
	var gotErr error
	for item, err := range m.GenerateChatCompletion(context.Background(), runtime.Context{RuntimeID: "rt-1"}, NormalizedOptions{}) {
		if err != nil {
			gotErr = err
			continue
		}
		items = append(items, item)
	}
	require.Error(t, gotErr)
	require.Len(t, items, 1)
	assert.Equal(t, 0, secondary.calls)
}

func TestAddSessionTokens_ClampsAtZero(t *testing.T) {
	m := NewManager()
	rc := runtime.Context{RuntimeID: "rt-1"}
	assert.Equal(t, int64(10), m.AddSessionTokens(rc, 10))
	assert.Equal(t, int64(0), m.AddSessionTokens(rc, -100))
	assert.Equal(t, int64(0), m.SessionTokens(rc))
}

func TestSnapshotRuntimeContext_ProducesUniqueDerivedIDs(t *testing.T) {
	rc := runtime.Context{RuntimeID: "base"}
	snap1 := SnapshotRuntimeContext(rc)
	snap2 := SnapshotRuntimeContext(rc)
	assert.NotEqual(t, snap1.RuntimeID, snap2.RuntimeID)
	assert.Contains(t, snap1.RuntimeID, "base-")
	assert.Equal(t, "base", rc.RuntimeID) // original untouched
}

func TestAllModels_CollectsPerProviderResultsConcurrently(t *testing.T) {
	m := NewManager()
	m.Register(&fakeProvider{name: "a"})
	m.Register(&fakeProvider{name: "b"})
	results := m.AllModels(context.Background())
	require.Len(t, results, 2)
	assert.NoError(t, results["a"].Err)
	assert.NoError(t, results["b"].Err)
	assert.Equal(t, "a-model", results["a"].Models[0].ID)
}

func TestGetActiveProvider_PrefersSettingsWhenRegistered(t *testing.T) {
	m := NewManager()
	m.Register(&fakeProvider{name: "anthropic"})
	m.Register(&fakeProvider{name: "openai"})
	svc := settings.NewMemoryService()
	require.NoError(t, svc.Set(context.Background(), settings.KeyActiveProvider, "anthropic"))

	name, err := m.GetActiveProvider(context.Background(), svc, nil)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", name)
}

func TestGetActiveProvider_FallsBackToConfigWhenSettingsUnregistered(t *testing.T) {
	m := NewManager()
	m.Register(&fakeProvider{name: "openai"})
	svc := settings.NewMemoryService()
	require.NoError(t, svc.Set(context.Background(), settings.KeyActiveProvider, "not-registered"))
	cfg := config.NewStatic("gpt-4o", "openai")

	name, err := m.GetActiveProvider(context.Background(), svc, cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", name)
}

func TestGetActiveProvider_FallsBackToOpenAIWhenNoSettingsOrConfig(t *testing.T) {
	m := NewManager()
	m.Register(&fakeProvider{name: "openai"})
	m.Register(&fakeProvider{name: "gemini"})

	name, err := m.GetActiveProvider(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", name)
}

func TestGetActiveProvider_FallsBackToFirstRegisteredWhenOpenAIMissing(t *testing.T) {
	m := NewManager()
	m.Register(&fakeProvider{name: "gemini"})
	m.Register(&fakeProvider{name: "anthropic"})

	name, err := m.GetActiveProvider(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", name) // sorted first
}

func TestGetActiveProvider_ErrorsWhenNothingRegistered(t *testing.T) {
	m := NewManager()
	_, err := m.GetActiveProvider(context.Background(), nil, nil)
	require.Error(t, err)
}

func TestGetActiveProvider_WritesResolvedNameBackToSettings(t *testing.T) {
	m := NewManager()
	m.Register(&fakeProvider{name: "openai"})
	svc := settings.NewMemoryService()
	cfg := config.NewStatic("gpt-4o", "openai")

	_, err := m.GetActiveProvider(context.Background(), svc, cfg)
	require.NoError(t, err)

	v, ok := svc.Get(context.Background(), settings.KeyActiveProvider)
	require.True(t, ok)
	assert.Equal(t, "openai", v)
}

type capturingPublisher struct {
	events []events.ProviderSwitch
}

func (p *capturingPublisher) PublishProviderSwitch(ctx context.Context, evt events.ProviderSwitch) error {
	p.events = append(p.events, evt)
	return nil
}
