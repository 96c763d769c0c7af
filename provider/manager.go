package provider

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/acoliver/llxprt-core/config"
	"github.com/acoliver/llxprt-core/content"
	"github.com/acoliver/llxprt-core/events"
	"github.com/acoliver/llxprt-core/llxerrors"
	"github.com/acoliver/llxprt-core/runtime"
	"github.com/acoliver/llxprt-core/settings"
)

// activeState is the Manager's active-provider state machine: either no
// provider is active, or exactly one is, by name (spec.md §4.E).
type activeState struct {
	set  bool
	name string
}

// Manager holds every registered provider, the currently active one, a
// fallback ladder to try when the active provider errors, and per-runtime
// session accounting. It mirrors the teacher's RouterClient/RoutePolicy
// split but generalizes selection from "by model name" to "by active
// provider with an explicit fallback ladder", and adds the clearState()
// hook and server-tools pinning spec.md's redesign calls for.
type Manager struct {
	mu sync.RWMutex

	providers map[string]Provider
	active    activeState
	fallback  []string // provider names tried in order after the active one errors

	// serverToolsProvider is pinned independently of the active provider and
	// survives provider switches unless explicitly cleared (spec.md §4.E).
	serverToolsProvider string

	// sessionTokens accumulates usage per runtime key; never goes negative.
	sessionTokens map[string]int64

	capabilities map[string]Capabilities

	Events events.Publisher
}

// NewManager constructs an empty Manager. Events defaults to a no-op
// publisher; set mgr.Events to wire a real backend.
func NewManager() *Manager {
	return &Manager{
		providers:     make(map[string]Provider),
		sessionTokens: make(map[string]int64),
		capabilities:  make(map[string]Capabilities),
		Events:        events.Noop{},
	}
}

// Register adds p under its own Name(), capturing its capabilities.
func (m *Manager) Register(p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[p.Name()] = p
	m.capabilities[p.Name()] = p.Capabilities()
}

// SetFallbackLadder sets the ordered list of provider names tried after the
// active provider's call errors. Names not registered are skipped silently
// at call time rather than erroring at configuration time.
func (m *Manager) SetFallbackLadder(names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = append([]string(nil), names...)
}

// SetActive switches the active provider. If the previously active
// provider differs, clearState() runs (it has no state to drop, and
// serverToolsProvider stays pinned) and a provider-switch event is
// published.
func (m *Manager) SetActive(ctx context.Context, rc runtime.Context, name string) error {
	m.mu.Lock()
	if _, ok := m.providers[name]; !ok {
		m.mu.Unlock()
		return &llxerrors.ConfigError{Key: "provider", Message: fmt.Sprintf("unknown provider %q", name)}
	}
	prev := m.active
	m.active = activeState{set: true, name: name}
	m.mu.Unlock()

	if !prev.set || prev.name != name {
		m.clearState()
		m.Events.PublishProviderSwitch(ctx, events.ProviderSwitch{
			RuntimeKey:   rc.Key(),
			FromProvider: prev.name,
			ToProvider:   name,
			Timestamp:    time.Now(),
		})
	}
	return nil
}

// clearState is the per-switch hook; its body is empty and it does not
// call into any provider. serverToolsProvider is
// deliberately NOT cleared here: spec.md §4.E pins it across ordinary
// provider switches, requiring an explicit ClearServerToolsProvider call.
func (m *Manager) clearState() {
	// Placeholder for future per-switch transient state (e.g. cached
	// capability negotiation results); nothing to drop today beyond the
	// active pointer itself, which SetActive already updated.
}

// Active returns the active provider name, or ("", false) if none is set.
func (m *Manager) Active() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active.name, m.active.set
}

func (m *Manager) lookup(name string) (Provider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.providers[name]
	return p, ok
}

// GetActiveProvider resolves the single source-of-truth active-provider name
// per spec.md §4.E's documented ladder: settings.activeProvider →
// config.GetProvider() → "openai" → the first registered provider. Each
// candidate is only accepted if a provider is actually registered under that
// name; whichever name is ultimately resolved is written back to svc under
// settings.KeyActiveProvider, so a caller reading settings afterward sees
// the same value GetActiveProvider just used. svc and cfg may both be nil,
// in which case only the "openai"/first-registered fallback applies.
func (m *Manager) GetActiveProvider(ctx context.Context, svc settings.Service, cfg config.Config) (string, error) {
	if svc != nil {
		if v, ok := svc.Get(ctx, settings.KeyActiveProvider); ok {
			if name, ok := v.(string); ok && name != "" {
				if _, ok := m.lookup(name); ok {
					return name, nil
				}
			}
		}
	}

	resolved := ""
	if cfg != nil {
		if name := cfg.GetProvider(); name != "" {
			if _, ok := m.lookup(name); ok {
				resolved = name
			}
		}
	}
	if resolved == "" {
		if _, ok := m.lookup("openai"); ok {
			resolved = "openai"
		}
	}
	if resolved == "" {
		if names := m.ProviderNames(); len(names) > 0 {
			resolved = names[0]
		}
	}
	if resolved == "" {
		return "", &llxerrors.MissingProviderRuntimeError{Stage: "getActiveProvider", MissingFields: []string{"registeredProvider"}}
	}

	if svc != nil {
		if err := svc.Set(ctx, settings.KeyActiveProvider, resolved); err != nil {
			return "", err
		}
	}
	return resolved, nil
}

// PinServerToolsProvider pins name as the server-tools provider
// independent of the active provider.
func (m *Manager) PinServerToolsProvider(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.providers[name]; !ok {
		return &llxerrors.ConfigError{Key: "serverToolsProvider", Message: fmt.Sprintf("unknown provider %q", name)}
	}
	m.serverToolsProvider = name
	return nil
}

// ClearServerToolsProvider unpins the server-tools provider.
func (m *Manager) ClearServerToolsProvider() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serverToolsProvider = ""
}

// ServerToolsProvider returns the pinned server-tools provider, if any.
func (m *Manager) ServerToolsProvider() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.serverToolsProvider, m.serverToolsProvider != ""
}

// ProviderNames returns every registered provider name, sorted.
func (m *Manager) ProviderNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.providers))
	for n := range m.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Capabilities returns the captured capabilities for name.
func (m *Manager) Capabilities(name string) (Capabilities, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.capabilities[name]
	return c, ok
}

// AllModels fetches GetModels from every registered provider concurrently,
// keyed by provider name. A single provider's error is recorded under its
// own key rather than aborting the others.
func (m *Manager) AllModels(ctx context.Context) map[string]ModelsResult {
	m.mu.RLock()
	names := make([]string, 0, len(m.providers))
	providers := make(map[string]Provider, len(m.providers))
	for n, p := range m.providers {
		names = append(names, n)
		providers[n] = p
	}
	m.mu.RUnlock()

	results := make(map[string]ModelsResult, len(names))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		p := providers[name]
		g.Go(func() error {
			models, err := p.GetModels(gctx)
			mu.Lock()
			results[name] = ModelsResult{Models: models, Err: err}
			mu.Unlock()
			return nil // per-provider errors are reported, not fatal to the group
		})
	}
	_ = g.Wait()
	return results
}

// ModelsResult pairs one provider's model list with its fetch error, if any.
type ModelsResult struct {
	Models []ModelInfo
	Err    error
}

// AddSessionTokens accumulates delta tokens for rc's runtime key, clamping
// the running total at zero (a negative delta larger than the current
// total never drives the session count below zero).
func (m *Manager) AddSessionTokens(rc runtime.Context, delta int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := rc.Key()
	next := m.sessionTokens[key] + delta
	if next < 0 {
		next = 0
	}
	m.sessionTokens[key] = next
	return next
}

// SessionTokens returns the accumulated token count for rc's runtime key.
func (m *Manager) SessionTokens(rc runtime.Context) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionTokens[rc.Key()]
}

// SnapshotRuntimeContext derives a fresh runtime.Context for one call,
// suffixing rc's runtime ID with a random UUID segment so concurrent calls
// against the same logical runtime never collide on cache or auth keys
// (spec.md §4.C, §4.D).
func SnapshotRuntimeContext(rc runtime.Context) runtime.Context {
	snap := rc
	snap.RuntimeID = fmt.Sprintf("%s-%s", rc.RuntimeID, uuid.NewString())
	return snap
}

// GenerateChatCompletion dispatches to the active provider, falling back
// through the configured ladder (in order, skipping unregistered names) if
// the active provider's call errors before yielding anything. Once a
// sequence has started yielding, this function does not fail over
// mid-stream: a stream interruption is the caller's retry package's job
// (spec.md §4.B), not the Manager's.
func (m *Manager) GenerateChatCompletion(ctx context.Context, rc runtime.Context, opts NormalizedOptions) iter.Seq2[content.Content, error] {
	return func(yield func(content.Content, error) bool) {
		m.mu.RLock()
		activeName := m.active.name
		hasActive := m.active.set
		ladder := append([]string(nil), m.fallback...)
		m.mu.RUnlock()

		if !hasActive {
			yield(content.Content{}, &llxerrors.MissingProviderRuntimeError{ProviderKey: rc.Key(), Stage: "dispatch", MissingFields: []string{"activeProvider"}})
			return
		}

		candidates := append([]string{activeName}, ladder...)
		var lastErr error
		for _, name := range candidates {
			m.mu.RLock()
			p, ok := m.providers[name]
			m.mu.RUnlock()
			if !ok {
				continue
			}

			started := false
			failed := false
			for item, err := range p.GenerateChatCompletion(ctx, opts) {
				if err != nil {
					if !started {
						lastErr = err
						failed = true
						break
					}
					yield(content.Content{}, err)
					return
				}
				started = true
				if !yield(item, nil) {
					return
				}
			}
			if !failed {
				return
			}
		}
		if lastErr == nil {
			lastErr = &llxerrors.MissingProviderRuntimeError{ProviderKey: rc.Key(), Stage: "dispatch", MissingFields: []string{"registeredProvider"}}
		}
		yield(content.Content{}, lastErr)
	}
}
