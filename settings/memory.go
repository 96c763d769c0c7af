package settings

import (
	"context"
	"sync"
)

// MemoryService is an in-memory implementation of Service, grounded on the
// teacher's state.InMemoryStore idiom (RWMutex-guarded maps, defensive
// copies on read). Used by tests and standalone examples; a durable,
// disk-backed SettingsService is an external collaborator out of scope here.
type MemoryService struct {
	mu        sync.RWMutex
	global    map[string]any
	providers map[string]ProviderSettings
}

// NewMemoryService creates an empty in-memory settings service.
func NewMemoryService() *MemoryService {
	return &MemoryService{
		global:    make(map[string]any),
		providers: make(map[string]ProviderSettings),
	}
}

func (s *MemoryService) Get(ctx context.Context, key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.global[key]
	return v, ok
}

func (s *MemoryService) Set(ctx context.Context, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global[key] = value
	return nil
}

func (s *MemoryService) GetProviderSettings(ctx context.Context, name string) (ProviderSettings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.providers[name]
	return p, ok
}

func (s *MemoryService) SetProviderSetting(ctx context.Context, name, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.providers[name]
	switch key {
	case "model":
		if v, ok := value.(string); ok {
			p.Model = v
		}
	case "baseUrl":
		if v, ok := value.(string); ok {
			p.BaseURL = v
		}
	case "apiKey":
		if v, ok := value.(string); ok {
			p.APIKey = v
		}
	case "toolFormat":
		if v, ok := value.(string); ok {
			p.ToolFormat = v
		}
	case "temperature":
		if v, ok := value.(float64); ok {
			p.Temperature = &v
		}
	case "maxTokens":
		if v, ok := value.(int); ok {
			p.MaxTokens = &v
		}
	default:
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[key] = value
	}
	s.providers[name] = p
	return nil
}

func (s *MemoryService) ExportForProfile(ctx context.Context) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.global))
	for k, v := range s.global {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryService) ImportFromProfile(ctx context.Context, snapshot map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range snapshot {
		s.global[k] = v
	}
	return nil
}

func (s *MemoryService) SetCurrentProfileName(ctx context.Context, name string) error {
	return s.Set(ctx, KeyCurrentProfile, name)
}
