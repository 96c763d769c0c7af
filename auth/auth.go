// Package auth resolves provider credentials by a precedence-ordered list
// (explicit key → env vars → OAuth token), caching the result per runtime
// and never sharing it across runtime contexts with different runtime IDs
// (spec.md §4.C).
package auth

import (
	"context"
	"os"
	"sync"

	"github.com/acoliver/llxprt-core/llxerrors"
	"github.com/acoliver/llxprt-core/runtime"
)

// OAuthManager is the collaborator interface the resolver consults last in
// the precedence list. Token may refresh on demand; this is a suspension
// point (spec.md §5).
type OAuthManager interface {
	Token(ctx context.Context) (string, error)
}

// Source is one entry in a provider's credential precedence list.
type Source struct {
	// Name labels the source for diagnostics (e.g. "explicit", "env:OPENAI_API_KEY", "oauth").
	Name string
	// Resolve returns a non-empty token, or ("", false) if this source has
	// nothing to offer.
	Resolve func(ctx context.Context) (string, bool)
}

// ExplicitKey builds a Source that returns key verbatim if non-empty.
func ExplicitKey(key string) Source {
	return Source{Name: "explicit", Resolve: func(ctx context.Context) (string, bool) {
		if key == "" {
			return "", false
		}
		return key, true
	}}
}

// EnvVars builds a Source that checks each environment variable name in
// order and returns the first non-empty value.
func EnvVars(names ...string) Source {
	return Source{Name: "env", Resolve: func(ctx context.Context) (string, bool) {
		for _, n := range names {
			if v := os.Getenv(n); v != "" {
				return v, true
			}
		}
		return "", false
	}}
}

// OAuth builds a Source backed by an OAuthManager.
func OAuth(mgr OAuthManager) Source {
	return Source{Name: "oauth", Resolve: func(ctx context.Context) (string, bool) {
		if mgr == nil {
			return "", false
		}
		tok, err := mgr.Token(ctx)
		if err != nil || tok == "" {
			return "", false
		}
		return tok, true
	}}
}

// Resolver resolves credentials for one provider by walking a precedence
// list, caching results per runtime.Context.Key().
type Resolver struct {
	ProviderName string
	Precedence   []Source
	Hint         string

	mu    sync.Mutex
	cache map[string]string // runtime key -> resolved token
}

// NewResolver constructs a Resolver with the given precedence list.
func NewResolver(providerName string, hint string, precedence ...Source) *Resolver {
	return &Resolver{
		ProviderName: providerName,
		Precedence:   precedence,
		Hint:         hint,
		cache:        make(map[string]string),
	}
}

// Resolve returns the first non-empty credential in precedence order,
// caching it under rc.Key(). Returns *llxerrors.AuthError if none resolve.
func (r *Resolver) Resolve(ctx context.Context, rc runtime.Context) (string, error) {
	key := rc.Key()

	r.mu.Lock()
	if tok, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return tok, nil
	}
	r.mu.Unlock()

	for _, src := range r.Precedence {
		if tok, ok := src.Resolve(ctx); ok {
			r.mu.Lock()
			r.cache[key] = tok
			r.mu.Unlock()
			return tok, nil
		}
	}
	return "", &llxerrors.AuthError{ProviderName: r.ProviderName, Hint: r.Hint}
}

// ClearCache invalidates the cached credential for one runtime key.
func (r *Resolver) ClearCache(runtimeKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, runtimeKey)
}
