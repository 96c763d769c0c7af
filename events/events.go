// Package events publishes provider-switch notifications (spec.md §4.E:
// "emit a provider-switch event" whenever the Provider Manager's active
// provider changes). Publishing is fire-and-forget from the caller's
// perspective: a slow or failing event backend must never block or fail
// a chat completion call.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// ProviderSwitch describes one active-provider transition.
type ProviderSwitch struct {
	RuntimeKey   string    `json:"runtimeKey"`
	FromProvider string    `json:"fromProvider"`
	ToProvider   string    `json:"toProvider"`
	Timestamp    time.Time `json:"timestamp"`
}

// Publisher delivers ProviderSwitch events to some backend.
type Publisher interface {
	PublishProviderSwitch(ctx context.Context, evt ProviderSwitch) error
}

// Noop discards every event. It is the default Publisher so the Provider
// Manager never depends on an events backend being configured.
type Noop struct{}

func (Noop) PublishProviderSwitch(ctx context.Context, evt ProviderSwitch) error { return nil }

// Marshal renders evt as the JSON body used by queue-backed publishers.
func Marshal(evt ProviderSwitch) ([]byte, error) {
	return json.Marshal(evt)
}
