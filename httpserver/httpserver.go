// Package httpserver exposes a provider.Manager over HTTP: a single POST
// endpoint streaming SSE deltas of a chat completion. Adapted from the
// teacher's server/agenthttp package, which wrapped a workflow agent the
// same way; here the streamed unit is a content.Content item from the
// Provider Manager instead of a workflow agent's message.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/acoliver/llxprt-core/config"
	"github.com/acoliver/llxprt-core/content"
	"github.com/acoliver/llxprt-core/provider"
	"github.com/acoliver/llxprt-core/runtime"
	"github.com/acoliver/llxprt-core/settings"
)

// Config controls the HTTP server's timeouts and body limits.
type Config struct {
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	RequestTimeout      time.Duration
	MaxRequestBodyBytes int64
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 60 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 120 * time.Second
	}
	if c.MaxRequestBodyBytes == 0 {
		c.MaxRequestBodyBytes = 1 << 20
	}
	return c
}

// Server wraps a provider.Manager with HTTP endpoints.
type Server struct {
	mgr      *provider.Manager
	config   Config
	settings settings.Service
	cfgSvc   config.Config
	http     *http.Server
}

// New constructs the server, registering /health and /chat/stream.
// settingsSvc and cfgSvc may both be nil; each call's runtime.Context and
// NormalizedOptions.Settings are still populated from whatever is provided,
// so adapters' per-runtime HTTP client cache and auth resolution key off the
// same collaborators the rest of the runtime uses (spec.md §3, §4.D).
func New(mgr *provider.Manager, cfg Config, settingsSvc settings.Service, cfgSvc config.Config) *Server {
	cfg = cfg.withDefaults()
	s := &Server{mgr: mgr, config: cfg, settings: settingsSvc, cfgSvc: cfgSvc}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.health)
	mux.HandleFunc("/chat/stream", s.stream)

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      http.TimeoutHandler(mux, cfg.RequestTimeout, "request timeout"),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Start runs the HTTP server until it errors or is shut down.
func (s *Server) Start() error { return s.http.ListenAndServe() }

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error { return s.http.Shutdown(ctx) }

// ChatStreamRequest is the POST /chat/stream body.
type ChatStreamRequest struct {
	RuntimeID string            `json:"runtimeId"`
	Model     string            `json:"model,omitempty"`
	Messages  []content.Content `json:"messages"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var req ChatStreamRequest
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	rc := runtime.Context{RuntimeID: req.RuntimeID, Settings: s.settings, Config: s.cfgSvc}
	opts := provider.NormalizedOptions{Model: req.Model, Messages: req.Messages, Settings: s.settings, Runtime: rc}

	for item, err := range s.mgr.GenerateChatCompletion(r.Context(), rc, opts) {
		if err != nil {
			data, _ := json.Marshal(map[string]string{"error": err.Error()})
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
			flusher.Flush()
			break
		}
		data, _ := json.Marshal(item)
		fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
		flusher.Flush()
	}
	fmt.Fprintf(w, "event: done\ndata: {}\n\n")
	flusher.Flush()
}
