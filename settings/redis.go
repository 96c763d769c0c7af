package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis-backed Service. Grounded on the teacher's
// adapters/redis.Config (Addr/DB/Password/Prefix/timeouts/pool sizing).
type RedisConfig struct {
	Addr         string
	DB           int
	Password     string
	Username     string
	Prefix       string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// RedisService is a Redis-backed Service, for deployments that run more than
// one process against the same active-provider and provider-settings state. Keys
// are namespaced under Prefix (default "llxprt") so multiple applications
// can share a Redis instance.
type RedisService struct {
	rdb    redis.UniversalClient
	prefix string
}

var _ Service = (*RedisService)(nil)

// NewRedis creates a new Redis-backed Service, pinging the server once to
// fail fast on misconfiguration.
func NewRedis(cfg RedisConfig) (*RedisService, error) {
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "llxprt"
	}
	return &RedisService{rdb: rdb, prefix: prefix}, nil
}

// Close closes the underlying client.
func (s *RedisService) Close() error { return s.rdb.Close() }

func (s *RedisService) globalKey() string             { return fmt.Sprintf("%s:global", s.prefix) }
func (s *RedisService) providerKey(name string) string { return fmt.Sprintf("%s:provider:%s", s.prefix, name) }

func (s *RedisService) Get(ctx context.Context, key string) (any, bool) {
	v, err := s.rdb.HGet(ctx, s.globalKey(), key).Result()
	if err != nil {
		return nil, false
	}
	var out any
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		return v, true
	}
	return out, true
}

func (s *RedisService) Set(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, s.globalKey(), key, string(b)).Err()
}

func (s *RedisService) GetProviderSettings(ctx context.Context, name string) (ProviderSettings, bool) {
	v, err := s.rdb.Get(ctx, s.providerKey(name)).Bytes()
	if err != nil {
		return ProviderSettings{}, false
	}
	var p ProviderSettings
	if err := json.Unmarshal(v, &p); err != nil {
		return ProviderSettings{}, false
	}
	return p, true
}

func (s *RedisService) SetProviderSetting(ctx context.Context, name, key string, value any) error {
	p, _ := s.GetProviderSettings(ctx, name)
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
	default:
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[key] = value
	}
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.providerKey(name), b, 0).Err()
}

func (s *RedisService) ExportForProfile(ctx context.Context) (map[string]any, error) {
	raw, err := s.rdb.HGetAll(ctx, s.globalKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis export: %w", err)
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		var val any
		if err := json.Unmarshal([]byte(v), &val); err == nil {
			out[k] = val
		} else {
			out[k] = v
		}
	}
	return out, nil
}

func (s *RedisService) ImportFromProfile(ctx context.Context, snapshot map[string]any) error {
	pipe := s.rdb.Pipeline()
	for k, v := range snapshot {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		pipe.HSet(ctx, s.globalKey(), k, string(b))
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisService) SetCurrentProfileName(ctx context.Context, name string) error {
	return s.Set(ctx, KeyCurrentProfile, name)
}
