// Package app holds the wiring shared by the server and worker binaries.
package app

import (
	"context"
	"strings"
	"time"

	"github.com/suPer8Hu/estate-chat/internal/ai"
	"github.com/suPer8Hu/estate-chat/internal/config"
	"github.com/suPer8Hu/estate-chat/internal/kv"
	"github.com/suPer8Hu/estate-chat/internal/platform/logger"
	"github.com/suPer8Hu/estate-chat/internal/property"
	"gorm.io/gorm"
)

// Registry registers every provider the config knows how to build.
func Registry(cfg config.Config) *ai.Registry {
	reg := ai.NewRegistry()

	// Register Ollama (default)
	reg.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OllamaModel
		}
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, m), nil
	})

	reg.Register("openrouter", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OpenRouterModel
		}
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, m, cfg.OpenRouterSiteURL, cfg.OpenRouterAppName), nil
	})
	return reg
}

// Provider resolves the configured provider and model.
func Provider(ctx context.Context, cfg config.Config) (ai.Provider, error) {
	return Registry(cfg).Get(ctx, cfg.AIProvider, cfg.AIModel)
}

// KV connects to redis, falling back to process memory when it is down.
// The returned close func is always safe to call.
func KV(ctx context.Context, cfg config.Config, log *logger.Logger) (kv.Store, func()) {
	rs := kv.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rs.Ping(pctx); err != nil {
		log.Warn("redis unavailable, using in-memory store", "addr", cfg.RedisAddr, "err", err)
		_ = rs.Close()
		return kv.NewMemoryStore(nil), func() {}
	}
	return rs, func() { _ = rs.Close() }
}

// Properties builds the listing repository. A dedicated postgres DSN selects
// the full-text store; otherwise listings live in the main gorm database.
// cache may be nil to disable result caching.
func Properties(ctx context.Context, cfg config.Config, gdb *gorm.DB, cache kv.Store, log *logger.Logger) (*property.Repository, func(), error) {
	var (
		store   property.Store
		closeFn = func() {}
	)
	if cfg.PropertyPGDSN != "" {
		ps, err := property.NewPostgresStore(cfg.PropertyPGDSN, 20, 5)
		if err != nil {
			return nil, nil, err
		}
		if err := ps.Migrate(ctx); err != nil {
			_ = ps.Close()
			return nil, nil, err
		}
		store = ps
		closeFn = func() { _ = ps.Close() }
	} else {
		gs := property.NewGormStore(gdb)
		if err := gs.AutoMigrate(); err != nil {
			return nil, nil, err
		}
		store = gs
	}

	opts := []property.Option{property.WithLimits(cfg.SearchDefaultLimit, cfg.SearchMaxLimit)}
	if cache != nil && cfg.SearchCacheTTL > 0 {
		opts = append(opts, property.WithFinder(property.NewCachedFinder(store, cache, cfg.SearchCacheTTL, log)))
	}
	return property.NewRepository(store, log, opts...), closeFn, nil
}
