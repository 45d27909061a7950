// Package app wires configuration into a ready ingestor: generator client,
// optional response cache and optional graph store.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/agenthands/archgraph/internal/config"
	"github.com/agenthands/archgraph/internal/core"
	"github.com/agenthands/archgraph/internal/driver"
	"github.com/agenthands/archgraph/internal/llm"
	"github.com/agenthands/archgraph/internal/logger"
)

type App struct {
	Config   *config.Config
	Ingestor *core.Ingestor
	Driver   driver.GraphDriver
	Log      *logger.Logger

	closers []io.Closer
}

// New builds the generator client from cfg.LLM, wraps it with the Redis
// cache when cfg.Cache.RedisAddr is set, and connects to Memgraph when
// cfg.Memgraph.URI is set. An unreachable cache is logged and skipped; an
// unreachable graph store is an error.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{Config: cfg, Log: log}

	llmClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	if c, ok := llmClient.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	if cfg.Cache.RedisAddr != "" {
		store, err := llm.NewRedisStore(ctx, cfg.Cache.RedisAddr)
		if err != nil {
			log.Warn("Response cache unavailable, continuing without it", "addr", cfg.Cache.RedisAddr, "error", err)
		} else {
			a.closers = append(a.closers, store)
			namespace := cfg.LLM.Provider + "/" + cfg.LLM.Model
			ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
			llmClient = llm.NewCachedClient(llmClient, store, namespace, cfg.Cache.Prefix, ttl, log)
			log.Info("Response cache enabled", "addr", cfg.Cache.RedisAddr)
		}
	}

	if cfg.Memgraph.URI != "" {
		d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password, log)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("failed to connect to Memgraph: %w", err)
		}
		a.Driver = d
		if err := d.BuildIndices(ctx); err != nil {
			log.Warn("Failed to build indices", "error", err)
		}
	}

	a.Ingestor = core.NewIngestor(a.Driver, llmClient, cfg, log)
	return a, nil
}

// Close releases the graph store connection and any client resources.
func (a *App) Close(ctx context.Context) {
	if a.Driver != nil {
		if err := a.Driver.Close(ctx); err != nil {
			a.Log.Warn("Failed to close graph driver", "error", err)
		}
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.Log.Warn("Failed to close resource", "error", err)
		}
	}
}
