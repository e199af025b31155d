// Command nlsqld serves the natural-language-to-SQL query API: one process,
// one connection pool, one LLM client, reused across every request.
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"nlsqld/config"
	"nlsqld/coordinator"
	"nlsqld/guard"
	"nlsqld/httpapi"
	"nlsqld/llmclient"
	"nlsqld/logger"
	"nlsqld/pgpool"
	"nlsqld/plancache"
	"nlsqld/planner"
	"nlsqld/schema"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg := logger.New()
	if err := lg.Init(cfg.LogDir); err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgpool.Open(ctx, pgpool.Config{
		DatabaseURL:      cfg.DatabaseURL,
		MaxConns:         cfg.PoolMaxConns,
		MaxConnIdleTime:  cfg.PoolIdleTimeout,
		StatementTimeout: cfg.QueryTimeout,
	})
	if err != nil {
		log.Fatalf("connection pool: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}

	reg, err := schema.LoadFile(ctx, cfg.SchemaPath, pool)
	if err != nil {
		log.Fatalf("schema: %v", err)
	}
	lg.Logf("loaded schema declaration from %s", cfg.SchemaPath)

	chat := llmclient.New(cfg.LLMProvider, cfg.APIKey, cfg.BaseURL, cfg.ModelName, llmclient.DefaultTimeout)
	pl := planner.New(chat, reg.Doc())

	cache, err := plancache.Open(cfg.PlanCachePath)
	if err != nil {
		log.Fatalf("plan cache: %v", err)
	}
	defer cache.Close()

	app := coordinator.New(pool, reg, chat, pl, lg, cache, guard.DefaultMaxLimit)

	srv := httpapi.New(app, httpapi.Config{
		ServiceAPIKey:     cfg.ServiceAPIKey,
		RequireServiceKey: cfg.RequireServiceKey,
		RequestDeadline:   cfg.RequestDeadline,
	}, lg)

	lg.Logf("listening on %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, srv); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server: %v", err)
	}
}
