package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/IA683/AstraGPT/internal/config"
	"github.com/IA683/AstraGPT/internal/infra/auditmem"
	"github.com/IA683/AstraGPT/internal/infra/completion"
	"github.com/IA683/AstraGPT/internal/infra/db"
	httpinfra "github.com/IA683/AstraGPT/internal/infra/http"
	"github.com/IA683/AstraGPT/internal/infra/policy"
	"github.com/IA683/AstraGPT/internal/infra/ratelimit"
	"github.com/IA683/AstraGPT/internal/usecase"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	ctx := context.Background()

	store, err := db.NewStore(cfg)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	var events usecase.AccessEventRepository
	if store.DB != nil {
		events = db.NewAccessEventRepository(store.DB)
	} else {
		events = auditmem.New(cfg.AuditMaxEvents)
	}

	var engine *policy.Engine
	if cfg.PolicyPath != "" {
		engine, err = policy.NewEngineFromPath(ctx, cfg.PolicyPath)
	} else {
		engine, err = policy.NewEngine(ctx)
	}
	if err != nil {
		log.Fatalf("failed to init policy engine: %v", err)
	}
	log.Printf("policy bundle %s", engine.BundleHash())

	var limiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{MaxKeys: cfg.RateLimitMaxKeys})
	if cfg.RedisAddr != "" {
		limiter, err = ratelimit.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, nil)
		if err != nil {
			log.Fatalf("failed to init redis limiter: %v", err)
		}
	}

	audit := usecase.NewAuditEmitter(events, nil)
	gate := &usecase.AccessGate{
		Validator: usecase.NewKeyValidator(nil),
		Policy:    engine,
		Audit:     audit,
	}

	srv := httpinfra.NewServer(cfg, httpinfra.ServerDeps{
		Gate:        gate,
		Completer:   completion.New(cfg.CompletionBaseURL, cfg.CompletionAPIKey),
		Audit:       audit,
		RateLimiter: limiter,
	})
	if err := srv.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
