package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadp "microloan-ledger/internal/adapter/http"
	"microloan-ledger/internal/app"
	"microloan-ledger/internal/config"
	"microloan-ledger/internal/infrastructure/cache"
	"microloan-ledger/internal/infrastructure/metrics"
)

func main() {
	configPath := flag.String("config", os.Getenv("LEDGER_CONFIG"), "TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}

	deps := httpadp.Deps{
		Loans:          a.Loans,
		Funding:        a.Funding,
		Approval:       a.Approval,
		Stats:          a.Stats,
		Users:          a.Users,
		IdempotencyTTL: cfg.IdempotencyTTL(),
	}
	if cfg.RedisAddr != "" {
		rdb, err := cache.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisDB, 0)
		if err != nil {
			log.Fatal(err)
		}
		defer rdb.Close()
		deps.Redis = rdb
	} else {
		log.Printf("api: REDIS_ADDR unset, idempotency disabled")
	}
	if cfg.MetricsEnabled {
		deps.Metrics = metrics.Handler()
	}
	if a.Mirror != nil {
		deps.Events = a.Mirror
	}

	e := httpadp.NewServer(deps)
	go func() {
		addr := ":" + cfg.AppPort
		log.Printf("listening on %s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("api: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("api: shutdown: %v", err)
	}
	if err := a.Close(); err != nil {
		log.Printf("api: close: %v", err)
	}
}
