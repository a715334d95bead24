package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/suPer8Hu/estate-chat/internal/app"
	"github.com/suPer8Hu/estate-chat/internal/config"
	"github.com/suPer8Hu/estate-chat/internal/db"
	"github.com/suPer8Hu/estate-chat/internal/platform/logger"
	"github.com/suPer8Hu/estate-chat/internal/property"
	"github.com/suPer8Hu/estate-chat/internal/store/rabbitmq"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Open(cfg.DBDSN)
	if err != nil {
		lg.Fatal("db open failed", "err", err)
	}
	jobs := property.NewJobRepo(gdb)
	if err := jobs.AutoMigrate(); err != nil {
		lg.Fatal("migrate jobs failed", "err", err)
	}

	// shares the server's search cache so a patched overview invalidates it
	store, closeKV := app.KV(ctx, cfg, lg)
	defer closeKV()

	props, closeProps, err := app.Properties(ctx, cfg, gdb, store, lg)
	if err != nil {
		lg.Fatal("property store failed", "err", err)
	}
	defer closeProps()

	provider, err := app.Provider(ctx, cfg)
	if err != nil {
		lg.Fatal("ai provider failed", "provider", cfg.AIProvider, "err", err)
	}

	// nil publisher: the worker only runs jobs, it never enqueues
	overviews := property.NewOverviewJobs(jobs, nil, property.NewEnricher(props, provider), lg)

	//  strict concurrency control
	concurrency := workerConcurrency()
	consumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, cfg.RabbitQueue, concurrency, lg)
	if err != nil {
		lg.Fatal("rabbit consumer failed", "err", err)
	}
	defer consumer.Close()

	lg.Info("worker started", "queue", cfg.RabbitQueue, "concurrency", concurrency)
	if err := consumer.Run(ctx, overviews.Handle); err != nil {
		lg.Error("worker stopped", "err", err)
	}
}
