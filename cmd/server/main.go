package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/suPer8Hu/estate-chat/internal/app"
	"github.com/suPer8Hu/estate-chat/internal/assistant"
	"github.com/suPer8Hu/estate-chat/internal/budget"
	"github.com/suPer8Hu/estate-chat/internal/chat"
	"github.com/suPer8Hu/estate-chat/internal/config"
	"github.com/suPer8Hu/estate-chat/internal/db"
	"github.com/suPer8Hu/estate-chat/internal/httpapi"
	"github.com/suPer8Hu/estate-chat/internal/httpapi/handlers"
	"github.com/suPer8Hu/estate-chat/internal/kv"
	"github.com/suPer8Hu/estate-chat/internal/models"
	"github.com/suPer8Hu/estate-chat/internal/platform/logger"
	"github.com/suPer8Hu/estate-chat/internal/property"
	"github.com/suPer8Hu/estate-chat/internal/store/rabbitmq"
	"github.com/suPer8Hu/estate-chat/internal/turn"
)

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
	if err := gdb.AutoMigrate(&models.User{}); err != nil {
		lg.Fatal("migrate users failed", "err", err)
	}
	if err := chat.AutoMigrate(gdb); err != nil {
		lg.Fatal("migrate chat failed", "err", err)
	}
	if err := budget.AutoMigrate(gdb); err != nil {
		lg.Fatal("migrate budget failed", "err", err)
	}
	jobs := property.NewJobRepo(gdb)
	if err := jobs.AutoMigrate(); err != nil {
		lg.Fatal("migrate jobs failed", "err", err)
	}

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
	sess, err := assistant.New(props, provider,
		assistant.WithMatches(cfg.AssistantMatches),
		assistant.WithLogger(lg),
	)
	if err != nil {
		lg.Fatal("assistant not configured", "provider", cfg.AIProvider, "err", err)
	}

	// overview jobs are optional; without a broker the endpoint reports 503
	var overviews *property.OverviewJobs
	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		lg.Warn("rabbitmq unavailable, overview jobs disabled", "err", err)
	} else {
		defer pub.Close()
		overviews = property.NewOverviewJobs(jobs, pub, property.NewEnricher(props, provider), lg)
	}

	tcfg := turn.Config{DailyCap: cfg.DailyTokenCap, Timeout: cfg.TurnTimeout}
	if cfg.AnonymousChatTTL > 0 {
		tcfg.ChatExpiry = kv.Fixed(cfg.AnonymousChatTTL)
	}

	h := handlers.NewHandler(handlers.Deps{
		DB:         gdb,
		Cfg:        cfg,
		Log:        lg,
		Properties: props,
		Overviews:  overviews,
		Turns:      turn.NewController(gdb, store, sess, tcfg, lg),
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           httpapi.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info("server started", "addr", cfg.ServerAddr, "provider", cfg.AIProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("listen failed", "err", err)
		}
	}()

	<-ctx.Done()
	lg.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("shutdown failed", "err", err)
	}
}
