package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/civicwatch/nola-news-watch/internal/archive"
	"github.com/civicwatch/nola-news-watch/internal/config"
	"github.com/civicwatch/nola-news-watch/internal/extract"
	"github.com/civicwatch/nola-news-watch/internal/fetch"
	"github.com/civicwatch/nola-news-watch/internal/logger"
	"github.com/civicwatch/nola-news-watch/internal/monitor"
	"github.com/civicwatch/nola-news-watch/internal/notify"
	"github.com/civicwatch/nola-news-watch/internal/store"
)

func main() {
	log := logger.New("monitor")
	cfg, err := config.LoadMonitor()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	st, err := store.New(cfg.DataDir, log)
	if err != nil {
		log.Error("init store", slog.Any("err", err))
		os.Exit(1)
	}

	gateway := fetch.New(cfg.Relays, cfg.FetchTimeout, log)
	extractor := extract.New(log)

	var notifier notify.Notifier = notify.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier := notify.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
		log.Info("kafka alerts enabled", slog.String("topic", cfg.KafkaTopic))
	}
	seen := notify.NewSeenCache(cfg.AlertSuppressSize, cfg.AlertSuppressTTL)
	dispatcher := notify.NewDispatcher(notifier, seen, log)

	// Archive trouble must never block monitoring; run without it on error.
	var archiveClient *archive.Client
	var archiver monitor.Archiver
	if cfg.Archive.Enabled {
		archiveClient, err = archive.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
		if err != nil {
			log.Warn("archive unavailable, continuing without it", slog.Any("err", err))
			archiveClient = nil
		} else {
			archiver = archiveClient
			log.Info("archive enabled", slog.String("index", cfg.ElasticsearchIndex))
		}
	}

	mon := monitor.New(cfg, st, gateway, extractor, dispatcher, archiver, log)

	sched := monitor.NewScheduler(func(ctx context.Context) {
		cycleCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		if _, err := mon.RunCycle(cycleCtx); err != nil && !errors.Is(err, monitor.ErrCycleInFlight) {
			log.Warn("scheduled check failed", slog.Any("err", err))
		}
	}, log)
	defer sched.Stop()

	auto := st.LoadAutomation(int(cfg.DefaultInterval.Minutes()))
	if auto.Enabled {
		sched.Start(time.Duration(auto.IntervalMinutes) * time.Minute)
	}

	srv := &server{
		log:     log,
		cfg:     cfg,
		store:   st,
		monitor: mon,
		sched:   sched,
		archive: archiveClient,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)
	r.Get("/status", srv.handleStatus)
	r.Post("/check", srv.handleCheck)
	r.Get("/news", srv.handleNews)
	r.Get("/news/previous", srv.handlePreviousNews)
	r.Get("/history", srv.handleHistory)
	r.Get("/config", srv.handleGetConfig)
	r.Put("/config/keywords", srv.handlePutKeywords)
	r.Put("/config/automation", srv.handlePutAutomation)
	r.Get("/archive/search", srv.handleArchiveSearch)
	r.Delete("/data", srv.handleClearData)

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      3 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Info("monitor api starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}
