package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"media-renditions/internal/database"
	"media-renditions/internal/handlers"
	"media-renditions/internal/imagegen"
	"media-renditions/internal/jobs"
	"media-renditions/internal/lifecycle"
	"media-renditions/internal/logging"
	"media-renditions/internal/middleware"
	"media-renditions/internal/profile"
	"media-renditions/internal/startup"
	"media-renditions/internal/transcoder"
)

func main() {
	startTime := time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Keep the connection gauge fresh
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				db.UpdateDBMetrics()
			}
		}
	}()

	// Optional libvips decode path for formats the pure-Go decoders
	// cannot handle
	if config.VipsEnabled {
		if err := imagegen.InitVips(); err != nil {
			logging.Warn("libvips unavailable, falling back to pure-Go decoding: %v", err)
		}
		defer imagegen.ShutdownVips()
	}

	// Initialize transcoder
	startup.LogTranscoderInit(config.FFmpegPath)
	trans := transcoder.New(config.FFmpegPath, config.FFprobePath, config.FLVToolPath)

	// Profile cache and cache lifecycle manager
	cache := profile.NewCache(db)
	manager := lifecycle.NewManager(db, cache)

	// Start the conversion worker
	startup.LogWorkerInit(config.SweepInterval, config.JobRetention)
	worker := jobs.NewWorker(db, cache, trans)
	worker.Interval = config.SweepInterval
	worker.Retention = config.JobRetention
	worker.PosterOffset = config.PosterOffset
	worker.DefaultPosterPath = config.DefaultPosterPath
	go worker.Run(ctx)

	// Operational HTTP API
	h := handlers.New(db, cache, manager)
	handler := middleware.Logger(middleware.Metrics(h.Router()))

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Metrics on a separate listener so scrapes bypass the API stack
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:    ":" + config.MetricsPort,
			Handler: metricsMux,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(srv, metricsSrv, cancel)

	startup.LogServerStarted(config.Port, time.Since(startTime))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func handleShutdown(srv, metricsSrv *http.Server, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logging.Info("Received %s, shutting down", sig)

	// Stop the worker first so no job is half-processed when the
	// process exits; an interrupted job is unlocked on next startup
	// regardless.
	cancel()

	ctx, cancelTimeout := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelTimeout()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
	}
	logging.Info("Shutdown complete")
}
