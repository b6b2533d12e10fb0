package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/feed-posse/app/api"
	"github.com/lysyi3m/feed-posse/app/cache"
	"github.com/lysyi3m/feed-posse/app/cfg"
	"github.com/lysyi3m/feed-posse/app/database"
	"github.com/lysyi3m/feed-posse/app/feed"
	"github.com/lysyi3m/feed-posse/app/metrics"
	"github.com/lysyi3m/feed-posse/app/posse"
	"github.com/lysyi3m/feed-posse/app/publisher"
	"github.com/lysyi3m/feed-posse/app/tasks"
)

func main() {
	appCfg, err := cfg.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	setupLogger(appCfg.Debug)

	if err := run(appCfg); err != nil {
		slog.Error("Run failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting feed-posse",
		"version", appCfg.Version,
		"feed", appCfg.FeedURL,
		"instance", appCfg.MastodonInstance,
		"instance_type", appCfg.InstanceType,
		"strategy", string(appCfg.Strategy),
		"test_mode", appCfg.TestMode)

	store := cache.NewStore(appCfg.CacheDir, appCfg.CacheFile, appCfg.CacheTimestampFile)
	tracker := tasks.NewTracker()
	m := metrics.New()

	var history database.PostRepository
	if appCfg.HistoryDB != "" {
		db, err := database.NewConnection(appCfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()

		version, dirty, err := database.RunMigrations(db)
		if err != nil {
			return fmt.Errorf("failed to migrate history database: %w", err)
		}
		slog.Debug("History database ready", "path", appCfg.HistoryDB, "version", version, "dirty", dirty)

		history = database.NewPostRepository(db)
	}

	pub := publisher.NewPublisher(
		publisher.NewMastodonClient(appCfg.MastodonInstance, appCfg.MastodonToken),
		publisher.NewDownloader(appCfg.UserAgent),
		publisher.NewComposer(publisher.ComposerOptions{
			Visibility:      appCfg.Visibility,
			InstanceType:    appCfg.InstanceType,
			DefaultLanguage: appCfg.DefaultLanguage,
			TestMode:        appCfg.TestMode,
		}),
		appCfg.MastodonInstance,
		appCfg.MaxParallelUploads,
	)

	p, err := tasks.NewPosse(tasks.PosseConfig{
		FeedURL:        appCfg.FeedURL,
		IgnoreFirstRun: appCfg.IgnoreFirstRun,
		GlobalDelay:    appCfg.GlobalDelay,
		Policy: posse.Policy{
			PostsPerItem:            appCfg.PostsPerItem,
			MinDelayBetweenSameItem: appCfg.SameItemDelay,
		},
		Strategy: appCfg.Strategy,
	}, tasks.PosseDeps{
		Store:     store,
		Source:    feed.NewFetcher(&http.Client{}, appCfg.UserAgent),
		Publisher: pub,
		History:   history,
		Metrics:   m,
		Tracker:   tracker,
	})
	if err != nil {
		return err
	}

	if !appCfg.Serve {
		return runOnce(p)
	}

	return serve(appCfg, p, store, tracker, history, m)
}

func runOnce(p *tasks.Posse) error {
	result, err := p.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Println(result.Message())

	if result.Status == tasks.StatusPosted {
		if err := writeGitHubOutput(result.PostURL); err != nil {
			slog.Warn("Failed to write GitHub output", "error", err)
		}
	}

	return nil
}

// writeGitHubOutput appends the post URL as a step output when running in
// GitHub Actions.
func writeGitHubOutput(postURL string) error {
	path := os.Getenv("GITHUB_OUTPUT")
	if path == "" {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "tootUrl=%s\n", postURL); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func serve(appCfg *cfg.Cfg, p *tasks.Posse, store *cache.Store, tracker *tasks.Tracker,
	history database.PostRepository, m *metrics.Metrics) error {
	slog.Info("Starting background scheduler", "interval", appCfg.CheckInterval)
	scheduler := tasks.NewScheduler(func() tasks.TaskInterface {
		return tasks.NewPosseTask(p)
	}, appCfg.CheckInterval)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(store, tracker, history, scheduler, m, appCfg.Version)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case serveErr = <-serverErrChan:
		slog.Error("Server error", "error", serveErr)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	return serveErr
}
