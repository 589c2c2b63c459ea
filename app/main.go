package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/lysyi3m/complaint-comb/app/analysis"
	"github.com/lysyi3m/complaint-comb/app/api"
	"github.com/lysyi3m/complaint-comb/app/cache"
	"github.com/lysyi3m/complaint-comb/app/cfg"
	"github.com/lysyi3m/complaint-comb/app/chart"
	"github.com/lysyi3m/complaint-comb/app/classify"
	"github.com/lysyi3m/complaint-comb/app/command"
	"github.com/lysyi3m/complaint-comb/app/crawler"
	"github.com/lysyi3m/complaint-comb/app/database"
	"github.com/lysyi3m/complaint-comb/app/llm"
	"github.com/lysyi3m/complaint-comb/app/refresh"
	"github.com/lysyi3m/complaint-comb/app/tasks"
	"github.com/lysyi3m/complaint-comb/app/taxonomy"
)

func main() {
	// Load configuration from environment variables and command-line flags
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	// stdout is reserved for crawl markers
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	db := openDatabase(appCfg.DBPath)
	defer db.Close()

	complaintRepo := database.NewComplaintRepository(db)

	switch appCfg.Command {
	case cfg.CommandCrawl:
		if err := runCrawl(appCfg, complaintRepo); err != nil {
			slog.Error("Crawl failed", "error", err)
			db.Close()
			os.Exit(1)
		}
	default:
		serve(appCfg, db, complaintRepo)
	}
}

func openDatabase(path string) *database.DB {
	slog.Debug("Opening database", "path", path)
	db, err := database.Open(path)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		db.Close()
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Debug("Database migrations applied", "version", version, "dirty", dirty)

	return db
}

func newCrawler(appCfg *cfg.Cfg) (*crawler.Crawler, error) {
	fetcher := crawler.NewHTTPFetcher(nil, appCfg.UserAgent, appCfg.RequestDelay)
	return crawler.New(fetcher, appCfg.SourceURL)
}

// runCrawl executes the crawl sub-command and prints its progress markers.
func runCrawl(appCfg *cfg.Cfg, store database.ComplaintStore) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := newCrawler(appCfg)
	if err != nil {
		return err
	}

	opts := appCfg.Crawl

	var known crawler.RefSet
	if opts.RefsFile != "" {
		known, err = refresh.ReadRefsFile(opts.RefsFile)
	} else {
		var urls []string
		urls, err = store.AllRefURLs(ctx)
		known = crawler.NewRefSet(urls)
	}
	if err != nil {
		return fmt.Errorf("failed to load known references: %w", err)
	}

	crawlOpts := crawler.Options{
		Incremental: opts.Incremental,
		StartPage:   opts.StartPage,
		TargetCount: opts.Count,
		Known:       known,
		Concurrency: appCfg.CrawlConcurrency,
		MaxPages:    appCfg.MaxPages,
	}
	if opts.Start != nil && opts.End != nil {
		crawlOpts.DateRange = &crawler.DateRange{Start: *opts.Start, End: *opts.End}
	}

	sink := refresh.NewStoreSink(store)
	summary, err := c.Run(ctx, crawlOpts, sink)

	// Markers are printed even for a failed run so the parent sees partial progress
	if writeErr := refresh.WriteMarkers(os.Stdout, summary, sink.Inserted); writeErr != nil {
		return errors.Join(err, fmt.Errorf("failed to write progress markers: %w", writeErr))
	}

	return err
}

func newRunner(appCfg *cfg.Cfg, store database.ComplaintStore) (refresh.Runner, error) {
	if appCfg.CrawlMode == cfg.CrawlModeSubprocess {
		executable, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate executable: %w", err)
		}
		return refresh.NewProcessRunner(executable,
			"--db-path", appCfg.DBPath,
			"--source-url", appCfg.SourceURL,
			"--user-agent", appCfg.UserAgent,
			"--request-delay-ms", strconv.FormatInt(appCfg.RequestDelay.Milliseconds(), 10),
			"--crawl-concurrency", strconv.Itoa(appCfg.CrawlConcurrency),
			"--max-pages", strconv.Itoa(appCfg.MaxPages),
			"--timezone", appCfg.Timezone,
		), nil
	}

	c, err := newCrawler(appCfg)
	if err != nil {
		return nil, err
	}
	return refresh.NewInProcessRunner(c, store, appCfg.CrawlConcurrency, appCfg.MaxPages), nil
}

func newResultStore(appCfg *cfg.Cfg) (cache.Store, error) {
	if appCfg.RedisAddr == "" {
		slog.Info("Using in-memory task result store")
		return cache.NewMemoryStore(time.Minute), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := cache.NewRedisStore(ctx, appCfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	slog.Info("Using Redis task result store", "addr", appCfg.RedisAddr)
	return store, nil
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func serve(appCfg *cfg.Cfg, db *database.DB, complaintRepo *database.ComplaintRepository) {
	slog.Info("Starting complaint-comb server", "version", appCfg.Version)

	assignmentRepo := database.NewAssignmentRepository(db)

	tx, err := taxonomy.Load(appCfg.TaxonomyFile)
	if err != nil {
		fatal("Failed to load taxonomy", err)
	}

	generator, err := llm.New(llm.Options{
		Provider:        appCfg.LLMProvider,
		Model:           appCfg.LLMModel,
		AnthropicAPIKey: appCfg.AnthropicAPIKey,
		OpenAIAPIKey:    appCfg.OpenAIAPIKey,
		BaseURL:         appCfg.LLMBaseURL,
	})
	if err != nil {
		fatal("Failed to configure LLM client", err)
	}

	runner, err := newRunner(appCfg, complaintRepo)
	if err != nil {
		fatal("Failed to configure crawler", err)
	}

	refresher := refresh.NewRefresher(complaintRepo, runner, appCfg.CrawlTimeout)

	orchestrator := analysis.NewOrchestrator(
		command.NewInterpreter(generator),
		refresher,
		classify.NewEngine(generator, tx),
		chart.NewRenderer(appCfg.ChartDir),
		complaintRepo,
		assignmentRepo,
	)

	results, err := newResultStore(appCfg)
	if err != nil {
		fatal("Failed to connect to result store", err)
	}
	defer results.Close()

	// Initialize and start scheduler
	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "refresh_interval", appCfg.RefreshInterval)
	scheduler := tasks.NewScheduler(refresher, appCfg.WorkerCount, appCfg.RefreshInterval, tasks.DefaultTaskTimeout)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(complaintRepo, results, scheduler, orchestrator, appCfg.TaskTTL, appCfg.Version)
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
		slog.Info("HTTP server listening",
			"port", appCfg.Port,
			"crawl_mode", appCfg.CrawlMode,
			"llm_provider", appCfg.LLMProvider,
			"api_auth", appCfg.APIAccessKey != "")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler and stores are closed via defer
	slog.Info("complaint-comb shutdown complete")
}
