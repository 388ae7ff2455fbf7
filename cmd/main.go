package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"audio-curator/internal/api"
	"audio-curator/internal/asr"
	"audio-curator/internal/audio"
	"audio-curator/internal/config"
	"audio-curator/internal/dataset"
	"audio-curator/internal/db"
	"audio-curator/internal/keys"
	"audio-curator/internal/label"
	"audio-curator/internal/observe"
	"audio-curator/internal/service"
)

const version = "0.3.0"

func main() {
	os.Exit(run())
}

func run() int {
	envFile := flag.String("env", ".env", "path to .env file")
	input := flag.String("input", "", "input root with one directory per dataset (overrides INPUT_DIR)")
	rejections := flag.String("rejections", "", "rejection root (overrides REJECTIONS_DIR)")
	review := flag.String("review", "", "manual review: ask, yes or no (overrides MANUAL_REVIEW)")
	flag.Parse()

	cfg, err := loadConfig(*envFile, *input, *rejections, *review)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}

	logger, closeLog, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log error: %v\n", err)
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mp, shutdownMetrics, err := observe.InitProvider(ctx, version)
	if err != nil {
		logger.Error("metrics provider failed", "error", err)
		return 1
	}
	defer shutdownMetrics(context.Background())

	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		logger.Error("metrics instruments failed", "error", err)
		return 1
	}

	transcriber, err := newTranscriber(ctx, cfg.ASR, logger)
	if err != nil {
		logger.Error("speech recognition unavailable", "backend", cfg.ASR.Backend, "error", err)
		return 1
	}
	defer transcriber.Close()
	logger.Info("speech recognition ready", "backend", cfg.ASR.Backend, "lang", cfg.ASR.Lang)

	runID := service.NewRunID()
	reporters := service.MultiReporter{service.NewLogReporter(logger)}
	var filterOpts []service.FilterOption
	var journal actionCounter

	if cfg.Database.Host != "" {
		database, err := db.New(ctx,
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.Name,
		)
		if err != nil {
			// the journal is optional; curation goes on without it
			logger.Warn("decision journal disabled", "host", cfg.Database.Host, "error", err)
		} else {
			defer database.Close()
			reporters = append(reporters, service.NewJournalReporter(database, logger))
			filterOpts = append(filterOpts, service.WithRejectionHistory(database))
			journal = database
			logger.Info("decision journal connected", "host", cfg.Database.Host, "db", cfg.Database.Name)
		}
	}

	relocator := dataset.NewRelocator(cfg.Data.RejectionsDir, logger)

	var matcherOpts []label.Option
	if len(cfg.Labels.Aliases) > 0 {
		matcherOpts = append(matcherOpts, label.WithAliases(cfg.Labels.Aliases))
	}
	matcherOpts = append(matcherOpts, label.WithPhonetic(cfg.Labels.Phonetic, 0))

	filterOpts = append(filterOpts,
		service.WithUnknownMarker(cfg.Data.UnknownMarker),
		service.WithMatcherOptions(matcherOpts...),
		service.WithFilterReporter(reporters),
		service.WithFilterMetrics(metrics),
		service.WithFilterRunID(runID),
	)
	filter := service.NewAutomaticFilter(transcriber, relocator, logger, filterOpts...)

	openReviewer := func(ctx context.Context) (*service.ManualReviewer, func() error, error) {
		player, err := audio.NewPlayer(logger)
		if err != nil {
			return nil, nil, fmt.Errorf("audio output: %w", err)
		}
		screen, err := keys.OpenTerminal()
		if err != nil {
			player.Close()
			return nil, nil, fmt.Errorf("terminal: %w", err)
		}
		reviewer := service.NewManualReviewer(player, keys.NewSource(screen, logger), relocator, logger,
			service.WithReviewPause(cfg.Review.Pause),
			service.WithReviewReporter(reporters),
			service.WithReviewMetrics(metrics),
			service.WithReviewRunID(runID),
		)
		return reviewer, func() error {
			screen.Fini()
			return player.Close()
		}, nil
	}

	orch := service.NewOrchestrator(cfg.Data.InputDir, filter, logger,
		service.WithRunID(runID),
		service.WithDatasetOptions(dataset.WithSortedSamples(cfg.Data.SortSamples)),
		service.WithManualReview(cfg.Review.Mode,
			service.PromptConfirmer(os.Stdin, os.Stdout, "Run the manual review pass?"),
			openReviewer),
	)

	if cfg.Server.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           api.NewRouter(orch, api.MetricsHandler(), logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server failed", "addr", cfg.Server.Addr, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		logger.Info("status server listening", "addr", cfg.Server.Addr)
	}

	logger.Info("curation started",
		"run_id", runID,
		"input", cfg.Data.InputDir,
		"rejections", relocator.Root(),
		"review", cfg.Review.Mode,
	)

	sum, err := orch.Run(ctx)
	logSummary(context.Background(), logger, sum, journal)
	if err != nil {
		logger.Error("curation failed", "run_id", runID, "error", err)
		return 1
	}
	return 0
}

// loadConfig reads the environment, applies the flags on top and validates
// the result once.
func loadConfig(envFile, input, rejections, review string) (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	applyFlags(cfg, input, rejections, review)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config, input, rejections, review string) {
	if input != "" {
		cfg.Data.InputDir = input
	}
	if rejections != "" {
		cfg.Data.RejectionsDir = rejections
	}
	if review != "" {
		cfg.Review.Mode = strings.ToLower(review)
	}
}

func newTranscriber(ctx context.Context, cfg config.ASRConfig, logger *slog.Logger) (asr.Transcriber, error) {
	switch cfg.Backend {
	case asr.BackendNative:
		return asr.NewNative(cfg.ModelPath, logger,
			asr.WithNativeLanguage(cfg.Lang),
			asr.WithVADThreshold(cfg.VADThreshold),
		)

	case asr.BackendLocal:
		client, err := asr.NewLocalClient(cfg.LocalURL, cfg.Lang, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		if err := client.Health(ctx); err != nil {
			logger.Warn("local whisper server not healthy yet", "url", cfg.LocalURL, "error", err)
		}
		return client, nil

	case asr.BackendOpenAI:
		opts := []asr.OpenAIOption{asr.WithOpenAITimeout(cfg.Timeout)}
		if cfg.OpenAIURL != "" {
			opts = append(opts, asr.WithOpenAIBaseURL(cfg.OpenAIURL))
		}
		return asr.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel, cfg.Lang, opts...)
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// newLogger builds the text logger. With LOG_FILE set, records go to the file
// as well, which keeps them readable while the review screen owns the
// terminal.
func newLogger(cfg config.LogConfig, stderr io.Writer) (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, nil, fmt.Errorf("LOG_LEVEL %q: %w", cfg.Level, err)
	}

	out := stderr
	closeFn := func() {}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(stderr, f)
		closeFn = func() { f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	return logger, closeFn, nil
}

// actionCounter reads per-action totals of a run back from the journal.
// *db.DB implements it.
type actionCounter interface {
	CountByAction(ctx context.Context, runID string) (map[string]int64, error)
}

var _ actionCounter = (*db.DB)(nil)

// logSummary logs the in-memory pass totals and, with a journal, the totals
// the journal recorded for the same run.
func logSummary(ctx context.Context, logger *slog.Logger, sum service.Summary, journal actionCounter) {
	for _, p := range sum.Passes {
		logger.Info("pass summary",
			"pass", p.Pass,
			"dataset", p.Dataset,
			"kept", p.Kept,
			"discarded", p.Discarded,
			"skipped", p.Skipped,
			"remaining", p.Remaining,
		)
	}
	totals := sum.Totals()
	for _, name := range service.PassNames(totals) {
		t := totals[name]
		logger.Info("run total",
			"run_id", sum.RunID,
			"pass", name,
			"kept", t.Kept,
			"discarded", t.Discarded,
			"skipped", t.Skipped,
		)
	}

	if journal == nil {
		return
	}
	counts, err := journal.CountByAction(ctx, sum.RunID)
	if err != nil {
		logger.Warn("journal totals unavailable", "run_id", sum.RunID, "error", err)
		return
	}
	logger.Info("journal total",
		"run_id", sum.RunID,
		"kept", counts[service.ActionKeep],
		"discarded", counts[service.ActionDiscard],
		"skipped", counts[service.ActionSkip],
	)
}
