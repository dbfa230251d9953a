// cmd/attendance-notifier/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/tamzrod/attendance-notifier/internal/clock"
	"github.com/tamzrod/attendance-notifier/internal/config"
	"github.com/tamzrod/attendance-notifier/internal/httpapi"
	"github.com/tamzrod/attendance-notifier/internal/poller"
	"github.com/tamzrod/attendance-notifier/internal/status"
	"github.com/tamzrod/attendance-notifier/internal/writer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		cfgPath   string
		envFile   string
		logLevel  string
		logFormat string
		once      bool
	)

	flagSet := pflag.NewFlagSet("attendance-notifier", pflag.ContinueOnError)
	flagSet.StringVarP(&cfgPath, "config", "c", "", "path to config.yaml (defaults + environment when empty)")
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	flagSet.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	flagSet.StringVar(&logFormat, "log-format", "text", "text or json")
	flagSet.BoolVar(&once, "once", false, "run a single poll cycle and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger, err := newLogger(logLevel, logFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// --------------------
	// Load + validate config
	// --------------------

	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("env file %s: %w", envFile, err)
		}
		logger.Debug("no env file", "path", envFile)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Build pipeline
	// --------------------

	built, err := poller.Build(ctx, cfg, clock.Real(), logger)
	if err != nil {
		return fmt.Errorf("poller build failed: %w", err)
	}
	defer func() {
		if err := built.Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}()

	tracker := status.NewTracker()

	if once {
		res := built.Poller.PollOnce(ctx)
		tracker.Observe(res)
		if res.Err != nil {
			return res.Err
		}
		logger.Info("single cycle done",
			"skipped", res.Skipped,
			"reason", res.SkipReason,
			"events", len(res.Events),
		)
		return nil
	}

	statusWriter, closeStatus, statusEnabled, err := writer.BuildStatusWriter(cfg.StatusExport)
	if err != nil {
		return fmt.Errorf("status writer failed: %w", err)
	}
	defer closeStatus()

	// ---- channel between poller and status owner ----
	out := make(chan poller.PollResult)
	done := make(chan struct{})

	go func() {
		defer close(done)
		superviseStatus(ctx, out, tracker, statusWriter, statusEnabled, logger)
	}()

	// ---- http status api ----
	httpErr := make(chan error, 1)
	if cfg.HTTP.Listen != "" {
		srv := httpapi.New(cfg.HTTP.Listen, httpapi.Deps{
			Poller:    built.Poller,
			Sessions:  built.Sessions,
			Status:    tracker,
			Snapshots: built.Store,
			OnResult: func(res poller.PollResult) {
				select {
				case out <- res:
				case <-ctx.Done():
				}
			},
			Logger: logger,
		})
		go func() { httpErr <- srv.Serve(ctx) }()
	} else {
		close(httpErr)
	}

	logger.Info("attendance notifier started",
		"interval", cfg.Poll.Interval,
		"timezone", cfg.Schedule.Timezone,
		"window", cfg.Schedule.Start+"-"+cfg.Schedule.End,
		"weekdays", strings.Join(cfg.Schedule.Weekdays, ","),
		"status_export", statusEnabled,
	)

	// poller producer; returns on shutdown after any in-flight cycle
	built.Poller.Run(ctx, out)
	<-done

	if err := <-httpErr; err != nil {
		return fmt.Errorf("http api: %w", err)
	}
	logger.Info("attendance notifier stopped")
	return nil
}

// superviseStatus owns the status snapshot: it folds poll results in,
// ticks seconds-in-error at 1 Hz and delivers changes to the writer.
func superviseStatus(
	ctx context.Context,
	in <-chan poller.PollResult,
	tracker *status.Tracker,
	sw writer.StatusWriter,
	enabled bool,
	logger *slog.Logger,
) {
	write := func(what string) {
		if !enabled {
			return
		}
		if err := sw.WriteStatus(tracker.Snapshot()); err != nil {
			logger.Warn("status write failed", "on", what, "error", err)
		}
	}

	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	// Full block write on start (identity re-assert) if enabled.
	write("start")

	for {
		select {
		case <-ctx.Done():
			return

		case res := <-in:
			if tracker.Observe(res) {
				write("result")
			}

		case <-secTicker.C:
			if tracker.Tick() {
				write("tick")
			}
		}
	}
}

func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: want text or json", format)
	}
}
