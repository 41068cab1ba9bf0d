package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rossfreedman/rally-sub003/internal/app"
	"github.com/rossfreedman/rally-sub003/internal/config"
	"github.com/rossfreedman/rally-sub003/internal/observability"
	"github.com/rossfreedman/rally-sub003/internal/platform/logging"
	"github.com/rossfreedman/rally-sub003/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownUptrace, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownUptrace(shutdownCtx); err != nil {
			logger.Warn("shutdown uptrace", "error", err)
		}
	}()

	stopPyroscope, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := stopPyroscope(); err != nil {
			logger.Warn("stop pyroscope", "error", err)
		}
	}()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}
	defer func() { _ = a.Close() }()

	command := "serve"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "serve":
		err = runServe(ctx, a)
	case "sync":
		err = runSync(ctx, a, args)
	case "repair-duplicates":
		err = runRepairDuplicates(ctx, a, args)
	case "backfill-tracking":
		err = runBackfillTracking(ctx, a, args)
	default:
		fmt.Fprintf(os.Stderr, "usage: reconciler <serve|sync|repair-duplicates|backfill-tracking> [flags]\n")
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context, a *app.App) error {
	srv, err := a.HTTPServer()
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		a.Logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	a.Logger.Info("http server stopped")
	return nil
}

func runSync(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	leagueID := fs.String("league", "", "league id to sync; empty syncs every league")
	data := fs.String("data", "", "comma-separated data kinds: players,matches,tracking; empty runs all")
	workers := fs.Int("workers", 0, "max concurrent league tasks; 0 uses SYNC_MAX_WORKERS")
	dryRun := fs.Bool("dry-run", false, "detect changes without applying them")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if a.Reconcile == nil {
		return fmt.Errorf("sync requires LEAGUE_FEED_ENABLED=true")
	}

	maxWorkers := *workers
	if maxWorkers <= 0 {
		maxWorkers = a.Config.SyncMaxWorkers
	}

	result, err := a.Reconcile.Run(ctx, usecase.RunInput{
		LeagueID:   *leagueID,
		SyncData:   splitCSV(*data),
		MaxWorkers: maxWorkers,
		DryRun:     *dryRun,
	})
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runRepairDuplicates(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("repair-duplicates", flag.ExitOnError)
	leagueID := fs.String("league", "", "league id to repair (required)")
	dryRun := fs.Bool("dry-run", false, "report merges without applying them")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*leagueID) == "" {
		return fmt.Errorf("-league is required")
	}

	report, err := a.Identity.RepairDuplicates(ctx, *leagueID, *dryRun)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func runBackfillTracking(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("backfill-tracking", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "report assignments without applying them")
	if err := fs.Parse(args); err != nil {
		return err
	}

	report, err := a.Tracking.BackfillTeamScope(ctx, *dryRun)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func printJSON(v any) error {
	out, err := sonic.ConfigDefault.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
