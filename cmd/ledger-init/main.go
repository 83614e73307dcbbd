// Command ledger-init creates the full year's revenue and expense
// worksheets for both branches, so a fresh spreadsheet is ready before
// the first entry is ever committed.
package main

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"megafin/internal/backend"
	"megafin/internal/cache"
	"megafin/internal/cli"
	"megafin/internal/core"
	"megafin/internal/service"
	"megafin/internal/session"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := backend.NewFactory(logger).CreateStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize row store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() { _ = result.Cleanup() }()
	}

	snapshots := cache.New[[][]string](256, cfg.CacheTTL)
	ledgers := service.NewLedgerService(result.Store, snapshots, session.Guard{}, nil)

	g, gctx := errgroup.WithContext(ctx)
	for _, branch := range []core.Branch{core.BranchMenzelBourguiba, core.BranchBizerte} {
		g.Go(func() error {
			return ledgers.EnsureYear(gctx, branch)
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("Ledger initialization failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Ledger worksheets ready",
		"branches", 2,
		"sheets", 2*2*len(core.MonthNames))
}
