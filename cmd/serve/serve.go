// Package serve starts the HTTP service
package serve

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/salmenktata/quelyosSuite-sub025/cmd/root"
	"github.com/salmenktata/quelyosSuite-sub025/internal/anomaly"
	"github.com/salmenktata/quelyosSuite-sub025/internal/forecast"
	"github.com/salmenktata/quelyosSuite-sub025/internal/importsession"
	"github.com/salmenktata/quelyosSuite-sub025/internal/ledger"
	"github.com/salmenktata/quelyosSuite-sub025/internal/logging"
	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
	"github.com/salmenktata/quelyosSuite-sub025/internal/reconcile"
	"github.com/salmenktata/quelyosSuite-sub025/internal/server"
	"github.com/salmenktata/quelyosSuite-sub025/internal/store"
)

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the statement import and forecast HTTP service",
	Long: `Serve starts the HTTP service exposing the bank-statement import wizard
and the cash-flow forecast endpoints.`,
	Run: serveFunc,
}

func serveFunc(cmd *cobra.Command, args []string) {
	cfg := root.Cfg
	log := root.Log

	memLedger := ledger.NewMemoryLedger()
	if cfg.Seed.File != "" {
		if err := store.LoadSeed(cfg.Seed.File, memLedger, log); err != nil {
			log.WithError(err).Fatal("Failed to load seed file",
				logging.F(logging.FieldFile, cfg.Seed.File))
		}
	}

	reconcileEngine := reconcile.NewEngine(memLedger, reconcile.Options{
		MatchWindowDays:     cfg.Reconcile.MatchWindowDays,
		MatchEpsilon:        decimal.NewFromFloat(cfg.Reconcile.MatchEpsilon),
		ConfidenceThreshold: cfg.Reconcile.ConfidenceThreshold,
	}, log)

	forecastEngine := forecast.NewEngine(memLedger, forecast.Options{
		MinimumHistoryDays: cfg.Forecast.MinimumHistoryDays,
		SeasonalityMinDays: cfg.Forecast.SeasonalityMinDays,
		ScenarioPct:        cfg.Forecast.ScenarioPct,
		RiskBuffer:         cfg.Forecast.RiskBuffer,
		BacktestMinDays:    28,
	}, time.Duration(cfg.Forecast.CacheTTLMinutes)*time.Minute, log)

	detector := anomaly.NewDetector(memLedger, anomaly.Options{
		TrailingWindowDays: cfg.Anomaly.TrailingWindowDays,
		MinSamples:         cfg.Anomaly.MinSamples,
	}, log)
	worker := anomaly.NewWorker(detector, cfg.Anomaly.QueueSize, log)

	sessions := importsession.NewStore(time.Duration(cfg.Import.SessionTTLHours)*time.Hour, log)
	coordinator := importsession.NewCoordinator(sessions, memLedger, reconcileEngine, log)
	coordinator.OnCommit(func(accountID string, txs []models.NormalizedTransaction) {
		forecastEngine.Invalidate(accountID)
		worker.Publish(accountID, txs)
	})

	imports := server.NewImportHandler(coordinator, cfg.Server.MaxUploadBytes, log)
	forecasts := server.NewForecastHandler(forecastEngine, worker,
		cfg.Forecast.DefaultHistoryDays, cfg.Forecast.DefaultHorizonDays, cfg.Forecast.MaxHorizonDays, log)

	srv := server.New(cfg.Server.Addr, imports, forecasts,
		time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker.Start(ctx)
	sessions.StartReaper(ctx)

	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Fatal("HTTP server failed")
	}
	log.Info("Server stopped")
}
