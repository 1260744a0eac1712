package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/mamadbah2/warehouse/internal/config"
	"github.com/mamadbah2/warehouse/internal/repository/jsonfile"
	"github.com/mamadbah2/warehouse/internal/repository/mongodb"
	"github.com/mamadbah2/warehouse/internal/repository/sheets"
	"github.com/mamadbah2/warehouse/internal/scheduler"
	"github.com/mamadbah2/warehouse/internal/server/handlers"
	"github.com/mamadbah2/warehouse/internal/server/router"
	"github.com/mamadbah2/warehouse/internal/service/ledger"
	reportingsvc "github.com/mamadbah2/warehouse/internal/service/reporting"
	whatsappclient "github.com/mamadbah2/warehouse/pkg/clients/whatsapp"
	"github.com/mamadbah2/warehouse/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	fileStore, err := jsonfile.NewStore(cfg.Storage, baseLogger.Named("repo.jsonfile"))
	if err != nil {
		baseLogger.Fatal("failed to init file store", zap.Error(err))
	}

	var ledgerOpts []ledger.Option
	var reportingOpts []reportingsvc.Option

	if cfg.MongoDB.Enabled() {
		connectCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		mongoRepo, err := mongodb.NewMongoDBRepository(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		cancel()
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		ledgerOpts = append(ledgerOpts, ledger.WithRecorder(mongoRepo))
		reportingOpts = append(reportingOpts, reportingsvc.WithSnapshotSink(mongoRepo))
		baseLogger.Info("mongodb archive enabled", zap.String("db", cfg.MongoDB.DBName))
	} else {
		baseLogger.Warn("mongodb uri missing, removal archive disabled")
	}

	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		reportingOpts = append(reportingOpts, reportingsvc.WithSheetMirror(sheetsRepo))
		baseLogger.Info("google sheets mirror enabled")
	}

	if cfg.WhatsApp.Enabled() {
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		reportingOpts = append(reportingOpts, reportingsvc.WithMessenger(whatsClient, cfg.WhatsApp.ReportRecipient))
		baseLogger.Info("whatsapp digest delivery enabled")
	}

	inventory, err := ledger.Open(fileStore, baseLogger.Named("svc.ledger"), ledgerOpts...)
	if err != nil {
		baseLogger.Fatal("failed to load ledger", zap.Error(err))
	}

	reportingSvc := reportingsvc.NewService(inventory, baseLogger.Named("svc.reporting"), reportingOpts...)

	inventoryHandler := handlers.NewInventoryHandler(inventory, baseLogger.Named("handlers.inventory"))
	engine, err := router.New(inventoryHandler, baseLogger.Named("router"))
	if err != nil {
		baseLogger.Fatal("failed to init router", zap.Error(err))
	}

	sched, err := scheduler.NewScheduler(cfg.Reporting, reportingSvc, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
