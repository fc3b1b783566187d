package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/lashiva/stockrecon/internal/audit"
	"github.com/lashiva/stockrecon/internal/config"
	"github.com/lashiva/stockrecon/internal/reconcile"
	"github.com/lashiva/stockrecon/internal/repository/mongodb"
	"github.com/lashiva/stockrecon/internal/repository/sheets"
	"github.com/lashiva/stockrecon/internal/scheduler"
	"github.com/lashiva/stockrecon/internal/server/handlers"
	"github.com/lashiva/stockrecon/internal/server/router"
	"github.com/lashiva/stockrecon/internal/service/alerts"
	"github.com/lashiva/stockrecon/internal/service/reconciliation"
	"github.com/lashiva/stockrecon/internal/service/sheetsync"
	whatsappclient "github.com/lashiva/stockrecon/pkg/clients/whatsapp"
	"github.com/lashiva/stockrecon/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level, cfg.Log.Development))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	engine := reconcile.NewEngine(cfg.Ledger, baseLogger.Named("reconcile"))
	var opts []reconciliation.Option

	var reports handlers.ReportLister
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
		opts = append(opts, reconciliation.WithArchive(mongoRepo))
		reports = mongoRepo
		baseLogger.Info("report archive enabled", zap.String("db", cfg.MongoDB.DBName))
	} else {
		baseLogger.Warn("mongodb uri missing, report archive disabled")
	}

	if cfg.WhatsApp.Enabled() {
		client := whatsappclient.NewClient(cfg.WhatsApp)
		opts = append(opts, reconciliation.WithAlerter(alerts.NewService(client, cfg.WhatsApp.AlertRecipient, baseLogger.Named("svc.alerts"))))
		baseLogger.Info("low-stock alerts enabled")
	} else {
		baseLogger.Warn("whatsapp token missing, low-stock alerts disabled")
	}

	history := audit.NewFileHistory(cfg.Audit.HistoryFile)
	uploadSvc := reconciliation.NewService(engine, history, baseLogger.Named("svc.reconciliation"), opts...)

	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		loc, err := cfg.Reporting.Location()
		if err != nil {
			baseLogger.Fatal("invalid timezone", zap.Error(err))
		}

		sheetSvc := reconciliation.NewService(engine, sheetsync.NewHistory(sheetsRepo, cfg.Sheets.HistoryRange), baseLogger.Named("svc.reconciliation.sheets"), opts...)
		job := sheetsync.NewService(sheetsRepo, cfg.Sheets, sheetSvc, loc, baseLogger.Named("svc.sheetsync"))

		sched, err := scheduler.NewScheduler(cfg.Reporting, job, baseLogger.Named("scheduler"))
		if err != nil {
			baseLogger.Fatal("failed to init scheduler", zap.Error(err))
		}
		if err := sched.Start(); err != nil {
			baseLogger.Fatal("failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	} else {
		baseLogger.Warn("sheets credentials missing, scheduled sync disabled")
	}

	maxUpload := cfg.Server.MaxUploadMB << 20
	handler := handlers.NewReconcileHandler(uploadSvc, history, reports, maxUpload, baseLogger.Named("handlers.reconcile"))
	ginEngine := router.New(handler, maxUpload, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      ginEngine,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
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
