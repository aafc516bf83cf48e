// Package server initializes and runs the main application server.
// It restores the database from a snapshot when needed, wires storage,
// mail and the trigger monitor, and starts the HTTP server.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/lastword/internal/filex"
	"github.com/dmitrijs2005/lastword/internal/logging"
	"github.com/dmitrijs2005/lastword/internal/server/config"
	"github.com/dmitrijs2005/lastword/internal/server/dbqueue"
	"github.com/dmitrijs2005/lastword/internal/server/httpapi"
	"github.com/dmitrijs2005/lastword/internal/server/monitor"
	"github.com/dmitrijs2005/lastword/internal/server/notify"
	"github.com/dmitrijs2005/lastword/internal/server/objectstore"
	"github.com/dmitrijs2005/lastword/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/lastword/internal/server/services"
	"github.com/dmitrijs2005/lastword/internal/server/snapshot"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	queue    *dbqueue.Queue
	service  *services.TriggerService
	monitor  *monitor.Monitor
	snapshot *snapshot.Manager
	handler  http.Handler
}

// NewApp assembles the whole server from configuration. The object store and
// mailer are optional; without them the app runs single-node with
// notifications written to the log.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	nodeName := cfg.NodeName
	if nodeName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("resolve node name: %w", err)
		}
		nodeName = hostname
	}

	var store objectstore.Store
	if cfg.S3Bucket != "" {
		s3store, err := objectstore.NewS3Store(ctx, objectstore.S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("object store init error: %w", err)
		}
		store = s3store
	}

	// A fresh node pulls its database back from the store before opening it.
	if err := snapshot.Restore(ctx, store, cfg.DatabasePath, nodeName, logger); err != nil {
		return nil, fmt.Errorf("snapshot restore error: %w", err)
	}

	if _, err := filex.EnsureParentDir(cfg.DatabasePath); err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewSQLiteRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	queue := dbqueue.New(db, logger)

	var mailer notify.Mailer
	if cfg.SMTPHost != "" {
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		logger.Warn(ctx, "no SMTP host configured, notifications go to the log")
		mailer = notify.NewLogMailer(logger)
	}

	service := services.NewTriggerService(queue, repos, store, logger)

	mon := monitor.New(service, store, mailer, logger, monitor.Config{
		SweepInterval:      cfg.SweepInterval,
		CallTimeout:        cfg.CallTimeout,
		BaseURL:            cfg.BaseURL,
		DisableCheckinSync: cfg.DisableCheckinSync,
	})

	snap := snapshot.NewManager(queue, store, cfg.DatabasePath, nodeName, cfg.SnapshotInterval, logger)

	handler := httpapi.NewRouter(service, httpapi.NewHeaderAuthenticator(), logger)

	return &App{
		config:   cfg,
		logger:   logger,
		db:       db,
		queue:    queue,
		service:  service,
		monitor:  mon,
		snapshot: snap,
		handler:  handler,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	server := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.handler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "http shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "http server listening", "addr", app.config.EndpointAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.monitor.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.snapshot.Run(ctx)
	}()

	wg.Wait()

	// The queue drains after everything that submits work has stopped.
	app.queue.Close()
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
