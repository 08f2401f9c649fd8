// Package server wires the queue service together: database, repositories,
// services, the HTTP endpoint, and the background reaper.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/refsync/refsync/internal/logging"
	"github.com/refsync/refsync/internal/server/config"
	"github.com/refsync/refsync/internal/server/httpapi"
	"github.com/refsync/refsync/internal/server/repositories/repomanager"
	"github.com/refsync/refsync/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	userService  *services.UserService
	queueService *services.QueueService
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()

	return &App{
		config:       cfg,
		logger:       logger,
		db:           db,
		repomanager:  rm,
		userService:  services.NewUserService(db, rm, cfg),
		queueService: services.NewQueueService(db, rm, cfg, logger),
	}, nil
}

// Run migrates the schema, then serves HTTP and runs the reaper until ctx
// is cancelled. The HTTP server gets a bounded grace period to finish
// in-flight requests.
func (app *App) Run(ctx context.Context) error {
	defer app.db.Close()

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	api := httpapi.NewAPI(app.userService, app.queueService, []byte(app.config.SecretKey), app.logger)
	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: httpapi.NewRouter(api),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info(ctx, "starting http server", "addr", app.config.EndpointAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		app.queueService.RunReaper(ctx)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		app.logger.Info(context.Background(), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
