// Package server wires the userkeeper components together and runs the HTTP
// and gRPC endpoints until the process is signalled to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/userkeeper/internal/logging"
	"github.com/dmitrijs2005/userkeeper/internal/server/auth"
	"github.com/dmitrijs2005/userkeeper/internal/server/config"
	"github.com/dmitrijs2005/userkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/userkeeper/internal/server/rest"
	"github.com/dmitrijs2005/userkeeper/internal/server/services"
	"github.com/dmitrijs2005/userkeeper/internal/server/shared/db"

	gs "github.com/dmitrijs2005/userkeeper/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	http   *rest.Server
	grpc   *gs.GRPCServer
}

// NewApp opens the database, applies migrations and builds both transports.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	conn, err := db.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := newApp(ctx, c, logger, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, conn *sql.DB) (*App, error) {
	rm, err := repomanager.New(c.DatabaseDriver, logger)
	if err != nil {
		return nil, err
	}
	if err := rm.RunMigrations(ctx, conn); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	hasher, err := auth.NewHasher(c.PasswordHashAlgorithm, c.PasswordHashCost)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenService([]byte(c.SecretKey), logger)
	if err != nil {
		return nil, err
	}

	us := services.NewUserService(conn, rm, hasher, tokens, c.TokenValidityDuration, logger)

	app := &App{
		config: c,
		logger: logger,
		db:     conn,
		http:   rest.NewServer(c.EndpointAddrHTTP, logger, us, tokens),
	}
	if c.EndpointAddrGRPC != "" {
		app.grpc = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, tokens)
	}

	return app, nil
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

// Run blocks until ctx is cancelled, a signal arrives or either server fails.
// The database is closed on return.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		app.logger.Error(ctx, err.Error())
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancelFunc()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.http.Run(ctx); err != nil {
			fail(fmt.Errorf("http server: %w", err))
		}
	}()

	if app.grpc != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := app.grpc.Run(ctx); err != nil {
				fail(fmt.Errorf("grpc server: %w", err))
			}
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close", "error", err)
	}
	app.logger.Info(ctx, "App stopped")

	return firstErr
}
