package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/copperline/gate/internal/gate/directory"
	httpapi "github.com/copperline/gate/internal/gate/http"
	"github.com/copperline/gate/internal/gate/provider"
	"github.com/copperline/gate/internal/gate/service"
	"github.com/copperline/gate/internal/gate/store"
	"github.com/copperline/gate/internal/gate/store/drivers/sqlite"
	"github.com/copperline/gate/pkg/cryptox"
	"github.com/copperline/gate/pkg/jwtx"
	"github.com/copperline/gate/pkg/remember"
	"github.com/copperline/gate/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the gate service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	secondFactorService *service.SecondFactorService
	sessionGateService  *service.SessionGateService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	if cfg.RememberSecret == "" {
		return nil, errors.New("GATE_REMEMBER_SECRET is required")
	}
	if cfg.ServiceAuthSecret == "" {
		return nil, errors.New("GATE_SERVICE_AUTH_SECRET is required")
	}
	if cfg.SecretsKey == "" {
		return nil, errors.New("GATE_SECRETS_KEY is required")
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gate-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.initHTTP(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("gate service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gate service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("gate service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() error {
	secrets, err := cryptox.NewSecretBox([]byte(app.cfg.SecretsKey))
	if err != nil {
		return fmt.Errorf("failed to initialize secret box: %w", err)
	}

	rememberCodec, err := remember.NewCodec([]byte(app.cfg.RememberSecret))
	if err != nil {
		return fmt.Errorf("failed to initialize remember codec: %w", err)
	}

	var keys provider.SecurityKeyProvider
	if app.cfg.SecurityKeysEnabled {
		sk, err := provider.NewSecurityKey(app.cfg.RPID, app.cfg.RPOrigin, app.cfg.RPDisplayName)
		if err != nil {
			return fmt.Errorf("failed to initialize security key provider: %w", err)
		}
		keys = sk
		app.logger.Info("security keys enabled", "rp_id", app.cfg.RPID)
	} else {
		app.logger.Info("security keys disabled")
	}

	dir := directory.NewClient(app.cfg.DirectoryURL)

	app.secondFactorService = &service.SecondFactorService{
		Store:               app.db,
		TOTP:                &provider.TOTP{Issuer: app.cfg.Issuer},
		SecurityKeys:        keys,
		Directory:           dir,
		Secrets:             secrets,
		Remember:            rememberCodec,
		RememberMaxAge:      app.cfg.RememberMaxAge,
		SecurityKeysEnabled: app.cfg.SecurityKeysEnabled,
	}

	app.sessionGateService = &service.SessionGateService{
		Store:               app.db,
		Directory:           dir,
		SecurityKeysEnabled: app.cfg.SecurityKeysEnabled,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.SessionMaxAge,
	)

	return nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() error {
	verifier := jwtx.NewVerifierHS256([]byte(app.cfg.ServiceAuthSecret), app.cfg.Issuer, []string{"gate"})

	router := httpapi.NewRouter(verifier, BuildVersion, app.db, app.logger)
	router.SecondFactorService = app.secondFactorService
	router.SessionGateService = app.sessionGateService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
