package bootstrap

import (
	"net/http"

	"github.com/SankaiAI/ZeroTask/internal/config"
	"github.com/SankaiAI/ZeroTask/internal/encryption"
	"github.com/SankaiAI/ZeroTask/internal/metrics"
	"github.com/SankaiAI/ZeroTask/internal/provider"
	"github.com/SankaiAI/ZeroTask/internal/services"
	"github.com/SankaiAI/ZeroTask/internal/store"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Core infrastructure
	DB              *store.Store
	MetricsRecorder metrics.Recorder
	Cipher          *encryption.Cipher
	Registry        *provider.Registry

	// Services
	StateService      *services.StateService
	CredentialService *services.CredentialService
	SharedService     *services.SharedCredentialService

	// HTTP
	HandlerSet handlerSet
	Router     *gin.Engine
	Server     *http.Server
}

// Run initializes and starts the application
func Run(cfg *config.Config) error {
	app := &Application{Config: cfg}

	// Phase 1: Validate configuration
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(); err != nil {
		return err
	}

	// Phase 3: Initialize business layer
	if err := app.initializeBusinessLayer(); err != nil {
		return err
	}

	// Phase 4: Initialize HTTP layer
	if err := app.initializeHTTPLayer(); err != nil {
		return err
	}

	// Phase 5: Start server with graceful shutdown
	app.startWithGracefulShutdown()

	return nil
}

// initializeInfrastructure sets up the database, metrics and provider registry
func (app *Application) initializeInfrastructure() error {
	var err error

	app.DB, err = initializeDatabase(app.Config)
	if err != nil {
		return err
	}

	app.MetricsRecorder = initializeMetrics(app.Config)

	oauthHTTPClient := createOAuthHTTPClient(app.Config)
	app.Registry = initializeProviderRegistry(app.Config, oauthHTTPClient)

	return nil
}

// initializeBusinessLayer sets up the cipher and the credential services
func (app *Application) initializeBusinessLayer() error {
	var err error

	app.Cipher, err = encryption.New(app.Config.MachineID, app.Config.AppSecret)
	if err != nil {
		return err
	}

	app.StateService = services.NewStateService(app.DB, app.Config.StateTTL)
	app.CredentialService = services.NewCredentialService(
		app.DB,
		app.Cipher,
		app.StateService,
		app.Registry,
		app.MetricsRecorder,
		app.Config.RefreshLeeway,
	)
	app.SharedService = services.NewSharedCredentialService(app.Config)

	return nil
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer() error {
	app.HandlerSet = initializeHandlers(app.Config, app.CredentialService, app.SharedService)

	router, err := setupRouter(app.Config, app.DB, app.HandlerSet, app.MetricsRecorder)
	if err != nil {
		return err
	}
	app.Router = router

	app.Server = createHTTPServer(app.Config, app.Router)
	return nil
}

// startWithGracefulShutdown starts the server and handles graceful shutdown
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	addServerRunningJob(m, app.Server)
	addServerShutdownJob(m, app.Server)
	addStatePurgeJob(m, app.Config, app.StateService)

	<-m.Done()
}

// initializeMetrics sets up the metrics recorder
func initializeMetrics(cfg *config.Config) metrics.Recorder {
	return metrics.Init(cfg.MetricsEnabled)
}
