package bootstrap

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/SankaiAI/ZeroTask/internal/config"
	"github.com/SankaiAI/ZeroTask/internal/services"

	"github.com/appleboy/graceful"
)

// createHTTPServer creates the HTTP server instance
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// addServerRunningJob adds the HTTP server running job
func addServerRunningJob(m *graceful.Manager, srv *http.Server) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})
}

// addServerShutdownJob adds HTTP server shutdown handler
func addServerShutdownJob(m *graceful.Manager, srv *http.Server) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})
}

// addStatePurgeJob adds the periodic cleanup of expired and consumed
// authorization states. The interval tracks the state TTL so dead rows never
// outlive a full extra window.
func addStatePurgeJob(
	m *graceful.Manager,
	cfg *config.Config,
	states *services.StateService,
) {
	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(cfg.StateTTL)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := states.PurgeExpired(ctx); err != nil {
					log.Printf("Failed to purge authorization states: %v", err)
				}
			case <-ctx.Done():
				return nil
			}
		}
	})
}
