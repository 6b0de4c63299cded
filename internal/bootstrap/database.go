package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/SankaiAI/ZeroTask/internal/config"
	"github.com/SankaiAI/ZeroTask/internal/store"
)

// initializeDatabase opens the store and runs migrations under a bounded
// timeout so a hung database fails startup instead of blocking forever.
func initializeDatabase(cfg *config.Config) (*store.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBInitTimeout)
	defer cancel()

	db, err := store.New(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	log.Printf("Database initialized: driver=%s", cfg.DatabaseDriver)
	return db, nil
}
