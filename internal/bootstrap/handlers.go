package bootstrap

import (
	"github.com/SankaiAI/ZeroTask/internal/config"
	"github.com/SankaiAI/ZeroTask/internal/handlers"
	"github.com/SankaiAI/ZeroTask/internal/services"
)

// handlerSet groups all HTTP handlers
type handlerSet struct {
	credential *handlers.CredentialHandler
	shared     *handlers.SharedHandler
}

func initializeHandlers(
	cfg *config.Config,
	credentials *services.CredentialService,
	shared *services.SharedCredentialService,
) handlerSet {
	return handlerSet{
		credential: handlers.NewCredentialHandler(credentials, cfg.FrontendURL),
		shared:     handlers.NewSharedHandler(shared),
	}
}
