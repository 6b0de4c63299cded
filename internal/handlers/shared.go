package handlers

import (
	"net/http"

	"github.com/SankaiAI/ZeroTask/internal/services"

	"github.com/gin-gonic/gin"
)

// SharedHandler serves the IT-provisioned shared credential surface. These
// credentials have no lifecycle, only existence checks for the settings UI.
type SharedHandler struct {
	shared *services.SharedCredentialService
}

func NewSharedHandler(shared *services.SharedCredentialService) *SharedHandler {
	return &SharedHandler{shared: shared}
}

// Status reports which shared service credentials are provisioned.
func (h *SharedHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"services": h.shared.Status()})
}
