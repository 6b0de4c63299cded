package handlers

import (
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/SankaiAI/ZeroTask/internal/models"
	"github.com/SankaiAI/ZeroTask/internal/provider"
	"github.com/SankaiAI/ZeroTask/internal/services"

	"github.com/gin-gonic/gin"
)

// CredentialHandler serves the OAuth credential lifecycle API.
type CredentialHandler struct {
	credentials *services.CredentialService
	frontendURL string
}

func NewCredentialHandler(
	credentials *services.CredentialService,
	frontendURL string,
) *CredentialHandler {
	return &CredentialHandler{
		credentials: credentials,
		frontendURL: frontendURL,
	}
}

// Authorize starts an authorization flow and returns the provider consent URL
// for the frontend to open in the system browser.
func (h *CredentialHandler) Authorize(c *gin.Context) {
	p, ok := parseProviderParam(c)
	if !ok {
		return
	}

	grant, err := h.credentials.BeginAuthorization(c.Request.Context(), p)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownProvider):
			respondUnknownProvider(c)
		case errors.Is(err, provider.ErrNotConfigured):
			c.JSON(http.StatusConflict, gin.H{
				"error":             "provider_not_configured",
				"error_description": "OAuth client credentials for this provider are not configured. Contact your administrator.",
			})
		default:
			log.Printf("[API] Failed to begin %s authorization: %v", p, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":             "server_error",
				"error_description": "Failed to initiate authorization.",
			})
		}
		return
	}

	c.JSON(http.StatusOK, grant)
}

// Callback completes the authorization-code flow. It is the only browser
// facing endpoint: outcomes are reported by redirecting back to the frontend
// settings page, except for state violations which get a plain 400 since a
// forged or replayed request has no legitimate browser behind it.
func (h *CredentialHandler) Callback(c *gin.Context) {
	p, ok := parseProviderParam(c)
	if !ok {
		return
	}

	result, err := h.credentials.HandleCallback(
		c.Request.Context(),
		p,
		c.Query("code"),
		c.Query("state"),
		c.Query("error"),
	)
	if err != nil {
		var denied *services.AuthorizationDeniedError
		switch {
		case errors.Is(err, services.ErrUnknownProvider):
			respondUnknownProvider(c)
		case errors.As(err, &denied):
			log.Printf("[API] %s authorization denied by user: %s", p, denied.Reason)
			h.redirectToFrontend(c, p, "authorization was denied")
		case errors.Is(err, services.ErrStateNotFound),
			errors.Is(err, services.ErrProviderMismatch):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":             "invalid_state",
				"error_description": "State validation failed. Please restart the authorization flow.",
			})
		default:
			log.Printf("[API] %s callback failed: %v", p, err)
			h.redirectToFrontend(c, p, "authorization failed, please try again")
		}
		return
	}

	h.redirectToFrontend(c, result.Provider, "")
}

// Status reports the connection state of a single OAuth provider.
func (h *CredentialHandler) Status(c *gin.Context) {
	p, ok := parseProviderParam(c)
	if !ok {
		return
	}

	status, err := h.credentials.Status(c.Request.Context(), p)
	if err != nil {
		if errors.Is(err, services.ErrUnknownProvider) {
			respondUnknownProvider(c)
			return
		}
		log.Printf("[API] Failed to read %s status: %v", p, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": "Failed to read provider status.",
		})
		return
	}

	c.JSON(http.StatusOK, status)
}

// StatusAll reports the connection state of every OAuth provider.
func (h *CredentialHandler) StatusAll(c *gin.Context) {
	statuses := make([]*services.ConnectionStatus, 0, len(models.OAuthProviders))
	for _, p := range models.OAuthProviders {
		status, err := h.credentials.Status(c.Request.Context(), p)
		if err != nil {
			log.Printf("[API] Failed to read %s status: %v", p, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":             "server_error",
				"error_description": "Failed to read provider status.",
			})
			return
		}
		statuses = append(statuses, status)
	}

	c.JSON(http.StatusOK, gin.H{"providers": statuses})
}

// Revoke disconnects a provider: best-effort remote revocation plus local
// credential deletion.
func (h *CredentialHandler) Revoke(c *gin.Context) {
	p, ok := parseProviderParam(c)
	if !ok {
		return
	}

	result, err := h.credentials.Revoke(c.Request.Context(), p)
	if err != nil {
		log.Printf("[API] Failed to revoke %s credential: %v", p, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": "Failed to revoke credential.",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// redirectToFrontend sends the browser back to the frontend settings page.
// An empty reason signals success. Reasons are short human phrases, never
// raw error chains, so nothing sensitive can leak into the URL.
func (h *CredentialHandler) redirectToFrontend(
	c *gin.Context,
	p models.Provider,
	reason string,
) {
	q := url.Values{"provider": {p.String()}}
	if reason == "" {
		q.Set("auth_success", "true")
	} else {
		q.Set("auth_error", reason)
	}
	c.Redirect(http.StatusFound, h.frontendURL+"/settings?"+q.Encode())
}

// parseProviderParam resolves the :provider path parameter. Unknown names get
// a 404 and false.
func parseProviderParam(c *gin.Context) (models.Provider, bool) {
	p, err := models.ParseProvider(c.Param("provider"))
	if err != nil {
		respondUnknownProvider(c)
		return "", false
	}
	return p, true
}

func respondUnknownProvider(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":             "unknown_provider",
		"error_description": "The requested provider is not supported.",
	})
}
