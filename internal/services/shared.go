package services

import (
	"strings"

	"github.com/SankaiAI/ZeroTask/internal/config"
	"github.com/SankaiAI/ZeroTask/internal/models"
	"github.com/SankaiAI/ZeroTask/internal/provider"
)

// SharedStatus describes an IT-provisioned service account credential.
type SharedStatus struct {
	Provider   models.Provider `json:"provider"`
	Configured bool            `json:"configured"`
}

// SharedCredentialService serves the static, IT-provisioned credential path.
// These credentials are non-expiring shared secrets with no lifecycle beyond
// an existence check: GitHub uses a service account PAT, Slack additionally
// carries app/bot tokens for workspace-level integrations.
type SharedCredentialService struct {
	cfg *config.Config
}

func NewSharedCredentialService(cfg *config.Config) *SharedCredentialService {
	return &SharedCredentialService{cfg: cfg}
}

// IsGitHubConfigured reports whether the GitHub service account PAT is set.
func (s *SharedCredentialService) IsGitHubConfigured() bool {
	return strings.TrimSpace(s.cfg.GitHubToken) != ""
}

// IsSlackServiceConfigured reports whether both Slack workspace tokens are set.
func (s *SharedCredentialService) IsSlackServiceConfigured() bool {
	return strings.TrimSpace(s.cfg.SlackAppToken) != "" &&
		strings.TrimSpace(s.cfg.SlackBotToken) != ""
}

// GitHubToken returns the service account PAT for API calls.
func (s *SharedCredentialService) GitHubToken() (string, error) {
	if !s.IsGitHubConfigured() {
		return "", provider.ErrNotConfigured
	}
	return s.cfg.GitHubToken, nil
}

// SlackServiceTokens returns the app-level and bot tokens.
func (s *SharedCredentialService) SlackServiceTokens() (appToken, botToken string, err error) {
	if !s.IsSlackServiceConfigured() {
		return "", "", provider.ErrNotConfigured
	}
	return s.cfg.SlackAppToken, s.cfg.SlackBotToken, nil
}

// Status reports all shared credential paths for the settings UI.
func (s *SharedCredentialService) Status() []SharedStatus {
	return []SharedStatus{
		{Provider: models.ProviderGitHub, Configured: s.IsGitHubConfigured()},
		{Provider: models.ProviderSlack, Configured: s.IsSlackServiceConfigured()},
	}
}
