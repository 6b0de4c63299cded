package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/SankaiAI/ZeroTask/internal/models"
)

const (
	slackAuthorizeURL = "https://slack.com/oauth/v2/authorize"
	slackTokenURL     = "https://slack.com/api/oauth.v2.access"
	slackUserInfoURL  = "https://slack.com/api/users.info"
	slackRevokeURL    = "https://slack.com/api/auth.revoke"
)

// SlackConfig contains configuration for the Slack adapter.
type SlackConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// BaseOverrides replace the production Slack endpoints in tests.
	AuthorizeURL string
	TokenURL     string
	UserInfoURL  string
	RevokeURL    string
}

// SlackAdapter runs Slack's OAuth v2 user-token flow. Slack user tokens
// never expire and the grant issues no refresh token; an invalidated token
// always requires fresh authorization.
//
// Slack's token endpoint does not follow the standard OAuth wire format:
// responses are enveloped in an "ok"/"error" pair and the user token lives
// under authed_user, so the exchange is implemented directly instead of
// through x/oauth2.
type SlackAdapter struct {
	cfg        SlackConfig
	httpClient *http.Client
}

func NewSlackAdapter(cfg SlackConfig, httpClient *http.Client) *SlackAdapter {
	if cfg.AuthorizeURL == "" {
		cfg.AuthorizeURL = slackAuthorizeURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = slackTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = slackUserInfoURL
	}
	if cfg.RevokeURL == "" {
		cfg.RevokeURL = slackRevokeURL
	}
	return &SlackAdapter{cfg: cfg, httpClient: httpClient}
}

func (a *SlackAdapter) Name() models.Provider {
	return models.ProviderSlack
}

func (a *SlackAdapter) Configured() bool {
	return a.cfg.ClientID != "" && a.cfg.ClientSecret != ""
}

func (a *SlackAdapter) SupportsRefresh() bool {
	return false
}

func (a *SlackAdapter) AuthorizationURL(state string) (string, error) {
	if !a.Configured() {
		return "", ErrNotConfigured
	}

	params := url.Values{
		"client_id":     {a.cfg.ClientID},
		"user_scope":    {strings.Join(a.cfg.Scopes, " ")},
		"redirect_uri":  {a.cfg.RedirectURL},
		"state":         {state},
		"response_type": {"code"},
	}
	return a.cfg.AuthorizeURL + "?" + params.Encode(), nil
}

// slackTokenResponse models the oauth.v2.access envelope. The user token is
// nested under authed_user; a top-level access_token (bot token) appears for
// bot-scope installs.
type slackTokenResponse struct {
	OK          bool   `json:"ok"`
	Error       string `json:"error"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	AuthedUser  struct {
		ID          string `json:"id"`
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		Scope       string `json:"scope"`
	} `json:"authed_user"`
	Team struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"team"`
}

func (a *SlackAdapter) Exchange(ctx context.Context, code string) (*TokenPayload, error) {
	if !a.Configured() {
		return nil, ErrNotConfigured
	}

	form := url.Values{
		"client_id":     {a.cfg.ClientID},
		"client_secret": {a.cfg.ClientSecret},
		"code":          {code},
		"redirect_uri":  {a.cfg.RedirectURL},
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		a.cfg.TokenURL,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client().Do(req)
	if err != nil {
		return nil, &ExchangeError{Provider: a.Name(), Op: "exchange", Detail: "request failed"}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ExchangeError{Provider: a.Name(), Op: "exchange", Detail: resp.Status}
	}

	var tr slackTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, &ExchangeError{Provider: a.Name(), Op: "exchange", Detail: "malformed response"}
	}
	if !tr.OK {
		detail := tr.Error
		if detail == "" {
			detail = "unknown error"
		}
		return nil, &ExchangeError{Provider: a.Name(), Op: "exchange", Detail: detail}
	}

	accessToken := tr.AuthedUser.AccessToken
	scope := tr.AuthedUser.Scope
	if accessToken == "" {
		accessToken = tr.AccessToken
		scope = tr.Scope
	}
	if accessToken == "" {
		return nil, &ExchangeError{Provider: a.Name(), Op: "exchange", Detail: "no access token in response"}
	}
	if scope == "" {
		scope = strings.Join(a.cfg.Scopes, " ")
	}

	payload := &TokenPayload{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		Scope:       scope,
		// ExpiresAt stays nil: Slack user tokens do not expire
	}

	// Profile fetch is display-only metadata; failure must not fail the grant.
	if info, err := a.fetchUserInfo(ctx, accessToken, tr.AuthedUser.ID, tr.Team.Name); err != nil {
		log.Printf("[Slack] Failed to fetch user profile: %v", err)
	} else {
		payload.UserInfo = info
	}

	return payload, nil
}

func (a *SlackAdapter) Refresh(ctx context.Context, refreshToken string) (*TokenPayload, error) {
	return nil, ErrRefreshUnsupported
}

// Revoke calls auth.revoke with the user token. Slack reports failures in
// the envelope, not the HTTP status.
func (a *SlackAdapter) Revoke(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.RevokeURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create revoke request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.client().Do(req)
	if err != nil {
		return &ExchangeError{Provider: a.Name(), Op: "revoke", Detail: "request failed"}
	}
	defer resp.Body.Close()

	var envelope struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return &ExchangeError{Provider: a.Name(), Op: "revoke", Detail: "malformed response"}
	}
	if !envelope.OK {
		return &ExchangeError{Provider: a.Name(), Op: "revoke", Detail: envelope.Error}
	}
	return nil
}

// slackUserProfile is the stored display-only snapshot.
type slackUserProfile struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Title     string `json:"title,omitempty"`
	TeamID    string `json:"team_id,omitempty"`
	TeamName  string `json:"team_name,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
}

func (a *SlackAdapter) fetchUserInfo(
	ctx context.Context,
	accessToken, userID, teamName string,
) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("no user ID in token response")
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		a.cfg.UserInfoURL+"?user="+url.QueryEscape(userID),
		nil,
	)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("users.info error: %s - %s", resp.Status, string(body))
	}

	var ur struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
		User  struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			TeamID  string `json:"team_id"`
			TzLabel string `json:"tz_label"`
			Profile struct {
				RealName    string `json:"real_name"`
				DisplayName string `json:"display_name"`
				Email       string `json:"email"`
				Title       string `json:"title"`
				Image512    string `json:"image_512"`
				Image192    string `json:"image_192"`
			} `json:"profile"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return "", err
	}
	if !ur.OK {
		return "", fmt.Errorf("users.info error: %s", ur.Error)
	}

	name := ur.User.Profile.RealName
	if name == "" {
		name = ur.User.Profile.DisplayName
	}
	if name == "" {
		name = ur.User.Name
	}
	avatar := ur.User.Profile.Image512
	if avatar == "" {
		avatar = ur.User.Profile.Image192
	}

	profile := slackUserProfile{
		UserID:    ur.User.ID,
		Name:      name,
		Email:     ur.User.Profile.Email,
		AvatarURL: avatar,
		Title:     ur.User.Profile.Title,
		TeamID:    ur.User.TeamID,
		TeamName:  teamName,
		Timezone:  ur.User.TzLabel,
	}

	encoded, err := json.Marshal(profile)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func (a *SlackAdapter) client() *http.Client {
	if a.httpClient != nil {
		return a.httpClient
	}
	return http.DefaultClient
}
