// Package identity signs users in with Google through the OAuth2 authorization-code
// flow and resolves the stable user id from the userinfo API.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/belphemur/habit-tracker/internal/config"
	"github.com/belphemur/habit-tracker/internal/logging"
	"github.com/belphemur/habit-tracker/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const stateBytes = 24

// ErrMissingCode is returned when the provider redirected back without a code
var ErrMissingCode = errors.New("missing authorization code")

// Scopes requested from Google: enough for a stable id, email and display name
var Scopes = []string{goauth2.OpenIDScope, goauth2.UserinfoEmailScope, goauth2.UserinfoProfileScope}

// Provider runs the OAuth2 sign-in against Google
type Provider struct {
	config           *oauth2.Config
	userinfoEndpoint string
	logger           zerolog.Logger
}

// Option customizes a Provider
type Option func(*Provider)

// WithEndpoint replaces the Google authorization and token endpoints
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(p *Provider) {
		p.config.Endpoint = endpoint
	}
}

// WithUserinfoEndpoint points the userinfo lookup at another base URL
func WithUserinfoEndpoint(url string) Option {
	return func(p *Provider) {
		p.userinfoEndpoint = url
	}
}

// NewProvider creates a Provider from the OAuth client configuration
func NewProvider(cfg *config.OAuthConfig, opts ...Option) (*Provider, error) {
	if cfg == nil || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("oauth client id and secret are required")
	}
	p := &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint:     google.Endpoint,
		},
		logger: logging.GetLogger("identity"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// NewState returns a random, URL-safe OAuth state value
func NewState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// AuthCodeURL returns the provider URL the browser is sent to. Sign-up forces the
// account chooser and consent screen; sign-in lets Google reuse the current account.
func (p *Provider) AuthCodeURL(state string, signUp bool) string {
	if signUp {
		return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.SetAuthURLParam("prompt", "select_account consent"))
	}
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for a token and looks up the user it belongs to
func (p *Provider) Exchange(ctx context.Context, code string) (*models.User, error) {
	if code == "" {
		return nil, ErrMissingCode
	}

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Failed to exchange authorization code")
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	opts := []option.ClientOption{option.WithTokenSource(p.config.TokenSource(ctx, token))}
	if p.userinfoEndpoint != "" {
		opts = append(opts, option.WithEndpoint(p.userinfoEndpoint))
	}
	svc, err := goauth2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		p.logger.Warn().Err(err).Msg("Failed to fetch user info")
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	if info.Id == "" {
		return nil, fmt.Errorf("user info has no id")
	}

	p.logger.Debug().Str("user_id", info.Id).Msg("Resolved signed-in user")
	return &models.User{ID: info.Id, Email: info.Email, Name: info.Name}, nil
}
