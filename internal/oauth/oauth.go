// Package oauth implements the authorization-code and refresh-token flows
// against the Frame.io OAuth 2.0 endpoints.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/billyshambrook/frameio-kit/internal/log"
)

const (
	// DefaultAuthURL is the hosted authorization endpoint.
	DefaultAuthURL = "https://applications.frame.io/oauth2/auth"
	// DefaultTokenURL is the hosted token endpoint.
	DefaultTokenURL = "https://applications.frame.io/oauth2/token"

	defaultTimeout = 30 * time.Second

	// fallbackLifetime is assumed when the token response omits expires_in.
	fallbackLifetime = 3600
)

// Config holds the OAuth client registration details.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string

	// AuthURL and TokenURL default to the hosted Frame.io endpoints.
	AuthURL  string
	TokenURL string

	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
}

// TokenData is the decoded, normalized result of a token exchange. This is
// the shape persisted (encrypted) by the token manager.
type TokenData struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scopes       []string  `json:"scopes"`
	UserID       string    `json:"user_id,omitempty"`
}

// ExpiresWithin reports whether the token expires within the given buffer.
func (t *TokenData) ExpiresWithin(buffer time.Duration) bool {
	return !time.Now().Before(t.ExpiresAt.Add(-buffer))
}

// Lifetime returns the remaining validity from now. Negative once expired.
func (t *TokenData) Lifetime() time.Duration {
	return time.Until(t.ExpiresAt)
}

// ExchangeError reports a token endpoint response that could not be used:
// a non-2xx status or a body missing the access token.
type ExchangeError struct {
	StatusCode int
	Detail     string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed (status %d): %s", e.StatusCode, e.Detail)
}

// Client speaks to the OAuth endpoints.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a Client, applying endpoint and transport defaults.
func NewClient(cfg Config) *Client {
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// AuthorizationURL builds the URL the user is redirected to, carrying the
// CSRF state token.
func (c *Client) AuthorizationURL(state string) string {
	q := url.Values{
		"response_type": {"code"},
		"client_id":     {c.cfg.ClientID},
		"redirect_uri":  {c.cfg.RedirectURI},
		"state":         {state},
	}
	if len(c.cfg.Scopes) > 0 {
		q.Set("scope", strings.Join(c.cfg.Scopes, " "))
	}
	return c.cfg.AuthURL + "?" + q.Encode()
}

// ExchangeCode trades an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenData, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {c.cfg.RedirectURI},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	return c.tokenRequest(ctx, form, nil)
}

// Refresh trades a refresh token for a fresh access token. If the response
// omits a new refresh token the previous one is carried forward.
func (c *Client) Refresh(ctx context.Context, token *TokenData) (*TokenData, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {token.RefreshToken},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	return c.tokenRequest(ctx, form, token)
}

func (c *Client) tokenRequest(ctx context.Context, form url.Values, prior *TokenData) (*TokenData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling token endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ExchangeError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
	}
	return parseTokenResponse(resp.StatusCode, body, prior)
}

func parseTokenResponse(status int, body []byte, prior *TokenData) (*TokenData, error) {
	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    *int64 `json:"expires_in"`
		Scope        string `json:"scope"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ExchangeError{StatusCode: status, Detail: "response is not valid JSON"}
	}
	if payload.AccessToken == "" {
		return nil, &ExchangeError{StatusCode: status, Detail: "response missing access_token"}
	}

	lifetime := int64(fallbackLifetime)
	if payload.ExpiresIn != nil {
		if *payload.ExpiresIn <= 0 {
			return nil, &ExchangeError{StatusCode: status, Detail: "response has non-positive expires_in"}
		}
		lifetime = *payload.ExpiresIn
	} else {
		log.Warn("token response missing expires_in, assuming default lifetime",
			"seconds", fallbackLifetime)
	}

	token := &TokenData{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(lifetime) * time.Second),
		Scopes:       splitScopes(payload.Scope),
	}
	if token.RefreshToken == "" {
		// A refresh can reuse the old refresh token; a code exchange with
		// none at all leaves the user unrecoverable later.
		if prior == nil {
			return nil, &ExchangeError{StatusCode: status, Detail: "response missing refresh_token"}
		}
		token.RefreshToken = prior.RefreshToken
	}
	if prior != nil {
		token.UserID = prior.UserID
	}
	return token, nil
}

func splitScopes(scope string) []string {
	if scope == "" {
		return nil
	}
	var scopes []string
	for _, s := range strings.Split(scope, " ") {
		if s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}
