// Package platform is a minimal HTTP client for the Frame.io v4 API,
// covering the resources the installation flow needs: account and workspace
// listing, webhooks, and custom actions.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/billyshambrook/frameio-kit/internal/install"
)

// DefaultBaseURL is the hosted API endpoint.
const DefaultBaseURL = "https://api.frame.io/v4"

const defaultTimeout = 30 * time.Second

// APIError reports a non-2xx response from the platform.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Account is a Frame.io account the authenticated user belongs to.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"display_name"`
}

// Workspace is one workspace within an account.
type Workspace struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client calls the platform API on behalf of one user.
type Client struct {
	baseURL     string
	accessToken string
	http        *http.Client
}

// Option tweaks a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient overrides the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient builds a Client authenticated with the given access token.
func NewClient(accessToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		accessToken: accessToken,
		http:        &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do performs a request and decodes the `data` envelope into out when out
// is non-nil.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(map[string]any{"data": payload})
		if err != nil {
			return fmt.Errorf("encoding request for %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request for %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response for %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if out == nil {
		return nil
	}

	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decoding response for %s %s: %w", method, path, err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decoding response data for %s %s: %w", method, path, err)
	}
	return nil
}

// User is the authenticated user's identity.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Me returns the identity behind the access token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Accounts lists the accounts visible to the authenticated user.
func (c *Client) Accounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	if err := c.do(ctx, http.MethodGet, "/accounts", nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Workspaces lists the workspaces in an account.
func (c *Client) Workspaces(ctx context.Context, accountID string) ([]Workspace, error) {
	var workspaces []Workspace
	path := fmt.Sprintf("/accounts/%s/workspaces", accountID)
	if err := c.do(ctx, http.MethodGet, path, nil, &workspaces); err != nil {
		return nil, err
	}
	return workspaces, nil
}

// AccountForWorkspace finds which account a workspace belongs to.
func (c *Client) AccountForWorkspace(ctx context.Context, workspaceID string) (string, error) {
	accounts, err := c.Accounts(ctx)
	if err != nil {
		return "", err
	}
	for _, account := range accounts {
		workspaces, err := c.Workspaces(ctx, account.ID)
		if err != nil {
			return "", err
		}
		for _, ws := range workspaces {
			if ws.ID == workspaceID {
				return account.ID, nil
			}
		}
	}
	return "", fmt.Errorf("no account found for workspace %q", workspaceID)
}

type webhookPayload struct {
	Name   string   `json:"name"`
	URL    string   `json:"url,omitempty"`
	Events []string `json:"events"`
}

type webhookResponse struct {
	ID            string   `json:"id"`
	URL           string   `json:"url"`
	Events        []string `json:"events"`
	SigningSecret string   `json:"signing_secret"`
	Secret        string   `json:"secret"`
}

func (w webhookResponse) secret() string {
	if w.SigningSecret != "" {
		return w.SigningSecret
	}
	return w.Secret
}

// CreateWebhook provisions a workspace webhook. The platform issues the
// signing secret server-side.
func (c *Client) CreateWebhook(ctx context.Context, accountID, workspaceID, name string, events []string, url string) (*install.WebhookRecord, error) {
	path := fmt.Sprintf("/accounts/%s/workspaces/%s/webhooks", accountID, workspaceID)
	var resp webhookResponse
	payload := webhookPayload{Name: name, URL: url, Events: events}
	if err := c.do(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return nil, err
	}
	return &install.WebhookRecord{
		ID:     resp.ID,
		URL:    resp.URL,
		Secret: resp.secret(),
		Events: resp.Events,
	}, nil
}

// UpdateWebhook replaces a webhook's event subscriptions.
func (c *Client) UpdateWebhook(ctx context.Context, accountID, webhookID string, events []string) error {
	path := fmt.Sprintf("/accounts/%s/webhooks/%s", accountID, webhookID)
	return c.do(ctx, http.MethodPatch, path, webhookPayload{Events: events}, nil)
}

// DeleteWebhook removes a webhook.
func (c *Client) DeleteWebhook(ctx context.Context, accountID, webhookID string) error {
	path := fmt.Sprintf("/accounts/%s/webhooks/%s", accountID, webhookID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

type actionPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Event       string `json:"event,omitempty"`
	URL         string `json:"url,omitempty"`
}

type actionResponse struct {
	ID            string `json:"id"`
	Event         string `json:"event"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	URL           string `json:"url"`
	SigningSecret string `json:"signing_secret"`
	Secret        string `json:"secret"`
}

func (a actionResponse) secret() string {
	if a.SigningSecret != "" {
		return a.SigningSecret
	}
	return a.Secret
}

// CreateAction provisions a custom action in a workspace.
func (c *Client) CreateAction(ctx context.Context, accountID, workspaceID string, def install.ActionDefinition, url string) (*install.ActionRecord, error) {
	path := fmt.Sprintf("/accounts/%s/workspaces/%s/actions", accountID, workspaceID)
	payload := actionPayload{
		Name:        def.Name,
		Description: def.Description,
		Event:       def.EventType,
		URL:         url,
	}
	var resp actionResponse
	if err := c.do(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return nil, err
	}
	return &install.ActionRecord{
		ID:          resp.ID,
		EventType:   def.EventType,
		Name:        resp.Name,
		Description: resp.Description,
		Secret:      resp.secret(),
		URL:         resp.URL,
	}, nil
}

// UpdateAction patches an action's display fields. Event type and secret
// are immutable once provisioned.
func (c *Client) UpdateAction(ctx context.Context, accountID, actionID, name, description string) error {
	path := fmt.Sprintf("/accounts/%s/actions/%s", accountID, actionID)
	return c.do(ctx, http.MethodPatch, path, actionPayload{Name: name, Description: description}, nil)
}

// DeleteAction removes a custom action.
func (c *Client) DeleteAction(ctx context.Context, accountID, actionID string) error {
	path := fmt.Sprintf("/accounts/%s/actions/%s", accountID, actionID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
