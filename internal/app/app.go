// Package app ties the framework together: handler registration, the signed
// event endpoint, the OAuth login flow, and the browser-based installation
// flow. An App owns the storage, encryption, and platform plumbing so user
// code only registers handlers and calls Serve.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/billyshambrook/frameio-kit/internal/config"
	"github.com/billyshambrook/frameio-kit/internal/encryption"
	"github.com/billyshambrook/frameio-kit/internal/event"
	"github.com/billyshambrook/frameio-kit/internal/install"
	"github.com/billyshambrook/frameio-kit/internal/log"
	"github.com/billyshambrook/frameio-kit/internal/oauth"
	"github.com/billyshambrook/frameio-kit/internal/platform"
	"github.com/billyshambrook/frameio-kit/internal/secrets"
	"github.com/billyshambrook/frameio-kit/internal/storage"
	"github.com/billyshambrook/frameio-kit/internal/token"
)

// Environment fallbacks consulted at registration time when a handler has no
// other secret source.
const (
	EnvWebhookSecret = "FRAMEIO_WEBHOOK_SECRET"
	EnvActionSecret  = "FRAMEIO_ACTION_SECRET"
)

// WebhookHandler processes a verified webhook notification.
type WebhookHandler func(ctx context.Context, ev *event.WebhookEvent) error

// ActionHandler processes a verified action callback. A nil response with a
// nil error acknowledges the action without user-visible output.
type ActionHandler func(ctx context.Context, ev *event.ActionEvent) (event.Response, error)

// ConfigurationError reports an invalid handler registration.
type ConfigurationError struct {
	EventType string
	Detail    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("handler for %q: %s", e.EventType, e.Detail)
}

type handlerConfig struct {
	secret      string
	resolver    secrets.ResolverFunc
	requireAuth bool
}

// HandlerOption configures one handler registration.
type HandlerOption func(*handlerConfig)

// WithSecret pins a static signing secret for this handler.
func WithSecret(secret string) HandlerOption {
	return func(c *handlerConfig) { c.secret = secret }
}

// WithResolver sets a per-handler secret resolver, consulted before the
// app-level resolver.
func WithResolver(fn secrets.ResolverFunc) HandlerOption {
	return func(c *handlerConfig) { c.resolver = fn }
}

// RequireUserAuth makes an action handler demand a logged-in user. Users
// without a stored token get a login form instead of the handler running.
func RequireUserAuth() HandlerOption {
	return func(c *handlerConfig) { c.requireAuth = true }
}

type webhookRegistration struct {
	handler  WebhookHandler
	strategy secrets.Strategy
}

type actionRegistration struct {
	handler     ActionHandler
	strategy    secrets.Strategy
	name        string
	description string
	requireAuth bool
}

// App is the framework entry point.
type App struct {
	cfg    config.Config
	store  storage.Store
	sealer *encryption.Sealer

	oauthClient *oauth.Client
	tokens      *token.Manager
	installs    *install.Manager
	clientFor   install.ClientFactory
	appResolver secrets.AppResolver

	// directoryFor overrides the account/workspace listing client in tests.
	directoryFor func(accessToken string) directoryClient

	// sessionSigningKey authenticates install session cookies. Generated
	// fresh on startup; sessions are short-lived so restarts just force a
	// new sign-in.
	sessionSigningKey []byte

	webhooks map[string]*webhookRegistration
	actions  map[string]*actionRegistration
}

// Option customizes App construction, mainly for tests.
type Option func(*App)

// WithStore overrides the storage backend chosen from config.
func WithStore(store storage.Store) Option {
	return func(a *App) { a.store = store }
}

// WithAppResolver replaces the installation-backed secret resolver.
func WithAppResolver(r secrets.AppResolver) Option {
	return func(a *App) { a.appResolver = r }
}

// WithClientFactory replaces the platform API client constructor.
func WithClientFactory(f install.ClientFactory) Option {
	return func(a *App) { a.clientFor = f }
}

// WithOAuthClient replaces the OAuth client built from config.
func WithOAuthClient(c *oauth.Client) Option {
	return func(a *App) { a.oauthClient = c }
}

// New builds an App from config.
func New(cfg config.Config, opts ...Option) (*App, error) {
	log.Setup(cfg.LogLevel)

	sealer, err := encryption.New(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}

	signingKey, err := newSessionSigningKey()
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:               cfg,
		sealer:            sealer,
		sessionSigningKey: signingKey,
		webhooks:          make(map[string]*webhookRegistration),
		actions:           make(map[string]*actionRegistration),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.store == nil {
		store, err := openStore(cfg.Storage)
		if err != nil {
			return nil, err
		}
		a.store = store
	}
	if a.clientFor == nil {
		a.clientFor = func(accessToken string) install.PlatformAPI {
			return platform.NewClient(accessToken)
		}
	}
	if a.oauthClient == nil {
		a.oauthClient = oauth.NewClient(oauth.Config{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			RedirectURI:  cfg.BaseURL + "/auth/callback",
			Scopes:       cfg.OAuth.Scopes,
			AuthURL:      cfg.OAuth.AuthURL,
			TokenURL:     cfg.OAuth.TokenURL,
		})
	}

	a.tokens = token.NewManager(a.store, a.sealer, a.oauthClient, 0)
	a.installs = install.NewManager(a.store, a.sealer, a.clientFor, cfg.AppName)
	if a.appResolver == nil {
		a.appResolver = install.NewSecretResolver(a.installs)
	}
	return a, nil
}

func openStore(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		log.Warn("using in-memory storage, all state is lost on restart")
		return storage.NewMemoryStore(), nil
	case config.BackendSQLite:
		return storage.OpenSQLite(cfg.SQLitePath)
	case config.BackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return storage.OpenRedis(ctx, cfg.RedisURL, cfg.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Tokens exposes the token manager for user code that calls the platform
// on a user's behalf outside a handler.
func (a *App) Tokens() *token.Manager { return a.tokens }

// Installs exposes the installation manager.
func (a *App) Installs() *install.Manager { return a.installs }

// OnWebhook registers a handler for one or more webhook event types.
func (a *App) OnWebhook(eventTypes []string, handler WebhookHandler, opts ...HandlerOption) error {
	if len(eventTypes) == 0 {
		return &ConfigurationError{Detail: "no event types given"}
	}
	var hc handlerConfig
	for _, opt := range opts {
		opt(&hc)
	}
	if hc.requireAuth {
		return &ConfigurationError{EventType: eventTypes[0], Detail: "user auth is only supported on action handlers"}
	}

	strategy, err := a.buildStrategy(eventTypes[0], hc, EnvWebhookSecret)
	if err != nil {
		return err
	}

	reg := &webhookRegistration{handler: handler, strategy: strategy}
	for _, et := range eventTypes {
		if et == "" {
			return &ConfigurationError{EventType: et, Detail: "empty event type"}
		}
		if _, dup := a.webhooks[et]; dup {
			return &ConfigurationError{EventType: et, Detail: "already registered"}
		}
		if _, dup := a.actions[et]; dup {
			return &ConfigurationError{EventType: et, Detail: "already registered as an action"}
		}
		a.webhooks[et] = reg
	}
	return nil
}

// OnAction registers a custom action handler. Name and description are what
// users see in the Frame.io UI; they become part of the install manifest.
func (a *App) OnAction(eventType, name, description string, handler ActionHandler, opts ...HandlerOption) error {
	if eventType == "" {
		return &ConfigurationError{Detail: "empty event type"}
	}
	if name == "" {
		return &ConfigurationError{EventType: eventType, Detail: "action needs a name"}
	}
	if _, dup := a.actions[eventType]; dup {
		return &ConfigurationError{EventType: eventType, Detail: "already registered"}
	}
	if _, dup := a.webhooks[eventType]; dup {
		return &ConfigurationError{EventType: eventType, Detail: "already registered as a webhook"}
	}

	var hc handlerConfig
	for _, opt := range opts {
		opt(&hc)
	}
	if hc.requireAuth && (a.cfg.OAuth.ClientID == "" || a.cfg.OAuth.ClientSecret == "") {
		return &ConfigurationError{
			EventType: eventType,
			Detail:    "user auth requires OAuth client credentials to be configured",
		}
	}
	strategy, err := a.buildStrategy(eventType, hc, EnvActionSecret)
	if err != nil {
		return err
	}

	a.actions[eventType] = &actionRegistration{
		handler:     handler,
		strategy:    strategy,
		name:        name,
		description: description,
		requireAuth: hc.requireAuth,
	}
	return nil
}

// buildStrategy picks the secret source for a handler, in precedence
// order: static secret, handler resolver, app resolver, environment
// variable. The chosen source is authoritative at request time.
func (a *App) buildStrategy(eventType string, hc handlerConfig, envVar string) (secrets.Strategy, error) {
	strategy := secrets.Strategy{
		Static:   hc.secret,
		Resolver: hc.resolver,
		App:      a.appResolver,
	}
	if strategy.Static == "" && strategy.Resolver == nil && strategy.App == nil {
		strategy.Static = os.Getenv(envVar)
	}
	if strategy.Static == "" && strategy.Resolver == nil && strategy.App == nil {
		return secrets.Strategy{}, &ConfigurationError{
			EventType: eventType,
			Detail:    fmt.Sprintf("no secret source: set one explicitly, register a resolver, or set %s", envVar),
		}
	}
	return strategy, nil
}

// Manifest describes everything this app wants provisioned per workspace.
func (a *App) Manifest() install.Manifest {
	manifest := install.Manifest{}
	for et := range a.webhooks {
		manifest.WebhookEvents = append(manifest.WebhookEvents, et)
	}
	sort.Strings(manifest.WebhookEvents)

	for et, reg := range a.actions {
		manifest.Actions = append(manifest.Actions, install.ActionDefinition{
			EventType:   et,
			Name:        reg.name,
			Description: reg.description,
		})
	}
	sort.Slice(manifest.Actions, func(i, j int) bool {
		return manifest.Actions[i].EventType < manifest.Actions[j].EventType
	})
	return manifest
}

// endpointURL is where the platform delivers events.
func (a *App) endpointURL() string {
	return a.cfg.BaseURL + "/events"
}

// Router builds the HTTP surface: the event endpoint, the OAuth routes, and
// the install flow.
func (a *App) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/events", a.handleEvent)

	r.Get("/auth/login", a.handleAuthLogin)
	r.Get("/auth/callback", a.handleAuthCallback)

	r.Get("/install", a.handleInstallLanding)
	r.Get("/install/login", a.handleInstallLogin)
	// Alias for deployments whose OAuth redirect URI points under /install.
	r.Get("/install/callback", a.handleAuthCallback)
	r.Get("/install/workspaces", a.handleInstallWorkspaces)
	r.Get("/install/status", a.handleInstallStatus)
	r.Post("/install/execute", a.handleInstallExecute)
	r.Post("/install/uninstall", a.handleInstallUninstall)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests.
func (a *App) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", a.cfg.ListenAddr, "app", a.cfg.AppName)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	log.Info("shutting down")
	return server.Shutdown(shutdownCtx)
}
