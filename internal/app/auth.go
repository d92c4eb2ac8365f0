package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/billyshambrook/frameio-kit/internal/log"
)

const (
	oauthStateTTL     = 10 * time.Minute
	installSessionTTL = 10 * time.Minute

	flowLogin   = "login"
	flowInstall = "install"
)

// stateRecord is the CSRF state stored while the user is away at the
// authorization page. Single use: the callback consumes it.
type stateRecord struct {
	Flow          string `json:"flow"`
	UserID        string `json:"user_id,omitempty"`
	InteractionID string `json:"interaction_id,omitempty"`
}

func stateKey(state string) string { return "oauth_state:" + state }

func (a *App) createState(ctx context.Context, record stateRecord) (string, error) {
	state := uuid.NewString()
	raw, err := json.Marshal(record)
	if err != nil {
		return "", err
	}
	if err := a.store.Put(ctx, stateKey(state), raw, oauthStateTTL); err != nil {
		return "", err
	}
	return state, nil
}

// consumeState validates and deletes a state token. A token can only ever
// be redeemed once.
func (a *App) consumeState(ctx context.Context, state string) (*stateRecord, bool) {
	raw, ok, err := a.store.Get(ctx, stateKey(state))
	if err != nil || !ok {
		return nil, false
	}
	if err := a.store.Delete(ctx, stateKey(state)); err != nil {
		return nil, false
	}
	var record stateRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, false
	}
	return &record, true
}

// handleAuthLogin starts the login flow for a user who hit an
// auth-required action.
func (a *App) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "missing user_id parameter", http.StatusBadRequest)
		return
	}

	state, err := a.createState(r.Context(), stateRecord{
		Flow:          flowLogin,
		UserID:        userID,
		InteractionID: r.URL.Query().Get("interaction_id"),
	})
	if err != nil {
		log.Error("creating oauth state failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, a.oauthClient.AuthorizationURL(state), http.StatusFound)
}

// handleAuthCallback finishes both the login and install flows. The state
// record decides which one the user came from.
func (a *App) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		// The user declined at the provider, or the provider refused the
		// request outright. There is no code to exchange.
		if state := q.Get("state"); state != "" {
			a.consumeState(r.Context(), state)
		}
		log.Warn("authorization denied by provider", "reason", reason, "description", q.Get("error_description"))
		renderError(w, http.StatusForbidden, "Authorization was denied. You can close this window, or try again if this was a mistake.")
		return
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		renderError(w, http.StatusBadRequest, "Missing code or state parameter.")
		return
	}

	record, ok := a.consumeState(r.Context(), state)
	if !ok {
		renderError(w, http.StatusBadRequest, "The sign-in link is invalid or has expired. Please try again.")
		return
	}

	tokenData, err := a.oauthClient.ExchangeCode(r.Context(), code)
	if err != nil {
		log.Error("code exchange failed", "flow", record.Flow, "error", err)
		renderError(w, http.StatusInternalServerError, "Sign-in failed. Please close this window and try again.")
		return
	}

	switch record.Flow {
	case flowInstall:
		a.finishInstallLogin(w, r, tokenData)
	default:
		if err := a.tokens.Store(r.Context(), record.UserID, tokenData); err != nil {
			log.Error("storing token failed", "user_id", record.UserID, "error", err)
			renderError(w, http.StatusInternalServerError, "Sign-in failed. Please close this window and try again.")
			return
		}
		log.Info("user authenticated", "user_id", record.UserID)
		renderAuthSuccess(w)
	}
}
