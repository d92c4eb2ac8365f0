package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/billyshambrook/frameio-kit/internal/event"
	"github.com/billyshambrook/frameio-kit/internal/install"
	"github.com/billyshambrook/frameio-kit/internal/log"
	"github.com/billyshambrook/frameio-kit/internal/secrets"
	"github.com/billyshambrook/frameio-kit/internal/signature"
	"github.com/billyshambrook/frameio-kit/internal/token"
)

const maxEventBody = 1 << 20

// handleEvent is the single endpoint all webhooks and actions are delivered
// to. Requests are authenticated by signature before the handler runs;
// payload validation details are only revealed to signed requests.
func (a *App) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		http.Error(w, "could not read request body", http.StatusBadRequest)
		return
	}

	eventType, err := event.ExtractType(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	timestamp := signature.Timestamp(r.Header)

	if reg, ok := a.webhooks[eventType]; ok {
		a.dispatchWebhook(w, r, reg, body, timestamp)
		return
	}
	if reg, ok := a.actions[eventType]; ok {
		a.dispatchAction(w, r, reg, body, timestamp)
		return
	}

	http.Error(w, fmt.Sprintf("no handler registered for event type %q", eventType), http.StatusNotFound)
}

func (a *App) dispatchWebhook(w http.ResponseWriter, r *http.Request, reg *webhookRegistration, body []byte, timestamp int64) {
	ctx := r.Context()

	ev, err := event.DecodeWebhook(body, timestamp)
	if err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	secret, err := reg.strategy.Resolve(ctx, ev)
	if err != nil {
		writeResolutionError(w, err)
		return
	}
	if !signature.Verify(r.Header, body, secret) {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	if err := ev.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	if err := reg.handler(ctx, ev); err != nil {
		log.WithWorkspace(ev.Workspace.ID).Error("webhook handler failed", "event_type", ev.Type, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (a *App) dispatchAction(w http.ResponseWriter, r *http.Request, reg *actionRegistration, body []byte, timestamp int64) {
	ctx := r.Context()

	ev, err := event.DecodeAction(body, timestamp)
	if err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	secret, err := reg.strategy.Resolve(ctx, ev)
	if err != nil {
		writeResolutionError(w, err)
		return
	}
	if !signature.Verify(r.Header, body, secret) {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	if err := ev.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	if reg.requireAuth {
		userToken, err := a.tokens.Token(ctx, ev.User.ID)
		var rerr *token.RefreshError
		if errors.As(err, &rerr) {
			// The stored token is gone; treat like a logged-out user.
			userToken = nil
		} else if err != nil {
			log.Error("loading user token failed", "user_id", ev.User.ID, "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if userToken == nil {
			writeJSON(w, a.loginForm(ev))
			return
		}
		ctx = withUserToken(ctx, userToken.AccessToken)
	}

	resp, err := reg.handler(ctx, ev)
	if err != nil {
		log.WithWorkspace(ev.Workspace.ID).Error("action handler failed", "event_type", ev.Type, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if resp == nil {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
		return
	}
	writeJSON(w, resp)
}

// loginForm prompts the user to connect their account before the action can
// run. The link carries the user and interaction so the callback can route
// the token to the right place.
func (a *App) loginForm(ev *event.ActionEvent) event.Form {
	q := url.Values{"user_id": {ev.User.ID}}
	if ev.InteractionID != "" {
		q.Set("interaction_id", ev.InteractionID)
	}
	loginURL := a.cfg.BaseURL + "/auth/login?" + q.Encode()

	return event.Form{
		Title:       "Authentication Required",
		Description: "Sign in to your account to continue.",
		Fields: []event.Field{
			event.NewLinkField("Sign in", "login_url", loginURL),
		},
	}
}

// writeResolutionError maps a failed secret resolution to a status. A
// missing installation means the request cannot be authenticated (401);
// anything else is a server-side fault.
func writeResolutionError(w http.ResponseWriter, err error) {
	var rerr *secrets.ResolutionError
	if errors.As(err, &rerr) {
		var nf *install.NotFoundError
		if errors.As(err, &nf) || rerr.Err == nil {
			http.Error(w, "could not authenticate request", http.StatusUnauthorized)
			return
		}
	}
	log.Error("secret resolution failed", "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("encoding response failed", "error", err)
	}
}
