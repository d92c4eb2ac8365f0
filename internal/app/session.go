package app

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/billyshambrook/frameio-kit/internal/oauth"
)

// sessionCookieName holds the signed install session reference. The cookie
// only names a storage-backed record; the access token inside that record
// never leaves the server.
const sessionCookieName = "frameio_install_session"

// installSession carries the installing user's identity and token between
// the OAuth callback and the install form submissions. Sealed at rest.
type installSession struct {
	ID     string           `json:"id"`
	UserID string           `json:"user_id"`
	Token  *oauth.TokenData `json:"token"`
}

func sessionKey(id string) string { return "install_session:" + id }

func newSessionSigningKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// signSessionID produces the cookie value: the session id plus an HMAC tag
// so a guessed or tampered id never reaches storage.
func (a *App) signSessionID(id string) string {
	mac := hmac.New(sha256.New, a.sessionSigningKey)
	mac.Write([]byte(id))
	return id + "." + hex.EncodeToString(mac.Sum(nil))
}

func (a *App) verifySessionCookie(value string) (string, bool) {
	id, tag, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	mac := hmac.New(sha256.New, a.sessionSigningKey)
	mac.Write([]byte(id))
	want, err := hex.DecodeString(tag)
	if err != nil || !hmac.Equal(want, mac.Sum(nil)) {
		return "", false
	}
	return id, true
}

func (a *App) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    a.signSessionID(id),
		Path:     "/install",
		MaxAge:   int(installSessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   strings.HasPrefix(a.cfg.BaseURL, "https://"),
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *App) createSession(ctx context.Context, userID string, tokenData *oauth.TokenData) (*installSession, error) {
	session := &installSession{ID: uuid.NewString(), UserID: userID, Token: tokenData}
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}
	sealed, err := a.sealer.Encrypt(raw)
	if err != nil {
		return nil, err
	}
	if err := a.store.Put(ctx, sessionKey(session.ID), sealed, installSessionTTL); err != nil {
		return nil, err
	}
	return session, nil
}

func (a *App) loadSession(ctx context.Context, id string) (*installSession, bool) {
	if id == "" {
		return nil, false
	}
	sealed, ok, err := a.store.Get(ctx, sessionKey(id))
	if err != nil || !ok {
		return nil, false
	}
	raw, err := a.sealer.Decrypt(sealed)
	if err != nil {
		return nil, false
	}
	var session installSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, false
	}
	return &session, true
}

// sessionFromRequest resolves the install session named by the signed
// cookie. Missing, forged, or expired sessions all come back as not-ok.
func (a *App) sessionFromRequest(r *http.Request) (*installSession, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil, false
	}
	id, ok := a.verifySessionCookie(cookie.Value)
	if !ok {
		return nil, false
	}
	return a.loadSession(r.Context(), id)
}
