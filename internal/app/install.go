package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/billyshambrook/frameio-kit/internal/install"
	"github.com/billyshambrook/frameio-kit/internal/log"
	"github.com/billyshambrook/frameio-kit/internal/oauth"
	"github.com/billyshambrook/frameio-kit/internal/platform"
)

// directoryClient is the part of the platform API the browser install flow
// needs: who the user is and what they can install into.
type directoryClient interface {
	Me(ctx context.Context) (*platform.User, error)
	Accounts(ctx context.Context) ([]platform.Account, error)
	Workspaces(ctx context.Context, accountID string) ([]platform.Workspace, error)
}

func (a *App) directory(accessToken string) directoryClient {
	if a.directoryFor != nil {
		return a.directoryFor(accessToken)
	}
	return platform.NewClient(accessToken)
}

// redirectToLanding sends a visitor without a valid session back to the
// start of the install flow.
func redirectToLanding(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/install", http.StatusFound)
}

// handleInstallLanding shows the entry page with the app's manifest and an
// install button.
func (a *App) handleInstallLanding(w http.ResponseWriter, r *http.Request) {
	renderLanding(w, a.cfg.AppName, a.Manifest())
}

// handleInstallLogin starts the OAuth flow for installation. The state
// carries the flow marker so the shared callback knows where to send the
// user next.
func (a *App) handleInstallLogin(w http.ResponseWriter, r *http.Request) {
	state, err := a.createState(r.Context(), stateRecord{Flow: flowInstall})
	if err != nil {
		log.Error("creating oauth state failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, a.oauthClient.AuthorizationURL(state), http.StatusFound)
}

// finishInstallLogin runs after the OAuth callback for the install flow:
// identify the user, persist their token, and hand them a signed session
// cookie for the workspace picker.
func (a *App) finishInstallLogin(w http.ResponseWriter, r *http.Request, tokenData *oauth.TokenData) {
	ctx := r.Context()

	me, err := a.directory(tokenData.AccessToken).Me(ctx)
	if err != nil {
		log.Error("identifying user failed", "error", err)
		renderError(w, http.StatusInternalServerError, "Could not look up your account. Please try again.")
		return
	}

	if err := a.tokens.Store(ctx, me.ID, tokenData); err != nil {
		log.Error("storing token failed", "user_id", me.ID, "error", err)
		renderError(w, http.StatusInternalServerError, "Sign-in failed. Please try again.")
		return
	}

	session, err := a.createSession(ctx, me.ID, tokenData)
	if err != nil {
		log.Error("creating install session failed", "user_id", me.ID, "error", err)
		renderError(w, http.StatusInternalServerError, "Sign-in failed. Please try again.")
		return
	}

	a.setSessionCookie(w, session.ID)
	http.Redirect(w, r, "/install/workspaces", http.StatusFound)
}

// workspaceStatus values shown on the picker page.
const (
	statusNotInstalled    = "not_installed"
	statusInstalled       = "installed"
	statusUpdateAvailable = "update_available"
)

type workspaceView struct {
	AccountID   string
	AccountName string
	ID          string
	Name        string
	Status      string
}

// handleInstallWorkspaces lists the workspaces the user can reach, with the
// current installation status of each. An account_id query parameter limits
// the listing to one account.
func (a *App) handleInstallWorkspaces(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := a.sessionFromRequest(r)
	if !ok {
		redirectToLanding(w, r)
		return
	}

	dir := a.directory(session.Token.AccessToken)
	accounts, err := dir.Accounts(ctx)
	if err != nil {
		log.Error("listing accounts failed", "error", err)
		renderError(w, http.StatusInternalServerError, "Could not list your accounts. Please try again.")
		return
	}

	onlyAccount := r.URL.Query().Get("account_id")
	manifest := a.Manifest()
	var views []workspaceView
	for _, account := range accounts {
		if onlyAccount != "" && account.ID != onlyAccount {
			continue
		}
		workspaces, err := dir.Workspaces(ctx, account.ID)
		if err != nil {
			log.Error("listing workspaces failed", "account_id", account.ID, "error", err)
			renderError(w, http.StatusInternalServerError, "Could not list your workspaces. Please try again.")
			return
		}
		for _, ws := range workspaces {
			views = append(views, workspaceView{
				AccountID:   account.ID,
				AccountName: account.Name,
				ID:          ws.ID,
				Name:        ws.Name,
				Status:      a.workspaceStatus(ctx, ws.ID, manifest),
			})
		}
	}

	renderWorkspaces(w, a.cfg.AppName, views)
}

func (a *App) workspaceStatus(ctx context.Context, workspaceID string, manifest install.Manifest) string {
	inst, err := a.installs.GetInstallation(ctx, workspaceID)
	if err != nil || !inst.Active() {
		return statusNotInstalled
	}
	if a.installs.NeedsUpdate(inst, manifest) {
		return statusUpdateAvailable
	}
	return statusInstalled
}

// handleInstallStatus reports one workspace's installation status as JSON.
func (a *App) handleInstallStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	accountID, workspaceID := q.Get("account_id"), q.Get("workspace_id")
	if workspaceID == "" {
		http.Error(w, "missing workspace_id parameter", http.StatusBadRequest)
		return
	}

	writeJSON(w, struct {
		AccountID   string `json:"account_id,omitempty"`
		WorkspaceID string `json:"workspace_id"`
		Status      string `json:"status"`
	}{
		AccountID:   accountID,
		WorkspaceID: workspaceID,
		Status:      a.workspaceStatus(r.Context(), workspaceID, a.Manifest()),
	})
}

// handleInstallExecute installs or updates the app in one workspace.
func (a *App) handleInstallExecute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := a.sessionFromRequest(r)
	if !ok {
		redirectToLanding(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		renderError(w, http.StatusBadRequest, "Malformed form submission.")
		return
	}

	accountID := r.PostFormValue("account_id")
	workspaceID := r.PostFormValue("workspace_id")
	manifest := a.Manifest()

	var err error
	var verb string
	switch {
	case r.PostFormValue("action") == "update":
		verb = "updated"
		_, err = a.installs.Update(ctx, session.Token.AccessToken, workspaceID, manifest, a.endpointURL())
	default:
		verb = "installed"
		_, err = a.installs.Install(ctx, session.Token.AccessToken, accountID, workspaceID, session.UserID, manifest, a.endpointURL())
	}
	if err != nil {
		if errors.Is(err, install.ErrAlreadyInstalled) {
			renderError(w, http.StatusConflict, "This workspace already has the app installed.")
			return
		}
		log.Error("install failed", "workspace_id", workspaceID, "error", err)
		renderError(w, http.StatusInternalServerError, "Installation failed. Please try again.")
		return
	}

	renderResult(w, a.cfg.AppName, "Success", "The app was "+verb+" in the workspace.")
}

// handleInstallUninstall removes the app from one workspace.
func (a *App) handleInstallUninstall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := a.sessionFromRequest(r)
	if !ok {
		redirectToLanding(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		renderError(w, http.StatusBadRequest, "Malformed form submission.")
		return
	}

	workspaceID := r.PostFormValue("workspace_id")
	if err := a.installs.Uninstall(ctx, session.Token.AccessToken, workspaceID); err != nil {
		var nf *install.NotFoundError
		if errors.As(err, &nf) {
			renderError(w, http.StatusNotFound, "The app is not installed in this workspace.")
			return
		}
		log.Error("uninstall failed", "workspace_id", workspaceID, "error", err)
		renderError(w, http.StatusInternalServerError, "Uninstall failed. Please try again.")
		return
	}

	renderResult(w, a.cfg.AppName, "Uninstalled", "The app was removed from the workspace.")
}
