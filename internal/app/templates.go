package app

import (
	"html/template"
	"net/http"

	"github.com/billyshambrook/frameio-kit/internal/install"
	"github.com/billyshambrook/frameio-kit/internal/log"
)

const baseStyle = `
body {
	font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
	background: #f7fafc;
	color: #2d3748;
	margin: 0;
	padding: 2rem;
}
.card {
	background: white;
	max-width: 640px;
	margin: 2rem auto;
	padding: 2rem;
	border-radius: 0.5rem;
	box-shadow: 0 4px 12px rgba(0,0,0,0.08);
}
h1 { margin-top: 0; }
table { width: 100%; border-collapse: collapse; }
th, td { text-align: left; padding: 0.5rem; border-bottom: 1px solid #e2e8f0; }
.badge { padding: 0.15rem 0.5rem; border-radius: 0.25rem; font-size: 0.85rem; }
.badge-installed { background: #c6f6d5; }
.badge-update { background: #fefcbf; }
.badge-none { background: #e2e8f0; }
button, .button {
	background: #5b4cdb;
	color: white;
	border: none;
	padding: 0.5rem 1rem;
	border-radius: 0.25rem;
	cursor: pointer;
	text-decoration: none;
	display: inline-block;
	font-size: 0.9rem;
}
button.secondary { background: #a0aec0; }
`

var pageTemplates = template.Must(template.New("pages").Parse(`
{{define "head"}}<!DOCTYPE html>
<html>
<head>
<title>{{.Title}}</title>
<style>` + baseStyle + `</style>
</head>
<body>
<div class="card">{{end}}

{{define "foot"}}</div>
</body>
</html>{{end}}

{{define "landing"}}{{template "head" .}}
<h1>{{.AppName}}</h1>
<p>This app subscribes to the following events:</p>
{{if .Manifest.WebhookEvents}}
<h3>Webhooks</h3>
<ul>{{range .Manifest.WebhookEvents}}<li><code>{{.}}</code></li>{{end}}</ul>
{{end}}
{{if .Manifest.Actions}}
<h3>Custom actions</h3>
<ul>{{range .Manifest.Actions}}<li><strong>{{.Name}}</strong> — {{.Description}}</li>{{end}}</ul>
{{end}}
<p><a class="button" href="/install/login">Sign in to install</a></p>
{{template "foot" .}}{{end}}

{{define "workspaces"}}{{template "head" .}}
<h1>Choose workspaces</h1>
<p>Select where to install {{.AppName}}.</p>
<table>
<tr><th>Account</th><th>Workspace</th><th>Status</th><th></th></tr>
{{range .Workspaces}}
<tr>
<td>{{.AccountName}}</td>
<td>{{.Name}}</td>
<td>
{{if eq .Status "installed"}}<span class="badge badge-installed">Installed</span>
{{else if eq .Status "update_available"}}<span class="badge badge-update">Update available</span>
{{else}}<span class="badge badge-none">Not installed</span>{{end}}
</td>
<td>
{{if eq .Status "not_installed"}}
<form method="post" action="/install/execute">
<input type="hidden" name="account_id" value="{{.AccountID}}">
<input type="hidden" name="workspace_id" value="{{.ID}}">
<input type="hidden" name="action" value="install">
<button type="submit">Install</button>
</form>
{{else if eq .Status "update_available"}}
<form method="post" action="/install/execute">
<input type="hidden" name="account_id" value="{{.AccountID}}">
<input type="hidden" name="workspace_id" value="{{.ID}}">
<input type="hidden" name="action" value="update">
<button type="submit">Update</button>
</form>
{{else}}
<form method="post" action="/install/uninstall">
<input type="hidden" name="workspace_id" value="{{.ID}}">
<button type="submit" class="secondary">Uninstall</button>
</form>
{{end}}
</td>
</tr>
{{end}}
</table>
{{template "foot" .}}{{end}}

{{define "result"}}{{template "head" .}}
<h1>{{.Heading}}</h1>
<p>{{.Detail}}</p>
<p><a class="button" href="/install/workspaces">Back to workspaces</a></p>
{{template "foot" .}}{{end}}

{{define "authsuccess"}}{{template "head" .}}
<h1>You're signed in</h1>
<p>You can close this window and return to Frame.io.</p>
<script>setTimeout(function() { window.close(); }, 3000);</script>
{{template "foot" .}}{{end}}

{{define "error"}}{{template "head" .}}
<h1>Something went wrong</h1>
<p>{{.Detail}}</p>
{{template "foot" .}}{{end}}
`))

func renderPage(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		log.Error("rendering page failed", "template", name, "error", err)
	}
}

func renderLanding(w http.ResponseWriter, appName string, manifest install.Manifest) {
	renderPage(w, http.StatusOK, "landing", struct {
		Title    string
		AppName  string
		Manifest install.Manifest
	}{Title: appName, AppName: appName, Manifest: manifest})
}

func renderWorkspaces(w http.ResponseWriter, appName string, workspaces []workspaceView) {
	renderPage(w, http.StatusOK, "workspaces", struct {
		Title      string
		AppName    string
		Workspaces []workspaceView
	}{Title: "Choose workspaces", AppName: appName, Workspaces: workspaces})
}

func renderResult(w http.ResponseWriter, appName, heading, detail string) {
	renderPage(w, http.StatusOK, "result", struct {
		Title   string
		Heading string
		Detail  string
	}{Title: appName, Heading: heading, Detail: detail})
}

func renderAuthSuccess(w http.ResponseWriter) {
	renderPage(w, http.StatusOK, "authsuccess", struct{ Title string }{Title: "Signed in"})
}

func renderError(w http.ResponseWriter, status int, detail string) {
	renderPage(w, status, "error", struct {
		Title  string
		Detail string
	}{Title: "Error", Detail: detail})
}
