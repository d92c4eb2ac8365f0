package install

import (
	"context"
	"fmt"

	"github.com/billyshambrook/frameio-kit/internal/event"
)

// SecretResolver resolves signing secrets from stored installation records,
// keyed by the workspace an event arrived from. It plugs in as the
// app-level resolver so multi-workspace apps verify each request with the
// secret issued at install time.
type SecretResolver struct {
	mgr *Manager
}

// NewSecretResolver wraps a Manager.
func NewSecretResolver(mgr *Manager) *SecretResolver {
	return &SecretResolver{mgr: mgr}
}

// WebhookSecret returns the webhook secret for the event's workspace.
func (r *SecretResolver) WebhookSecret(ctx context.Context, ev *event.WebhookEvent) (string, error) {
	inst, err := r.activeInstallation(ctx, ev.Workspace.ID)
	if err != nil {
		return "", err
	}
	if inst.Webhook == nil {
		return "", fmt.Errorf("installation for workspace %q has no webhook", ev.Workspace.ID)
	}
	return inst.Webhook.Secret, nil
}

// ActionSecret returns the secret of the action matching the event type in
// the event's workspace.
func (r *SecretResolver) ActionSecret(ctx context.Context, ev *event.ActionEvent) (string, error) {
	inst, err := r.activeInstallation(ctx, ev.Workspace.ID)
	if err != nil {
		return "", err
	}
	action := inst.actionByEventType(ev.Type)
	if action == nil {
		return "", fmt.Errorf("installation for workspace %q has no action for %q", ev.Workspace.ID, ev.Type)
	}
	return action.Secret, nil
}

func (r *SecretResolver) activeInstallation(ctx context.Context, workspaceID string) (*Installation, error) {
	inst, err := r.mgr.GetInstallation(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if !inst.Active() {
		return nil, &NotFoundError{WorkspaceID: workspaceID}
	}
	return inst, nil
}
