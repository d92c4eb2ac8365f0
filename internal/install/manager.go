package install

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/billyshambrook/frameio-kit/internal/encryption"
	"github.com/billyshambrook/frameio-kit/internal/log"
	"github.com/billyshambrook/frameio-kit/internal/storage"
)

//go:generate mockgen -destination=mocks/mock_platform.go -package=mocks github.com/billyshambrook/frameio-kit/internal/install PlatformAPI

// PlatformAPI is the slice of the Frame.io API the manager provisions
// through. Create calls return the platform-issued record including the
// signing secret.
type PlatformAPI interface {
	CreateWebhook(ctx context.Context, accountID, workspaceID, name string, events []string, url string) (*WebhookRecord, error)
	UpdateWebhook(ctx context.Context, accountID, webhookID string, events []string) error
	DeleteWebhook(ctx context.Context, accountID, webhookID string) error

	CreateAction(ctx context.Context, accountID, workspaceID string, def ActionDefinition, url string) (*ActionRecord, error)
	UpdateAction(ctx context.Context, accountID, actionID, name, description string) error
	DeleteAction(ctx context.Context, accountID, actionID string) error
}

// ClientFactory builds a PlatformAPI authenticated as the given user.
type ClientFactory func(accessToken string) PlatformAPI

// Manager orchestrates installation lifecycle against storage and the
// platform API.
type Manager struct {
	store     storage.Store
	sealer    *encryption.Sealer
	clientFor ClientFactory
	logger    *slog.Logger

	// AppName labels provisioned webhooks in the Frame.io UI.
	AppName string
}

// NewManager wires a Manager.
func NewManager(store storage.Store, sealer *encryption.Sealer, clientFor ClientFactory, appName string) *Manager {
	return &Manager{
		store:     store,
		sealer:    sealer,
		clientFor: clientFor,
		logger:    log.WithComponent("install"),
		AppName:   appName,
	}
}

func installKey(workspaceID string) string { return "install:" + workspaceID }
func indexKey(userID string) string        { return "install:index:" + userID }

func validateUUID(field, value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return fmt.Errorf("%s %q is not a valid UUID", field, value)
	}
	return nil
}

// Install provisions the manifest into a workspace and stores the resulting
// installation. Fails with ErrAlreadyInstalled when an active installation
// exists. Partially created resources are cleaned up best-effort on failure.
func (m *Manager) Install(ctx context.Context, accessToken, accountID, workspaceID, userID string, manifest Manifest, endpointURL string) (*Installation, error) {
	if err := validateUUID("account_id", accountID); err != nil {
		return nil, err
	}
	if err := validateUUID("workspace_id", workspaceID); err != nil {
		return nil, err
	}
	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	existing, err := m.GetInstallation(ctx, workspaceID)
	if err != nil {
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}
	if existing != nil && existing.Active() {
		return nil, ErrAlreadyInstalled
	}

	api := m.clientFor(accessToken)
	now := time.Now().UTC()
	inst := &Installation{
		AccountID:    accountID,
		WorkspaceID:  workspaceID,
		UserID:       userID,
		Status:       StatusActive,
		ManifestHash: manifest.Hash(),
		InstalledAt:  now,
		UpdatedAt:    now,
	}

	if len(manifest.WebhookEvents) > 0 {
		events := append([]string(nil), manifest.WebhookEvents...)
		sort.Strings(events)
		webhook, err := api.CreateWebhook(ctx, accountID, workspaceID, m.AppName, events, endpointURL)
		if err != nil {
			return nil, fmt.Errorf("creating webhook: %w", err)
		}
		inst.Webhook = webhook
	}

	for _, def := range manifest.Actions {
		action, err := api.CreateAction(ctx, accountID, workspaceID, def, endpointURL)
		if err != nil {
			m.rollback(ctx, api, inst)
			return nil, fmt.Errorf("creating action %q: %w", def.EventType, err)
		}
		inst.Actions = append(inst.Actions, *action)
	}

	if err := m.save(ctx, inst); err != nil {
		m.rollback(ctx, api, inst)
		return nil, err
	}
	if err := m.indexAdd(ctx, userID, workspaceID); err != nil {
		return nil, err
	}

	m.logger.Info("installed into workspace",
		"workspace_id", workspaceID, "account_id", accountID,
		"actions", len(inst.Actions), "webhook", inst.Webhook != nil)
	return inst, nil
}

// rollback deletes whatever Install managed to provision before failing.
func (m *Manager) rollback(ctx context.Context, api PlatformAPI, inst *Installation) {
	if inst.Webhook != nil {
		if err := api.DeleteWebhook(ctx, inst.AccountID, inst.Webhook.ID); err != nil {
			m.logger.Warn("rollback: could not delete webhook",
				"webhook_id", inst.Webhook.ID, "error", err)
		}
	}
	for _, action := range inst.Actions {
		if err := api.DeleteAction(ctx, inst.AccountID, action.ID); err != nil {
			m.logger.Warn("rollback: could not delete action",
				"action_id", action.ID, "error", err)
		}
	}
}

// GetInstallation loads the stored installation for a workspace, active or
// not. Returns a NotFoundError when none exists.
func (m *Manager) GetInstallation(ctx context.Context, workspaceID string) (*Installation, error) {
	sealed, ok, err := m.store.Get(ctx, installKey(workspaceID))
	if err != nil {
		return nil, fmt.Errorf("loading installation for workspace %q: %w", workspaceID, err)
	}
	if !ok {
		return nil, &NotFoundError{WorkspaceID: workspaceID}
	}

	raw, err := m.sealer.Decrypt(sealed)
	if err != nil {
		return nil, fmt.Errorf("unsealing installation for workspace %q: %w", workspaceID, err)
	}
	var inst Installation
	if err := json.Unmarshal(raw, &inst); err != nil {
		return nil, fmt.Errorf("decoding installation for workspace %q: %w", workspaceID, err)
	}
	return &inst, nil
}

// ComputeDiff compares a stored installation against the desired manifest.
// Actions are matched by event type.
func (m *Manager) ComputeDiff(inst *Installation, manifest Manifest) Diff {
	var diff Diff

	existing := make(map[string]ActionRecord, len(inst.Actions))
	for _, a := range inst.Actions {
		existing[a.EventType] = a
	}
	desired := make(map[string]ActionDefinition, len(manifest.Actions))
	for _, d := range manifest.Actions {
		desired[d.EventType] = d
	}

	for _, d := range manifest.Actions {
		current, ok := existing[d.EventType]
		if !ok {
			diff.AddedActions = append(diff.AddedActions, d)
			continue
		}
		if current.Name != d.Name || current.Description != d.Description {
			diff.ModifiedActions = append(diff.ModifiedActions, ActionChange{
				Record:      current,
				Name:        d.Name,
				Description: d.Description,
			})
		}
	}
	for _, a := range inst.Actions {
		if _, ok := desired[a.EventType]; !ok {
			diff.RemovedActions = append(diff.RemovedActions, a)
		}
	}

	sort.Slice(diff.AddedActions, func(i, j int) bool {
		return diff.AddedActions[i].EventType < diff.AddedActions[j].EventType
	})
	sort.Slice(diff.RemovedActions, func(i, j int) bool {
		return diff.RemovedActions[i].EventType < diff.RemovedActions[j].EventType
	})
	sort.Slice(diff.ModifiedActions, func(i, j int) bool {
		return diff.ModifiedActions[i].Record.EventType < diff.ModifiedActions[j].Record.EventType
	})

	wantEvents := append([]string(nil), manifest.WebhookEvents...)
	sort.Strings(wantEvents)
	haveSet := make(map[string]bool)
	if inst.Webhook != nil {
		for _, e := range inst.Webhook.Events {
			haveSet[e] = true
		}
	}
	wantSet := make(map[string]bool, len(wantEvents))
	for _, e := range wantEvents {
		wantSet[e] = true
		if !haveSet[e] {
			diff.WebhookEventsAdded = append(diff.WebhookEventsAdded, e)
		}
	}
	if inst.Webhook != nil {
		for _, e := range inst.Webhook.Events {
			if !wantSet[e] {
				diff.WebhookEventsRemoved = append(diff.WebhookEventsRemoved, e)
			}
		}
	}
	sort.Strings(diff.WebhookEventsAdded)
	sort.Strings(diff.WebhookEventsRemoved)
	if diff.WebhookChanged() {
		diff.WebhookEvents = wantEvents
	}

	return diff
}

// NeedsUpdate reports whether the stored installation diverges from the
// manifest. The manifest hash is checked first as a cheap short-circuit.
func (m *Manager) NeedsUpdate(inst *Installation, manifest Manifest) bool {
	if inst.ManifestHash == manifest.Hash() {
		return false
	}
	return m.ComputeDiff(inst, manifest).HasChanges()
}

// Update applies the diff between the stored installation and the manifest.
// Existing actions keep their identity and secret; only name and description
// are patched. A no-op diff returns the installation unchanged.
func (m *Manager) Update(ctx context.Context, accessToken, workspaceID string, manifest Manifest, endpointURL string) (*Installation, error) {
	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	inst, err := m.GetInstallation(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if !inst.Active() {
		return nil, &NotFoundError{WorkspaceID: workspaceID}
	}

	diff := m.ComputeDiff(inst, manifest)
	if !diff.HasChanges() {
		return inst, nil
	}

	api := m.clientFor(accessToken)

	if diff.WebhookChanged() {
		switch {
		case len(diff.WebhookEvents) == 0 && inst.Webhook != nil:
			if err := api.DeleteWebhook(ctx, inst.AccountID, inst.Webhook.ID); err != nil {
				return nil, fmt.Errorf("deleting webhook: %w", err)
			}
			inst.Webhook = nil
		case inst.Webhook == nil:
			webhook, err := api.CreateWebhook(ctx, inst.AccountID, workspaceID, m.AppName, diff.WebhookEvents, endpointURL)
			if err != nil {
				return nil, fmt.Errorf("creating webhook: %w", err)
			}
			inst.Webhook = webhook
		default:
			if err := api.UpdateWebhook(ctx, inst.AccountID, inst.Webhook.ID, diff.WebhookEvents); err != nil {
				return nil, fmt.Errorf("updating webhook: %w", err)
			}
			inst.Webhook.Events = diff.WebhookEvents
		}
	}

	for _, def := range diff.AddedActions {
		action, err := api.CreateAction(ctx, inst.AccountID, workspaceID, def, endpointURL)
		if err != nil {
			return nil, fmt.Errorf("creating action %q: %w", def.EventType, err)
		}
		inst.Actions = append(inst.Actions, *action)
	}
	for _, removed := range diff.RemovedActions {
		if err := api.DeleteAction(ctx, inst.AccountID, removed.ID); err != nil {
			return nil, fmt.Errorf("deleting action %q: %w", removed.EventType, err)
		}
		inst.Actions = deleteAction(inst.Actions, removed.ID)
	}
	for _, change := range diff.ModifiedActions {
		if err := api.UpdateAction(ctx, inst.AccountID, change.Record.ID, change.Name, change.Description); err != nil {
			return nil, fmt.Errorf("updating action %q: %w", change.Record.EventType, err)
		}
		if current := inst.actionByEventType(change.Record.EventType); current != nil {
			current.Name = change.Name
			current.Description = change.Description
		}
	}

	inst.ManifestHash = manifest.Hash()
	inst.UpdatedAt = time.Now().UTC()
	if err := m.save(ctx, inst); err != nil {
		return nil, err
	}

	m.logger.Info("updated installation",
		"workspace_id", workspaceID,
		"added", len(diff.AddedActions), "removed", len(diff.RemovedActions),
		"modified", len(diff.ModifiedActions), "webhook_changed", diff.WebhookChanged())
	return inst, nil
}

// Uninstall tears down the provisioned resources best-effort and marks the
// installation uninstalled. Platform delete failures are logged and
// swallowed so a half-reachable API cannot strand the record.
func (m *Manager) Uninstall(ctx context.Context, accessToken, workspaceID string) error {
	inst, err := m.GetInstallation(ctx, workspaceID)
	if err != nil {
		return err
	}

	api := m.clientFor(accessToken)
	if inst.Webhook != nil {
		if err := api.DeleteWebhook(ctx, inst.AccountID, inst.Webhook.ID); err != nil {
			m.logger.Warn("uninstall: could not delete webhook",
				"workspace_id", workspaceID, "webhook_id", inst.Webhook.ID, "error", err)
		}
	}
	for _, action := range inst.Actions {
		if err := api.DeleteAction(ctx, inst.AccountID, action.ID); err != nil {
			m.logger.Warn("uninstall: could not delete action",
				"workspace_id", workspaceID, "action_id", action.ID, "error", err)
		}
	}

	inst.Status = StatusUninstalled
	inst.UpdatedAt = time.Now().UTC()
	if err := m.save(ctx, inst); err != nil {
		return err
	}
	if err := m.indexRemove(ctx, inst.UserID, workspaceID); err != nil {
		return err
	}

	m.logger.Info("uninstalled from workspace", "workspace_id", workspaceID)
	return nil
}

// ListInstallations returns the active installations recorded for a user.
func (m *Manager) ListInstallations(ctx context.Context, userID string) ([]*Installation, error) {
	workspaceIDs, err := m.index(ctx, userID)
	if err != nil {
		return nil, err
	}

	var out []*Installation
	for _, wsID := range workspaceIDs {
		inst, err := m.GetInstallation(ctx, wsID)
		if err != nil {
			var nf *NotFoundError
			if errors.As(err, &nf) {
				continue
			}
			return nil, err
		}
		if inst.Active() {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (m *Manager) save(ctx context.Context, inst *Installation) error {
	raw, err := json.Marshal(inst)
	if err != nil {
		return fmt.Errorf("encoding installation for workspace %q: %w", inst.WorkspaceID, err)
	}
	sealed, err := m.sealer.Encrypt(raw)
	if err != nil {
		return fmt.Errorf("sealing installation for workspace %q: %w", inst.WorkspaceID, err)
	}
	if err := m.store.Put(ctx, installKey(inst.WorkspaceID), sealed, 0); err != nil {
		return fmt.Errorf("storing installation for workspace %q: %w", inst.WorkspaceID, err)
	}
	return nil
}

func (m *Manager) index(ctx context.Context, userID string) ([]string, error) {
	raw, ok, err := m.store.Get(ctx, indexKey(userID))
	if err != nil {
		return nil, fmt.Errorf("loading installation index for user %q: %w", userID, err)
	}
	if !ok {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decoding installation index for user %q: %w", userID, err)
	}
	return ids, nil
}

func (m *Manager) writeIndex(ctx context.Context, userID string, ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encoding installation index for user %q: %w", userID, err)
	}
	if err := m.store.Put(ctx, indexKey(userID), raw, 0); err != nil {
		return fmt.Errorf("storing installation index for user %q: %w", userID, err)
	}
	return nil
}

func (m *Manager) indexAdd(ctx context.Context, userID, workspaceID string) error {
	ids, err := m.index(ctx, userID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == workspaceID {
			return nil
		}
	}
	return m.writeIndex(ctx, userID, append(ids, workspaceID))
}

func (m *Manager) indexRemove(ctx context.Context, userID, workspaceID string) error {
	ids, err := m.index(ctx, userID)
	if err != nil {
		return err
	}
	kept := ids[:0]
	for _, id := range ids {
		if id != workspaceID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(ids) {
		return nil
	}
	return m.writeIndex(ctx, userID, kept)
}

func deleteAction(actions []ActionRecord, id string) []ActionRecord {
	out := actions[:0]
	for _, a := range actions {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}
