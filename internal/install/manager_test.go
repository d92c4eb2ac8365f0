package install

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billyshambrook/frameio-kit/internal/encryption"
	"github.com/billyshambrook/frameio-kit/internal/storage"
)

const endpointURL = "https://app.example.com/events"

var (
	accountID   = uuid.NewString()
	workspaceID = uuid.NewString()
	userID      = "user-1"
)

// fakeAPI records every platform call and issues deterministic records.
type fakeAPI struct {
	createdWebhooks []string
	deletedWebhooks []string
	updatedWebhooks map[string][]string
	createdActions  []string
	deletedActions  []string
	updatedActions  map[string][2]string

	failCreateAction map[string]error
	failDeleteAll    bool

	nextID int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		updatedWebhooks:  make(map[string][]string),
		updatedActions:   make(map[string][2]string),
		failCreateAction: make(map[string]error),
	}
}

func (f *fakeAPI) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeAPI) CreateWebhook(_ context.Context, _, _, name string, events []string, url string) (*WebhookRecord, error) {
	id := f.id("wh")
	f.createdWebhooks = append(f.createdWebhooks, id)
	return &WebhookRecord{ID: id, URL: url, Secret: "whsec-" + id, Events: events}, nil
}

func (f *fakeAPI) UpdateWebhook(_ context.Context, _, webhookID string, events []string) error {
	f.updatedWebhooks[webhookID] = events
	return nil
}

func (f *fakeAPI) DeleteWebhook(_ context.Context, _, webhookID string) error {
	if f.failDeleteAll {
		return errors.New("platform unavailable")
	}
	f.deletedWebhooks = append(f.deletedWebhooks, webhookID)
	return nil
}

func (f *fakeAPI) CreateAction(_ context.Context, _, _ string, def ActionDefinition, url string) (*ActionRecord, error) {
	if err := f.failCreateAction[def.EventType]; err != nil {
		return nil, err
	}
	id := f.id("act")
	f.createdActions = append(f.createdActions, id)
	return &ActionRecord{
		ID:          id,
		EventType:   def.EventType,
		Name:        def.Name,
		Description: def.Description,
		Secret:      "actsec-" + id,
		URL:         url,
	}, nil
}

func (f *fakeAPI) UpdateAction(_ context.Context, _, actionID, name, description string) error {
	f.updatedActions[actionID] = [2]string{name, description}
	return nil
}

func (f *fakeAPI) DeleteAction(_ context.Context, _, actionID string) error {
	if f.failDeleteAll {
		return errors.New("platform unavailable")
	}
	f.deletedActions = append(f.deletedActions, actionID)
	return nil
}

func newTestManager(t *testing.T) (*Manager, *fakeAPI, storage.Store) {
	t.Helper()
	key, err := encryption.GenerateKey()
	require.NoError(t, err)
	sealer, err := encryption.New(key)
	require.NoError(t, err)

	api := newFakeAPI()
	store := storage.NewMemoryStore()
	mgr := NewManager(store, sealer, func(string) PlatformAPI { return api }, "Test App")
	return mgr, api, store
}

func fullManifest() Manifest {
	return Manifest{
		WebhookEvents: []string{"file.ready", "comment.created"},
		Actions: []ActionDefinition{
			{EventType: "transcribe.start", Name: "Transcribe", Description: "Generate a transcript"},
			{EventType: "proxy.make", Name: "Make Proxy", Description: "Render a proxy"},
		},
	}
}

func TestInstall(t *testing.T) {
	ctx := context.Background()
	mgr, api, _ := newTestManager(t)

	inst, err := mgr.Install(ctx, "at", accountID, workspaceID, userID, fullManifest(), endpointURL)
	require.NoError(t, err)

	assert.Equal(t, StatusActive, inst.Status)
	assert.Equal(t, accountID, inst.AccountID)
	assert.Equal(t, workspaceID, inst.WorkspaceID)
	assert.Equal(t, userID, inst.UserID)
	assert.False(t, inst.InstalledAt.IsZero())
	assert.NotEmpty(t, inst.ManifestHash)

	require.NotNil(t, inst.Webhook)
	assert.NotEmpty(t, inst.Webhook.Secret)
	assert.ElementsMatch(t, []string{"file.ready", "comment.created"}, inst.Webhook.Events)
	assert.Len(t, inst.Actions, 2)
	assert.Len(t, api.createdWebhooks, 1)
	assert.Len(t, api.createdActions, 2)

	loaded, err := mgr.GetInstallation(ctx, workspaceID)
	require.NoError(t, err)
	assert.Equal(t, inst.Webhook.Secret, loaded.Webhook.Secret)
}

func TestInstallNoWebhookEvents(t *testing.T) {
	ctx := context.Background()
	mgr, api, _ := newTestManager(t)

	manifest := Manifest{Actions: []ActionDefinition{{EventType: "a.b", Name: "A"}}}
	inst, err := mgr.Install(ctx, "at", accountID, workspaceID, userID, manifest, endpointURL)
	require.NoError(t, err)

	assert.Nil(t, inst.Webhook)
	assert.Empty(t, api.createdWebhooks)
	assert.Len(t, inst.Actions, 1)
}

func TestInstallRejectsActiveExisting(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newTestManager(t)

	_, err := mgr.Install(ctx, "at", accountID, workspaceID, userID, fullManifest(), endpointURL)
	require.NoError(t, err)

	_, err = mgr.Install(ctx, "at", accountID, workspaceID, userID, fullManifest(), endpointURL)
	assert.ErrorIs(t, err, ErrAlreadyInstalled)
}

func TestInstallAfterUninstall(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newTestManager(t)

	_, err := mgr.Install(ctx, "at", accountID, workspaceID, userID, fullManifest(), endpointURL)
	require.NoError(t, err)
	require.NoError(t, mgr.Uninstall(ctx, "at", workspaceID))

	inst, err := mgr.Install(ctx, "at", accountID, workspaceID, userID, fullManifest(), endpointURL)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, inst.Status)
}

func TestInstallInvalidIDs(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newTestManager(t)

	tests := []struct {
		name      string
		account   string
		workspace string
	}{
		{name: "bad account", account: "not-a-uuid", workspace: workspaceID},
		{name: "bad workspace", account: accountID, workspace: "not-a-uuid"},
		{name: "empty workspace", account: accountID, workspace: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mgr.Install(ctx, "at", tt.account, tt.workspace, userID, fullManifest(), endpointURL)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "not a valid UUID")
		})
	}
}

func TestInstallDuplicateActionEventType(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newTestManager(t)

	manifest := Manifest{Actions: []ActionDefinition{
		{EventType: "same.event", Name: "One"},
		{EventType: "same.event", Name: "Two"},
	}}

	_, err := mgr.Install(ctx, "at", accountID, workspaceID, userID, manifest, endpointURL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate action event type")
}

func TestInstallRollsBackOnActionFailure(t *testing.T) {
	ctx := context.Background()
	mgr, api, _ := newTestManager(t)
	api.failCreateAction["proxy.make"] = errors.New("quota exceeded")

	_, err := mgr.Install(ctx, "at", accountID, workspaceID, userID, fullManifest(), endpointURL)
	require.Error(t, err)

	// the webhook and first action were cleaned up
	assert.Equal(t, api.createdWebhooks, api.deletedWebhooks)
	assert.Equal(t, api.createdActions, api.deletedActions)

	_, err = mgr.GetInstallation(ctx, workspaceID)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestGetInstallationNotFound(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	_, err := mgr.GetInstallation(context.Background(), uuid.NewString())
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestComputeDiffNoChanges(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newTestManager(t)

	inst, err := mgr.Install(ctx, "at", accountID, workspaceID, userID, fullManifest(), endpointURL)
	require.NoError(t, err)

	diff := mgr.ComputeDiff(inst, fullManifest())
	assert.False(t, diff.HasChanges())
	assert.False(t, mgr.NeedsUpdate(inst, fullManifest()))
}

func TestComputeDiffAllKinds(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newTestManager(t)

	inst, err := mgr.Install(ctx, "at", accountID, workspaceID, userID, fullManifest(), endpointURL)
	require.NoError(t, err)

	next := Manifest{
		WebhookEvents: []string{"file.ready"}, // comment.created dropped
		Actions: []ActionDefinition{
			{EventType: "transcribe.start", Name: "Transcribe v2", Description: "Generate a transcript"},
			{EventType: "subtitle.burn", Name: "Burn Subtitles", Description: "Burn in subtitles"},
			// proxy.make dropped
		},
	}

	diff := mgr.ComputeDiff(inst, next)
	require.True(t, diff.HasChanges())
	require.Len(t, diff.AddedActions, 1)
	assert.Equal(t, "subtitle.burn", diff.AddedActions[0].EventType)
	require.Len(t, diff.RemovedActions, 1)
	assert.Equal(t, "proxy.make", diff.RemovedActions[0].EventType)
	require.Len(t, diff.ModifiedActions, 1)
	assert.Equal(t, "transcribe.start", diff.ModifiedActions[0].Record.EventType)
	assert.Equal(t, "Transcribe v2", diff.ModifiedActions[0].Name)
	assert.True(t, diff.WebhookChanged())
	assert.Equal(t, []string{"file.ready"}, diff.WebhookEvents)
	assert.Empty(t, diff.WebhookEventsAdded)
	assert.Equal(t, []string{"comment.created"}, diff.WebhookEventsRemoved)

	assert.True(t, mgr.NeedsUpdate(inst, next))
}

func TestComputeDiffWebhookEventLists(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newTestManager(t)

	inst, err := mgr.Install(ctx, "at", accountID, workspaceID, userID, fullManifest(), endpointURL)
	require.NoError(t, err)

	// one new event yields exactly that event as added, nothing removed
	next := fullManifest()
	next.WebhookEvents = append(next.WebhookEvents, "file.deleted")
	diff := mgr.ComputeDiff(inst, next)
	assert.Equal(t, []string{"file.deleted"}, diff.WebhookEventsAdded)
	assert.Empty(t, diff.WebhookEventsRemoved)
	assert.True(t, diff.WebhookChanged())

	// swapping an event reports both sides, sorted
	next = fullManifest()
	next.WebhookEvents = []string{"file.ready", "version.created", "asset.ready"}
	diff = mgr.ComputeDiff(inst, next)
	assert.Equal(t, []string{"asset.ready", "version.created"}, diff.WebhookEventsAdded)
	assert.Equal(t, []string{"comment.created"}, diff.WebhookEventsRemoved)
}

func TestComputeDiffIgnoresOrder(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newTestManager(t)

	inst, err := mgr.Install(ctx, "at", accountID, workspaceID, userID, fullManifest(), endpointURL)
	require.NoError(t, err)

	reordered := fullManifest()
	reordered.WebhookEvents[0], reordered.WebhookEvents[1] = reordered.WebhookEvents[1], reordered.WebhookEvents[0]
	reordered.Actions[0], reordered.Actions[1] = reordered.Actions[1], reordered.Actions[0]

	assert.False(t, mgr.ComputeDiff(inst, reordered).HasChanges())
	assert.False(t, mgr.NeedsUpdate(inst, reordered))
}

func TestUpdateApp(t *testing.T) {
	ctx := context.Background()
	mgr, api, _ := newTestManager(t)

	inst, err := mgr.Install(ctx, "at", accountID, workspaceID, userID, fullManifest(), endpointURL)
	require.NoError(t, err)
	webhookID := inst.Webhook.ID
	webhookSecret := inst.Webhook.Secret
	transcribe := inst.actionByEventType("transcribe.start")
	require.NotNil(t, transcribe)
	transcribeID, transcribeSecret := transcribe.ID, transcribe.Secret

	next := Manifest{
		WebhookEvents: []string{"file.ready"},
		Actions: []ActionDefinition{
			{EventType: "transcribe.start", Name: "Transcribe v2", Description: "Better transcripts"},
			{EventType: "subtitle.burn", Name: "Burn Subtitles", Description: "Burn in subtitles"},
		},
	}

	updated, err := mgr.Update(ctx, "at", workspaceID, next, endpointURL)
	require.NoError(t, err)

	// webhook updated in place, same identity and secret
	assert.Equal(t, webhookID, updated.Webhook.ID)
	assert.Equal(t, webhookSecret, updated.Webhook.Secret)
	assert.Equal(t, []string{"file.ready"}, updated.Webhook.Events)
	assert.Equal(t, []string{"file.ready"}, api.updatedWebhooks[webhookID])

	// modified action keeps identity and secret, gets new name
	kept := updated.actionByEventType("transcribe.start")
	require.NotNil(t, kept)
	assert.Equal(t, transcribeID, kept.ID)
	assert.Equal(t, transcribeSecret, kept.Secret)
	assert.Equal(t, "Transcribe v2", kept.Name)
	assert.Equal(t, [2]string{"Transcribe v2", "Better transcripts"}, api.updatedActions[transcribeID])

	// removed and added
	assert.Nil(t, updated.actionByEventType("proxy.make"))
	assert.NotNil(t, updated.actionByEventType("subtitle.burn"))
	assert.Len(t, updated.Actions, 2)

	assert.Equal(t, next.Hash(), updated.ManifestHash)
	assert.False(t, mgr.NeedsUpdate(updated, next))

	// changes were persisted
	loaded, err := mgr.GetInstallation(ctx, workspaceID)
	require.NoError(t, err)
	assert.Equal(t, "Transcribe v2", loaded.actionByEventType("transcribe.start").Name)
}

func TestUpdateNoChangesIsNoop(t *testing.T) {
	ctx := context.Background()
	mgr, api, _ := newTestManager(t)

	_, err := mgr.Install(ctx, "at", accountID, workspaceID, userID, fullManifest(), endpointURL)
	require.NoError(t, err)
	createdBefore := len(api.createdActions)

	_, err = mgr.Update(ctx, "at", workspaceID, fullManifest(), endpointURL)
	require.NoError(t, err)
	assert.Len(t, api.createdActions, createdBefore)
	assert.Empty(t, api.updatedWebhooks)
	assert.Empty(t, api.updatedActions)
}

func TestUpdateAddsWebhook(t *testing.T) {
	ctx := context.Background()
	mgr, api, _ := newTestManager(t)

	manifest := Manifest{Actions: []ActionDefinition{{EventType: "a.b", Name: "A"}}}
	_, err := mgr.Install(ctx, "at", accountID, workspaceID, userID, manifest, endpointURL)
	require.NoError(t, err)
	require.Empty(t, api.createdWebhooks)

	manifest.WebhookEvents = []string{"file.ready"}
	updated, err := mgr.Update(ctx, "at", workspaceID, manifest, endpointURL)
	require.NoError(t, err)
	require.NotNil(t, updated.Webhook)
	assert.Len(t, api.createdWebhooks, 1)
}

func TestUpdateRemovesWebhook(t *testing.T) {
	ctx := context.Background()
	mgr, api, _ := newTestManager(t)

	inst, err := mgr.Install(ctx, "at", accountID, workspaceID, userID, fullManifest(), endpointURL)
	require.NoError(t, err)
	webhookID := inst.Webhook.ID

	next := fullManifest()
	next.WebhookEvents = nil
	updated, err := mgr.Update(ctx, "at", workspaceID, next, endpointURL)
	require.NoError(t, err)

	assert.Nil(t, updated.Webhook)
	assert.Contains(t, api.deletedWebhooks, webhookID)
}

func TestUpdateMissingInstallation(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	_, err := mgr.Update(context.Background(), "at", uuid.NewString(), fullManifest(), endpointURL)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestUninstall(t *testing.T) {
	ctx := context.Background()
	mgr, api, _ := newTestManager(t)

	inst, err := mgr.Install(ctx, "at", accountID, workspaceID, userID, fullManifest(), endpointURL)
	require.NoError(t, err)

	require.NoError(t, mgr.Uninstall(ctx, "at", workspaceID))

	assert.Contains(t, api.deletedWebhooks, inst.Webhook.ID)
	assert.Len(t, api.deletedActions, 2)

	// soft-deleted, record survives with uninstalled status
	loaded, err := mgr.GetInstallation(ctx, workspaceID)
	require.NoError(t, err)
	assert.Equal(t, StatusUninstalled, loaded.Status)

	// and no longer listed for the user
	listed, err := mgr.ListInstallations(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestUninstallSurvivesPlatformFailures(t *testing.T) {
	ctx := context.Background()
	mgr, api, _ := newTestManager(t)

	_, err := mgr.Install(ctx, "at", accountID, workspaceID, userID, fullManifest(), endpointURL)
	require.NoError(t, err)

	api.failDeleteAll = true
	require.NoError(t, mgr.Uninstall(ctx, "at", workspaceID))

	loaded, err := mgr.GetInstallation(ctx, workspaceID)
	require.NoError(t, err)
	assert.Equal(t, StatusUninstalled, loaded.Status)
}

func TestUninstallMissing(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	err := mgr.Uninstall(context.Background(), "at", uuid.NewString())
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestListInstallations(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newTestManager(t)

	ws2 := uuid.NewString()
	_, err := mgr.Install(ctx, "at", accountID, workspaceID, userID, fullManifest(), endpointURL)
	require.NoError(t, err)
	_, err = mgr.Install(ctx, "at", accountID, ws2, userID, fullManifest(), endpointURL)
	require.NoError(t, err)

	listed, err := mgr.ListInstallations(ctx, userID)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	require.NoError(t, mgr.Uninstall(ctx, "at", ws2))
	listed, err = mgr.ListInstallations(ctx, userID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, workspaceID, listed[0].WorkspaceID)
}

func TestManifestHashStable(t *testing.T) {
	a := fullManifest()
	b := fullManifest()
	b.WebhookEvents[0], b.WebhookEvents[1] = b.WebhookEvents[1], b.WebhookEvents[0]
	b.Actions[0], b.Actions[1] = b.Actions[1], b.Actions[0]

	assert.Equal(t, a.Hash(), b.Hash())

	c := fullManifest()
	c.Actions[0].Name = "Different"
	assert.NotEqual(t, a.Hash(), c.Hash())
}
