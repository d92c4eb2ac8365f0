package install

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billyshambrook/frameio-kit/internal/event"
)

func TestSecretResolver(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newTestManager(t)

	inst, err := mgr.Install(ctx, "at", accountID, workspaceID, userID, fullManifest(), endpointURL)
	require.NoError(t, err)

	resolver := NewSecretResolver(mgr)

	t.Run("webhook secret", func(t *testing.T) {
		secret, err := resolver.WebhookSecret(ctx, &event.WebhookEvent{
			Type:      "file.ready",
			Workspace: event.Workspace{ID: workspaceID},
		})
		require.NoError(t, err)
		assert.Equal(t, inst.Webhook.Secret, secret)
	})

	t.Run("action secret by event type", func(t *testing.T) {
		secret, err := resolver.ActionSecret(ctx, &event.ActionEvent{
			Type:      "transcribe.start",
			Workspace: event.Workspace{ID: workspaceID},
		})
		require.NoError(t, err)
		assert.Equal(t, inst.actionByEventType("transcribe.start").Secret, secret)
	})

	t.Run("unknown action event type", func(t *testing.T) {
		_, err := resolver.ActionSecret(ctx, &event.ActionEvent{
			Type:      "never.registered",
			Workspace: event.Workspace{ID: workspaceID},
		})
		assert.Error(t, err)
	})

	t.Run("unknown workspace", func(t *testing.T) {
		_, err := resolver.WebhookSecret(ctx, &event.WebhookEvent{
			Type:      "file.ready",
			Workspace: event.Workspace{ID: uuid.NewString()},
		})
		var nf *NotFoundError
		assert.ErrorAs(t, err, &nf)
	})

	t.Run("uninstalled workspace", func(t *testing.T) {
		ws := uuid.NewString()
		_, err := mgr.Install(ctx, "at", accountID, ws, userID, fullManifest(), endpointURL)
		require.NoError(t, err)
		require.NoError(t, mgr.Uninstall(ctx, "at", ws))

		_, err = resolver.WebhookSecret(ctx, &event.WebhookEvent{
			Type:      "file.ready",
			Workspace: event.Workspace{ID: ws},
		})
		var nf *NotFoundError
		assert.ErrorAs(t, err, &nf)
	})
}
