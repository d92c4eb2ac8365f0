// Package install manages per-workspace installations: provisioning the
// webhook and custom actions an app declares, diffing a stored installation
// against the app's current manifest, and keeping the platform resources in
// sync through updates and uninstalls.
package install

import (
	"errors"
	"fmt"
	"time"
)

// Installation status values. Uninstalled records are kept as soft-deleted
// history rather than removed outright.
const (
	StatusActive      = "active"
	StatusUninstalled = "uninstalled"
)

// ErrAlreadyInstalled is returned when installing into a workspace that
// already has an active installation.
var ErrAlreadyInstalled = errors.New("workspace already has an active installation")

// NotFoundError reports that a workspace has no stored installation.
type NotFoundError struct {
	WorkspaceID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no installation for workspace %q", e.WorkspaceID)
}

// WebhookRecord is the provisioned webhook for an installation. The secret
// is issued by the platform at creation and never changes across updates.
type WebhookRecord struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Secret string   `json:"secret"`
	Events []string `json:"events"`
}

// ActionRecord is one provisioned custom action.
type ActionRecord struct {
	ID          string `json:"id"`
	EventType   string `json:"event_type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Secret      string `json:"secret"`
	URL         string `json:"url"`
}

// Installation is the stored record for one workspace. It is sealed at rest
// because it carries the webhook and action signing secrets.
type Installation struct {
	AccountID    string         `json:"account_id"`
	WorkspaceID  string         `json:"workspace_id"`
	UserID       string         `json:"user_id"`
	Status       string         `json:"status"`
	Webhook      *WebhookRecord `json:"webhook,omitempty"`
	Actions      []ActionRecord `json:"actions"`
	ManifestHash string         `json:"manifest_hash"`
	InstalledAt  time.Time      `json:"installed_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Active reports whether the installation is live.
func (i *Installation) Active() bool {
	return i.Status == StatusActive
}

// actionByEventType returns the provisioned action handling eventType.
func (i *Installation) actionByEventType(eventType string) *ActionRecord {
	for idx := range i.Actions {
		if i.Actions[idx].EventType == eventType {
			return &i.Actions[idx]
		}
	}
	return nil
}

// ActionChange pairs an existing action with its desired name and
// description. Only those two fields are patchable; identity and secret
// stay as provisioned.
type ActionChange struct {
	Record      ActionRecord
	Name        string
	Description string
}

// Diff describes the work needed to bring an installation in line with a
// manifest. Slices are sorted by event type for stable output.
type Diff struct {
	AddedActions    []ActionDefinition
	RemovedActions  []ActionRecord
	ModifiedActions []ActionChange

	// WebhookEventsAdded and WebhookEventsRemoved are the sorted set
	// differences between the desired and provisioned event lists.
	WebhookEventsAdded   []string
	WebhookEventsRemoved []string
	// WebhookEvents is the full desired event list, set when the webhook
	// needs changing.
	WebhookEvents []string
}

// WebhookChanged reports whether the provisioned webhook diverges from the
// manifest, including going to or from no webhook at all.
func (d Diff) WebhookChanged() bool {
	return len(d.WebhookEventsAdded) > 0 || len(d.WebhookEventsRemoved) > 0
}

// HasChanges reports whether applying the diff would do anything.
func (d Diff) HasChanges() bool {
	return len(d.AddedActions) > 0 ||
		len(d.RemovedActions) > 0 ||
		len(d.ModifiedActions) > 0 ||
		d.WebhookChanged()
}
