package install

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/zeebo/blake3"
)

// ActionDefinition is one custom action an app declares.
type ActionDefinition struct {
	EventType   string `json:"event_type"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Manifest is what an app wants provisioned in a workspace: one webhook
// covering all its webhook events, plus its custom actions. Built from the
// app's registered handlers.
type Manifest struct {
	WebhookEvents []string           `json:"webhook_events"`
	Actions       []ActionDefinition `json:"actions"`
}

// Validate rejects manifests that cannot be provisioned. Two actions on the
// same event type would make dispatch ambiguous.
func (m Manifest) Validate() error {
	seen := make(map[string]struct{}, len(m.Actions))
	for _, a := range m.Actions {
		if a.EventType == "" {
			return fmt.Errorf("action %q has no event type", a.Name)
		}
		if _, dup := seen[a.EventType]; dup {
			return fmt.Errorf("duplicate action event type %q", a.EventType)
		}
		seen[a.EventType] = struct{}{}
	}
	return nil
}

// normalized returns a copy with sorted event and action lists so equality
// and hashing ignore registration order.
func (m Manifest) normalized() Manifest {
	out := Manifest{
		WebhookEvents: append([]string(nil), m.WebhookEvents...),
		Actions:       append([]ActionDefinition(nil), m.Actions...),
	}
	sort.Strings(out.WebhookEvents)
	sort.Slice(out.Actions, func(i, j int) bool {
		return out.Actions[i].EventType < out.Actions[j].EventType
	})
	return out
}

// Hash returns a stable fingerprint of the manifest, used to short-circuit
// update checks.
func (m Manifest) Hash() string {
	data, err := json.Marshal(m.normalized())
	if err != nil {
		// Manifest is plain strings; Marshal cannot fail on it.
		panic(fmt.Sprintf("hashing manifest: %v", err))
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
