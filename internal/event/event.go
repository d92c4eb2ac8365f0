// Package event defines the payload types delivered to webhook and action
// handlers, along with parsing and validation of the raw request body.
//
// Frame.io sends two payload shapes to the same endpoint: standard webhook
// notifications and interactive custom-action callbacks. Both carry a `type`
// field identifying the event; the dispatcher uses it to pick a handler and
// then validates the body against the matching model here.
package event

import (
	"encoding/json"
	"fmt"
)

// Resource is the primary resource an event pertains to.
type Resource struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Project is the project context in which an event occurred.
type Project struct {
	ID string `json:"id"`
}

// User is the user who initiated the event.
type User struct {
	ID string `json:"id"`
}

// Workspace is the workspace in which an event occurred.
type Workspace struct {
	ID string `json:"id"`
}

// Account is the account context in a standard webhook payload.
type Account struct {
	ID string `json:"id"`
}

// Event is implemented by both payload variants. Secret resolution and
// dispatch switch on the concrete type.
type Event interface {
	EventType() string
	WorkspaceID() string
	AccountIDValue() string
}

// WebhookEvent is a standard, non-interactive webhook notification.
type WebhookEvent struct {
	Type      string    `json:"type"`
	Project   Project   `json:"project"`
	User      User      `json:"user"`
	Workspace Workspace `json:"workspace"`
	Account   Account   `json:"account"`
	Resource  Resource  `json:"resource"`

	// Timestamp is the Unix time (seconds) from the request-timestamp
	// header, injected by the dispatcher after signature verification.
	Timestamp int64 `json:"timestamp"`
}

func (e *WebhookEvent) EventType() string      { return e.Type }
func (e *WebhookEvent) WorkspaceID() string    { return e.Workspace.ID }
func (e *WebhookEvent) AccountIDValue() string { return e.Account.ID }

// ActionEvent is an interactive custom-action callback, possibly carrying
// user-submitted form data from a prior Form response.
type ActionEvent struct {
	Type          string     `json:"type"`
	Project       Project    `json:"project"`
	User          User       `json:"user"`
	Workspace     Workspace  `json:"workspace"`
	AccountID     string     `json:"account_id"`
	ActionID      string     `json:"action_id"`
	InteractionID string     `json:"interaction_id"`
	Resources     []Resource `json:"resources"`

	// Data holds submitted form values, keyed by field name. Nil on the
	// initial trigger before any form is shown.
	Data map[string]any `json:"data,omitempty"`

	Timestamp int64 `json:"timestamp"`
}

func (e *ActionEvent) EventType() string      { return e.Type }
func (e *ActionEvent) WorkspaceID() string    { return e.Workspace.ID }
func (e *ActionEvent) AccountIDValue() string { return e.AccountID }

// ResourceIDs returns the IDs of all targeted resources.
func (e *ActionEvent) ResourceIDs() []string {
	ids := make([]string, len(e.Resources))
	for i, r := range e.Resources {
		ids[i] = r.ID
	}
	return ids
}

// UnmarshalJSON normalizes the legacy singular `resource` field into the
// `resources` list before decoding.
func (e *ActionEvent) UnmarshalJSON(data []byte) error {
	type plain ActionEvent
	aux := struct {
		*plain
		Resource *Resource `json:"resource"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(e.Resources) == 0 && aux.Resource != nil {
		e.Resources = []Resource{*aux.Resource}
	}
	return nil
}

// ValidationError reports a payload that parsed as JSON but does not satisfy
// the event model. The detail is safe to return to the caller.
type ValidationError struct {
	Type   string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for event %q: %s", e.Type, e.Detail)
}

// ExtractType decodes just the `type` field from a raw payload.
// An empty or missing type, or a non-object body, is an error.
func ExtractType(body []byte) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return "", fmt.Errorf("invalid JSON payload: %w", err)
	}
	if head.Type == "" {
		return "", fmt.Errorf("payload missing 'type' field")
	}
	return head.Type, nil
}

// DecodeWebhook decodes a webhook payload and stamps the delivery
// timestamp. Field-level validation is a separate step so callers can
// defer it until the payload's signature has been checked.
func DecodeWebhook(body []byte, timestamp int64) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}
	ev.Timestamp = timestamp
	return &ev, nil
}

// DecodeAction decodes an action payload and stamps the delivery timestamp.
func DecodeAction(body []byte, timestamp int64) (*ActionEvent, error) {
	var ev ActionEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}
	ev.Timestamp = timestamp
	return &ev, nil
}

// Validate checks the required fields of a webhook payload.
func (e *WebhookEvent) Validate() error {
	switch {
	case e.Type == "":
		return &ValidationError{Type: e.Type, Detail: "missing type"}
	case e.Account.ID == "":
		return &ValidationError{Type: e.Type, Detail: "missing account.id"}
	case e.Workspace.ID == "":
		return &ValidationError{Type: e.Type, Detail: "missing workspace.id"}
	case e.User.ID == "":
		return &ValidationError{Type: e.Type, Detail: "missing user.id"}
	case e.Resource.ID == "":
		return &ValidationError{Type: e.Type, Detail: "missing resource.id"}
	}
	return nil
}

// Validate checks the required fields of an action payload.
func (e *ActionEvent) Validate() error {
	switch {
	case e.Type == "":
		return &ValidationError{Type: e.Type, Detail: "missing type"}
	case e.AccountID == "":
		return &ValidationError{Type: e.Type, Detail: "missing account_id"}
	case e.Workspace.ID == "":
		return &ValidationError{Type: e.Type, Detail: "missing workspace.id"}
	case e.User.ID == "":
		return &ValidationError{Type: e.Type, Detail: "missing user.id"}
	case len(e.Resources) == 0:
		return &ValidationError{Type: e.Type, Detail: "missing resources"}
	}
	return nil
}
