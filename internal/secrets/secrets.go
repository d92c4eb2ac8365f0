// Package secrets resolves the signing secret for an incoming event.
//
// A handler can carry a static secret, a per-handler resolver function, or
// defer to an app-level resolver that knows how to look secrets up per
// installation. The first configured source is authoritative: a resolver
// that comes back empty is a resolution failure, never a cue to consult a
// different source. Verification fails closed rather than silently trying
// another secret.
package secrets

import (
	"context"
	"fmt"

	"github.com/billyshambrook/frameio-kit/internal/event"
)

// ResolverFunc resolves a secret for a single event. Returning an empty
// string is a resolution failure even with a nil error.
type ResolverFunc func(ctx context.Context, ev event.Event) (string, error)

// AppResolver resolves secrets at the application level, typically from
// per-workspace installation records.
type AppResolver interface {
	WebhookSecret(ctx context.Context, ev *event.WebhookEvent) (string, error)
	ActionSecret(ctx context.Context, ev *event.ActionEvent) (string, error)
}

// Strategy is the per-handler secret configuration assembled at
// registration time. Exactly one source answers each resolution: Static if
// set, else Resolver if set, else App.
type Strategy struct {
	// Static, when non-empty, short-circuits all other sources.
	Static string
	// Resolver, when set, is consulted instead of the app resolver.
	Resolver ResolverFunc
	// App is the application-level resolver shared by all handlers.
	App AppResolver
}

// ResolutionError reports that the configured source produced no secret for
// an event. The signature cannot be verified, so the dispatcher treats this
// as an authentication failure or server error depending on the cause.
type ResolutionError struct {
	EventType string
	Reason    string
	Err       error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolving secret for %q: %s: %v", e.EventType, e.Reason, e.Err)
	}
	return fmt.Sprintf("resolving secret for %q: %s", e.EventType, e.Reason)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Resolve returns the signing secret for ev from the strategy's source.
func (s Strategy) Resolve(ctx context.Context, ev event.Event) (string, error) {
	if s.Static != "" {
		return s.Static, nil
	}

	if s.Resolver != nil {
		secret, err := s.Resolver(ctx, ev)
		if err != nil {
			return "", &ResolutionError{EventType: ev.EventType(), Reason: "handler resolver failed", Err: err}
		}
		if secret == "" {
			return "", &ResolutionError{EventType: ev.EventType(), Reason: "handler resolver returned empty secret"}
		}
		return secret, nil
	}

	if s.App != nil {
		var secret string
		var err error
		switch e := ev.(type) {
		case *event.WebhookEvent:
			secret, err = s.App.WebhookSecret(ctx, e)
		case *event.ActionEvent:
			secret, err = s.App.ActionSecret(ctx, e)
		default:
			return "", &ResolutionError{EventType: ev.EventType(), Reason: "unknown event variant"}
		}
		if err != nil {
			return "", &ResolutionError{EventType: ev.EventType(), Reason: "app resolver failed", Err: err}
		}
		if secret == "" {
			return "", &ResolutionError{EventType: ev.EventType(), Reason: "app resolver returned empty secret"}
		}
		return secret, nil
	}

	return "", &ResolutionError{EventType: ev.EventType(), Reason: "no secret available"}
}
