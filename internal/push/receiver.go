package push

import (
	"context"

	"github.com/yourorg/notisync/internal/model"
)

// Permission is the user-consent state for push delivery on this device
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Receiver abstracts the device-side push primitives: consent, background
// registration, and subscription key material. The manager drives it; it
// never talks to the server itself.
type Receiver interface {
	// Supported reports whether this device can receive push at all
	Supported() bool

	// Permission returns the current consent state without prompting
	Permission() Permission

	// RequestPermission prompts for consent. It may block on user
	// interaction and returns the resulting state.
	RequestPermission(ctx context.Context) (Permission, error)

	// EnsureRegistered registers the background delivery handler. It is
	// idempotent: registering an already-registered handler succeeds.
	EnsureRegistered(ctx context.Context) error

	// Subscribe creates a device subscription keyed against the server's
	// public signing key
	Subscribe(ctx context.Context, publicKey string) (*model.PushSubscription, error)

	// Current returns the active subscription, or nil when there is none
	Current(ctx context.Context) (*model.PushSubscription, error)

	// Unsubscribe cancels the active subscription locally. A missing
	// subscription is a successful no-op.
	Unsubscribe(ctx context.Context) error
}
