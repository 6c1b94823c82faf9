package push

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/yourorg/notisync/internal/model"
	"go.uber.org/zap"
)

// HeadlessReceiver is the agent-process receiver: no prompt surface exists,
// so consent comes from configuration, registration is process-local, and
// key material is generated on demand. Subscriptions address the configured
// relay, which forwards pushed payloads to this device.
type HeadlessReceiver struct {
	relayURL string
	grant    bool
	logger   *zap.Logger

	mu         sync.Mutex
	permission Permission
	registered bool
	sub        *model.PushSubscription
	privateKey *ecdh.PrivateKey
}

// NewHeadlessReceiver creates a receiver for a headless agent process. An
// empty relay URL means push is unsupported on this device.
func NewHeadlessReceiver(relayURL string, grantPermission bool, logger *zap.Logger) *HeadlessReceiver {
	return &HeadlessReceiver{
		relayURL:   strings.TrimRight(relayURL, "/"),
		grant:      grantPermission,
		logger:     logger,
		permission: PermissionDefault,
	}
}

// Supported reports whether a relay endpoint is configured
func (r *HeadlessReceiver) Supported() bool {
	return r.relayURL != ""
}

// Permission returns the current consent state
func (r *HeadlessReceiver) Permission() Permission {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.permission
}

// RequestPermission resolves consent from configuration. Once denied it
// stays denied until the configuration changes, mirroring how a browser
// remembers a dismissed prompt.
func (r *HeadlessReceiver) RequestPermission(ctx context.Context) (Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.permission == PermissionDefault {
		if r.grant {
			r.permission = PermissionGranted
		} else {
			r.permission = PermissionDenied
		}
	}

	return r.permission, nil
}

// EnsureRegistered marks the delivery handler registered. Re-registering is
// a no-op.
func (r *HeadlessReceiver) EnsureRegistered(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.registered {
		r.registered = true
		r.logger.Info("Registered background delivery handler")
	}

	return nil
}

// Subscribe generates fresh key material and a relay endpoint for this
// device. The server's public key must be a valid P-256 point; rejecting it
// here matches the browser refusing a malformed applicationServerKey.
func (r *HeadlessReceiver) Subscribe(ctx context.Context, publicKey string) (*model.PushSubscription, error) {
	keyBytes, err := base64.RawURLEncoding.DecodeString(publicKey)
	if err != nil {
		return nil, fmt.Errorf("invalid server public key encoding: %w", err)
	}
	if _, err := ecdh.P256().NewPublicKey(keyBytes); err != nil {
		return nil, fmt.Errorf("invalid server public key: %w", err)
	}

	privateKey, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate subscription key: %w", err)
	}

	authSecret := make([]byte, 16)
	if _, err := rand.Read(authSecret); err != nil {
		return nil, fmt.Errorf("failed to generate auth secret: %w", err)
	}

	sub := &model.PushSubscription{
		Endpoint: fmt.Sprintf("%s/push/%s", r.relayURL, uuid.NewString()),
		Keys: model.SubscriptionKeys{
			P256dh: base64.RawURLEncoding.EncodeToString(privateKey.PublicKey().Bytes()),
			Auth:   base64.RawURLEncoding.EncodeToString(authSecret),
		},
	}

	r.mu.Lock()
	r.sub = sub
	r.privateKey = privateKey
	r.mu.Unlock()

	r.logger.Info("Created device push subscription", zap.String("endpoint", sub.Endpoint))
	return sub, nil
}

// Current returns the active subscription, or nil when there is none
func (r *HeadlessReceiver) Current(ctx context.Context) (*model.PushSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.sub, nil
}

// Unsubscribe discards the active subscription and its key material
func (r *HeadlessReceiver) Unsubscribe(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sub != nil {
		r.logger.Info("Cancelled device push subscription", zap.String("endpoint", r.sub.Endpoint))
	}
	r.sub = nil
	r.privateKey = nil

	return nil
}
