package push

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/yourorg/notisync/internal/model"
	"go.uber.org/zap"
)

// Terminal failure reasons. Anything not matched by these is transient and
// may be retried by calling Subscribe again.
var (
	// ErrUnsupported means this device cannot receive push at all
	ErrUnsupported = errors.New("push is not supported on this device")

	// ErrPermissionDenied means the user declined; retrying is pointless
	// until consent changes out-of-band
	ErrPermissionDenied = errors.New("push permission denied")

	// ErrServerNotConfigured means the server runs without push credentials
	ErrServerNotConfigured = errors.New("push is not configured on the server")

	// ErrBusy means another subscribe or unsubscribe is already in progress
	ErrBusy = errors.New("subscription change already in progress")
)

// API is the slice of the push server the manager drives
type API interface {
	PublicKey(ctx context.Context) (string, error)
	Status(ctx context.Context) (bool, error)
	Subscribe(ctx context.Context, sub *model.PushSubscription) error
	Unsubscribe(ctx context.Context, endpoint string) error
}

// Status describes the full push state for this device
type Status struct {
	Supported  bool       `json:"supported"`
	Permission Permission `json:"permission"`
	Configured bool       `json:"configured"`
	Subscribed bool       `json:"subscribed"`
}

// Manager orchestrates the permission, registration and subscription flow.
// It is the only writer of the subscribed/enabled state, and it serializes
// Subscribe/Unsubscribe so the device and server records cannot diverge
// through overlapping calls.
type Manager struct {
	api      API
	receiver Receiver
	logger   *zap.Logger

	// newBackOff builds the retry policy for subscription uploads
	newBackOff func() backoff.BackOff

	mu        sync.Mutex
	busy      bool
	publicKey string
}

// NewManager creates a push subscription manager
func NewManager(api API, receiver Receiver, logger *zap.Logger) *Manager {
	return &Manager{
		api:      api,
		receiver: receiver,
		logger:   logger,
		newBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
		},
	}
}

// CheckStatus determines device capability, consent, whether the server has
// push configured, and whether a subscription already exists for this device
func (m *Manager) CheckStatus(ctx context.Context) (Status, error) {
	st := Status{Supported: m.receiver.Supported()}
	if !st.Supported {
		return st, nil
	}

	st.Permission = m.receiver.Permission()

	configured, err := m.api.Status(ctx)
	if err != nil {
		return st, fmt.Errorf("failed to check push status: %w", err)
	}
	st.Configured = configured

	sub, err := m.receiver.Current(ctx)
	if err != nil {
		return st, fmt.Errorf("failed to read device subscription: %w", err)
	}
	st.Subscribed = sub != nil

	return st, nil
}

// Subscribe walks the full flow: consent, background registration, server
// key, device subscription, server upload. Any failing step aborts, and an
// upload failure undoes the device-side subscription so the two sides never
// disagree about whether this device is subscribed.
func (m *Manager) Subscribe(ctx context.Context) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	if !m.receiver.Supported() {
		return ErrUnsupported
	}

	perm := m.receiver.Permission()
	if perm == PermissionDefault {
		var err error
		perm, err = m.receiver.RequestPermission(ctx)
		if err != nil {
			return fmt.Errorf("failed to request push permission: %w", err)
		}
	}
	if perm != PermissionGranted {
		return ErrPermissionDenied
	}

	configured, err := m.api.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to check push status: %w", err)
	}
	if !configured {
		return ErrServerNotConfigured
	}

	if err := m.receiver.EnsureRegistered(ctx); err != nil {
		return fmt.Errorf("failed to register delivery handler: %w", err)
	}

	key, err := m.serverKey(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch server public key: %w", err)
	}

	sub, err := m.receiver.Subscribe(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to create device subscription: %w", err)
	}

	if err := m.upload(ctx, sub); err != nil {
		// Don't leave a device subscription the server never heard about
		if undoErr := m.receiver.Unsubscribe(ctx); undoErr != nil {
			m.logger.Error("Failed to undo device subscription after upload failure",
				zap.Error(undoErr))
		}
		return fmt.Errorf("failed to register subscription with server: %w", err)
	}

	m.logger.Info("Push subscription active", zap.String("endpoint", sub.Endpoint))
	return nil
}

// Unsubscribe cancels the device subscription and tells the server to
// discard its record. A missing device subscription is a successful no-op.
func (m *Manager) Unsubscribe(ctx context.Context) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	sub, err := m.receiver.Current(ctx)
	if err != nil {
		return fmt.Errorf("failed to read device subscription: %w", err)
	}
	if sub == nil {
		return nil
	}

	if err := m.receiver.Unsubscribe(ctx); err != nil {
		return fmt.Errorf("failed to cancel device subscription: %w", err)
	}

	if err := m.api.Unsubscribe(ctx, sub.Endpoint); err != nil {
		return fmt.Errorf("failed to remove subscription from server: %w", err)
	}

	m.logger.Info("Push subscription removed", zap.String("endpoint", sub.Endpoint))
	return nil
}

// serverKey returns the server's public signing key, fetching it at most
// once per manager lifetime
func (m *Manager) serverKey(ctx context.Context) (string, error) {
	m.mu.Lock()
	key := m.publicKey
	m.mu.Unlock()
	if key != "" {
		return key, nil
	}

	key, err := m.api.PublicKey(ctx)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.publicKey = key
	m.mu.Unlock()

	return key, nil
}

// upload registers the subscription with the server, retrying briefly since
// a registration blip here is the one transient failure worth absorbing
func (m *Manager) upload(ctx context.Context, sub *model.PushSubscription) error {
	policy := backoff.WithContext(m.newBackOff(), ctx)

	return backoff.RetryNotify(
		func() error {
			return m.api.Subscribe(ctx, sub)
		},
		policy,
		func(err error, next time.Duration) {
			m.logger.Warn("Subscription upload failed, retrying",
				zap.Duration("backoff", next),
				zap.Error(err))
		},
	)
}

func (m *Manager) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.busy {
		return ErrBusy
	}
	m.busy = true
	return nil
}

func (m *Manager) end() {
	m.mu.Lock()
	m.busy = false
	m.mu.Unlock()
}
