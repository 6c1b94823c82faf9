package push

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testServerKey(t *testing.T) string {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes())
}

func TestHeadlessSupportedRequiresRelay(t *testing.T) {
	assert.False(t, NewHeadlessReceiver("", true, zap.NewNop()).Supported())
	assert.True(t, NewHeadlessReceiver("https://relay.example", true, zap.NewNop()).Supported())
}

func TestHeadlessPermissionFromConfig(t *testing.T) {
	granted := NewHeadlessReceiver("https://relay.example", true, zap.NewNop())
	assert.Equal(t, PermissionDefault, granted.Permission())

	perm, err := granted.RequestPermission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PermissionGranted, perm)
	assert.Equal(t, PermissionGranted, granted.Permission())

	denied := NewHeadlessReceiver("https://relay.example", false, zap.NewNop())
	perm, err = denied.RequestPermission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PermissionDenied, perm)
}

func TestHeadlessRegisterIsIdempotent(t *testing.T) {
	r := NewHeadlessReceiver("https://relay.example", true, zap.NewNop())

	require.NoError(t, r.EnsureRegistered(context.Background()))
	require.NoError(t, r.EnsureRegistered(context.Background()))
}

func TestHeadlessSubscribeGeneratesKeyMaterial(t *testing.T) {
	r := NewHeadlessReceiver("https://relay.example/", true, zap.NewNop())

	sub, err := r.Subscribe(context.Background(), testServerKey(t))
	require.NoError(t, err)

	assert.Contains(t, sub.Endpoint, "https://relay.example/push/")

	p256dh, err := base64.RawURLEncoding.DecodeString(sub.Keys.P256dh)
	require.NoError(t, err)
	require.Len(t, p256dh, 65, "uncompressed P-256 point")
	assert.Equal(t, byte(0x04), p256dh[0])

	auth, err := base64.RawURLEncoding.DecodeString(sub.Keys.Auth)
	require.NoError(t, err)
	assert.Len(t, auth, 16)

	current, err := r.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sub, current)
}

func TestHeadlessSubscribeRejectsBadServerKey(t *testing.T) {
	r := NewHeadlessReceiver("https://relay.example", true, zap.NewNop())

	_, err := r.Subscribe(context.Background(), "not base64!!")
	require.Error(t, err)

	_, err = r.Subscribe(context.Background(), base64.RawURLEncoding.EncodeToString([]byte("short")))
	require.Error(t, err)
}

func TestHeadlessUnsubscribeClearsSubscription(t *testing.T) {
	r := NewHeadlessReceiver("https://relay.example", true, zap.NewNop())

	_, err := r.Subscribe(context.Background(), testServerKey(t))
	require.NoError(t, err)

	require.NoError(t, r.Unsubscribe(context.Background()))

	current, err := r.Current(context.Background())
	require.NoError(t, err)
	assert.Nil(t, current)

	// Unsubscribing with nothing active is fine
	require.NoError(t, r.Unsubscribe(context.Background()))
}
