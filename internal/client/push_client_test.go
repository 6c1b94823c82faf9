package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/notisync/internal/model"
	"go.uber.org/zap"
)

func newPushServer(t *testing.T, handler http.HandlerFunc) *PushClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewPushClient(srv.URL, staticToken("token-123"), 5*time.Second, zap.NewNop())
}

func TestPublicKey(t *testing.T) {
	c := newPushServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/push/public-key", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(model.KeyResponse{PublicKey: "server-key"})
	})

	key, err := c.PublicKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "server-key", key)
}

func TestPublicKeyEmptyIsError(t *testing.T) {
	c := newPushServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.KeyResponse{})
	})

	_, err := c.PublicKey(context.Background())
	require.Error(t, err)
}

func TestPushStatus(t *testing.T) {
	c := newPushServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/push/status", r.URL.Path)
		json.NewEncoder(w).Encode(model.PushStatusResponse{Configured: true})
	})

	configured, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, configured)
}

func TestSubscribeSendsSubscription(t *testing.T) {
	var got struct {
		Subscription model.PushSubscription `json:"subscription"`
	}
	c := newPushServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/push/subscribe", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(model.AckResponse{Success: true})
	})

	sub := &model.PushSubscription{
		Endpoint: "https://relay.example/push/device-1",
		Keys:     model.SubscriptionKeys{P256dh: "p", Auth: "a"},
	}
	require.NoError(t, c.Subscribe(context.Background(), sub))
	assert.Equal(t, *sub, got.Subscription)
}

func TestSubscribeRejectedEnvelope(t *testing.T) {
	c := newPushServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.AckResponse{Success: false})
	})

	err := c.Subscribe(context.Background(), &model.PushSubscription{Endpoint: "e"})
	require.Error(t, err)
}

func TestUnsubscribeSendsEndpoint(t *testing.T) {
	var got struct {
		Endpoint string `json:"endpoint"`
	}
	c := newPushServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/push/unsubscribe", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.Unsubscribe(context.Background(), "https://relay.example/push/device-1"))
	assert.Equal(t, "https://relay.example/push/device-1", got.Endpoint)
}

func TestPushServerErrorSurfacesStatusCode(t *testing.T) {
	c := newPushServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Status(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
