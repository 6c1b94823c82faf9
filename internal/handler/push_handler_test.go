package handler

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/notisync/internal/model"
	"github.com/yourorg/notisync/internal/push"
	"go.uber.org/zap"
)

type stubPushAPI struct {
	configured bool
	key        string
}

func (s *stubPushAPI) PublicKey(ctx context.Context) (string, error) { return s.key, nil }

func (s *stubPushAPI) Status(ctx context.Context) (bool, error) { return s.configured, nil }

func (s *stubPushAPI) Subscribe(ctx context.Context, sub *model.PushSubscription) error { return nil }

func (s *stubPushAPI) Unsubscribe(ctx context.Context, endpoint string) error { return nil }

func newPushRouter(t *testing.T, api push.API, receiver push.Receiver) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewPushHandler(push.NewManager(api, receiver, zap.NewNop()), zap.NewNop())

	router := gin.New()
	v1 := router.Group("/api/v1/push")
	v1.GET("/status", h.GetStatus)
	v1.POST("/subscribe", h.Subscribe)
	v1.DELETE("/subscription", h.Unsubscribe)

	return router
}

func serverKey(t *testing.T) string {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes())
}

func TestPushSubscribeAndStatus(t *testing.T) {
	api := &stubPushAPI{configured: true, key: serverKey(t)}
	receiver := push.NewHeadlessReceiver("https://relay.example", true, zap.NewNop())
	router := newPushRouter(t, api, receiver)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/push/subscribe", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/push/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"subscribed":true`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/push/subscription", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/push/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"subscribed":false`)
}

func TestPushSubscribeDeniedMapsReason(t *testing.T) {
	api := &stubPushAPI{configured: true, key: serverKey(t)}
	receiver := push.NewHeadlessReceiver("https://relay.example", false, zap.NewNop())
	router := newPushRouter(t, api, receiver)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/push/subscribe", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"reason":"permission-denied"`)
}

func TestPushSubscribeUnsupportedMapsReason(t *testing.T) {
	api := &stubPushAPI{configured: true, key: serverKey(t)}
	receiver := push.NewHeadlessReceiver("", true, zap.NewNop())
	router := newPushRouter(t, api, receiver)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/push/subscribe", nil))

	assert.Equal(t, http.StatusNotImplemented, w.Code)
	assert.Contains(t, w.Body.String(), `"reason":"unsupported"`)
}

func TestPushSubscribeServerNotConfiguredMapsReason(t *testing.T) {
	api := &stubPushAPI{configured: false, key: serverKey(t)}
	receiver := push.NewHeadlessReceiver("https://relay.example", true, zap.NewNop())
	router := newPushRouter(t, api, receiver)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/push/subscribe", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"reason":"server-not-configured"`)
}
