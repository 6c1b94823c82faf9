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

type staticToken string

func (s staticToken) Token(ctx context.Context) (string, error) {
	return string(s), nil
}

func newNotificationServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *NotificationClient) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewNotificationClient(srv.URL, staticToken("token-123"), 5*time.Second, zap.NewNop())
	return srv, c
}

func TestListSendsQueryAndDecodesEnvelope(t *testing.T) {
	_, c := newNotificationServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/notifications", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "5", r.URL.Query().Get("skip"))
		assert.Equal(t, "true", r.URL.Query().Get("unread_only"))
		assert.Equal(t, "sale", r.URL.Query().Get("type"))

		json.NewEncoder(w).Encode(model.ListResponse{
			Success:     true,
			Data:        []model.Notification{{ID: "n1", Title: "sold", Type: model.TypeSale}},
			UnreadCount: 1,
			Pagination:  model.Pagination{HasMore: true},
		})
	})

	resp, err := c.List(context.Background(), ListOptions{
		Limit:      10,
		Skip:       5,
		UnreadOnly: true,
		Type:       model.TypeSale,
	})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "n1", resp.Data[0].ID)
	assert.Equal(t, 1, resp.UnreadCount)
	assert.True(t, resp.Pagination.HasMore)
}

func TestListRejectedEnvelope(t *testing.T) {
	_, c := newNotificationServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.ListResponse{Success: false})
	})

	_, err := c.List(context.Background(), ListOptions{Limit: 10})
	require.Error(t, err)
}

func TestUnreadCount(t *testing.T) {
	_, c := newNotificationServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/notifications/count", r.URL.Path)
		json.NewEncoder(w).Encode(model.CountResponse{Success: true, Count: 7})
	})

	count, err := c.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestMarkReadHitsItemPath(t *testing.T) {
	var gotPath string
	_, c := newNotificationServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPut, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.MarkRead(context.Background(), "n42"))
	assert.Equal(t, "/api/v1/notifications/n42/read", gotPath)
}

func TestMarkAllRead(t *testing.T) {
	var gotPath string
	_, c := newNotificationServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(model.AckResponse{Success: true})
	})

	require.NoError(t, c.MarkAllRead(context.Background()))
	assert.Equal(t, "/api/v1/notifications/read-all", gotPath)
}

func TestDeleteNotFound(t *testing.T) {
	_, c := newNotificationServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	err := c.Delete(context.Background(), "gone")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServerErrorSurfacesStatusCode(t *testing.T) {
	_, c := newNotificationServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.MarkRead(context.Background(), "n1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestStats(t *testing.T) {
	_, c := newNotificationServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/notifications/stats", r.URL.Path)
		json.NewEncoder(w).Encode(model.StatsResponse{
			Success: true,
			Stats: model.NotificationStats{
				Total:  12,
				Unread: 3,
				ByType: map[model.NotificationType]int{model.TypeSale: 4},
			},
		})
	})

	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, stats.Total)
	assert.Equal(t, 3, stats.Unread)
	assert.Equal(t, 4, stats.ByType[model.TypeSale])
}

func TestTokenProviderFailureBlocksRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent without a token")
	}))
	t.Cleanup(srv.Close)

	c := NewNotificationClient(srv.URL, NewStaticProvider("", zap.NewNop()), 5*time.Second, zap.NewNop())

	_, err := c.List(context.Background(), ListOptions{Limit: 10})
	require.ErrorIs(t, err, ErrNoToken)
}
