package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/notisync/internal/model"
	"go.uber.org/zap"
)

// ErrNotFound is returned when the server reports the notification does not exist
var ErrNotFound = errors.New("notification not found")

// ListOptions controls which page of the feed is requested
type ListOptions struct {
	Limit      int
	Skip       int
	UnreadOnly bool
	Type       model.NotificationType
}

// NotificationClient handles communication with the remote notification API
type NotificationClient struct {
	baseURL    string
	tokens     TokenProvider
	httpClient *http.Client
	logger     *zap.Logger
}

// NewNotificationClient creates a new notification API client
func NewNotificationClient(baseURL string, tokens TokenProvider, timeout time.Duration, logger *zap.Logger) *NotificationClient {
	return &NotificationClient{
		baseURL: baseURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// List retrieves a page of notifications with the unread count
func (c *NotificationClient) List(ctx context.Context, opts ListOptions) (*model.ListResponse, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(opts.Limit))
	query.Set("skip", strconv.Itoa(opts.Skip))
	if opts.UnreadOnly {
		query.Set("unread_only", "true")
	}
	if opts.Type != "" {
		query.Set("type", string(opts.Type))
	}

	var out model.ListResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/notifications?"+query.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("notification service rejected list request")
	}

	return &out, nil
}

// UnreadCount retrieves the number of unread notifications
func (c *NotificationClient) UnreadCount(ctx context.Context) (int, error) {
	var out model.CountResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/notifications/count", nil, &out); err != nil {
		return 0, err
	}

	return out.Count, nil
}

// MarkRead marks a single notification as read
func (c *NotificationClient) MarkRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/api/v1/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

// MarkAllRead marks every notification as read
func (c *NotificationClient) MarkAllRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/api/v1/notifications/read-all", nil, nil)
}

// Delete removes a single notification. A server-side 404 is reported as
// ErrNotFound so callers can treat it as already gone.
func (c *NotificationClient) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/notifications/"+url.PathEscape(id), nil, nil)
}

// DeleteAll removes every notification for the current user
func (c *NotificationClient) DeleteAll(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/notifications", nil, nil)
}

// Stats retrieves feed totals grouped by type and priority
func (c *NotificationClient) Stats(ctx context.Context) (*model.NotificationStats, error) {
	var out model.StatsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/notifications/stats", nil, &out); err != nil {
		return nil, err
	}

	return &out.Stats, nil
}

// do issues an authenticated JSON request and decodes the response into out
func (c *NotificationClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get session token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("failed to send request to notification service",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return fmt.Errorf("failed to send request to notification service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Error("notification service returned error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("notification service returned status code %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Error("failed to decode response", zap.Error(err))
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
