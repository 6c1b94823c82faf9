package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/notisync/internal/model"
	"go.uber.org/zap"
)

// PushClient handles communication with the remote push API
type PushClient struct {
	baseURL    string
	tokens     TokenProvider
	httpClient *http.Client
	logger     *zap.Logger
}

// NewPushClient creates a new push API client
func NewPushClient(baseURL string, tokens TokenProvider, timeout time.Duration, logger *zap.Logger) *PushClient {
	return &PushClient{
		baseURL: baseURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// PublicKey fetches the server's public signing key
func (c *PushClient) PublicKey(ctx context.Context) (string, error) {
	var out model.KeyResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/push/public-key", nil, &out); err != nil {
		return "", err
	}
	if out.PublicKey == "" {
		return "", fmt.Errorf("push service returned an empty public key")
	}

	return out.PublicKey, nil
}

// Status reports whether the server has push delivery configured
func (c *PushClient) Status(ctx context.Context) (bool, error) {
	var out model.PushStatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/push/status", nil, &out); err != nil {
		return false, err
	}

	return out.Configured, nil
}

// Subscribe registers a device subscription with the server
func (c *PushClient) Subscribe(ctx context.Context, sub *model.PushSubscription) error {
	body := struct {
		Subscription *model.PushSubscription `json:"subscription"`
	}{Subscription: sub}

	var out model.AckResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/push/subscribe", body, &out); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("push service rejected subscription")
	}

	return nil
}

// Unsubscribe tells the server to discard the subscription for an endpoint
func (c *PushClient) Unsubscribe(ctx context.Context, endpoint string) error {
	body := struct {
		Endpoint string `json:"endpoint"`
	}{Endpoint: endpoint}

	return c.do(ctx, http.MethodPost, "/api/v1/push/unsubscribe", body, nil)
}

// do issues an authenticated JSON request and decodes the response into out
func (c *PushClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
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
		c.logger.Error("failed to send request to push service",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return fmt.Errorf("failed to send request to push service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Error("push service returned error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("push service returned status code %d", resp.StatusCode)
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
