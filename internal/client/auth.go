package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// ErrNoToken is returned when no session token is available
var ErrNoToken = errors.New("no session token available")

// TokenProvider supplies the bearer token for outbound API calls.
// Token issuance itself is handled elsewhere; the clients only need
// something that can produce the current token.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticProvider serves a fixed session token. It inspects the token's
// claims so it can warn when the session is about to expire, but it never
// verifies the signature: validation is the server's job.
type StaticProvider struct {
	token  string
	logger *zap.Logger

	mu        sync.Mutex
	expiresAt time.Time
	warned    bool
}

// NewStaticProvider creates a token provider around a pre-issued token
func NewStaticProvider(token string, logger *zap.Logger) *StaticProvider {
	p := &StaticProvider{
		token:  token,
		logger: logger,
	}

	if token != "" {
		claims := &jwt.RegisteredClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil && claims.ExpiresAt != nil {
			p.expiresAt = claims.ExpiresAt.Time
		}
	}

	return p
}

// Token returns the configured session token
func (p *StaticProvider) Token(ctx context.Context) (string, error) {
	if p.token == "" {
		return "", ErrNoToken
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.expiresAt.IsZero() {
		remaining := time.Until(p.expiresAt)
		if remaining <= 0 {
			p.logger.Warn("Session token is expired", zap.Time("expiredAt", p.expiresAt))
		} else if remaining < 5*time.Minute && !p.warned {
			p.logger.Warn("Session token expires soon", zap.Duration("remaining", remaining))
			p.warned = true
		}
	}

	return p.token, nil
}
