// Package session verifies the caller's session token and yields the
// authenticated user id. It knows nothing about roles or tenants.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/amoylab/atelier/internal/auth/jwt"
	"github.com/amoylab/atelier/internal/common/config"
	"go.uber.org/zap"
)

var (
	// ErrNoSession means the request carried no token at all.
	ErrNoSession = errors.New("no session token")
	// ErrInvalidSession means a token was presented and rejected.
	ErrInvalidSession = errors.New("invalid session")
)

// Identity is what a verified session proves about the caller.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// Verifier turns a raw session token into an Identity. Rejected tokens
// return an error wrapping ErrInvalidSession; any other error means the
// verifier itself failed.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// TokenFromRequest reads a bearer token from the Authorization header and
// falls back to the named cookie.
func TokenFromRequest(r *http.Request, cookie string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie == "" {
		return ""
	}
	c, err := r.Cookie(cookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// NewVerifier builds the verifier selected by cfg.Mode.
func NewVerifier(cfg config.SessionConfig, logger *zap.Logger) (Verifier, error) {
	switch cfg.Mode {
	case "jwt":
		svc, err := jwt.NewService(jwt.Config{
			SecretKey: cfg.JWT.SecretKey,
			Duration:  cfg.JWT.Duration,
			Issuer:    cfg.JWT.Issuer,
			Audience:  cfg.JWT.Audience,
		})
		if err != nil {
			return nil, fmt.Errorf("jwt verifier: %w", err)
		}
		return NewJWTVerifier(svc), nil
	case "supabase":
		return NewSupabaseVerifier(cfg.Supabase, logger), nil
	default:
		return nil, fmt.Errorf("unsupported session mode: %s", cfg.Mode)
	}
}
