package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/amoylab/atelier/internal/common/config"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const supabaseUserPath = "/auth/v1/user"

// SupabaseVerifier asks a GoTrue-compatible auth server who owns the token.
type SupabaseVerifier struct {
	client *resty.Client
	logger *zap.Logger
}

func NewSupabaseVerifier(cfg config.SupabaseConfig, logger *zap.Logger) *SupabaseVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetHeader("apikey", cfg.AnonKey).
		SetHeader("Accept", "application/json")

	return &SupabaseVerifier{client: client, logger: logger}
}

func (v *SupabaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	resp, err := v.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get(supabaseUserPath)
	if err != nil {
		v.logger.Error("auth server request failed", zap.Error(err))
		return nil, fmt.Errorf("auth server request: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return nil, fmt.Errorf("%w: auth server returned %d", ErrInvalidSession, resp.StatusCode())
	default:
		v.logger.Error("auth server returned unexpected status",
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, fmt.Errorf("auth server returned %d", resp.StatusCode())
	}

	body := resp.Body()
	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		return nil, fmt.Errorf("%w: auth server response has no user id", ErrInvalidSession)
	}
	return &Identity{
		UserID: id,
		Email:  gjson.GetBytes(body, "email").String(),
	}, nil
}
