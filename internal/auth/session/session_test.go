package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amoylab/atelier/internal/auth/jwt"
	"github.com/amoylab/atelier/internal/common/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer abc")
	r.AddCookie(&http.Cookie{Name: "sb-access-token", Value: "cookie-tok"})
	assert.Equal(t, "abc", TokenFromRequest(r, "sb-access-token"))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "bearer  xyz ")
	assert.Equal(t, "xyz", TokenFromRequest(r, ""))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.Empty(t, TokenFromRequest(r, "sb-access-token"))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "sb-access-token", Value: "cookie-tok"})
	assert.Equal(t, "cookie-tok", TokenFromRequest(r, "sb-access-token"))
	assert.Empty(t, TokenFromRequest(r, ""))
	assert.Empty(t, TokenFromRequest(r, "other"))
}

func TestJWTVerifier(t *testing.T) {
	svc, err := jwt.NewService(jwt.Config{SecretKey: testSecret, Duration: time.Hour})
	require.NoError(t, err)
	v := NewJWTVerifier(svc)

	tok, err := svc.GenerateToken("user-1", "ana@example.com")
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, &Identity{UserID: "user-1", Email: "ana@example.com"}, id)

	_, err = v.Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = v.Verify(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func newGoTrue(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" || r.Header.Get("apikey") != "anon" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			_, _ = w.Write([]byte(`{"id":"user-1","email":"ana@example.com","aud":"authenticated"}`))
		case "Bearer noid":
			_, _ = w.Write([]byte(`{"email":"ana@example.com"}`))
		case "Bearer broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSupabaseVerifier(t *testing.T) {
	srv := newGoTrue(t)
	v := NewSupabaseVerifier(config.SupabaseConfig{URL: srv.URL + "/", AnonKey: "anon", Timeout: 2 * time.Second}, zap.NewNop())
	v.client.SetRetryCount(0)
	ctx := context.Background()

	id, err := v.Verify(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, "ana@example.com", id.Email)

	_, err = v.Verify(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = v.Verify(ctx, "expired")
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = v.Verify(ctx, "noid")
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = v.Verify(ctx, "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidSession)
}

func TestNewVerifier(t *testing.T) {
	v, err := NewVerifier(config.SessionConfig{
		Mode: "jwt",
		JWT:  config.JWTConfig{SecretKey: testSecret, Duration: time.Hour},
	}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &JWTVerifier{}, v)

	_, err = NewVerifier(config.SessionConfig{Mode: "jwt", JWT: config.JWTConfig{SecretKey: "short", Duration: time.Hour}}, zap.NewNop())
	assert.ErrorIs(t, err, jwt.ErrWeakSecretKey)

	v, err = NewVerifier(config.SessionConfig{
		Mode:     "supabase",
		Supabase: config.SupabaseConfig{URL: "http://localhost", AnonKey: "anon", Timeout: time.Second},
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SupabaseVerifier{}, v)

	_, err = NewVerifier(config.SessionConfig{Mode: "ldap"}, zap.NewNop())
	assert.Error(t, err)
}
