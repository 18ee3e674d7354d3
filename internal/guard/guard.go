// Package guard authorizes incoming API requests: it verifies the session,
// resolves the caller's principal and rejects callers whose account is not
// active.
package guard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/amoylab/atelier/internal/auth/session"
	"github.com/amoylab/atelier/internal/authz"
	"github.com/amoylab/atelier/internal/common/cnst"
	"github.com/amoylab/atelier/pkg/metrics"
	"github.com/amoylab/atelier/pkg/trace"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Guard outcomes, used as metric labels and span attributes.
const (
	OutcomeAllowed         = "allowed"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeInactive        = "inactive"
	OutcomeError           = "error"
)

// Result is the outcome of one guard check. On failure Error is one of the
// authz sentinels (or an internal error for 500) and StatusCode is set.
type Result struct {
	Success    bool
	Principal  *authz.Principal
	Identity   *session.Identity
	Error      error
	StatusCode int
}

// Guard checks requests against the session verifier and the principal
// resolver, with an optional principal cache in front of both.
type Guard struct {
	verifier session.Verifier
	resolver *authz.Resolver
	cache    Cache
	ttl      time.Duration
	cookie   string
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithCache enables principal caching for ttl.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(g *Guard) {
		if c != nil {
			g.cache = c
			g.ttl = ttl
		}
	}
}

// WithCookie names the session cookie read when no bearer header is sent.
func WithCookie(name string) Option {
	return func(g *Guard) { g.cookie = name }
}

// WithMetrics records guard outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) { g.metrics = m }
}

// WithLogger sets the guard logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

func New(verifier session.Verifier, resolver *authz.Resolver, opts ...Option) *Guard {
	g := &Guard{
		verifier: verifier,
		resolver: resolver,
		cache:    NopCache{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Protect authorizes r: 401 when the session is missing or invalid or the
// user row is gone, 403 when the account is not active.
func (g *Guard) Protect(ctx context.Context, r *http.Request) (res Result) {
	scope := trace.Tracer(cnst.TraceGuard).Start(ctx, cnst.SpanGuardProtect)
	defer func() {
		outcome := outcomeOf(res)
		scope.WithAttrs(attribute.String(cnst.AttrGuardOutcome, outcome))
		if res.Principal != nil {
			scope.WithAttrs(
				attribute.String(cnst.AttrActorID, res.Principal.UserID),
				attribute.String(cnst.AttrTenantID, res.Principal.TenantID),
			)
		}
		if outcome == OutcomeError {
			scope.RecordError(res.Error)
		}
		scope.End()
		g.metrics.GuardDecision(outcome)
	}()
	ctx = scope.Ctx

	token := session.TokenFromRequest(r, g.cookie)
	if token == "" {
		return deny(http.StatusUnauthorized, fmt.Errorf("%w: no session", authz.ErrUnauthenticated))
	}
	key := TokenKey(token)

	p, hit, err := g.cache.Get(ctx, key)
	if err != nil {
		g.logger.Warn("principal cache lookup failed", zap.Error(err))
	}
	g.metrics.GuardCache(hit)
	scope.WithAttrs(attribute.Bool(cnst.AttrGuardCacheHit, hit))

	if !hit {
		identity, denied, ok := g.verify(ctx, token)
		if !ok {
			return denied
		}
		gen, err := g.cache.Generation(ctx, identity.UserID)
		if err != nil {
			g.logger.Warn("principal cache generation failed", zap.Error(err))
		}
		p, err = g.resolver.Resolve(ctx, identity.UserID)
		if err != nil {
			return g.resolveFailure(err)
		}
		if g.ttl > 0 {
			if err := g.cache.Set(ctx, key, p, g.ttl, gen); err != nil {
				g.logger.Warn("principal cache store failed", zap.Error(err))
			}
		}
	}

	if p.Status != authz.StatusActive {
		return Result{
			Principal:  p,
			Error:      fmt.Errorf("%w: account is %s", authz.ErrAccountNotActive, p.Status),
			StatusCode: http.StatusForbidden,
		}
	}
	return Result{Success: true, Principal: p, StatusCode: http.StatusOK}
}

// ProtectSession only verifies the session. It serves the endpoints an
// invited user must reach before their account is active.
func (g *Guard) ProtectSession(ctx context.Context, r *http.Request) Result {
	token := session.TokenFromRequest(r, g.cookie)
	if token == "" {
		g.metrics.GuardDecision(OutcomeUnauthenticated)
		return deny(http.StatusUnauthorized, fmt.Errorf("%w: no session", authz.ErrUnauthenticated))
	}
	identity, denied, ok := g.verify(ctx, token)
	if !ok {
		g.metrics.GuardDecision(outcomeOf(denied))
		return denied
	}
	g.metrics.GuardDecision(OutcomeAllowed)
	return Result{Success: true, Identity: identity, StatusCode: http.StatusOK}
}

// InvalidateUser drops every cached principal of userID.
func (g *Guard) InvalidateUser(ctx context.Context, userID string) error {
	return g.cache.InvalidateUser(ctx, userID)
}

var _ authz.Invalidator = (*Guard)(nil)

func (g *Guard) verify(ctx context.Context, token string) (*session.Identity, Result, bool) {
	identity, err := g.verifier.Verify(ctx, token)
	if err == nil {
		return identity, Result{}, true
	}
	if errors.Is(err, session.ErrNoSession) || errors.Is(err, session.ErrInvalidSession) {
		return nil, deny(http.StatusUnauthorized, fmt.Errorf("%w: %v", authz.ErrUnauthenticated, err)), false
	}
	g.logger.Error("session verification failed", zap.Error(err))
	return nil, deny(http.StatusInternalServerError, fmt.Errorf("verify session: %w", err)), false
}

func (g *Guard) resolveFailure(err error) Result {
	if errors.Is(err, authz.ErrUnauthenticated) {
		return deny(http.StatusUnauthorized, err)
	}
	g.logger.Error("principal resolution failed", zap.Error(err))
	return deny(http.StatusInternalServerError, err)
}

func deny(code int, err error) Result {
	return Result{Error: err, StatusCode: code}
}

func outcomeOf(res Result) string {
	switch {
	case res.Success:
		return OutcomeAllowed
	case res.StatusCode == http.StatusUnauthorized:
		return OutcomeUnauthenticated
	case res.StatusCode == http.StatusForbidden:
		return OutcomeInactive
	default:
		return OutcomeError
	}
}
