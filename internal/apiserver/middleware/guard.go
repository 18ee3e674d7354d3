package middleware

import (
	"context"
	"net/http"

	"github.com/amoylab/atelier/internal/auth/session"
	"github.com/amoylab/atelier/internal/authz"
	"github.com/amoylab/atelier/internal/common/cnst"
	"github.com/amoylab/atelier/internal/guard"
	"github.com/amoylab/atelier/internal/i18n"
	"github.com/gin-gonic/gin"
)

// Protector is the guard as seen by the HTTP layer.
type Protector interface {
	Protect(ctx context.Context, r *http.Request) guard.Result
	ProtectSession(ctx context.Context, r *http.Request) guard.Result
}

// Protect runs the API guard and stores the principal on the context.
func Protect(p Protector) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := p.Protect(c.Request.Context(), c.Request)
		if !res.Success {
			abortGuard(c, res)
			return
		}
		c.Set(cnst.CtxKeyPrincipal, res.Principal)
		c.Next()
	}
}

// ProtectSession requires a valid session but not an active account.
func ProtectSession(p Protector) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := p.ProtectSession(c.Request.Context(), c.Request)
		if !res.Success {
			abortGuard(c, res)
			return
		}
		c.Set(cnst.CtxKeyIdentity, res.Identity)
		c.Next()
	}
}

// RequirePermission rejects principals lacking key with 403.
func RequirePermission(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Principal(c).Can(key) {
			i18n.RespondWithError(c, i18n.ErrorInsufficientAuthority)
			return
		}
		c.Next()
	}
}

// Principal returns the principal attached by Protect, or nil.
func Principal(c *gin.Context) *authz.Principal {
	v, ok := c.Get(cnst.CtxKeyPrincipal)
	if !ok {
		return nil
	}
	p, _ := v.(*authz.Principal)
	return p
}

// Identity returns the identity attached by ProtectSession, or nil.
func Identity(c *gin.Context) *session.Identity {
	v, ok := c.Get(cnst.CtxKeyIdentity)
	if !ok {
		return nil
	}
	id, _ := v.(*session.Identity)
	return id
}

func abortGuard(c *gin.Context, res guard.Result) {
	switch res.StatusCode {
	case http.StatusUnauthorized:
		i18n.RespondWithError(c, i18n.ErrorUnauthenticated)
	case http.StatusForbidden:
		i18n.RespondWithError(c, i18n.ErrorAccountNotActive)
	default:
		_ = c.Error(res.Error)
		i18n.RespondWithError(c, i18n.ErrInternalServer)
	}
}
