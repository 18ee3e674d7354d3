package handler

import (
	"github.com/amoylab/atelier/internal/apiserver/middleware"
	"github.com/amoylab/atelier/internal/authz"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves the team and role administration API.
type Handler struct {
	svc    *authz.Service
	logger *zap.Logger
}

func New(svc *authz.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the API under /api. Every route except accepting
// an invitation runs behind the full guard.
func RegisterRoutes(r gin.IRouter, h *Handler, p middleware.Protector) {
	api := r.Group("/api")

	api.POST("/team/invitations/accept", middleware.ProtectSession(p), h.AcceptInvitation)

	protected := api.Group("", middleware.Protect(p))
	protected.GET("/me", h.Me)
	protected.GET("/roles", h.ListRoles)
	protected.GET("/roles/assignable", h.ListAssignableRoles)
	protected.GET("/audit", middleware.RequirePermission(authz.PermViewAuditLog), h.ListAudit)

	team := protected.Group("/team")
	team.GET("/members", h.ListMembers)
	team.POST("/invitations", middleware.RequirePermission(authz.PermManageTeam), h.Invite)
	team.POST("/members/:id/reactivate", h.Reactivate)
	team.POST("/members/:id/deactivate", h.Deactivate)
	team.PUT("/members/:id/roles", middleware.RequirePermission(authz.PermManageRoles), h.ChangeRoles)
	team.POST("/ownership/transfer", h.TransferOwnership)
}
