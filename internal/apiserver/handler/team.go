package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/amoylab/atelier/internal/apiserver/middleware"
	"github.com/amoylab/atelier/internal/authz"
	"github.com/amoylab/atelier/internal/i18n"
	"github.com/gin-gonic/gin"
)

type inviteRequest struct {
	Email  string `json:"email" binding:"required,email"`
	Name   string `json:"name"`
	RoleID string `json:"roleId" binding:"required"`
}

type changeRolesRequest struct {
	RoleIDs []string `json:"roleIds" binding:"required,min=1"`
}

type transferRequest struct {
	TargetUserID string `json:"targetUserId" binding:"required"`
}

// Me returns the caller's resolved principal.
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.Principal(c))
}

func (h *Handler) ListMembers(c *gin.Context) {
	members, err := h.svc.ListMembers(c.Request.Context(), middleware.Principal(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// Invite creates an invited member holding one assignable role.
func (h *Handler) Invite(c *gin.Context) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	user, err := h.svc.Invite(c.Request.Context(), middleware.Principal(c), authz.InviteInput{
		Email:  req.Email,
		Name:   req.Name,
		RoleID: req.RoleID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	i18n.Created(i18n.SuccessMemberInvited).WithPayload(user).Send(c)
}

// AcceptInvitation activates the caller's own pending invitation. It runs
// behind the session-only guard since the caller is not active yet.
func (h *Handler) AcceptInvitation(c *gin.Context) {
	id := middleware.Identity(c)
	if id == nil {
		i18n.RespondWithError(c, i18n.ErrorUnauthenticated)
		return
	}
	p, err := h.svc.AcceptInvite(c.Request.Context(), id.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	i18n.Success(i18n.SuccessInvitationAccepted).WithPayload(p).Send(c)
}

func (h *Handler) Reactivate(c *gin.Context) {
	target, err := h.svc.Reactivate(c.Request.Context(), middleware.Principal(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	i18n.Success(i18n.SuccessMemberReactivated).WithPayload(target).Send(c)
}

func (h *Handler) Deactivate(c *gin.Context) {
	target, err := h.svc.Deactivate(c.Request.Context(), middleware.Principal(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	i18n.Success(i18n.SuccessMemberDeactivated).WithPayload(target).Send(c)
}

// ChangeRoles replaces the role set of a member.
func (h *Handler) ChangeRoles(c *gin.Context) {
	var req changeRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	target, err := h.svc.ChangeRoles(c.Request.Context(), middleware.Principal(c), c.Param("id"), req.RoleIDs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	i18n.Success(i18n.SuccessMemberRolesUpdated).WithPayload(target).Send(c)
}

func (h *Handler) TransferOwnership(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.svc.TransferOwnership(c.Request.Context(), middleware.Principal(c), strings.TrimSpace(req.TargetUserID)); err != nil {
		h.respondError(c, err)
		return
	}
	i18n.Success(i18n.SuccessOwnershipTransferred).Send(c)
}

func (h *Handler) ListRoles(c *gin.Context) {
	roles, err := h.svc.ListRoles(c.Request.Context(), middleware.Principal(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roles": roles})
}

// ListAssignableRoles returns the roles the caller may hand out.
func (h *Handler) ListAssignableRoles(c *gin.Context) {
	roles, err := h.svc.ListAssignableRoles(c.Request.Context(), middleware.Principal(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roles": roles})
}

func (h *Handler) ListAudit(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	events, err := h.svc.ListAudit(c.Request.Context(), middleware.Principal(c), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
