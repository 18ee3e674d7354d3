package handler

import (
	"errors"

	"github.com/amoylab/atelier/internal/authz"
	"github.com/amoylab/atelier/internal/i18n"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errorMap = []struct {
	sentinel error
	coded    *i18n.ErrorWithCode
}{
	{authz.ErrUnauthenticated, i18n.ErrorUnauthenticated},
	{authz.ErrAccountNotActive, i18n.ErrorAccountNotActive},
	{authz.ErrInsufficientAuthority, i18n.ErrorInsufficientAuthority},
	{authz.ErrNotFound, i18n.ErrorMemberNotFound},
	{authz.ErrInvalidState, i18n.ErrorInvalidMemberState},
	{authz.ErrConflict, i18n.ErrorConcurrentModification},
	{authz.ErrDuplicateMember, i18n.ErrorMemberExists},
	{authz.ErrSystemConfiguration, i18n.ErrorSystemConfiguration},
}

// respondError maps authz errors to their HTTP form. Anything unrecognised
// is logged and reported as a bare 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	for _, m := range errorMap {
		if errors.Is(err, m.sentinel) {
			if m.sentinel == authz.ErrSystemConfiguration {
				h.logger.Error("system configuration error", zap.Error(err))
			}
			i18n.RespondWithError(c, m.coded)
			return
		}
	}
	h.logger.Error("unexpected error",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	i18n.RespondWithError(c, i18n.ErrInternalServer)
}

func badRequest(c *gin.Context, reason string) {
	i18n.RespondWithError(c, i18n.ErrBadRequest.WithParam("Reason", reason))
}
