package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"atqr-backend-go/internal/core"
)

// TrialHandler handles trial activation endpoints.
type TrialHandler struct {
	entitlements core.EntitlementService
	logger       *zap.Logger
}

// NewTrialHandler creates a new TrialHandler.
func NewTrialHandler(es core.EntitlementService, logger *zap.Logger) *TrialHandler {
	return &TrialHandler{entitlements: es, logger: logger}
}

// StartTrial handles POST /api/v1/trial/start. The trial is a one-shot: a
// second call, or a call from a paying account, answers 412.
func (h *TrialHandler) StartTrial(c *gin.Context) {
	userID, ok := currentUserID(c, h.logger)
	if !ok {
		return
	}

	grant, err := h.entitlements.StartTrial(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("Trial started", zap.String("userID", userID), zap.Time("trialEndsAt", grant.TrialEndsAt))
	c.JSON(http.StatusOK, TrialStartResponse{
		Success:     true,
		Plan:        grant.Plan,
		TrialEndsAt: grant.TrialEndsAt,
	})
}
