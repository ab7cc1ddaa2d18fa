package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"atqr-backend-go/internal/core"
	"atqr-backend-go/internal/metrics"
	"atqr-backend-go/internal/models"
)

// QRCodeHandler handles QR code creation endpoints.
type QRCodeHandler struct {
	qrService core.QRCodeService
	logger    *zap.Logger
}

// NewQRCodeHandler creates a new QRCodeHandler.
func NewQRCodeHandler(qs core.QRCodeService, logger *zap.Logger) *QRCodeHandler {
	return &QRCodeHandler{qrService: qs, logger: logger}
}

// CreateQRCode handles POST /api/v1/qrcodes. Quota and plan gating happen in
// the service; this handler only shapes the request and response.
func (h *QRCodeHandler) CreateQRCode(c *gin.Context) {
	userID, ok := currentUserID(c, h.logger)
	if !ok {
		return
	}

	var req models.CreateQRCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	result, err := h.qrService.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	metrics.QRCodesCreated.WithLabelValues(req.Type).Inc()
	c.JSON(http.StatusCreated, CreateQRCodeResponse{
		Success: true,
		QRID:    result.QRID,
		Slug:    result.Slug,
	})
}
