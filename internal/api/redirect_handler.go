package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"atqr-backend-go/internal/core"
	"atqr-backend-go/internal/metrics"
	"atqr-backend-go/internal/models"
)

// Geo headers injected by the edge/CDN in front of the service.
const (
	headerCountryCode = "X-Vias-Is-Country-Code"
	headerCity        = "X-Vias-Is-City"
)

// RedirectHandler serves the public scan endpoint. It is the hot path of the
// whole service: no auth, plain-text errors, and a 302 on success.
type RedirectHandler struct {
	redirects   core.RedirectService
	fallbackURL string
	logger      *zap.Logger
}

// NewRedirectHandler creates a new RedirectHandler. When fallbackURL is
// non-empty, resolver failures redirect there instead of answering 500, so a
// scanner with a phone camera never dead-ends on an error page.
func NewRedirectHandler(rs core.RedirectService, fallbackURL string, logger *zap.Logger) *RedirectHandler {
	return &RedirectHandler{redirects: rs, fallbackURL: fallbackURL, logger: logger}
}

// HandleRedirect handles GET /r/:slug.
func (h *RedirectHandler) HandleRedirect(c *gin.Context) {
	scan := models.ScanContext{
		Country:   c.GetHeader(headerCountryCode),
		City:      c.GetHeader(headerCity),
		UserAgent: c.Request.UserAgent(),
		ScannedAt: time.Now().UTC(),
	}

	target, err := h.redirects.Resolve(c.Request.Context(), c.Param("slug"), scan)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			metrics.RedirectsTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
			c.String(http.StatusNotFound, "QR code not found.")
		case errors.Is(err, core.ErrTrialExpired):
			metrics.RedirectsTotal.WithLabelValues(metrics.OutcomeExpired).Inc()
			c.String(http.StatusForbidden, "The trial for this dynamic QR code has expired.")
		case errors.Is(err, core.ErrQRInactive):
			metrics.RedirectsTotal.WithLabelValues(metrics.OutcomeInactive).Inc()
			c.String(http.StatusForbidden, "This QR code is inactive.")
		default:
			metrics.RedirectsTotal.WithLabelValues(metrics.OutcomeError).Inc()
			h.logger.Error("Redirect resolution failed", zap.String("slug", c.Param("slug")), zap.Error(err))
			if h.fallbackURL != "" {
				h.redirect(c, h.fallbackURL)
				return
			}
			c.String(http.StatusInternalServerError, "Something went wrong.")
		}
		return
	}

	metrics.RedirectsTotal.WithLabelValues(metrics.OutcomeRedirected).Inc()
	h.redirect(c, target)
}

func (h *RedirectHandler) redirect(c *gin.Context, target string) {
	// Scanners must re-resolve every time: a dynamic code's target can change
	// or be deactivated between scans.
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Redirect(http.StatusFound, target)
}
