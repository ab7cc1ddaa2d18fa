package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Redirect outcome labels.
const (
	OutcomeRedirected = "redirected"
	OutcomeNotFound   = "not_found"
	OutcomeInactive   = "inactive"
	OutcomeExpired    = "expired"
	OutcomeError      = "error"
)

var (
	// RedirectsTotal counts slug resolutions by outcome.
	RedirectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qr_redirects_total",
		Help: "Slug resolutions handled, labeled by outcome.",
	}, []string{"outcome"})

	// ScansRecorded counts scans successfully aggregated into stats.
	ScansRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qr_scans_recorded_total",
		Help: "Scan analytics events successfully written.",
	})

	// QRCodesCreated counts created QR codes by type.
	QRCodesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qr_codes_created_total",
		Help: "QR codes created, labeled by type.",
	}, []string{"type"})
)
