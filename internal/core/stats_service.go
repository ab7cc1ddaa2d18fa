package core

import (
	"context"
	"fmt"
	"strings"

	"atqr-backend-go/internal/db"
	"atqr-backend-go/internal/metrics"
	"atqr-backend-go/internal/models"
)

const unknownLabel = "unknown"

// osTaxonomy is the fixed OS classification, matched in order against the
// user agent with Other as the default branch.
var osTaxonomy = []struct {
	needles []string
	label   string
}{
	{[]string{"Android"}, "Android"},
	{[]string{"iPhone", "iPad"}, "iOS"},
	{[]string{"Windows"}, "Windows"},
	{[]string{"Macintosh"}, "MacOS"},
	{[]string{"Linux"}, "Linux"},
}

// classifyOS maps a user agent onto the fixed OS taxonomy.
func classifyOS(userAgent string) string {
	for _, entry := range osTaxonomy {
		for _, needle := range entry.needles {
			if strings.Contains(userAgent, needle) {
				return entry.label
			}
		}
	}
	return "Other"
}

// sanitizeLabel makes a client-supplied value safe for use as a counter key
// inside a structured update path. Dots would be read as path separators.
func sanitizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return unknownLabel
	}
	return strings.ReplaceAll(value, ".", "_")
}

// statsService implements the ScanRecorder interface: it turns raw client
// signals into sanitized dimension labels and applies them as counter
// increments.
type statsService struct {
	statsRepo db.StatsRepository
}

// NewStatsService creates a new ScanRecorder instance.
func NewStatsService(statsRepo db.StatsRepository) ScanRecorder {
	return &statsService{statsRepo: statsRepo}
}

// Record aggregates one scan: total counter, per-country counter,
// per-city-within-country counter, per-OS counter and the last-scanned time.
func (s *statsService) Record(ctx context.Context, slug string, scan models.ScanContext) error {
	aggregated := &models.Scan{
		Country:   sanitizeLabel(scan.Country),
		City:      sanitizeLabel(scan.City),
		OS:        classifyOS(scan.UserAgent),
		ScannedAt: scan.ScannedAt,
	}
	if err := s.statsRepo.ApplyScan(ctx, slug, aggregated); err != nil {
		return fmt.Errorf("failed to record scan for slug '%s': %w", slug, err)
	}
	metrics.ScansRecorded.Inc()
	return nil
}
