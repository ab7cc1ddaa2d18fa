package models

import "time"

// SlugRecord maps a public slug to a dynamic QR code's redirect target.
// Stored at qrSlugs/{slug} and created in the same transaction as the QRCode.
// IsActive only ever transitions true -> false (trial expiry).
type SlugRecord struct {
	Slug        string     `json:"slug" firestore:"-"` // document ID
	UID         string     `json:"uid" firestore:"uid"`
	QRID        string     `json:"qrId" firestore:"qrId"`
	TargetURL   string     `json:"targetUrl" firestore:"targetUrl"`
	IsActive    bool       `json:"isActive" firestore:"isActive"`
	TrialEndsAt *time.Time `json:"trialEndsAt,omitempty" firestore:"trialEndsAt"`
	ScanCount   int64      `json:"scanCount" firestore:"scanCount"`
	Type        string     `json:"type" firestore:"type"`
	CreatedAt   time.Time  `json:"createdAt" firestore:"createdAt"`
}

// ScanStats is the per-slug analytics document at qrStats/{slug}.
// Counters only grow; Scans eventually equals the sum of the country counters.
type ScanStats struct {
	Scans         int64                       `json:"scans" firestore:"scans"`
	LastScannedAt *time.Time                  `json:"lastScannedAt" firestore:"lastScannedAt"`
	Countries     map[string]int64            `json:"countries" firestore:"countries"`
	Cities        map[string]map[string]int64 `json:"cities" firestore:"cities"`
	OS            map[string]int64            `json:"os" firestore:"os"`
}

// NewScanStats returns the zero stats document written at slug allocation.
func NewScanStats() *ScanStats {
	return &ScanStats{
		Countries: map[string]int64{},
		Cities:    map[string]map[string]int64{},
		OS:        map[string]int64{},
	}
}

// ScanContext carries the raw client signals of a single scan, as read off the
// redirect request. Labels are sanitized by the stats aggregator, not here.
type ScanContext struct {
	Country   string
	City      string
	UserAgent string
	ScannedAt time.Time
}

// Scan is one aggregated analytics event with sanitized dimension labels,
// ready to be applied as counter increments.
type Scan struct {
	Country   string
	City      string
	OS        string
	ScannedAt time.Time
}
