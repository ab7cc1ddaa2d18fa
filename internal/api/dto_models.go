package api

import "time"

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error   string `json:"error"`             // A high-level error message or code
	Details string `json:"details,omitempty"` // More specific details about the error, if available
}

// SuccessResponse is a generic structure for simple success messages.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// CreateQRCodeResponse is returned by POST /api/v1/qrcodes. Slug is only set
// for dynamic codes.
type CreateQRCodeResponse struct {
	Success bool   `json:"success"`
	QRID    string `json:"qrId"`
	Slug    string `json:"slug,omitempty"`
}

// TrialStartResponse is returned by POST /api/v1/trial/start.
type TrialStartResponse struct {
	Success     bool      `json:"success"`
	Plan        string    `json:"plan"`
	TrialEndsAt time.Time `json:"trialEndsAt"`
}

// CheckoutSessionResponse returns the URL of a Stripe Checkout session.
type CheckoutSessionResponse struct {
	URL string `json:"url"`
}

// PortalSessionResponse returns the URL for the Stripe Customer Portal.
type PortalSessionResponse struct {
	URL string `json:"url"`
}
