package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"atqr-backend-go/internal/db"
	"atqr-backend-go/internal/models"
)

const (
	slugLength      = 8
	slugRandomBytes = 6 // 6 raw bytes encode to exactly 8 base64url characters
)

// newSlug generates a short, URL-safe, lowercase identifier for a dynamic QR
// code. Randomness makes collisions unlikely; uniqueness is still enforced by
// the check-then-set inside the creation transaction.
func newSlug() (string, error) {
	buf := make([]byte, slugRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate slug: %w", err)
	}
	slug := base64.RawURLEncoding.EncodeToString(buf)
	if len(slug) > slugLength {
		slug = slug[:slugLength]
	}
	return strings.ToLower(slug), nil
}

// qrCodeService implements the QRCodeService interface: request validation,
// quota enforcement and slug allocation for dynamic codes.
type qrCodeService struct {
	qrRepo      db.QRCodeRepository
	userRepo    db.UserRepository
	viewBaseURL string
}

// NewQRCodeService creates a new QRCodeService instance. viewBaseURL is the
// optional base for hosted landing pages backing text and wifi codes.
func NewQRCodeService(qrRepo db.QRCodeRepository, userRepo db.UserRepository, viewBaseURL string) QRCodeService {
	return &qrCodeService{
		qrRepo:      qrRepo,
		userRepo:    userRepo,
		viewBaseURL: strings.TrimRight(viewBaseURL, "/"),
	}
}

// Create validates the request, enforces the plan quota and persists the QR
// code; dynamic codes additionally get a slug, a redirect record and a zero
// stats record, created as one atomic unit.
func (s *qrCodeService) Create(ctx context.Context, userID string, req models.CreateQRCodeRequest) (*CreateQRCodeResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user ID", ErrUnauthenticated)
	}
	if err := validateCreateRequest(&req); err != nil {
		return nil, err
	}

	// A logo must come out of the caller's own storage folder.
	if req.Design.Logo != "" && !strings.Contains(req.Design.Logo, "/users%2F"+userID+"%2F") {
		return nil, fmt.Errorf("%w: invalid logo source path", ErrPermissionDenied)
	}
	req.Design.LogoSizeRatio = clampLogoRatio(req.Design.LogoSizeRatio)

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user profile for '%s'", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to load user '%s': %w", userID, err)
	}

	if err := s.enforceQuota(ctx, user, req.Type); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	qr := &models.QRCode{
		ID:        req.QRID,
		UID:       userID,
		Name:      req.Name,
		Content:   req.Content,
		Design:    req.Design,
		Type:      req.Type,
		CreatedAt: now,
	}

	if req.Type != models.QRTypeDynamic {
		if err := s.qrRepo.CreateStatic(ctx, qr); err != nil {
			return nil, mapCreateError(err, req.QRID)
		}
		return &CreateQRCodeResult{QRID: qr.ID}, nil
	}

	slug, err := newSlug()
	if err != nil {
		return nil, err
	}
	qr.Slug = slug
	if user.Plan == models.PlanTrial {
		// A trial code stops redirecting when the owner's trial does.
		qr.TrialEndsAt = user.TrialEndsAt
	}

	record := &models.SlugRecord{
		Slug:        slug,
		UID:         userID,
		QRID:        qr.ID,
		TargetURL:   s.targetURL(req.Content, slug),
		IsActive:    true,
		TrialEndsAt: qr.TrialEndsAt,
		ScanCount:   0,
		Type:        models.QRTypeDynamic,
		CreatedAt:   now,
	}
	if err := s.qrRepo.CreateDynamicBundle(ctx, qr, record); err != nil {
		return nil, mapCreateError(err, req.QRID)
	}

	return &CreateQRCodeResult{QRID: qr.ID, Slug: slug}, nil
}

// enforceQuota decides whether a creation request is admitted given the
// current entitlement and resource counts. Counting reads are not wrapped in
// the creation transaction; a burst of concurrent requests from one account
// may transiently overshoot by a bounded amount.
func (s *qrCodeService) enforceQuota(ctx context.Context, user *models.User, qrType string) error {
	// Active paid users bypass counting entirely.
	if user.IsActivePaid() {
		return nil
	}

	total, err := s.qrRepo.CountByOwner(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to count qr codes for '%s': %w", user.ID, err)
	}
	if total >= user.QRLimit {
		return fmt.Errorf("%w: limit reached (%d)", ErrResourceExhausted, user.QRLimit)
	}

	if qrType != models.QRTypeDynamic {
		return nil
	}

	// Dynamic codes need active billing: free users and lapsed paid users are out.
	if user.Plan == models.PlanFree || (user.Plan == models.PlanPaid && user.SubscriptionStatus == models.SubscriptionInactive) {
		return fmt.Errorf("%w: dynamic qr codes require an active subscription", ErrPermissionDenied)
	}

	if user.Plan == models.PlanTrial {
		dynamic, err := s.qrRepo.CountDynamicByOwner(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to count dynamic qr codes for '%s': %w", user.ID, err)
		}
		if dynamic >= user.DynamicQRLimit {
			return fmt.Errorf("%w: trial dynamic limit reached", ErrResourceExhausted)
		}
	}
	return nil
}

// targetURL derives the redirect destination from the content variant. Text
// and wifi codes point at a hosted landing page when one is configured; an
// empty target falls back to the default destination at redirect time.
func (s *qrCodeService) targetURL(content models.QRContent, slug string) string {
	if content.Type == models.ContentTypeURL {
		return content.URL
	}
	if s.viewBaseURL != "" {
		return s.viewBaseURL + "/view/" + slug
	}
	return ""
}

func validateCreateRequest(req *models.CreateQRCodeRequest) error {
	if req.QRID == "" {
		return fmt.Errorf("%w: missing QR ID", ErrInvalidArgument)
	}
	if req.Name == "" {
		return fmt.Errorf("%w: missing QR code name", ErrInvalidArgument)
	}
	if req.Type != models.QRTypeStatic && req.Type != models.QRTypeDynamic {
		return fmt.Errorf("%w: type must be static or dynamic", ErrInvalidArgument)
	}
	switch req.Content.Type {
	case models.ContentTypeURL:
		if req.Content.URL == "" {
			return fmt.Errorf("%w: url content requires a url", ErrInvalidArgument)
		}
		if u, err := url.Parse(req.Content.URL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: url content requires an absolute url", ErrInvalidArgument)
		}
	case models.ContentTypeText:
		if req.Content.Text == "" {
			return fmt.Errorf("%w: text content requires text", ErrInvalidArgument)
		}
	case models.ContentTypeWifi:
		if req.Content.Wifi == nil || req.Content.Wifi.SSID == "" {
			return fmt.Errorf("%w: wifi content requires an ssid", ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("%w: unknown content type %q", ErrInvalidArgument, req.Content.Type)
	}
	return nil
}

func clampLogoRatio(ratio float64) float64 {
	if ratio <= 0 {
		ratio = models.DefaultLogoSizeRatio
	}
	if ratio > models.MaxLogoSizeRatio {
		return models.MaxLogoSizeRatio
	}
	return ratio
}

func mapCreateError(err error, qrID string) error {
	if errors.Is(err, db.ErrAlreadyExists) {
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	}
	return fmt.Errorf("failed to save qr code '%s': %w", qrID, err)
}
