package core

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"atqr-backend-go/internal/cache"
	"atqr-backend-go/internal/db"
	"atqr-backend-go/internal/models"
)

// slugPattern bounds what is ever used as a storage key: lowercase base64url
// characters only. Anything else is treated as an unknown slug, never echoed
// into lookups or error pages.
var slugPattern = regexp.MustCompile(`^[a-z0-9_-]{4,64}$`)

const (
	// statsWriteTimeout bounds the detached stats write. The redirect
	// response never waits on it.
	statsWriteTimeout = 10 * time.Second

	// slugCacheTTL keeps cached redirect records short-lived; correctness
	// checks (expiry, active flag) run on every resolution regardless.
	slugCacheTTL = time.Minute
)

// redirectService implements the RedirectService interface.
type redirectService struct {
	slugRepo     db.SlugRepository
	entitlements EntitlementService
	scans        ScanRecorder
	slugCache    cache.Cache // nil disables caching
	defaultURL   string
	logger       *zap.Logger
}

// NewRedirectService creates a new RedirectService instance. slugCache may be
// nil; resolution then always reads through to the store.
func NewRedirectService(
	slugRepo db.SlugRepository,
	entitlements EntitlementService,
	scans ScanRecorder,
	slugCache cache.Cache,
	defaultURL string,
	logger *zap.Logger,
) RedirectService {
	return &redirectService{
		slugRepo:     slugRepo,
		entitlements: entitlements,
		scans:        scans,
		slugCache:    slugCache,
		defaultURL:   defaultURL,
		logger:       logger,
	}
}

// Resolve looks up a slug and decides the destination.
//
// The expiry check runs before the active-flag check: once a trial record is
// deactivated by expiry, later scans still report "expired" rather than a
// generic "inactive", and the downgrade of the owning user fires exactly once,
// on the request that performed the flip. The deactivation commits before the
// response so repeated scans cannot keep redirecting on an expired trial.
func (s *redirectService) Resolve(ctx context.Context, rawSlug string, scan models.ScanContext) (string, error) {
	slug := strings.ToLower(strings.TrimSpace(strings.Trim(rawSlug, "/")))
	if !slugPattern.MatchString(slug) {
		return "", fmt.Errorf("%w: unknown qr code", ErrNotFound)
	}

	record, err := s.lookup(ctx, slug)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	if record.TrialEndsAt != nil && record.TrialEndsAt.Before(now) {
		if err := s.expire(ctx, slug, record.UID); err != nil {
			return "", err
		}
		return "", fmt.Errorf("%w", ErrTrialExpired)
	}

	if !record.IsActive {
		return "", fmt.Errorf("%w", ErrQRInactive)
	}

	s.scheduleScan(slug, scan)

	target := record.TargetURL
	if target == "" {
		target = s.defaultURL
	}
	return target, nil
}

func (s *redirectService) lookup(ctx context.Context, slug string) (*models.SlugRecord, error) {
	key := "slug:" + slug
	if s.slugCache != nil {
		var cached models.SlugRecord
		hit, err := s.slugCache.Get(key, &cached)
		if err != nil {
			s.logger.Warn("Slug cache read failed", zap.String("slug", slug), zap.Error(err))
		} else if hit {
			cached.Slug = slug
			return &cached, nil
		}
	}

	record, err := s.slugRepo.Get(ctx, slug)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown qr code", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to resolve slug '%s': %w", slug, err)
	}

	if s.slugCache != nil {
		if err := s.slugCache.Set(key, record, slugCacheTTL); err != nil {
			s.logger.Warn("Slug cache write failed", zap.String("slug", slug), zap.Error(err))
		}
	}
	return record, nil
}

// expire deactivates the slug record and, when this request performed the
// flip, downgrades the owning user's entitlement. The record write must
// succeed before the caller responds; the entitlement downgrade is logged on
// failure and re-attempted by the next expired scan of another slug.
func (s *redirectService) expire(ctx context.Context, slug, userID string) error {
	flipped, err := s.slugRepo.Deactivate(ctx, slug)
	if err != nil {
		return fmt.Errorf("failed to deactivate expired slug '%s': %w", slug, err)
	}
	if s.slugCache != nil {
		if err := s.slugCache.Invalidate("slug:" + slug); err != nil {
			s.logger.Warn("Slug cache invalidation failed", zap.String("slug", slug), zap.Error(err))
		}
	}
	if flipped {
		if err := s.entitlements.ExpireTrial(ctx, userID); err != nil {
			s.logger.Error("Trial expiry downgrade failed",
				zap.String("slug", slug),
				zap.String("userID", userID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// scheduleScan submits the stats update as a detached task: the caller is
// redirected before the write is confirmed, and a failed write is logged and
// dropped, never retried and never surfaced to the scanning user.
func (s *redirectService) scheduleScan(slug string, scan models.ScanContext) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), statsWriteTimeout)
		defer cancel()
		if err := s.scans.Record(ctx, slug, scan); err != nil {
			s.logger.Warn("Scan stats write failed", zap.String("slug", slug), zap.Error(err))
		}
	}()
}
