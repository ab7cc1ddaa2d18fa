package core

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atqr-backend-go/internal/models"
)

func urlRequest(qrID, qrType string) models.CreateQRCodeRequest {
	return models.CreateQRCodeRequest{
		QRID:    qrID,
		Name:    "my code",
		Type:    qrType,
		Content: models.QRContent{Type: models.ContentTypeURL, URL: "https://example.com/page"},
	}
}

func trialUser(uid string, endsAt time.Time) *models.User {
	u := models.NewFreeUser(uid, uid+"@example.com")
	u.Plan = models.PlanTrial
	u.SubscriptionStatus = models.SubscriptionTrialing
	u.TrialUsed = true
	u.TrialEndsAt = &endsAt
	u.DynamicQRLimit = 1
	return u
}

func TestNewSlugFormat(t *testing.T) {
	format := regexp.MustCompile(`^[a-z0-9_-]{8}$`)
	for i := 0; i < 200; i++ {
		slug, err := newSlug()
		require.NoError(t, err)
		assert.Regexp(t, format, slug)
	}
}

func TestCreateStaticFreeTier(t *testing.T) {
	userRepo := newMemUserRepo(models.NewFreeUser("u1", "u1@example.com"))
	qrRepo := newMemQRRepo()
	svc := NewQRCodeService(qrRepo, userRepo, "")

	result, err := svc.Create(context.Background(), "u1", urlRequest("qr-1", models.QRTypeStatic))
	require.NoError(t, err)
	assert.Equal(t, "qr-1", result.QRID)
	assert.Empty(t, result.Slug, "static codes get no slug")
	assert.Equal(t, 1, qrRepo.totalStored())
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(req *models.CreateQRCodeRequest)
	}{
		{"missing qr id", func(req *models.CreateQRCodeRequest) { req.QRID = "" }},
		{"missing name", func(req *models.CreateQRCodeRequest) { req.Name = "" }},
		{"bad type", func(req *models.CreateQRCodeRequest) { req.Type = "sometimes-dynamic" }},
		{"url content without url", func(req *models.CreateQRCodeRequest) { req.Content.URL = "" }},
		{"relative url", func(req *models.CreateQRCodeRequest) { req.Content.URL = "/just/a/path" }},
		{"unknown content type", func(req *models.CreateQRCodeRequest) { req.Content.Type = "video" }},
		{"text content without text", func(req *models.CreateQRCodeRequest) {
			req.Content = models.QRContent{Type: models.ContentTypeText}
		}},
		{"wifi content without ssid", func(req *models.CreateQRCodeRequest) {
			req.Content = models.QRContent{Type: models.ContentTypeWifi, Wifi: &models.WifiPayload{}}
		}},
	}

	userRepo := newMemUserRepo(models.NewFreeUser("u1", "u1@example.com"))
	svc := NewQRCodeService(newMemQRRepo(), userRepo, "")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := urlRequest("qr-1", models.QRTypeStatic)
			tt.mutate(&req)
			_, err := svc.Create(context.Background(), "u1", req)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestCreateRejectsForeignLogo(t *testing.T) {
	userRepo := newMemUserRepo(models.NewFreeUser("u1", "u1@example.com"))
	svc := NewQRCodeService(newMemQRRepo(), userRepo, "")

	req := urlRequest("qr-1", models.QRTypeStatic)
	req.Design.Logo = "https://storage.example.com/o/users%2Fsomeone-else%2Flogo.png"
	_, err := svc.Create(context.Background(), "u1", req)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestCreateFreeLimitBoundary(t *testing.T) {
	userRepo := newMemUserRepo(models.NewFreeUser("u1", "u1@example.com"))
	qrRepo := newMemQRRepo()
	qrRepo.seed("u1", models.QRTypeStatic, 10)
	svc := NewQRCodeService(qrRepo, userRepo, "")

	_, err := svc.Create(context.Background(), "u1", urlRequest("qr-11", models.QRTypeStatic))
	assert.ErrorIs(t, err, ErrResourceExhausted)
	assert.Equal(t, 10, qrRepo.totalStored(), "rejected request must not write")
}

func TestCreateDynamicRequiresActiveSubscription(t *testing.T) {
	freeUser := models.NewFreeUser("free", "free@example.com")

	lapsedPaid := models.NewFreeUser("lapsed", "lapsed@example.com")
	lapsedPaid.Plan = models.PlanPaid
	lapsedPaid.SubscriptionStatus = models.SubscriptionInactive
	lapsedPaid.QRLimit = 1000
	lapsedPaid.DynamicQRLimit = 1000

	userRepo := newMemUserRepo(freeUser, lapsedPaid)
	svc := NewQRCodeService(newMemQRRepo(), userRepo, "")

	for _, uid := range []string{"free", "lapsed"} {
		_, err := svc.Create(context.Background(), uid, urlRequest("qr-1", models.QRTypeDynamic))
		assert.ErrorIs(t, err, ErrPermissionDenied, "user %s", uid)
	}
}

func TestCreateDynamicTrialBoundary(t *testing.T) {
	endsAt := time.Now().UTC().Add(5 * 24 * time.Hour)
	userRepo := newMemUserRepo(trialUser("u1", endsAt))
	qrRepo := newMemQRRepo()
	svc := NewQRCodeService(qrRepo, userRepo, "")

	result, err := svc.Create(context.Background(), "u1", urlRequest("qr-1", models.QRTypeDynamic))
	require.NoError(t, err)
	require.Len(t, result.Slug, 8)

	// The bundle carries the slug record, active, with the owner's trial end.
	qrRepo.mu.Lock()
	record := qrRepo.slugs[result.Slug]
	_, statsCreated := qrRepo.stats[result.Slug]
	qrRepo.mu.Unlock()
	assert.True(t, record.IsActive)
	assert.Equal(t, "u1", record.UID)
	assert.Equal(t, "https://example.com/page", record.TargetURL)
	require.NotNil(t, record.TrialEndsAt)
	assert.WithinDuration(t, endsAt, *record.TrialEndsAt, time.Second)
	assert.True(t, statsCreated, "zero stats document created with the slug")

	// The trial allowance is one dynamic code.
	_, err = svc.Create(context.Background(), "u1", urlRequest("qr-2", models.QRTypeDynamic))
	assert.ErrorIs(t, err, ErrResourceExhausted)
}

func TestCreateDynamicBundleAbortsAtomically(t *testing.T) {
	endsAt := time.Now().UTC().Add(24 * time.Hour)
	userRepo := newMemUserRepo(trialUser("u1", endsAt))
	qrRepo := newMemQRRepo()
	svc := NewQRCodeService(qrRepo, userRepo, "")

	// Same client-generated ID twice: the second bundle must abort with
	// already-exists and leave no second slug or stats record behind.
	_, err := svc.Create(context.Background(), "u1", urlRequest("qr-1", models.QRTypeDynamic))
	require.NoError(t, err)

	userRepo.Mutate(context.Background(), "u1", func(u *models.User) error {
		u.DynamicQRLimit = 5 // lift the trial allowance so only the ID collides
		u.QRLimit = 50
		return nil
	})

	_, err = svc.Create(context.Background(), "u1", urlRequest("qr-1", models.QRTypeDynamic))
	assert.ErrorIs(t, err, ErrAlreadyExists)

	qrRepo.mu.Lock()
	slugCount := len(qrRepo.slugs)
	statsCount := len(qrRepo.stats)
	qrRepo.mu.Unlock()
	assert.Equal(t, 1, qrRepo.totalStored())
	assert.Equal(t, 1, slugCount)
	assert.Equal(t, 1, statsCount)
}

func TestCreatePaidBypassesCounting(t *testing.T) {
	paid := models.NewFreeUser("u1", "u1@example.com")
	paid.Plan = models.PlanPaid
	paid.SubscriptionStatus = models.SubscriptionActive
	paid.QRLimit = 1000
	paid.DynamicQRLimit = 1000

	userRepo := newMemUserRepo(paid)
	qrRepo := newMemQRRepo()
	qrRepo.seed("u1", models.QRTypeStatic, 12) // beyond the free limit already
	svc := NewQRCodeService(qrRepo, userRepo, "")

	_, err := svc.Create(context.Background(), "u1", urlRequest("qr-x", models.QRTypeDynamic))
	assert.NoError(t, err)
}

func TestCreateTextCodeTargetsLandingPage(t *testing.T) {
	endsAt := time.Now().UTC().Add(24 * time.Hour)
	userRepo := newMemUserRepo(trialUser("u1", endsAt))
	qrRepo := newMemQRRepo()
	svc := NewQRCodeService(qrRepo, userRepo, "https://view.example.com/")

	req := urlRequest("qr-1", models.QRTypeDynamic)
	req.Content = models.QRContent{Type: models.ContentTypeText, Text: "hello"}

	result, err := svc.Create(context.Background(), "u1", req)
	require.NoError(t, err)

	record := qrRepo.slugs[result.Slug]
	assert.Equal(t, "https://view.example.com/view/"+result.Slug, record.TargetURL)
}

func TestCreateClampsLogoRatio(t *testing.T) {
	userRepo := newMemUserRepo(models.NewFreeUser("u1", "u1@example.com"))
	qrRepo := newMemQRRepo()
	svc := NewQRCodeService(qrRepo, userRepo, "")

	req := urlRequest("qr-1", models.QRTypeStatic)
	req.Design.Logo = "https://storage.example.com/o/users%2Fu1%2Flogo.png"
	req.Design.LogoSizeRatio = 0.9

	_, err := svc.Create(context.Background(), "u1", req)
	require.NoError(t, err)

	qrRepo.mu.Lock()
	stored := qrRepo.qrs["u1/qr-1"]
	qrRepo.mu.Unlock()
	assert.Equal(t, models.MaxLogoSizeRatio, stored.Design.LogoSizeRatio)
}

func TestCreateUnknownUser(t *testing.T) {
	svc := NewQRCodeService(newMemQRRepo(), newMemUserRepo(), "")
	_, err := svc.Create(context.Background(), "ghost", urlRequest("qr-1", models.QRTypeStatic))
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.False(t, errors.Is(err, ErrNotFound))
}
