package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"atqr-backend-go/internal/models"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) EnsureCustomer(ctx context.Context, userID, email string) (string, error) {
	args := m.Called(ctx, userID, email)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, userID, customerID string) (string, error) {
	args := m.Called(ctx, userID, customerID)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	args := m.Called(ctx, customerID)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) VerifyEvent(payload []byte, signature string) (BillingEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(BillingEvent), args.Error(1)
}

func TestCreateCheckoutSessionLinksCustomerOnce(t *testing.T) {
	userRepo := newMemUserRepo(models.NewFreeUser("u1", "u1@example.com"))
	gateway := &mockGateway{}
	svc := NewBillingService(userRepo, NewEntitlementService(userRepo, zap.NewNop()), gateway, zap.NewNop())

	gateway.On("EnsureCustomer", mock.Anything, "u1", "u1@example.com").Return("cus_123", nil).Once()
	gateway.On("CreateCheckoutSession", mock.Anything, "u1", "cus_123").Return("https://checkout.stripe.com/s/1", nil).Twice()

	url, err := svc.CreateCheckoutSession(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/s/1", url)
	assert.Equal(t, "cus_123", userRepo.get("u1").StripeCustomerID, "customer link persisted")

	// The second session reuses the stored customer.
	_, err = svc.CreateCheckoutSession(context.Background(), "u1")
	require.NoError(t, err)
	gateway.AssertExpectations(t)
}

func TestCreateCheckoutSessionUnknownUser(t *testing.T) {
	userRepo := newMemUserRepo()
	svc := NewBillingService(userRepo, NewEntitlementService(userRepo, zap.NewNop()), &mockGateway{}, zap.NewNop())

	_, err := svc.CreateCheckoutSession(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreatePortalSessionRequiresBillingProfile(t *testing.T) {
	userRepo := newMemUserRepo(models.NewFreeUser("u1", "u1@example.com"))
	svc := NewBillingService(userRepo, NewEntitlementService(userRepo, zap.NewNop()), &mockGateway{}, zap.NewNop())

	_, err := svc.CreatePortalSession(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrFailedPrecondition)
}

func TestCreatePortalSession(t *testing.T) {
	linked := models.NewFreeUser("u1", "u1@example.com")
	linked.StripeCustomerID = "cus_123"
	userRepo := newMemUserRepo(linked)

	gateway := &mockGateway{}
	gateway.On("CreatePortalSession", mock.Anything, "cus_123").Return("https://billing.stripe.com/p/1", nil).Once()

	svc := NewBillingService(userRepo, NewEntitlementService(userRepo, zap.NewNop()), gateway, zap.NewNop())
	url, err := svc.CreatePortalSession(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.com/p/1", url)
	gateway.AssertExpectations(t)
}

func TestHandleWebhookBadSignature(t *testing.T) {
	userRepo := newMemUserRepo()
	gateway := &mockGateway{}
	gateway.On("VerifyEvent", mock.Anything, "bad-sig").Return(nil, errors.New("signature mismatch")).Once()

	svc := NewBillingService(userRepo, NewEntitlementService(userRepo, zap.NewNop()), gateway, zap.NewNop())
	err := svc.HandleWebhook(context.Background(), []byte("{}"), "bad-sig")
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestHandleWebhookAppliesEvent(t *testing.T) {
	userRepo := newMemUserRepo(models.NewFreeUser("u1", "u1@example.com"))
	periodEnd := time.Now().UTC().Add(30 * 24 * time.Hour).Truncate(time.Second)

	gateway := &mockGateway{}
	gateway.On("VerifyEvent", mock.Anything, "sig").Return(CheckoutCompleted{
		AccountRef:         "u1",
		BillingCustomerRef: "cus_123",
		PeriodEnd:          periodEnd,
	}, nil).Once()

	svc := NewBillingService(userRepo, NewEntitlementService(userRepo, zap.NewNop()), gateway, zap.NewNop())
	require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))

	user := userRepo.get("u1")
	assert.Equal(t, models.PlanPaid, user.Plan)
	assert.Equal(t, "cus_123", user.StripeCustomerID)
}

func TestHandleWebhookDropsUnknownAccount(t *testing.T) {
	userRepo := newMemUserRepo()
	gateway := &mockGateway{}
	gateway.On("VerifyEvent", mock.Anything, "sig").Return(InvoicePaid{BillingCustomerRef: "cus_unknown"}, nil).Once()

	svc := NewBillingService(userRepo, NewEntitlementService(userRepo, zap.NewNop()), gateway, zap.NewNop())
	// A verified event for an account we don't know is acked, not bounced:
	// retrying would never make the account appear.
	assert.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
}
