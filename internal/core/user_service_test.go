package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atqr-backend-go/internal/models"
)

func TestGetOrCreateNewUser(t *testing.T) {
	userRepo := newMemUserRepo()
	svc := NewUserService(userRepo)

	user, created, err := svc.GetOrCreate(context.Background(), "u1", "u1@example.com")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.PlanFree, user.Plan)
	assert.Equal(t, models.SubscriptionInactive, user.SubscriptionStatus)
	assert.Equal(t, 10, user.QRLimit)
	assert.Equal(t, 0, user.DynamicQRLimit)
	assert.False(t, user.TrialUsed)
}

func TestGetOrCreateExistingUser(t *testing.T) {
	existing := models.NewFreeUser("u1", "u1@example.com")
	existing.Plan = models.PlanPaid
	userRepo := newMemUserRepo(existing)
	svc := NewUserService(userRepo)

	user, created, err := svc.GetOrCreate(context.Background(), "u1", "u1@example.com")
	require.NoError(t, err)
	assert.False(t, created, "initialize is idempotent")
	assert.Equal(t, models.PlanPaid, user.Plan, "existing profile is never reset")
}

func TestGetOrCreateLosesCreationRace(t *testing.T) {
	userRepo := newMemUserRepo()
	svc := NewUserService(userRepo)

	// Another request creates the profile between our read and our write.
	raceRepo := &racingUserRepo{memUserRepo: userRepo}
	raced, createdByRace, err := NewUserService(raceRepo).GetOrCreate(context.Background(), "u1", "u1@example.com")
	require.NoError(t, err)
	assert.False(t, createdByRace, "loser of the race reports the existing profile")
	assert.Equal(t, "u1", raced.ID)

	// And the winner's document is what everyone sees afterwards.
	user, created, err := svc.GetOrCreate(context.Background(), "u1", "u1@example.com")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "u1", user.ID)
}

func TestGetByIDUnknownUser(t *testing.T) {
	svc := NewUserService(newMemUserRepo())
	_, err := svc.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

// racingUserRepo simulates losing the create race: the profile appears
// between the not-found read and the create attempt.
type racingUserRepo struct {
	*memUserRepo
}

func (r *racingUserRepo) Create(ctx context.Context, user *models.User) error {
	winner := models.NewFreeUser(user.ID, user.Email)
	if err := r.memUserRepo.Create(ctx, winner); err != nil {
		return err
	}
	return r.memUserRepo.Create(ctx, user)
}
