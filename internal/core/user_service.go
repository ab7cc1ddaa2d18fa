package core

import (
	"context"
	"errors"
	"fmt"

	"atqr-backend-go/internal/db"
	"atqr-backend-go/internal/models"
)

// userService implements the UserService interface.
type userService struct {
	userRepo db.UserRepository
}

// NewUserService creates a new UserService instance.
func NewUserService(userRepo db.UserRepository) UserService {
	return &userService{
		userRepo: userRepo,
	}
}

// GetOrCreate retrieves a user by ID. If the user doesn't exist, it creates a
// new one with free-tier defaults (the backend half of account signup).
// Returns the user, a boolean indicating if the user was created, and an error.
func (s *userService) GetOrCreate(ctx context.Context, userID, email string) (*models.User, bool, error) {
	if userID == "" {
		return nil, false, fmt.Errorf("%w: missing user ID", ErrUnauthenticated)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			newUser := models.NewFreeUser(userID, email)
			if createErr := s.userRepo.Create(ctx, newUser); createErr != nil {
				if errors.Is(createErr, db.ErrAlreadyExists) {
					// Lost a race against a concurrent initialize; the
					// profile exists now, re-read it.
					existing, getErr := s.userRepo.GetByID(ctx, userID)
					if getErr == nil {
						return existing, false, nil
					}
				}
				return nil, false, fmt.Errorf("failed to create user (id: %s) after not found: %w", userID, createErr)
			}
			return newUser, true, nil
		}
		return nil, false, fmt.Errorf("failed to get user by ID '%s' from repository: %w", userID, err)
	}

	return user, false, nil
}

// GetByID retrieves a user by their ID.
func (s *userService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get user by ID '%s' from repository: %w", userID, err)
	}
	return user, nil
}
