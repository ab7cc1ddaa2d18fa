package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"atqr-backend-go/internal/models"
)

const usersCollection = "users"

// ErrNotFound is a common error for when a document is not found in Firestore.
var ErrNotFound = errors.New("document not found")

// ErrAlreadyExists is returned when a create collides with an existing document.
var ErrAlreadyExists = errors.New("document already exists")

// ErrUnchanged may be returned from a Mutate callback to commit nothing while
// still returning the current document to the caller.
var ErrUnchanged = errors.New("no changes to apply")

// firestoreUserRepository implements the UserRepository interface using Firestore.
type firestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository creates a new instance of firestoreUserRepository.
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for UserRepository.")
	}
	return &firestoreUserRepository{client: client}
}

// Create adds a new user document to Firestore.
// The user.ID (Firebase Auth UID) is used as the Firestore document ID.
func (r *firestoreUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Create operation")
	}
	_, err := r.client.Collection(usersCollection).Doc(user.ID).Create(ctx, user)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("user with ID '%s': %w", user.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user with ID '%s': %w", user.ID, err)
	}
	return nil
}

// GetByID retrieves a user document from Firestore by its ID (Firebase Auth UID).
func (r *firestoreUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user with ID '%s': %w", userID, err)
	}
	return decodeUser(docSnap)
}

// GetByBillingCustomerID retrieves the user linked to a billing customer
// reference. Billing webhook events that only carry the customer ID resolve
// the account through this query.
func (r *firestoreUserRepository) GetByBillingCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	if customerID == "" {
		return nil, errors.New("customerID cannot be empty for GetByBillingCustomerID operation")
	}
	iter := r.client.Collection(usersCollection).
		Where("stripeCustomerId", "==", customerID).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	docSnap, err := iter.Next()
	if err == iterator.Done {
		return nil, fmt.Errorf("no user linked to billing customer '%s': %w", customerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user by billing customer '%s': %w", customerID, err)
	}
	return decodeUser(docSnap)
}

// Mutate applies fn to the current user document inside a Firestore
// transaction. The read and the write-back are atomic, so each entitlement
// transition is a single conditional update: concurrent events for the same
// user serialize at the document and cannot interleave into an inconsistent
// composite state.
func (r *firestoreUserRepository) Mutate(ctx context.Context, userID string, fn func(user *models.User) error) (*models.User, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for Mutate operation")
	}
	ref := r.client.Collection(usersCollection).Doc(userID)

	var out *models.User
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docSnap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
			}
			return fmt.Errorf("failed to get user with ID '%s': %w", userID, err)
		}
		user, err := decodeUser(docSnap)
		if err != nil {
			return err
		}
		if err := fn(user); err != nil {
			if errors.Is(err, ErrUnchanged) {
				out = user
				return nil
			}
			return err
		}
		out = user
		return tx.Set(ref, user)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeUser(docSnap *firestore.DocumentSnapshot) (*models.User, error) {
	var user models.User
	if err := docSnap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user data for ID '%s': %w", docSnap.Ref.ID, err)
	}
	user.ID = docSnap.Ref.ID
	return &user, nil
}
