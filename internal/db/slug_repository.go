package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"atqr-backend-go/internal/models"
)

// firestoreSlugRepository implements the SlugRepository interface using Firestore.
type firestoreSlugRepository struct {
	client *firestore.Client
}

// NewFirestoreSlugRepository creates a new instance of firestoreSlugRepository.
func NewFirestoreSlugRepository(client *firestore.Client) SlugRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for SlugRepository.")
	}
	return &firestoreSlugRepository{client: client}
}

// Get retrieves a slug record by its slug.
func (r *firestoreSlugRepository) Get(ctx context.Context, slug string) (*models.SlugRecord, error) {
	if slug == "" {
		return nil, errors.New("slug cannot be empty for Get operation")
	}
	docSnap, err := r.client.Collection(slugsCollection).Doc(slug).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("slug '%s' not found: %w", slug, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get slug '%s': %w", slug, err)
	}

	var record models.SlugRecord
	if err := docSnap.DataTo(&record); err != nil {
		return nil, fmt.Errorf("failed to decode slug record for '%s': %w", slug, err)
	}
	record.Slug = docSnap.Ref.ID
	return &record, nil
}

// Deactivate flips isActive to false inside a transaction and reports whether
// this call performed the flip. The flip is one-way: a record that is already
// inactive is left untouched and reported as not flipped, so N concurrent
// expiry detections trigger the follow-up downgrade exactly once.
func (r *firestoreSlugRepository) Deactivate(ctx context.Context, slug string) (bool, error) {
	if slug == "" {
		return false, errors.New("slug cannot be empty for Deactivate operation")
	}
	ref := r.client.Collection(slugsCollection).Doc(slug)

	flipped := false
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		flipped = false // reset on transaction retry
		docSnap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("slug '%s' not found: %w", slug, ErrNotFound)
			}
			return fmt.Errorf("failed to get slug '%s': %w", slug, err)
		}
		var record models.SlugRecord
		if err := docSnap.DataTo(&record); err != nil {
			return fmt.Errorf("failed to decode slug record for '%s': %w", slug, err)
		}
		if !record.IsActive {
			return nil
		}
		flipped = true
		return tx.Update(ref, []firestore.Update{{Path: "isActive", Value: false}})
	})
	if err != nil {
		return false, err
	}
	return flipped, nil
}
