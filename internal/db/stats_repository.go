package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"

	"atqr-backend-go/internal/models"
)

// firestoreStatsRepository implements the StatsRepository interface using Firestore.
type firestoreStatsRepository struct {
	client *firestore.Client
}

// NewFirestoreStatsRepository creates a new instance of firestoreStatsRepository.
func NewFirestoreStatsRepository(client *firestore.Client) StatsRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for StatsRepository.")
	}
	return &firestoreStatsRepository{client: client}
}

// ApplyScan records one scan against a slug using server-side increment
// transforms, never read-modify-write, so concurrent scans cannot lose counts.
// Dimension labels arrive pre-sanitized and are addressed with FieldPath
// elements rather than dotted path strings. The stats and slug documents are
// created together at allocation time, so both updates target existing docs.
func (r *firestoreStatsRepository) ApplyScan(ctx context.Context, slug string, scan *models.Scan) error {
	if slug == "" {
		return errors.New("slug cannot be empty for ApplyScan operation")
	}
	if scan == nil {
		return errors.New("scan cannot be nil for ApplyScan operation")
	}

	updates := []firestore.Update{
		{Path: "scans", Value: firestore.Increment(1)},
		{Path: "lastScannedAt", Value: scan.ScannedAt},
		{FieldPath: firestore.FieldPath{"countries", scan.Country}, Value: firestore.Increment(1)},
		{FieldPath: firestore.FieldPath{"cities", scan.Country, scan.City}, Value: firestore.Increment(1)},
		{FieldPath: firestore.FieldPath{"os", scan.OS}, Value: firestore.Increment(1)},
	}
	_, statsErr := r.client.Collection(statsCollection).Doc(slug).Update(ctx, updates)
	if statsErr != nil {
		statsErr = fmt.Errorf("failed to apply scan stats for slug '%s': %w", slug, statsErr)
	}

	_, countErr := r.client.Collection(slugsCollection).Doc(slug).Update(ctx, []firestore.Update{
		{Path: "scanCount", Value: firestore.Increment(1)},
	})
	if countErr != nil {
		countErr = fmt.Errorf("failed to bump scan count for slug '%s': %w", slug, countErr)
	}

	return errors.Join(statsErr, countErr)
}
