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

const (
	qrcodesSubcollection = "qrcodes"
	slugsCollection      = "qrSlugs"
	statsCollection      = "qrStats"
)

// firestoreQRCodeRepository implements the QRCodeRepository interface using Firestore.
// QR codes live in a subcollection under the owning user document.
type firestoreQRCodeRepository struct {
	client *firestore.Client
}

// NewFirestoreQRCodeRepository creates a new instance of firestoreQRCodeRepository.
func NewFirestoreQRCodeRepository(client *firestore.Client) QRCodeRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for QRCodeRepository.")
	}
	return &firestoreQRCodeRepository{client: client}
}

func (r *firestoreQRCodeRepository) qrcodes(userID string) *firestore.CollectionRef {
	return r.client.Collection(usersCollection).Doc(userID).Collection(qrcodesSubcollection)
}

// CountByOwner counts all QR codes owned by a user. Per-user counts are small
// by construction (quota-capped), so iterating snapshots is acceptable.
func (r *firestoreQRCodeRepository) CountByOwner(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, errors.New("userID cannot be empty for CountByOwner operation")
	}
	return countDocs(ctx, r.qrcodes(userID).Query, userID)
}

// CountDynamicByOwner counts only dynamic QR codes owned by a user.
func (r *firestoreQRCodeRepository) CountDynamicByOwner(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, errors.New("userID cannot be empty for CountDynamicByOwner operation")
	}
	return countDocs(ctx, r.qrcodes(userID).Where("type", "==", models.QRTypeDynamic), userID)
}

func countDocs(ctx context.Context, query firestore.Query, userID string) (int, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to iterate qrcodes for counting (owner '%s'): %w", userID, err)
		}
		count++
	}
	return count, nil
}

// CreateStatic persists a static QR code document. Create carries an
// exists=false precondition, so a reused client-generated ID fails cleanly.
func (r *firestoreQRCodeRepository) CreateStatic(ctx context.Context, qr *models.QRCode) error {
	if qr.ID == "" || qr.UID == "" {
		return errors.New("qr ID and owner UID cannot be empty for CreateStatic operation")
	}
	_, err := r.qrcodes(qr.UID).Doc(qr.ID).Create(ctx, qr)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("qr code with ID '%s': %w", qr.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create qr code with ID '%s': %w", qr.ID, err)
	}
	return nil
}

// CreateDynamicBundle creates the QR code, its slug record and a zero stats
// record in one transaction. The candidate slug and QR ID are read first; if
// either already exists the transaction aborts without writing anything, so a
// QR code without its SlugRecord is never an observable state.
func (r *firestoreQRCodeRepository) CreateDynamicBundle(ctx context.Context, qr *models.QRCode, record *models.SlugRecord) error {
	if qr.ID == "" || qr.UID == "" {
		return errors.New("qr ID and owner UID cannot be empty for CreateDynamicBundle operation")
	}
	if record == nil || record.Slug == "" {
		return errors.New("slug record cannot be empty for CreateDynamicBundle operation")
	}

	qrRef := r.qrcodes(qr.UID).Doc(qr.ID)
	slugRef := r.client.Collection(slugsCollection).Doc(record.Slug)
	statsRef := r.client.Collection(statsCollection).Doc(record.Slug)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(slugRef); err == nil {
			return fmt.Errorf("slug '%s' is already allocated: %w", record.Slug, ErrAlreadyExists)
		} else if status.Code(err) != codes.NotFound {
			return fmt.Errorf("failed to check slug '%s': %w", record.Slug, err)
		}
		if _, err := tx.Get(qrRef); err == nil {
			return fmt.Errorf("qr code with ID '%s': %w", qr.ID, ErrAlreadyExists)
		} else if status.Code(err) != codes.NotFound {
			return fmt.Errorf("failed to check qr code '%s': %w", qr.ID, err)
		}

		if err := tx.Create(qrRef, qr); err != nil {
			return err
		}
		if err := tx.Create(slugRef, record); err != nil {
			return err
		}
		return tx.Create(statsRef, models.NewScanStats())
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return err
		}
		return fmt.Errorf("failed to create dynamic qr bundle for '%s': %w", qr.ID, err)
	}
	return nil
}
