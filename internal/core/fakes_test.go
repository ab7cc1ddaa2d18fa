package core

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"atqr-backend-go/internal/db"
	"atqr-backend-go/internal/models"
)

// In-memory repository fakes. They are mutex-guarded so the concurrency
// behavior of the services can be tested without a Firestore emulator, and
// they honor the same sentinel-error contract as the real repositories.

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemUserRepo(users ...*models.User) *memUserRepo {
	r := &memUserRepo{users: map[string]models.User{}}
	for _, u := range users {
		r.users[u.ID] = *u
	}
	return r
}

func (r *memUserRepo) GetByID(_ context.Context, userID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &u, nil
}

func (r *memUserRepo) GetByBillingCustomerID(_ context.Context, customerID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.StripeCustomerID == customerID {
			out := u
			return &out, nil
		}
	}
	return nil, db.ErrNotFound
}

func (r *memUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; ok {
		return db.ErrAlreadyExists
	}
	r.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) Mutate(_ context.Context, userID string, fn func(user *models.User) error) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	if err := fn(&u); err != nil {
		if err == db.ErrUnchanged {
			out := u
			return &out, nil
		}
		return nil, err
	}
	r.users[userID] = u
	out := u
	return &out, nil
}

func (r *memUserRepo) get(userID string) models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[userID]
}

type memQRRepo struct {
	mu    sync.Mutex
	qrs   map[string]models.QRCode // keyed uid + "/" + qrID
	slugs map[string]models.SlugRecord
	stats map[string]models.ScanStats
}

func newMemQRRepo() *memQRRepo {
	return &memQRRepo{
		qrs:   map[string]models.QRCode{},
		slugs: map[string]models.SlugRecord{},
		stats: map[string]models.ScanStats{},
	}
}

func (r *memQRRepo) seed(uid string, qrType string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < n; i++ {
		id := uid + "/seed-" + qrType + string(rune('a'+i))
		r.qrs[id] = models.QRCode{ID: id, UID: uid, Type: qrType}
	}
}

func (r *memQRRepo) CountByOwner(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, qr := range r.qrs {
		if qr.UID == userID {
			count++
		}
	}
	return count, nil
}

func (r *memQRRepo) CountDynamicByOwner(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, qr := range r.qrs {
		if qr.UID == userID && qr.Type == models.QRTypeDynamic {
			count++
		}
	}
	return count, nil
}

func (r *memQRRepo) CreateStatic(_ context.Context, qr *models.QRCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := qr.UID + "/" + qr.ID
	if _, ok := r.qrs[key]; ok {
		return db.ErrAlreadyExists
	}
	r.qrs[key] = *qr
	return nil
}

func (r *memQRRepo) CreateDynamicBundle(_ context.Context, qr *models.QRCode, record *models.SlugRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := qr.UID + "/" + qr.ID
	if _, ok := r.qrs[key]; ok {
		return db.ErrAlreadyExists
	}
	if _, ok := r.slugs[record.Slug]; ok {
		return db.ErrAlreadyExists
	}
	r.qrs[key] = *qr
	r.slugs[record.Slug] = *record
	r.stats[record.Slug] = *models.NewScanStats()
	return nil
}

func (r *memQRRepo) totalStored() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.qrs)
}

type memSlugRepo struct {
	mu      sync.Mutex
	records map[string]models.SlugRecord
	flips   int
}

func newMemSlugRepo(records ...*models.SlugRecord) *memSlugRepo {
	r := &memSlugRepo{records: map[string]models.SlugRecord{}}
	for _, rec := range records {
		r.records[rec.Slug] = *rec
	}
	return r
}

func (r *memSlugRepo) Get(_ context.Context, slug string) (*models.SlugRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[slug]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &rec, nil
}

func (r *memSlugRepo) Deactivate(_ context.Context, slug string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[slug]
	if !ok {
		return false, db.ErrNotFound
	}
	if !rec.IsActive {
		return false, nil
	}
	rec.IsActive = false
	r.records[slug] = rec
	r.flips++
	return true, nil
}

func (r *memSlugRepo) get(slug string) models.SlugRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[slug]
}

func (r *memSlugRepo) flipCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flips
}

// memStatsRepo aggregates scans the way the Firestore increments do, so tests
// can assert on the resulting counters.
type memStatsRepo struct {
	mu    sync.Mutex
	stats map[string]*models.ScanStats
}

func newMemStatsRepo() *memStatsRepo {
	return &memStatsRepo{stats: map[string]*models.ScanStats{}}
}

func (r *memStatsRepo) ApplyScan(_ context.Context, slug string, scan *models.Scan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stats[slug]
	if !ok {
		st = models.NewScanStats()
		r.stats[slug] = st
	}
	st.Scans++
	at := scan.ScannedAt
	st.LastScannedAt = &at
	st.Countries[scan.Country]++
	if st.Cities[scan.Country] == nil {
		st.Cities[scan.Country] = map[string]int64{}
	}
	st.Cities[scan.Country][scan.City]++
	st.OS[scan.OS]++
	return nil
}

func (r *memStatsRepo) get(slug string) models.ScanStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stats[slug]
	if !ok {
		return models.ScanStats{}
	}
	out := *st
	return out
}

// memCache is an in-memory cache.Cache for testing the read-through path.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Get(key string, result any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, result)
}

func (c *memCache) Set(key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

func (c *memCache) Invalidate(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}
