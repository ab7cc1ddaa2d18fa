package cache

import "time"

// Cache is a small read-through cache abstraction. The redirect hot path uses
// it for slug records; a nil Cache means caching is disabled and callers fall
// through to the store.
type Cache interface {
	// Get unmarshals the cached value for key into result and reports whether
	// the key was present.
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}
