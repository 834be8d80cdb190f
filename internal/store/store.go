// Package store is the data access layer of the storefront. Reads go through
// an in-process read-through cache with per-entity TTLs; writes invalidate the
// entities they touch.
//
// Values returned from cached reads are shared between callers and must be
// treated as read-only.
package store

import (
	"context"
	"errors"
	"time"

	"gift-storefront-api/internal/cache"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a create or update payload failed validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates a uniqueness rule would be broken
	ErrConflict = errors.New("conflict")

	// ErrInvalidOrder indicates an order cannot be priced or placed
	ErrInvalidOrder = errors.New("invalid order")

	// ErrForbidden indicates the caller may not change the record
	ErrForbidden = errors.New("forbidden")
)

// Cache entity names. Keys are built with cache.Key so every entry of an
// entity shares the entity prefix.
const (
	entityProducts   = "products"
	entityProduct    = "product"
	entityCategories = "categories"
	entityBanners    = "banners"
	entityPackaging  = "packaging"
	entityServices   = "services"
	entityOrders     = "orders"
	entityReviews    = "reviews"
	entityLikes      = "likes"
)

// TTLs holds how long each family of reads stays cached.
type TTLs struct {
	Products   time.Duration
	Product    time.Duration
	Categories time.Duration
	Banners    time.Duration
	Packaging  time.Duration
	Services   time.Duration
	Orders     time.Duration
	Reviews    time.Duration
	Likes      time.Duration
}

// DefaultTTLs returns TTLs derived from base, the cache default.
func DefaultTTLs(base time.Duration) TTLs {
	if base <= 0 {
		base = cache.DefaultTTL
	}
	return TTLs{
		Products:   base,
		Product:    2 * base,
		Categories: 6 * base,
		Banners:    2 * base,
		Packaging:  6 * base,
		Services:   6 * base,
		Orders:     base / 5,
		Reviews:    base / 2,
		Likes:      base,
	}
}

// Store reads and writes storefront records.
type Store struct {
	db     *gorm.DB
	loader *cache.Loader[any]
	ttl    TTLs
	logger zerolog.Logger
	now    func() time.Time
}

// Options configures a Store.
type Options struct {
	// Cache holds read results. Nil creates a concurrency-safe LRU cache
	// with default sizing.
	Cache cache.Cache[string, any]

	// Coalesce shares one query between concurrent misses on a key.
	Coalesce bool

	// TTLs overrides the per-entity TTLs. Zero uses DefaultTTLs.
	TTLs TTLs

	Logger zerolog.Logger

	// Now is the clock used for review edit windows.
	Now func() time.Time
}

// New returns a Store over db.
func New(db *gorm.DB, opts Options) *Store {
	c := opts.Cache
	if c == nil {
		c = cache.NewLRUCache[string, any](cache.Options{Name: "store", ConcurrencySafe: true})
	}
	ttl := opts.TTLs
	if ttl == (TTLs{}) {
		ttl = DefaultTTLs(cache.DefaultTTL)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		db:     db,
		loader: cache.NewLoader(c, opts.Coalesce),
		ttl:    ttl,
		logger: opts.Logger,
		now:    now,
	}
}

// Cache returns the read cache.
func (s *Store) Cache() cache.Cache[string, any] {
	return s.loader.Cache()
}

// ClearCache drops every cached read.
func (s *Store) ClearCache() {
	s.loader.Cache().Clear()
}

// cached reads key through the store cache, calling load on a miss.
func cached[T any](ctx context.Context, s *Store, key cache.Key, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	k := key.String()
	v, err := s.loader.Load(ctx, k, ttl, func(ctx context.Context) (any, error) {
		s.logger.Debug().Str("key", k).Msg("cache miss")
		t, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return t, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		// a value of another type under the same key; go to the database
		return load(ctx)
	}
	return t, nil
}

// invalidate drops every cached read of the given entities.
func (s *Store) invalidate(entities ...string) {
	c := s.loader.Cache()
	for _, e := range entities {
		n := cache.DeletePrefix(c, cache.Key{Entity: e}.Prefix())
		if n > 0 {
			s.logger.Debug().Str("entity", e).Int("removed", n).Msg("cache invalidated")
		}
	}
}

// forget drops a single cached key.
func (s *Store) forget(key cache.Key) {
	s.loader.Cache().Delete(key.String())
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
