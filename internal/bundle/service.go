package bundle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gift-storefront-api/internal/cache"

	"github.com/rs/zerolog"
)

// storageKeyPrefix namespaces persisted bundles in the key-value store.
const storageKeyPrefix = "custom-bundle:"

// Storage is the string key-value store bundles are persisted to.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// ErrInvalidBundle is returned by Checkout when the unit count is outside
// the limits.
var ErrInvalidBundle = errors.New("bundle is outside the item limits")

// Service keeps one bundle per session, persisting the full state after
// every accepted mutation. A hot copy of each recently used state is held in
// an in-memory cache in front of the store.
type Service struct {
	// mu serializes the load, mutate, persist cycle.
	mu      sync.Mutex
	storage Storage
	hot     cache.Cache[string, State]
	ttl     time.Duration
	limits  Limits
	logger  zerolog.Logger
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Limits Limits

	// Hot caches decoded states by session. Nil disables the hot layer.
	Hot cache.Cache[string, State]

	// HotTTL is how long a decoded state stays hot.
	HotTTL time.Duration

	Logger zerolog.Logger
}

// NewService returns a Service persisting to storage.
func NewService(storage Storage, opts ServiceOptions) *Service {
	ttl := opts.HotTTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	limits := New(opts.Limits).Limits()
	return &Service{
		storage: storage,
		hot:     opts.Hot,
		ttl:     ttl,
		limits:  limits,
		logger:  opts.Logger,
	}
}

// Limits returns the unit bounds enforced by the service.
func (s *Service) Limits() Limits {
	return s.limits
}

// StorageKey returns the key a session's bundle is persisted under.
func StorageKey(session string) string {
	return storageKeyPrefix + session
}

// Get returns the session's current bundle.
func (s *Service) Get(ctx context.Context, session string) (*Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, session)
}

// Apply loads the session's bundle, runs fn and persists the result when fn
// reports a change. The bundle passed to fn must not be retained.
func (s *Service) Apply(ctx context.Context, session string, fn func(*Bundle) bool) (*Bundle, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load(ctx, session)
	if err != nil {
		return nil, false, err
	}
	if !fn(b) {
		return b, false, nil
	}
	if err := s.save(ctx, session, b.State()); err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// AddProduct adds one unit of p to the session's bundle.
func (s *Service) AddProduct(ctx context.Context, session string, p Product) (*Bundle, bool, error) {
	return s.Apply(ctx, session, func(b *Bundle) bool { return b.AddProduct(p) })
}

// RemoveProduct removes productID from the session's bundle.
func (s *Service) RemoveProduct(ctx context.Context, session, productID string) (*Bundle, bool, error) {
	return s.Apply(ctx, session, func(b *Bundle) bool { return b.RemoveProduct(productID) })
}

// UpdateQuantity sets the quantity of productID in the session's bundle.
func (s *Service) UpdateQuantity(ctx context.Context, session, productID string, quantity int) (*Bundle, bool, error) {
	return s.Apply(ctx, session, func(b *Bundle) bool { return b.UpdateQuantity(productID, quantity) })
}

// Clear empties the session's bundle.
func (s *Service) Clear(ctx context.Context, session string) (*Bundle, error) {
	b, _, err := s.Apply(ctx, session, func(b *Bundle) bool { return b.Clear() })
	return b, err
}

// Checkout hands a valid bundle to place and clears it once place succeeds.
// The whole cycle runs under mu so concurrent checkouts of one session
// cannot both see the same items. A failing place leaves the bundle as is.
func (s *Service) Checkout(ctx context.Context, session string, place func(State) error) (*Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load(ctx, session)
	if err != nil {
		return nil, err
	}
	if !b.IsValidBundle() {
		return b, ErrInvalidBundle
	}
	if err := place(b.State()); err != nil {
		return b, err
	}
	b.Clear()
	if err := s.save(ctx, session, b.State()); err != nil {
		return b, err
	}
	return b, nil
}

// SetStep moves the session's bundle to step.
func (s *Service) SetStep(ctx context.Context, session string, step Step) (*Bundle, bool, error) {
	return s.Apply(ctx, session, func(b *Bundle) bool { return b.SetStep(step) })
}

// load rehydrates a bundle. A missing or unreadable stored state yields an
// empty bundle; only storage failures are returned. Callers must hold mu.
func (s *Service) load(ctx context.Context, session string) (*Bundle, error) {
	b := New(s.limits)
	key := StorageKey(session)

	if s.hot != nil {
		if st, ok := s.hot.Get(key); ok {
			b.Load(st)
			return b, nil
		}
	}

	raw, ok, err := s.storage.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	if ok {
		st, err := Decode([]byte(raw))
		if err != nil {
			s.logger.Warn().Err(err).Str("session", session).Msg("discarding unreadable bundle")
		} else {
			b.Load(st)
		}
	}

	if s.hot != nil {
		s.hot.Set(key, b.State(), s.ttl)
	}
	return b, nil
}

// save persists st and refreshes the hot copy. Callers must hold mu.
func (s *Service) save(ctx context.Context, session string, st State) error {
	key := StorageKey(session)
	data, err := Encode(st)
	if err != nil {
		return err
	}
	if err := s.storage.Set(ctx, key, string(data)); err != nil {
		if s.hot != nil {
			s.hot.Delete(key)
		}
		return fmt.Errorf("persist bundle: %w", err)
	}
	if s.hot != nil {
		s.hot.Set(key, st, s.ttl)
	}
	return nil
}
