package namespace

import (
	"context"
	"fmt"

	"github.com/etagcache/etagcache/cache"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager resolves scopes to their current tokens and regenerates tokens
// on invalidation. It holds no state of its own: tokens live entirely in
// the cache backend.
type Manager struct {
	cache cache.CacheProvider
	log   zerolog.Logger
}

func NewManager(provider cache.CacheProvider, logger zerolog.Logger) *Manager {
	return &Manager{
		cache: provider,
		log:   logger,
	}
}

// Resolve returns the scope's current token, creating and persisting one
// if it does not exist yet. Two requests racing on first-time resolution
// may each generate a token; the loser's entry is stored under a key
// nobody else ever derives, costing at most one extra miss.
func (m *Manager) Resolve(ctx context.Context, s Scope) (string, error) {
	key := s.Key()
	value, ok, err := m.cache.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", key, err)
	}
	if ok {
		return string(value), nil
	}
	token := uuid.NewString()
	m.log.Trace().Str("scope", key).Str("token", token).Msg("No namespace token, creating")
	if err := m.cache.Put(ctx, key, []byte(token)); err != nil {
		return "", fmt.Errorf("resolve %s: %w", key, err)
	}
	return token, nil
}

// Bump replaces the tokens of the given scopes with fresh random values.
// Old tokens are never enumerated or deleted: every cache entry keyed
// through them simply becomes unreachable.
func (m *Manager) Bump(ctx context.Context, scopes ...Scope) error {
	for _, s := range scopes {
		token := uuid.NewString()
		if err := m.cache.Put(ctx, s.Key(), []byte(token)); err != nil {
			return fmt.Errorf("bump %s: %w", s.Key(), err)
		}
		m.log.Trace().Str("scope", s.Key()).Str("token", token).Msg("Bumped namespace token")
	}
	return nil
}
