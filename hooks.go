package etagcache

import (
	"context"

	"github.com/etagcache/etagcache/pkg/namespace"
	"github.com/etagcache/etagcache/store"

	"github.com/rs/zerolog"
)

// Invalidator is the write-path half of the cache layer. It bumps the
// namespace tokens affected by store mutations, which makes every cache
// entry keyed through the old tokens unreachable. It never enumerates or
// deletes cache entries.
type Invalidator struct {
	ns  *namespace.Manager
	log zerolog.Logger
}

// Bind subscribes the invalidator to the store's mutation notifications.
// Leave it unbound for a reader-only deployment.
func (inv *Invalidator) Bind(n store.Notifier) {
	n.Subscribe(inv.Apply)
}

// Apply bumps the tokens affected by a single mutation.
//
// Every mutation also bumps the global scope: derived views such as search
// results and composite item listings cannot be traced back to the
// containers they depend on, so they are conservatively invalidated on
// every write. This trades precision for invalidation correctness.
func (inv *Invalidator) Apply(m store.Mutation) {
	if inv.ns == nil {
		return
	}
	var scopes []namespace.Scope
	switch m.Kind {
	case store.KindItem:
		scopes = []namespace.Scope{
			namespace.Instance(namespace.Simple, m.Container),
			namespace.Any(),
		}
	case store.KindContainer:
		scopes = []namespace.Scope{
			namespace.Instance(namespace.Simple, m.Name),
			namespace.Class(namespace.Simple),
			namespace.Any(),
		}
	case store.KindComposite:
		scopes = []namespace.Scope{
			namespace.Instance(namespace.Composite, m.Name),
			namespace.Class(namespace.Composite),
			namespace.Any(),
		}
	default:
		return
	}
	if err := inv.ns.Bump(context.Background(), scopes...); err != nil {
		inv.log.Error().Err(err).
			Str("kind", string(m.Kind)).
			Str("name", m.Name).
			Msg("Could not bump namespace tokens")
		return
	}
	for _, s := range scopes {
		invalidations.WithLabelValues(s.Kind.String()).Inc()
	}
}
