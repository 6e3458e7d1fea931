// Package etagcache is a conditional-GET cache layer for HTTP applications.
//
// It operates as a two tiered piece of middleware. On the request side it
// checks whether a GET carries an If-None-Match header matching the
// validators stored for the request's cache key, and if so answers 304
// without invoking the downstream application. On the response side it
// captures the validator headers of successful GETs so future requests can
// be short-circuited.
//
// Invalidation is by namespace versioning: every cache key is derived from
// the version token of the scope its URI belongs to, and the write-path
// hooks regenerate tokens instead of deleting entries. See the namespace
// package for details.
package etagcache

import (
	"context"
	"net/http"

	"github.com/etagcache/etagcache/cache"
	"github.com/etagcache/etagcache/pkg/cachekey"
	"github.com/etagcache/etagcache/pkg/namespace"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Storage for namespace tokens and validator sets.
	// A nil cache disables the layer entirely: the middleware becomes a
	// pass-through and no invalidation occurs.
	Cache cache.CacheProvider
	// Resolves the response media type for a request. Negotiation
	// failures fall back to DefaultMediaType.
	Negotiate cachekey.NegotiateFunc
	// Returns the identity of the current caller.
	// GUEST is assumed if nil or empty.
	Principal cachekey.PrincipalFunc
	// Media type identifier to use when negotiation fails.
	DefaultMediaType string
	// URL prefix the application is mounted under, stripped from paths
	// before scope classification.
	Prefix string
	// Disable the read path (interception and recording), e.g. for a
	// writer-only deployment that still runs the invalidation hooks.
	DisableRead bool
	// Logger to use. The global zerolog logger is used if nil.
	Logger *zerolog.Logger
}

// EtagCache holds the collaborators of the cache layer. It carries no
// per-request state: everything captured during a request lives in a
// per-request responseTap.
type EtagCache struct {
	cache       cache.CacheProvider
	keyer       cachekey.Keyer
	ns          *namespace.Manager
	prefix      string
	disableRead bool
	log         zerolog.Logger
}

// New initializes the etag-cache instance.
func New(config Config) *EtagCache {
	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}
	// without a backend there is nothing to manage namespaces in
	var ns *namespace.Manager
	if config.Cache != nil {
		ns = namespace.NewManager(config.Cache, logger)
	}
	return &EtagCache{
		cache: config.Cache,
		keyer: cachekey.Keyer{
			Negotiate:        config.Negotiate,
			Principal:        config.Principal,
			DefaultMediaType: config.DefaultMediaType,
		},
		ns:          ns,
		prefix:      config.Prefix,
		disableRead: config.DisableRead,
		log:         logger,
	}
}

// Invalidator returns the write-path invalidation hooks for this cache.
func (c *EtagCache) Invalidator() *Invalidator {
	return &Invalidator{ns: c.ns, log: c.log}
}

// fwdReason explains why a request was forwarded to the application,
// in the vocabulary of RFC 9211 Cache-Status.
type fwdReason string

const (
	fwdBypass  fwdReason = "bypass"
	fwdMethod  fwdReason = "method"
	fwdRequest fwdReason = "request"
	fwdUriMiss fwdReason = "uri-miss"
	fwdMiss    fwdReason = "miss"
)

// intercepted is the short-circuit outcome of the read path: the request
// is answered with 304 and the contained headers, without invoking the
// downstream application.
type intercepted struct {
	validators ValidatorSet
}

// Middleware wraps next with the conditional-GET cache layer.
func (c *EtagCache) Middleware(next http.Handler) http.Handler {
	if c.cache == nil || c.disableRead {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit, fwd := c.check(r)
		if hit != nil {
			c.sendNotModified(w, r, hit)
			return
		}
		w.Header().Set("Cache-Status", "etag-cache; fwd="+string(fwd))
		// fresh capture state for every request
		tap := newResponseTap(w)
		next.ServeHTTP(tap, r)
		c.record(r, tap)
	})
}

// check runs the read path. A non-nil intercepted means the request is
// answered from the cache; otherwise the forward reason says why it
// passes through. Backend failures disable the layer for this request,
// they are never surfaced.
func (c *EtagCache) check(r *http.Request) (*intercepted, fwdReason) {
	if r.Method != http.MethodGet {
		return nil, fwdMethod
	}
	match := r.Header.Get("If-None-Match")
	if match == "" {
		c.log.Trace().Str("uri", cachekey.RequestURI(r)).Msg("No if-none-match, not checking cache")
		return nil, fwdRequest
	}
	ctx := r.Context()
	key, err := c.key(ctx, r)
	if err != nil {
		c.log.Error().Err(err).Msg("Could not derive cache key")
		cacheBypasses.Inc()
		return nil, fwdBypass
	}
	log := c.log.With().Str("key", key).Logger()
	value, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		log.Error().Err(err).Msg("Could not read from cache")
		cacheBypasses.Inc()
		return nil, fwdBypass
	}
	if !ok {
		log.Trace().Msg("No stored validators")
		cacheMisses.Inc()
		return nil, fwdUriMiss
	}
	vs, err := DecodeValidatorSet(value)
	if err != nil {
		log.Error().Err(err).Msg("Could not decode stored validators")
		cacheBypasses.Inc()
		return nil, fwdBypass
	}
	if vs.ETag() != match {
		log.Trace().Str("cached", vs.ETag()).Str("match", match).Msg("Cache miss")
		cacheMisses.Inc()
		return nil, fwdMiss
	}
	log.Trace().Str("match", match).Msg("Cache hit")
	cacheHits.Inc()
	return &intercepted{validators: vs}, ""
}

// record runs the write path: it stores the validator headers of a
// successful GET under the same key the read path derives.
func (c *EtagCache) record(r *http.Request, tap *responseTap) {
	if r.Method != http.MethodGet || tap.StatusCode() != http.StatusOK {
		return
	}
	vs := NewValidatorSet(tap.Header())
	if vs.ETag() == "" {
		return
	}
	ctx := r.Context()
	key, err := c.key(ctx, r)
	if err != nil {
		c.log.Error().Err(err).Msg("Could not derive cache key")
		return
	}
	value, err := vs.Encode()
	if err != nil {
		c.log.Error().Err(err).Msg("Could not encode validators")
		return
	}
	if err := c.cache.Put(ctx, key, value); err != nil {
		c.log.Error().Err(err).Str("key", key).Msg("Could not write to cache")
		return
	}
	cacheStores.Inc()
	c.log.Trace().Str("key", key).Str("etag", vs.ETag()).Msg("Stored validators")
}

func (c *EtagCache) sendNotModified(w http.ResponseWriter, r *http.Request, hit *intercepted) {
	hit.validators.WriteTo(w.Header())
	w.Header().Set("Cache-Status", "etag-cache; hit")
	w.WriteHeader(http.StatusNotModified)
	c.log.Debug().
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Int("hit", 1).
		Msg("Sending response to client")
}

// key derives the cache key for a request. Resolving the namespace token
// creates one on first use; that is the only side effect of the read path.
func (c *EtagCache) key(ctx context.Context, r *http.Request) (string, error) {
	scope := namespace.ForPath(c.prefix, r.URL.Path)
	token, err := c.ns.Resolve(ctx, scope)
	if err != nil {
		return "", err
	}
	return c.keyer.Key(r, token), nil
}
