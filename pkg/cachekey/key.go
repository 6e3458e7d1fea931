// Package cachekey derives cache keys from request context.
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// DefaultPrincipal is the identity used for anonymous callers.
const DefaultPrincipal = "GUEST"

// NegotiateFunc resolves the response media type for a request.
// It may fail, e.g. on an unsupported or malformed Accept header.
type NegotiateFunc func(*http.Request) (string, error)

// PrincipalFunc returns the identity of the current caller.
type PrincipalFunc func(*http.Request) string

// Keyer derives cache keys. The media type and principal collaborators are
// optional; without them the defaults are used for every request.
type Keyer struct {
	Negotiate        NegotiateFunc
	Principal        PrincipalFunc
	DefaultMediaType string
}

// Key derives the cache key for a request under the given namespace token.
// Two requests share a key iff token, media type, principal, host and
// normalized URI are all equal.
func (k Keyer) Key(r *http.Request, token string) string {
	plain := strings.Join([]string{
		token,
		k.MediaType(r),
		k.principal(r),
		r.Host,
		RequestURI(r),
	}, ":")
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// MediaType resolves the media type component of the cache key.
// Negotiation failures fall back to the default media type:
// key derivation must always succeed.
func (k Keyer) MediaType(r *http.Request) string {
	if k.Negotiate != nil {
		if mediaType, err := k.Negotiate(r); err == nil {
			// drop parameters such as charset
			mediaType, _, _ = strings.Cut(mediaType, ";")
			return strings.TrimSpace(mediaType)
		}
	}
	return k.DefaultMediaType
}

func (k Keyer) principal(r *http.Request) string {
	if k.Principal != nil {
		if principal := k.Principal(r); principal != "" {
			return principal
		}
	}
	return DefaultPrincipal
}

// RequestURI returns the normalized URI component of the cache key:
// the escaped path plus the raw query, if any.
func RequestURI(r *http.Request) string {
	uri := r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		uri += "?" + r.URL.RawQuery
	}
	return uri
}
