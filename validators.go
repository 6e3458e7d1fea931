package etagcache

import (
	"encoding/json"
	"net/http"
	"strings"
)

// allowedHeaders is the fixed allow-list of headers captured from a 200
// response and replayed on a 304, in storage order.
var allowedHeaders = []string{
	"Etag",
	"Vary",
	"Cache-Control",
	"Last-Modified",
	"Content-Location",
	"Expires",
}

// HeaderPair is one stored header name/value pair.
type HeaderPair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ValidatorSet is the ordered set of validator headers stored for one
// cache key. It is written once per key on a successful GET and only ever
// replaced wholesale, never mutated in place.
type ValidatorSet []HeaderPair

// NewValidatorSet captures the allow-listed headers from a response.
// The no-transform cache-control directive is injected by outer layers
// and is stripped before storage.
func NewValidatorSet(h http.Header) ValidatorSet {
	vs := make(ValidatorSet, 0, len(allowedHeaders))
	for _, name := range allowedHeaders {
		for _, value := range h.Values(name) {
			if name == "Cache-Control" {
				value = stripNoTransform(value)
				if value == "" {
					continue
				}
			}
			vs = append(vs, HeaderPair{Name: name, Value: value})
		}
	}
	return vs
}

// ETag returns the stored validator value, or the empty string if the set
// does not carry one.
func (vs ValidatorSet) ETag() string {
	for _, pair := range vs {
		if pair.Name == "Etag" {
			return pair.Value
		}
	}
	return ""
}

// WriteTo re-emits the stored headers verbatim, so a 304 shows header
// parity with the original 200.
func (vs ValidatorSet) WriteTo(h http.Header) {
	for _, pair := range vs {
		h.Add(pair.Name, pair.Value)
	}
}

// Encode serializes the set for the cache backend.
func (vs ValidatorSet) Encode() ([]byte, error) {
	return json.Marshal(vs)
}

// DecodeValidatorSet is the inverse of Encode.
func DecodeValidatorSet(value []byte) (ValidatorSet, error) {
	var vs ValidatorSet
	if err := json.Unmarshal(value, &vs); err != nil {
		return nil, err
	}
	return vs, nil
}

// stripNoTransform removes the no-transform directive from a cache-control
// value, returning the empty string if nothing else remains.
func stripNoTransform(value string) string {
	directives := strings.Split(value, ",")
	kept := directives[:0]
	for _, d := range directives {
		if strings.EqualFold(strings.TrimSpace(d), "no-transform") {
			continue
		}
		kept = append(kept, strings.TrimSpace(d))
	}
	return strings.Join(kept, ", ")
}
