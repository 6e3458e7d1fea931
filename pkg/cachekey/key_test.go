package cachekey

import (
	"errors"
	"net/http"
	"testing"
)

func newKeyer() Keyer {
	return Keyer{
		Negotiate:        func(r *http.Request) (string, error) { return "text/plain", nil },
		Principal:        func(r *http.Request) string { return r.Header.Get("X-Principal") },
		DefaultMediaType: "text/html",
	}
}

func request(t *testing.T, url string) *http.Request {
	t.Helper()
	r, err := http.NewRequest("GET", url, nil)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestKeyIsDeterministic(t *testing.T) {
	k := newKeyer()
	a := k.Key(request(t, "http://example.com/containers/place/items/one"), "token-1")
	b := k.Key(request(t, "http://example.com/containers/place/items/one"), "token-1")
	if a != b {
		t.Fatalf("Keys differ: %s / %s", a, b)
	}
}

func TestKeyChangesWithEveryComponent(t *testing.T) {
	k := newKeyer()
	base := k.Key(request(t, "http://example.com/containers/place/items/one"), "token-1")

	// namespace token
	if key := k.Key(request(t, "http://example.com/containers/place/items/one"), "token-2"); key == base {
		t.Error("Key unchanged for different token")
	}
	// media type
	jsonKeyer := k
	jsonKeyer.Negotiate = func(r *http.Request) (string, error) { return "application/json", nil }
	if key := jsonKeyer.Key(request(t, "http://example.com/containers/place/items/one"), "token-1"); key == base {
		t.Error("Key unchanged for different media type")
	}
	// principal
	r := request(t, "http://example.com/containers/place/items/one")
	r.Header.Set("X-Principal", "cdent")
	if key := k.Key(r, "token-1"); key == base {
		t.Error("Key unchanged for different principal")
	}
	// host
	if key := k.Key(request(t, "http://other.example.com/containers/place/items/one"), "token-1"); key == base {
		t.Error("Key unchanged for different host")
	}
	// uri
	if key := k.Key(request(t, "http://example.com/containers/place/items/two"), "token-1"); key == base {
		t.Error("Key unchanged for different uri")
	}
}

func TestKeyIncludesQuery(t *testing.T) {
	k := newKeyer()
	a := k.Key(request(t, "http://example.com/search?q=hi"), "token-1")
	b := k.Key(request(t, "http://example.com/search?q=bye"), "token-1")
	if a == b {
		t.Fatal("Keys equal for different queries")
	}
}

func TestMediaTypeFallsBackOnNegotiationFailure(t *testing.T) {
	k := newKeyer()
	k.Negotiate = func(r *http.Request) (string, error) { return "", errors.New("415") }
	if mt := k.MediaType(request(t, "http://example.com/")); mt != "text/html" {
		t.Fatalf("Media type is %q", mt)
	}
}

func TestMediaTypeDropsParameters(t *testing.T) {
	k := newKeyer()
	k.Negotiate = func(r *http.Request) (string, error) { return "text/plain; charset=utf-8", nil }
	if mt := k.MediaType(request(t, "http://example.com/")); mt != "text/plain" {
		t.Fatalf("Media type is %q", mt)
	}
}

func TestAnonymousPrincipalIsGuest(t *testing.T) {
	k := newKeyer()
	a := k.Key(request(t, "http://example.com/"), "token-1")
	k.Principal = nil
	b := k.Key(request(t, "http://example.com/"), "token-1")
	if a != b {
		t.Fatal("Anonymous and nil principal derive different keys")
	}
}
