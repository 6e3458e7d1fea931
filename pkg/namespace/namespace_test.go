package namespace

import "testing"

func TestForPath(t *testing.T) {
	tests := []struct {
		path  string
		scope Scope
	}{
		{"/containers/place/items/one", Instance(Simple, "place")},
		{"/containers/place/items", Instance(Simple, "place")},
		{"/containers/place", Instance(Simple, "place")},
		{"/containers", Class(Simple)},
		{"/composites", Class(Composite)},
		{"/composites/plaice", Instance(Composite, "plaice")},
		{"/composites/plaice/items", Any()},
		{"/composites/plaice/items/one", Any()},
		{"/search", Any()},
		{"/", Any()},
		{"/friendly/one", Any()},
	}
	for _, tc := range tests {
		if scope := ForPath("", tc.path); scope != tc.scope {
			t.Errorf("ForPath(%q) = %+v, want %+v", tc.path, scope, tc.scope)
		}
	}
}

func TestForPathStripsPrefix(t *testing.T) {
	scope := ForPath("/wiki", "/wiki/containers/place/items/one")
	if scope != Instance(Simple, "place") {
		t.Fatalf("Scope with prefix is %+v", scope)
	}
}

func TestScopeKeys(t *testing.T) {
	tests := []struct {
		scope Scope
		key   string
	}{
		{Any(), "namespace:any"},
		{Class(Simple), "namespace:containers"},
		{Class(Composite), "namespace:composites"},
		{Instance(Simple, "place"), "namespace:containers:place"},
		{Instance(Composite, "plaice"), "namespace:composites:plaice"},
	}
	for _, tc := range tests {
		if key := tc.scope.Key(); key != tc.key {
			t.Errorf("Key for %+v is %q, want %q", tc.scope, key, tc.key)
		}
	}
}
