// Package namespace maps invalidation scopes to opaque version tokens.
//
// Every cache key is derived from the token of the scope its URI is
// classified under. Replacing a token with a new random value makes all
// keys derived from the old token permanently unreachable, which is how
// the whole layer invalidates: no cache entries are ever enumerated or
// deleted.
package namespace

import "strings"

// Kind is the invalidation granularity of a scope.
type Kind int

const (
	// KindAny is the single global scope covering resources that cannot
	// be classified more precisely (search, composite item listings).
	KindAny Kind = iota
	// KindClass covers a whole container kind (all simple containers,
	// or all composite containers).
	KindClass
	// KindInstance covers one named container.
	KindInstance
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindInstance:
		return "instance"
	default:
		return "any"
	}
}

// Container is a container kind.
type Container string

const (
	// Simple containers hold items directly.
	Simple Container = "containers"
	// Composite containers reference simple containers.
	Composite Container = "composites"
)

// Scope identifies one namespace token.
type Scope struct {
	Kind      Kind
	Container Container
	Name      string
}

func Any() Scope {
	return Scope{Kind: KindAny}
}

func Class(c Container) Scope {
	return Scope{Kind: KindClass, Container: c}
}

func Instance(c Container, name string) Scope {
	return Scope{Kind: KindInstance, Container: c, Name: name}
}

// Key returns the backend key the scope's token is stored under.
func (s Scope) Key() string {
	switch s.Kind {
	case KindClass:
		return "namespace:" + string(s.Container)
	case KindInstance:
		return "namespace:" + string(s.Container) + ":" + s.Name
	default:
		return "namespace:any"
	}
}

// ForPath classifies a request path into the scope its cache entry is tied
// to. The prefix is the URL prefix the application is mounted under, if any.
//
// Item and container URIs map to the instance scope of the owning
// container. A composite's item listing depends on the state of every
// simple container it may reference, so it is conservatively tied to the
// global scope. Bare listings map to the class scopes, everything else
// (search, ad hoc lookups) to the global scope.
func ForPath(prefix, path string) Scope {
	path = strings.TrimPrefix(path, prefix)
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch Container(parts[0]) {
	case Simple:
		if len(parts) == 1 {
			return Class(Simple)
		}
		return Instance(Simple, parts[1])
	case Composite:
		if len(parts) == 1 {
			return Class(Composite)
		}
		if len(parts) >= 3 && parts[2] == "items" {
			return Any()
		}
		return Instance(Composite, parts[1])
	}
	return Any()
}
