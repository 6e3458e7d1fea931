// Package store holds containers, composites and their items, and notifies
// subscribers of every applied mutation. The cache middleware consumes it
// only through the Notifier half; the demo application uses the full Store.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the requested entity does not exist.
var ErrNotFound = errors.New("store: not found")

// Kind is the kind of entity a mutation applies to.
type Kind string

const (
	KindItem      Kind = "item"
	KindContainer Kind = "container"
	KindComposite Kind = "composite"
)

// Op is the mutation operation.
type Op string

const (
	OpPut    Op = "put"
	OpDelete Op = "delete"
)

// Mutation describes one applied write. For items, Container names the
// owning container. For containers and composites, Name is the entity name
// and Container is empty.
type Mutation struct {
	Kind      Kind
	Op        Op
	Container string
	Name      string
}

// Subscriber is a mutation callback.
type Subscriber func(Mutation)

// Notifier is the subscription half of a store. Subscribers are invoked
// synchronously after each mutation has been durably applied; ordering
// among subscribers is not significant.
type Notifier interface {
	Subscribe(fn Subscriber)
}

// Item is a single piece of content inside a simple container.
type Item struct {
	Container string    `json:"container"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	Revision  int64     `json:"revision"`
	Modified  time.Time `json:"modified"`
}

// Composite is a container whose contents are defined by reference to
// simple containers.
type Composite struct {
	Name string   `json:"name"`
	Refs []string `json:"refs"`
}

// Store is the storage collaborator interface.
type Store interface {
	Notifier

	Containers(ctx context.Context) ([]string, error)
	PutContainer(ctx context.Context, name string) error
	DeleteContainer(ctx context.Context, name string) error

	Composites(ctx context.Context) ([]string, error)
	Composite(ctx context.Context, name string) (Composite, error)
	PutComposite(ctx context.Context, c Composite) error
	DeleteComposite(ctx context.Context, name string) error

	Items(ctx context.Context, container string) ([]Item, error)
	Item(ctx context.Context, container, name string) (Item, error)
	// PutItem creates or replaces an item and returns it with its new
	// revision and modification time filled in.
	PutItem(ctx context.Context, it Item) (Item, error)
	DeleteItem(ctx context.Context, container, name string) error

	// Search returns all items whose name or text contains the query.
	Search(ctx context.Context, query string) ([]Item, error)
}
