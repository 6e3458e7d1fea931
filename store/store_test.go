package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	var mutations []Mutation
	s.Subscribe(func(m Mutation) {
		mutations = append(mutations, m)
	})

	if err := s.PutContainer(ctx, "place"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.PutItem(ctx, Item{Container: "place", Name: "one", Text: "hi"}); err != nil {
		t.Fatal(err)
	}
	if err := s.PutComposite(ctx, Composite{Name: "plaice", Refs: []string{"place"}}); err != nil {
		t.Fatal(err)
	}

	want := []Mutation{
		{Kind: KindContainer, Op: OpPut, Name: "place"},
		{Kind: KindItem, Op: OpPut, Container: "place", Name: "one"},
		{Kind: KindComposite, Op: OpPut, Name: "plaice"},
	}
	if len(mutations) != len(want) {
		t.Fatalf("Got %d mutations, want %d", len(mutations), len(want))
	}
	for i, m := range want {
		if mutations[i] != m {
			t.Errorf("Mutation %d is %+v, want %+v", i, mutations[i], m)
		}
	}

	it, err := s.Item(ctx, "place", "one")
	if err != nil {
		t.Fatal(err)
	}
	if it.Text != "hi" || it.Revision != 1 {
		t.Fatalf("Item is %+v", it)
	}

	// revisions increase on every put
	replaced, err := s.PutItem(ctx, Item{Container: "place", Name: "one", Text: "bye"})
	if err != nil {
		t.Fatal(err)
	}
	if replaced.Revision != 2 {
		t.Fatalf("Revision after replace is %d", replaced.Revision)
	}

	if _, err := s.Item(ctx, "place", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Missing item error is %v", err)
	}
	if _, err := s.PutItem(ctx, Item{Container: "nowhere", Name: "one"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Put into missing container error is %v", err)
	}

	items, err := s.Search(ctx, "bye")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Name != "one" {
		t.Fatalf("Search found %+v", items)
	}

	c, err := s.Composite(ctx, "plaice")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Refs) != 1 || c.Refs[0] != "place" {
		t.Fatalf("Composite is %+v", c)
	}

	if err := s.DeleteItem(ctx, "place", "one"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteItem(ctx, "place", "one"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Second delete error is %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemory())
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatal(err)
	}
	testStore(t, s)
}

// The collaborator contract: subscribers fire only after the mutation is
// applied, so a subscriber reading the store sees the new state.
func TestSubscriberSeesAppliedMutation(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	if err := s.PutContainer(ctx, "place"); err != nil {
		t.Fatal(err)
	}

	var seen int64
	s.Subscribe(func(m Mutation) {
		if m.Kind != KindItem {
			return
		}
		it, err := s.Item(ctx, m.Container, m.Name)
		if err != nil {
			t.Errorf("Subscriber could not read item: %v", err)
			return
		}
		seen = it.Revision
	})

	if _, err := s.PutItem(ctx, Item{Container: "place", Name: "one", Text: "hi"}); err != nil {
		t.Fatal(err)
	}
	if seen != 1 {
		t.Fatalf("Subscriber saw revision %d", seen)
	}
}
