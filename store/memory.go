package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory Store, mainly for tests and development.
type Memory struct {
	mutex      sync.RWMutex
	items      map[string]map[string]Item
	composites map[string]Composite
	subs       []Subscriber
}

func NewMemory() *Memory {
	return &Memory{
		items:      make(map[string]map[string]Item),
		composites: make(map[string]Composite),
	}
}

func (m *Memory) Subscribe(fn Subscriber) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.subs = append(m.subs, fn)
}

// notify runs the subscribers outside the store lock, after the write
// is visible.
func (m *Memory) notify(mut Mutation) {
	m.mutex.RLock()
	subs := m.subs
	m.mutex.RUnlock()
	for _, fn := range subs {
		fn(mut)
	}
}

func (m *Memory) Containers(ctx context.Context) ([]string, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	names := make([]string, 0, len(m.items))
	for name := range m.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) PutContainer(ctx context.Context, name string) error {
	m.mutex.Lock()
	if _, ok := m.items[name]; !ok {
		m.items[name] = make(map[string]Item)
	}
	m.mutex.Unlock()
	m.notify(Mutation{Kind: KindContainer, Op: OpPut, Name: name})
	return nil
}

func (m *Memory) DeleteContainer(ctx context.Context, name string) error {
	m.mutex.Lock()
	if _, ok := m.items[name]; !ok {
		m.mutex.Unlock()
		return ErrNotFound
	}
	delete(m.items, name)
	m.mutex.Unlock()
	m.notify(Mutation{Kind: KindContainer, Op: OpDelete, Name: name})
	return nil
}

func (m *Memory) Composites(ctx context.Context) ([]string, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	names := make([]string, 0, len(m.composites))
	for name := range m.composites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) Composite(ctx context.Context, name string) (Composite, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	c, ok := m.composites[name]
	if !ok {
		return Composite{}, ErrNotFound
	}
	return c, nil
}

func (m *Memory) PutComposite(ctx context.Context, c Composite) error {
	m.mutex.Lock()
	m.composites[c.Name] = c
	m.mutex.Unlock()
	m.notify(Mutation{Kind: KindComposite, Op: OpPut, Name: c.Name})
	return nil
}

func (m *Memory) DeleteComposite(ctx context.Context, name string) error {
	m.mutex.Lock()
	if _, ok := m.composites[name]; !ok {
		m.mutex.Unlock()
		return ErrNotFound
	}
	delete(m.composites, name)
	m.mutex.Unlock()
	m.notify(Mutation{Kind: KindComposite, Op: OpDelete, Name: name})
	return nil
}

func (m *Memory) Items(ctx context.Context, container string) ([]Item, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	held, ok := m.items[container]
	if !ok {
		return nil, ErrNotFound
	}
	items := make([]Item, 0, len(held))
	for _, it := range held {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (m *Memory) Item(ctx context.Context, container, name string) (Item, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	it, ok := m.items[container][name]
	if !ok {
		return Item{}, ErrNotFound
	}
	return it, nil
}

func (m *Memory) PutItem(ctx context.Context, it Item) (Item, error) {
	m.mutex.Lock()
	held, ok := m.items[it.Container]
	if !ok {
		m.mutex.Unlock()
		return Item{}, ErrNotFound
	}
	it.Revision = held[it.Name].Revision + 1
	it.Modified = time.Now().UTC()
	held[it.Name] = it
	m.mutex.Unlock()
	m.notify(Mutation{Kind: KindItem, Op: OpPut, Container: it.Container, Name: it.Name})
	return it, nil
}

func (m *Memory) DeleteItem(ctx context.Context, container, name string) error {
	m.mutex.Lock()
	if _, ok := m.items[container][name]; !ok {
		m.mutex.Unlock()
		return ErrNotFound
	}
	delete(m.items[container], name)
	m.mutex.Unlock()
	m.notify(Mutation{Kind: KindItem, Op: OpDelete, Container: container, Name: name})
	return nil
}

func (m *Memory) Search(ctx context.Context, query string) ([]Item, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	var found []Item
	for _, held := range m.items {
		for _, it := range held {
			if strings.Contains(it.Name, query) || strings.Contains(it.Text, query) {
				found = append(found, it)
			}
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].Container != found[j].Container {
			return found[i].Container < found[j].Container
		}
		return found[i].Name < found[j].Name
	})
	return found, nil
}
