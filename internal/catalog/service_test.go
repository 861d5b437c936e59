package catalog

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"shopcore.dev/internal/cache"
	"shopcore.dev/internal/events"
)

// memStore is an in-memory Store for service tests.
type memStore struct {
	mu         sync.Mutex
	categories map[string]*Category
	products   map[string]*Product
	settings   map[string]*Setting
	failOn     map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		categories: make(map[string]*Category),
		products:   make(map[string]*Product),
		settings:   make(map[string]*Setting),
		failOn:     make(map[string]error),
	}
}

func (m *memStore) Categories() CategoryStore { return memCategories{m} }
func (m *memStore) Products() ProductStore    { return memProducts{m} }
func (m *memStore) Settings() SettingStore    { return memSettings{m} }

func (m *memStore) fail(op string) error { return m.failOn[op] }

func (m *memStore) addCategory(id, name, parentID string) *Category {
	c := &Category{ID: id, Name: name, Slug: Slugify(name), ParentID: parentID, IsActive: true}
	m.categories[id] = c
	return c
}

func (m *memStore) addProduct(id, sku string, price int64, stock int, categoryID string) *Product {
	p := &Product{ID: id, SKU: sku, Name: sku, Slug: Slugify(sku), Price: price, Stock: stock, IsActive: true, CategoryID: categoryID}
	m.products[id] = p
	return p
}

type memCategories struct{ m *memStore }

func (s memCategories) Create(ctx context.Context, c *Category) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.fail("categories.create"); err != nil {
		return err
	}
	for _, other := range s.m.categories {
		if other.Slug == c.Slug {
			return ErrConflict
		}
	}
	cp := *c
	s.m.categories[c.ID] = &cp
	return nil
}

func (s memCategories) Find(ctx context.Context, id string) (*Category, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.fail("categories.find"); err != nil {
		return nil, err
	}
	c, ok := s.m.categories[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s memCategories) FindBySlug(ctx context.Context, slug string) (*Category, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, c := range s.m.categories {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s memCategories) List(ctx context.Context) ([]*Category, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.fail("categories.list"); err != nil {
		return nil, err
	}
	var list []*Category
	for _, c := range s.m.categories {
		cp := *c
		list = append(list, &cp)
	}
	return list, nil
}

func (s memCategories) ChildIDs(ctx context.Context, parentID string) ([]string, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if err := s.m.fail("categories.children"); err != nil {
		return nil, err
	}
	var ids []string
	for _, c := range s.m.categories {
		if c.ParentID == parentID {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func (s memCategories) Update(ctx context.Context, c *Category) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.categories[c.ID]; !ok {
		return ErrNotFound
	}
	for _, other := range s.m.categories {
		if other.ID != c.ID && other.Slug == c.Slug {
			return ErrConflict
		}
	}
	cp := *c
	s.m.categories[c.ID] = &cp
	return nil
}

func (s memCategories) Delete(ctx context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.categories[id]; !ok {
		return ErrNotFound
	}
	delete(s.m.categories, id)
	return nil
}

type memProducts struct{ m *memStore }

func (s memProducts) Create(ctx context.Context, p *Product) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, other := range s.m.products {
		if other.SKU == p.SKU {
			return ErrConflict
		}
	}
	cp := *p
	s.m.products[p.ID] = &cp
	return nil
}

func (s memProducts) Find(ctx context.Context, id string) (*Product, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s memProducts) FindBySKU(ctx context.Context, sku string) (*Product, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, p := range s.m.products {
		if p.SKU == sku {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s memProducts) List(ctx context.Context, categoryID string) ([]*Product, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var list []*Product
	for _, p := range s.m.products {
		if categoryID == "" || p.CategoryID == categoryID {
			cp := *p
			list = append(list, &cp)
		}
	}
	return list, nil
}

func (s memProducts) CountByCategory(ctx context.Context, categoryID string) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var n int
	for _, p := range s.m.products {
		if p.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

func (s memProducts) Update(ctx context.Context, p *Product) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.products[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	s.m.products[p.ID] = &cp
	return nil
}

func (s memProducts) Delete(ctx context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.m.products, id)
	return nil
}

type memSettings struct{ m *memStore }

func (s memSettings) Get(ctx context.Context, key string) (*Setting, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	setting, ok := s.m.settings[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *setting
	return &cp, nil
}

func (s memSettings) List(ctx context.Context) ([]*Setting, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var list []*Setting
	for _, setting := range s.m.settings {
		cp := *setting
		list = append(list, &cp)
	}
	return list, nil
}

func (s memSettings) Upsert(ctx context.Context, key string, value json.RawMessage) (*Setting, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	setting := &Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	s.m.settings[key] = setting
	cp := *setting
	return &cp, nil
}

func (s memSettings) Delete(ctx context.Context, key string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.settings[key]; !ok {
		return ErrNotFound
	}
	delete(s.m.settings, key)
	return nil
}

// newTestService wires a service over a fresh store with a live bus and
// cache, invalidation subscriber included.
func newTestService(store *memStore) (*Service, *events.Bus, *cache.Cache) {
	bus := events.NewBus()
	c := cache.New()
	if err := cache.Register(bus, c); err != nil {
		panic(err)
	}
	return NewService(store, bus, c), bus, c
}
