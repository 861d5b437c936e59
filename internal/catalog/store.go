package catalog

import (
	"context"
	"encoding/json"
)

// Store bundles the catalog repositories.
type Store interface {
	Categories() CategoryStore
	Products() ProductStore
	Settings() SettingStore
}

// CategoryStore persists the category tree. Implementations return
// ErrNotFound for missing rows and ErrConflict for slug collisions.
type CategoryStore interface {
	Create(ctx context.Context, c *Category) error
	Find(ctx context.Context, id string) (*Category, error)
	FindBySlug(ctx context.Context, slug string) (*Category, error)
	List(ctx context.Context) ([]*Category, error)
	ChildIDs(ctx context.Context, parentID string) ([]string, error)
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id string) error
}

// ProductStore persists products. SKU and slug are unique.
type ProductStore interface {
	Create(ctx context.Context, p *Product) error
	Find(ctx context.Context, id string) (*Product, error)
	FindBySKU(ctx context.Context, sku string) (*Product, error)
	List(ctx context.Context, categoryID string) ([]*Product, error)
	CountByCategory(ctx context.Context, categoryID string) (int, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}

// SettingStore persists settings keyed by a dotted name.
type SettingStore interface {
	Get(ctx context.Context, key string) (*Setting, error)
	List(ctx context.Context) ([]*Setting, error)
	Upsert(ctx context.Context, key string, value json.RawMessage) (*Setting, error)
	Delete(ctx context.Context, key string) error
}
