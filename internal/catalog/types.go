// Package catalog holds the store-facing domain: categories arranged as an
// adjacency-list tree, products, and the typed settings key/value store.
package catalog

import (
	"encoding/json"
	"time"
)

// Category is one node of the category tree. ParentID is empty for roots.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	ParentID    string    `json:"parent_id,omitempty"`
	Position    int       `json:"position"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CategoryNode is a category with its resolved children, as served by the
// tree endpoint.
type CategoryNode struct {
	*Category
	Children []*CategoryNode `json:"children"`
}

// Product is the minimal administration view of a product. Price is in
// minor currency units.
type Product struct {
	ID          string    `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	CategoryID  string    `json:"category_id,omitempty"`
	Price       int64     `json:"price"`
	Stock       int       `json:"stock"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Setting is one row of the settings store. Value holds arbitrary JSON so
// callers keep their own schema per key.
type Setting struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}
