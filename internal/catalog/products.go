package catalog

import (
	"context"
	"errors"
	"strings"

	"shopcore.dev/internal/apperr"
	"shopcore.dev/internal/events"
	"shopcore.dev/internal/ids"
)

// ProductInput carries create/update fields; nil means unchanged.
type ProductInput struct {
	SKU         *string `json:"sku"`
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	CategoryID  *string `json:"category_id"`
	Price       *int64  `json:"price"`
	Stock       *int    `json:"stock"`
	IsActive    *bool   `json:"is_active"`
}

// ListProducts returns products, optionally filtered to one category.
func (s *Service) ListProducts(ctx context.Context, categoryID string) ([]*Product, error) {
	key := cacheKeyProducts(categoryID)
	if v, ok := s.cache.Get(key); ok {
		return v.([]*Product), nil
	}
	list, err := s.store.Products().List(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, list, 0)
	return list, nil
}

// GetProduct returns one product by id.
func (s *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	if v, ok := s.cache.Get(cacheKeyProduct(id)); ok {
		return v.(*Product), nil
	}
	p, err := s.store.Products().Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("product")
	}
	if err != nil {
		return nil, err
	}
	s.cache.Set(cacheKeyProduct(id), p, 0)
	return p, nil
}

// CreateProduct validates and stores a product, then publishes
// product:created.
func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (*Product, error) {
	var fields []apperr.FieldError
	if input.SKU == nil || strings.TrimSpace(*input.SKU) == "" {
		fields = append(fields, apperr.FieldError{Field: "sku", Message: "must not be empty"})
	}
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		fields = append(fields, apperr.FieldError{Field: "name", Message: "must not be empty"})
	}
	if input.Price != nil && *input.Price < 0 {
		fields = append(fields, apperr.FieldError{Field: "price", Message: "must not be negative"})
	}
	if input.Stock != nil && *input.Stock < 0 {
		fields = append(fields, apperr.FieldError{Field: "stock", Message: "must not be negative"})
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid product", fields...)
	}

	now := s.now().UTC()
	p := &Product{
		ID:        ids.New("product"),
		SKU:       strings.TrimSpace(*input.SKU),
		Name:      strings.TrimSpace(*input.Name),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.Slug != nil && *input.Slug != "" {
		p.Slug = Slugify(*input.Slug)
	} else {
		p.Slug = Slugify(p.Name)
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if input.Price != nil {
		p.Price = *input.Price
	}
	if input.Stock != nil {
		p.Stock = *input.Stock
	}
	if input.IsActive != nil {
		p.IsActive = *input.IsActive
	}
	if input.CategoryID != nil && *input.CategoryID != "" {
		if _, err := s.store.Categories().Find(ctx, *input.CategoryID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, apperr.Validation("category does not exist",
					apperr.FieldError{Field: "category_id", Message: "unknown category"})
			}
			return nil, err
		}
		p.CategoryID = *input.CategoryID
	}

	if err := s.store.Products().Create(ctx, p); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, apperr.Conflict("product sku or slug already in use", "sku")
		}
		return nil, err
	}
	if err := s.bus.PublishWait(ctx, events.NewProductEvent(events.ProductCreated, p.ID, p.SKU, p.CategoryID)); err != nil {
		return p, err
	}
	return p, nil
}

// UpdateProduct applies a partial update. Price and stock transitions
// publish their dedicated change events with before/after values, in
// addition to product:updated.
func (s *Service) UpdateProduct(ctx context.Context, id string, input ProductInput) (*Product, error) {
	p, err := s.store.Products().Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("product")
	}
	if err != nil {
		return nil, err
	}
	oldPrice, oldStock := p.Price, p.Stock

	if input.SKU != nil {
		if strings.TrimSpace(*input.SKU) == "" {
			return nil, apperr.Validation("invalid product",
				apperr.FieldError{Field: "sku", Message: "must not be empty"})
		}
		p.SKU = strings.TrimSpace(*input.SKU)
	}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, apperr.Validation("invalid product",
				apperr.FieldError{Field: "name", Message: "must not be empty"})
		}
		p.Name = strings.TrimSpace(*input.Name)
	}
	if input.Slug != nil && *input.Slug != "" {
		p.Slug = Slugify(*input.Slug)
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, apperr.Validation("invalid product",
				apperr.FieldError{Field: "price", Message: "must not be negative"})
		}
		p.Price = *input.Price
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, apperr.Validation("invalid product",
				apperr.FieldError{Field: "stock", Message: "must not be negative"})
		}
		p.Stock = *input.Stock
	}
	if input.IsActive != nil {
		p.IsActive = *input.IsActive
	}
	if input.CategoryID != nil && *input.CategoryID != p.CategoryID {
		if *input.CategoryID != "" {
			if _, err := s.store.Categories().Find(ctx, *input.CategoryID); err != nil {
				if errors.Is(err, ErrNotFound) {
					return nil, apperr.Validation("category does not exist",
						apperr.FieldError{Field: "category_id", Message: "unknown category"})
				}
				return nil, err
			}
		}
		p.CategoryID = *input.CategoryID
	}

	p.UpdatedAt = s.now().UTC()
	if err := s.store.Products().Update(ctx, p); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, apperr.Conflict("product sku or slug already in use", "sku")
		}
		return nil, err
	}

	if err := s.bus.PublishWait(ctx, events.NewProductEvent(events.ProductUpdated, p.ID, p.SKU, p.CategoryID)); err != nil {
		return p, err
	}
	if p.Price != oldPrice {
		s.bus.Publish(ctx, &events.PriceChangeEvent{ProductID: p.ID, OldPrice: oldPrice, NewPrice: p.Price})
	}
	if p.Stock != oldStock {
		s.bus.Publish(ctx, &events.StockChangeEvent{ProductID: p.ID, OldStock: oldStock, NewStock: p.Stock})
	}
	return p, nil
}

// UpdatePrice is the narrow mutation used by the price endpoint.
func (s *Service) UpdatePrice(ctx context.Context, id string, price int64) (*Product, error) {
	return s.UpdateProduct(ctx, id, ProductInput{Price: &price})
}

// UpdateStock is the narrow mutation used by the stock endpoint.
func (s *Service) UpdateStock(ctx context.Context, id string, stock int) (*Product, error) {
	return s.UpdateProduct(ctx, id, ProductInput{Stock: &stock})
}

// DeleteProduct removes a product and publishes product:deleted.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	p, err := s.store.Products().Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("product")
	}
	if err != nil {
		return err
	}
	if err := s.store.Products().Delete(ctx, id); err != nil {
		return err
	}
	return s.bus.PublishWait(ctx, events.NewProductEvent(events.ProductDeleted, p.ID, p.SKU, p.CategoryID))
}
