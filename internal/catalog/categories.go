package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"shopcore.dev/internal/apperr"
	"shopcore.dev/internal/events"
	"shopcore.dev/internal/ids"
)

// maxTreeDepth caps descendant traversal. The tree is shallow in practice;
// hitting the cap means the adjacency list is corrupt.
const maxTreeDepth = 32

// CategoryInput carries create/update fields. Nil pointers mean "leave
// unchanged" on update.
type CategoryInput struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	ParentID    *string `json:"parent_id"`
	Position    *int    `json:"position"`
	IsActive    *bool   `json:"is_active"`
}

// ListCategories returns all categories ordered by position then name,
// served from the cache when warm.
func (s *Service) ListCategories(ctx context.Context) ([]*Category, error) {
	if v, ok := s.cache.Get(cacheKeyCategoryList); ok {
		return v.([]*Category), nil
	}
	list, err := s.store.Categories().List(ctx)
	if err != nil {
		return nil, err
	}
	sortCategories(list)
	s.cache.Set(cacheKeyCategoryList, list, 0)
	return list, nil
}

// CategoryTree returns the full nested tree. Orphans whose parent row is
// missing surface as roots rather than disappearing.
func (s *Service) CategoryTree(ctx context.Context) ([]*CategoryNode, error) {
	if v, ok := s.cache.Get(cacheKeyCategoryTree); ok {
		return v.([]*CategoryNode), nil
	}
	list, err := s.store.Categories().List(ctx)
	if err != nil {
		return nil, err
	}
	sortCategories(list)

	nodes := make(map[string]*CategoryNode, len(list))
	for _, c := range list {
		nodes[c.ID] = &CategoryNode{Category: c, Children: []*CategoryNode{}}
	}
	var roots []*CategoryNode
	for _, c := range list {
		node := nodes[c.ID]
		if parent, ok := nodes[c.ParentID]; ok && c.ParentID != c.ID {
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
	}
	s.cache.Set(cacheKeyCategoryTree, roots, 0)
	return roots, nil
}

// GetCategory returns one category by id.
func (s *Service) GetCategory(ctx context.Context, id string) (*Category, error) {
	if v, ok := s.cache.Get(cacheKeyCategory(id)); ok {
		return v.(*Category), nil
	}
	c, err := s.store.Categories().Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("category")
	}
	if err != nil {
		return nil, err
	}
	s.cache.Set(cacheKeyCategory(id), c, 0)
	return c, nil
}

// CreateCategory validates input, resolves the slug, and publishes
// category:created once the row is stored.
func (s *Service) CreateCategory(ctx context.Context, input CategoryInput) (*Category, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, apperr.Validation("category name is required",
			apperr.FieldError{Field: "name", Message: "must not be empty"})
	}
	now := s.now().UTC()
	c := &Category{
		ID:        ids.New("category"),
		Name:      strings.TrimSpace(*input.Name),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.Slug != nil && *input.Slug != "" {
		c.Slug = Slugify(*input.Slug)
	} else {
		c.Slug = Slugify(c.Name)
	}
	if c.Slug == "" {
		return nil, apperr.Validation("category slug is required",
			apperr.FieldError{Field: "slug", Message: "must contain letters or digits"})
	}
	if input.Description != nil {
		c.Description = *input.Description
	}
	if input.Position != nil {
		c.Position = *input.Position
	}
	if input.IsActive != nil {
		c.IsActive = *input.IsActive
	}
	if input.ParentID != nil && *input.ParentID != "" {
		if _, err := s.store.Categories().Find(ctx, *input.ParentID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, apperr.Validation("parent category does not exist",
					apperr.FieldError{Field: "parent_id", Message: "unknown category"})
			}
			return nil, err
		}
		c.ParentID = *input.ParentID
	}

	if err := s.store.Categories().Create(ctx, c); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, apperr.Conflict("category slug already in use", "slug")
		}
		return nil, err
	}
	if err := s.bus.PublishWait(ctx, events.NewCategoryEvent(events.CategoryCreated, c.ID, c.Slug, c.ParentID)); err != nil {
		return c, err
	}
	return c, nil
}

// UpdateCategory applies a partial update. Parent reassignment refuses
// self-parenting and any move that would close a cycle.
func (s *Service) UpdateCategory(ctx context.Context, id string, input CategoryInput) (*Category, error) {
	c, err := s.store.Categories().Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("category")
	}
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, apperr.Validation("category name is required",
				apperr.FieldError{Field: "name", Message: "must not be empty"})
		}
		c.Name = strings.TrimSpace(*input.Name)
	}
	if input.Slug != nil {
		slug := Slugify(*input.Slug)
		if slug == "" {
			return nil, apperr.Validation("category slug is required",
				apperr.FieldError{Field: "slug", Message: "must contain letters or digits"})
		}
		c.Slug = slug
	}
	if input.Description != nil {
		c.Description = *input.Description
	}
	if input.Position != nil {
		c.Position = *input.Position
	}
	if input.IsActive != nil {
		c.IsActive = *input.IsActive
	}
	if input.ParentID != nil && *input.ParentID != c.ParentID {
		if err := s.checkReparent(ctx, c.ID, *input.ParentID); err != nil {
			return nil, err
		}
		c.ParentID = *input.ParentID
	}

	c.UpdatedAt = s.now().UTC()
	if err := s.store.Categories().Update(ctx, c); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, apperr.Conflict("category slug already in use", "slug")
		}
		return nil, err
	}
	if err := s.bus.PublishWait(ctx, events.NewCategoryEvent(events.CategoryUpdated, c.ID, c.Slug, c.ParentID)); err != nil {
		return c, err
	}
	return c, nil
}

// DeleteCategory removes a leaf category. Categories with children or
// assigned products conflict.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	c, err := s.store.Categories().Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("category")
	}
	if err != nil {
		return err
	}
	children, err := s.store.Categories().ChildIDs(ctx, id)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return apperr.Conflict("category has child categories", "")
	}
	count, err := s.store.Products().CountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.Conflict("category has assigned products", "")
	}
	if err := s.store.Categories().Delete(ctx, id); err != nil {
		return err
	}
	return s.bus.PublishWait(ctx, events.NewCategoryEvent(events.CategoryDeleted, c.ID, c.Slug, c.ParentID))
}

// DescendantIDs walks the subtree below id breadth-first and returns every
// descendant id. A visited set tolerates corrupt adjacency data; the depth
// cap bounds the walk either way.
func (s *Service) DescendantIDs(ctx context.Context, id string) ([]string, error) {
	visited := map[string]bool{id: true}
	var out []string

	frontier := []string{id}
	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= maxTreeDepth {
			return nil, fmt.Errorf("catalog: category tree deeper than %d at %s", maxTreeDepth, id)
		}
		var next []string
		for _, parent := range frontier {
			children, err := s.store.Categories().ChildIDs(ctx, parent)
			if err != nil {
				return nil, err
			}
			for _, child := range children {
				if visited[child] {
					continue
				}
				visited[child] = true
				out = append(out, child)
				next = append(next, child)
			}
		}
		frontier = next
	}
	return out, nil
}

func (s *Service) checkReparent(ctx context.Context, id, newParent string) error {
	if newParent == "" {
		return nil
	}
	if newParent == id {
		return apperr.Validation("category cannot be its own parent",
			apperr.FieldError{Field: "parent_id", Message: "self reference"})
	}
	if _, err := s.store.Categories().Find(ctx, newParent); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.Validation("parent category does not exist",
				apperr.FieldError{Field: "parent_id", Message: "unknown category"})
		}
		return err
	}
	descendants, err := s.DescendantIDs(ctx, id)
	if err != nil {
		return err
	}
	for _, d := range descendants {
		if d == newParent {
			return apperr.Validation("move would create a cycle",
				apperr.FieldError{Field: "parent_id", Message: "target is a descendant"})
		}
	}
	return nil
}

func sortCategories(list []*Category) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Position != list[j].Position {
			return list[i].Position < list[j].Position
		}
		return list[i].Name < list[j].Name
	})
}
