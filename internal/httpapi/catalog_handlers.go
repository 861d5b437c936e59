package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"shopcore.dev/internal/audit"
	"shopcore.dev/internal/auth"
	"shopcore.dev/internal/catalog"
)

func (a *API) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.ensurePermission(w, r, auth.ResourceCategories, auth.ActionRead, auth.ScopeAll); !ok {
			return
		}
		list, err := a.catalog.ListCategories(r.Context())
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"categories": list})
	case http.MethodPost:
		if _, ok := a.ensurePermission(w, r, auth.ResourceCategories, auth.ActionCreate, auth.ScopeAll); !ok {
			return
		}
		var in catalog.CategoryInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		c, err := a.catalog.CreateCategory(r.Context(), in)
		if err != nil {
			handleError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "category.create", map[string]any{"target": c.ID})
		writeJSON(w, http.StatusCreated, map[string]any{"category": c})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleCategoryTree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.ensurePermission(w, r, auth.ResourceCategories, auth.ActionRead, auth.ScopeAll); !ok {
		return
	}
	tree, err := a.catalog.CategoryTree(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tree": tree})
}

func (a *API) handleCategoryByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/categories/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.ensurePermission(w, r, auth.ResourceCategories, auth.ActionRead, auth.ScopeAll); !ok {
			return
		}
		c, err := a.catalog.GetCategory(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"category": c})
	case http.MethodPatch, http.MethodPut:
		if _, ok := a.ensurePermission(w, r, auth.ResourceCategories, auth.ActionUpdate, auth.ScopeAll); !ok {
			return
		}
		var in catalog.CategoryInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		c, err := a.catalog.UpdateCategory(r.Context(), id, in)
		if err != nil {
			handleError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "category.update", map[string]any{"target": c.ID})
		writeJSON(w, http.StatusOK, map[string]any{"category": c})
	case http.MethodDelete:
		if _, ok := a.ensurePermission(w, r, auth.ResourceCategories, auth.ActionDelete, auth.ScopeAll); !ok {
			return
		}
		if err := a.catalog.DeleteCategory(r.Context(), id); err != nil {
			handleError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "category.delete", map[string]any{"target": id})
		writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.ensurePermission(w, r, auth.ResourceProducts, auth.ActionRead, auth.ScopeAll); !ok {
			return
		}
		list, err := a.catalog.ListProducts(r.Context(), r.URL.Query().Get("category"))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": list})
	case http.MethodPost:
		if _, ok := a.ensurePermission(w, r, auth.ResourceProducts, auth.ActionCreate, auth.ScopeAll); !ok {
			return
		}
		var in catalog.ProductInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		p, err := a.catalog.CreateProduct(r.Context(), in)
		if err != nil {
			handleError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "product.create", map[string]any{"target": p.ID})
		writeJSON(w, http.StatusCreated, map[string]any{"product": p})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

type priceRequest struct {
	Price int64 `json:"price"`
}

type stockRequest struct {
	Stock int `json:"stock"`
}

func (a *API) handleProductByID(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/products/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	id := parts[0]

	if len(parts) == 2 {
		switch parts[1] {
		case "price":
			a.handleProductPrice(w, r, id)
		case "stock":
			a.handleProductStock(w, r, id)
		default:
			writeError(w, r, http.StatusNotFound, "resource not found")
		}
		return
	}
	if len(parts) != 1 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		if _, ok := a.ensurePermission(w, r, auth.ResourceProducts, auth.ActionRead, auth.ScopeAll); !ok {
			return
		}
		p, err := a.catalog.GetProduct(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": p})
	case http.MethodPatch, http.MethodPut:
		if _, ok := a.ensurePermission(w, r, auth.ResourceProducts, auth.ActionUpdate, auth.ScopeAll); !ok {
			return
		}
		var in catalog.ProductInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		p, err := a.catalog.UpdateProduct(r.Context(), id, in)
		if err != nil {
			handleError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "product.update", map[string]any{"target": p.ID})
		writeJSON(w, http.StatusOK, map[string]any{"product": p})
	case http.MethodDelete:
		if _, ok := a.ensurePermission(w, r, auth.ResourceProducts, auth.ActionDelete, auth.ScopeAll); !ok {
			return
		}
		if err := a.catalog.DeleteProduct(r.Context(), id); err != nil {
			handleError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "product.delete", map[string]any{"target": id})
		writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleProductPrice(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	if _, ok := a.ensurePermission(w, r, auth.ResourceProducts, auth.ActionUpdate, auth.ScopeAll); !ok {
		return
	}
	var req priceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.catalog.UpdatePrice(r.Context(), id, req.Price)
	if err != nil {
		handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "product.price", map[string]any{"target": id, "price": req.Price})
	writeJSON(w, http.StatusOK, map[string]any{"product": p})
}

func (a *API) handleProductStock(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	if _, ok := a.ensurePermission(w, r, auth.ResourceProducts, auth.ActionUpdate, auth.ScopeAll); !ok {
		return
	}
	var req stockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.catalog.UpdateStock(r.Context(), id, req.Stock)
	if err != nil {
		handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "product.stock", map[string]any{"target": id, "stock": req.Stock})
	writeJSON(w, http.StatusOK, map[string]any{"product": p})
}

func (a *API) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.ensurePermission(w, r, auth.ResourceSettings, auth.ActionRead, auth.ScopeAll); !ok {
		return
	}
	list, err := a.catalog.ListSettings(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": list})
}

func (a *API) handleSettingByKey(w http.ResponseWriter, r *http.Request) {
	key := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/settings/"), "/")
	if key == "" || strings.Contains(key, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.ensurePermission(w, r, auth.ResourceSettings, auth.ActionRead, auth.ScopeAll); !ok {
			return
		}
		setting, err := a.catalog.GetSetting(r.Context(), key)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"setting": setting})
	case http.MethodPut:
		if _, ok := a.ensurePermission(w, r, auth.ResourceSettings, auth.ActionUpdate, auth.ScopeAll); !ok {
			return
		}
		var value json.RawMessage
		if err := decodeJSON(w, r, &value); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		setting, err := a.catalog.PutSetting(r.Context(), key, value)
		if err != nil {
			handleError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "settings.update", map[string]any{"target": key})
		writeJSON(w, http.StatusOK, map[string]any{"setting": setting})
	case http.MethodDelete:
		if _, ok := a.ensurePermission(w, r, auth.ResourceSettings, auth.ActionDelete, auth.ScopeAll); !ok {
			return
		}
		if err := a.catalog.DeleteSetting(r.Context(), key); err != nil {
			handleError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "settings.delete", map[string]any{"target": key})
		writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
