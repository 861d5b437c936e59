// Package httpapi is the HTTP surface of the administration backend:
// session-cookie authentication, the auth endpoints, and the admin CRUD
// surface for users, roles, categories, products and settings.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"shopcore.dev/internal/auth"
	"shopcore.dev/internal/catalog"
	"shopcore.dev/internal/events"
	"shopcore.dev/internal/obs"
)

// ReadyProbe reports whether downstream dependencies answer.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options carries the API dependencies.
type Options struct {
	Version      string
	ReadyProbe   ReadyProbe
	Auth         *auth.Service
	Catalog      *catalog.Service
	Bus          *events.Bus
	CookieName   string
	SecureCookie bool
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	auth    *auth.Service
	catalog *catalog.Service
	bus     *events.Bus

	cookieName   string
	secureCookie bool
}

func New(opts Options) *API {
	a := &API{
		mux:          http.NewServeMux(),
		readyProbe:   opts.ReadyProbe,
		version:      opts.Version,
		auth:         opts.Auth,
		catalog:      opts.Catalog,
		bus:          opts.Bus,
		cookieName:   opts.CookieName,
		secureCookie: opts.SecureCookie,
	}
	if a.cookieName == "" {
		a.cookieName = "shopcore_session"
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)

	a.mux.HandleFunc("/v1/users", a.handleUsers)
	a.mux.HandleFunc("/v1/users/", a.handleUserByID)
	a.mux.HandleFunc("/v1/roles", a.handleRoles)
	a.mux.HandleFunc("/v1/roles/", a.handleRoleByID)
	a.mux.HandleFunc("/v1/permissions", a.handlePermissions)

	a.mux.HandleFunc("/v1/categories", a.handleCategories)
	a.mux.HandleFunc("/v1/categories/tree", a.handleCategoryTree)
	a.mux.HandleFunc("/v1/categories/", a.handleCategoryByID)
	a.mux.HandleFunc("/v1/products", a.handleProducts)
	a.mux.HandleFunc("/v1/products/", a.handleProductByID)
	a.mux.HandleFunc("/v1/settings", a.handleSettings)
	a.mux.HandleFunc("/v1/settings/", a.handleSettingByKey)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler wires session resolution and metrics around the mux. The outer
// middleware chain (request ids, rate limiting, CORS) is assembled by the
// caller.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.withSession(a.mux))
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "shopcore-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "shopcore-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
