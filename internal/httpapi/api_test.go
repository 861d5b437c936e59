package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shopcore.dev/internal/auth"
	"shopcore.dev/internal/cache"
	"shopcore.dev/internal/catalog"
	"shopcore.dev/internal/events"
)

// In-memory auth store --------------------------------------------------------

type authMem struct {
	users    map[string]*auth.User
	roles    map[string]*auth.Role
	grants   map[string][]auth.Grant
	perms    []auth.Permission
	sessions map[string]*auth.Session
}

func newAuthMem() *authMem {
	return &authMem{
		users:    make(map[string]*auth.User),
		roles:    make(map[string]*auth.Role),
		grants:   make(map[string][]auth.Grant),
		sessions: make(map[string]*auth.Session),
	}
}

func (m *authMem) Users() auth.UserStore             { return amUsers{m} }
func (m *authMem) Roles() auth.RoleStore             { return amRoles{m} }
func (m *authMem) Permissions() auth.PermissionStore { return amPerms{m} }
func (m *authMem) Sessions() auth.SessionStore       { return amSessions{m} }

type amUsers struct{ m *authMem }

func (s amUsers) Create(ctx context.Context, u *auth.User) error {
	cp := *u
	s.m.users[u.ID] = &cp
	return nil
}

func (s amUsers) Find(ctx context.Context, id string) (*auth.User, error) {
	u, ok := s.m.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s amUsers) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	for _, u := range s.m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s amUsers) FindByPhone(ctx context.Context, phone string) (*auth.User, error) {
	for _, u := range s.m.users {
		if u.Phone == phone && phone != "" {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s amUsers) List(ctx context.Context) ([]*auth.User, error) {
	var out []*auth.User
	for _, u := range s.m.users {
		if u.DeletedAt == nil {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s amUsers) Update(ctx context.Context, u *auth.User) error {
	if _, ok := s.m.users[u.ID]; !ok {
		return auth.ErrNotFound
	}
	cp := *u
	s.m.users[u.ID] = &cp
	return nil
}

func (s amUsers) SoftDelete(ctx context.Context, id string, when time.Time) error {
	u, ok := s.m.users[id]
	if !ok || u.DeletedAt != nil {
		return auth.ErrNotFound
	}
	t := when
	u.DeletedAt = &t
	u.IsActive = false
	return nil
}

func (s amUsers) TouchLastLogin(ctx context.Context, id string, when time.Time) error {
	if u, ok := s.m.users[id]; ok {
		t := when
		u.LastLoginAt = &t
	}
	return nil
}

type amRoles struct{ m *authMem }

func (s amRoles) Create(ctx context.Context, role *auth.Role) error {
	cp := *role
	s.m.roles[role.ID] = &cp
	return nil
}

func (s amRoles) Find(ctx context.Context, id string) (*auth.Role, error) {
	role, ok := s.m.roles[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *role
	return &cp, nil
}

func (s amRoles) FindByName(ctx context.Context, name string) (*auth.Role, error) {
	for _, role := range s.m.roles {
		if role.Name == name {
			cp := *role
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s amRoles) FindDefault(ctx context.Context) (*auth.Role, error) {
	for _, role := range s.m.roles {
		if role.IsDefault {
			cp := *role
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s amRoles) List(ctx context.Context) ([]*auth.Role, error) {
	var out []*auth.Role
	for _, role := range s.m.roles {
		cp := *role
		out = append(out, &cp)
	}
	return out, nil
}

func (s amRoles) Update(ctx context.Context, role *auth.Role) error {
	if _, ok := s.m.roles[role.ID]; !ok {
		return auth.ErrNotFound
	}
	cp := *role
	s.m.roles[role.ID] = &cp
	return nil
}

func (s amRoles) Delete(ctx context.Context, id string) error {
	if _, ok := s.m.roles[id]; !ok {
		return auth.ErrNotFound
	}
	delete(s.m.roles, id)
	return nil
}

func (s amRoles) Grants(ctx context.Context, roleID string) ([]auth.Grant, error) {
	return s.m.grants[roleID], nil
}

func (s amRoles) SetPermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	var grants []auth.Grant
	for _, pid := range permissionIDs {
		for _, p := range s.m.perms {
			if p.ID == pid {
				grants = append(grants, auth.Grant{Resource: p.Resource, Action: p.Action, Scope: p.Scope})
			}
		}
	}
	s.m.grants[roleID] = grants
	return nil
}

type amPerms struct{ m *authMem }

func (s amPerms) Ensure(ctx context.Context, perms []auth.Permission) error {
	s.m.perms = append(s.m.perms, perms...)
	return nil
}

func (s amPerms) List(ctx context.Context) ([]auth.Permission, error) {
	return s.m.perms, nil
}

type amSessions struct{ m *authMem }

func (s amSessions) Create(ctx context.Context, sess *auth.Session) error {
	cp := *sess
	s.m.sessions[sess.Token] = &cp
	return nil
}

func (s amSessions) FindByToken(ctx context.Context, token string) (*auth.Session, error) {
	sess, ok := s.m.sessions[token]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s amSessions) DeleteByToken(ctx context.Context, token string) error {
	delete(s.m.sessions, token)
	return nil
}

func (s amSessions) DeleteByUser(ctx context.Context, userID string) error {
	for token, sess := range s.m.sessions {
		if sess.UserID == userID {
			delete(s.m.sessions, token)
		}
	}
	return nil
}

// In-memory catalog store -----------------------------------------------------

type catMem struct {
	categories map[string]*catalog.Category
	products   map[string]*catalog.Product
	settings   map[string]*catalog.Setting
}

func newCatMem() *catMem {
	return &catMem{
		categories: make(map[string]*catalog.Category),
		products:   make(map[string]*catalog.Product),
		settings:   make(map[string]*catalog.Setting),
	}
}

func (m *catMem) Categories() catalog.CategoryStore { return cmCategories{m} }
func (m *catMem) Products() catalog.ProductStore    { return cmProducts{m} }
func (m *catMem) Settings() catalog.SettingStore    { return cmSettings{m} }

type cmCategories struct{ m *catMem }

func (s cmCategories) Create(ctx context.Context, c *catalog.Category) error {
	for _, other := range s.m.categories {
		if other.Slug == c.Slug {
			return catalog.ErrConflict
		}
	}
	cp := *c
	s.m.categories[c.ID] = &cp
	return nil
}

func (s cmCategories) Find(ctx context.Context, id string) (*catalog.Category, error) {
	c, ok := s.m.categories[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s cmCategories) FindBySlug(ctx context.Context, slug string) (*catalog.Category, error) {
	for _, c := range s.m.categories {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (s cmCategories) List(ctx context.Context) ([]*catalog.Category, error) {
	var out []*catalog.Category
	for _, c := range s.m.categories {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (s cmCategories) ChildIDs(ctx context.Context, parentID string) ([]string, error) {
	var ids []string
	for _, c := range s.m.categories {
		if c.ParentID == parentID {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func (s cmCategories) Update(ctx context.Context, c *catalog.Category) error {
	if _, ok := s.m.categories[c.ID]; !ok {
		return catalog.ErrNotFound
	}
	cp := *c
	s.m.categories[c.ID] = &cp
	return nil
}

func (s cmCategories) Delete(ctx context.Context, id string) error {
	if _, ok := s.m.categories[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(s.m.categories, id)
	return nil
}

type cmProducts struct{ m *catMem }

func (s cmProducts) Create(ctx context.Context, p *catalog.Product) error {
	for _, other := range s.m.products {
		if other.SKU == p.SKU {
			return catalog.ErrConflict
		}
	}
	cp := *p
	s.m.products[p.ID] = &cp
	return nil
}

func (s cmProducts) Find(ctx context.Context, id string) (*catalog.Product, error) {
	p, ok := s.m.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s cmProducts) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	for _, p := range s.m.products {
		if p.SKU == sku {
			cp := *p
			return &cp, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (s cmProducts) List(ctx context.Context, categoryID string) ([]*catalog.Product, error) {
	var out []*catalog.Product
	for _, p := range s.m.products {
		if categoryID == "" || p.CategoryID == categoryID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s cmProducts) CountByCategory(ctx context.Context, categoryID string) (int, error) {
	var n int
	for _, p := range s.m.products {
		if p.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

func (s cmProducts) Update(ctx context.Context, p *catalog.Product) error {
	if _, ok := s.m.products[p.ID]; !ok {
		return catalog.ErrNotFound
	}
	cp := *p
	s.m.products[p.ID] = &cp
	return nil
}

func (s cmProducts) Delete(ctx context.Context, id string) error {
	if _, ok := s.m.products[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(s.m.products, id)
	return nil
}

type cmSettings struct{ m *catMem }

func (s cmSettings) Get(ctx context.Context, key string) (*catalog.Setting, error) {
	setting, ok := s.m.settings[key]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := *setting
	return &cp, nil
}

func (s cmSettings) List(ctx context.Context) ([]*catalog.Setting, error) {
	var out []*catalog.Setting
	for _, setting := range s.m.settings {
		cp := *setting
		out = append(out, &cp)
	}
	return out, nil
}

func (s cmSettings) Upsert(ctx context.Context, key string, value json.RawMessage) (*catalog.Setting, error) {
	setting := &catalog.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	s.m.settings[key] = setting
	cp := *setting
	return &cp, nil
}

func (s cmSettings) Delete(ctx context.Context, key string) error {
	if _, ok := s.m.settings[key]; !ok {
		return catalog.ErrNotFound
	}
	delete(s.m.settings, key)
	return nil
}

// Fixture ---------------------------------------------------------------------

type testEnv struct {
	api     *API
	server  *httptest.Server
	authSvc *auth.Service
	auth    *authMem
	cat     *catMem
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	am := newAuthMem()
	cm := newCatMem()

	bus := events.NewBus()
	store := cache.New()
	if err := cache.Register(bus, store); err != nil {
		t.Fatalf("cache.Register: %v", err)
	}

	authSvc, err := auth.NewService(am)
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}
	catSvc := catalog.NewService(cm, bus, store)

	api := New(Options{
		Version:    "test",
		Auth:       authSvc,
		Catalog:    catSvc,
		Bus:        bus,
		CookieName: "shopcore_session",
	})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{api: api, server: srv, authSvc: authSvc, auth: am, cat: cm}
}

// seedSuperAdmin creates a super_admin user and returns a live session token.
func (env *testEnv) seedSuperAdmin(t *testing.T) string {
	t.Helper()
	env.auth.roles["role_super"] = &auth.Role{ID: "role_super", Name: auth.SuperAdminRole, IsSystem: true}
	return env.seedUserSession(t, "user_root", "root@example.com", "role_super")
}

// seedUserSession creates an active user with roleID and returns a session
// token minted through the service.
func (env *testEnv) seedUserSession(t *testing.T, id, email, roleID string) string {
	t.Helper()
	hash, err := auth.HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	env.auth.users[id] = &auth.User{ID: id, Email: email, PasswordHash: hash, IsActive: true, RoleID: roleID}
	sess, err := env.authSvc.CreateSession(context.Background(), id, auth.ClientMeta{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return sess.Token
}

// do issues a request against the test server with an optional session
// cookie and JSON body.
func (env *testEnv) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, env.server.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "shopcore_session", Value: token})
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}
