package events

// Payload structs for every event carried on the bus. Each embeds Meta so
// the bus can stamp the publish time; always publish them as pointers.

// UserEvent covers user:created, user:updated and user:deleted.
type UserEvent struct {
	Meta
	name   Name
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

func NewUserEvent(name Name, userID, email string) *UserEvent {
	return &UserEvent{name: name, UserID: userID, Email: email}
}

func (e *UserEvent) EventName() Name { return e.name }

// SessionEvent covers user:login and user:logout.
type SessionEvent struct {
	Meta
	name      Name
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	IPAddress string `json:"ip_address,omitempty"`
}

func NewSessionEvent(name Name, userID, sessionID, ip string) *SessionEvent {
	return &SessionEvent{name: name, UserID: userID, SessionID: sessionID, IPAddress: ip}
}

func (e *SessionEvent) EventName() Name { return e.name }

// RoleEvent covers role:created, role:updated and role:deleted.
type RoleEvent struct {
	Meta
	name     Name
	RoleID   string `json:"role_id"`
	RoleName string `json:"role_name,omitempty"`
}

func NewRoleEvent(name Name, roleID, roleName string) *RoleEvent {
	return &RoleEvent{name: name, RoleID: roleID, RoleName: roleName}
}

func (e *RoleEvent) EventName() Name { return e.name }

// CategoryEvent covers category:created, category:updated and
// category:deleted.
type CategoryEvent struct {
	Meta
	name       Name
	CategoryID string `json:"category_id"`
	Slug       string `json:"slug,omitempty"`
	ParentID   string `json:"parent_id,omitempty"`
}

func NewCategoryEvent(name Name, categoryID, slug, parentID string) *CategoryEvent {
	return &CategoryEvent{name: name, CategoryID: categoryID, Slug: slug, ParentID: parentID}
}

func (e *CategoryEvent) EventName() Name { return e.name }

// ProductEvent covers product:created, product:updated and product:deleted.
type ProductEvent struct {
	Meta
	name       Name
	ProductID  string `json:"product_id"`
	SKU        string `json:"sku,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
}

func NewProductEvent(name Name, productID, sku, categoryID string) *ProductEvent {
	return &ProductEvent{name: name, ProductID: productID, SKU: sku, CategoryID: categoryID}
}

func (e *ProductEvent) EventName() Name { return e.name }

// PriceChangeEvent carries the before/after price in minor units.
type PriceChangeEvent struct {
	Meta
	ProductID string `json:"product_id"`
	OldPrice  int64  `json:"old_price"`
	NewPrice  int64  `json:"new_price"`
}

func (e *PriceChangeEvent) EventName() Name { return ProductPriceChanged }

// StockChangeEvent carries the before/after stock level.
type StockChangeEvent struct {
	Meta
	ProductID string `json:"product_id"`
	OldStock  int    `json:"old_stock"`
	NewStock  int    `json:"new_stock"`
}

func (e *StockChangeEvent) EventName() Name { return ProductStockChanged }

// SettingsEvent covers settings:updated.
type SettingsEvent struct {
	Meta
	Key string `json:"key"`
}

func (e *SettingsEvent) EventName() Name { return SettingsUpdated }

// CacheEvent covers the explicit cache control events. Key is the exact key
// for cache:invalidate and the glob pattern for cache:invalidate:pattern;
// it is empty for cache:clear:all.
type CacheEvent struct {
	Meta
	name Name
	Key  string `json:"key,omitempty"`
}

func NewCacheEvent(name Name, key string) *CacheEvent {
	return &CacheEvent{name: name, Key: key}
}

func (e *CacheEvent) EventName() Name { return e.name }
