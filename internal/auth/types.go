package auth

import "time"

// Action is a permission action. Manage implies every other action for the
// same resource and scope.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionRead   Action = "READ"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionManage Action = "MANAGE"
)

// Scope narrows a grant to the caller's own records or widens it to all.
// ScopeAll satisfies checks requesting ScopeOwn, never the reverse.
type Scope string

const (
	ScopeOwn Scope = "OWN"
	ScopeAll Scope = "ALL"
)

// SuperAdminRole bypasses grant evaluation entirely. It is an escape hatch,
// not a grant row.
const SuperAdminRole = "super_admin"

// Permission is the atomic grant unit in the catalog.
type Permission struct {
	ID          string `json:"id"`
	Resource    string `json:"resource"`
	Action      Action `json:"action"`
	Scope       Scope  `json:"scope"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Group       string `json:"group,omitempty"`
}

// Grant is a resolved (resource, action, scope) triple bound to a role. The
// scope may come from the role-permission link when it overrides the
// permission's default.
type Grant struct {
	Resource string `json:"resource"`
	Action   Action `json:"action"`
	Scope    Scope  `json:"scope"`
}

// Role bundles grants under a stable name used in business logic.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description,omitempty"`
	IsSystem    bool      `json:"is_system"`
	IsDefault   bool      `json:"is_default"`
	Grants      []Grant   `json:"grants,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// User is an account. PasswordHash is never serialized.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	IsActive     bool       `json:"is_active"`
	RoleID       string     `json:"role_id,omitempty"`
	Role         *Role      `json:"role,omitempty"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	DeletedAt    *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Session is one authenticated client context. The token is the sole bearer
// credential; expiry is fixed at creation, never extended.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	UserAgent string    `json:"user_agent,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// ClientMeta is audit metadata captured when a session is created.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}
