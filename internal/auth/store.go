package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
// Implementations must return ErrNotFound for absent rows and ErrConflict
// for uniqueness violations; any other error is treated as fatal by callers.
type Store interface {
	Users() UserStore
	Roles() RoleStore
	Permissions() PermissionStore
	Sessions() SessionStore
}

// UserStore manages accounts.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByPhone(ctx context.Context, phone string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, u *User) error
	SoftDelete(ctx context.Context, id string, when time.Time) error
	TouchLastLogin(ctx context.Context, id string, when time.Time) error
}

// RoleStore manages roles and their resolved grants.
type RoleStore interface {
	Create(ctx context.Context, role *Role) error
	Find(ctx context.Context, id string) (*Role, error)
	FindByName(ctx context.Context, name string) (*Role, error)
	FindDefault(ctx context.Context) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
	Update(ctx context.Context, role *Role) error
	Delete(ctx context.Context, id string) error
	Grants(ctx context.Context, roleID string) ([]Grant, error)
	// SetPermissions replaces the role's full permission set atomically.
	SetPermissions(ctx context.Context, roleID string, permissionIDs []string) error
}

// PermissionStore manages the permission catalog.
type PermissionStore interface {
	Ensure(ctx context.Context, perms []Permission) error
	List(ctx context.Context) ([]Permission, error)
}

// SessionStore manages bearer sessions keyed by opaque token.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	FindByToken(ctx context.Context, token string) (*Session, error)
	// DeleteByToken is idempotent: deleting an absent token is not an error.
	DeleteByToken(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID string) error
}
