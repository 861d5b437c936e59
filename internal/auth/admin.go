package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shopcore.dev/internal/apperr"
	"shopcore.dev/internal/ids"
)

// Administration operations over users, roles and the permission catalog.
// All of them assume the caller already passed RequirePermission; the only
// extra check performed here is the role-assignment escalation guard.

// UserInput carries admin-issued user fields. Nil pointers mean "leave
// unchanged" on update.
type UserInput struct {
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	RoleID    *string `json:"role_id"`
	IsActive  *bool   `json:"is_active"`
}

// RoleInput carries role create/update fields.
type RoleInput struct {
	Name          *string  `json:"name"`
	DisplayName   *string  `json:"display_name"`
	Description   *string  `json:"description"`
	IsDefault     *bool    `json:"is_default"`
	PermissionIDs []string `json:"permission_ids"`
}

// ListUsers returns all non-deleted accounts.
func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.store.Users().List(ctx)
}

// GetUser loads one account with its role and grants.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	user, err := s.store.Users().Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user.DeletedAt != nil {
		return nil, apperr.NotFound("user")
	}
	if err := s.loadRole(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser creates an account on behalf of an administrator. Assigning a
// role goes through the escalation guard.
func (s *Service) CreateUser(ctx context.Context, actor *User, in UserInput) (*User, error) {
	if in.Email == nil || in.Password == nil {
		return nil, apperr.Validation("email and password are required")
	}
	email := strings.TrimSpace(strings.ToLower(*in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Validation("invalid input", apperr.FieldError{Field: "email", Message: "a valid email is required"})
	}
	if len(*in.Password) < minPasswordLength {
		return nil, apperr.Validation("invalid input", apperr.FieldError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength)})
	}
	if _, err := s.store.Users().FindByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("email already in use", "email")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check email uniqueness: %w", err)
	}

	user := &User{
		ID:       ids.New("user"),
		Email:    email,
		IsActive: true,
	}
	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if in.RoleID != nil && *in.RoleID != "" {
		if err := s.guardRoleAssignment(ctx, actor, *in.RoleID); err != nil {
			return nil, err
		}
		user.RoleID = *in.RoleID
	}
	hash, err := HashPassword(*in.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, apperr.Conflict("email already in use", "email")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	if err := s.loadRole(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser applies a partial update. Password changes replace the whole
// credential; role changes go through the escalation guard; deactivation
// revokes every live session.
func (s *Service) UpdateUser(ctx context.Context, actor *User, id string, in UserInput) (*User, error) {
	user, err := s.store.Users().Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user.DeletedAt != nil {
		return nil, apperr.NotFound("user")
	}

	if in.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*in.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, apperr.Validation("invalid input", apperr.FieldError{Field: "email", Message: "a valid email is required"})
		}
		if email != user.Email {
			if _, err := s.store.Users().FindByEmail(ctx, email); err == nil {
				return nil, apperr.Conflict("email already in use", "email")
			} else if !errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("check email uniqueness: %w", err)
			}
			user.Email = email
		}
	}
	if in.Password != nil {
		if len(*in.Password) < minPasswordLength {
			return nil, apperr.Validation("invalid input", apperr.FieldError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength)})
		}
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.RoleID != nil && *in.RoleID != user.RoleID {
		if *in.RoleID != "" {
			if err := s.guardRoleAssignment(ctx, actor, *in.RoleID); err != nil {
				return nil, err
			}
		}
		user.RoleID = *in.RoleID
	}
	deactivated := false
	if in.IsActive != nil && *in.IsActive != user.IsActive {
		user.IsActive = *in.IsActive
		deactivated = !user.IsActive
	}

	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if deactivated {
		if err := s.DestroyAllSessions(ctx, user.ID); err != nil {
			return nil, err
		}
	}
	if err := s.loadRole(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser soft-deletes the account and revokes all of its sessions so
// existing bearer tokens stop working immediately.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	user, err := s.store.Users().Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("user")
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user.DeletedAt != nil {
		return apperr.NotFound("user")
	}
	if err := s.store.Users().SoftDelete(ctx, id, s.now().UTC()); err != nil {
		return fmt.Errorf("soft delete user: %w", err)
	}
	return s.DestroyAllSessions(ctx, id)
}

func (s *Service) guardRoleAssignment(ctx context.Context, actor *User, roleID string) error {
	role, err := s.store.Roles().Find(ctx, roleID)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("role")
	}
	if err != nil {
		return fmt.Errorf("find role: %w", err)
	}
	if !CanAssignRole(actor, role.Name) {
		return apperr.PermissionDenied("roles", "assign")
	}
	return nil
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]*Role, error) {
	return s.store.Roles().List(ctx)
}

// GetRole loads one role with resolved grants.
func (s *Service) GetRole(ctx context.Context, id string) (*Role, error) {
	role, err := s.store.Roles().Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("role")
	}
	if err != nil {
		return nil, fmt.Errorf("find role: %w", err)
	}
	grants, err := s.store.Roles().Grants(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load role grants: %w", err)
	}
	role.Grants = grants
	return role, nil
}

// CreateRole creates a role and optionally binds its permission set.
func (s *Service) CreateRole(ctx context.Context, in RoleInput) (*Role, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperr.Validation("invalid input", apperr.FieldError{Field: "name", Message: "role name is required"})
	}
	name := strings.TrimSpace(*in.Name)
	if _, err := s.store.Roles().FindByName(ctx, name); err == nil {
		return nil, apperr.Conflict("role name already in use", "name")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check role name uniqueness: %w", err)
	}

	role := &Role{
		ID:          ids.New("role"),
		Name:        name,
		DisplayName: name,
	}
	if in.DisplayName != nil && strings.TrimSpace(*in.DisplayName) != "" {
		role.DisplayName = strings.TrimSpace(*in.DisplayName)
	}
	if in.Description != nil {
		role.Description = strings.TrimSpace(*in.Description)
	}
	if in.IsDefault != nil {
		role.IsDefault = *in.IsDefault
	}
	if err := s.store.Roles().Create(ctx, role); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, apperr.Conflict("role name already in use", "name")
		}
		return nil, fmt.Errorf("create role: %w", err)
	}
	if len(in.PermissionIDs) > 0 {
		if err := s.store.Roles().SetPermissions(ctx, role.ID, in.PermissionIDs); err != nil {
			return nil, fmt.Errorf("set role permissions: %w", err)
		}
	}
	return s.GetRole(ctx, role.ID)
}

// UpdateRole applies a partial update. System roles keep their stable name;
// a provided permission set replaces the previous one atomically.
func (s *Service) UpdateRole(ctx context.Context, id string, in RoleInput) (*Role, error) {
	role, err := s.store.Roles().Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("role")
	}
	if err != nil {
		return nil, fmt.Errorf("find role: %w", err)
	}

	if in.Name != nil && strings.TrimSpace(*in.Name) != role.Name {
		if role.IsSystem {
			return nil, apperr.Conflict("system roles cannot be renamed", "name")
		}
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("invalid input", apperr.FieldError{Field: "name", Message: "role name is required"})
		}
		if _, err := s.store.Roles().FindByName(ctx, name); err == nil {
			return nil, apperr.Conflict("role name already in use", "name")
		} else if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("check role name uniqueness: %w", err)
		}
		role.Name = name
	}
	if in.DisplayName != nil && strings.TrimSpace(*in.DisplayName) != "" {
		role.DisplayName = strings.TrimSpace(*in.DisplayName)
	}
	if in.Description != nil {
		role.Description = strings.TrimSpace(*in.Description)
	}
	if in.IsDefault != nil {
		role.IsDefault = *in.IsDefault
	}
	if err := s.store.Roles().Update(ctx, role); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	if in.PermissionIDs != nil {
		if err := s.store.Roles().SetPermissions(ctx, role.ID, in.PermissionIDs); err != nil {
			return nil, fmt.Errorf("set role permissions: %w", err)
		}
	}
	return s.GetRole(ctx, role.ID)
}

// DeleteRole removes a role. System roles are protected.
func (s *Service) DeleteRole(ctx context.Context, id string) error {
	role, err := s.store.Roles().Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("role")
	}
	if err != nil {
		return fmt.Errorf("find role: %w", err)
	}
	if role.IsSystem {
		return apperr.Conflict("system roles cannot be deleted", "")
	}
	if err := s.store.Roles().Delete(ctx, id); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	return nil
}

// ListPermissions returns the whole catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.Permissions().List(ctx)
}

// EnsurePermissions seeds catalog entries idempotently at startup.
func (s *Service) EnsurePermissions(ctx context.Context, perms []Permission) error {
	return s.store.Permissions().Ensure(ctx, perms)
}
