package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopcore.dev/internal/apperr"
	"shopcore.dev/internal/ids"
)

const (
	defaultSessionTTL = 7 * 24 * time.Hour
	tokenBytes        = 32 // 256 bits of entropy
	minPasswordLength = 8
)

// Service is the authentication gate: it owns session lifecycle and exposes
// credential and permission checks on top of a Store.
type Service struct {
	store      Store
	now        func() time.Time
	sessionTTL time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithSessionTTL overrides the fixed session lifetime.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl <= 0 {
			return errors.New("auth: session ttl must be positive")
		}
		s.sessionTTL = ttl
		return nil
	}
}

// NewService constructs the gate with optional configuration.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	svc := &Service{
		store:      store,
		now:        time.Now,
		sessionTTL: defaultSessionTTL,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// SessionTTL returns the fixed session lifetime, used by the HTTP layer to
// align cookie expiry with the session row.
func (s *Service) SessionTTL() time.Duration { return s.sessionTTL }

func generateSessionToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// CreateSession persists a new session for the user. Expiry is fixed at
// creation; there is no sliding renewal.
func (s *Service) CreateSession(ctx context.Context, userID string, meta ClientMeta) (*Session, error) {
	token, err := generateSessionToken()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sess := &Session{
		ID:        ids.New("session"),
		Token:     token,
		UserID:    userID,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.store.Sessions().Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// ResolveSession maps a bearer token to its user with role and grants
// loaded. A missing or expired session is a normal (nil, nil) outcome, not
// an error; expired rows are reaped on access. Persistence failures
// propagate: authentication never silently succeeds on a store failure.
func (s *Service) ResolveSession(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}
	sess, err := s.store.Sessions().FindByToken(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	now := s.now().UTC()
	if !now.Before(sess.ExpiresAt) {
		if err := s.store.Sessions().DeleteByToken(ctx, token); err != nil {
			return nil, fmt.Errorf("reap expired session: %w", err)
		}
		return nil, nil
	}

	user, err := s.store.Users().Find(ctx, sess.UserID)
	if errors.Is(err, ErrNotFound) {
		// Orphaned session; drop it.
		if err := s.store.Sessions().DeleteByToken(ctx, token); err != nil {
			return nil, fmt.Errorf("delete orphaned session: %w", err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session user: %w", err)
	}
	if !user.IsActive || user.DeletedAt != nil {
		if err := s.store.Sessions().DeleteByToken(ctx, token); err != nil {
			return nil, fmt.Errorf("delete session of inactive user: %w", err)
		}
		return nil, nil
	}

	if err := s.store.Users().TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("touch last login: %w", err)
	}
	user.LastLoginAt = &now

	if err := s.loadRole(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DestroySession deletes the session row. Destroying an absent token is not
// an error.
func (s *Service) DestroySession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.Sessions().DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// DestroyAllSessions revokes every session owned by the user, so existing
// bearer tokens stop working immediately.
func (s *Service) DestroyAllSessions(ctx context.Context, userID string) error {
	if err := s.store.Sessions().DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("destroy sessions for user %s: %w", userID, err)
	}
	return nil
}

// Login authenticates credentials and opens a session. Bad credentials,
// unknown accounts and soft-deleted accounts all yield the same
// authentication error so the response does not leak account existence.
func (s *Service) Login(ctx context.Context, email, password string, meta ClientMeta) (*User, *Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, nil, apperr.Validation("email and password are required")
	}
	user, err := s.store.Users().FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, nil, apperr.Authentication("invalid email or password")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find user by email: %w", err)
	}
	if user.DeletedAt != nil {
		return nil, nil, apperr.Authentication("invalid email or password")
	}
	if !user.IsActive {
		return nil, nil, apperr.Authentication("account is disabled")
	}
	if !VerifyPassword(password, user.PasswordHash) {
		return nil, nil, apperr.Authentication("invalid email or password")
	}
	if err := s.loadRole(ctx, user); err != nil {
		return nil, nil, err
	}
	sess, err := s.CreateSession(ctx, user.ID, meta)
	if err != nil {
		return nil, nil, err
	}
	return user, sess, nil
}

// RegisterInput carries self-registration fields.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// Register creates an account with the default role (if one is configured)
// and opens a session for it.
func (s *Service) Register(ctx context.Context, in RegisterInput, meta ClientMeta) (*User, *Session, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, apperr.Validation("invalid input", apperr.FieldError{Field: "email", Message: "a valid email is required"})
	}
	if len(in.Password) < minPasswordLength {
		return nil, nil, apperr.Validation("invalid input", apperr.FieldError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength)})
	}

	if _, err := s.store.Users().FindByEmail(ctx, email); err == nil {
		return nil, nil, apperr.Conflict("email already in use", "email")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, nil, fmt.Errorf("check email uniqueness: %w", err)
	}

	phone := strings.TrimSpace(in.Phone)
	if phone != "" {
		if _, err := s.store.Users().FindByPhone(ctx, phone); err == nil {
			return nil, nil, apperr.Conflict("phone already in use", "phone")
		} else if !errors.Is(err, ErrNotFound) {
			return nil, nil, fmt.Errorf("check phone uniqueness: %w", err)
		}
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, nil, err
	}

	user := &User{
		ID:           ids.New("user"),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        phone,
		IsActive:     true,
	}
	defaultRole, err := s.store.Roles().FindDefault(ctx)
	switch {
	case err == nil:
		user.RoleID = defaultRole.ID
	case errors.Is(err, ErrNotFound):
		// No default role configured; the account starts without grants.
	default:
		return nil, nil, fmt.Errorf("find default role: %w", err)
	}

	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, nil, apperr.Conflict("email already in use", "email")
		}
		return nil, nil, fmt.Errorf("create user: %w", err)
	}
	if err := s.loadRole(ctx, user); err != nil {
		return nil, nil, err
	}
	sess, err := s.CreateSession(ctx, user.ID, meta)
	if err != nil {
		return nil, nil, err
	}
	return user, sess, nil
}

// RequirePermission resolves the caller's session and evaluates the grant in
// one step, returning the authenticated user so the caller can run ownership
// checks without a second lookup.
func (s *Service) RequirePermission(ctx context.Context, token, resource string, action Action, scope Scope) (*User, error) {
	user, err := s.ResolveSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.Authentication("")
	}
	if !HasPermission(user, resource, action, scope) {
		return nil, apperr.PermissionDenied(resource, strings.ToLower(string(action)))
	}
	return user, nil
}

// loadRole attaches the user's role with resolved grants.
func (s *Service) loadRole(ctx context.Context, user *User) error {
	if user.RoleID == "" {
		return nil
	}
	role, err := s.store.Roles().Find(ctx, user.RoleID)
	if errors.Is(err, ErrNotFound) {
		// Dangling role reference behaves like no role at all.
		return nil
	}
	if err != nil {
		return fmt.Errorf("load role: %w", err)
	}
	grants, err := s.store.Roles().Grants(ctx, role.ID)
	if err != nil {
		return fmt.Errorf("load role grants: %w", err)
	}
	role.Grants = grants
	user.Role = role
	return nil
}
