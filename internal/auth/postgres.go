package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL through database/sql.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Users() UserStore             { return &userStore{db: s.db} }
func (s *PGStore) Roles() RoleStore             { return &roleStore{db: s.db} }
func (s *PGStore) Permissions() PermissionStore { return &permissionStore{db: s.db} }
func (s *PGStore) Sessions() SessionStore       { return &sessionStore{db: s.db} }

// uniqueViolation maps the Postgres duplicate-key error onto ErrConflict.
func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// User store ---------------------------------------------------------------

type userStore struct{ db *sql.DB }

const userColumns = `id, email, password_hash, first_name, last_name, phone,
	is_active, role_id, last_login_at, deleted_at, created_at, updated_at`

func (s *userStore) Create(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, email, password_hash, first_name, last_name, phone, is_active, role_id)
		 values($1,$2,$3,$4,$5,$6,$7,nullif($8,''))`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, nullString(u.Phone), u.IsActive, u.RoleID,
	)
	if uniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var (
		u         User
		phone     sql.NullString
		roleID    sql.NullString
		lastLogin sql.NullTime
		deletedAt sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &phone,
		&u.IsActive, &roleID, &lastLogin, &deletedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Phone = phone.String
	u.RoleID = roleID.String
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		u.DeletedAt = &t
	}
	return &u, nil
}

func (s *userStore) Find(ctx context.Context, id string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id))
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, email))
}

func (s *userStore) FindByPhone(ctx context.Context, phone string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where phone=$1`, phone))
}

func (s *userStore) List(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users where deleted_at is null order by created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *userStore) Update(ctx context.Context, u *User) error {
	res, err := s.db.ExecContext(ctx,
		`update users set email=$2, password_hash=$3, first_name=$4, last_name=$5,
		 phone=$6, is_active=$7, role_id=nullif($8,''), updated_at=now() where id=$1`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, nullString(u.Phone), u.IsActive, u.RoleID,
	)
	if uniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *userStore) SoftDelete(ctx context.Context, id string, when time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update users set deleted_at=$2, is_active=false, updated_at=now() where id=$1 and deleted_at is null`,
		id, when,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *userStore) TouchLastLogin(ctx context.Context, id string, when time.Time) error {
	_, err := s.db.ExecContext(ctx, `update users set last_login_at=$2 where id=$1`, id, when)
	return err
}

// Role store ---------------------------------------------------------------

type roleStore struct{ db *sql.DB }

const roleColumns = `id, name, display_name, description, is_system, is_default, created_at, updated_at`

func (s *roleStore) Create(ctx context.Context, role *Role) error {
	_, err := s.db.ExecContext(ctx,
		`insert into roles(id, name, display_name, description, is_system, is_default)
		 values($1,$2,$3,$4,$5,$6)`,
		role.ID, role.Name, role.DisplayName, role.Description, role.IsSystem, role.IsDefault,
	)
	if uniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func scanRole(row interface{ Scan(...any) error }) (*Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.DisplayName, &role.Description,
		&role.IsSystem, &role.IsDefault, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

func (s *roleStore) Find(ctx context.Context, id string) (*Role, error) {
	return scanRole(s.db.QueryRowContext(ctx,
		`select `+roleColumns+` from roles where id=$1`, id))
}

func (s *roleStore) FindByName(ctx context.Context, name string) (*Role, error) {
	return scanRole(s.db.QueryRowContext(ctx,
		`select `+roleColumns+` from roles where name=$1`, name))
}

func (s *roleStore) FindDefault(ctx context.Context) (*Role, error) {
	return scanRole(s.db.QueryRowContext(ctx,
		`select `+roleColumns+` from roles where is_default order by created_at limit 1`))
}

func (s *roleStore) List(ctx context.Context) ([]*Role, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+roleColumns+` from roles order by created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (s *roleStore) Update(ctx context.Context, role *Role) error {
	res, err := s.db.ExecContext(ctx,
		`update roles set name=$2, display_name=$3, description=$4, is_default=$5, updated_at=now() where id=$1`,
		role.ID, role.Name, role.DisplayName, role.Description, role.IsDefault,
	)
	if uniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *roleStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from roles where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *roleStore) Grants(ctx context.Context, roleID string) ([]Grant, error) {
	// The link row's scope, when present, overrides the permission default.
	rows, err := s.db.QueryContext(ctx,
		`select p.resource, p.action, coalesce(rp.scope, p.scope)
		 from permissions p
		 join role_permissions rp on rp.permission_id = p.id
		 where rp.role_id = $1`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.Resource, &g.Action, &g.Scope); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (s *roleStore) SetPermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `delete from role_permissions where role_id=$1`, roleID); err != nil {
		return err
	}
	for _, pid := range permissionIDs {
		if _, err := tx.ExecContext(ctx,
			`insert into role_permissions(role_id, permission_id) values($1,$2) on conflict do nothing`,
			roleID, pid,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Permission store ---------------------------------------------------------

type permissionStore struct{ db *sql.DB }

func (s *permissionStore) Ensure(ctx context.Context, perms []Permission) error {
	for _, p := range perms {
		if _, err := s.db.ExecContext(ctx,
			`insert into permissions(id, resource, action, scope, name, description, perm_group)
			 values($1,$2,$3,$4,$5,$6,$7)
			 on conflict (resource, action, scope) do nothing`,
			p.ID, p.Resource, p.Action, p.Scope, p.Name, p.Description, p.Group,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *permissionStore) List(ctx context.Context) ([]Permission, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, resource, action, scope, name, description, perm_group
		 from permissions order by perm_group, resource, action`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Resource, &p.Action, &p.Scope, &p.Name, &p.Description, &p.Group); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// Session store ------------------------------------------------------------

type sessionStore struct{ db *sql.DB }

func (s *sessionStore) Create(ctx context.Context, sess *Session) error {
	_, err := s.db.ExecContext(ctx,
		`insert into sessions(id, token, user_id, user_agent, ip_address, expires_at, created_at)
		 values($1,$2,$3,$4,$5,$6,$7)`,
		sess.ID, sess.Token, sess.UserID, sess.UserAgent, sess.IPAddress, sess.ExpiresAt, sess.CreatedAt,
	)
	if uniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *sessionStore) FindByToken(ctx context.Context, token string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, token, user_id, coalesce(user_agent,''), coalesce(ip_address,''), expires_at, created_at
		 from sessions where token=$1`, token)
	var sess Session
	err := row.Scan(&sess.ID, &sess.Token, &sess.UserID, &sess.UserAgent, &sess.IPAddress, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

func (s *sessionStore) DeleteByToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `delete from sessions where token=$1`, token)
	return err
}

func (s *sessionStore) DeleteByUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `delete from sessions where user_id=$1`, userID)
	return err
}

// helpers ------------------------------------------------------------------

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
