package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

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

func (s *PGStore) Categories() CategoryStore { return &categoryStore{db: s.db} }
func (s *PGStore) Products() ProductStore    { return &productStore{db: s.db} }
func (s *PGStore) Settings() SettingStore    { return &settingStore{db: s.db} }

func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Category store -----------------------------------------------------------

type categoryStore struct{ db *sql.DB }

const categoryColumns = `id, name, slug, description, parent_id, position, is_active, created_at, updated_at`

func (s *categoryStore) Create(ctx context.Context, c *Category) error {
	_, err := s.db.ExecContext(ctx,
		`insert into categories(id, name, slug, description, parent_id, position, is_active, created_at, updated_at)
		 values($1,$2,$3,$4,nullif($5,''),$6,$7,$8,$9)`,
		c.ID, c.Name, c.Slug, c.Description, c.ParentID, c.Position, c.IsActive, c.CreatedAt, c.UpdatedAt,
	)
	if uniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func scanCategory(row interface{ Scan(...any) error }) (*Category, error) {
	var (
		c        Category
		parentID sql.NullString
	)
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &parentID,
		&c.Position, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c.ParentID = parentID.String
	return &c, nil
}

func (s *categoryStore) Find(ctx context.Context, id string) (*Category, error) {
	return scanCategory(s.db.QueryRowContext(ctx,
		`select `+categoryColumns+` from categories where id=$1`, id))
}

func (s *categoryStore) FindBySlug(ctx context.Context, slug string) (*Category, error) {
	return scanCategory(s.db.QueryRowContext(ctx,
		`select `+categoryColumns+` from categories where slug=$1`, slug))
}

func (s *categoryStore) List(ctx context.Context) ([]*Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+categoryColumns+` from categories order by position, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (s *categoryStore) ChildIDs(ctx context.Context, parentID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id from categories where parent_id=$1`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *categoryStore) Update(ctx context.Context, c *Category) error {
	res, err := s.db.ExecContext(ctx,
		`update categories set name=$2, slug=$3, description=$4, parent_id=nullif($5,''),
		 position=$6, is_active=$7, updated_at=$8 where id=$1`,
		c.ID, c.Name, c.Slug, c.Description, c.ParentID, c.Position, c.IsActive, c.UpdatedAt,
	)
	if uniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *categoryStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from categories where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Product store ------------------------------------------------------------

type productStore struct{ db *sql.DB }

const productColumns = `id, sku, name, slug, description, category_id, price, stock, is_active, created_at, updated_at`

func (s *productStore) Create(ctx context.Context, p *Product) error {
	_, err := s.db.ExecContext(ctx,
		`insert into products(id, sku, name, slug, description, category_id, price, stock, is_active, created_at, updated_at)
		 values($1,$2,$3,$4,$5,nullif($6,''),$7,$8,$9,$10,$11)`,
		p.ID, p.SKU, p.Name, p.Slug, p.Description, p.CategoryID, p.Price, p.Stock, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if uniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func scanProduct(row interface{ Scan(...any) error }) (*Product, error) {
	var (
		p          Product
		categoryID sql.NullString
	)
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Slug, &p.Description, &categoryID,
		&p.Price, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.CategoryID = categoryID.String
	return &p, nil
}

func (s *productStore) Find(ctx context.Context, id string) (*Product, error) {
	return scanProduct(s.db.QueryRowContext(ctx,
		`select `+productColumns+` from products where id=$1`, id))
}

func (s *productStore) FindBySKU(ctx context.Context, sku string) (*Product, error) {
	return scanProduct(s.db.QueryRowContext(ctx,
		`select `+productColumns+` from products where sku=$1`, sku))
}

func (s *productStore) List(ctx context.Context, categoryID string) ([]*Product, error) {
	query := `select ` + productColumns + ` from products order by created_at`
	args := []any{}
	if categoryID != "" {
		query = `select ` + productColumns + ` from products where category_id=$1 order by created_at`
		args = append(args, categoryID)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (s *productStore) CountByCategory(ctx context.Context, categoryID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`select count(*) from products where category_id=$1`, categoryID).Scan(&n)
	return n, err
}

func (s *productStore) Update(ctx context.Context, p *Product) error {
	res, err := s.db.ExecContext(ctx,
		`update products set sku=$2, name=$3, slug=$4, description=$5, category_id=nullif($6,''),
		 price=$7, stock=$8, is_active=$9, updated_at=$10 where id=$1`,
		p.ID, p.SKU, p.Name, p.Slug, p.Description, p.CategoryID, p.Price, p.Stock, p.IsActive, p.UpdatedAt,
	)
	if uniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *productStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from products where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Setting store ------------------------------------------------------------

type settingStore struct{ db *sql.DB }

func (s *settingStore) Get(ctx context.Context, key string) (*Setting, error) {
	row := s.db.QueryRowContext(ctx,
		`select key, value, updated_at from settings where key=$1`, key)
	var setting Setting
	var raw []byte
	if err := row.Scan(&setting.Key, &raw, &setting.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	setting.Value = json.RawMessage(raw)
	return &setting, nil
}

func (s *settingStore) List(ctx context.Context) ([]*Setting, error) {
	rows, err := s.db.QueryContext(ctx,
		`select key, value, updated_at from settings order by key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*Setting
	for rows.Next() {
		var setting Setting
		var raw []byte
		if err := rows.Scan(&setting.Key, &raw, &setting.UpdatedAt); err != nil {
			return nil, err
		}
		setting.Value = json.RawMessage(raw)
		list = append(list, &setting)
	}
	return list, rows.Err()
}

func (s *settingStore) Upsert(ctx context.Context, key string, value json.RawMessage) (*Setting, error) {
	row := s.db.QueryRowContext(ctx,
		`insert into settings(key, value, updated_at) values($1,$2,now())
		 on conflict (key) do update set value=excluded.value, updated_at=now()
		 returning key, value, updated_at`, key, []byte(value))
	var setting Setting
	var raw []byte
	if err := row.Scan(&setting.Key, &raw, &setting.UpdatedAt); err != nil {
		return nil, err
	}
	setting.Value = json.RawMessage(raw)
	return &setting, nil
}

func (s *settingStore) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `delete from settings where key=$1`, key)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// helpers ------------------------------------------------------------------

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
