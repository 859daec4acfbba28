package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/studio-booking/internal/database"
	"github.com/iliyamo/studio-booking/internal/model"
)

// CatalogRepo provides CRUD for catalog_items and categories.
type CatalogRepo struct {
	db *sql.DB
}

func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

const itemColumns = `id, kind, category_id, name, description, price_cents, duration_min, image_url, metadata, is_active, created_at, updated_at`

func scanItem(rs rowScanner) (model.CatalogItem, error) {
	var (
		it    model.CatalogItem
		kind  string
		cat   sql.NullInt64
		desc  sql.NullString
		image sql.NullString
		meta  []byte
	)
	err := rs.Scan(&it.ID, &kind, &cat, &it.Name, &desc, &it.PriceCents, &it.DurationMin,
		&image, &meta, &it.IsActive, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return model.CatalogItem{}, err
	}
	it.Kind = model.ItemKind(kind)
	if cat.Valid {
		id := uint64(cat.Int64)
		it.CategoryID = &id
	}
	it.Description = desc.String
	it.ImageURL = image.String
	if len(meta) > 0 {
		it.Metadata = append([]byte(nil), meta...)
	}
	return it, nil
}

// ListByKind returns items of one kind.  Inactive items are only included
// when includeInactive is set (admin views).
func (r *CatalogRepo) ListByKind(ctx context.Context, kind model.ItemKind, categoryID *uint64, includeInactive bool) ([]model.CatalogItem, error) {
	q := `SELECT ` + itemColumns + ` FROM catalog_items WHERE kind = ?`
	args := []any{string(kind)}
	if !includeInactive {
		q += ` AND is_active = 1`
	}
	if categoryID != nil {
		q += ` AND category_id = ?`
		args = append(args, *categoryID)
	}
	q += ` ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.CatalogItem, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// GetByID returns one item or ErrNotFound.
func (r *CatalogRepo) GetByID(ctx context.Context, id uint64) (model.CatalogItem, error) {
	it, err := scanItem(r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM catalog_items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.CatalogItem{}, ErrNotFound
	}
	return it, err
}

func nullableMeta(it *model.CatalogItem) any {
	if len(it.Metadata) == 0 {
		return nil
	}
	return []byte(it.Metadata)
}

// Create inserts an item and fills its id.
func (r *CatalogRepo) Create(ctx context.Context, it *model.CatalogItem) error {
	const q = `INSERT INTO catalog_items (kind, category_id, name, description, price_cents, duration_min, image_url, metadata, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, string(it.Kind), it.CategoryID, it.Name, it.Description,
		it.PriceCents, it.DurationMin, it.ImageURL, nullableMeta(it), it.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = uint64(id)
	return nil
}

// Update overwrites the editable fields of an item of the given kind.
func (r *CatalogRepo) Update(ctx context.Context, it *model.CatalogItem) error {
	const q = `UPDATE catalog_items SET category_id = ?, name = ?, description = ?, price_cents = ?, duration_min = ?,
		image_url = ?, metadata = ?, is_active = ? WHERE id = ? AND kind = ?`
	res, err := r.db.ExecContext(ctx, q, it.CategoryID, it.Name, it.Description, it.PriceCents, it.DurationMin,
		it.ImageURL, nullableMeta(it), it.IsActive, it.ID, string(it.Kind))
	if err != nil {
		return err
	}
	return notFoundIfNone(res)
}

// Delete removes an item of the given kind.
func (r *CatalogRepo) Delete(ctx context.Context, kind model.ItemKind, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM catalog_items WHERE id = ? AND kind = ?`, id, string(kind))
	if err != nil {
		return err
	}
	return notFoundIfNone(res)
}

// ListCategories returns the categories of a kind, or all of them when kind
// is empty.
func (r *CatalogRepo) ListCategories(ctx context.Context, kind model.ItemKind) ([]model.Category, error) {
	q := `SELECT id, kind, name, slug, created_at FROM categories`
	var args []any
	if kind != "" {
		q += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	q += ` ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Category, 0)
	for rows.Next() {
		var (
			c    model.Category
			kind string
		)
		if err := rows.Scan(&c.ID, &kind, &c.Name, &c.Slug, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Kind = model.ItemKind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateCategory inserts a category.  A duplicate slug within the kind is
// ErrConflict.
func (r *CatalogRepo) CreateCategory(ctx context.Context, c *model.Category) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO categories (kind, name, slug) VALUES (?, ?, ?)`,
		string(c.Kind), c.Name, c.Slug)
	if err != nil {
		if database.IsDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// DeleteCategory removes a category; its items keep existing uncategorised.
func (r *CatalogRepo) DeleteCategory(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return notFoundIfNone(res)
}

func notFoundIfNone(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
