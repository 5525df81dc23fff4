package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/travel-booking/internal/model"
)

// ProductRepo reads and writes catalog products in MySQL.  Category
// specific details are stored as JSON in products.details and decoded
// according to products.category, so a row can never yield a product with
// details of another category.
type ProductRepo struct {
	db *sql.DB
}

// NewProductRepo returns a ProductRepo bound to db.
func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

const productColumns = `id, name, category, location, original_price, sale_price, rating, image_url, includes, details, is_active`

// GetProduct returns the product with the given id.  Inactive products are
// returned too; callers decide whether they can be quoted.  A missing row
// yields model.ErrProductNotFound.
func (r *ProductRepo) GetProduct(ctx context.Context, id string) (model.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Product{}, fmt.Errorf("%w: %s", model.ErrProductNotFound, id)
	}
	return p, err
}

// SearchProducts returns one page of active products matching q, ordered
// by rating (best first) and then id for a stable order.
func (r *ProductRepo) SearchProducts(ctx context.Context, q model.ProductSearchQuery) (model.ProductPage, error) {
	q = q.Normalize()
	where := []string{"is_active = TRUE"}
	args := []any{}
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(q.Category))
	}
	if q.Location != "" {
		where = append(where, "LOWER(location) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Location)+"%")
	}
	if q.Keyword != "" {
		where = append(where, "LOWER(name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Keyword)+"%")
	}
	cond := strings.Join(where, " AND ")

	page := model.ProductPage{Items: []model.Product{}, Page: q.Page, PageSize: q.PageSize}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE `+cond, args...).Scan(&page.Total); err != nil {
		return model.ProductPage{}, err
	}
	if page.Total == 0 {
		return page, nil
	}

	dataArgs := append(append([]any{}, args...), q.PageSize, q.Offset())
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE `+cond+` ORDER BY rating DESC, id ASC LIMIT ? OFFSET ?`,
		dataArgs...)
	if err != nil {
		return model.ProductPage{}, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return model.ProductPage{}, err
		}
		page.Items = append(page.Items, p)
	}
	if err := rows.Err(); err != nil {
		return model.ProductPage{}, err
	}
	return page, nil
}

// Upsert inserts or replaces a catalog product.  Catalog management lives
// outside the booking core; this is used for seeding and imports.
func (r *ProductRepo) Upsert(ctx context.Context, p model.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	includes, err := json.Marshal(nonNil(p.Includes))
	if err != nil {
		return err
	}
	details, err := json.Marshal(p.Detail())
	if err != nil {
		return err
	}
	const q = `INSERT INTO products (` + productColumns + `)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
               ON DUPLICATE KEY UPDATE
                   name = VALUES(name), category = VALUES(category), location = VALUES(location),
                   original_price = VALUES(original_price), sale_price = VALUES(sale_price),
                   rating = VALUES(rating), image_url = VALUES(image_url), includes = VALUES(includes),
                   details = VALUES(details), is_active = VALUES(is_active)`
	_, err = r.db.ExecContext(ctx, q,
		p.ID, p.Name, string(p.Category()), p.Location, p.OriginalPrice, p.SalePrice,
		p.Rating, p.ImageURL, includes, details, p.Active)
	return err
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(s rowScanner) (model.Product, error) {
	var (
		p                 model.Product
		category          string
		includes, details []byte
	)
	if err := s.Scan(&p.ID, &p.Name, &category, &p.Location, &p.OriginalPrice, &p.SalePrice,
		&p.Rating, &p.ImageURL, &includes, &details, &p.Active); err != nil {
		return model.Product{}, err
	}
	if len(includes) > 0 {
		if err := json.Unmarshal(includes, &p.Includes); err != nil {
			return model.Product{}, fmt.Errorf("product %s: decode includes: %w", p.ID, err)
		}
	}
	detail, err := model.DecodeDetail(model.Category(category), details)
	if err != nil {
		return model.Product{}, fmt.Errorf("product %s: %w", p.ID, err)
	}
	return model.NewProduct(p, detail)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
