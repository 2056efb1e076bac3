// Package postgres implements catalog.Repository on PostgreSQL with pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/vegasarees/storefront/internal/catalog"
	"github.com/vegasarees/storefront/pkg/database"
	apperrors "github.com/vegasarees/storefront/pkg/errors"
)

const productColumns = `id, name, price, old_price, discount, size, fabric, colour, occasion, tag, description, images, created_at`

const (
	insertProductSQL = `
		INSERT INTO products (name, price, old_price, discount, size, fabric, colour, occasion, tag, description, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	getProductSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id DESC`

	updateProductSQL = `
		UPDATE products
		SET name = $1, price = $2, old_price = $3, discount = $4, size = $5, fabric = $6,
		    colour = $7, occasion = $8, tag = $9, description = $10, images = $11
		WHERE id = $12`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	resetProductsSQL = `TRUNCATE products RESTART IDENTITY`
)

// ProductRepository implements catalog.Repository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

var _ catalog.Repository = (*ProductRepository)(nil)

// NewProductRepository creates a PostgreSQL-backed catalog. db is a
// *pgxpool.Pool in production.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts p and fills in its generated ID and creation time.
func (r *ProductRepository) Create(ctx context.Context, p *catalog.Product) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateProduct", insertProductSQL)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, insertProductSQL, writeArgs(p)...).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (_ *catalog.Product, err error) {
	ctx, end := database.TraceQuery(ctx, "GetProduct", getProductSQL)
	defer func() { end(err) }()

	p, err := scanProduct(r.db.QueryRow(ctx, getProductSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return p, nil
}

// List returns every product, newest first.
func (r *ProductRepository) List(ctx context.Context) (_ []catalog.Product, err error) {
	ctx, end := database.TraceQuery(ctx, "ListProducts", listProductsSQL)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []catalog.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

// Update overwrites every editable column of the product with p.ID.
func (r *ProductRepository) Update(ctx context.Context, p *catalog.Product) (err error) {
	ctx, end := database.TraceQuery(ctx, "UpdateProduct", updateProductSQL)
	defer func() { end(err) }()

	args := append(writeArgs(p), p.ID)
	ct, err := r.db.Exec(ctx, updateProductSQL, args...)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", strconv.FormatInt(p.ID, 10))
	}
	return nil
}

// Delete removes a product by its ID.
func (r *ProductRepository) Delete(ctx context.Context, id int64) (err error) {
	ctx, end := database.TraceQuery(ctx, "DeleteProduct", deleteProductSQL)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", strconv.FormatInt(id, 10))
	}
	return nil
}

// Reset empties the table and restarts the ID sequence.
func (r *ProductRepository) Reset(ctx context.Context) (err error) {
	ctx, end := database.TraceQuery(ctx, "ResetProducts", resetProductsSQL)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, resetProductsSQL); err != nil {
		return fmt.Errorf("reset products: %w", err)
	}
	return nil
}

func writeArgs(p *catalog.Product) []any {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return []any{
		p.Name,
		p.Price,
		p.OldPrice,
		p.Discount,
		nullable(p.Size),
		nullable(p.Fabric),
		nullable(p.Colour),
		nullable(p.Occasion),
		nullable(p.Tag),
		nullable(p.Description),
		images,
	}
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanProduct(row pgx.Row) (*catalog.Product, error) {
	var (
		p        catalog.Product
		discount *float64
	)
	var size, fabric, colour, occasion, tag, description *string
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&p.OldPrice,
		&discount,
		&size,
		&fabric,
		&colour,
		&occasion,
		&tag,
		&description,
		&p.Images,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}

	if discount != nil {
		p.Discount = *discount
	}
	p.Size = deref(size)
	p.Fabric = deref(fabric)
	p.Colour = deref(colour)
	p.Occasion = deref(occasion)
	p.Tag = deref(tag)
	p.Description = deref(description)
	if p.Images == nil {
		p.Images = []string{}
	}
	return &p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
