package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/tramhuong/internal/catalog"
	"github.com/dukerupert/tramhuong/internal/domain"
)

// ProductRepository implements catalog.Repository.
type ProductRepository struct {
	db DBTX
}

// Compile-time check that ProductRepository implements catalog.Repository.
var _ catalog.Repository = (*ProductRepository)(nil)

func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id::text, name, name_en, description, description_en, price, original_price,
	image_url, additional_images, category, stock, featured, size_options, specifications,
	created_at, updated_at`

func (r *ProductRepository) List(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE ($1::boolean IS NULL OR featured = $1)
		  AND ($2 = '' OR category = $2)
		ORDER BY created_at DESC, name`,
		f.Featured, f.Category,
	)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []catalog.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*catalog.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, productNotFound("product.get")
	}

	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, productNotFound("product.get")
	}
	return p, err
}

func (r *ProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	args, err := productArgs(p)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO products (id, name, name_en, description, description_en, price, original_price,
			image_url, additional_images, category, stock, featured, size_options, specifications,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		args...,
	)
	if isUniqueViolation(err) {
		return domain.Conflict("product.create", "product already exists")
	}
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, p *catalog.Product) error {
	args, err := productArgs(p)
	if err != nil {
		return err
	}
	// created_at is immutable; drop it from the argument list.
	args = append(args[:14], args[15])
	tag, err := r.db.Exec(ctx, `
		UPDATE products SET
			name = $2, name_en = $3, description = $4, description_en = $5, price = $6,
			original_price = $7, image_url = $8, additional_images = $9, category = $10,
			stock = $11, featured = $12, size_options = $13, specifications = $14,
			updated_at = $15
		WHERE id = $1`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return productNotFound("product.update")
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return productNotFound("product.delete")
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return productNotFound("product.delete")
	}
	return nil
}

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func productArgs(p *catalog.Product) ([]any, error) {
	images, err := json.Marshal(nonNil(p.AdditionalImages))
	if err != nil {
		return nil, fmt.Errorf("marshal additional images: %w", err)
	}
	sizes, err := json.Marshal(nonNil(p.SizeOptions))
	if err != nil {
		return nil, fmt.Errorf("marshal size options: %w", err)
	}
	specs := p.Specifications
	if specs == nil {
		specs = map[string]string{}
	}
	specJSON, err := json.Marshal(specs)
	if err != nil {
		return nil, fmt.Errorf("marshal specifications: %w", err)
	}

	return []any{
		p.ID, p.Name, p.NameEN, p.Description, p.DescriptionEN, p.Price, p.OriginalPrice,
		p.ImageURL, images, p.Category, p.Stock, p.Featured, sizes, specJSON,
		p.CreatedAt, p.UpdatedAt,
	}, nil
}

func scanProduct(row pgx.Row) (*catalog.Product, error) {
	var p catalog.Product
	var images, sizes, specs []byte
	err := row.Scan(
		&p.ID, &p.Name, &p.NameEN, &p.Description, &p.DescriptionEN, &p.Price, &p.OriginalPrice,
		&p.ImageURL, &images, &p.Category, &p.Stock, &p.Featured, &sizes, &specs,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	if err := json.Unmarshal(images, &p.AdditionalImages); err != nil {
		return nil, fmt.Errorf("decode additional images: %w", err)
	}
	if err := json.Unmarshal(sizes, &p.SizeOptions); err != nil {
		return nil, fmt.Errorf("decode size options: %w", err)
	}
	if err := json.Unmarshal(specs, &p.Specifications); err != nil {
		return nil, fmt.Errorf("decode specifications: %w", err)
	}
	return &p, nil
}

func productNotFound(op string) error {
	return &domain.Error{Code: domain.ENOTFOUND, Op: op, Message: domain.ErrProductNotFound.Message}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
