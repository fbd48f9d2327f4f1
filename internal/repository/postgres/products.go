package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/sebastianpd1/next-ecommerce-backend/internal/domain"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/repository"
	"github.com/sebastianpd1/next-ecommerce-backend/pkg/errors"
)

type productRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *sql.DB, logger *zap.Logger) *productRepository {
	return &productRepository{
		db:     db,
		logger: logger,
	}
}

func (r *productRepository) Upsert(ctx context.Context, p *domain.Product) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	created, err := r.upsertTx(ctx, tx, p)
	if err != nil {
		r.logger.Error("Failed to upsert product",
			zap.String("external_id", p.ExternalID),
			zap.Error(err),
		)
		return false, err
	}

	return created, tx.Commit()
}

func (r *productRepository) UpsertBatch(ctx context.Context, ps []*domain.Product) (int, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	var created, updated int
	for _, p := range ps {
		wasCreated, err := r.upsertTx(ctx, tx, p)
		if err != nil {
			r.logger.Error("Failed to upsert product in batch",
				zap.String("external_id", p.ExternalID),
				zap.Error(err),
			)
			return 0, 0, err
		}
		if wasCreated {
			created++
		} else {
			updated++
		}
	}

	return created, updated, tx.Commit()
}

func (r *productRepository) upsertTx(ctx context.Context, tx *sql.Tx, p *domain.Product) (bool, error) {
	// Variant-bearing entries derive top-level stock server-side,
	// regardless of what the payload claims.
	if p.HasVariants() {
		total := 0
		for _, v := range p.Variants {
			if v.Stock > 0 {
				total += v.Stock
			}
		}
		p.Stock = total
	}

	var created bool
	err := tx.QueryRowContext(ctx, `
		INSERT INTO products (
			external_id, title, model, part_number, brand,
			price, sku, stock, description, photos
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (external_id) DO UPDATE SET
			title = EXCLUDED.title,
			model = EXCLUDED.model,
			part_number = EXCLUDED.part_number,
			brand = EXCLUDED.brand,
			price = EXCLUDED.price,
			sku = EXCLUDED.sku,
			stock = EXCLUDED.stock,
			description = EXCLUDED.description,
			photos = EXCLUDED.photos,
			updated_at = now()
		RETURNING id, (xmax = 0)
	`,
		p.ExternalID, p.Title, p.Model, p.PartNumber, p.Brand,
		p.Price, p.SKU, p.Stock, p.Description, pq.Array(p.Photos),
	).Scan(&p.ID, &created)
	if err != nil {
		return false, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM product_variants WHERE product_id = $1`, p.ID); err != nil {
		return false, err
	}
	for _, v := range p.Variants {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO product_variants (product_id, sku, color, stock)
			VALUES ($1, $2, $3, $4)
		`, p.ID, v.SKU, v.Color, v.Stock); err != nil {
			return false, err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM product_compatibles WHERE product_id = $1`, p.ID); err != nil {
		return false, err
	}
	for _, c := range p.Compatibles {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO product_compatibles (product_id, sku, brand, printer, category)
			VALUES ($1, $2, $3, $4, $5)
		`, p.ID, c.SKU, c.Brand, c.Printer, c.Category); err != nil {
			return false, err
		}
	}

	return created, nil
}

func (r *productRepository) List(ctx context.Context, f repository.ProductFilter) ([]*domain.Product, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 12
	}
	if limit > 5000 {
		limit = 5000
	}

	query := `
		SELECT id, external_id, title, model, part_number, brand,
		       price, sku, stock, description, photos, created_at, updated_at
		FROM products
		WHERE 1=1
	`
	args := []interface{}{}

	if f.SKU != "" {
		args = append(args, f.SKU)
		query += fmt.Sprintf(` AND sku = $%d`, len(args))
	}
	if f.PartNumber != "" {
		args = append(args, f.PartNumber)
		query += fmt.Sprintf(` AND part_number = $%d`, len(args))
	}
	if f.PrinterExternalID != "" {
		args = append(args, f.PrinterExternalID)
		query += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM product_compatibles pc
			WHERE pc.product_id = products.id AND pc.printer = $%d
		)`, len(args))
	}
	if !f.IncludeOutOfStock {
		query += ` AND stock > 0`
	}

	query += fmt.Sprintf(` ORDER BY updated_at DESC LIMIT %d`, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query products", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range products {
		if err := r.loadRelations(ctx, p); err != nil {
			return nil, err
		}
	}
	return products, nil
}

func (r *productRepository) GetByExternalID(ctx context.Context, externalID string, includeOutOfStock bool) (*domain.Product, error) {
	query := `
		SELECT id, external_id, title, model, part_number, brand,
		       price, sku, stock, description, photos, created_at, updated_at
		FROM products
		WHERE external_id = $1
	`
	if !includeOutOfStock {
		query += ` AND stock > 0`
	}

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, externalID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &errors.ErrNotFound{Resource: "product", ID: externalID}
		}
		r.logger.Error("Failed to get product", zap.Error(err))
		return nil, err
	}

	if err := r.loadRelations(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *productRepository) DeleteByExternalID(ctx context.Context, externalID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE external_id = $1`, externalID)
	if err != nil {
		r.logger.Error("Failed to delete product", zap.Error(err))
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &errors.ErrNotFound{Resource: "product", ID: externalID}
	}
	return nil
}

func (r *productRepository) PriceBySKU(ctx context.Context, sku string) (float64, error) {
	var price float64
	err := r.db.QueryRowContext(ctx, `
		SELECT p.price FROM products p WHERE p.sku = $1
		UNION
		SELECT p.price FROM products p
		JOIN product_variants v ON v.product_id = p.id
		WHERE v.sku = $1
		LIMIT 1
	`, sku).Scan(&price)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, &errors.ErrUnknownSKU{SKU: sku}
		}
		return 0, err
	}
	return price, nil
}

func (r *productRepository) DeductStock(ctx context.Context, sku string, qty int) (bool, error) {
	if sku == "" || qty <= 0 {
		return false, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	// Variant SKUs first: decrement the variant, then recompute the parent
	// counter as the variant sum in the same transaction.
	var productID int64
	err = tx.QueryRowContext(ctx, `
		UPDATE product_variants
		SET stock = GREATEST(stock - $2, 0)
		WHERE sku = $1
		RETURNING product_id
	`, sku, qty).Scan(&productID)
	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET
				stock = (SELECT COALESCE(SUM(stock), 0) FROM product_variants WHERE product_id = $1),
				updated_at = now()
			WHERE id = $1
		`, productID); err != nil {
			return false, err
		}
		return true, tx.Commit()
	case err != sql.ErrNoRows:
		return false, err
	}

	// No variant matched: treat the SKU as a top-level counter (kits and
	// single-sku entries). GREATEST keeps the floor at zero.
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock = GREATEST(stock - $2, 0), updated_at = now()
		WHERE sku = $1
		  AND NOT EXISTS (SELECT 1 FROM product_variants v WHERE v.product_id = products.id)
	`, sku, qty)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}
	return true, tx.Commit()
}

func (r *productRepository) loadRelations(ctx context.Context, p *domain.Product) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sku, color, stock FROM product_variants
		WHERE product_id = $1 ORDER BY id
	`, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(&v.SKU, &v.Color, &v.Stock); err != nil {
			return err
		}
		p.Variants = append(p.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	crows, err := r.db.QueryContext(ctx, `
		SELECT sku, brand, printer, category FROM product_compatibles
		WHERE product_id = $1 ORDER BY id
	`, p.ID)
	if err != nil {
		return err
	}
	defer crows.Close()
	for crows.Next() {
		var c domain.Compatible
		if err := crows.Scan(&c.SKU, &c.Brand, &c.Printer, &c.Category); err != nil {
			return err
		}
		p.Compatibles = append(p.Compatibles, c)
	}
	return crows.Err()
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.ExternalID,
		&p.Title,
		&p.Model,
		&p.PartNumber,
		&p.Brand,
		&p.Price,
		&p.SKU,
		&p.Stock,
		&p.Description,
		pq.Array(&p.Photos),
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
