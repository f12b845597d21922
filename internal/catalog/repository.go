// Package catalog is the product/SKU read and admin surface, backed
// by Postgres.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/maiams/NomaCardHouse/internal/cart"
	"github.com/maiams/NomaCardHouse/internal/domain"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrSKUNotFound      = errors.New("sku not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrDuplicateSlug    = errors.New("slug already in use")
	ErrDuplicateSKUCode = errors.New("sku code already in use")
	// ErrDuplicateSKUVariant means an active SKU already exists for the
	// same (product, condition, language, foil) combination.
	ErrDuplicateSKUVariant = errors.New("sku variant already exists")
)

// ListFilter narrows the storefront product listing. Zero values mean
// "no filter".
type ListFilter struct {
	Query        string
	CategorySlug string
	Rarity       domain.Rarity
	Featured     bool
	Limit        int
	Offset       int

	// IncludeInactive shows soft-deleted rows; admin listings only.
	IncludeInactive bool
}

const defaultPageSize = 24

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const productColumns = `p.id, p.name, p.slug, p.description, p.brand, p.set_name, p.collector_number,
	p.rarity, p.category_id, p.featured, p.active, p.created_at, p.updated_at`

func scanProduct(row interface{ Scan(...any) error }, p *domain.Product) error {
	return row.Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Brand,
		&p.SetName,
		&p.CollectorNumber,
		&p.Rarity,
		&p.CategoryID,
		&p.Featured,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

// List returns active products matching the filter, each with its
// lowest effective SKU price and an in-stock flag aggregated over its
// active SKUs.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]domain.ProductSummary, error) {
	var (
		conds []string
		args  []any
	)
	if !filter.IncludeInactive {
		conds = append(conds, "p.active = TRUE")
	} else {
		conds = append(conds, "TRUE")
	}

	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d OR p.brand ILIKE $%d OR p.set_name ILIKE $%d OR p.collector_number ILIKE $%d)", n, n, n, n, n))
	}
	if filter.CategorySlug != "" {
		args = append(args, filter.CategorySlug)
		conds = append(conds, fmt.Sprintf("p.category_id = (SELECT id FROM categories WHERE slug = $%d)", len(args)))
	}
	if filter.Rarity != "" {
		args = append(args, filter.Rarity)
		conds = append(conds, fmt.Sprintf("p.rarity = $%d", len(args)))
	}
	if filter.Featured {
		conds = append(conds, "p.featured = TRUE")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = defaultPageSize
	}
	args = append(args, limit)
	limitPos := len(args)
	args = append(args, filter.Offset)
	offsetPos := len(args)

	query := fmt.Sprintf(`
		SELECT %s,
		       COALESCE(MIN(LEAST(s.price_cents, COALESCE(s.sale_price_cents, s.price_cents))), 0) AS lowest_price_cents,
		       COALESCE(BOOL_OR(i.on_hand - i.reserved > 0), FALSE) AS in_stock
		FROM products p
		LEFT JOIN skus s ON s.product_id = p.id AND s.active = TRUE
		LEFT JOIN inventory i ON i.sku_id = s.id
		WHERE %s
		GROUP BY p.id
		ORDER BY p.featured DESC, p.name ASC
		LIMIT $%d OFFSET $%d`,
		productColumns, strings.Join(conds, " AND "), limitPos, offsetPos)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []domain.ProductSummary
	for rows.Next() {
		var s domain.ProductSummary
		if err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Slug,
			&s.Description,
			&s.Brand,
			&s.SetName,
			&s.CollectorNumber,
			&s.Rarity,
			&s.CategoryID,
			&s.Featured,
			&s.Active,
			&s.CreatedAt,
			&s.UpdatedAt,
			&s.LowestPriceCents,
			&s.InStock,
		); err != nil {
			return nil, fmt.Errorf("scan product summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetBySlug returns an active product with its active SKUs and their
// available quantities.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*domain.ProductDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM products p WHERE p.slug = $1 AND p.active = TRUE`, productColumns)

	var detail domain.ProductDetail
	err := scanProduct(r.db.QueryRowContext(ctx, query, slug), &detail.Product)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by slug: %w", err)
	}

	skuQuery := `
		SELECT s.id, s.product_id, s.code, s.condition, s.language, s.foil,
		       s.price_cents, s.sale_price_cents, s.currency, s.active, s.created_at, s.updated_at,
		       COALESCE(GREATEST(i.on_hand - i.reserved, 0), 0) AS available
		FROM skus s
		LEFT JOIN inventory i ON i.sku_id = s.id
		WHERE s.product_id = $1 AND s.active = TRUE
		ORDER BY s.condition, s.language, s.foil`

	rows, err := r.db.QueryContext(ctx, skuQuery, detail.ID)
	if err != nil {
		return nil, fmt.Errorf("query product skus: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sa domain.SKUAvailability
		if err := rows.Scan(
			&sa.ID,
			&sa.ProductID,
			&sa.Code,
			&sa.Condition,
			&sa.Language,
			&sa.Foil,
			&sa.PriceCents,
			&sa.SalePriceCents,
			&sa.Currency,
			&sa.Active,
			&sa.CreatedAt,
			&sa.UpdatedAt,
			&sa.Available,
		); err != nil {
			return nil, fmt.Errorf("scan sku: %w", err)
		}
		detail.SKUs = append(detail.SKUs, sa)
	}
	return &detail, rows.Err()
}

// GetSKUDetail returns an active SKU and its product, for the cart to
// snapshot. Inactive SKUs and SKUs of inactive products are invisible
// here.
func (r *Repository) GetSKUDetail(ctx context.Context, skuID uuid.UUID) (*cart.SKUDetail, error) {
	query := fmt.Sprintf(`
		SELECT s.id, s.product_id, s.code, s.condition, s.language, s.foil,
		       s.price_cents, s.sale_price_cents, s.currency, s.active, s.created_at, s.updated_at,
		       %s
		FROM skus s
		JOIN products p ON p.id = s.product_id
		WHERE s.id = $1 AND s.active = TRUE AND p.active = TRUE`, productColumns)

	var detail cart.SKUDetail
	row := r.db.QueryRowContext(ctx, query, skuID)
	err := row.Scan(
		&detail.SKU.ID,
		&detail.SKU.ProductID,
		&detail.SKU.Code,
		&detail.SKU.Condition,
		&detail.SKU.Language,
		&detail.SKU.Foil,
		&detail.SKU.PriceCents,
		&detail.SKU.SalePriceCents,
		&detail.SKU.Currency,
		&detail.SKU.Active,
		&detail.SKU.CreatedAt,
		&detail.SKU.UpdatedAt,
		&detail.Product.ID,
		&detail.Product.Name,
		&detail.Product.Slug,
		&detail.Product.Description,
		&detail.Product.Brand,
		&detail.Product.SetName,
		&detail.Product.CollectorNumber,
		&detail.Product.Rarity,
		&detail.Product.CategoryID,
		&detail.Product.Featured,
		&detail.Product.Active,
		&detail.Product.CreatedAt,
		&detail.Product.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cart.ErrSKUNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query sku detail: %w", err)
	}
	return &detail, nil
}

// GetSnapshot captures the catalog fields an order item freezes at
// purchase time. Unlike GetSKUDetail this sees inactive rows, so a
// checkout racing an admin deactivation still completes.
func (r *Repository) GetSnapshot(ctx context.Context, skuID uuid.UUID) (*domain.ProductSnapshot, error) {
	query := `
		SELECT p.name, s.code, s.condition, s.language, s.foil, p.set_name, p.rarity
		FROM skus s
		JOIN products p ON p.id = s.product_id
		WHERE s.id = $1`

	var snap domain.ProductSnapshot
	err := r.db.QueryRowContext(ctx, query, skuID).Scan(
		&snap.ProductName,
		&snap.SKUCode,
		&snap.Condition,
		&snap.Language,
		&snap.Foil,
		&snap.SetName,
		&snap.Rarity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSKUNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query sku snapshot: %w", err)
	}
	return &snap, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	query := `SELECT id, name, slug, created_at, updated_at FROM categories ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- admin writes ---

func (r *Repository) CreateCategory(ctx context.Context, c *domain.Category) error {
	query := `INSERT INTO categories (id, name, slug, created_at, updated_at)
	          VALUES ($1, $2, $3, NOW(), NOW())
	          RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, c.ID, c.Name, c.Slug).Scan(&c.CreatedAt, &c.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateSlug
	}
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *Repository) UpdateCategory(ctx context.Context, c *domain.Category) error {
	query := `UPDATE categories SET name = $2, slug = $3, updated_at = NOW()
	          WHERE id = $1
	          RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, c.ID, c.Name, c.Slug).Scan(&c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCategoryNotFound
	}
	if isUniqueViolation(err) {
		return ErrDuplicateSlug
	}
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// DeleteCategory removes the category; products referencing it become
// uncategorized (FK is ON DELETE SET NULL).
func (r *Repository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *Repository) CreateProduct(ctx context.Context, p *domain.Product) error {
	query := `INSERT INTO products
	          (id, name, slug, description, brand, set_name, collector_number, rarity, category_id, featured, active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	          RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		p.ID, p.Name, p.Slug, p.Description, p.Brand, p.SetName, p.CollectorNumber,
		p.Rarity, p.CategoryID, p.Featured, p.Active,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateSlug
	}
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *Repository) UpdateProduct(ctx context.Context, p *domain.Product) error {
	query := `UPDATE products
	          SET name = $2, slug = $3, description = $4, brand = $5, set_name = $6,
	              collector_number = $7, rarity = $8, category_id = $9, featured = $10,
	              active = $11, updated_at = NOW()
	          WHERE id = $1
	          RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		p.ID, p.Name, p.Slug, p.Description, p.Brand, p.SetName, p.CollectorNumber,
		p.Rarity, p.CategoryID, p.Featured, p.Active,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrProductNotFound
	}
	if isUniqueViolation(err) {
		return ErrDuplicateSlug
	}
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// DeleteProduct soft-deletes: the product and its SKUs disappear from
// the storefront but order snapshots keep referring to valid rows.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE products SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrProductNotFound
	}

	if _, err := tx.ExecContext(ctx, `UPDATE skus SET active = FALSE, updated_at = NOW() WHERE product_id = $1`, id); err != nil {
		return fmt.Errorf("deactivate skus: %w", err)
	}
	return tx.Commit()
}

// CreateSKU inserts the SKU together with a zeroed inventory row.
func (r *Repository) CreateSKU(ctx context.Context, s *domain.SKU, lowStockThreshold int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO skus
	          (id, product_id, code, condition, language, foil, price_cents, sale_price_cents, currency, active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	          RETURNING created_at, updated_at`

	err = tx.QueryRowContext(ctx, query,
		s.ID, s.ProductID, s.Code, s.Condition, s.Language, s.Foil,
		s.PriceCents, s.SalePriceCents, s.Currency, s.Active,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if isUniqueViolationOn(err, "uq_skus_variant") {
		return ErrDuplicateSKUVariant
	}
	if isUniqueViolation(err) {
		return ErrDuplicateSKUCode
	}
	if isForeignKeyViolation(err) {
		return ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("insert sku: %w", err)
	}

	invQuery := `INSERT INTO inventory (sku_id, on_hand, reserved, low_stock_threshold, updated_at)
	             VALUES ($1, 0, 0, $2, NOW())`
	if _, err := tx.ExecContext(ctx, invQuery, s.ID, lowStockThreshold); err != nil {
		return fmt.Errorf("insert inventory row: %w", err)
	}
	return tx.Commit()
}

func (r *Repository) UpdateSKU(ctx context.Context, s *domain.SKU) error {
	query := `UPDATE skus
	          SET code = $2, condition = $3, language = $4, foil = $5,
	              price_cents = $6, sale_price_cents = $7, currency = $8, active = $9, updated_at = NOW()
	          WHERE id = $1
	          RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		s.ID, s.Code, s.Condition, s.Language, s.Foil,
		s.PriceCents, s.SalePriceCents, s.Currency, s.Active,
	).Scan(&s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSKUNotFound
	}
	if isUniqueViolationOn(err, "uq_skus_variant") {
		return ErrDuplicateSKUVariant
	}
	if isUniqueViolation(err) {
		return ErrDuplicateSKUCode
	}
	if err != nil {
		return fmt.Errorf("update sku: %w", err)
	}
	return nil
}

// DeleteSKU soft-deletes so order snapshots keep a valid row to point
// at. The inventory row stays; reserved units drain via cart expiry.
func (r *Repository) DeleteSKU(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE skus SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate sku: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrSKUNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isUniqueViolationOn(err error, constraint string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == constraint
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
