package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"catalog-admin/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, id uuid.UUID, mutate func(*domain.Product) error) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ExistsBySKU(ctx context.Context, sku string) (bool, error)
	List(ctx context.Context, filter domain.ProductFilter, page domain.PageRequest) ([]*domain.Product, int, error)
	ListLowStock(ctx context.Context, threshold int) ([]*domain.Product, error)
	ListMovements(ctx context.Context, productID uuid.UUID) ([]*domain.StockMovement, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productSelect = `
	SELECT p.id, p.name, p.description, p.base_price, p.sku, p.stock_quantity,
	       p.min_stock_level, p.is_customizable, p.customization_options, p.is_active,
	       p.tags, p.category_id, p.created_at, p.updated_at,
	       c.id, c.name, c.description, c.image_url, c.is_active, c.created_at, c.updated_at
	FROM products p
	JOIN categories c ON c.id = p.category_id
`

// productScanner decodes product rows joined with their category. It keeps a
// pgtype map for decoding TEXT[] and is not safe for concurrent use.
type productScanner struct {
	types *pgtype.Map
}

func newProductScanner() *productScanner {
	return &productScanner{types: pgtype.NewMap()}
}

func (s *productScanner) scan(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	category := &domain.Category{}
	var options []byte

	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.BasePrice,
		&product.SKU,
		&product.StockQuantity,
		&product.MinStockLevel,
		&product.IsCustomizable,
		&options,
		&product.IsActive,
		s.types.SQLScanner(&product.Tags),
		&product.CategoryID,
		&product.CreatedAt,
		&product.UpdatedAt,
		&category.ID,
		&category.Name,
		&category.Description,
		&category.ImageURL,
		&category.IsActive,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if options != nil {
		product.CustomizationOptions = &domain.CustomizationOptions{}
		if err := product.CustomizationOptions.Scan(options); err != nil {
			return nil, fmt.Errorf("failed to decode customization options: %w", err)
		}
	}
	if product.Tags == nil {
		product.Tags = []string{}
	}
	product.Category = category

	return product, nil
}

func (s *productScanner) scanAll(rows *sql.Rows) ([]*domain.Product, error) {
	products := []*domain.Product{}
	for rows.Next() {
		product, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

func optionsArg(o *domain.CustomizationOptions) (any, error) {
	if o == nil {
		return nil, nil
	}
	return json.Marshal(o)
}

func tagsArg(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// Create inserts a new product together with its initial stock movement.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	options, err := optionsArg(product.CustomizationOptions)
	if err != nil {
		return fmt.Errorf("failed to encode customization options: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO products (id, name, description, base_price, sku, stock_quantity, min_stock_level,
		                      is_customizable, customization_options, is_active, tags, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err = tx.QueryRowContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.BasePrice,
		product.SKU,
		product.StockQuantity,
		product.MinStockLevel,
		product.IsCustomizable,
		options,
		product.IsActive,
		tagsArg(product.Tags),
		product.CategoryID,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return classifyProductWriteError("create", err)
	}

	movement := domain.NewStockMovement(product.ID, 0, product.StockQuantity, domain.MovementInitial)
	if err := insertMovement(ctx, tx, movement); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit product create: %w", err)
	}

	return nil
}

// Update locks the product row, lets mutate change the loaded record and
// writes it back in the same transaction. A SKU change that collides with
// another product yields ErrSKUAlreadyExists; a stock change is recorded as a
// stock movement.
func (r *productRepository) Update(ctx context.Context, id uuid.UUID, mutate func(*domain.Product) error) (*domain.Product, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	scanner := newProductScanner()
	product, err := scanner.scan(tx.QueryRowContext(ctx, productSelect+` WHERE p.id = $1 FOR UPDATE OF p`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product for update: %w", err)
	}

	before := *product
	if err := mutate(product); err != nil {
		return nil, err
	}

	if product.SKU != before.SKU {
		var taken bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM products WHERE sku = $1 AND id <> $2)`,
			product.SKU, product.ID,
		).Scan(&taken)
		if err != nil {
			return nil, fmt.Errorf("failed to check sku: %w", err)
		}
		if taken {
			return nil, ErrSKUAlreadyExists
		}
	}

	options, err := optionsArg(product.CustomizationOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode customization options: %w", err)
	}

	update := `
		UPDATE products
		SET name = $2, description = $3, base_price = $4, sku = $5, stock_quantity = $6,
		    min_stock_level = $7, is_customizable = $8, customization_options = $9,
		    is_active = $10, tags = $11, category_id = $12
		WHERE id = $1
		RETURNING updated_at
	`
	err = tx.QueryRowContext(
		ctx,
		update,
		product.ID,
		product.Name,
		product.Description,
		product.BasePrice,
		product.SKU,
		product.StockQuantity,
		product.MinStockLevel,
		product.IsCustomizable,
		options,
		product.IsActive,
		tagsArg(product.Tags),
		product.CategoryID,
	).Scan(&product.UpdatedAt)
	if err != nil {
		return nil, classifyProductWriteError("update", err)
	}

	if product.StockQuantity != before.StockQuantity {
		movement := domain.NewStockMovement(product.ID, before.StockQuantity, product.StockQuantity, domain.MovementAdjustment)
		if err := insertMovement(ctx, tx, movement); err != nil {
			return nil, err
		}
	}

	if product.CategoryID != before.CategoryID {
		query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`
		category, err := scanCategory(tx.QueryRowContext(ctx, query, product.CategoryID))
		if err != nil {
			return nil, fmt.Errorf("failed to load category: %w", err)
		}
		product.Category = category
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit product update: %w", err)
	}

	return product, nil
}

func classifyProductWriteError(op string, err error) error {
	switch {
	case isUniqueViolation(err):
		return ErrSKUAlreadyExists
	case isForeignKeyViolation(err):
		return ErrUnknownCategory
	case isDataException(err):
		return ErrValueOutOfRange
	default:
		return fmt.Errorf("failed to %s product: %w", op, err)
	}
}

func insertMovement(ctx context.Context, tx *sql.Tx, m *domain.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, product_id, quantity_before, quantity_after, quantity_change, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.ExecContext(ctx, query,
		m.ID, m.ProductID, m.QuantityBefore, m.QuantityAfter, m.QuantityChange, string(m.Reason), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record stock movement: %w", err)
	}
	return nil
}

// Delete removes a product from the database using parameterized queries
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product and its category
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := newProductScanner().scan(r.db.QueryRowContext(ctx, productSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// ExistsBySKU reports whether any product uses sku.
func (r *productRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE sku = $1)`, sku).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check sku: %w", err)
	}
	return exists, nil
}

// List retrieves products matching filter ordered by name, one page at a
// time, together with the number of products matching filter.
func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter, page domain.PageRequest) ([]*domain.Product, int, error) {
	conditions := []string{}
	args := []interface{}{}

	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("p.category_id = $%d", len(args)))
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		conditions = append(conditions, fmt.Sprintf("p.name ILIKE $%d", len(args)))
	}

	if filter.StockBelow > 0 {
		args = append(args, filter.StockBelow)
		conditions = append(conditions, fmt.Sprintf("p.stock_quantity < $%d", len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM products p " + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf(`%s %s ORDER BY p.name ASC, p.id ASC LIMIT $%d OFFSET $%d`,
		productSelect, whereClause, len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products, err := newProductScanner().scanAll(rows)
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// ListLowStock returns every product whose stock is below threshold, ordered
// by name.
func (r *productRepository) ListLowStock(ctx context.Context, threshold int) ([]*domain.Product, error) {
	query := productSelect + ` WHERE p.stock_quantity < $1 ORDER BY p.name ASC, p.id ASC`

	rows, err := r.db.QueryContext(ctx, query, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	defer rows.Close()

	return newProductScanner().scanAll(rows)
}

// ListMovements returns the stock history of a product, newest first.
func (r *productRepository) ListMovements(ctx context.Context, productID uuid.UUID) ([]*domain.StockMovement, error) {
	query := `
		SELECT id, product_id, quantity_before, quantity_after, quantity_change, reason, created_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY seq DESC
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock movements: %w", err)
	}
	defer rows.Close()

	movements := []*domain.StockMovement{}
	for rows.Next() {
		m := &domain.StockMovement{}
		var reason string
		err := rows.Scan(&m.ID, &m.ProductID, &m.QuantityBefore, &m.QuantityAfter, &m.QuantityChange, &reason, &m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		m.Reason = domain.MovementReason(reason)
		movements = append(movements, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock movements: %w", err)
	}

	return movements, nil
}
