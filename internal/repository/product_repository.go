package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"stock-pos/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrProductAlreadyExists = errors.New("product with this name already exists")
	ErrInvalidProductID     = errors.New("invalid product ID")
	// ErrInsufficientStock is returned when an increment would take stock_level below zero
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStockOutOfRange is returned when an increment would push stock_level past domain.MaxStockLevel
	ErrStockOutOfRange = errors.New("stock level out of range")
)

const (
	// Postgres SQLSTATEs
	uniqueViolation        = "23505"
	numericValueOutOfRange = "22003"
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, id string, update domain.ProductUpdate, updatedAt time.Time) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	FindByName(ctx context.Context, name string) (*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	// IncrementStock atomically applies stock_level += delta and sets updated_at,
	// refusing with ErrInsufficientStock when the result would be negative.
	IncrementStock(ctx context.Context, id string, delta int, updatedAt time.Time) (*domain.Product, error)
}

const productColumns = `id, name, price, stock_level, category, description, created_at, updated_at`

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a Postgres-backed ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		product = &domain.Product{}
		id      uuid.UUID
	)
	err := row.Scan(
		&id,
		&product.Name,
		&product.Price,
		&product.StockLevel,
		&product.Category,
		&product.Description,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	product.ID = id.String()
	return product, nil
}

func parseProductID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ErrInvalidProductID
	}
	return parsed, nil
}

func isUniqueViolation(err error) bool {
	return hasSQLState(err, uniqueViolation)
}

func hasSQLState(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// Create inserts a new product and assigns its ID
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	id := uuid.New()

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		id,
		product.Name,
		product.Price,
		product.StockLevel,
		product.Category,
		product.Description,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrProductAlreadyExists
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	product.ID = id.String()
	return nil
}

// Update applies the fields present in update and returns the stored product
func (r *productRepository) Update(ctx context.Context, id string, update domain.ProductUpdate, updatedAt time.Time) (*domain.Product, error) {
	productID, err := parseProductID(id)
	if err != nil {
		return nil, err
	}

	sets := []string{}
	args := []interface{}{productID}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.Price != nil {
		add("price", *update.Price)
	}
	if update.Category != nil {
		add("category", *update.Category)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	add("updated_at", updatedAt)

	query := fmt.Sprintf(`
		UPDATE products
		SET %s
		WHERE id = $1
		RETURNING %s
	`, strings.Join(sets, ", "), productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrProductAlreadyExists
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// Delete removes a product. Sales referencing it are left untouched.
func (r *productRepository) Delete(ctx context.Context, id string) error {
	productID, err := parseProductID(id)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
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

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	productID, err := parseProductID(id)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, productID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindByName retrieves a product by its unique name
func (r *productRepository) FindByName(ctx context.Context, name string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE name = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by name: %w", err)
	}

	return product, nil
}

// List retrieves products matching filter ordered by creation time
func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	conditions := []string{}
	args := []interface{}{}

	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.InStock != nil {
		if *filter.InStock {
			conditions = append(conditions, "stock_level > 0")
		} else {
			conditions = append(conditions, "stock_level = 0")
		}
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY created_at ASC, id ASC
	`, productColumns, whereClause)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// IncrementStock applies delta in a single guarded UPDATE so concurrent callers never lose updates
func (r *productRepository) IncrementStock(ctx context.Context, id string, delta int, updatedAt time.Time) (*domain.Product, error) {
	productID, err := parseProductID(id)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE products
		SET stock_level = stock_level + $2, updated_at = $3
		WHERE id = $1 AND stock_level + $2 >= 0
		RETURNING ` + productColumns

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, productID, delta, updatedAt))
	if err == nil {
		return product, nil
	}
	if hasSQLState(err, numericValueOutOfRange) {
		return nil, ErrStockOutOfRange
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to increment stock: %w", err)
	}

	// Nothing matched: either the row is gone or the guard refused it
	var exists bool
	err = r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check product existence: %w", err)
	}
	if !exists {
		return nil, ErrProductNotFound
	}
	return nil, ErrInsufficientStock
}
