package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"stock-pos/internal/domain"

	"github.com/google/uuid"
)

// SaleRepository defines the interface for sale data access.
// Sales are append-only.
type SaleRepository interface {
	Insert(ctx context.Context, sale *domain.SaleRecord) error
	List(ctx context.Context, filter domain.SaleFilter) ([]*domain.SaleRecord, error)
}

type saleRepository struct {
	db *sql.DB
}

// NewSaleRepository creates a Postgres-backed SaleRepository
func NewSaleRepository(db *sql.DB) SaleRepository {
	return &saleRepository{db: db}
}

// Insert stores the sale and its line items in one transaction and assigns the sale ID
func (r *saleRepository) Insert(ctx context.Context, sale *domain.SaleRecord) error {
	id := uuid.New()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin sale transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO sales (id, total_amount, user_id, sale_date) VALUES ($1, $2, $3, $4)`,
		id,
		sale.TotalAmount,
		sale.UserID,
		sale.SaleDate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}

	for i, item := range sale.Items {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO sale_items (sale_id, position, product_id, quantity) VALUES ($1, $2, $3, $4)`,
			id,
			i,
			item.ProductID,
			item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert sale item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sale: %w", err)
	}

	sale.ID = id.String()
	return nil
}

// List retrieves sales matching filter ordered by sale date
func (r *saleRepository) List(ctx context.Context, filter domain.SaleFilter) ([]*domain.SaleRecord, error) {
	conditions := []string{}
	args := []interface{}{}

	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("s.sale_date >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		conditions = append(conditions, fmt.Sprintf("s.sale_date <= $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("s.user_id = $%d", len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT s.id, s.total_amount, s.user_id, s.sale_date, i.product_id, i.quantity
		FROM sales s
		LEFT JOIN sale_items i ON i.sale_id = s.id
		%s
		ORDER BY s.sale_date ASC, s.id ASC, i.position ASC
	`, whereClause)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	sales := []*domain.SaleRecord{}
	var current *domain.SaleRecord
	for rows.Next() {
		var (
			sale      domain.SaleRecord
			id        uuid.UUID
			productID sql.NullString
			quantity  sql.NullInt64
		)
		if err := rows.Scan(&id, &sale.TotalAmount, &sale.UserID, &sale.SaleDate, &productID, &quantity); err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}

		if current == nil || current.ID != id.String() {
			sale.ID = id.String()
			sale.Items = []domain.SaleItem{}
			current = &sale
			sales = append(sales, current)
		}
		if productID.Valid {
			current.Items = append(current.Items, domain.SaleItem{
				ProductID: productID.String,
				Quantity:  int(quantity.Int64),
			})
		}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales: %w", err)
	}

	return sales, nil
}
