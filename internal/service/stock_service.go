package service

import (
	"context"
	"errors"
	"fmt"

	"stock-pos/internal/domain"
	"stock-pos/internal/repository"

	"go.uber.org/zap"
)

// InsufficientStockError reports a refused deduction.
// It matches repository.ErrInsufficientStock with errors.Is.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Available   int
	// Adjustment is the signed delta of a manual adjustment; zero for sales
	Adjustment int
	Requested  int
}

func (e *InsufficientStockError) Error() string {
	if e.Adjustment != 0 {
		return fmt.Sprintf("Insufficient stock. Current: %d, Adjustment: %d", e.Available, e.Adjustment)
	}
	return fmt.Sprintf("Insufficient stock for '%s'. Available: %d", e.ProductName, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return repository.ErrInsufficientStock
}

// ErrAdjustmentOutOfRange rejects deltas no store can apply
var ErrAdjustmentOutOfRange = fmt.Errorf("%w: adjustment must be between %d and %d", ErrInvalidInput, -domain.MaxStockLevel, domain.MaxStockLevel)

// StockService applies manual stock corrections
type StockService interface {
	Adjust(ctx context.Context, productID string, delta int, reason string, actor string) (*domain.Product, error)
}

type stockService struct {
	products repository.ProductRepository
	logger   *zap.Logger
}

// NewStockService creates a StockService
func NewStockService(products repository.ProductRepository, logger *zap.Logger) StockService {
	return &stockService{
		products: products,
		logger:   logger,
	}
}

// Adjust applies a signed delta to a product's stock level.
// Negative deltas are checked against the current level first so the error carries it;
// the store's guarded increment rejects anything that slips past the check.
func (s *stockService) Adjust(ctx context.Context, productID string, delta int, reason string, actor string) (*domain.Product, error) {
	if delta > domain.MaxStockLevel || delta < -domain.MaxStockLevel {
		return nil, ErrAdjustmentOutOfRange
	}

	if delta < 0 {
		current, err := s.products.FindByID(ctx, productID)
		if err != nil {
			return nil, err
		}
		if current.StockLevel+delta < 0 {
			return nil, &InsufficientStockError{
				ProductID:   productID,
				ProductName: current.Name,
				Available:   current.StockLevel,
				Adjustment:  delta,
				Requested:   -delta,
			}
		}
	}

	product, err := s.products.IncrementStock(ctx, productID, delta, timestamp())
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			// Lost a race with a concurrent deduction between the check and the update
			available := 0
			if latest, findErr := s.products.FindByID(ctx, productID); findErr == nil {
				available = latest.StockLevel
			}
			return nil, &InsufficientStockError{
				ProductID:  productID,
				Available:  available,
				Adjustment: delta,
				Requested:  -delta,
			}
		}
		return nil, err
	}

	s.logger.Info("Stock adjusted",
		zap.String("id", productID),
		zap.Int("adjustment", delta),
		zap.String("reason", reason),
		zap.String("admin_id", actor),
		zap.Int("stock_level", product.StockLevel),
	)
	return product, nil
}
