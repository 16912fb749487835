package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stock-pos/internal/domain"
	"stock-pos/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	ErrEmptySale       = fmt.Errorf("%w: a sale needs at least one item", ErrInvalidInput)
	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidInput)
	ErrNegativeTotal   = fmt.Errorf("%w: total_amount must not be negative", ErrInvalidInput)
	ErrTotalFormat     = fmt.Errorf("%w: total_amount must have at most 2 decimal places and be less than 10000000000", ErrInvalidInput)
)

// SaleService registers sales and reports on them
type SaleService interface {
	Register(ctx context.Context, input domain.SaleInput) (*domain.SaleRecord, error)
	History(ctx context.Context, filter domain.SaleFilter) ([]*domain.SaleRecord, error)
}

type saleService struct {
	products repository.ProductRepository
	sales    repository.SaleRepository
	logger   *zap.Logger
}

// NewSaleService creates a SaleService
func NewSaleService(products repository.ProductRepository, sales repository.SaleRepository, logger *zap.Logger) SaleService {
	return &saleService{
		products: products,
		sales:    sales,
		logger:   logger,
	}
}

// applied is a stock deduction already committed for the current sale
type applied struct {
	productID string
	quantity  int
}

// Register validates every line item, deducts stock item by item and records the sale.
// No stock is touched unless every item passes validation. If a deduction fails after
// others were applied, those are restored before the error is returned.
func (s *saleService) Register(ctx context.Context, input domain.SaleInput) (*domain.SaleRecord, error) {
	if len(input.Items) == 0 {
		return nil, ErrEmptySale
	}
	if input.TotalAmount.IsNegative() {
		return nil, ErrNegativeTotal
	}
	if !domain.ValidAmount(input.TotalAmount) {
		return nil, ErrTotalFormat
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}
	if strings.TrimSpace(input.UserID) == "" {
		input.UserID = domain.AnonymousUser
	}

	// Phase 1: validate
	for _, item := range input.Items {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, err)
		}
		if product.StockLevel < item.Quantity {
			return nil, &InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Available:   product.StockLevel,
				Requested:   item.Quantity,
			}
		}
	}

	// Phase 2: deduct
	now := timestamp()
	done := make([]applied, 0, len(input.Items))
	for _, item := range input.Items {
		_, err := s.products.IncrementStock(ctx, item.ProductID, -item.Quantity, now)
		if err != nil {
			s.compensate(ctx, done)
			return nil, s.deductionError(ctx, item, err)
		}
		done = append(done, applied{productID: item.ProductID, quantity: item.Quantity})
	}

	// Phase 3: record
	sale := &domain.SaleRecord{
		SaleInput: input,
		SaleDate:  now,
	}
	if err := s.sales.Insert(ctx, sale); err != nil {
		s.compensate(ctx, done)
		return nil, fmt.Errorf("failed to register sale: %w", err)
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("sale.id", sale.ID),
		attribute.Int("sale.items", len(sale.Items)),
	)
	s.logger.Info("Sale registered",
		zap.String("id", sale.ID),
		zap.String("total", sale.TotalAmount.String()),
		zap.String("user_id", sale.UserID),
		zap.Int("items", len(sale.Items)),
	)
	return sale, nil
}

// deductionError describes why a phase 2 deduction was refused
func (s *saleService) deductionError(ctx context.Context, item domain.SaleItem, err error) error {
	if !errors.Is(err, repository.ErrInsufficientStock) {
		return fmt.Errorf("product %s: %w", item.ProductID, err)
	}

	stockErr := &InsufficientStockError{ProductID: item.ProductID, Requested: item.Quantity}
	if latest, findErr := s.products.FindByID(ctx, item.ProductID); findErr == nil {
		stockErr.ProductName = latest.Name
		stockErr.Available = latest.StockLevel
	}
	return stockErr
}

// compensate restores deductions of a sale that could not complete.
// It runs detached from ctx so a cancelled request still gets its stock back.
func (s *saleService) compensate(ctx context.Context, done []applied) {
	restoreCtx := context.WithoutCancel(ctx)
	span := trace.SpanFromContext(ctx)
	for _, d := range done {
		span.AddEvent("stock.restore", trace.WithAttributes(
			attribute.String("product_id", d.productID),
			attribute.Int("quantity", d.quantity),
		))
		if _, err := s.products.IncrementStock(restoreCtx, d.productID, d.quantity, timestamp()); err != nil {
			s.logger.Error("Failed to restore stock after aborted sale",
				zap.String("product_id", d.productID),
				zap.Int("quantity", d.quantity),
				zap.Error(err),
			)
			continue
		}
		s.logger.Warn("Stock restored after aborted sale",
			zap.String("product_id", d.productID),
			zap.Int("quantity", d.quantity),
		)
	}
}

// History returns the sales report
func (s *saleService) History(ctx context.Context, filter domain.SaleFilter) ([]*domain.SaleRecord, error) {
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, fmt.Errorf("%w: end_date is before start_date", ErrInvalidInput)
	}
	return s.sales.List(ctx, filter)
}
