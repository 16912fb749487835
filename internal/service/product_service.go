package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stock-pos/internal/domain"
	"stock-pos/internal/repository"

	"go.uber.org/zap"
)

var (
	// ErrInvalidInput marks caller mistakes: malformed payloads, empty updates, non-positive quantities
	ErrInvalidInput = errors.New("invalid input")

	ErrEmptyUpdate       = fmt.Errorf("%w: no valid data provided for update", ErrInvalidInput)
	ErrFieldNotUpdatable = fmt.Errorf("%w: field cannot be updated", ErrInvalidInput)
	ErrInvalidPrice      = fmt.Errorf("%w: price must be greater than zero", ErrInvalidInput)
	ErrInvalidName       = fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
	ErrNegativeStock     = fmt.Errorf("%w: stock_level must not be negative", ErrInvalidInput)
	ErrPriceFormat       = fmt.Errorf("%w: price must have at most 2 decimal places and be less than 10000000000", ErrInvalidInput)
	ErrStockTooLarge     = fmt.Errorf("%w: stock_level must not exceed %d", ErrInvalidInput, domain.MaxStockLevel)
)

// DefaultUpdatableFields are the catalog fields a product update may touch
var DefaultUpdatableFields = []string{"price", "description"}

// timestamp is the store-facing clock at the millisecond precision every backend can hold.
// It rounds up so a stored time is never earlier than the moment it was taken.
func timestamp() time.Time {
	now := time.Now().UTC()
	if truncated := now.Truncate(time.Millisecond); truncated.Before(now) {
		return truncated.Add(time.Millisecond)
	}
	return now
}

// ProductService defines catalog operations
type ProductService interface {
	Create(ctx context.Context, input domain.ProductInput, actor string) (*domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	Update(ctx context.Context, id string, update domain.ProductUpdate, actor string) (*domain.Product, error)
	Delete(ctx context.Context, id string, actor string) error
}

type productService struct {
	products  repository.ProductRepository
	updatable map[string]bool
	logger    *zap.Logger
}

// NewProductService creates a catalog service. updatableFields restricts ProductUpdate;
// an empty list falls back to DefaultUpdatableFields.
func NewProductService(products repository.ProductRepository, updatableFields []string, logger *zap.Logger) ProductService {
	if len(updatableFields) == 0 {
		updatableFields = DefaultUpdatableFields
	}
	updatable := make(map[string]bool, len(updatableFields))
	for _, field := range updatableFields {
		updatable[strings.ToLower(strings.TrimSpace(field))] = true
	}

	return &productService{
		products:  products,
		updatable: updatable,
		logger:    logger,
	}
}

// Create adds a product, rejecting names already in the catalog
func (s *productService) Create(ctx context.Context, input domain.ProductInput, actor string) (*domain.Product, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidName
	}
	if !input.Price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	if !domain.ValidAmount(input.Price) {
		return nil, ErrPriceFormat
	}
	if input.StockLevel < 0 {
		return nil, ErrNegativeStock
	}
	if input.StockLevel > domain.MaxStockLevel {
		return nil, ErrStockTooLarge
	}

	s.logger.Info("Product creation attempt", zap.String("admin_id", actor))

	_, err := s.products.FindByName(ctx, input.Name)
	if err == nil {
		s.logger.Warn("Creation failed: duplicate name", zap.String("name", input.Name))
		return nil, repository.ErrProductAlreadyExists
	}
	if !errors.Is(err, repository.ErrProductNotFound) {
		return nil, fmt.Errorf("failed to check existing product: %w", err)
	}

	now := timestamp()
	product := &domain.Product{
		ProductInput: input,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The store's unique index still guards against a concurrent create of the same name
	if err := s.products.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrProductAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created", zap.String("id", product.ID), zap.String("admin_id", actor))
	return product, nil
}

// Get retrieves a product by ID
func (s *productService) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

// List returns the catalog narrowed by filter
func (s *productService) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	s.logger.Debug("Product listing requested",
		zap.String("category", filter.Category),
		zap.Any("in_stock", filter.InStock),
	)
	return s.products.List(ctx, filter)
}

// Update applies a sparse update restricted to the configured fields
func (s *productService) Update(ctx context.Context, id string, update domain.ProductUpdate, actor string) (*domain.Product, error) {
	fields := update.Fields()
	if len(fields) == 0 {
		return nil, ErrEmptyUpdate
	}
	for _, field := range fields {
		if !s.updatable[field] {
			return nil, fmt.Errorf("%w: %s", ErrFieldNotUpdatable, field)
		}
	}

	if update.Price != nil {
		if !update.Price.IsPositive() {
			return nil, ErrInvalidPrice
		}
		if !domain.ValidAmount(*update.Price) {
			return nil, ErrPriceFormat
		}
	}

	if update.Name != nil {
		if strings.TrimSpace(*update.Name) == "" {
			return nil, ErrInvalidName
		}
		existing, err := s.products.FindByName(ctx, *update.Name)
		switch {
		case err == nil && existing.ID != id:
			return nil, repository.ErrProductAlreadyExists
		case err != nil && !errors.Is(err, repository.ErrProductNotFound):
			return nil, fmt.Errorf("failed to check existing product: %w", err)
		}
	}

	product, err := s.products.Update(ctx, id, update, timestamp())
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product updated",
		zap.String("id", id),
		zap.Strings("fields", fields),
		zap.String("admin_id", actor),
	)
	return product, nil
}

// Delete removes a product from the catalog; sales history is not touched
func (s *productService) Delete(ctx context.Context, id string, actor string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Product deleted", zap.String("id", id), zap.String("admin_id", actor))
	return nil
}
