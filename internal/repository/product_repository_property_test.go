package repository

import (
	"context"
	"testing"

	"stock-pos/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func cents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

// Creating and retrieving a product preserves all attributes
func TestProperty_ProductCreationPreservesAttributes(t *testing.T) {
	for _, s := range stores(t) {
		t.Run(s.name, func(t *testing.T) {
			s.reset(t)
			properties := gopter.NewProperties(nil)

			properties.Property("round trip keeps name, price, stock, category and description", prop.ForAll(
				func(name string, description string, priceCents int64, stock int) bool {
					ctx := context.Background()
					// Unique suffix keeps generated names clear of the unique index
					name = name + " " + uuid.NewString()[:8]

					product := newProduct(name, stock)
					product.Price = cents(priceCents)
					product.Description = &description

					if err := s.products.Create(ctx, product); err != nil {
						t.Logf("FAIL: Failed to create product: %v", err)
						return false
					}

					retrieved, err := s.products.FindByID(ctx, product.ID)
					if err != nil {
						t.Logf("FAIL: Failed to retrieve product: %v", err)
						return false
					}

					if retrieved.Name != name || retrieved.Category != product.Category {
						t.Logf("FAIL: identity mismatch: %+v", retrieved)
						return false
					}
					if !retrieved.Price.Equal(product.Price) {
						t.Logf("FAIL: Price mismatch. Expected %s, got %s", product.Price, retrieved.Price)
						return false
					}
					if retrieved.StockLevel != stock {
						t.Logf("FAIL: Stock mismatch. Expected %d, got %d", stock, retrieved.StockLevel)
						return false
					}
					if retrieved.Description == nil || *retrieved.Description != description {
						t.Logf("FAIL: Description mismatch")
						return false
					}
					return true
				},
				gen.RegexMatch(`[A-Za-z0-9 ]{3,50}`),
				gen.RegexMatch(`[A-Za-z0-9 .,!?]{10,200}`),
				gen.Int64Range(1, 999999),
				gen.IntRange(0, 1000),
			))

			properties.TestingRun(t, gopter.ConsoleReporter(false))
		})
	}
}

// Updated fields are reflected on read; untouched fields keep their values
func TestProperty_ProductUpdatesAreReflected(t *testing.T) {
	for _, s := range stores(t) {
		t.Run(s.name, func(t *testing.T) {
			s.reset(t)
			properties := gopter.NewProperties(nil)

			properties.Property("price and description updates are visible", prop.ForAll(
				func(description string, priceCents int64, stock int) bool {
					ctx := context.Background()

					product := newProduct("Updatable "+uuid.NewString(), stock)
					if err := s.products.Create(ctx, product); err != nil {
						t.Logf("FAIL: Failed to create product: %v", err)
						return false
					}

					price := cents(priceCents)
					updated, err := s.products.Update(ctx, product.ID, domain.ProductUpdate{
						Price:       &price,
						Description: &description,
					}, now())
					if err != nil {
						t.Logf("FAIL: Failed to update product: %v", err)
						return false
					}

					retrieved, err := s.products.FindByID(ctx, product.ID)
					if err != nil {
						t.Logf("FAIL: Failed to retrieve product: %v", err)
						return false
					}

					return retrieved.Price.Equal(price) &&
						updated.Price.Equal(price) &&
						retrieved.Description != nil && *retrieved.Description == description &&
						retrieved.Name == product.Name &&
						retrieved.StockLevel == stock
				},
				gen.RegexMatch(`[A-Za-z0-9 .,!?]{10,200}`),
				gen.Int64Range(1, 999999),
				gen.IntRange(0, 1000),
			))

			properties.TestingRun(t, gopter.ConsoleReporter(false))
		})
	}
}

// A deleted product disappears from lookups and listings
func TestProperty_ProductDeletionRemovesFromCatalog(t *testing.T) {
	for _, s := range stores(t) {
		t.Run(s.name, func(t *testing.T) {
			s.reset(t)
			properties := gopter.NewProperties(nil)

			properties.Property("deleted products cannot be found", prop.ForAll(
				func(stock int) bool {
					ctx := context.Background()

					product := newProduct("Deletable "+uuid.NewString(), stock)
					if err := s.products.Create(ctx, product); err != nil {
						t.Logf("FAIL: Failed to create product: %v", err)
						return false
					}

					if err := s.products.Delete(ctx, product.ID); err != nil {
						t.Logf("FAIL: Failed to delete product: %v", err)
						return false
					}

					if _, err := s.products.FindByID(ctx, product.ID); err != ErrProductNotFound {
						t.Logf("FAIL: expected ErrProductNotFound, got %v", err)
						return false
					}

					listed, err := s.products.List(ctx, domain.ProductFilter{})
					if err != nil {
						return false
					}
					for _, p := range listed {
						if p.ID == product.ID {
							t.Logf("FAIL: deleted product still listed")
							return false
						}
					}

					// A second delete reports the product as gone
					return s.products.Delete(ctx, product.ID) == ErrProductNotFound
				},
				gen.IntRange(0, 100),
			))

			properties.TestingRun(t, gopter.ConsoleReporter(false))
		})
	}
}
