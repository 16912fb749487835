package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices and totals are plain JSON numbers on the wire.
	decimal.MarshalJSONWithoutQuotes = true
}

// MaxStockLevel is the largest stock level every store can hold
const MaxStockLevel = math.MaxInt32

// maxAmount is the first money value that no longer fits the stores' amount columns
var maxAmount = decimal.New(1, 10)

// ValidAmount reports whether d is storable as money: at most two decimal places and below 1e10
func ValidAmount(d decimal.Decimal) bool {
	return d.Equal(d.Round(2)) && d.LessThan(maxAmount)
}

// ProductInput holds the client-supplied attributes of a product
type ProductInput struct {
	Name        string          `json:"name" validate:"required,min=1"`
	Price       decimal.Decimal `json:"price"`
	StockLevel  int             `json:"stock_level" validate:"gte=0"`
	Category    string          `json:"category" validate:"required"`
	Description *string         `json:"description,omitempty"`
}

// Product represents a product in the catalog.
// ID and timestamps are assigned by the store.
type Product struct {
	ID string `json:"id"`
	ProductInput
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductUpdate is a sparse set of catalog fields. Nil means "leave as is".
type ProductUpdate struct {
	Name        *string          `json:"name,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Description *string          `json:"description,omitempty"`
}

// Fields returns the names of the fields present in the update
func (u ProductUpdate) Fields() []string {
	var fields []string
	if u.Name != nil {
		fields = append(fields, "name")
	}
	if u.Price != nil {
		fields = append(fields, "price")
	}
	if u.Category != nil {
		fields = append(fields, "category")
	}
	if u.Description != nil {
		fields = append(fields, "description")
	}
	return fields
}

// IsEmpty reports whether no field was supplied
func (u ProductUpdate) IsEmpty() bool {
	return len(u.Fields()) == 0
}

// ProductFilter narrows a catalog listing
type ProductFilter struct {
	Category string
	// InStock selects stock_level > 0 when true and stock_level = 0 when false
	InStock *bool
}

// StockAdjustment is a signed manual correction of a product's stock level
type StockAdjustment struct {
	Adjustment *int   `json:"adjustment" validate:"required"`
	Reason     string `json:"reason" validate:"required"`
}
