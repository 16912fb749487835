package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AnonymousUser is recorded on sales registered without a user
const AnonymousUser = "anonymous"

// SaleItem is one line of a sale
type SaleItem struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// SaleInput is the payload of a sale registration
type SaleInput struct {
	Items       []SaleItem      `json:"items" validate:"required,min=1,dive"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	UserID      string          `json:"user_id"`
}

// SaleRecord is an immutable, persisted sale
type SaleRecord struct {
	ID string `json:"id"`
	SaleInput
	SaleDate time.Time `json:"sale_date"`
}

// SaleFilter narrows the sales report. Zero values are ignored.
type SaleFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	UserID    string
}
