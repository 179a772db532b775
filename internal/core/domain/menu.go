package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MenuItem is the live catalog entry an order line references. Its price may
// change at any time without affecting orders already placed.
type MenuItem struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	IsAvailable bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
