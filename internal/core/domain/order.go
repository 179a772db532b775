package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeCounter        OrderType = "counter"
	OrderTypeDineIn         OrderType = "dine-in"
	OrderTypeTakeout        OrderType = "takeout"
	OrderTypeDelivery       OrderType = "delivery"
	OrderTypeCustomerOnline OrderType = "customer-online"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeCounter, OrderTypeDineIn, OrderTypeTakeout, OrderTypeDelivery, OrderTypeCustomerOnline:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodCard PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCash || m == PaymentMethodCard
}

// OrderSource identifies the channel an order was entered through. It is the
// prefix of every order number.
type OrderSource string

const (
	SourceStaff  OrderSource = "POS"
	SourcePublic OrderSource = "WEB"
)

// Order is the persisted record of a checked-out cart. Subtotal, Tax and Total
// are frozen at creation and never recomputed from menu prices.
type Order struct {
	ID            string
	OrderNumber   string
	Status        OrderStatus
	OrderType     OrderType
	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Notes         string
	Items         []OrderItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OrderItem struct {
	ID                  string
	OrderID             string
	ProductRef          string
	Quantity            int
	UnitPrice           decimal.Decimal
	TotalPrice          decimal.Decimal
	SpecialInstructions string
	CreatedAt           time.Time
}

// OrderFilter narrows ListOrders. A zero Status matches every status.
type OrderFilter struct {
	Status OrderStatus
	Limit  int
}
