package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rl1809/food-truck-pos/internal/core/domain"
)

type DatabaseRepository interface {
	// CreateOrder persists the header and all items in one transaction.
	// Returns domain.ErrMenuItemNotFound if any item references a missing
	// product and domain.ErrOrderNumberTaken on a duplicate order number.
	CreateOrder(ctx context.Context, order domain.Order) error

	GetOrder(ctx context.Context, id string) (*domain.Order, error)

	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)

	// UpdateOrderStatus moves an order from one status to another only if it is
	// still in status from. Returns domain.ErrStaleWrite otherwise.
	UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) error

	UpdatePaymentStatus(ctx context.Context, id string, from, to domain.PaymentStatus) error

	CreateMenuItem(ctx context.Context, item domain.MenuItem) error

	GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error)

	ListMenuItems(ctx context.Context) ([]domain.MenuItem, error)

	UpdateMenuItemPrice(ctx context.Context, id string, price decimal.Decimal) error

	Ping(ctx context.Context) error
}
