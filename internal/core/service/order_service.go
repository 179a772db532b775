package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rl1809/food-truck-pos/internal/core/cart"
	"github.com/rl1809/food-truck-pos/internal/core/domain"
	"github.com/rl1809/food-truck-pos/internal/core/pricing"
	"github.com/rl1809/food-truck-pos/internal/port"
)

const idempotencyKeyPrefix = "checkout:"

type Config struct {
	TaxRate decimal.Decimal
	// WriteTimeout bounds every store call made for one request.
	WriteTimeout    time.Duration
	ListCacheTTL    time.Duration
	BreakerFailures uint32
	BreakerOpenFor  time.Duration
}

func DefaultConfig() Config {
	return Config{
		TaxRate:         pricing.DefaultTaxRate,
		WriteTimeout:    5 * time.Second,
		ListCacheTTL:    30 * time.Second,
		BreakerFailures: 5,
		BreakerOpenFor:  10 * time.Second,
	}
}

// OrderDetails is the order metadata entered at checkout.
type OrderDetails struct {
	RequestID     string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	PaymentMethod domain.PaymentMethod
	OrderType     domain.OrderType
	Notes         string
}

// OrderInput is a checked-out cart as submitted by a client. Totals are the
// client's figures and are verified against the server's recomputation.
type OrderInput struct {
	OrderDetails
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	Items    []ItemInput
}

type ItemInput struct {
	ProductRef          string
	Quantity            int
	UnitPrice           decimal.Decimal
	TotalPrice          decimal.Decimal
	SpecialInstructions string
}

type Option func(*OrderService)

func WithClock(now func() time.Time) Option {
	return func(s *OrderService) { s.now = now }
}

func WithOrderNumbers(fn OrderNumberFunc) Option {
	return func(s *OrderService) { s.orderNumber = fn }
}

type OrderService struct {
	db          port.DatabaseRepository
	cache       port.CacheRepository
	cfg         Config
	logger      *zap.Logger
	breaker     *gobreaker.CircuitBreaker[struct{}]
	sfg         singleflight.Group
	now         func() time.Time
	orderNumber OrderNumberFunc
}

// NewOrderService wires the service. cache may be nil, which disables
// idempotency claims and list caching.
func NewOrderService(db port.DatabaseRepository, cache port.CacheRepository, cfg Config, logger *zap.Logger, opts ...Option) *OrderService {
	def := DefaultConfig()
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.ListCacheTTL <= 0 {
		cfg.ListCacheTTL = def.ListCacheTTL
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerOpenFor <= 0 {
		cfg.BreakerOpenFor = def.BreakerOpenFor
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("order_service")

	s := &OrderService{
		db:          db,
		cache:       cache,
		cfg:         cfg,
		logger:      logger,
		breaker:     newStoreBreaker(cfg.BreakerFailures, cfg.BreakerOpenFor, logger),
		now:         time.Now,
		orderNumber: NewOrderNumber,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *OrderService) TaxRate() decimal.Decimal {
	return s.cfg.TaxRate
}

// storeContext detaches a store call from caller cancellation so a write
// always finishes as committed or rolled back, bounded by WriteTimeout.
func (s *OrderService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteTimeout)
}

// CreateOrder validates and persists an order with all of its items in one
// transaction. A duplicate order number is retried once with a new number.
func (s *OrderService) CreateOrder(ctx context.Context, source domain.OrderSource, in OrderInput) (*domain.Order, error) {
	order, err := s.buildOrder(source, in)
	if err != nil {
		return nil, err
	}

	var idemKey string
	if in.RequestID != "" && s.cache != nil {
		idemKey = idempotencyKeyPrefix + in.RequestID
		existing, err := s.claimRequest(ctx, idemKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	if err := s.persist(ctx, source, &order); err != nil {
		if idemKey != "" {
			s.releaseRequest(ctx, idemKey)
		}
		return nil, err
	}

	if idemKey != "" {
		if err := s.cache.CompleteIdempotency(context.WithoutCancel(ctx), idemKey, order.ID); err != nil {
			s.logger.Warn("failed to record idempotency result",
				zap.String("request_id", in.RequestID), zap.Error(err))
		}
	}
	s.invalidateOrderLists(ctx)

	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.Total.StringFixed(2)),
		zap.Int("items", len(order.Items)))
	return &order, nil
}

func (s *OrderService) persist(ctx context.Context, source domain.OrderSource, order *domain.Order) error {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	var err error
	for attempt := 1; attempt <= 2; attempt++ {
		order.OrderNumber = s.orderNumber(source, order.CreatedAt)
		err = s.guard(func() error { return s.db.CreateOrder(storeCtx, *order) })
		if !errors.Is(err, domain.ErrOrderNumberTaken) {
			break
		}
		s.logger.Warn("order number collision",
			zap.String("order_number", order.OrderNumber), zap.Int("attempt", attempt))
	}
	if err != nil {
		s.logger.Error("failed to save order", zap.String("order_id", order.ID), zap.Error(err))
		return storageError("create order", err)
	}
	return nil
}

// Checkout places the contents of a cart and empties the cart once the order
// is stored. On failure the cart is left untouched.
func (s *OrderService) Checkout(ctx context.Context, source domain.OrderSource, c *cart.Cart, details OrderDetails) (*domain.Order, error) {
	snap := c.Snapshot()
	in := OrderInput{
		OrderDetails: details,
		Subtotal:     snap.Subtotal,
		Tax:          snap.Tax,
		Total:        snap.Total,
		Items:        make([]ItemInput, 0, len(snap.Lines)),
	}
	for _, l := range snap.Lines {
		in.Items = append(in.Items, ItemInput{
			ProductRef:          l.ProductRef,
			Quantity:            l.Quantity,
			UnitPrice:           l.UnitPrice,
			TotalPrice:          l.LineTotal,
			SpecialInstructions: l.SpecialInstructions,
		})
	}

	order, err := s.CreateOrder(ctx, source, in)
	if err != nil {
		return nil, err
	}
	c.Clear()
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	var order *domain.Order
	err := s.guard(func() (err error) {
		order, err = s.db.GetOrder(storeCtx, id)
		return err
	})
	if err != nil {
		return nil, storageError("get order", err)
	}
	return order, nil
}

// UpdateOrderStatus moves an order one step along its lifecycle. The write
// only succeeds if nobody changed the status since it was read.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	next, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, invalid("status", "must be one of pending, preparing, ready, completed, cancelled")
	}

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s to %s", ErrIllegalTransition, order.Status, next)
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.guard(func() error { return s.db.UpdateOrderStatus(storeCtx, id, order.Status, next) }); err != nil {
		return nil, storageError("update order status", err)
	}
	s.invalidateOrderLists(ctx)

	s.logger.Info("order status changed",
		zap.String("order_id", id),
		zap.String("from", string(order.Status)),
		zap.String("to", string(next)))
	order.Status = next
	order.UpdatedAt = s.now()
	return order, nil
}

func (s *OrderService) UpdatePaymentStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	next, err := domain.ParsePaymentStatus(status)
	if err != nil {
		return nil, invalid("paymentStatus", "must be one of pending, paid, refunded")
	}

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.PaymentStatus.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: payment %s to %s", ErrIllegalTransition, order.PaymentStatus, next)
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.guard(func() error { return s.db.UpdatePaymentStatus(storeCtx, id, order.PaymentStatus, next) }); err != nil {
		return nil, storageError("update payment status", err)
	}
	s.invalidateOrderLists(ctx)

	order.PaymentStatus = next
	order.UpdatedAt = s.now()
	return order, nil
}

func (s *OrderService) buildOrder(source domain.OrderSource, in OrderInput) (domain.Order, error) {
	if err := s.validate(source, &in); err != nil {
		return domain.Order{}, err
	}

	lines := make([]pricing.Line, len(in.Items))
	for i, it := range in.Items {
		lines[i] = pricing.Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity}
	}
	totals := pricing.Calculate(lines, s.cfg.TaxRate).Rounded()
	if err := checkClientTotals(in, totals); err != nil {
		return domain.Order{}, err
	}

	now := s.now().UTC()
	order := domain.Order{
		ID:            uuid.NewString(),
		Status:        domain.OrderStatusPending,
		OrderType:     in.OrderType,
		PaymentMethod: in.PaymentMethod,
		PaymentStatus: domain.PaymentStatusPending,
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Total:         totals.Total,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		CustomerPhone: in.CustomerPhone,
		Notes:         in.Notes,
		Items:         make([]domain.OrderItem, len(in.Items)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for i, it := range in.Items {
		order.Items[i] = domain.OrderItem{
			ID:                  uuid.NewString(),
			OrderID:             order.ID,
			ProductRef:          it.ProductRef,
			Quantity:            it.Quantity,
			UnitPrice:           it.UnitPrice,
			TotalPrice:          pricing.LineTotal(it.UnitPrice, it.Quantity),
			SpecialInstructions: it.SpecialInstructions,
			CreatedAt:           now,
		}
	}
	return order, nil
}
