package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/food-truck-pos/internal/core/domain"
	"github.com/rl1809/food-truck-pos/internal/core/pricing"
)

func (s *OrderService) CreateMenuItem(ctx context.Context, name string, price decimal.Decimal) (*domain.MenuItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	if len(name) > maxCustomerFieldLen {
		return nil, invalid("name", "must be at most %d characters", maxCustomerFieldLen)
	}
	if err := checkMenuPrice(price); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	item := domain.MenuItem{
		ID:          uuid.NewString(),
		Name:        name,
		Price:       price,
		IsAvailable: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.guard(func() error { return s.db.CreateMenuItem(storeCtx, item) }); err != nil {
		return nil, storageError("create menu item", err)
	}
	return &item, nil
}

func (s *OrderService) GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	var item *domain.MenuItem
	err := s.guard(func() (err error) {
		item, err = s.db.GetMenuItem(storeCtx, id)
		return err
	})
	if err != nil {
		return nil, storageError("get menu item", err)
	}
	return item, nil
}

func (s *OrderService) ListMenuItems(ctx context.Context) ([]domain.MenuItem, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	var items []domain.MenuItem
	err := s.guard(func() (err error) {
		items, err = s.db.ListMenuItems(storeCtx)
		return err
	})
	if err != nil {
		return nil, storageError("list menu items", err)
	}
	return items, nil
}

// UpdateMenuItemPrice changes the live price. Orders already placed keep the
// price they were placed at.
func (s *OrderService) UpdateMenuItemPrice(ctx context.Context, id string, price decimal.Decimal) (*domain.MenuItem, error) {
	if err := checkMenuPrice(price); err != nil {
		return nil, err
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.guard(func() error { return s.db.UpdateMenuItemPrice(storeCtx, id, price) }); err != nil {
		return nil, storageError("update menu item price", err)
	}
	s.logger.Info("menu item repriced", zap.String("menu_item_id", id), zap.String("price", price.StringFixed(2)))

	return s.GetMenuItem(ctx, id)
}

// Ping reports whether the order store is reachable.
func (s *OrderService) Ping(ctx context.Context) error {
	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()
	return s.db.Ping(storeCtx)
}

func checkMenuPrice(price decimal.Decimal) error {
	switch {
	case price.IsNegative():
		return invalid("price", "must not be negative")
	case !pricing.InRange(price):
		return invalid("price", "must be less than %s", pricing.MaxAmount)
	case !pricing.IsWholeCents(price):
		return invalid("price", "must be in whole cents")
	}
	return nil
}
