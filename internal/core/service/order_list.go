package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/food-truck-pos/internal/core/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// ListOrders returns the newest orders, optionally in one status. Results
// are cached under a version counter that every write bumps.
func (s *OrderService) ListOrders(ctx context.Context, status string, limit int) ([]domain.Order, error) {
	filter := domain.OrderFilter{Limit: limit}
	if status != "" {
		st, err := domain.ParseOrderStatus(status)
		if err != nil {
			return nil, invalid("status", "must be one of pending, preparing, ready, completed, cancelled")
		}
		filter.Status = st
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		return nil, invalid("limit", "must be at most %d", maxListLimit)
	}

	if s.cache == nil {
		return s.listFromStore(ctx, filter)
	}

	version, err := s.cache.OrderListVersion(ctx)
	if err != nil {
		s.logger.Warn("order list cache unavailable", zap.Error(err))
		return s.listFromStore(ctx, filter)
	}
	key := fmt.Sprintf("orders:list:v%d:%s:%d", version, filter.Status, filter.Limit)

	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		data, ok, err := s.cache.GetOrderList(ctx, key)
		if err != nil {
			s.logger.Warn("order list cache get failed", zap.String("key", key), zap.Error(err))
		}
		if ok {
			var orders []domain.Order
			if err := json.Unmarshal(data, &orders); err == nil {
				return orders, nil
			}
		}

		orders, err := s.listFromStore(ctx, filter)
		if err != nil {
			return nil, err
		}

		payload, err := json.Marshal(orders)
		if err == nil {
			err = s.cache.SetOrderList(context.WithoutCancel(ctx), key, payload, s.listTTL())
		}
		if err != nil {
			s.logger.Warn("order list cache set failed", zap.String("key", key), zap.Error(err))
		}
		return orders, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Order), nil
}

func (s *OrderService) listFromStore(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	var orders []domain.Order
	err := s.guard(func() (err error) {
		orders, err = s.db.ListOrders(storeCtx, filter)
		return err
	})
	if err != nil {
		return nil, storageError("list orders", err)
	}
	return orders, nil
}

// listTTL adds up to 20% jitter so cached lists do not all expire together.
func (s *OrderService) listTTL() time.Duration {
	base := s.cfg.ListCacheTTL
	return base + time.Duration(rand.Int63n(int64(base)/5+1))
}

func (s *OrderService) invalidateOrderLists(ctx context.Context) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.BumpOrderListVersion(ctx); err != nil {
		s.logger.Warn("order list cache invalidate failed", zap.Error(err))
	}
}
