package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/food-truck-pos/internal/core/domain"
)

// claimRequest reserves a request id. It returns the stored order when the
// same request already completed. If the cache is unreachable the request
// proceeds unprotected.
func (s *OrderService) claimRequest(ctx context.Context, key string) (*domain.Order, error) {
	ok, err := s.cache.SetIdempotency(ctx, key)
	if err != nil {
		s.logger.Warn("idempotency check failed, continuing without it", zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	if ok {
		return nil, nil
	}

	orderID, err := s.cache.GetIdempotency(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read idempotency result: %w: %w", ErrTransientStorage, err)
	}
	if orderID == "" {
		return nil, ErrDuplicateRequest
	}

	order, err := s.GetOrder(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrDuplicateRequest
	}
	return order, err
}

func (s *OrderService) releaseRequest(ctx context.Context, key string) {
	if err := s.cache.ReleaseIdempotency(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Error("CRITICAL idempotency release failed", zap.String("key", key), zap.Error(err))
	}
}
