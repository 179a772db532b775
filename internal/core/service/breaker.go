package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/rl1809/food-truck-pos/internal/core/domain"
)

func newStoreBreaker(failures uint32, openFor time.Duration, logger *zap.Logger) *gobreaker.CircuitBreaker[struct{}] {
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "order-store",
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Lookups that miss and lost races are answers from a healthy store.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, domain.ErrOrderNotFound) ||
				errors.Is(err, domain.ErrMenuItemNotFound) ||
				errors.Is(err, domain.ErrOrderNumberTaken) ||
				errors.Is(err, domain.ErrStaleWrite)
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// guard runs a store call through the breaker. A rejected call is reported
// as transient.
func (s *OrderService) guard(fn func() error) error {
	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrTransientStorage, err)
	}
	return err
}

// storageError maps repository errors onto the service error taxonomy.
func storageError(op string, err error) error {
	switch {
	case errors.Is(err, ErrTransientStorage):
		return err
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrMenuItemNotFound):
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	case errors.Is(err, domain.ErrOrderNumberTaken), errors.Is(err, domain.ErrStaleWrite):
		return fmt.Errorf("%s: %w: %w", op, ErrConflict, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrTransientStorage, err)
	}
}
