package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/food-truck-pos/internal/adapter/storage"
	"github.com/rl1809/food-truck-pos/internal/core/cart"
	"github.com/rl1809/food-truck-pos/internal/core/domain"
)

func newSQLiteService(t *testing.T) (*OrderService, *storage.SQLAdapter) {
	t.Helper()
	ctx := context.Background()
	db, err := storage.OpenDatabase(ctx, storage.DialectSQLite,
		storage.SQLiteDSN(filepath.Join(t.TempDir(), "pos.db")), storage.PoolConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.Migrate(ctx, db, storage.DialectSQLite))

	repo := storage.NewSQLAdapter(db)
	cfg := DefaultConfig()
	// every checkout queues on the single SQLite connection
	cfg.WriteTimeout = 5 * time.Minute
	return NewOrderService(repo, nil, cfg, zap.NewNop()), repo
}

func TestCheckout_ConcurrentCartsGetDistinctOrderNumbers(t *testing.T) {
	n := 10000
	if testing.Short() {
		n = 500
	}

	svc, _ := newSQLiteService(t)
	ctx := context.Background()
	burger, err := svc.CreateMenuItem(ctx, "Burger", dec("8.50"))
	require.NoError(t, err)
	fries, err := svc.CreateMenuItem(ctx, "Fries", dec("3.00"))
	require.NoError(t, err)

	numbers := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := cart.New(svc.TaxRate())
			if err := c.AddItem(productOf(*burger), cart.WithQuantity(1+i%3)); err != nil {
				errs[i] = err
				return
			}
			if err := c.AddItem(productOf(*fries)); err != nil {
				errs[i] = err
				return
			}
			order, err := svc.Checkout(ctx, domain.SourceStaff, c, OrderDetails{PaymentMethod: domain.PaymentMethodCard})
			if err != nil {
				errs[i] = err
				return
			}
			numbers[i] = order.OrderNumber
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i := range numbers {
		require.NoError(t, errs[i])
		require.False(t, seen[numbers[i]], "duplicate order number %s", numbers[i])
		seen[numbers[i]] = true
	}
	assert.Len(t, seen, n)

	orders, err := svc.ListOrders(ctx, "pending", maxListLimit)
	require.NoError(t, err)
	for _, o := range orders {
		assert.Len(t, o.Items, 2)
	}
}

func TestCheckout_MenuRepriceAfterOrderOnSQLite(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()

	burger, err := svc.CreateMenuItem(ctx, "Burger", dec("8.50"))
	require.NoError(t, err)

	c := cart.New(svc.TaxRate())
	require.NoError(t, c.AddItem(productOf(*burger), cart.WithQuantity(2)))
	order, err := svc.Checkout(ctx, domain.SourceStaff, c, OrderDetails{PaymentMethod: domain.PaymentMethodCash})
	require.NoError(t, err)
	assert.Equal(t, "18.49", order.Total.StringFixed(2))

	_, err = svc.UpdateMenuItemPrice(ctx, burger.ID, dec("9.75"))
	require.NoError(t, err)

	stored, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "17.00", stored.Subtotal.StringFixed(2))
	assert.Equal(t, "1.49", stored.Tax.StringFixed(2))
	assert.Equal(t, "18.49", stored.Total.StringFixed(2))
	assert.Equal(t, "8.50", stored.Items[0].UnitPrice.StringFixed(2))
}

func TestCheckout_MissingProductLeavesNoOrderOnSQLite(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()

	burger, err := svc.CreateMenuItem(ctx, "Burger", dec("8.50"))
	require.NoError(t, err)

	c := cart.New(svc.TaxRate())
	require.NoError(t, c.AddItem(productOf(*burger)))
	require.NoError(t, c.AddItem(cart.Product{Ref: "retired-item", Name: "Retired", Price: dec("4.00")}))

	_, err = svc.Checkout(ctx, domain.SourceStaff, c, OrderDetails{PaymentMethod: domain.PaymentMethodCash})
	require.ErrorIs(t, err, ErrNotFound)

	orders, err := svc.ListOrders(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, 2, c.Len())
}
