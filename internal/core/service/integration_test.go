package service_test

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/food-truck-pos/internal/adapter/storage"
	"github.com/rl1809/food-truck-pos/internal/core/cart"
	"github.com/rl1809/food-truck-pos/internal/core/domain"
	"github.com/rl1809/food-truck-pos/internal/core/service"
)

// These tests need a live MySQL and Redis and skip otherwise.

type testEnv struct {
	redis   *redis.Client
	mysql   *sql.DB
	cache   *storage.RedisAdapter
	db      *storage.SQLAdapter
	svc     *service.OrderService
	cleanup func()
}

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		t.Skip("MYSQL_DSN not set")
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	ctx := context.Background()
	db, err := storage.OpenDatabase(ctx, storage.DialectMySQL, mysqlDSN, storage.PoolConfig{
		MaxOpenConns:    20,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		rdb.Close()
		t.Skipf("MySQL not available: %v", err)
	}
	if err := storage.Migrate(ctx, db, storage.DialectMySQL); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cache := storage.NewRedisAdapter(rdb)
	repo := storage.NewSQLAdapter(db)
	return &testEnv{
		redis: rdb,
		mysql: db,
		cache: cache,
		db:    repo,
		svc:   service.NewOrderService(repo, cache, service.DefaultConfig(), zap.NewNop()),
		cleanup: func() {
			rdb.Close()
			db.Close()
		},
	}
}

func (env *testEnv) menuItem(t *testing.T, price string) *domain.MenuItem {
	item, err := env.svc.CreateMenuItem(context.Background(), "integration-"+uuid.NewString()[:8], decimal.RequireFromString(price))
	if err != nil {
		t.Fatalf("create menu item: %v", err)
	}
	return item
}

func (env *testEnv) ordersFor(t *testing.T, menuItemID string) int {
	var n int
	err := env.mysql.QueryRowContext(context.Background(),
		`SELECT COUNT(DISTINCT order_id) FROM order_items WHERE menu_item_id = ?`, menuItemID).Scan(&n)
	if err != nil {
		t.Fatalf("count orders: %v", err)
	}
	return n
}

func product(item *domain.MenuItem) cart.Product {
	return cart.Product{Ref: item.ID, Name: item.Name, Price: item.Price}
}

func TestIntegration_ConcurrentCheckouts(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	burger := env.menuItem(t, "8.50")

	var successCount atomic.Int32
	var mu sync.Mutex
	numbers := make(map[string]bool)
	var wg sync.WaitGroup
	totalRequests := 200

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := cart.New(env.svc.TaxRate())
			if err := c.AddItem(product(burger), cart.WithQuantity(2)); err != nil {
				t.Errorf("add item: %v", err)
				return
			}
			order, err := env.svc.Checkout(ctx, domain.SourceStaff, c, service.OrderDetails{
				RequestID:     uuid.NewString(),
				PaymentMethod: domain.PaymentMethodCash,
			})
			if err != nil {
				t.Errorf("checkout: %v", err)
				return
			}
			successCount.Add(1)
			mu.Lock()
			numbers[order.OrderNumber] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if successCount.Load() != int32(totalRequests) {
		t.Errorf("expected %d successful checkouts, got %d", totalRequests, successCount.Load())
	}
	if len(numbers) != totalRequests {
		t.Errorf("expected %d distinct order numbers, got %d", totalRequests, len(numbers))
	}
	if n := env.ordersFor(t, burger.ID); n != totalRequests {
		t.Errorf("expected %d orders in MySQL, got %d", totalRequests, n)
	}
}

func TestIntegration_RollbackOnMissingProduct(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	fries := env.menuItem(t, "3.00")
	requestID := uuid.NewString()

	c := cart.New(env.svc.TaxRate())
	if err := c.AddItem(product(fries)); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if err := c.AddItem(cart.Product{Ref: "missing-" + uuid.NewString()[:8], Name: "Ghost", Price: decimal.RequireFromString("1.00")}); err != nil {
		t.Fatalf("add item: %v", err)
	}

	_, err := env.svc.Checkout(ctx, domain.SourceStaff, c, service.OrderDetails{
		RequestID:     requestID,
		PaymentMethod: domain.PaymentMethodCard,
	})
	if err == nil {
		t.Fatal("expected checkout to fail")
	}
	if c.Len() != 2 {
		t.Errorf("cart must be kept after a failed checkout, has %d lines", c.Len())
	}
	if n := env.ordersFor(t, fries.ID); n != 0 {
		t.Errorf("expected no orders after rollback, got %d", n)
	}

	// the claim is released so the customer can retry with the same request id
	exists, _ := env.redis.Exists(ctx, "checkout:"+requestID).Result()
	if exists != 0 {
		t.Errorf("expected idempotency key to be released")
	}
}

func TestIntegration_IdempotencyReturnsSameOrder(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	taco := env.menuItem(t, "4.25")
	requestID := "same-request-id-" + uuid.NewString()
	defer env.redis.Del(ctx, "checkout:"+requestID)

	checkout := func() (*domain.Order, error) {
		c := cart.New(env.svc.TaxRate())
		if err := c.AddItem(product(taco)); err != nil {
			return nil, err
		}
		return env.svc.Checkout(ctx, domain.SourcePublic, c, service.OrderDetails{
			RequestID:     requestID,
			CustomerName:  "Integration",
			PaymentMethod: domain.PaymentMethodCard,
		})
	}

	first, err := checkout()
	if err != nil {
		t.Fatalf("first checkout failed: %v", err)
	}

	second, err := checkout()
	if err != nil {
		t.Fatalf("second checkout failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected the same order %s, got %s", first.ID, second.ID)
	}
	if n := env.ordersFor(t, taco.ID); n != 1 {
		t.Errorf("expected 1 order in MySQL, got %d", n)
	}
}
