package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/food-truck-pos/internal/adapter/storage"
	"github.com/rl1809/food-truck-pos/internal/core/cart"
	"github.com/rl1809/food-truck-pos/internal/core/domain"
	"github.com/rl1809/food-truck-pos/internal/core/service"
)

func main() {
	totalCheckouts := flag.Int("n", 10000, "number of concurrent checkouts")
	driver := flag.String("driver", "sqlite", "database driver: sqlite or mysql")
	dsn := flag.String("dsn", "", "database DSN; defaults to a temporary SQLite file")
	flag.Parse()

	ctx := context.Background()

	if *dsn == "" {
		if *driver != string(storage.DialectSQLite) {
			log.Fatal("-dsn is required for mysql")
		}
		dir, err := os.MkdirTemp("", "pos-stress-*")
		if err != nil {
			log.Fatalf("failed to create temp dir: %v", err)
		}
		defer os.RemoveAll(dir)
		*dsn = storage.SQLiteDSN(filepath.Join(dir, "pos.db"))
	}

	// Initialize database
	dialect := storage.Dialect(*driver)
	db, err := storage.OpenDatabase(ctx, dialect, *dsn, storage.PoolConfig{MaxOpenConns: 50, MaxIdleConns: 25, ConnMaxLifetime: 5 * time.Minute})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	if err := storage.Migrate(ctx, db, dialect); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	cfg := service.DefaultConfig()
	cfg.WriteTimeout = 5 * time.Minute
	orderService := service.NewOrderService(storage.NewSQLAdapter(db), nil, cfg, zap.NewNop())

	burger, err := orderService.CreateMenuItem(ctx, "Stress Burger", decimal.RequireFromString("8.50"))
	if err != nil {
		log.Fatalf("failed to create menu item: %v", err)
	}
	fries, err := orderService.CreateMenuItem(ctx, "Stress Fries", decimal.RequireFromString("3.00"))
	if err != nil {
		log.Fatalf("failed to create menu item: %v", err)
	}

	// Counters
	var successCount atomic.Int32
	var failCount atomic.Int32
	var mu sync.Mutex
	numbers := make(map[string]struct{}, *totalCheckouts)

	// Spawn concurrent checkouts, one cart each
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *totalCheckouts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			c := cart.New(orderService.TaxRate())
			if err := c.AddItem(cart.Product{Ref: burger.ID, Name: burger.Name, Price: burger.Price}, cart.WithQuantity(1+i%3)); err != nil {
				failCount.Add(1)
				return
			}
			if err := c.AddItem(cart.Product{Ref: fries.ID, Name: fries.Name, Price: fries.Price}); err != nil {
				failCount.Add(1)
				return
			}

			order, err := orderService.Checkout(ctx, domain.SourceStaff, c, service.OrderDetails{PaymentMethod: domain.PaymentMethodCash})
			if err != nil {
				failCount.Add(1)
				return
			}
			successCount.Add(1)
			mu.Lock()
			numbers[order.OrderNumber] = struct{}{}
			mu.Unlock()
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Driver:           %s\n", *driver)
	fmt.Printf("Total Checkouts:  %d\n", *totalCheckouts)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Distinct Numbers: %d\n", len(numbers))
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	// Assertions
	if int(success) == *totalCheckouts && len(numbers) == *totalCheckouts {
		fmt.Println("PASS: every checkout got its own order number")
	} else {
		fmt.Printf("FAIL: expected %d orders with distinct numbers, got %d orders and %d numbers\n",
			*totalCheckouts, success, len(numbers))
	}

	// Verify stored orders
	orders, err := orderService.ListOrders(ctx, string(domain.OrderStatusPending), 1)
	if err != nil {
		log.Fatalf("failed to list orders: %v", err)
	}
	if len(orders) == 1 && orders[0].Subtotal.IsPositive() {
		fmt.Printf("Latest order:     %s total %s\n", orders[0].OrderNumber, orders[0].Total.StringFixed(2))
	}
}
