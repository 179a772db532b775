package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/food-truck-pos/internal/core/domain"
)

// Mock DatabaseRepository
type mockDB struct {
	mu        sync.Mutex
	orders    map[string]domain.Order
	numbers   map[string]bool
	menu      map[string]domain.MenuItem
	createErr error
	block     bool
	statusErr error

	createCalls int32
	listCalls   int32
}

func newMockDB(menu ...domain.MenuItem) *mockDB {
	m := &mockDB{
		orders:  make(map[string]domain.Order),
		numbers: make(map[string]bool),
		menu:    make(map[string]domain.MenuItem),
	}
	for _, item := range menu {
		m.menu[item.ID] = item
	}
	return m
}

func (m *mockDB) CreateOrder(ctx context.Context, order domain.Order) error {
	atomic.AddInt32(&m.createCalls, 1)
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if m.numbers[order.OrderNumber] {
		return domain.ErrOrderNumberTaken
	}
	for _, it := range order.Items {
		if _, ok := m.menu[it.ProductRef]; !ok {
			return domain.ErrMenuItemNotFound
		}
	}
	order.Items = append([]domain.OrderItem(nil), order.Items...)
	m.orders[order.ID] = order
	m.numbers[order.OrderNumber] = true
	return nil
}

func (m *mockDB) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return &o, nil
}

func (m *mockDB) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	atomic.AddInt32(&m.listCalls, 1)
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Order
	for _, o := range m.orders {
		if filter.Status == "" || o.Status == filter.Status {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *mockDB) UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusErr != nil {
		return m.statusErr
	}
	o, ok := m.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Status != from {
		return domain.ErrStaleWrite
	}
	o.Status = to
	m.orders[id] = o
	return nil
}

func (m *mockDB) UpdatePaymentStatus(ctx context.Context, id string, from, to domain.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.PaymentStatus != from {
		return domain.ErrStaleWrite
	}
	o.PaymentStatus = to
	m.orders[id] = o
	return nil
}

func (m *mockDB) CreateMenuItem(ctx context.Context, item domain.MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.menu[item.ID] = item
	return nil
}

func (m *mockDB) GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.menu[id]
	if !ok {
		return nil, domain.ErrMenuItemNotFound
	}
	return &item, nil
}

func (m *mockDB) ListMenuItems(ctx context.Context) ([]domain.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.MenuItem
	for _, item := range m.menu {
		out = append(out, item)
	}
	return out, nil
}

func (m *mockDB) UpdateMenuItemPrice(ctx context.Context, id string, price decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.menu[id]
	if !ok {
		return domain.ErrMenuItemNotFound
	}
	item.Price = price
	m.menu[id] = item
	return nil
}

func (m *mockDB) Ping(ctx context.Context) error {
	return nil
}

func (m *mockDB) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// Mock CacheRepository
type mockCache struct {
	mu      sync.Mutex
	keys    map[string]string
	lists   map[string][]byte
	version int64
}

func newMockCache() *mockCache {
	return &mockCache{
		keys:  make(map[string]string),
		lists: make(map[string][]byte),
	}
}

func (c *mockCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.keys[key]; ok {
		return false, nil
	}
	c.keys[key] = ""
	return true, nil
}

func (c *mockCache) CompleteIdempotency(ctx context.Context, key, result string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.keys[key]; ok && v == "" {
		c.keys[key] = result
	}
	return nil
}

func (c *mockCache) GetIdempotency(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keys[key], nil
}

func (c *mockCache) ReleaseIdempotency(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, key)
	return nil
}

func (c *mockCache) GetOrderList(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.lists[key]
	return data, ok, nil
}

func (c *mockCache) SetOrderList(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[key] = payload
	return nil
}

func (c *mockCache) OrderListVersion(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version, nil
}

func (c *mockCache) BumpOrderListVersion(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	return nil
}

func (c *mockCache) hasKey(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.keys[key]
	return ok
}
