package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/rl1809/food-truck-pos/internal/core/domain"
)

const (
	mysqlDuplicateEntry = 1062
	defaultListLimit    = 100
)

// SQLAdapter implements port.DatabaseRepository over MySQL or SQLite. Both
// accept ? placeholders so the queries are shared.
type SQLAdapter struct {
	db *sql.DB
}

func NewSQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db}
}

func (a *SQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, order_number, status, order_type, payment_method, payment_status,
			subtotal, tax, total, customer_name, customer_email, customer_phone, notes,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.OrderNumber, order.Status, order.OrderType, order.PaymentMethod, order.PaymentStatus,
		order.Subtotal.StringFixed(2), order.Tax.StringFixed(2), order.Total.StringFixed(2),
		order.CustomerName, order.CustomerEmail, order.CustomerPhone, order.Notes,
		order.CreatedAt.UTC(), order.UpdatedAt.UTC(),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return domain.ErrOrderNumberTaken
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM menu_items WHERE id = ?`, item.ProductRef).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("order item %q: %w", item.ProductRef, domain.ErrMenuItemNotFound)
		}
		if err != nil {
			return fmt.Errorf("check menu item: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, menu_item_id, quantity, unit_price, total_price,
				special_instructions, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, order.ID, item.ProductRef, item.Quantity,
			item.UnitPrice.StringFixed(2), item.TotalPrice.StringFixed(2),
			item.SpecialInstructions, item.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit()
}

const orderColumns = `id, order_number, status, order_type, payment_method, payment_status,
	subtotal, tax, total, customer_name, customer_email, customer_phone, notes, created_at, updated_at`

func (a *SQLAdapter) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	row := a.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	items, err := a.loadItems(ctx, []string{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	return &order, nil
}

func (a *SQLAdapter) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	items, err := a.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (a *SQLAdapter) loadItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(orderIDs)), ",")
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT id, order_id, menu_item_id, quantity, unit_price, total_price, special_instructions, created_at
		FROM order_items WHERE order_id IN (`+placeholders+`)
		ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductRef, &it.Quantity,
			&it.UnitPrice, &it.TotalPrice, &it.SpecialInstructions, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items[it.OrderID] = append(items[it.OrderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

// UpdateOrderStatus is a compare-and-set on the current status.
func (a *SQLAdapter) UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	result, err := a.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		to, time.Now().UTC(), id, from,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return a.checkCAS(ctx, result, id)
}

func (a *SQLAdapter) UpdatePaymentStatus(ctx context.Context, id string, from, to domain.PaymentStatus) error {
	result, err := a.db.ExecContext(ctx, `
		UPDATE orders SET payment_status = ?, updated_at = ?
		WHERE id = ? AND payment_status = ?`,
		to, time.Now().UTC(), id, from,
	)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return a.checkCAS(ctx, result, id)
}

// checkCAS tells a lost race apart from a missing row when nothing was updated.
func (a *SQLAdapter) checkCAS(ctx context.Context, result sql.Result, id string) error {
	rows, _ := result.RowsAffected()
	if rows > 0 {
		return nil
	}

	var exists int
	err := a.db.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("query order: %w", err)
	}
	return domain.ErrStaleWrite
}

func (a *SQLAdapter) CreateMenuItem(ctx context.Context, item domain.MenuItem) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO menu_items (id, name, price, is_available, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Price.StringFixed(2), item.IsAvailable,
		item.CreatedAt.UTC(), item.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert menu item: %w", err)
	}
	return nil
}

func (a *SQLAdapter) GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	var m domain.MenuItem
	err := a.db.QueryRowContext(ctx, `
		SELECT id, name, price, is_available, created_at, updated_at
		FROM menu_items WHERE id = ?`, id,
	).Scan(&m.ID, &m.Name, &m.Price, &m.IsAvailable, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMenuItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query menu item: %w", err)
	}
	return &m, nil
}

func (a *SQLAdapter) ListMenuItems(ctx context.Context) ([]domain.MenuItem, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, name, price, is_available, created_at, updated_at
		FROM menu_items ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query menu items: %w", err)
	}
	defer rows.Close()

	var items []domain.MenuItem
	for rows.Next() {
		var m domain.MenuItem
		if err := rows.Scan(&m.ID, &m.Name, &m.Price, &m.IsAvailable, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate menu items: %w", err)
	}
	return items, nil
}

func (a *SQLAdapter) UpdateMenuItemPrice(ctx context.Context, id string, price decimal.Decimal) error {
	result, err := a.db.ExecContext(ctx, `
		UPDATE menu_items SET price = ?, updated_at = ? WHERE id = ?`,
		price.StringFixed(2), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update menu item price: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrMenuItemNotFound
	}
	return nil
}

func (a *SQLAdapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(s rowScanner) (domain.Order, error) {
	var o domain.Order
	err := s.Scan(&o.ID, &o.OrderNumber, &o.Status, &o.OrderType, &o.PaymentMethod, &o.PaymentStatus,
		&o.Subtotal, &o.Tax, &o.Total, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
