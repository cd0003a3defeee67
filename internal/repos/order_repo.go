package repos

import (
	"database/sql"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"mercadito/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

// ---------- Admin / history listings ----------

type OrderSummary struct {
	ID        string  `db:"id"`
	UserID    string  `db:"user_id"`
	Total     float64 `db:"total"`
	Status    string  `db:"status"`
	CreatedAt string  `db:"created_at"`
}

// CreateFromLines converts desired quantities into a committed order in a
// single transaction: fetch each live product (a vanished product is
// dropped silently, as if never added), conditionally decrement its stock,
// snapshot its current price, then write the order and its items. Any line
// whose conditional decrement touches zero rows aborts the whole order, so
// either everything commits or nothing does. Two concurrent checkouts for
// the last unit resolve to exactly one winner via the qty guard.
func (r *OrderRepo) CreateFromLines(orderID, userID string, desired map[string]int) (domain.Order, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return domain.Order{}, err
	}
	defer func() { _ = tx.Rollback() }()

	// Stable order keeps failures deterministic.
	ids := make([]string, 0, len(desired))
	for id := range desired {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var (
		total float64
		items []domain.OrderItem
	)
	for _, pid := range ids {
		qty := desired[pid]
		if qty < 1 {
			continue
		}

		var live struct {
			ID    string  `db:"id"`
			Price float64 `db:"price"`
		}
		err := tx.Get(&live, `SELECT id, price FROM products WHERE id = ?`, pid)
		if errors.Is(err, sql.ErrNoRows) {
			continue // product vanished between add and checkout
		}
		if err != nil {
			return domain.Order{}, err
		}

		res, err := tx.Exec(`
			UPDATE products
			SET quantity = quantity - ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND quantity >= ?
		`, qty, pid, qty)
		if err != nil {
			return domain.Order{}, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.Order{}, &domain.InsufficientStockError{ProductID: pid}
		}

		total += live.Price * float64(qty)
		items = append(items, domain.OrderItem{
			ID:        uuid.NewString(),
			OrderID:   orderID,
			ProductID: pid,
			Quantity:  qty,
			Price:     live.Price,
		})
	}

	if _, err := tx.Exec(`
		INSERT INTO orders(id, user_id, total, status, created_at)
		VALUES(?, ?, ?, 'paid', CURRENT_TIMESTAMP)
	`, orderID, userID, total); err != nil {
		return domain.Order{}, err
	}
	for _, it := range items {
		if _, err := tx.Exec(`
			INSERT INTO order_items(id, order_id, product_id, quantity, price)
			VALUES(?, ?, ?, ?, ?)
		`, it.ID, it.OrderID, it.ProductID, it.Quantity, it.Price); err != nil {
			return domain.Order{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Order{}, err
	}
	return domain.Order{
		ID:     orderID,
		UserID: userID,
		Total:  total,
		Status: domain.StatusPaid,
		Items:  items,
	}, nil
}

// Transition moves an order to the next status inside one transaction.
// Entering cancelled restores each item's quantity to its product exactly
// once; an item whose product no longer exists is skipped. The status field
// is written last so a failed restoration never leaves an order falsely
// marked cancelled.
func (r *OrderRepo) Transition(orderID string, next domain.Status) (domain.Order, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return domain.Order{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var o domain.Order
	err = tx.Get(&o, `
		SELECT id, user_id, total, status, created_at, COALESCE(updated_at,'') AS updated_at
		FROM orders WHERE id = ?
	`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}

	if !domain.CanTransition(o.Status, next) {
		return domain.Order{}, domain.ErrInvalidTransition
	}

	if next == domain.StatusCancelled && o.Status != domain.StatusCancelled {
		var items []domain.OrderItem
		if err := tx.Select(&items, `
			SELECT id, order_id, product_id, quantity, price
			FROM order_items WHERE order_id = ?
		`, orderID); err != nil {
			return domain.Order{}, err
		}
		for _, it := range items {
			// Zero rows here means the product was deleted since the
			// purchase; its stock is simply gone, matching checkout's
			// leniency toward vanished products.
			if _, err := tx.Exec(`
				UPDATE products
				SET quantity = quantity + ?, updated_at = CURRENT_TIMESTAMP
				WHERE id = ?
			`, it.Quantity, it.ProductID); err != nil {
				return domain.Order{}, err
			}
		}
	}

	if _, err := tx.Exec(`
		UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, next, orderID); err != nil {
		return domain.Order{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Order{}, err
	}
	o.Status = next
	return o, nil
}

// ---------- Reads ----------

func (r *OrderRepo) Get(orderID string) (domain.Order, error) {
	var o domain.Order
	err := r.db.Get(&o, `
		SELECT id, user_id, total, status, created_at, COALESCE(updated_at,'') AS updated_at
		FROM orders WHERE id = ?
	`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}
	if err := r.db.Select(&o.Items, `
		SELECT id, order_id, product_id, quantity, price
		FROM order_items
		WHERE order_id = ?
		ORDER BY product_id
	`, orderID); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *OrderRepo) ListLatest(limit int) ([]OrderSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []OrderSummary
	err := r.db.Select(&out, `
		SELECT id, user_id, total, status, created_at
		FROM orders
		ORDER BY datetime(created_at) DESC
		LIMIT ?
	`, limit)
	return out, err
}

func (r *OrderRepo) ListByUser(userID string) ([]OrderSummary, error) {
	var out []OrderSummary
	err := r.db.Select(&out, `
		SELECT id, user_id, total, status, created_at
		FROM orders
		WHERE user_id = ?
		ORDER BY datetime(created_at) DESC
	`, userID)
	return out, err
}

// OpenOrderIDs lists a user's orders still in a non-terminal state, used
// when an admin removes the account and their orders get cancelled through
// the status machine.
func (r *OrderRepo) OpenOrderIDs(userID string) ([]string, error) {
	var out []string
	err := r.db.Select(&out, `
		SELECT id FROM orders
		WHERE user_id = ? AND status IN ('pending','paid')
	`, userID)
	return out, err
}
