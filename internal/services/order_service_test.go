package services_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"mercadito/internal/cart"
	"mercadito/internal/domain"
	"mercadito/internal/repos"
	"mercadito/internal/services"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// One connection: keeps :memory: coherent and serializes writers.
	db.SetMaxOpenConns(1)
	schema := `
	CREATE TABLE products(id TEXT PRIMARY KEY, category_id TEXT, owner_id TEXT,
	  title TEXT, description TEXT, price NUMERIC, quantity INTEGER,
	  image TEXT, active INTEGER DEFAULT 1,
	  created_at TEXT DEFAULT CURRENT_TIMESTAMP, updated_at TEXT);
	CREATE TABLE orders(id TEXT PRIMARY KEY, user_id TEXT, total NUMERIC,
	  status TEXT, created_at TEXT DEFAULT CURRENT_TIMESTAMP, updated_at TEXT);
	CREATE TABLE order_items(id TEXT PRIMARY KEY, order_id TEXT,
	  product_id TEXT, quantity INTEGER, price NUMERIC);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedProduct(t *testing.T, db *sqlx.DB, id string, price float64, qty int) {
	t.Helper()
	_, err := db.Exec(`
	  INSERT INTO products(id,category_id,owner_id,title,price,quantity)
	  VALUES(?,?,?,?,?,?)`, id, "ceramics", "u-vera", "Product "+id, price, qty)
	if err != nil {
		t.Fatal(err)
	}
}

func stock(t *testing.T, db *sqlx.DB, id string) int {
	t.Helper()
	var qty int
	if err := db.Get(&qty, `SELECT quantity FROM products WHERE id=?`, id); err != nil {
		t.Fatal(err)
	}
	return qty
}

func addN(c *cart.Cart, productID string, n int) {
	for i := 0; i < n; i++ {
		c.Add(productID)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	db := memdb(t)
	svc := services.NewOrderService(repos.NewOrderRepo(db))

	_, err := svc.Checkout(cart.New(), "u-alice")
	require.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestCheckoutConservation(t *testing.T) {
	db := memdb(t)
	seedProduct(t, db, "mug-azul", 18.50, 12)
	svc := services.NewOrderService(repos.NewOrderRepo(db))

	c := cart.New()
	addN(c, "mug-azul", 2)

	o, err := svc.Checkout(c, "u-alice")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPaid, o.Status)
	assert.Equal(t, 37.0, o.Total)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, 18.50, o.Items[0].Price)
	assert.Equal(t, 10, stock(t, db, "mug-azul"), "stock s-q after checkout of q")
	assert.Equal(t, 0, c.Len(), "cart cleared after commit")
}

// Insufficient stock on ANY line rolls back the entire checkout: no order,
// no items, no stock movement on the lines that would have fit.
func TestCheckoutInsufficientStockIsAtomic(t *testing.T) {
	db := memdb(t)
	seedProduct(t, db, "bowl-terra", 42.0, 4)
	seedProduct(t, db, "rug-rayas", 139.0, 2)
	svc := services.NewOrderService(repos.NewOrderRepo(db))

	c := cart.New()
	addN(c, "bowl-terra", 2)
	addN(c, "rug-rayas", 3) // exceeds stock

	_, err := svc.Checkout(c, "u-alice")
	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "rug-rayas", stockErr.ProductID)

	// full state diff: nothing changed
	assert.Equal(t, 4, stock(t, db, "bowl-terra"))
	assert.Equal(t, 2, stock(t, db, "rug-rayas"))
	var orders, items int
	require.NoError(t, db.Get(&orders, `SELECT COUNT(*) FROM orders`))
	require.NoError(t, db.Get(&items, `SELECT COUNT(*) FROM order_items`))
	assert.Zero(t, orders)
	assert.Zero(t, items)
	assert.Equal(t, 2, c.Len(), "failed checkout keeps the cart intact")
}

// A product deleted between add-to-cart and checkout is dropped silently
// rather than aborting the order. Intentional leniency carried over from
// the source system; arguably a product-requirements gap, so pinned here.
func TestCheckoutDropsVanishedProductSilently(t *testing.T) {
	db := memdb(t)
	seedProduct(t, db, "mug-azul", 18.50, 12)
	seedProduct(t, db, "board-olivo", 35.0, 7)
	svc := services.NewOrderService(repos.NewOrderRepo(db))

	c := cart.New()
	addN(c, "mug-azul", 1)
	addN(c, "board-olivo", 2)

	_, err := db.Exec(`DELETE FROM products WHERE id='board-olivo'`)
	require.NoError(t, err)

	o, err := svc.Checkout(c, "u-alice")
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "mug-azul", o.Items[0].ProductID)
	assert.Equal(t, 18.50, o.Total, "total reflects surviving items only")
}

func TestOrderTotalIsAPriceSnapshot(t *testing.T) {
	db := memdb(t)
	seedProduct(t, db, "miel-flor", 9.75, 20)
	svc := services.NewOrderService(repos.NewOrderRepo(db))

	c := cart.New()
	addN(c, "miel-flor", 2)
	o, err := svc.Checkout(c, "u-alice")
	require.NoError(t, err)
	require.Equal(t, 19.50, o.Total)

	_, err = db.Exec(`UPDATE products SET price=99.0 WHERE id='miel-flor'`)
	require.NoError(t, err)

	got, err := svc.Get(o.ID)
	require.NoError(t, err)
	assert.Equal(t, 19.50, got.Total)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 9.75, got.Items[0].Price, "item price immune to catalog changes")
}

func TestCheckoutUsesLatestPriceNotAddTimePrice(t *testing.T) {
	db := memdb(t)
	seedProduct(t, db, "mug-azul", 18.50, 12)
	svc := services.NewOrderService(repos.NewOrderRepo(db))

	c := cart.New()
	addN(c, "mug-azul", 1)

	// price change between add and checkout
	_, err := db.Exec(`UPDATE products SET price=20.0 WHERE id='mug-azul'`)
	require.NoError(t, err)

	o, err := svc.Checkout(c, "u-alice")
	require.NoError(t, err)
	assert.Equal(t, 20.0, o.Total)
}

func TestCancelRestoresStockExactlyOnce(t *testing.T) {
	db := memdb(t)
	seedProduct(t, db, "bowl-terra", 42.0, 4)
	seedProduct(t, db, "rug-rayas", 139.0, 2)
	svc := services.NewOrderService(repos.NewOrderRepo(db))

	c := cart.New()
	addN(c, "bowl-terra", 2)
	addN(c, "rug-rayas", 1)
	o, err := svc.Checkout(c, "u-alice")
	require.NoError(t, err)
	require.Equal(t, 2, stock(t, db, "bowl-terra"))
	require.Equal(t, 1, stock(t, db, "rug-rayas"))

	_, err = svc.SetStatus(o.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, 4, stock(t, db, "bowl-terra"))
	assert.Equal(t, 2, stock(t, db, "rug-rayas"))

	// double-cancel is a stock no-op
	_, err = svc.SetStatus(o.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, 4, stock(t, db, "bowl-terra"))
	assert.Equal(t, 2, stock(t, db, "rug-rayas"))
}

func TestCancelSkipsVanishedProduct(t *testing.T) {
	db := memdb(t)
	seedProduct(t, db, "mug-azul", 18.50, 12)
	seedProduct(t, db, "board-olivo", 35.0, 7)
	svc := services.NewOrderService(repos.NewOrderRepo(db))

	c := cart.New()
	addN(c, "mug-azul", 3)
	addN(c, "board-olivo", 1)
	o, err := svc.Checkout(c, "u-alice")
	require.NoError(t, err)

	_, err = db.Exec(`DELETE FROM products WHERE id='board-olivo'`)
	require.NoError(t, err)

	_, err = svc.SetStatus(o.ID, "cancelled")
	require.NoError(t, err, "missing product must not fail the cancellation")
	assert.Equal(t, 12, stock(t, db, "mug-azul"), "surviving product restored")
}

func TestInvalidStatusValueLeavesOrderUntouched(t *testing.T) {
	db := memdb(t)
	seedProduct(t, db, "mug-azul", 18.50, 12)
	svc := services.NewOrderService(repos.NewOrderRepo(db))

	c := cart.New()
	addN(c, "mug-azul", 1)
	o, err := svc.Checkout(c, "u-alice")
	require.NoError(t, err)

	_, err = svc.SetStatus(o.ID, "shipped-ish")
	var bad *domain.InvalidStatusError
	require.True(t, errors.As(err, &bad))
	assert.Equal(t, "shipped-ish", bad.Value)

	got, err := svc.Get(o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, got.Status)
}

func TestIllegalTransitionsRejected(t *testing.T) {
	db := memdb(t)
	seedProduct(t, db, "mug-azul", 18.50, 12)
	svc := services.NewOrderService(repos.NewOrderRepo(db))

	c := cart.New()
	addN(c, "mug-azul", 2)
	o, err := svc.Checkout(c, "u-alice")
	require.NoError(t, err)

	_, err = svc.SetStatus(o.ID, "shipped")
	require.NoError(t, err)

	// shipped is terminal: neither cancellation nor regression is allowed
	_, err = svc.SetStatus(o.ID, "cancelled")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = svc.SetStatus(o.ID, "paid")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	assert.Equal(t, 10, stock(t, db, "mug-azul"), "no stock movement on rejected transitions")
}

func TestSetStatusUnknownOrder(t *testing.T) {
	db := memdb(t)
	svc := services.NewOrderService(repos.NewOrderRepo(db))

	_, err := svc.SetStatus("no-such-order", "paid")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

// Two concurrent checkouts fighting over the last unit: the conditional
// decrement lets exactly one through.
func TestLastUnitRace(t *testing.T) {
	db := memdb(t)
	seedProduct(t, db, "rug-rayas", 139.0, 1)
	svc := services.NewOrderService(repos.NewOrderRepo(db))

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := cart.New()
			c.Add("rug-rayas")
			_, errs[i] = svc.Checkout(c, "u-alice")
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		var stockErr *domain.InsufficientStockError
		require.True(t, errors.As(err, &stockErr), "loser must fail with insufficient stock, got %v", err)
		lost++
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)
	assert.Equal(t, 0, stock(t, db, "rug-rayas"))

	var orders int
	require.NoError(t, db.Get(&orders, `SELECT COUNT(*) FROM orders`))
	assert.Equal(t, 1, orders)
}

func TestCancelOpenOrdersReturnsStock(t *testing.T) {
	db := memdb(t)
	seedProduct(t, db, "mug-azul", 18.50, 12)
	svc := services.NewOrderService(repos.NewOrderRepo(db))

	c := cart.New()
	addN(c, "mug-azul", 4)
	o, err := svc.Checkout(c, "u-bruno")
	require.NoError(t, err)
	require.Equal(t, 8, stock(t, db, "mug-azul"))

	require.NoError(t, svc.CancelOpenOrders("u-bruno"))
	assert.Equal(t, 12, stock(t, db, "mug-azul"))

	got, err := svc.Get(o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
}
