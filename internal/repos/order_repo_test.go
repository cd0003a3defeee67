package repos

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercadito/internal/domain"
)

func mockdb(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	db := sqlx.NewDb(raw, "sqlmock")
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// A write failure after the stock decrement must roll the transaction back:
// the decrement never becomes visible without its order row.
func TestCreateFromLinesRollsBackOnWriteFailure(t *testing.T) {
	db, mock := mockdb(t)
	repo := NewOrderRepo(db)

	boom := errors.New("disk full")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, price FROM products`).
		WithArgs("mug-azul").
		WillReturnRows(sqlmock.NewRows([]string{"id", "price"}).AddRow("mug-azul", 18.50))
	mock.ExpectExec(`UPDATE products`).
		WithArgs(2, "mug-azul", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO orders`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO order_items`).
		WillReturnError(boom)
	mock.ExpectRollback()

	_, err := repo.CreateFromLines("ord-1", "u-alice", map[string]int{"mug-azul": 2})
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFromLinesRollsBackWhenDecrementMissesStock(t *testing.T) {
	db, mock := mockdb(t)
	repo := NewOrderRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, price FROM products`).
		WithArgs("rug-rayas").
		WillReturnRows(sqlmock.NewRows([]string{"id", "price"}).AddRow("rug-rayas", 139.0))
	// qty guard matched no row: someone else took the stock
	mock.ExpectExec(`UPDATE products`).
		WithArgs(3, "rug-rayas", 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.CreateFromLines("ord-1", "u-alice", map[string]int{"rug-rayas": 3})
	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "rug-rayas", stockErr.ProductID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Cancelling must restore stock before the status write; if a restore update
// errors, the status stays as it was.
func TestTransitionRollsBackWhenRestoreFails(t *testing.T) {
	db, mock := mockdb(t)
	repo := NewOrderRepo(db)

	boom := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, user_id, total, status`).
		WithArgs("ord-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "total", "status", "created_at", "updated_at"}).
			AddRow("ord-1", "u-alice", 37.0, "paid", "2026-01-01 00:00:00", ""))
	mock.ExpectQuery(`SELECT id, order_id, product_id, quantity, price`).
		WithArgs("ord-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "quantity", "price"}).
			AddRow("it-1", "ord-1", "mug-azul", 2, 18.50))
	mock.ExpectExec(`UPDATE products`).
		WithArgs(2, "mug-azul").
		WillReturnError(boom)
	mock.ExpectRollback()

	_, err := repo.Transition("ord-1", domain.StatusCancelled)
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionRejectsIllegalMoveWithoutWriting(t *testing.T) {
	db, mock := mockdb(t)
	repo := NewOrderRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, user_id, total, status`).
		WithArgs("ord-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "total", "status", "created_at", "updated_at"}).
			AddRow("ord-1", "u-alice", 37.0, "shipped", "2026-01-01 00:00:00", ""))
	mock.ExpectRollback()

	_, err := repo.Transition("ord-1", domain.StatusCancelled)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}
