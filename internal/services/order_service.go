package services

import (
	"github.com/google/uuid"

	"mercadito/internal/cart"
	"mercadito/internal/domain"
	"mercadito/internal/repos"
)

type OrderService struct {
	Orders *repos.OrderRepo
}

func NewOrderService(orders *repos.OrderRepo) *OrderService {
	return &OrderService{Orders: orders}
}

// Checkout converts the session's cart into a committed order. The cart is
// only cleared after the transaction commits, so a failed checkout leaves
// it intact for the buyer to fix.
func (s *OrderService) Checkout(c *cart.Cart, buyerID string) (domain.Order, error) {
	desired := c.Items()
	if len(desired) == 0 {
		return domain.Order{}, domain.ErrEmptyCart
	}

	o, err := s.Orders.CreateFromLines(uuid.NewString(), buyerID, desired)
	if err != nil {
		return domain.Order{}, err
	}

	c.Clear()
	return o, nil
}

// SetStatus validates the raw value, then runs the transition (with its
// cancellation stock-restore side effect) in the repository transaction.
func (s *OrderService) SetStatus(orderID, rawStatus string) (domain.Order, error) {
	next, err := domain.ParseStatus(rawStatus)
	if err != nil {
		return domain.Order{}, err
	}
	return s.Orders.Transition(orderID, next)
}

func (s *OrderService) Get(orderID string) (domain.Order, error) {
	return s.Orders.Get(orderID)
}

func (s *OrderService) History(userID string) ([]repos.OrderSummary, error) {
	return s.Orders.ListByUser(userID)
}

// CancelOpenOrders cancels every pending/paid order of a user through the
// status machine so their reserved stock flows back. Used by admin account
// removal.
func (s *OrderService) CancelOpenOrders(userID string) error {
	ids, err := s.Orders.OpenOrderIDs(userID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := s.Orders.Transition(id, domain.StatusCancelled); err != nil {
			return err
		}
	}
	return nil
}
