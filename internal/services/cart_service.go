package services

import (
	"errors"

	"mercadito/internal/cart"
	"mercadito/internal/domain"
	"mercadito/internal/repos"
)

type CartService struct {
	Carts *cart.Store
	Prods *repos.ProductRepo
}

func NewCartService(carts *cart.Store, prods *repos.ProductRepo) *CartService {
	return &CartService{Carts: carts, Prods: prods}
}

// Add puts one unit in the session's cart after confirming the product
// exists. Stock is NOT checked here; checkout is the authoritative gate.
func (s *CartService) Add(sessionID, productID string) error {
	if _, err := s.Prods.Get(productID); err != nil {
		return err
	}
	s.Carts.Get(sessionID).Add(productID)
	return nil
}

// Increase bumps the quantity by one. A product that vanished since it was
// added is ignored silently so the cart page never hard-fails.
func (s *CartService) Increase(sessionID, productID string) error {
	if _, err := s.Prods.Get(productID); err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return nil
		}
		return err
	}
	s.Carts.Get(sessionID).Add(productID)
	return nil
}

func (s *CartService) Decrease(sessionID, productID string) {
	s.Carts.Get(sessionID).Decrease(productID)
}

func (s *CartService) Remove(sessionID, productID string) {
	s.Carts.Get(sessionID).Remove(productID)
}

func (s *CartService) Cart(sessionID string) *cart.Cart {
	return s.Carts.Get(sessionID)
}

type CartEntry struct {
	Product  domain.Product
	Quantity int
	Subtotal float64
}

type CartView struct {
	Entries []CartEntry
	Total   float64
}

// View resolves the cart against the live catalog. Entries whose product
// has vanished are simply not shown, mirroring checkout's leniency.
func (s *CartService) View(sessionID string) (CartView, error) {
	var cv CartView
	for productID, qty := range s.Carts.Get(sessionID).Items() {
		p, err := s.Prods.Get(productID)
		if errors.Is(err, domain.ErrProductNotFound) {
			continue
		}
		if err != nil {
			return CartView{}, err
		}
		sub := p.Price * float64(qty)
		cv.Entries = append(cv.Entries, CartEntry{Product: p, Quantity: qty, Subtotal: sub})
		cv.Total += sub
	}
	return cv, nil
}
