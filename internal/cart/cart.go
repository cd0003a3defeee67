// Package cart holds the per-session shopping cart: a plain mapping of
// product id to desired quantity. It is deliberately ignorant of inventory;
// stock is only authoritative at checkout (two-phase validation: cheap
// optimistic add, hard check at commit). Carts live in process memory and
// die with the session.
package cart

import "sync"

type Cart struct {
	mu    sync.Mutex
	items map[string]int
}

func New() *Cart {
	return &Cart{items: map[string]int{}}
}

// Add increments the desired quantity for a product by one, starting from
// zero. Existence against the catalog is the caller's concern.
func (c *Cart) Add(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[productID]++
}

// Decrease decrements by one; the entry is dropped entirely rather than
// ever being stored at zero.
func (c *Cart) Decrease(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items[productID] <= 1 {
		delete(c.items, productID)
		return
	}
	c.items[productID]--
}

// Remove deletes the entry unconditionally. Idempotent.
func (c *Cart) Remove(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, productID)
}

// Clear empties the cart; invoked after a successful checkout.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = map[string]int{}
}

// Items returns a copy of the mapping, safe to iterate while the session
// keeps mutating the cart.
func (c *Cart) Items() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.items))
	for id, qty := range c.items {
		out[id] = qty
	}
	return out
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Store hands out the cart bound to a session id, creating it on first use.
// No global state: handlers fetch the cart here and pass it explicitly into
// the order service.
type Store struct {
	mu    sync.RWMutex
	carts map[string]*Cart
}

func NewStore() *Store {
	return &Store{carts: map[string]*Cart{}}
}

func (s *Store) Get(sessionID string) *Cart {
	s.mu.RLock()
	c, ok := s.carts[sessionID]
	s.mu.RUnlock()
	if ok {
		return c
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[sessionID]; ok {
		return c
	}
	c = New()
	s.carts[sessionID] = c
	return c
}

// Drop forgets a session's cart, e.g. when the session is destroyed.
func (s *Store) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
}
