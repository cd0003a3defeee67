package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"mercadito/internal/domain"
	applog "mercadito/internal/log"
	"mercadito/internal/services"
	"mercadito/internal/validate"
)

type OrderHandler struct {
	Cart  *services.CartService
	Order *services.OrderService
}

// Checkout shows the review page for the current cart.
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	cv, err := h.Cart.View(ensureSID(c))
	if err != nil {
		applog.Error(c, "checkout.load", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load your cart"})
	}
	return render(c, "checkout", fiber.Map{"Cart": cv})
}

// Place commits the cart as an order for the logged-in buyer.
func (h *OrderHandler) Place(c *fiber.Ctx) error {
	sid := ensureSID(c)
	u, _ := c.Locals("user").(*domain.User)
	if u == nil {
		return c.Redirect("/login")
	}

	o, err := h.Order.Checkout(h.Cart.Cart(sid), u.ID)
	if err != nil {
		var stockErr *domain.InsufficientStockError
		switch {
		case errors.Is(err, domain.ErrEmptyCart):
			applog.Security(c, "order.place.empty", map[string]any{"sid": sid})
			return c.Status(fiber.StatusBadRequest).SendString("Your cart is empty.")
		case errors.As(err, &stockErr):
			applog.Info(c, "order.place.stock", map[string]any{"product": stockErr.ProductID})
			return c.Status(fiber.StatusConflict).SendString("Not enough stock for " + stockErr.ProductID + ". Please review quantities.")
		default:
			applog.Error(c, "order.place.fail", err, map[string]any{"sid": sid})
			return c.Status(fiber.StatusInternalServerError).SendString("Could not place order. Please try again.")
		}
	}

	applog.Audit(c, "order.place", map[string]any{
		"order_id": o.ID,
		"total":    o.Total,
		"items":    len(o.Items),
	})
	return c.Redirect("/order/" + o.ID)
}

// View shows one order; only its buyer or an admin may see it.
func (h *OrderHandler) View(c *fiber.Ctx) error {
	oid, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Order not found"})
	}

	o, err := h.Order.Get(oid)
	if err != nil {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Order not found"})
	}

	u, _ := c.Locals("user").(*domain.User)
	if u == nil || (u.ID != o.UserID && u.Role != domain.RoleAdmin) {
		applog.Security(c, "access.denied.order", map[string]any{"order_id": oid})
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Order not found"})
	}

	return render(c, "order", fiber.Map{"Order": o, "Items": o.Items})
}

// History lists orders for the current logged-in user.
func (h *OrderHandler) History(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	if u == nil {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Orders not available"})
	}
	orders, err := h.Order.History(u.ID)
	if err != nil {
		applog.Error(c, "orders.history.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load orders"})
	}
	return render(c, "order_history", fiber.Map{"Orders": orders})
}
