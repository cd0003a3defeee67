package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"mercadito/internal/domain"
	applog "mercadito/internal/log"
	"mercadito/internal/repos"
	"mercadito/internal/services"
)

type AdminHandler struct {
	Orders   *services.OrderService
	OrderRep *repos.OrderRepo
	Users    *repos.UserRepo
}

// GET /admin
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	return render(c, "admin_dashboard", fiber.Map{})
}

// GET /admin/orders
func (h *AdminHandler) OrdersPage(c *fiber.Ctx) error {
	ords, err := h.OrderRep.ListLatest(100)
	if err != nil {
		applog.Error(c, "admin.orders.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load orders"})
	}
	return render(c, "admin_orders", fiber.Map{"Orders": ords})
}

// POST /admin/orders/:id/status
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	status := c.FormValue("status")
	if id == "" || status == "" {
		return c.Status(400).SendString("missing id or status")
	}

	o, err := h.Orders.SetStatus(id, status)
	if err != nil {
		var badStatus *domain.InvalidStatusError
		switch {
		case errors.As(err, &badStatus):
			applog.Security(c, "admin.orders.status.invalid", map[string]any{"order_id": id, "status": status})
			return c.Status(400).SendString("unknown status value")
		case errors.Is(err, domain.ErrInvalidTransition):
			applog.Security(c, "admin.orders.status.illegal", map[string]any{"order_id": id, "status": status})
			return c.Status(400).SendString("order cannot move to that status")
		case errors.Is(err, domain.ErrOrderNotFound):
			return c.Status(404).SendString("order not found")
		default:
			applog.Error(c, "admin.orders.update.fail", err, map[string]any{"order_id": id})
			return c.Status(500).SendString("could not update status")
		}
	}

	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": o.ID, "status": string(o.Status)})
	return c.Redirect("/admin/orders")
}

// UsersPage lists users (excluding admins).
func (h *AdminHandler) UsersPage(c *fiber.Ctx) error {
	users, err := h.Users.List()
	if err != nil {
		applog.Error(c, "admin.users.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load users"})
	}
	return render(c, "admin_users", fiber.Map{"Users": users})
}

// DeleteUser cancels the user's open orders (returning stock) before
// removing the account and its sessions. Order rows stay for audit.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(400).SendString("missing id")
	}
	if err := h.Orders.CancelOpenOrders(id); err != nil {
		applog.Error(c, "admin.users.cancel_orders.fail", err, map[string]any{"user_id": id})
		return c.Status(400).SendString("could not cancel user's orders")
	}
	if err := h.Users.Delete(id); err != nil {
		applog.Error(c, "admin.users.delete.fail", err, map[string]any{"user_id": id})
		return c.Status(400).SendString("could not delete user")
	}
	applog.Audit(c, "admin.users.delete", map[string]any{"user_id": id})
	return c.Redirect("/admin/users")
}
