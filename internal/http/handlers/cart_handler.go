package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"mercadito/internal/domain"
	applog "mercadito/internal/log"
	"mercadito/internal/services"
	"mercadito/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
}

func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies("sid")
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     "sid",
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   false, // enable true behind TLS
		})
	}
	return sid
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	cv, err := h.Cart.View(ensureSID(c))
	if err != nil {
		applog.Error(c, "cart.view.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load your cart"})
	}
	return render(c, "cart", fiber.Map{"Cart": cv})
}

// Add rejects unknown products; everything after this point trusts the id
// until checkout re-validates it.
func (h *CartHandler) Add(c *fiber.Ctx) error {
	sid := ensureSID(c)
	productID, ok := validate.ID(c.Params("id"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "product"})
		return c.Status(fiber.StatusBadRequest).SendString("invalid product id")
	}
	if err := h.Cart.Add(sid, productID); err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return c.Redirect("/")
		}
		applog.Error(c, "cart.add.fail", err, map[string]any{"product": productID})
		return c.Status(fiber.StatusInternalServerError).SendString("could not add to cart")
	}
	applog.Info(c, "cart.add", map[string]any{"product": productID})
	return c.Redirect("/cart")
}

// Increase mirrors Add but never fails on a vanished product.
func (h *CartHandler) Increase(c *fiber.Ctx) error {
	sid := ensureSID(c)
	productID, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Redirect("/cart")
	}
	if err := h.Cart.Increase(sid, productID); err != nil {
		applog.Error(c, "cart.increase.fail", err, map[string]any{"product": productID})
		return c.Status(fiber.StatusInternalServerError).SendString("could not update cart")
	}
	return c.Redirect("/cart")
}

func (h *CartHandler) Decrease(c *fiber.Ctx) error {
	sid := ensureSID(c)
	if productID, ok := validate.ID(c.Params("id")); ok {
		h.Cart.Decrease(sid, productID)
	}
	return c.Redirect("/cart")
}

func (h *CartHandler) Remove(c *fiber.Ctx) error {
	sid := ensureSID(c)
	if productID, ok := validate.ID(c.Params("id")); ok {
		h.Cart.Remove(sid, productID)
	}
	return c.Redirect("/cart")
}
