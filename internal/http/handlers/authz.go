package handlers

import (
	"github.com/gofiber/fiber/v2"

	"mercadito/internal/domain"
	applog "mercadito/internal/log"
	"mercadito/internal/services"
)

// RequireUser enforces that a user is logged in; otherwise redirect to login.
func RequireUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies("sid")
		if sid == "" {
			return c.Redirect("/login")
		}
		u, err := auth.CurrentUser(sid)
		if err != nil || u == nil {
			return c.Redirect("/login")
		}
		c.Locals("user", u)
		return c.Next()
	}
}

// RequireVendor admits vendors and admins.
func RequireVendor(auth *services.AuthService) fiber.Handler {
	return requireRole(auth, "access.denied.vendor", domain.RoleVendor, domain.RoleAdmin)
}

func RequireAdmin(auth *services.AuthService) fiber.Handler {
	return requireRole(auth, "access.denied.admin", domain.RoleAdmin)
}

func requireRole(auth *services.AuthService, denyAction string, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies("sid")
		if sid == "" {
			return c.Redirect("/login")
		}
		u, err := auth.CurrentUser(sid)
		if err != nil || u == nil {
			return c.Redirect("/login")
		}
		for _, role := range roles {
			if u.Role == role {
				c.Locals("user", u)
				return c.Next()
			}
		}
		applog.Security(c, denyAction, map[string]any{"sid": sid, "role": u.Role})
		return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Access denied"})
	}
}
