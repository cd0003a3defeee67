package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"mercadito/internal/domain"
	applog "mercadito/internal/log"
	"mercadito/internal/repos"
	"mercadito/internal/services"
	"mercadito/internal/validate"
)

// VendorHandler covers vendor-owned listing management. Admins may use the
// same surface on any product.
type VendorHandler struct {
	Catalog *services.CatalogService
	Prods   *repos.ProductRepo
}

func (h *VendorHandler) owned(c *fiber.Ctx, productID string) (domain.Product, bool) {
	u, _ := c.Locals("user").(*domain.User)
	p, err := h.Catalog.GetProduct(productID)
	if err != nil || u == nil {
		return domain.Product{}, false
	}
	if p.OwnerID != u.ID && u.Role != domain.RoleAdmin {
		applog.Security(c, "access.denied.listing", map[string]any{"product": productID})
		return domain.Product{}, false
	}
	return p, true
}

// GET /vendor/products
func (h *VendorHandler) List(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	if u == nil {
		return c.Redirect("/login")
	}
	products, err := h.Prods.ListByOwner(u.ID)
	if err != nil {
		applog.Error(c, "vendor.products.list.fail", err, nil)
		return c.Status(500).Render("notfound", fiber.Map{"Message": "Could not load your listings"})
	}
	return render(c, "vendor_products", fiber.Map{"Products": products})
}

// POST /vendor/products
func (h *VendorHandler) Create(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	if u == nil {
		return c.Redirect("/login")
	}

	title, okTitle := validate.Name(c.FormValue("title"))
	price, okPrice := validate.Price(c.FormValue("price"))
	qty, okQty := validate.Qty(c.FormValue("quantity"))
	category, okCat := validate.ID(c.FormValue("category"))
	if !okTitle || !okPrice || !okQty || !okCat {
		applog.Security(c, "validation.fail", map[string]any{"field": "listing"})
		return c.Status(400).SendString("invalid listing fields")
	}

	p := domain.Product{
		ID:          uuid.NewString(),
		CategoryID:  category,
		OwnerID:     u.ID,
		Title:       title,
		Description: c.FormValue("description"),
		Price:       price,
		Quantity:    qty,
		Image:       c.FormValue("image"),
		Active:      true,
	}
	if err := h.Prods.Create(p); err != nil {
		applog.Error(c, "vendor.products.create.fail", err, nil)
		return c.Status(400).SendString("could not create listing")
	}
	applog.Audit(c, "vendor.products.create", map[string]any{"product": p.ID})
	return c.Redirect("/vendor/products")
}

// POST /vendor/products/:id
func (h *VendorHandler) Update(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(400).SendString("invalid product id")
	}
	p, ok := h.owned(c, id)
	if !ok {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "Listing not found"})
	}

	if title, ok := validate.Name(c.FormValue("title")); ok {
		p.Title = title
	}
	if desc := c.FormValue("description"); desc != "" {
		p.Description = desc
	}
	if price, ok := validate.Price(c.FormValue("price")); ok {
		p.Price = price
	}
	if qty, ok := validate.Qty(c.FormValue("quantity")); ok {
		p.Quantity = qty
	}
	if img := c.FormValue("image"); img != "" {
		p.Image = img
	}

	if err := h.Prods.Update(p); err != nil {
		applog.Error(c, "vendor.products.update.fail", err, map[string]any{"product": id})
		return c.Status(400).SendString("could not update listing")
	}
	applog.Audit(c, "vendor.products.update", map[string]any{"product": id})
	return c.Redirect("/vendor/products")
}

// POST /vendor/products/:id/activate and /deactivate. Deactivating hides a
// listing from browsing but never touches existing carts or orders.
func (h *VendorHandler) SetActive(active bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validate.ID(c.Params("id"))
		if !ok {
			return c.Status(400).SendString("invalid product id")
		}
		if _, ok := h.owned(c, id); !ok {
			return c.Status(404).Render("notfound", fiber.Map{"Message": "Listing not found"})
		}
		if err := h.Prods.SetActive(id, active); err != nil {
			applog.Error(c, "vendor.products.active.fail", err, map[string]any{"product": id})
			return c.Status(400).SendString("could not update listing")
		}
		applog.Audit(c, "vendor.products.active", map[string]any{"product": id, "active": active})
		return c.Redirect("/vendor/products")
	}
}
