package handlers

import (
	"github.com/jmoiron/sqlx"

	"mercadito/internal/cart"
	"mercadito/internal/repos"
	"mercadito/internal/services"
)

type Deps struct {
	CategoryHandler *CategoryHandler
	ProductHandler  *ProductHandler
	CartHandler     *CartHandler
	OrderHandler    *OrderHandler
	VendorHandler   *VendorHandler
	AdminHandler    *AdminHandler
}

func NewDeps(db *sqlx.DB, carts *cart.Store) *Deps {
	catRepo := repos.NewCategoryRepo(db)
	prodRepo := repos.NewProductRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	userRepo := repos.NewUserRepo(db)

	catalogSvc := services.NewCatalogService(catRepo, prodRepo)
	cartSvc := services.NewCartService(carts, prodRepo)
	orderSvc := services.NewOrderService(orderRepo)

	return &Deps{
		CategoryHandler: &CategoryHandler{Catalog: catalogSvc},
		ProductHandler:  &ProductHandler{Catalog: catalogSvc},
		CartHandler:     &CartHandler{Cart: cartSvc},
		OrderHandler:    &OrderHandler{Cart: cartSvc, Order: orderSvc},
		VendorHandler:   &VendorHandler{Catalog: catalogSvc, Prods: prodRepo},
		AdminHandler:    &AdminHandler{Orders: orderSvc, OrderRep: orderRepo, Users: userRepo},
	}
}
