package handlers

import (
	"go.uber.org/zap"

	"agromart/internal/notify"
	"agromart/internal/services"
)

// Stores is one storage backend's implementation of every store contract.
type Stores struct {
	Products     services.ProductStore
	Carts        services.CartStore
	Orders       services.OrderStore
	Users        services.UserStore
	Sessions     services.SessionStore
	Applications services.ApplicationStore
	News         services.NewsStore
}

type Deps struct {
	Auth *services.AuthService

	AuthHandler        *AuthHandler
	ProductHandler     *ProductHandler
	CategoryHandler    *CategoryHandler
	InventoryHandler   *InventoryHandler
	CartHandler        *CartHandler
	OrderHandler       *OrderHandler
	ApplicationHandler *ApplicationHandler
	EmployeeHandler    *EmployeeHandler
	NewsHandler        *NewsHandler
	AdminHandler       *AdminHandler
}

func NewDeps(st Stores, auth *services.AuthService, events notify.Publisher, log *zap.Logger, secureCookies bool) *Deps {
	catalogSvc := services.NewCatalogService(st.Products, log)
	cartSvc := services.NewCartService(st.Carts, st.Products, auth)
	orderSvc := services.NewOrderService(st.Products, st.Orders, st.Carts, auth, events, log)
	appSvc := services.NewApplicationService(st.Applications, auth, events, log)
	empSvc := services.NewEmployeeService(st.Users, auth, log)
	newsSvc := services.NewNewsService(st.News)

	return &Deps{
		Auth:               auth,
		AuthHandler:        &AuthHandler{Auth: auth, SecureCookies: secureCookies},
		ProductHandler:     &ProductHandler{Catalog: catalogSvc},
		CategoryHandler:    &CategoryHandler{Catalog: catalogSvc},
		InventoryHandler:   &InventoryHandler{Catalog: catalogSvc},
		CartHandler:        &CartHandler{Cart: cartSvc},
		OrderHandler:       &OrderHandler{Orders: orderSvc},
		ApplicationHandler: &ApplicationHandler{Apps: appSvc},
		EmployeeHandler:    &EmployeeHandler{Employees: empSvc},
		NewsHandler:        &NewsHandler{News: newsSvc},
		AdminHandler:       &AdminHandler{Orders: orderSvc, Apps: appSvc},
	}
}
