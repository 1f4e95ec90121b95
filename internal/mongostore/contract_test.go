package mongostore_test

import (
	"agromart/internal/mongostore"
	"agromart/internal/services"
)

var (
	_ services.ProductStore     = (*mongostore.Products)(nil)
	_ services.CartStore        = (*mongostore.Carts)(nil)
	_ services.OrderStore       = (*mongostore.Orders)(nil)
	_ services.UserStore        = (*mongostore.Users)(nil)
	_ services.SessionStore     = (*mongostore.Users)(nil)
	_ services.ApplicationStore = (*mongostore.Applications)(nil)
	_ services.NewsStore        = (*mongostore.News)(nil)
)
