package repos_test

import (
	"agromart/internal/repos"
	"agromart/internal/services"
)

var (
	_ services.ProductStore     = (*repos.ProductRepo)(nil)
	_ services.CartStore        = (*repos.CartRepo)(nil)
	_ services.OrderStore       = (*repos.OrderRepo)(nil)
	_ services.UserStore        = (*repos.UserRepo)(nil)
	_ services.SessionStore     = (*repos.UserRepo)(nil)
	_ services.ApplicationStore = (*repos.ApplicationRepo)(nil)
	_ services.NewsStore        = (*repos.NewsRepo)(nil)
)
