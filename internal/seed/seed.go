// Package seed holds the demo catalog, accounts and news loaded into an
// empty store.
package seed

import (
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"agromart/internal/domain"
)

// Password is the password of every seeded account.
const Password = "Passw0rd!"

func Products() []domain.Product {
	mk := func(id, name, desc, category, price string, stock int, active bool) domain.Product {
		return domain.Product{
			ID:          id,
			Name:        name,
			Description: desc,
			Category:    category,
			Price:       decimal.RequireFromString(price),
			Stock:       stock,
			IsActive:    active,
		}
	}
	return []domain.Product{
		mk("seed-wheat-hd2967", "HD-2967 Wheat Seed (10kg)", "Certified high-yield wheat seed", "seeds", "849.00", 40, true),
		mk("seed-paddy-pb1121", "Pusa Basmati 1121 Paddy Seed (5kg)", "Long grain basmati", "seeds", "1120.50", 25, true),
		mk("fert-urea-45", "Neem Coated Urea (45kg)", "Nitrogen fertilizer", "fertilizers", "266.50", 100, true),
		mk("fert-dap-50", "DAP Fertilizer (50kg)", "Di-ammonium phosphate", "fertilizers", "1350.00", 0, true),
		mk("tool-sprayer-16l", "Knapsack Sprayer 16L", "Manual pressure sprayer", "tools", "1899.99", 8, true),
		mk("tool-sickle-old", "Forged Sickle (discontinued)", "Replaced by newer model", "tools", "149.00", 12, false),
	}
}

// Users returns the demo accounts with freshly hashed passwords.
func Users() []domain.User {
	h, _ := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	mk := func(id, email, name string, role domain.Role, employeeRole string) domain.User {
		return domain.User{ID: id, Email: email, Name: name, Hash: string(h), Role: role, EmployeeRole: employeeRole, IsActive: true}
	}
	return []domain.User{
		mk("u-alice", "alice@agromart.test", "Alice", domain.RoleUser, ""),
		mk("u-bob", "bob@agromart.test", "Bob", domain.RoleUser, ""),
		mk("u-admin", "admin@agromart.test", "Admin", domain.RoleAdmin, ""),
		mk("u-accounts", "accounts@agromart.test", "Asha", domain.RoleEmployee, "accountant"),
		mk("u-editor", "editor@agromart.test", "Ravi", domain.RoleEmployee, "editor"),
	}
}

func News() []domain.NewsPost {
	return []domain.NewsPost{
		{ID: "news-kharif", Title: "Kharif sowing advisory", Slug: "kharif-sowing-advisory", Summary: "Plan your paddy nursery", Body: "Monsoon onset is expected on time...", Published: true, AuthorID: "u-admin"},
		{ID: "news-draft", Title: "Subsidy update (draft)", Slug: "subsidy-update", Summary: "Pending confirmation", AuthorID: "u-admin"},
	}
}
