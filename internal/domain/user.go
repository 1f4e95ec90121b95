package domain

import "time"

type Role string

const (
	RoleUser        Role = "user"
	RoleAdmin       Role = "admin"
	RoleVendor      Role = "vendor"
	RoleDistributor Role = "distributor"
	RoleEmployee    Role = "employee"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleVendor, RoleDistributor, RoleEmployee:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Hash         string    `json:"-"`
	Role         Role      `json:"role"`
	EmployeeRole string    `json:"employeeRole,omitempty"`
	Permissions  []string  `json:"permissions,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Actor is the identity performing an operation. It is resolved once at the
// HTTP boundary and passed explicitly into every service call.
type Actor struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name,omitempty"`
	Role        Role     `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
}

func (a *Actor) IsAdmin() bool { return a != nil && a.Role == RoleAdmin }
