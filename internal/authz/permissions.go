// Package authz maps actors to effective permissions and gates admin
// routes on them. Nothing here touches storage or returns errors: absence
// of a permission is always a plain false.
package authz

import (
	"sort"
	"strings"

	"agromart/internal/domain"
)

type Permission string

// AllPermissions is the wildcard grant.
const AllPermissions Permission = "*"

const (
	NewsRead            Permission = "news:read"
	NewsWrite           Permission = "news:write"
	PaymentsRead        Permission = "payments:read"
	PaymentsWrite       Permission = "payments:write"
	VendorsRead         Permission = "vendors:read"
	VendorsApprove      Permission = "vendors:approve"
	DistributorsRead    Permission = "distributors:read"
	DistributorsApprove Permission = "distributors:approve"
	ProductsRead        Permission = "products:read"
	ProductsWrite       Permission = "products:write"
	CategoriesRead      Permission = "categories:read"
	CategoriesWrite     Permission = "categories:write"
	OrdersRead          Permission = "orders:read"
	OrdersWrite         Permission = "orders:write"
	EmployeesRead       Permission = "employees:read"
	EmployeesWrite      Permission = "employees:write"
)

var catalog = []Permission{
	NewsRead, NewsWrite,
	PaymentsRead, PaymentsWrite,
	VendorsRead, VendorsApprove,
	DistributorsRead, DistributorsApprove,
	ProductsRead, ProductsWrite,
	CategoriesRead, CategoriesWrite,
	OrdersRead, OrdersWrite,
	EmployeesRead, EmployeesWrite,
}

// Catalog returns every known permission, wildcard excluded.
func Catalog() []Permission {
	out := make([]Permission, len(catalog))
	copy(out, catalog)
	return out
}

// Known reports whether p is in the catalog or is the wildcard.
func Known(p Permission) bool {
	if p == AllPermissions {
		return true
	}
	for _, c := range catalog {
		if c == p {
			return true
		}
	}
	return false
}

// Set is an unordered permission set.
type Set map[Permission]struct{}

func NewSet(perms ...Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Strings returns the members sorted, for storage and JSON.
func (s Set) Strings() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}

var roleDefaults = map[string][]Permission{
	"accountant":          {PaymentsRead, PaymentsWrite},
	"editor":              {NewsRead, NewsWrite},
	"vendor_manager":      {VendorsRead, VendorsApprove},
	"distributor_manager": {DistributorsRead, DistributorsApprove},
	"catalog_manager":     {ProductsRead, ProductsWrite, CategoriesRead, CategoriesWrite},
	"support":             {OrdersRead, OrdersWrite},
	"manager":             {AllPermissions},
}

// EmployeeRoles lists the employee roles with a default permission set.
func EmployeeRoles() []string {
	out := make([]string, 0, len(roleDefaults))
	for r := range roleDefaults {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// DefaultPermissionsForRole returns the hardcoded set for an employee role,
// or an empty set when the role is unknown.
func DefaultPermissionsForRole(role string) Set {
	return NewSet(roleDefaults[strings.ToLower(strings.TrimSpace(role))]...)
}

// ResolvePermissionsForEmployee lets an explicit per-employee list override
// the role defaults. Blank entries are dropped; an explicit list that is
// empty after trimming falls back to the defaults.
func ResolvePermissionsForEmployee(role string, explicit []string) Set {
	s := Set{}
	for _, p := range explicit {
		if p = strings.TrimSpace(p); p != "" {
			s[Permission(p)] = struct{}{}
		}
	}
	if len(s) > 0 {
		return s
	}
	return DefaultPermissionsForRole(role)
}

// HasPermission is the single predicate every gated operation goes through.
func HasPermission(actor *domain.Actor, p Permission) bool {
	if actor == nil {
		return false
	}
	if actor.Role == domain.RoleAdmin {
		return true
	}
	for _, have := range actor.Permissions {
		if Permission(have) == AllPermissions || Permission(have) == p {
			return true
		}
	}
	return false
}

// HasAny reports whether the actor holds at least one of perms.
func HasAny(actor *domain.Actor, perms ...Permission) bool {
	for _, p := range perms {
		if HasPermission(actor, p) {
			return true
		}
	}
	return false
}
