package authz

import (
	"net/http"
	"strings"
)

// AdminAPIPrefix is where every gated JSON route lives.
const AdminAPIPrefix = "/api/admin"

type routeRule struct {
	prefix string
	read   []Permission
	write  []Permission
}

// Ordered longest prefix first; the first match wins.
var adminRoutes = []routeRule{
	{"/api/admin/distributors", []Permission{DistributorsRead}, []Permission{DistributorsApprove}},
	{"/api/admin/categories", []Permission{CategoriesRead}, []Permission{CategoriesWrite}},
	{"/api/admin/employees", []Permission{EmployeesRead}, []Permission{EmployeesWrite}},
	{"/api/admin/payments", []Permission{PaymentsRead}, []Permission{PaymentsWrite}},
	{"/api/admin/products", []Permission{ProductsRead}, []Permission{ProductsWrite}},
	{"/api/admin/vendors", []Permission{VendorsRead}, []Permission{VendorsApprove}},
	{"/api/admin/orders", []Permission{OrdersRead}, []Permission{OrdersWrite}},
	{"/api/admin/news", []Permission{NewsRead}, []Permission{NewsWrite}},
}

// PermissionForAdminAPI returns the permissions that grant access to an
// admin API call; holding any one of them is enough. A nil result means no
// employee permission opens the route and only admins (or the wildcard)
// may call it.
func PermissionForAdminAPI(path, method string) []Permission {
	path = strings.TrimRight(path, "/")
	for _, r := range adminRoutes {
		if path != r.prefix && !strings.HasPrefix(path, r.prefix+"/") {
			continue
		}
		switch strings.ToUpper(method) {
		case http.MethodGet, http.MethodHead:
			return r.read
		default:
			return r.write
		}
	}
	return nil
}

// landing is the fixed priority order for the post-login redirect.
var landing = []struct {
	path string
	perm Permission
}{
	{"/admin/orders", OrdersRead},
	{"/admin/products", ProductsRead},
	{"/admin/categories", CategoriesRead},
	{"/admin/vendors", VendorsRead},
	{"/admin/distributors", DistributorsRead},
	{"/admin/news", NewsRead},
	{"/admin/payments", PaymentsRead},
	{"/admin/employees", EmployeesRead},
}

// AdminLandingForPermissions picks the first admin page the holder of
// perms can see. The wildcard lands on the dashboard, nothing lands home.
func AdminLandingForPermissions(perms []string) string {
	have := Set{}
	for _, p := range perms {
		have[Permission(strings.TrimSpace(p))] = struct{}{}
	}
	if have.Has(AllPermissions) {
		return "/admin"
	}
	for _, l := range landing {
		if have.Has(l.perm) {
			return l.path
		}
	}
	return "/"
}
