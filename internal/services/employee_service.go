package services

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"agromart/internal/authz"
	"agromart/internal/domain"
	"agromart/internal/validate"
)

type EmployeeService struct {
	Users UserStore
	Auth  *AuthService
	Log   *zap.Logger
}

func NewEmployeeService(users UserStore, auth *AuthService, log *zap.Logger) *EmployeeService {
	if log == nil {
		log = zap.NewNop()
	}
	return &EmployeeService{Users: users, Auth: auth, Log: log.Named("employees")}
}

// Employee is an employee account with its effective permissions.
type Employee struct {
	domain.User
	Effective []string `json:"effectivePermissions"`
}

func toEmployee(u domain.User) Employee {
	return Employee{User: u, Effective: authz.ResolvePermissionsForEmployee(u.EmployeeRole, u.Permissions).Strings()}
}

type EmployeeInput struct {
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	Password     string   `json:"password"`
	EmployeeRole string   `json:"employeeRole" validate:"max=40"`
	Permissions  []string `json:"permissions" validate:"max=32"`
}

// cleanPermissions trims, dedupes and sorts an explicit permission list.
// Entries outside the catalog are rejected.
func cleanPermissions(in []string) ([]string, error) {
	seen := map[string]bool{}
	out := []string{}
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		if !authz.Known(authz.Permission(p)) {
			return nil, domain.Errorf(domain.CodeInvalidInput, "Unknown permission %q", p)
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// mayGrant reports whether actor holds everything the role and permission
// list would hand out, role defaults included.
func mayGrant(actor *domain.Actor, role string, perms []string) bool {
	for _, set := range []authz.Set{authz.ResolvePermissionsForEmployee(role, perms), authz.DefaultPermissionsForRole(role)} {
		for p := range set {
			if !authz.HasPermission(actor, p) {
				return false
			}
		}
	}
	return true
}

func (s *EmployeeService) denyGrant(actor *domain.Actor, target, role string, perms []string) error {
	s.Log.Warn("employee grant denied",
		zap.String("by", actor.ID),
		zap.String("target", target),
		zap.String("employee_role", role),
		zap.Strings("permissions", perms))
	return domain.ErrUnauthorized
}

func (s *EmployeeService) List(ctx context.Context, actor *domain.Actor) ([]Employee, error) {
	if !authz.HasAny(actor, authz.EmployeesRead, authz.EmployeesWrite) {
		return nil, domain.ErrUnauthorized
	}
	users, err := s.Users.ListByRole(ctx, domain.RoleEmployee)
	if err != nil {
		return nil, err
	}
	out := make([]Employee, 0, len(users))
	for _, u := range users {
		out = append(out, toEmployee(u))
	}
	return out, nil
}

func (s *EmployeeService) Create(ctx context.Context, actor *domain.Actor, in EmployeeInput) (*Employee, error) {
	if !authz.HasPermission(actor, authz.EmployeesWrite) {
		return nil, domain.ErrUnauthorized
	}
	if err := validate.Struct(in); err != nil {
		return nil, domain.NewDomainError(domain.CodeInvalidInput, err.Error())
	}
	perms, err := cleanPermissions(in.Permissions)
	if err != nil {
		return nil, err
	}
	if role := strings.ToLower(strings.TrimSpace(in.EmployeeRole)); !mayGrant(actor, role, perms) {
		return nil, s.denyGrant(actor, strings.ToLower(strings.TrimSpace(in.Email)), role, perms)
	}
	u, err := s.Auth.newUser(SignupInput{Email: in.Email, Name: in.Name, Password: in.Password}, domain.RoleEmployee, true)
	if err != nil {
		return nil, err
	}
	u.EmployeeRole = strings.ToLower(strings.TrimSpace(in.EmployeeRole))
	u.Permissions = perms
	if err := s.Users.Create(ctx, u); err != nil {
		if domain.Code(err) == domain.CodeConflict {
			return nil, domain.Errorf(domain.CodeConflict, "An account with this email already exists")
		}
		return nil, err
	}
	s.Log.Info("employee created", zap.String("user_id", u.ID), zap.String("employee_role", u.EmployeeRole), zap.String("by", actor.ID))
	e := toEmployee(*u)
	return &e, nil
}

// UpdateAccess replaces an employee's role and explicit permissions. An
// empty permission list reverts the employee to the role defaults.
func (s *EmployeeService) UpdateAccess(ctx context.Context, actor *domain.Actor, id, employeeRole string, permissions []string) (*Employee, error) {
	if !authz.HasPermission(actor, authz.EmployeesWrite) {
		return nil, domain.ErrUnauthorized
	}
	u, err := s.Users.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != domain.RoleEmployee {
		return nil, domain.ErrNotFound
	}
	perms, err := cleanPermissions(permissions)
	if err != nil {
		return nil, err
	}
	role := strings.ToLower(strings.TrimSpace(employeeRole))
	if !mayGrant(actor, role, perms) {
		return nil, s.denyGrant(actor, id, role, perms)
	}
	if err := s.Users.UpdateAccess(ctx, id, role, perms); err != nil {
		return nil, err
	}
	u.EmployeeRole, u.Permissions = role, perms
	s.Log.Info("employee access updated", zap.String("user_id", id), zap.Strings("permissions", perms), zap.String("by", actor.ID))
	e := toEmployee(*u)
	return &e, nil
}
