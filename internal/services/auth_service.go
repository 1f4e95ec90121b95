package services

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"agromart/internal/auth"
	"agromart/internal/authz"
	"agromart/internal/domain"
	"agromart/internal/validate"
)

var ErrBadCreds = domain.NewDomainError(domain.CodeUnauthenticated, "Invalid email or password")

// EnvAdminSubject is the session subject of the super admin configured
// through the environment. It is not a user id.
const EnvAdminSubject = "env-admin"

type AuthService struct {
	Users    UserStore
	Sessions SessionStore
	Tokens   *auth.Tokens
	// AdminEmail and AdminPassword configure the env super admin; both
	// empty disables it.
	AdminEmail    string
	AdminPassword string
	Log           *zap.Logger
	// Cost is the bcrypt cost for new password hashes.
	Cost int
}

func NewAuthService(users UserStore, sessions SessionStore, tokens *auth.Tokens, adminEmail, adminPassword string, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		Users:         users,
		Sessions:      sessions,
		Tokens:        tokens,
		AdminEmail:    strings.TrimSpace(adminEmail),
		AdminPassword: adminPassword,
		Log:           log.Named("auth"),
		Cost:          bcrypt.DefaultCost,
	}
}

func (s *AuthService) envAdminEnabled() bool {
	return s.AdminEmail != "" && s.AdminPassword != ""
}

func (s *AuthService) envAdmin() *domain.Actor {
	return &domain.Actor{
		ID:          EnvAdminSubject,
		Email:       s.AdminEmail,
		Name:        "Administrator",
		Role:        domain.RoleAdmin,
		Permissions: []string{string(authz.AllPermissions)},
	}
}

// ActorFor builds the request identity for a stored user. Employees get
// their effective permissions resolved here, once.
func ActorFor(u *domain.User) *domain.Actor {
	a := &domain.Actor{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
	switch u.Role {
	case domain.RoleAdmin:
		a.Permissions = []string{string(authz.AllPermissions)}
	case domain.RoleEmployee:
		a.Permissions = authz.ResolvePermissionsForEmployee(u.EmployeeRole, u.Permissions).Strings()
	}
	return a
}

// authenticate checks credentials and returns the session subject and
// actor they belong to.
func (s *AuthService) authenticate(ctx context.Context, email, password string) (string, *domain.Actor, error) {
	email = strings.TrimSpace(email)
	if s.envAdminEnabled() && strings.EqualFold(email, s.AdminEmail) {
		if subtle.ConstantTimeCompare([]byte(password), []byte(s.AdminPassword)) == 1 {
			return EnvAdminSubject, s.envAdmin(), nil
		}
		return "", nil, ErrBadCreds
	}
	u, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		if domain.Code(err) == domain.CodeNotFound {
			return "", nil, ErrBadCreds
		}
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return "", nil, ErrBadCreds
	}
	if !u.IsActive {
		return "", nil, domain.Errorf(domain.CodeUnauthenticated, "Account is not active")
	}
	return u.ID, ActorFor(u), nil
}

// Login binds sid to the account identified by email and password.
func (s *AuthService) Login(ctx context.Context, sid, email, password string) (*domain.Actor, error) {
	subject, actor, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.Sessions.BindSession(ctx, sid, subject); err != nil {
		return nil, err
	}
	return actor, nil
}

func (s *AuthService) Logout(ctx context.Context, sid string) error {
	return s.Sessions.UnbindSession(ctx, sid)
}

// IssueToken exchanges credentials for a bearer token.
func (s *AuthService) IssueToken(ctx context.Context, email, password string) (string, time.Time, *domain.Actor, error) {
	if !s.Tokens.Enabled() {
		return "", time.Time{}, nil, domain.Errorf(domain.CodeNotFound, "Token login is not enabled")
	}
	subject, actor, err := s.authenticate(ctx, email, password)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	tok, exp, err := s.Tokens.Issue(subject)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	return tok, exp, actor, nil
}

// CurrentActor returns who is signed in on sid, or UNAUTHENTICATED.
func (s *AuthService) CurrentActor(ctx context.Context, sid string) (*domain.Actor, error) {
	if sid == "" {
		return nil, domain.ErrUnauthenticated
	}
	subject, err := s.Sessions.SessionSubject(ctx, sid)
	if err != nil {
		if domain.Code(err) == domain.CodeNotFound {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	return s.actorForSubject(ctx, subject)
}

// TokenActor returns the actor a bearer token was issued to.
func (s *AuthService) TokenActor(ctx context.Context, raw string) (*domain.Actor, error) {
	subject, err := s.Tokens.Subject(raw)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}
	return s.actorForSubject(ctx, subject)
}

func (s *AuthService) actorForSubject(ctx context.Context, subject string) (*domain.Actor, error) {
	if subject == EnvAdminSubject {
		if !s.envAdminEnabled() {
			return nil, domain.ErrUnauthenticated
		}
		return s.envAdmin(), nil
	}
	u, err := s.Users.ByID(ctx, subject)
	if err != nil {
		if domain.Code(err) == domain.CodeNotFound {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, domain.ErrUnauthenticated
	}
	return ActorFor(u), nil
}

// ResolveUserID maps an actor to the user id its data is stored under.
// Stored users resolve to themselves; identities without a row of their
// own, like the env admin, are matched by email.
func (s *AuthService) ResolveUserID(ctx context.Context, actor *domain.Actor) (string, error) {
	if actor == nil {
		return "", domain.ErrUserResolutionFailed
	}
	if actor.ID != "" && actor.ID != EnvAdminSubject {
		u, err := s.Users.ByID(ctx, actor.ID)
		if err == nil {
			return u.ID, nil
		}
		if domain.Code(err) != domain.CodeNotFound {
			return "", err
		}
	}
	if actor.Email == "" {
		return "", domain.ErrUserResolutionFailed
	}
	u, err := s.Users.ByEmail(ctx, actor.Email)
	if err != nil {
		if domain.Code(err) == domain.CodeNotFound {
			return "", domain.ErrUserResolutionFailed
		}
		return "", err
	}
	return u.ID, nil
}

// EnsureAdminUser makes sure the env super admin has a user row so that it
// can own carts and orders. It is a no-op when no env admin is configured.
func (s *AuthService) EnsureAdminUser(ctx context.Context) error {
	if !s.envAdminEnabled() {
		return nil
	}
	_, err := s.Users.ByEmail(ctx, s.AdminEmail)
	if err == nil {
		return nil
	}
	if domain.Code(err) != domain.CodeNotFound {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(s.AdminPassword), s.Cost)
	if err != nil {
		return err
	}
	u := &domain.User{
		Email:    s.AdminEmail,
		Name:     "Administrator",
		Hash:     string(hash),
		Role:     domain.RoleAdmin,
		IsActive: true,
	}
	if err := s.Users.Create(ctx, u); err != nil && domain.Code(err) != domain.CodeConflict {
		return err
	}
	s.Log.Info("env admin user ensured", zap.String("email", s.AdminEmail))
	return nil
}

type SignupInput struct {
	Email    string `json:"email" validate:"required,email,max=80"`
	Name     string `json:"name" validate:"required,max=80"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Signup creates an active customer account.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	u, err := s.newUser(in, domain.RoleUser, true)
	if err != nil {
		return nil, err
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if domain.Code(err) == domain.CodeConflict {
			return nil, domain.Errorf(domain.CodeConflict, "An account with this email already exists")
		}
		return nil, err
	}
	return u, nil
}

func (s *AuthService) newUser(in SignupInput, role domain.Role, active bool) (*domain.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, domain.NewDomainError(domain.CodeInvalidInput, err.Error())
	}
	email, ok := validate.Email(in.Email)
	if !ok {
		return nil, domain.Errorf(domain.CodeInvalidInput, "Invalid email address")
	}
	name, ok := validate.Name(in.Name)
	if !ok {
		return nil, domain.Errorf(domain.CodeInvalidInput, "Invalid name")
	}
	if !validate.Password(in.Password) {
		return nil, domain.Errorf(domain.CodeInvalidInput, "Password needs upper and lower case letters, a digit and a symbol")
	}
	if s.envAdminEnabled() && strings.EqualFold(email, s.AdminEmail) {
		return nil, domain.Errorf(domain.CodeConflict, "An account with this email already exists")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.Cost)
	if err != nil {
		return nil, err
	}
	return &domain.User{
		Email:    email,
		Name:     name,
		Hash:     string(hash),
		Role:     role,
		IsActive: active,
	}, nil
}
