package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"agromart/internal/authz"
	"agromart/internal/domain"
	"agromart/internal/notify"
	"agromart/internal/validate"
)

type ApplicationService struct {
	Apps   ApplicationStore
	Auth   *AuthService
	Events notify.Publisher
	Log    *zap.Logger
}

func NewApplicationService(apps ApplicationStore, auth *AuthService, events notify.Publisher, log *zap.Logger) *ApplicationService {
	if events == nil {
		events = notify.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ApplicationService{Apps: apps, Auth: auth, Events: events, Log: log.Named("applications")}
}

type ApplicationInput struct {
	Kind         domain.ApplicationKind `json:"kind" validate:"required,oneof=vendor distributor"`
	Email        string                 `json:"email" validate:"required,email,max=80"`
	Name         string                 `json:"name" validate:"required,max=80"`
	Password     string                 `json:"password" validate:"required,min=8,max=72"`
	BusinessName string                 `json:"businessName" validate:"required,max=120"`
	Phone        string                 `json:"phone" validate:"required,phone"`
	Region       string                 `json:"region" validate:"max=80"`
}

// Apply registers a partner account together with its pending application.
// The account stays inactive until a reviewer approves it.
func (s *ApplicationService) Apply(ctx context.Context, in ApplicationInput) (*domain.Application, error) {
	in.Kind = domain.ApplicationKind(strings.ToLower(strings.TrimSpace(string(in.Kind))))
	if err := validate.Struct(in); err != nil {
		return nil, domain.NewDomainError(domain.CodeInvalidInput, err.Error())
	}
	u, err := s.Auth.newUser(SignupInput{Email: in.Email, Name: in.Name, Password: in.Password}, in.Kind.Role(), false)
	if err != nil {
		return nil, err
	}
	phone, _ := validate.Phone(in.Phone)
	a := &domain.Application{
		Kind:         in.Kind,
		BusinessName: strings.TrimSpace(in.BusinessName),
		Phone:        phone,
		Region:       strings.TrimSpace(in.Region),
		Status:       domain.ApplicationPending,
	}
	if err := s.Apps.Register(ctx, u, a); err != nil {
		if domain.Code(err) == domain.CodeConflict {
			return nil, domain.Errorf(domain.CodeConflict, "An account with this email already exists")
		}
		return nil, err
	}
	s.Log.Info("application received", zap.String("application_id", a.ID), zap.String("kind", string(a.Kind)))
	return a, nil
}

func reviewPermissions(kind domain.ApplicationKind) (read, approve authz.Permission) {
	if kind == domain.KindDistributor {
		return authz.DistributorsRead, authz.DistributorsApprove
	}
	return authz.VendorsRead, authz.VendorsApprove
}

func (s *ApplicationService) List(ctx context.Context, actor *domain.Actor, kind domain.ApplicationKind, status domain.ApplicationStatus) ([]domain.Application, error) {
	if !kind.Valid() {
		return nil, domain.Errorf(domain.CodeInvalidInput, "Unknown application kind %q", kind)
	}
	if status != "" && !status.Valid() {
		return nil, domain.Errorf(domain.CodeInvalidInput, "Unknown application status %q", status)
	}
	read, approve := reviewPermissions(kind)
	if !authz.HasAny(actor, read, approve) {
		return nil, domain.ErrUnauthorized
	}
	return s.Apps.List(ctx, kind, status)
}

// SetStatus moves an application to status. The linked account is
// activated on approval and deactivated otherwise, atomically with the
// status change.
func (s *ApplicationService) SetStatus(ctx context.Context, actor *domain.Actor, kind domain.ApplicationKind, id string, status domain.ApplicationStatus) (*domain.Application, error) {
	if !status.Valid() {
		return nil, domain.Errorf(domain.CodeInvalidInput, "Unknown application status %q", status)
	}
	_, approve := reviewPermissions(kind)
	if !authz.HasPermission(actor, approve) {
		return nil, domain.ErrUnauthorized
	}
	cur, err := s.Apps.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.Kind != kind {
		return nil, domain.ErrNotFound
	}
	a, err := s.Apps.SetStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.Log.Info("application status changed",
		zap.String("application_id", a.ID),
		zap.String("status", string(a.Status)),
		zap.String("by", actor.ID))
	s.Events.Publish(notify.NewEvent(notify.TypeApplicationStatus, a.ID, a))
	return a, nil
}
