package services

import (
	"context"
	"strings"

	"agromart/internal/authz"
	"agromart/internal/domain"
	"agromart/internal/validate"
)

type NewsService struct {
	News NewsStore
}

func NewNewsService(news NewsStore) *NewsService { return &NewsService{News: news} }

func (s *NewsService) Published(ctx context.Context) ([]domain.NewsPost, error) {
	return s.News.List(ctx, true)
}

// Post returns a published post by id or slug. Drafts are NOT_FOUND here.
func (s *NewsService) Post(ctx context.Context, idOrSlug string) (*domain.NewsPost, error) {
	p, err := s.News.Get(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if !p.Published {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *NewsService) All(ctx context.Context, actor *domain.Actor) ([]domain.NewsPost, error) {
	if !authz.HasAny(actor, authz.NewsRead, authz.NewsWrite) {
		return nil, domain.ErrUnauthorized
	}
	return s.News.List(ctx, false)
}

type NewsInput struct {
	Title     string `json:"title" validate:"required,max=160"`
	Slug      string `json:"slug" validate:"max=120"`
	Summary   string `json:"summary" validate:"max=400"`
	Body      string `json:"body" validate:"max=20000"`
	Published bool   `json:"published"`
}

func (in NewsInput) apply(p *domain.NewsPost) error {
	if err := validate.Struct(in); err != nil {
		return domain.NewDomainError(domain.CodeInvalidInput, err.Error())
	}
	slug := in.Slug
	if strings.TrimSpace(slug) == "" {
		slug = slugify(in.Title)
	}
	slug, ok := validate.Slug(slug)
	if !ok {
		return domain.Errorf(domain.CodeInvalidInput, "Invalid slug %q", in.Slug)
	}
	p.Title = strings.TrimSpace(in.Title)
	p.Slug = slug
	p.Summary = strings.TrimSpace(in.Summary)
	p.Body = in.Body
	p.Published = in.Published
	return nil
}

func slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func (s *NewsService) Create(ctx context.Context, actor *domain.Actor, in NewsInput) (*domain.NewsPost, error) {
	if !authz.HasPermission(actor, authz.NewsWrite) {
		return nil, domain.ErrUnauthorized
	}
	p := &domain.NewsPost{AuthorID: actor.ID}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	if err := s.News.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *NewsService) Update(ctx context.Context, actor *domain.Actor, id string, in NewsInput) (*domain.NewsPost, error) {
	if !authz.HasPermission(actor, authz.NewsWrite) {
		return nil, domain.ErrUnauthorized
	}
	p, err := s.News.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	if err := s.News.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *NewsService) Delete(ctx context.Context, actor *domain.Actor, id string) error {
	if !authz.HasPermission(actor, authz.NewsWrite) {
		return domain.ErrUnauthorized
	}
	return s.News.Delete(ctx, id)
}
