package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"agromart/internal/domain"
)

type NewsRepo struct{ db *sqlx.DB }

func NewNewsRepo(db *sqlx.DB) *NewsRepo { return &NewsRepo{db: db} }

type newsRow struct {
	ID        string `db:"id"`
	Title     string `db:"title"`
	Slug      string `db:"slug"`
	Summary   string `db:"summary"`
	Body      string `db:"body"`
	Published bool   `db:"published"`
	AuthorID  string `db:"author_id"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (r newsRow) toDomain() domain.NewsPost {
	return domain.NewsPost{
		ID:        r.ID,
		Title:     r.Title,
		Slug:      r.Slug,
		Summary:   r.Summary,
		Body:      r.Body,
		Published: r.Published,
		AuthorID:  r.AuthorID,
		CreatedAt: parseStamp(r.CreatedAt),
		UpdatedAt: parseStamp(r.UpdatedAt),
	}
}

const newsCols = `id, title, slug, summary, body, published, author_id, created_at, updated_at`

func (r *NewsRepo) List(ctx context.Context, publishedOnly bool) ([]domain.NewsPost, error) {
	where := `1 = 1`
	if publishedOnly {
		where = `published = 1`
	}
	var rows []newsRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+newsCols+` FROM news_posts WHERE `+where+` ORDER BY created_at DESC`); err != nil {
		return nil, err
	}
	out := make([]domain.NewsPost, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// Get looks a post up by id or slug.
func (r *NewsRepo) Get(ctx context.Context, idOrSlug string) (*domain.NewsPost, error) {
	var row newsRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+newsCols+` FROM news_posts WHERE id = ? OR slug = ?`, idOrSlug, idOrSlug); err != nil {
		return nil, notFound(err)
	}
	p := row.toDomain()
	return &p, nil
}

func (r *NewsRepo) Create(ctx context.Context, p *domain.NewsPost) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx, `
	  INSERT INTO news_posts(`+newsCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Slug, p.Summary, p.Body, boolInt(p.Published), p.AuthorID, stamp(now), stamp(now))
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	return err
}

func (r *NewsRepo) Update(ctx context.Context, p *domain.NewsPost) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
	  UPDATE news_posts SET title = ?, slug = ?, summary = ?, body = ?, published = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Slug, p.Summary, p.Body, boolInt(p.Published), stamp(p.UpdatedAt), p.ID)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *NewsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM news_posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
