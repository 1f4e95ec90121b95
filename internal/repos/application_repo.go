package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"agromart/internal/domain"
)

type ApplicationRepo struct{ db *sqlx.DB }

func NewApplicationRepo(db *sqlx.DB) *ApplicationRepo { return &ApplicationRepo{db: db} }

type applicationRow struct {
	ID           string `db:"id"`
	Kind         string `db:"kind"`
	UserID       string `db:"user_id"`
	BusinessName string `db:"business_name"`
	Phone        string `db:"phone"`
	Region       string `db:"region"`
	Status       string `db:"status"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
}

func (r applicationRow) toDomain() domain.Application {
	return domain.Application{
		ID:           r.ID,
		Kind:         domain.ApplicationKind(r.Kind),
		UserID:       r.UserID,
		BusinessName: r.BusinessName,
		Phone:        r.Phone,
		Region:       r.Region,
		Status:       domain.ApplicationStatus(r.Status),
		CreatedAt:    parseStamp(r.CreatedAt),
		UpdatedAt:    parseStamp(r.UpdatedAt),
	}
}

const applicationCols = `id, kind, user_id, business_name, phone, region, status, created_at, updated_at`

// Register creates the applicant's account and the pending application
// together; neither exists without the other.
func (r *ApplicationRepo) Register(ctx context.Context, u *domain.User, a *domain.Application) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := insertUser(ctx, tx, u); err != nil {
			return err
		}
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		a.UserID = u.ID
		now := time.Now().UTC()
		a.CreatedAt, a.UpdatedAt = now, now
		_, err := tx.ExecContext(ctx, `
		  INSERT INTO applications(`+applicationCols+`)
		  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, string(a.Kind), a.UserID, a.BusinessName, a.Phone, a.Region, string(a.Status), stamp(now), stamp(now))
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	})
}

func (r *ApplicationRepo) Get(ctx context.Context, id string) (*domain.Application, error) {
	var row applicationRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+applicationCols+` FROM applications WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	a := row.toDomain()
	return &a, nil
}

func (r *ApplicationRepo) List(ctx context.Context, kind domain.ApplicationKind, status domain.ApplicationStatus) ([]domain.Application, error) {
	where := `kind = ?`
	args := []any{string(kind)}
	if status != "" {
		where += ` AND status = ?`
		args = append(args, string(status))
	}
	var rows []applicationRow
	if err := r.db.SelectContext(ctx, &rows, `
	  SELECT `+applicationCols+` FROM applications WHERE `+where+` ORDER BY created_at DESC`, args...); err != nil {
		return nil, err
	}
	out := make([]domain.Application, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// SetStatus moves the application to status and flips the linked user's
// active flag and role in the same transaction.
func (r *ApplicationRepo) SetStatus(ctx context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error) {
	var out domain.Application
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var row applicationRow
		if err := tx.GetContext(ctx, &row, `SELECT `+applicationCols+` FROM applications WHERE id = ?`, id); err != nil {
			return notFound(err)
		}
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx, `UPDATE applications SET status = ?, updated_at = ? WHERE id = ?`,
			string(status), stamp(now), id); err != nil {
			return err
		}
		active, role := domain.LinkedUserState(domain.ApplicationKind(row.Kind), status)
		res, err := tx.ExecContext(ctx, `UPDATE users SET is_active = ?, role = ?, updated_at = ? WHERE id = ?`,
			boolInt(active), string(role), stamp(now), row.UserID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.Errorf(domain.CodeNotFound, "Applicant account %s not found", row.UserID)
		}
		out = row.toDomain()
		out.Status = status
		out.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
