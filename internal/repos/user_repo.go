package repos

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"agromart/internal/domain"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

type userRow struct {
	ID              string `db:"id"`
	Email           string `db:"email"`
	Name            string `db:"name"`
	Hash            string `db:"password_hash"`
	Role            string `db:"role"`
	EmployeeRole    string `db:"employee_role"`
	PermissionsJSON string `db:"permissions_json"`
	IsActive        bool   `db:"is_active"`
	CreatedAt       string `db:"created_at"`
	UpdatedAt       string `db:"updated_at"`
}

func (r userRow) toDomain() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		Hash:         r.Hash,
		Role:         domain.Role(r.Role),
		EmployeeRole: r.EmployeeRole,
		Permissions:  decodeStrings(r.PermissionsJSON),
		IsActive:     r.IsActive,
		CreatedAt:    parseStamp(r.CreatedAt),
		UpdatedAt:    parseStamp(r.UpdatedAt),
	}
}

const userCols = `id, email, name, password_hash, role, employee_role, permissions_json, is_active, created_at, updated_at`

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	var row userRow
	if err := r.DB.GetContext(ctx, &row, `SELECT `+userCols+` FROM users WHERE LOWER(email) = LOWER(?)`, email); err != nil {
		return nil, notFound(err)
	}
	return row.toDomain(), nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	var row userRow
	if err := r.DB.GetContext(ctx, &row, `SELECT `+userCols+` FROM users WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	return row.toDomain(), nil
}

func (r *UserRepo) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	var rows []userRow
	if err := r.DB.SelectContext(ctx, &rows, `SELECT `+userCols+` FROM users WHERE role = ? ORDER BY email`, string(role)); err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.toDomain())
	}
	return out, nil
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	return insertUser(ctx, r.DB, u)
}

func insertUser(ctx context.Context, ex sqlx.ExecerContext, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := ex.ExecContext(ctx, `
	  INSERT INTO users(`+userCols+`)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.Hash, string(u.Role), u.EmployeeRole, encodeStrings(u.Permissions),
		boolInt(u.IsActive), stamp(now), stamp(now))
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	return err
}

// UpdateAccess replaces the employee role and explicit permission list.
func (r *UserRepo) UpdateAccess(ctx context.Context, id, employeeRole string, perms []string) error {
	res, err := r.DB.ExecContext(ctx, `
	  UPDATE users SET employee_role = ?, permissions_json = ?, updated_at = ? WHERE id = ?`,
		employeeRole, encodeStrings(perms), stamp(time.Now()), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepo) BindSession(ctx context.Context, sid, subject string) error {
	now := stamp(time.Now())
	_, err := r.DB.ExecContext(ctx, `
	  INSERT INTO sessions(id, subject, created_at, last_seen) VALUES (?, ?, ?, ?)
	  ON CONFLICT(id) DO UPDATE SET subject = excluded.subject, last_seen = excluded.last_seen`,
		sid, subject, now, now)
	return err
}

// SessionSubject returns who is signed in on sid, or domain.ErrNotFound.
func (r *UserRepo) SessionSubject(ctx context.Context, sid string) (string, error) {
	var subject sql.NullString
	if err := r.DB.GetContext(ctx, &subject, `SELECT subject FROM sessions WHERE id = ?`, sid); err != nil {
		return "", notFound(err)
	}
	if !subject.Valid || subject.String == "" {
		return "", domain.ErrNotFound
	}
	return subject.String, nil
}

func (r *UserRepo) UnbindSession(ctx context.Context, sid string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE sessions SET subject = NULL, last_seen = ? WHERE id = ?`, stamp(time.Now()), sid)
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
