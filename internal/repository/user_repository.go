package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/backoffice-api/internal/model"
)

type UserRepo struct{ q Querier }

const userColumns = "id, username, email, password_hash, role, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// Create inserts the user and fills its ID.  The email is normalized.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, role, created_at, updated_at) VALUES (?,?,?,?,?,?)",
		u.Username, u.Email, u.PasswordHash, u.Role, u.CreatedAt, u.CreatedAt)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	u.UpdatedAt = u.CreatedAt
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

func (r *UserRepo) GetForUpdate(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? FOR UPDATE", id))
}

func (r *UserRepo) List(ctx context.Context, limit int) ([]model.User, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id LIMIT ?", clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// Update writes the supplied fields only.
func (r *UserRepo) Update(ctx context.Context, id uint64, upd model.UserUpdate) error {
	var (
		sets []string
		args []any
	)
	if upd.Username != nil {
		sets = append(sets, "username=?")
		args = append(args, strings.TrimSpace(*upd.Username))
	}
	if upd.Email != nil {
		sets = append(sets, "email=?")
		args = append(args, strings.ToLower(strings.TrimSpace(*upd.Email)))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.q.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil {
		return mapErr(err)
	}
	return requireRow(res, func() error {
		_, err := r.GetByID(ctx, id)
		return err
	})
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	_, err := r.q.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	return mapErr(err)
}

func (r *UserRepo) Promote(ctx context.Context, id uint64) (bool, error) {
	res, err := r.q.ExecContext(ctx, "UPDATE users SET role='admin' WHERE id=? AND role='manager'", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return mapErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepo) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE role='admin'").Scan(&n)
	return n, err
}
