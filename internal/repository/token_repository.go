package repository

import (
	"context"
	"time"

	"github.com/iliyamo/backoffice-api/internal/model"
)

// TokenRepo persists refresh tokens (single 'token_hash' column, the raw
// value is never stored).
type TokenRepo struct{ q Querier }

// Store inserts a refresh token hash row and fills its ID.
func (r *TokenRepo) Store(ctx context.Context, t *model.RefreshToken) error {
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at, revoked, created_at) VALUES (?,?,?,?,?)",
		t.UserID, t.TokenHash, t.ExpiresAt, t.Revoked, t.CreatedAt)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetByHash returns the token row whatever its state; callers decide
// whether it is still usable.
func (r *TokenRepo) GetByHash(ctx context.Context, hash string) (*model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.q.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, expires_at, revoked, created_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		hash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &t.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

// CountActive counts unrevoked, unexpired tokens of the user.
func (r *TokenRepo) CountActive(ctx context.Context, userID uint64, now time.Time) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM refresh_tokens WHERE user_id=? AND revoked=0 AND expires_at > ?",
		userID, now).Scan(&n)
	return n, err
}

// RevokeOldestActive marks the n oldest active tokens as revoked.
func (r *TokenRepo) RevokeOldestActive(ctx context.Context, userID uint64, n int, now time.Time) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked=1
		  WHERE user_id=? AND revoked=0 AND expires_at > ?
		  ORDER BY created_at ASC, id ASC LIMIT ?`,
		userID, now, n)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RevokeForUser revokes one token, only if it belongs to userID.
func (r *TokenRepo) RevokeForUser(ctx context.Context, hash string, userID uint64) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked=1 WHERE token_hash=? AND user_id=? AND revoked=0",
		hash, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RevokeAllForUser revokes all user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked=1 WHERE user_id=? AND revoked=0",
		userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
