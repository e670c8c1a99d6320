package model

import "time"

// Role is the access level of a back-office user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleAdmin || r == RoleManager }

// User represents a row of the `users` table.  The password hash never
// leaves the service layer; it is excluded from JSON output.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Username     – display name shown in audit trails.
//	Email        – unique email address, stored lower-cased.
//	PasswordHash – bcrypt hash of password+application salt.
//	Role         – admin or manager.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserUpdate carries the optional fields an administrator may change.
type UserUpdate struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

// Empty reports whether no field was supplied.
func (u UserUpdate) Empty() bool { return u.Username == nil && u.Email == nil }

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
type RefreshToken struct {
	ID        uint64    // refresh_tokens.id
	UserID    uint64    // refresh_tokens.user_id
	TokenHash string    // refresh_tokens.token_hash
	ExpiresAt time.Time // refresh_tokens.expires_at
	Revoked   bool      // refresh_tokens.revoked
	CreatedAt time.Time // refresh_tokens.created_at
}

// Active reports whether the token can still be exchanged at now.
func (t RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
