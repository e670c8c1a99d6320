package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/iliyamo/backoffice-api/internal/apperr"
	"github.com/iliyamo/backoffice-api/internal/config"
	"github.com/iliyamo/backoffice-api/internal/metrics"
	"github.com/iliyamo/backoffice-api/internal/model"
	"github.com/iliyamo/backoffice-api/internal/repository"
	"github.com/iliyamo/backoffice-api/internal/utils"
)

const minPasswordLen = 8

var errInvalidCredentials = apperr.Authentication("Invalid credentials.")

// Session is returned by register and login.  The refresh token is handed
// out once; only its hash is stored.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	User         *model.User `json:"user"`
}

// AccessGrant is the result of a refresh: a new access token only.
type AccessGrant struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AuthService manages accounts, credentials and refresh-token sessions.
type AuthService struct {
	deps   Deps
	store  repository.Store
	tokens *utils.TokenService
	hasher *utils.PasswordHasher
	cfg    config.AuthConfig

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(store repository.Store, tokens *utils.TokenService, hasher *utils.PasswordHasher,
	cfg config.AuthConfig, d Deps) *AuthService {
	if cfg.SessionCap < 1 {
		cfg.SessionCap = 1
	}
	return &AuthService{deps: d.withDefaults(), store: store, tokens: tokens, hasher: hasher, cfg: cfg}
}

func validatePassword(p string) error {
	if len(p) < minPasswordLen {
		return apperr.Validation("Password must be at least %d characters", minPasswordLen)
	}
	return nil
}

func validateEmail(email string) error {
	if !strings.Contains(email, "@") {
		return apperr.Validation("Invalid email address")
	}
	return nil
}

func (s *AuthService) hash(plain string) (string, error) {
	h, err := s.hasher.HashPassword(plain)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return "", apperr.Validation("Password is too long")
	}
	if err != nil {
		return "", apperr.Internal(err, "Failed to hash password")
	}
	return h, nil
}

// newSession stores a fresh refresh token for u through tokens and signs
// an access token.
func (s *AuthService) newSession(ctx context.Context, tokens repository.TokenRepository, u *model.User) (*Session, error) {
	now := s.deps.now()
	refresh, err := utils.NewRefreshToken(now, s.cfg.RefreshTTL)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to issue refresh token")
	}
	row := &model.RefreshToken{
		UserID:    u.ID,
		TokenHash: utils.HashRefreshRaw(refresh.Raw),
		ExpiresAt: refresh.Exp,
		CreatedAt: s.deps.Now().UTC(),
	}
	if err := tokens.Store(ctx, row); err != nil {
		return nil, dbErr(err)
	}
	access, err := s.tokens.IssueAccess(u.ID, string(u.Role), s.cfg.AccessTTL)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to issue access token")
	}
	return &Session{
		AccessToken:  access.Token,
		RefreshToken: refresh.Raw,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.cfg.AccessTTL.Seconds()),
		User:         u,
	}, nil
}

// Register creates a manager account and opens its first session.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" || password == "" {
		return nil, apperr.Validation("Missing email, username or password.")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	var sess *Session
	err = s.store.WithinTx(ctx, func(tx repository.Repos) error {
		if _, err := tx.Users().GetByEmail(ctx, email); err == nil {
			return apperr.Conflict("User already exists!")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return dbErr(err)
		}
		u := &model.User{
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			Role:         model.RoleManager,
			CreatedAt:    s.deps.now(),
		}
		if err := tx.Users().Create(ctx, u); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.Conflict("User already exists!")
			}
			return dbErr(err)
		}
		sess, err = s.newSession(ctx, tx.Tokens(), u)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.deps.Logger.Info("user registered", "user_id", sess.User.ID)
	return sess, nil
}

// dummy returns a hash compared against when the email is unknown, so both
// failure paths cost one bcrypt comparison.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.HashPassword("not-a-real-password")
	})
	return s.dummyHash
}

// Login checks the credentials and opens a new session.  When the user
// already has SessionCap active sessions the oldest ones are revoked.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.Validation("Missing email or password.")
	}
	u, err := s.store.Users().GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.hasher.VerifyPassword(s.dummy(), password)
		metrics.ObserveLogin("failure")
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, dbErr(err)
	}
	if !s.hasher.VerifyPassword(u.PasswordHash, password) {
		metrics.ObserveLogin("failure")
		return nil, errInvalidCredentials
	}

	var sess *Session
	err = s.store.WithinTx(ctx, func(tx repository.Repos) error {
		// The user row lock serialises concurrent logins of the same account.
		locked, err := tx.Users().GetForUpdate(ctx, u.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errInvalidCredentials
			}
			return dbErr(err)
		}
		now := s.deps.Now().UTC()
		active, err := tx.Tokens().CountActive(ctx, locked.ID, now)
		if err != nil {
			return dbErr(err)
		}
		if active >= s.cfg.SessionCap {
			n, err := tx.Tokens().RevokeOldestActive(ctx, locked.ID, active-s.cfg.SessionCap+1, now)
			if err != nil {
				return dbErr(err)
			}
			s.deps.Logger.Info("sessions evicted", "user_id", locked.ID, "revoked", n)
		}
		sess, err = s.newSession(ctx, tx.Tokens(), locked)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.ObserveLogin("success")
	return sess, nil
}

// Refresh exchanges an active refresh token for a new access token.  The
// role is read again from the user row, the refresh token is kept.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*AccessGrant, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperr.Validation("Refresh token is required")
	}
	invalid := apperr.Authentication("Invalid or expired refresh token")
	t, err := s.store.Tokens().GetByHash(ctx, utils.HashRefreshRaw(raw))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, dbErr(err)
	}
	if !t.Active(s.deps.Now().UTC()) {
		return nil, invalid
	}
	u, err := s.store.Users().GetByID(ctx, t.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, dbErr(err)
	}
	access, err := s.tokens.IssueAccess(u.ID, string(u.Role), s.cfg.AccessTTL)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to issue access token")
	}
	return &AccessGrant{
		AccessToken: access.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.cfg.AccessTTL.Seconds()),
	}, nil
}

// Logout revokes one refresh token of userID.  Tokens of other users are
// reported as not found.
func (s *AuthService) Logout(ctx context.Context, raw string, userID uint64) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return apperr.Validation("Refresh token is required")
	}
	hash := utils.HashRefreshRaw(raw)
	notFound := apperr.NotFound("Active refresh token not found")
	t, err := s.store.Tokens().GetByHash(ctx, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	if err != nil {
		return dbErr(err)
	}
	if t.UserID != userID || !t.Active(s.deps.Now().UTC()) {
		return notFound
	}
	n, err := s.store.Tokens().RevokeForUser(ctx, hash, userID)
	if err != nil {
		return dbErr(err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// LogoutAll revokes every active refresh token of userID.
func (s *AuthService) LogoutAll(ctx context.Context, userID uint64) (int64, error) {
	n, err := s.store.Tokens().RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, dbErr(err)
	}
	return n, nil
}

// UpdatePassword changes the password of userID after checking current.
func (s *AuthService) UpdatePassword(ctx context.Context, userID uint64, current, next string) error {
	if current == "" {
		return apperr.Validation("Current password is required")
	}
	if next == "" {
		return apperr.Validation("New password is required.")
	}
	if next == current {
		return apperr.Validation("New password must be different from current password")
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	u, err := s.store.Users().GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("User not found")
	}
	if err != nil {
		return dbErr(err)
	}
	if !s.hasher.VerifyPassword(u.PasswordHash, current) {
		return apperr.Authentication("Current password is incorrect")
	}
	hash, err := s.hash(next)
	if err != nil {
		return err
	}
	if err := s.store.Users().UpdatePassword(ctx, userID, hash); err != nil {
		return apperr.Internal(err, "Failed to update password")
	}
	return nil
}

// EnsureAdmin makes sure an administrator with the given email exists,
// creating or promoting it.  It does nothing when email is empty.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	var admin *model.User
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		u, err := tx.Users().GetByEmail(ctx, email)
		switch {
		case err == nil:
			if u.Role != model.RoleAdmin {
				if _, err := tx.Users().Promote(ctx, u.ID); err != nil {
					return dbErr(err)
				}
				u.Role = model.RoleAdmin
				s.deps.Logger.Info("bootstrap admin promoted", "user_id", u.ID)
			}
			admin = u
			return nil
		case !errors.Is(err, repository.ErrNotFound):
			return dbErr(err)
		}

		username = strings.TrimSpace(username)
		if username == "" {
			username = "admin"
		}
		if err := validateEmail(email); err != nil {
			return err
		}
		if err := validatePassword(password); err != nil {
			return err
		}
		hash, err := s.hash(password)
		if err != nil {
			return err
		}
		admin = &model.User{
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			Role:         model.RoleAdmin,
			CreatedAt:    s.deps.now(),
		}
		if err := tx.Users().Create(ctx, admin); err != nil {
			return dbErr(err)
		}
		s.deps.Logger.Info("bootstrap admin created", "user_id", admin.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return admin, nil
}
