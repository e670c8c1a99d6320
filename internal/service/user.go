package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/backoffice-api/internal/apperr"
	"github.com/iliyamo/backoffice-api/internal/model"
	"github.com/iliyamo/backoffice-api/internal/repository"
	"github.com/iliyamo/backoffice-api/internal/utils"
)

// UserService is the administrator's view of accounts.
type UserService struct {
	deps   Deps
	store  repository.Store
	hasher *utils.PasswordHasher
}

func NewUserService(store repository.Store, hasher *utils.PasswordHasher, d Deps) *UserService {
	return &UserService{deps: d.withDefaults(), store: store, hasher: hasher}
}

func userNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("User not found")
	}
	return dbErr(err)
}

func (s *UserService) Get(ctx context.Context, id uint64) (*model.User, error) {
	if id == 0 {
		return nil, apperr.Validation("Invalid user ID")
	}
	u, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, userNotFound(err)
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, limit int) ([]model.User, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	users, err := s.store.Users().List(ctx, limit)
	if err != nil {
		return nil, dbErr(err)
	}
	return users, nil
}

// Update changes the username and/or email of a user.
func (s *UserService) Update(ctx context.Context, id uint64, upd model.UserUpdate) (*model.User, error) {
	if upd.Empty() {
		return nil, apperr.Validation("No valid fields to update. Allowed fields: username, email")
	}
	if upd.Username != nil {
		name := strings.TrimSpace(*upd.Username)
		if name == "" {
			return nil, apperr.Validation("Username cannot be empty")
		}
		upd.Username = &name
	}
	if upd.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*upd.Email))
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		upd.Email = &email
	}
	if err := s.store.Users().Update(ctx, id, upd); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("Email is already in use")
		}
		return nil, userNotFound(err)
	}
	return s.Get(ctx, id)
}

// Promote turns a manager into an administrator.
func (s *UserService) Promote(ctx context.Context, id uint64) (*model.User, error) {
	var promoted *model.User
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		u, err := tx.Users().GetForUpdate(ctx, id)
		if err != nil {
			return userNotFound(err)
		}
		if u.Role == model.RoleAdmin {
			return apperr.Conflict("User is already admin")
		}
		ok, err := tx.Users().Promote(ctx, id)
		if err != nil {
			return dbErr(err)
		}
		if !ok {
			return apperr.Internal(nil, "Failed to promote user")
		}
		u.Role = model.RoleAdmin
		promoted = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.deps.Logger.Info("user promoted", "user_id", id)
	return promoted, nil
}

// SetPassword resets the password of a user without asking for the old one.
func (s *UserService) SetPassword(ctx context.Context, id uint64, password string) error {
	if password == "" {
		return apperr.Validation("New password is required.")
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	hash, err := s.hasher.HashPassword(password)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return apperr.Validation("Password is too long")
	}
	if err != nil {
		return apperr.Internal(err, "Failed to hash password")
	}
	if err := s.store.Users().UpdatePassword(ctx, id, hash); err != nil {
		return apperr.Internal(err, "Failed to update password")
	}
	return nil
}

// Delete removes a user and, by cascade, its refresh tokens.  Users that
// placed orders are kept for the order history.
func (s *UserService) Delete(ctx context.Context, actorID, id uint64) error {
	if id == 0 {
		return apperr.Validation("Invalid user ID")
	}
	if actorID == id {
		return apperr.Conflict("You cannot delete your own account")
	}
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		if _, err := tx.Users().GetForUpdate(ctx, id); err != nil {
			return userNotFound(err)
		}
		n, err := tx.Orders().CountByUser(ctx, id)
		if err != nil {
			return dbErr(err)
		}
		if n > 0 {
			return apperr.Conflict("User has orders and cannot be deleted")
		}
		if err := tx.Users().Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrReferenced) {
				return apperr.Conflict("User has orders and cannot be deleted")
			}
			return userNotFound(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.deps.Logger.Info("user deleted", "user_id", id, "actor_id", actorID)
	return nil
}
