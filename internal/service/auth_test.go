package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/backoffice-api/internal/apperr"
	"github.com/iliyamo/backoffice-api/internal/model"
	"github.com/iliyamo/backoffice-api/internal/utils"
)

func TestRegisterOpensSession(t *testing.T) {
	e := newEnv(t)
	sess := e.register("alice", "  Alice@Example.com ")

	assert.Equal(t, "Bearer", sess.TokenType)
	assert.Equal(t, int64(3600), sess.ExpiresIn)
	assert.Equal(t, "alice@example.com", sess.User.Email)
	assert.Equal(t, model.RoleManager, sess.User.Role)
	assert.Len(t, sess.RefreshToken, 64)

	claims, err := e.tokens.ParseAccess(sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, claims.UserID)
	assert.Equal(t, "manager", claims.Role)

	// Only the hash of the refresh token is stored.
	stored, err := e.store.Tokens().GetByHash(e.ctx, utils.HashRefreshRaw(sess.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, stored.UserID)
	assert.NotEqual(t, sess.RefreshToken, stored.TokenHash)
}

func TestRegisterRejectsDuplicateAndBadInput(t *testing.T) {
	e := newEnv(t)
	e.register("alice", "alice@example.com")

	_, err := e.auth.Register(e.ctx, "other", "ALICE@example.com", "password123")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "User already exists!", apperr.Message(err))

	_, err = e.auth.Register(e.ctx, "", "bob@example.com", "password123")
	assert.Equal(t, "Missing email, username or password.", apperr.Message(err))
	_, err = e.auth.Register(e.ctx, "bob", "bob@example.com", "short")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = e.auth.Register(e.ctx, "bob", "not-an-email", "password123")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLoginDoesNotRevealWhichPartIsWrong(t *testing.T) {
	e := newEnv(t)
	e.register("alice", "alice@example.com")

	_, errUnknown := e.auth.Login(e.ctx, "nobody@example.com", "password123")
	_, errWrong := e.auth.Login(e.ctx, "alice@example.com", "wrong-password")
	require.Error(t, errUnknown)
	require.Error(t, errWrong)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
	assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(errWrong))
	assert.Equal(t, "Invalid credentials.", apperr.Message(errWrong))

	_, err := e.auth.Login(e.ctx, "", "x")
	assert.Equal(t, "Missing email or password.", apperr.Message(err))
}

func TestLoginCapsActiveSessions(t *testing.T) {
	e := newEnv(t)
	reg := e.register("alice", "alice@example.com")
	uid := reg.User.ID

	var sessions []*Session
	for i := 0; i < 3; i++ {
		e.tick(time.Second)
		s, err := e.auth.Login(e.ctx, "alice@example.com", "password123")
		require.NoError(t, err)
		sessions = append(sessions, s)
	}

	n, err := e.store.Tokens().CountActive(e.ctx, uid, e.now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// The two newest sessions survive.
	_, err = e.auth.Refresh(e.ctx, reg.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrAuthentication)
	_, err = e.auth.Refresh(e.ctx, sessions[0].RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrAuthentication)
	for _, s := range sessions[1:] {
		_, err = e.auth.Refresh(e.ctx, s.RefreshToken)
		assert.NoError(t, err)
	}
}

func TestRefreshReadsCurrentRole(t *testing.T) {
	e := newEnv(t)
	sess := e.register("alice", "alice@example.com")
	_, err := e.users.Promote(e.ctx, sess.User.ID)
	require.NoError(t, err)

	grant, err := e.auth.Refresh(e.ctx, sess.RefreshToken)
	require.NoError(t, err)
	claims, err := e.tokens.ParseAccess(grant.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)

	_, err = e.auth.Refresh(e.ctx, "")
	assert.Equal(t, "Refresh token is required", apperr.Message(err))

	e.tick(25 * time.Hour)
	_, err = e.auth.Refresh(e.ctx, sess.RefreshToken)
	assert.Equal(t, "Invalid or expired refresh token", apperr.Message(err))
}

func TestLogoutOnlyRevokesOwnTokens(t *testing.T) {
	e := newEnv(t)
	alice := e.register("alice", "alice@example.com")
	bob := e.register("bob", "bob@example.com")

	err := e.auth.Logout(e.ctx, alice.RefreshToken, bob.User.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = e.auth.Refresh(e.ctx, alice.RefreshToken)
	require.NoError(t, err, "token of another user must stay active")

	require.NoError(t, e.auth.Logout(e.ctx, alice.RefreshToken, alice.User.ID))
	_, err = e.auth.Refresh(e.ctx, alice.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrAuthentication)
	assert.ErrorIs(t, e.auth.Logout(e.ctx, alice.RefreshToken, alice.User.ID), apperr.ErrNotFound)
}

func TestLogoutAll(t *testing.T) {
	e := newEnv(t)
	e.register("alice", "alice@example.com")
	s, err := e.auth.Login(e.ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	n, err := e.auth.LogoutAll(e.ctx, s.User.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	_, err = e.auth.Refresh(e.ctx, s.RefreshToken)
	assert.Error(t, err)
}

func TestUpdatePassword(t *testing.T) {
	e := newEnv(t)
	sess := e.register("alice", "alice@example.com")
	uid := sess.User.ID

	err := e.auth.UpdatePassword(e.ctx, uid, "password123", "password123")
	assert.Equal(t, "New password must be different from current password", apperr.Message(err))
	err = e.auth.UpdatePassword(e.ctx, uid, "bad-current", "newpassword1")
	assert.Equal(t, "Current password is incorrect", apperr.Message(err))

	require.NoError(t, e.auth.UpdatePassword(e.ctx, uid, "password123", "newpassword1"))
	_, err = e.auth.Login(e.ctx, "alice@example.com", "password123")
	assert.ErrorIs(t, err, apperr.ErrAuthentication)
	_, err = e.auth.Login(e.ctx, "alice@example.com", "newpassword1")
	assert.NoError(t, err)
}

func TestEnsureAdmin(t *testing.T) {
	e := newEnv(t)

	admin, err := e.auth.EnsureAdmin(e.ctx, "root", "root@example.com", "rootpassword")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)

	again, err := e.auth.EnsureAdmin(e.ctx, "root", "root@example.com", "rootpassword")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	mgr := e.register("carol", "carol@example.com")
	promoted, err := e.auth.EnsureAdmin(e.ctx, "", "carol@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, mgr.User.ID, promoted.ID)
	assert.Equal(t, model.RoleAdmin, promoted.Role)

	none, err := e.auth.EnsureAdmin(e.ctx, "x", "", "y")
	assert.NoError(t, err)
	assert.Nil(t, none)
}
