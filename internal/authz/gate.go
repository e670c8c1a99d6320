// Package authz decides whether a bearer token may call an operation.  It
// knows nothing about HTTP; middleware.Authorize adapts it to echo.
package authz

import (
	"errors"
	"slices"
	"strings"

	"github.com/iliyamo/backoffice-api/internal/apperr"
	"github.com/iliyamo/backoffice-api/internal/model"
	"github.com/iliyamo/backoffice-api/internal/utils"
)

const bearerPrefix = "Bearer "

// Principal is the authenticated caller.
type Principal struct {
	UserID uint64
	Role   model.Role
}

// Gate checks access tokens against the roles allowed on an operation.
type Gate struct {
	tokens *utils.TokenService
}

func NewGate(tokens *utils.TokenService) *Gate { return &Gate{tokens: tokens} }

// Authorize validates the Authorization header value and checks the role.
// An empty allowed list admits every authenticated role.
func (g *Gate) Authorize(header string, allowed []model.Role) (Principal, error) {
	if header == "" {
		return Principal{}, apperr.Authentication("Authorization header is missing")
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return Principal{}, apperr.Authentication("Authorization header must use the Bearer scheme")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if raw == "" {
		return Principal{}, apperr.Authentication("Access token is missing")
	}

	claims, err := g.tokens.ParseAccess(raw)
	switch {
	case errors.Is(err, utils.ErrTokenExpired):
		return Principal{}, apperr.Authentication("Access token has expired")
	case err != nil:
		return Principal{}, apperr.Authentication("Invalid access token")
	}

	p := Principal{UserID: claims.UserID, Role: model.Role(claims.Role)}
	if !p.Role.Valid() {
		return Principal{}, apperr.Authentication("Invalid access token")
	}
	if len(allowed) > 0 && !slices.Contains(allowed, p.Role) {
		return Principal{}, apperr.Authorization("Access denied. Insufficient permissions.")
	}
	return p, nil
}
