package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/whosaidit/internal/logging"
	"github.com/iliyamo/whosaidit/internal/security"
)

// principalKey is the echo.Context key holding the request's principal.
const principalKey = "principal"

// Resolver is the part of security.Resolver the filter needs.
type Resolver interface {
	TokenType(raw string) (security.TokenType, error)
	Resolve(ctx context.Context, raw string) (security.Principal, error)
}

// Authenticate attaches a principal to every request and never rejects
// one. A missing, invalid or expired token leaves the request anonymous;
// Authorize decides whether that is acceptable for the path. Refresh tokens
// are only good at the refresh endpoint, which reads the header itself, so
// here they count as no credentials and their user is never loaded.
func Authenticate(r Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := c.Get(principalKey).(security.Principal); ok {
				return next(c)
			}

			var p security.Principal = security.Anonymous{}
			if raw := BearerToken(c); raw != "" {
				p = principalFor(c, r, raw)
			}
			c.Set(principalKey, p)
			return next(c)
		}
	}
}

func principalFor(c echo.Context, r Resolver, raw string) security.Principal {
	path := c.Request().URL.Path
	typ, err := r.TokenType(raw)
	if err == nil && typ == security.TokenRefresh {
		logging.Debug().Str("path", path).Msg("refresh token used as credentials")
		return security.Anonymous{}
	}
	var p security.Principal
	if err == nil {
		p, err = r.Resolve(c.Request().Context(), raw)
	}
	if err != nil {
		logging.Debug().Err(err).Str("path", path).Msg("bearer token rejected")
		return security.Anonymous{}
	}
	return p
}

// BearerToken returns the token from "Authorization: Bearer <token>", or ""
// when the header is absent or uses another scheme.
func BearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// PrincipalFrom returns the principal Authenticate attached, or Anonymous.
func PrincipalFrom(c echo.Context) security.Principal {
	if p, ok := c.Get(principalKey).(security.Principal); ok && p != nil {
		return p
	}
	return security.Anonymous{}
}

// UserFrom returns the logged-in user, if any.
func UserFrom(c echo.Context) (security.UserPrincipal, bool) {
	u, ok := PrincipalFrom(c).(security.UserPrincipal)
	return u, ok
}
