// Package router assembles the Echo instance: global middleware first, then
// the route groups. Authentication and authorization run for every route;
// the policy decides which ones are public.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/whosaidit/internal/handler"
	"github.com/iliyamo/whosaidit/internal/middleware"
	"github.com/iliyamo/whosaidit/internal/security"
)

// Deps are the cross-cutting pieces the middleware chain needs.
type Deps struct {
	Resolver    middleware.Resolver
	Decider     security.Decider
	RateLimit   echo.MiddlewareFunc // applied to /api/auth only; nil disables
	CORSOrigins []string
}

// New builds the server with every route registered.
func New(d Deps, auth *handler.AuthHandler, res *handler.ResourceHandler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger())
	if len(d.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: d.CORSOrigins,
			AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
		}))
	}
	e.Use(middleware.Authenticate(d.Resolver))
	e.Use(middleware.Authorize(d.Decider))

	RegisterHealth(e)
	RegisterAuth(e, auth, d.RateLimit)
	RegisterResources(e, auth, res)
	return e
}

// RegisterHealth exposes the liveness check on both paths load balancers use.
func RegisterHealth(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/api/health", handler.Health)
}
