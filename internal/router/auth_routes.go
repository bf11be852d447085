package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/whosaidit/internal/handler"
)

// RegisterAuth registers the public /api/auth endpoints behind the rate
// limiter, plus the password reset completion endpoint which needs a
// password reset token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limit echo.MiddlewareFunc) {
	g := e.Group("/api/auth")
	if limit != nil {
		g.Use(limit)
	}
	g.POST("/register", a.Register)
	g.POST("/authenticate", a.Authenticate)
	g.POST("/refresh", a.Refresh)
	g.POST("/request-password-reset", a.RequestPasswordReset)
	g.POST("/quizzes/:id/validate-url-token", a.ValidateQuizURLToken)

	e.PATCH("/api/password-reset/:userId", a.ExecutePasswordReset)
}
