package middleware

import (
	"net/http"
	"path"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/whosaidit/internal/logging"
	"github.com/iliyamo/whosaidit/internal/security"
)

// Authorize runs decider against the attached principal and the raw
// request path. Denied anonymous requests get 401, everyone else 403.
// Must run after Authenticate.
func Authorize(decider security.Decider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			p := PrincipalFrom(c)
			urlPath := req.URL.Path

			// Dot segments and doubled slashes could make a path look like
			// one resource to the decider and another to the router.
			if urlPath == "" || path.Clean(urlPath) != urlPath {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid path"})
			}

			if decider.Decide(req.Context(), p, req.Method, urlPath) == security.Allow {
				return next(c)
			}

			logging.Debug().
				Str("method", req.Method).
				Str("path", urlPath).
				Str("principal", security.Kind(p)).
				Msg("request denied")
			if security.IsAnonymous(p) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
	}
}
