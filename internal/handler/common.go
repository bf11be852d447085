// Package handler holds the Echo handlers. Authorization has already run by
// the time a handler is called, so handlers only validate input and map
// errors to status codes.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/whosaidit/internal/logging"
	"github.com/iliyamo/whosaidit/internal/repository"
)

// dbTimeout bounds the database work of a single request.
const dbTimeout = 5 * time.Second

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// storeError maps repository errors: ErrNotFound to 404, anything else to
// a logged 500.
func storeError(c echo.Context, what string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": what + " not found"})
	}
	return internalError(c, what, err)
}

func internalError(c echo.Context, what string, err error) error {
	logging.Error().Err(err).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Str("path", c.Request().URL.Path).
		Msg(what + " failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
