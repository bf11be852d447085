package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness check. It is public and returns plain "ok".
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
