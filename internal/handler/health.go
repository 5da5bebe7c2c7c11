package handler // handler contains the HTTP handlers of the seating service

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// Health is the liveness probe.  It touches no backend so a slow
// spreadsheet API never fails it.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}
