package handler

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/ezhigval/wedding-bot/internal/repository"
    "github.com/ezhigval/wedding-bot/internal/sheets"
)

// ViewHandler serves read-only seating views.  Responses are cached in
// Redis by the router and purged after every sync that wrote.
type ViewHandler struct {
    Chart  *repository.ChartRepo
    Tables *repository.TableRepo
}

func NewViewHandler(chart *repository.ChartRepo, tables *repository.TableRepo) *ViewHandler {
    if chart == nil || tables == nil {
        panic("nil repository passed to NewViewHandler")
    }
    return &ViewHandler{Chart: chart, Tables: tables}
}

// PublicTable is one table of the seating chart view.
type PublicTable struct {
    Name   string   `json:"name"`
    Guests []string `json:"guests"`
}

// GetTables handles GET /v1/seating/tables: the valid table names in
// rule order.
func (h *ViewHandler) GetTables(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
    defer cancel()
    tables, err := h.Tables.ValidTables(ctx)
    if err != nil {
        if sheets.IsConfigError(err) {
            return c.JSON(http.StatusOK, echo.Map{"tables": []string{}})
        }
        return syncFailed(c, "read tables", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"tables": tables})
}

// GetChart handles GET /v1/seating/chart: each table with its guests, in
// header order.
func (h *ViewHandler) GetChart(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
    defer cancel()
    chart, err := h.Chart.Load(ctx)
    if err != nil {
        if errors.Is(err, sheets.ErrSheetNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "seating sheet not found"})
        }
        return syncFailed(c, "read chart", err)
    }
    out := make([]PublicTable, 0, len(chart.Columns))
    for _, col := range chart.Columns {
        if col.Name == "" {
            continue
        }
        out = append(out, PublicTable{Name: col.Name, Guests: col.Guests})
    }
    return c.JSON(http.StatusOK, echo.Map{"tables": out})
}
