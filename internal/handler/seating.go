package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/ezhigval/wedding-bot/internal/logger"
    "github.com/ezhigval/wedding-bot/internal/middleware"
    "github.com/ezhigval/wedding-bot/internal/model"
    "github.com/ezhigval/wedding-bot/internal/repository"
    "github.com/ezhigval/wedding-bot/internal/seating"
    "github.com/ezhigval/wedding-bot/internal/sheets"
)

// syncTimeout bounds one admin-triggered operation.  A full reconcile reads
// three ranges and may write one column per table.
const syncTimeout = 60 * time.Second

// RunLister reads the sync journal.
type RunLister interface {
    ListRecent(ctx context.Context, limit int) ([]model.SyncRun, error)
}

// SeatingHandler exposes the seating operations to the admin.
type SeatingHandler struct {
    Svc    *seating.Service
    Guests *repository.GuestRepo
    Runs   RunLister // nil when the journal is disabled
}

// NewSeatingHandler panics if a required dependency is nil.
func NewSeatingHandler(svc *seating.Service, guests *repository.GuestRepo, runs RunLister) *SeatingHandler {
    if svc == nil || guests == nil {
        panic("nil dependency passed to NewSeatingHandler")
    }
    return &SeatingHandler{Svc: svc, Guests: guests, Runs: runs}
}

func adminCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(seating.WithTrigger(c.Request().Context(), "admin"), syncTimeout)
}

// syncFailed logs err and answers 500, or 504 when the deadline expired.
func syncFailed(c echo.Context, op string, err error) error {
    logger.FromEcho(c).Error("seating operation failed", zap.String("operation", op), zap.Error(err))
    if errors.Is(err, context.DeadlineExceeded) {
        return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "spreadsheet timeout"})
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": op + " failed"})
}

// RebuildHeader handles POST /v1/admin/seating/header/rebuild.
func (h *SeatingHandler) RebuildHeader(c echo.Context) error {
    ctx, cancel := adminCtx(c)
    defer cancel()
    changed, err := h.Svc.RebuildHeader(ctx)
    if err != nil {
        return syncFailed(c, model.OpRebuildHeader, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"ok": true, "changed": changed})
}

// SyncGuests handles POST /v1/admin/seating/sync/guests.
func (h *SeatingHandler) SyncGuests(c echo.Context) error {
    ctx, cancel := adminCtx(c)
    defer cancel()
    res, err := h.Svc.SyncFromGuests(ctx)
    if err != nil {
        return syncFailed(c, model.OpSyncGuests, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"ok": true, "result": res})
}

// SyncSeating handles POST /v1/admin/seating/sync/seating.
func (h *SeatingHandler) SyncSeating(c echo.Context) error {
    ctx, cancel := adminCtx(c)
    defer cancel()
    res, err := h.Svc.SyncFromSeating(ctx)
    if err != nil {
        return syncFailed(c, model.OpSyncSeating, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"ok": true, "result": res})
}

// Reconcile handles POST /v1/admin/seating/reconcile.
func (h *SeatingHandler) Reconcile(c echo.Context) error {
    ctx, cancel := adminCtx(c)
    defer cancel()
    res, err := h.Svc.FullReconcile(ctx)
    if err != nil {
        return syncFailed(c, model.OpFullReconcile, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"ok": true, "result": res})
}

// Lock handles POST /v1/admin/seating/lock.  Locking is permanent.
func (h *SeatingHandler) Lock(c echo.Context) error {
    ctx, cancel := adminCtx(c)
    defer cancel()
    st, err := h.Svc.Lock(ctx, middleware.CurrentUser(c))
    if err != nil {
        return syncFailed(c, model.OpLock, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"ok": true, "lock": st})
}

// LockStatus handles GET /v1/admin/seating/lock.
func (h *SeatingHandler) LockStatus(c echo.Context) error {
    ctx, cancel := adminCtx(c)
    defer cancel()
    st, err := h.Svc.LockStatus(ctx)
    if err != nil {
        return syncFailed(c, "read lock", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"lock": st})
}

// ListGuests handles GET /v1/admin/seating/guests.  ?table= filters by
// table name (normalized), ?unassigned=true lists guests without a table.
func (h *SeatingHandler) ListGuests(c echo.Context) error {
    ctx, cancel := adminCtx(c)
    defer cancel()
    guests, err := h.Guests.List(ctx)
    if err != nil {
        if errors.Is(err, sheets.ErrSheetNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "guest sheet not found"})
        }
        return syncFailed(c, "list guests", err)
    }

    table := c.QueryParam("table")
    unassigned, _ := strconv.ParseBool(c.QueryParam("unassigned"))
    out := make([]model.Guest, 0, len(guests))
    for _, g := range guests {
        switch {
        case unassigned && g.HasTable():
            continue
        case table != "" && !model.SameName(g.Table, table):
            continue
        }
        out = append(out, g)
    }
    return c.JSON(http.StatusOK, echo.Map{"guests": out, "count": len(out)})
}

// ListRuns handles GET /v1/admin/seating/runs?limit=N.
func (h *SeatingHandler) ListRuns(c echo.Context) error {
    if h.Runs == nil {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "sync journal disabled"})
    }
    limit := 50
    if s := c.QueryParam("limit"); s != "" {
        n, err := strconv.Atoi(s)
        if err != nil || n <= 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
        }
        limit = n
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    runs, err := h.Runs.ListRecent(ctx, limit)
    if err != nil {
        logger.FromEcho(c).Error("list sync runs failed", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"runs": runs})
}
