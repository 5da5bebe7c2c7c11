package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/ezhigval/wedding-bot/internal/logger"
    "github.com/ezhigval/wedding-bot/internal/model"
    "github.com/ezhigval/wedding-bot/internal/seating"
)

// EditPublisher hands edit notifications to the background worker.
type EditPublisher interface {
    PublishEdit(ctx context.Context, n model.EditNotification) error
}

// WebhookHandler receives edit notifications from the spreadsheet trigger.
type WebhookHandler struct {
    Dispatcher *seating.Dispatcher
    Queue      EditPublisher // nil: dispatch inline
}

func NewWebhookHandler(d *seating.Dispatcher, q EditPublisher) *WebhookHandler {
    if d == nil {
        panic("nil dispatcher passed to NewWebhookHandler")
    }
    return &WebhookHandler{Dispatcher: d, Queue: q}
}

// Edit handles POST /v1/hooks/edit.  Irrelevant edits are answered at once.
// Relevant ones are queued (202) when a queue is configured, otherwise
// synced inline (200).  A queue failure falls back to the inline path.
func (h *WebhookHandler) Edit(c echo.Context) error {
    var n model.EditNotification
    if err := c.Bind(&n); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    n.SheetName = strings.TrimSpace(n.SheetName)
    if n.SheetName == "" || n.ColStart < 1 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "sheet_name and col_start required"})
    }

    log := logger.FromEcho(c)
    route := h.Dispatcher.Route(n)
    if route == seating.ActionNone {
        return c.JSON(http.StatusOK, echo.Map{"action": route})
    }

    if h.Queue != nil {
        pctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
        err := h.Queue.PublishEdit(pctx, n)
        cancel()
        if err == nil {
            return c.JSON(http.StatusAccepted, echo.Map{"queued": true, "action": route})
        }
        log.Warn("queue edit failed, syncing inline", zap.Error(err))
    }

    ctx, cancel := context.WithTimeout(seating.WithTrigger(c.Request().Context(), "webhook"), syncTimeout)
    defer cancel()
    action, err := h.Dispatcher.HandleEdit(ctx, n)
    if err != nil {
        return syncFailed(c, string(route), err)
    }
    return c.JSON(http.StatusOK, echo.Map{"action": action})
}
