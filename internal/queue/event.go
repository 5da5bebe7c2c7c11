// Package queue carries seating traffic over RabbitMQ: edit notifications
// from the webhook to the sync worker, and seating events to whoever
// informs the admins.
package queue

import (
    "encoding/json"
    "errors"
    "fmt"
    "strings"

    "github.com/ezhigval/wedding-bot/internal/model"
)

// Queue names.  Both queues are durable.
const (
    EditsQueue  = "seating.edits"
    EventsQueue = "seating.events"
)

// ErrBadMessage marks a delivery that can never be processed.
var ErrBadMessage = errors.New("bad message")

// DecodeEdit parses an edit notification body.  A payload without a sheet
// name is rejected.
func DecodeEdit(body []byte) (model.EditNotification, error) {
    var n model.EditNotification
    if err := json.Unmarshal(body, &n); err != nil {
        return n, fmt.Errorf("%w: %v", ErrBadMessage, err)
    }
    if strings.TrimSpace(n.SheetName) == "" {
        return n, fmt.Errorf("%w: missing sheet_name", ErrBadMessage)
    }
    return n, nil
}
