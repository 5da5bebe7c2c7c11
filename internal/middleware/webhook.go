package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/ezhigval/wedding-bot/internal/utils"
)

// HeaderWebhookSecret carries the shared secret of the edit trigger.
const HeaderWebhookSecret = "X-Webhook-Secret"

// WebhookSecret rejects requests whose X-Webhook-Secret header does not
// match secret.  An empty secret disables the check.
func WebhookSecret(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        if secret == "" {
            return next
        }
        return func(c echo.Context) error {
            if !utils.SecretEqual(c.Request().Header.Get(HeaderWebhookSecret), secret) {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid webhook secret"})
            }
            return next(c)
        }
    }
}
