package middleware // package middleware holds the echo middleware shared by the HTTP routes

import (
    "net/http"
    "strings"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/ezhigval/wedding-bot/internal/logger"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores its subject and role claims in the context as "user_id" and
// "role" (both strings).  Only HS256 tokens signed with secret pass.
func JWTAuth(secret string) echo.MiddlewareFunc {
    keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(secret), nil }
    parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get(echo.HeaderAuthorization)
            raw, ok := strings.CutPrefix(auth, "Bearer ")
            if !ok || strings.TrimSpace(raw) == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }

            tok, err := parser.Parse(strings.TrimSpace(raw), keyFunc)
            if err != nil || !tok.Valid {
                logger.FromEcho(c).Warn("rejected access token", zap.Error(err))
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }

            sub, _ := claims["sub"].(string)
            role, _ := claims["role"].(string)
            if sub == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }
            c.Set("user_id", sub)
            c.Set("role", role)
            return next(c)
        }
    }
}

// CurrentUser returns the authenticated subject, or "" on public routes.
func CurrentUser(c echo.Context) string {
    s, _ := c.Get("user_id").(string)
    return s
}
