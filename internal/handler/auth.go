package handler

import (
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/ezhigval/wedding-bot/internal/config"
    "github.com/ezhigval/wedding-bot/internal/logger"
    "github.com/ezhigval/wedding-bot/internal/utils"
)

// AuthHandler issues admin access tokens.  There is a single admin account
// configured through ADMIN_USERNAME and ADMIN_PASSWORD_HASH.
type AuthHandler struct {
    Cfg config.Config
}

func NewAuthHandler(cfg config.Config) *AuthHandler {
    return &AuthHandler{Cfg: cfg}
}

type loginReq struct {
    Username string `json:"username"`
    Password string `json:"password"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}

type loginResp struct {
    Username string    `json:"username"`
    Role     string    `json:"role"`
    Access   tokenPart `json:"access"`
}

// Login verifies the admin credentials and returns an access token.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Username = strings.TrimSpace(req.Username)
    if req.Username == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
    }

    // both checks always run so timing does not reveal which one failed
    userOK := utils.SecretEqual(req.Username, h.Cfg.AdminUsername)
    passOK := utils.VerifyPassword(h.Cfg.AdminPasswordHash, req.Password)
    if !userOK || !passOK {
        logger.FromEcho(c).Warn("admin login rejected", zap.String("username", req.Username))
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }

    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, h.Cfg.AdminUsername, utils.RoleAdmin, h.Cfg.AccessTTLMin)
    if err != nil {
        logger.FromEcho(c).Error("issue access token failed", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    return c.JSON(http.StatusOK, loginResp{
        Username: h.Cfg.AdminUsername,
        Role:     utils.RoleAdmin,
        Access:   tokenPart{Token: access.Token, Expires: access.Exp},
    })
}
