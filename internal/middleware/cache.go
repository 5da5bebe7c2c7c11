package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/ezhigval/wedding-bot/internal/config"
    "github.com/ezhigval/wedding-bot/internal/logger"
)

// captureWriter forwards the response and keeps a copy of the body up to
// limit bytes.  overflow is set once the body no longer fits.
type captureWriter struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (cw *captureWriter) WriteHeader(code int) {
    cw.status = code
    cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
    if !cw.overflow {
        if cw.limit > 0 && cw.buf.Len()+len(b) > cw.limit {
            cw.overflow = true
            cw.buf.Reset()
        } else {
            cw.buf.Write(b)
        }
    }
    return cw.ResponseWriter.Write(b)
}

// cacheKeyFrom builds "<prefix>:<sha1 of route/method/query>" so Purge can
// find every entry by prefix.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    method := r.Method
    route := c.Path()
    query := r.URL.RawQuery

    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        parts = append(parts, "route", route)
    case "method_route":
        parts = append(parts, "method", method, "route", route)
    case "method_route_query":
        parts = append(parts, "method", method, "route", route, "q", query)
    default: // "route_query"
        parts = append(parts, "route", route, "q", query)
    }

    tail := strings.Join(parts[1:], ":")
    sum := sha1.Sum([]byte(tail))
    return fmt.Sprintf("%s:%x", parts[0], sum[:])
}

// cachedView is the Redis value of one cached response.
type cachedView struct {
    Status int         `json:"status"`
    Header http.Header `json:"header"`
    Body   []byte      `json:"body"`
}

// replay writes a cached response.  Content-Length is recomputed by the
// server.
func (v cachedView) replay(c echo.Context) error {
    h := c.Response().Header()
    for k, vals := range v.Header {
        if strings.EqualFold(k, echo.HeaderContentLength) {
            continue
        }
        for _, val := range vals {
            h.Add(k, val)
        }
    }
    h.Set("X-Cache", "HIT")
    c.Response().WriteHeader(v.Status)
    if len(v.Body) == 0 {
        return nil
    }
    _, err := c.Response().Write(v.Body)
    return err
}

// NewRedisCache caches successful responses of the seating views, headers
// included, and replays them with X-Cache: HIT.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 5 * time.Minute
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }

            ctx := c.Request().Context()
            key := cacheKeyFrom(cfg, c)

            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
                var v cachedView
                if json.Unmarshal(bs, &v) == nil && v.Status != 0 {
                    return v.replay(c)
                }
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }

            if cw.status == http.StatusOK && !cw.overflow {
                hdr := c.Response().Header().Clone()
                hdr.Del("X-Cache")
                payload, err := json.Marshal(cachedView{Status: cw.status, Header: hdr, Body: cw.buf.Bytes()})
                if err == nil {
                    err = rdb.SetEx(context.WithoutCancel(ctx), key, payload, ttl).Err()
                }
                if err != nil {
                    logger.FromEcho(c).Warn("view cache store failed", zap.String("key", key), zap.Error(err))
                }
            }
            return nil
        }
    }
}

// Purge deletes every cached view under prefix.  It is called after a sync
// wrote to a sheet.
func Purge(ctx context.Context, rdb *redis.Client, prefix string) (int, error) {
    if rdb == nil {
        return 0, nil
    }
    var (
        cursor  uint64
        deleted int
    )
    for {
        keys, next, err := rdb.Scan(ctx, cursor, prefix+":*", 100).Result()
        if err != nil {
            return deleted, fmt.Errorf("scan cache keys: %w", err)
        }
        if len(keys) > 0 {
            n, err := rdb.Del(ctx, keys...).Result()
            if err != nil {
                return deleted, fmt.Errorf("delete cache keys: %w", err)
            }
            deleted += int(n)
        }
        if next == 0 {
            return deleted, nil
        }
        cursor = next
    }
}
