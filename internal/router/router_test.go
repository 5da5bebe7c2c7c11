package router

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "golang.org/x/crypto/bcrypt"

    "github.com/ezhigval/wedding-bot/internal/config"
    "github.com/ezhigval/wedding-bot/internal/handler"
    "github.com/ezhigval/wedding-bot/internal/middleware"
    "github.com/ezhigval/wedding-bot/internal/repository"
    "github.com/ezhigval/wedding-bot/internal/seating"
    "github.com/ezhigval/wedding-bot/internal/sheets"
)

const (
    guestSheet    = "Список гостей"
    chartSheet    = "Рассадка"
    webhookSecret = "hook-secret"
)

type app struct {
    e   *echo.Echo
    mem *sheets.Memory
}

func newApp(t *testing.T) *app {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { rdb.Close() })

    mem := sheets.NewMemory()
    mem.SetRows(guestSheet, [][]string{
        {"ФИО", "Возраст", "Подтверждение", "Категория", "Сторона", "ID", "Стол"},
        {"Иван Петров", "", "ДА", "", "", "", "Стол 1"},
        {"Анна Иванова", "", "ДА", "", "", "", "Стол 2"},
    })
    cell := sheets.Cell{Row: 2, Col: repository.ColGuestTable}
    mem.SetValidation(guestSheet, cell, []string{"Стол 1", "Стол 2"})
    mem.SetRows(chartSheet, [][]string{{""}})
    mem.SetRows("Настройки", [][]string{{"ключ", "значение"}})

    hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
    if err != nil {
        t.Fatal(err)
    }
    cfg := config.Config{JWTSecret: "jwt", AccessTTLMin: 5, AdminUsername: "admin", AdminPasswordHash: string(hash)}
    cacheCfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{http.MethodGet: true}, TTL: time.Minute, KeyStrategy: "route_query", Prefix: "seating:view", MaxBodyBytes: 1 << 20}
    rlCfg := config.RateLimitConfig{Enabled: true, Capacity: 100, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, KeyStrategy: "ip", Prefix: "rl"}

    guests := repository.NewGuestRepo(mem, guestSheet)
    chart := repository.NewChartRepo(mem, chartSheet)
    tables := repository.NewTableRepo(mem, guestSheet, cell)
    svc := seating.NewService(guests, chart, tables, repository.NewSheetLockStore(mem, "Настройки"),
        seating.WithOnChange(func(ctx context.Context) { _, _ = middleware.Purge(ctx, rdb, cacheCfg.Prefix) }))

    e := echo.New()
    RegisterRoutes(e)
    RegisterAuth(e, handler.NewAuthHandler(cfg))
    RegisterAdmin(e, handler.NewSeatingHandler(svc, guests, nil), cfg.JWTSecret)
    RegisterHooks(e, handler.NewWebhookHandler(seating.NewDispatcher(svc, repository.ColGuestTable), nil), webhookSecret, rlCfg, rdb)
    RegisterViews(e, handler.NewViewHandler(chart, tables), cacheCfg, rdb)
    return &app{e: e, mem: mem}
}

func (a *app) call(method, path, body string, header map[string]string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, path, strings.NewReader(body))
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    for k, v := range header {
        req.Header.Set(k, v)
    }
    rec := httptest.NewRecorder()
    a.e.ServeHTTP(rec, req)
    return rec
}

func (a *app) login(t *testing.T) map[string]string {
    t.Helper()
    rec := a.call(http.MethodPost, "/v1/auth/login", `{"username":"admin","password":"pw"}`, nil)
    if rec.Code != http.StatusOK {
        t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
    }
    var out struct {
        Access struct {
            Token string `json:"token"`
        } `json:"access"`
    }
    if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
        t.Fatal(err)
    }
    return map[string]string{echo.HeaderAuthorization: "Bearer " + out.Access.Token}
}

func TestProbes(t *testing.T) {
    a := newApp(t)
    if rec := a.call(http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
        t.Errorf("/healthz = %d %q", rec.Code, rec.Body.String())
    }
    if rec := a.call(http.MethodGet, "/metrics", "", nil); rec.Code != http.StatusOK {
        t.Errorf("/metrics = %d", rec.Code)
    }
}

func TestAdminRoutesRequireToken(t *testing.T) {
    a := newApp(t)
    for _, r := range []struct{ method, path string }{
        {http.MethodPost, "/v1/admin/seating/reconcile"},
        {http.MethodPost, "/v1/admin/seating/lock"},
        {http.MethodGet, "/v1/admin/seating/guests"},
    } {
        if rec := a.call(r.method, r.path, "", nil); rec.Code != http.StatusUnauthorized {
            t.Errorf("%s %s without token = %d, want 401", r.method, r.path, rec.Code)
        }
    }
    if a.mem.Writes() != 0 {
        t.Error("unauthenticated call wrote to a sheet")
    }
}

func TestEndToEnd_ReconcileViewsAndWebhook(t *testing.T) {
    a := newApp(t)
    auth := a.login(t)

    if rec := a.call(http.MethodPost, "/v1/admin/seating/reconcile", "", auth); rec.Code != http.StatusOK {
        t.Fatalf("reconcile: %d %s", rec.Code, rec.Body.String())
    }

    first := a.call(http.MethodGet, "/v1/seating/chart", "", nil)
    if first.Code != http.StatusOK || first.Header().Get("X-Cache") != "MISS" {
        t.Fatalf("chart: %d X-Cache=%q", first.Code, first.Header().Get("X-Cache"))
    }
    if hit := a.call(http.MethodGet, "/v1/seating/chart", "", nil); hit.Header().Get("X-Cache") != "HIT" {
        t.Errorf("second chart X-Cache = %q, want HIT", hit.Header().Get("X-Cache"))
    }

    // a seating edit moves Иван to Стол 2 through the webhook
    a.mem.SetRows(chartSheet, [][]string{
        {"", "Стол 1", "Стол 2"},
        {"", "", "Анна Иванова"},
        {"", "", "Иван Петров"},
    })
    edit := `{"sheet_name":"Рассадка","row_start":3,"col_start":3,"num_rows":1,"num_cols":1}`
    if rec := a.call(http.MethodPost, "/v1/hooks/edit", edit, nil); rec.Code != http.StatusUnauthorized {
        t.Errorf("webhook without secret = %d, want 401", rec.Code)
    }
    rec := a.call(http.MethodPost, "/v1/hooks/edit", edit, map[string]string{middleware.HeaderWebhookSecret: webhookSecret})
    if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), string(seating.ActionSyncSeating)) {
        t.Fatalf("webhook: %d %s", rec.Code, rec.Body.String())
    }
    if rec.Header().Get("X-RateLimit-Limit") != "100" {
        t.Errorf("rate limit headers missing: %v", rec.Header())
    }

    g, err := repository.NewGuestRepo(a.mem, guestSheet).FindByName(context.Background(), "Иван Петров")
    if err != nil || g.Table != "Стол 2" {
        t.Fatalf("Иван Петров = %+v, %v", g, err)
    }

    // the guest list write purged the cached chart
    after := a.call(http.MethodGet, "/v1/seating/chart", "", nil)
    if after.Header().Get("X-Cache") != "MISS" {
        t.Errorf("chart after sync X-Cache = %q, want MISS", after.Header().Get("X-Cache"))
    }
    if !strings.Contains(after.Body.String(), "Иван Петров") {
        t.Errorf("chart body = %s", after.Body.String())
    }

    rec = a.call(http.MethodGet, "/v1/admin/seating/guests?table="+"%D0%A1%D1%82%D0%BE%D0%BB%202", "", auth)
    if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":2`) {
        t.Errorf("guests at Стол 2: %d %s", rec.Code, rec.Body.String())
    }
}

func TestEndToEnd_LockFreezesSheets(t *testing.T) {
    a := newApp(t)
    auth := a.login(t)

    if rec := a.call(http.MethodPost, "/v1/admin/seating/lock", "", auth); rec.Code != http.StatusOK {
        t.Fatalf("lock: %d %s", rec.Code, rec.Body.String())
    }
    writes := a.mem.Writes()

    rec := a.call(http.MethodPost, "/v1/hooks/edit", `{"sheet_name":"Список гостей","col_start":7,"num_cols":1}`,
        map[string]string{middleware.HeaderWebhookSecret: webhookSecret})
    if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), string(seating.ActionLocked)) {
        t.Errorf("webhook while locked: %d %s", rec.Code, rec.Body.String())
    }
    if rec := a.call(http.MethodPost, "/v1/admin/seating/reconcile", "", auth); !strings.Contains(rec.Body.String(), `"skipped":true`) {
        t.Errorf("reconcile while locked: %s", rec.Body.String())
    }
    if a.mem.Writes() != writes {
        t.Error("sheets written while locked")
    }
}
