package handler

import (
    "context"
    "encoding/json"
    "errors"
    "net/http"
    "net/http/httptest"
    "net/url"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"
    "golang.org/x/crypto/bcrypt"

    "github.com/ezhigval/wedding-bot/internal/config"
    "github.com/ezhigval/wedding-bot/internal/model"
    "github.com/ezhigval/wedding-bot/internal/repository"
    "github.com/ezhigval/wedding-bot/internal/seating"
    "github.com/ezhigval/wedding-bot/internal/sheets"
    "github.com/ezhigval/wedding-bot/internal/utils"
)

const (
    guestSheet = "Список гостей"
    chartSheet = "Рассадка"
    lockSheet  = "Настройки"
)

type env struct {
    mem    *sheets.Memory
    svc    *seating.Service
    guests *repository.GuestRepo
    chart  *repository.ChartRepo
    tables *repository.TableRepo
}

func newEnv(t *testing.T) *env {
    t.Helper()
    mem := sheets.NewMemory()
    mem.SetRows(guestSheet, [][]string{
        {"ФИО", "Возраст", "Подтверждение", "Категория", "Сторона", "ID", "Стол"},
        {"Иван Петров", "34", "ДА", "Семья", "Жених", "", "Стол 1"},
        {"Анна Иванова", "29", "ДА", "Друзья", "Невеста", "", "Стол 2"},
        {"Пётр Сидоров", "41", "НЕТ", "Коллеги", "Жених", "", ""},
    })
    mem.SetValidation(guestSheet, sheets.Cell{Row: 2, Col: repository.ColGuestTable}, []string{"Стол 1", "Стол 2"})
    mem.SetRows(chartSheet, [][]string{{""}})
    mem.SetRows(lockSheet, [][]string{})

    e := &env{
        mem:    mem,
        guests: repository.NewGuestRepo(mem, guestSheet),
        chart:  repository.NewChartRepo(mem, chartSheet),
        tables: repository.NewTableRepo(mem, guestSheet, sheets.Cell{Row: 2, Col: repository.ColGuestTable}),
    }
    e.svc = seating.NewService(e.guests, e.chart, e.tables, repository.NewSheetLockStore(mem, lockSheet))
    return e
}

func do(t *testing.T, h echo.HandlerFunc, method, target, body string, setup func(echo.Context)) (*httptest.ResponseRecorder, map[string]any) {
    t.Helper()
    req := httptest.NewRequest(method, target, strings.NewReader(body))
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    rec := httptest.NewRecorder()
    c := echo.New().NewContext(req, rec)
    if setup != nil {
        setup(c)
    }
    if err := h(c); err != nil {
        t.Fatalf("handler returned error: %v", err)
    }
    var out map[string]any
    if rec.Body.Len() > 0 {
        if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
            t.Fatalf("decode %q: %v", rec.Body.String(), err)
        }
    }
    return rec, out
}

func TestAuthLogin(t *testing.T) {
    hash, err := bcrypt.GenerateFromPassword([]byte("svadba2026"), bcrypt.MinCost)
    if err != nil {
        t.Fatal(err)
    }
    h := NewAuthHandler(config.Config{
        JWTSecret:         "secret",
        AccessTTLMin:      30,
        AdminUsername:     "admin",
        AdminPasswordHash: string(hash),
    })

    tests := []struct {
        name   string
        body   string
        status int
    }{
        {"ok", `{"username":"admin","password":"svadba2026"}`, http.StatusOK},
        {"wrong password", `{"username":"admin","password":"nope"}`, http.StatusUnauthorized},
        {"wrong user", `{"username":"root","password":"svadba2026"}`, http.StatusUnauthorized},
        {"missing fields", `{"username":"admin"}`, http.StatusBadRequest},
        {"bad json", `{`, http.StatusBadRequest},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            rec, out := do(t, h.Login, http.MethodPost, "/v1/auth/login", tt.body, nil)
            if rec.Code != tt.status {
                t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
            }
            if tt.status != http.StatusOK {
                return
            }
            if out["role"] != utils.RoleAdmin {
                t.Errorf("role = %v", out["role"])
            }
            access, _ := out["access"].(map[string]any)
            if tok, _ := access["token"].(string); tok == "" {
                t.Error("empty access token")
            }
        })
    }
}

func TestSeatingHandler_ReconcileAndLock(t *testing.T) {
    e := newEnv(t)
    h := NewSeatingHandler(e.svc, e.guests, nil)

    rec, out := do(t, h.Reconcile, http.MethodPost, "/", "", nil)
    if rec.Code != http.StatusOK || out["ok"] != true {
        t.Fatalf("reconcile: %d %s", rec.Code, rec.Body.String())
    }
    result := out["result"].(map[string]any)
    if result["header_changed"] != true {
        t.Errorf("header_changed = %v", result["header_changed"])
    }

    rec, out = do(t, h.Lock, http.MethodPost, "/", "", func(c echo.Context) { c.Set("user_id", "admin") })
    if rec.Code != http.StatusOK {
        t.Fatalf("lock: %d %s", rec.Code, rec.Body.String())
    }
    lock := out["lock"].(map[string]any)
    if lock["locked"] != true || lock["locked_by"] != "admin" {
        t.Errorf("lock = %v", lock)
    }

    _, out = do(t, h.LockStatus, http.MethodGet, "/", "", nil)
    if out["lock"].(map[string]any)["locked"] != true {
        t.Errorf("lock status = %v", out)
    }

    _, out = do(t, h.SyncGuests, http.MethodPost, "/", "", nil)
    if out["result"].(map[string]any)["skipped"] != true {
        t.Errorf("sync after lock = %v, want skipped", out)
    }
    _, out = do(t, h.RebuildHeader, http.MethodPost, "/", "", nil)
    if out["changed"] != false {
        t.Errorf("rebuild after lock = %v", out)
    }
}

func TestSeatingHandler_ListGuests(t *testing.T) {
    e := newEnv(t)
    h := NewSeatingHandler(e.svc, e.guests, nil)

    tests := []struct {
        query string
        want  int
    }{
        {"", 3},
        {"?table=" + url.QueryEscape("стол 1"), 1},
        {"?unassigned=true", 1},
    }
    for _, tt := range tests {
        rec, out := do(t, h.ListGuests, http.MethodGet, "/v1/admin/seating/guests"+tt.query, "", nil)
        if rec.Code != http.StatusOK {
            t.Fatalf("%s: status = %d", tt.query, rec.Code)
        }
        if got := int(out["count"].(float64)); got != tt.want {
            t.Errorf("%s: count = %d, want %d", tt.query, got, tt.want)
        }
    }
}

type fakeRuns struct {
    runs  []model.SyncRun
    limit int
    err   error
}

func (f *fakeRuns) ListRecent(_ context.Context, limit int) ([]model.SyncRun, error) {
    f.limit = limit
    return f.runs, f.err
}

func TestSeatingHandler_ListRuns(t *testing.T) {
    e := newEnv(t)

    rec, _ := do(t, NewSeatingHandler(e.svc, e.guests, nil).ListRuns, http.MethodGet, "/", "", nil)
    if rec.Code != http.StatusNotFound {
        t.Errorf("journal disabled: status = %d, want 404", rec.Code)
    }

    runs := &fakeRuns{runs: []model.SyncRun{{ID: 7, Operation: model.OpFullReconcile, Outcome: model.OutcomeOK}}}
    h := NewSeatingHandler(e.svc, e.guests, runs)
    rec, out := do(t, h.ListRuns, http.MethodGet, "/?limit=5", "", nil)
    if rec.Code != http.StatusOK || runs.limit != 5 {
        t.Fatalf("status = %d, limit = %d", rec.Code, runs.limit)
    }
    if list := out["runs"].([]any); len(list) != 1 {
        t.Errorf("runs = %v", list)
    }

    if rec, _ := do(t, h.ListRuns, http.MethodGet, "/?limit=zero", "", nil); rec.Code != http.StatusBadRequest {
        t.Errorf("bad limit: status = %d", rec.Code)
    }
    runs.err = errors.New("db down")
    if rec, _ := do(t, h.ListRuns, http.MethodGet, "/", "", nil); rec.Code != http.StatusInternalServerError {
        t.Errorf("db error: status = %d", rec.Code)
    }
}

type fakeQueue struct {
    edits []model.EditNotification
    err   error
}

func (q *fakeQueue) PublishEdit(_ context.Context, n model.EditNotification) error {
    if q.err != nil {
        return q.err
    }
    q.edits = append(q.edits, n)
    return nil
}

func TestWebhook_Inline(t *testing.T) {
    e := newEnv(t)
    if _, err := e.svc.RebuildHeader(context.Background()); err != nil {
        t.Fatal(err)
    }
    h := NewWebhookHandler(seating.NewDispatcher(e.svc, repository.ColGuestTable), nil)

    rec, out := do(t, h.Edit, http.MethodPost, "/v1/hooks/edit",
        `{"sheet_name":"Список гостей","row_start":2,"col_start":7,"num_rows":1,"num_cols":1}`, nil)
    if rec.Code != http.StatusOK || out["action"] != string(seating.ActionSyncGuests) {
        t.Fatalf("edit: %d %s", rec.Code, rec.Body.String())
    }
    chart, err := e.chart.Load(context.Background())
    if err != nil {
        t.Fatal(err)
    }
    if got := chart.Columns[0].Guests; len(got) != 1 || got[0] != "Иван Петров" {
        t.Errorf("Стол 1 = %q", got)
    }

    rec, out = do(t, h.Edit, http.MethodPost, "/v1/hooks/edit", `{"sheet_name":"Список гостей","col_start":1,"num_cols":1}`, nil)
    if rec.Code != http.StatusOK || out["action"] != string(seating.ActionNone) {
        t.Errorf("irrelevant edit: %d %s", rec.Code, rec.Body.String())
    }

    for _, body := range []string{`{"col_start":7}`, `{"sheet_name":"Рассадка"}`, `[`} {
        if rec, _ := do(t, h.Edit, http.MethodPost, "/v1/hooks/edit", body, nil); rec.Code != http.StatusBadRequest {
            t.Errorf("body %s: status = %d, want 400", body, rec.Code)
        }
    }
}

func TestWebhook_Queued(t *testing.T) {
    e := newEnv(t)
    q := &fakeQueue{}
    h := NewWebhookHandler(seating.NewDispatcher(e.svc, repository.ColGuestTable), q)

    rec, out := do(t, h.Edit, http.MethodPost, "/v1/hooks/edit", `{"sheet_name":"Рассадка","col_start":2,"num_cols":1}`, nil)
    if rec.Code != http.StatusAccepted || out["queued"] != true {
        t.Fatalf("edit: %d %s", rec.Code, rec.Body.String())
    }
    if len(q.edits) != 1 || q.edits[0].SheetName != chartSheet {
        t.Errorf("queued = %+v", q.edits)
    }
    if e.mem.Writes() != 0 {
        t.Error("queued edit wrote to a sheet")
    }

    // irrelevant edits are not queued
    do(t, h.Edit, http.MethodPost, "/v1/hooks/edit", `{"sheet_name":"Меню","col_start":2}`, nil)
    if len(q.edits) != 1 {
        t.Errorf("irrelevant edit queued: %+v", q.edits)
    }

    q.err = errors.New("broker down")
    rec, out = do(t, h.Edit, http.MethodPost, "/v1/hooks/edit", `{"sheet_name":"Рассадка","col_start":2,"num_cols":1}`, nil)
    if rec.Code != http.StatusOK || out["action"] != string(seating.ActionSyncSeating) {
        t.Errorf("fallback: %d %s", rec.Code, rec.Body.String())
    }
}

func TestViews(t *testing.T) {
    e := newEnv(t)
    if _, err := e.svc.FullReconcile(context.Background()); err != nil {
        t.Fatal(err)
    }
    v := NewViewHandler(e.chart, e.tables)

    _, out := do(t, v.GetTables, http.MethodGet, "/v1/seating/tables", "", nil)
    if tables := out["tables"].([]any); len(tables) != 2 || tables[0] != "Стол 1" {
        t.Errorf("tables = %v", tables)
    }

    _, out = do(t, v.GetChart, http.MethodGet, "/v1/seating/chart", "", nil)
    tables := out["tables"].([]any)
    if len(tables) != 2 {
        t.Fatalf("chart tables = %v", tables)
    }
    second := tables[1].(map[string]any)
    if second["name"] != "Стол 2" || len(second["guests"].([]any)) != 1 {
        t.Errorf("Стол 2 = %v", second)
    }
}

func TestViews_MissingRuleAndSheet(t *testing.T) {
    mem := sheets.NewMemory()
    mem.SetRows(guestSheet, [][]string{{"ФИО"}})
    v := NewViewHandler(repository.NewChartRepo(mem, chartSheet), repository.NewTableRepo(mem, guestSheet, sheets.Cell{Row: 2, Col: 7}))

    rec, out := do(t, v.GetTables, http.MethodGet, "/", "", nil)
    if rec.Code != http.StatusOK || len(out["tables"].([]any)) != 0 {
        t.Errorf("tables without rule: %d %s", rec.Code, rec.Body.String())
    }
    if rec, _ := do(t, v.GetChart, http.MethodGet, "/", "", nil); rec.Code != http.StatusNotFound {
        t.Errorf("chart without sheet: status = %d", rec.Code)
    }
}
