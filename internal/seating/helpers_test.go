package seating

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ezhigval/wedding-bot/internal/model"
	"github.com/ezhigval/wedding-bot/internal/repository"
	"github.com/ezhigval/wedding-bot/internal/sheets"
)

const (
	guestSheet = "Список гостей"
	chartSheet = "Рассадка"
	lockSheet  = "Настройки"
)

var validationCell = sheets.Cell{Row: 2, Col: repository.ColGuestTable}

var errTransient = errors.New("503 backend unavailable")

// guestRow is a (name, table) pair for the guest list.
type guestRow struct {
	name  string
	table string
}

type fixture struct {
	mem     *sheets.Memory
	client  sheets.Client
	svc     *Service
	journal *memJournal
	events  *memEvents
}

func newFixture(t *testing.T, guests []guestRow, tables []string, chart [][]string) *fixture {
	t.Helper()
	mem := sheets.NewMemory()
	return newFixtureWithClient(t, mem, mem, guests, tables, chart)
}

func newFixtureWithClient(t *testing.T, mem *sheets.Memory, client sheets.Client, guests []guestRow, tables []string, chart [][]string) *fixture {
	t.Helper()
	setGuests(mem, guests)
	if tables != nil {
		mem.SetValidation(guestSheet, validationCell, tables)
	}
	if chart == nil {
		chart = [][]string{{""}}
	}
	mem.SetRows(chartSheet, chart)
	mem.SetRows(lockSheet, [][]string{{"ключ", "значение"}})

	f := &fixture{mem: mem, client: client, journal: &memJournal{}, events: &memEvents{}}
	f.svc = NewService(
		repository.NewGuestRepo(client, guestSheet),
		repository.NewChartRepo(client, chartSheet),
		repository.NewTableRepo(client, guestSheet, validationCell),
		repository.NewSheetLockStore(client, lockSheet),
		WithJournal(f.journal),
		WithEvents(f.events),
	)
	return f
}

func setGuests(mem *sheets.Memory, guests []guestRow) {
	rows := [][]string{{"ФИО", "Возраст", "Подтверждение", "Категория", "Сторона", "ID", "Стол"}}
	for _, g := range guests {
		rows = append(rows, []string{g.name, "", "ДА", "", "", "", g.table})
	}
	mem.SetRows(guestSheet, rows)
}

// header returns the chart header without column A and trailing blanks.
func (f *fixture) header(t *testing.T) []string {
	t.Helper()
	chart := f.loadChart(t)
	h := chart.Header()
	for len(h) > 0 && h[len(h)-1] == "" {
		h = h[:len(h)-1]
	}
	return h
}

// column returns the guests listed under table, or nil if no such column.
func (f *fixture) column(t *testing.T, table string) []string {
	t.Helper()
	for _, col := range f.loadChart(t).Columns {
		if col.Name == table {
			return col.Guests
		}
	}
	return nil
}

func (f *fixture) loadChart(t *testing.T) model.SeatingChart {
	t.Helper()
	chart, err := repository.NewChartRepo(f.mem, chartSheet).Load(context.Background())
	if err != nil {
		t.Fatalf("load chart: %v", err)
	}
	return chart
}

// tableOf returns the table assignment of the named guest.
func (f *fixture) tableOf(t *testing.T, name string) string {
	t.Helper()
	g, err := repository.NewGuestRepo(f.mem, guestSheet).FindByName(context.Background(), name)
	if err != nil {
		t.Fatalf("find guest %q: %v", name, err)
	}
	return g.Table
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type memJournal struct {
	mu   sync.Mutex
	runs []model.SyncRun
}

func (j *memJournal) Record(_ context.Context, run *model.SyncRun) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs = append(j.runs, *run)
	return nil
}

func (j *memJournal) last() model.SyncRun {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.runs) == 0 {
		return model.SyncRun{}
	}
	return j.runs[len(j.runs)-1]
}

type memEvents struct {
	mu     sync.Mutex
	events []model.SeatingEvent
}

func (e *memEvents) PublishSeatingEvent(_ context.Context, ev model.SeatingEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

// flakyClient fails selected write calls (1-based, counting every
// UpdateRange and UpdateCell) with a transient error.
type flakyClient struct {
	*sheets.Memory
	mu     sync.Mutex
	calls  int
	failOn map[int]bool
}

func (f *flakyClient) fail() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.failOn[f.calls]
}

func (f *flakyClient) UpdateRange(ctx context.Context, sheet string, topLeft sheets.Cell, rows [][]string) error {
	if f.fail() {
		return errTransient
	}
	return f.Memory.UpdateRange(ctx, sheet, topLeft, rows)
}

func (f *flakyClient) UpdateCell(ctx context.Context, sheet string, row, col int, value string) error {
	if f.fail() {
		return errTransient
	}
	return f.Memory.UpdateCell(ctx, sheet, row, col, value)
}
