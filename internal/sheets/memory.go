package sheets

import (
	"context"
	"strings"
	"sync"
)

// Memory is an in-process Client. It backs the test suites and the
// SHEETS_BACKEND=memory mode used for local development.
type Memory struct {
	mu          sync.Mutex
	tabs        map[string][][]string
	validations map[string][]string
	writes      int
}

// NewMemory returns an empty spreadsheet.
func NewMemory() *Memory {
	return &Memory{
		tabs:        make(map[string][][]string),
		validations: make(map[string][]string),
	}
}

// SetRows replaces the content of a tab, creating it when needed.
func (m *Memory) SetRows(sheet string, rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tabs[sheet] = copyRows(rows)
}

// Rows returns a copy of a tab's content (nil when the tab is missing).
func (m *Memory) Rows(sheet string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyRows(m.tabs[sheet])
}

// SetValidation attaches a list rule to a cell.
func (m *Memory) SetValidation(sheet string, cell Cell, values []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validations[validationKey(sheet, cell)] = append([]string(nil), values...)
}

// Writes returns how many write calls were served.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *Memory) GetAllRows(_ context.Context, sheet string) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.tabs[sheet]
	if !ok {
		return nil, ErrSheetNotFound
	}
	return copyRows(rows), nil
}

func (m *Memory) GetColumn(_ context.Context, sheet string, col int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.tabs[sheet]
	if !ok {
		return nil, ErrSheetNotFound
	}
	out := make([]string, 0, len(rows))
	for i := range rows {
		out = append(out, CellAt(rows, i+1, col))
	}
	// match the remote API, which drops trailing empty cells
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *Memory) UpdateCell(_ context.Context, sheet string, row, col int, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.tabs[sheet]
	if !ok {
		return ErrSheetNotFound
	}
	m.tabs[sheet] = put(rows, row, col, value)
	m.writes++
	return nil
}

func (m *Memory) UpdateRange(_ context.Context, sheet string, topLeft Cell, block [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.tabs[sheet]
	if !ok {
		return ErrSheetNotFound
	}
	for i, r := range block {
		for j, v := range r {
			rows = put(rows, topLeft.Row+i, topLeft.Col+j, v)
		}
	}
	m.tabs[sheet] = rows
	m.writes++
	return nil
}

func (m *Memory) AppendRow(_ context.Context, sheet string, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.tabs[sheet]
	if !ok {
		return ErrSheetNotFound
	}
	last := len(rows)
	for last > 0 && isBlank(rows[last-1]) {
		last--
	}
	rows = rows[:last]
	m.tabs[sheet] = append(rows, append([]string(nil), row...))
	m.writes++
	return nil
}

func (m *Memory) GetDataValidationList(_ context.Context, sheet string, cell Cell) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tabs[sheet]; !ok {
		return nil, ErrSheetNotFound
	}
	v, ok := m.validations[validationKey(sheet, cell)]
	if !ok {
		return nil, ErrNoValidation
	}
	return append([]string(nil), v...), nil
}

func validationKey(sheet string, cell Cell) string {
	return sheet + "!" + cell.A1()
}

// put grows rows as needed and sets the 1-based cell.
func put(rows [][]string, row, col int, value string) [][]string {
	for len(rows) < row {
		rows = append(rows, nil)
	}
	r := rows[row-1]
	for len(r) < col {
		r = append(r, "")
	}
	r[col-1] = value
	rows[row-1] = r
	return rows
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func copyRows(rows [][]string) [][]string {
	if rows == nil {
		return nil
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
