package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/ezhigval/wedding-bot/internal/model"
	"github.com/ezhigval/wedding-bot/internal/sheets"
)

// ChartRepo reads and rewrites the seating-chart sheet.
type ChartRepo struct {
	client sheets.Client
	sheet  string
}

// NewChartRepo binds a ChartRepo to the named seating-chart tab.
func NewChartRepo(client sheets.Client, sheet string) *ChartRepo {
	return &ChartRepo{client: client, sheet: sheet}
}

// Sheet returns the tab name this repository works on.
func (r *ChartRepo) Sheet() string { return r.sheet }

// Load parses the chart into table columns.  Column A is ignored.  Height
// counts rows up to the last non-blank guest cell of any table column.
func (r *ChartRepo) Load(ctx context.Context) (model.SeatingChart, error) {
	rows, err := r.client.GetAllRows(ctx, r.sheet)
	if err != nil {
		return model.SeatingChart{}, fmt.Errorf("read seating chart: %w", err)
	}
	return parseChart(rows), nil
}

// WriteBlock overwrites the header and guest area starting at B1 with grid
// in a single call.  grid[0] is the header row.
func (r *ChartRepo) WriteBlock(ctx context.Context, grid [][]string) error {
	if len(grid) == 0 {
		return nil
	}
	top := sheets.Cell{Row: 1, Col: ChartFirstTableCol}
	if err := r.client.UpdateRange(ctx, r.sheet, top, grid); err != nil {
		return fmt.Errorf("write seating chart block: %w", err)
	}
	return nil
}

// WriteColumn overwrites the guest cells of one table column, starting at
// row 2, in a single call.
func (r *ChartRepo) WriteColumn(ctx context.Context, col int, cells []string) error {
	if len(cells) == 0 {
		return nil
	}
	block := make([][]string, len(cells))
	for i, v := range cells {
		block[i] = []string{v}
	}
	top := sheets.Cell{Row: ChartFirstGuestRow, Col: col}
	if err := r.client.UpdateRange(ctx, r.sheet, top, block); err != nil {
		return fmt.Errorf("write table column %s: %w", sheets.ColumnLetter(col), err)
	}
	return nil
}

func parseChart(rows [][]string) model.SeatingChart {
	width := 0
	height := 0
	for i, row := range rows {
		for j := ChartFirstTableCol; j <= len(row); j++ {
			if strings.TrimSpace(row[j-1]) == "" {
				continue
			}
			if w := j - ChartFirstTableCol + 1; w > width {
				width = w
			}
			if i+1 >= ChartFirstGuestRow && i+1-ChartFirstGuestRow+1 > height {
				height = i + 1 - ChartFirstGuestRow + 1
			}
		}
	}

	chart := model.SeatingChart{Height: height, Width: width, Columns: make([]model.TableColumn, 0, width)}
	for k := 0; k < width; k++ {
		col := ChartFirstTableCol + k
		tc := model.TableColumn{
			Name:   model.CleanName(sheets.CellAt(rows, 1, col)),
			Col:    col,
			Cells:  make([]string, height),
			Guests: []string{},
		}
		for i := 0; i < height; i++ {
			v := model.CleanName(sheets.CellAt(rows, ChartFirstGuestRow+i, col))
			tc.Cells[i] = v
			if v != "" {
				tc.Guests = append(tc.Guests, v)
			}
		}
		chart.Columns = append(chart.Columns, tc)
	}
	return chart
}
