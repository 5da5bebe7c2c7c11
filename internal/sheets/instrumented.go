package sheets

import (
	"context"
	"time"
)

// Observer receives one callback per remote call.
type Observer func(op string, took time.Duration, err error)

type instrumented struct {
	next    Client
	observe Observer
}

// Instrumented wraps c so every call is reported to observe.
func Instrumented(c Client, observe Observer) Client {
	if observe == nil {
		return c
	}
	return &instrumented{next: c, observe: observe}
}

func (i *instrumented) track(op string, start time.Time, err error) {
	i.observe(op, time.Since(start), err)
}

func (i *instrumented) GetAllRows(ctx context.Context, sheet string) ([][]string, error) {
	start := time.Now()
	rows, err := i.next.GetAllRows(ctx, sheet)
	i.track("get_all_rows", start, err)
	return rows, err
}

func (i *instrumented) GetColumn(ctx context.Context, sheet string, col int) ([]string, error) {
	start := time.Now()
	v, err := i.next.GetColumn(ctx, sheet, col)
	i.track("get_column", start, err)
	return v, err
}

func (i *instrumented) UpdateCell(ctx context.Context, sheet string, row, col int, value string) error {
	start := time.Now()
	err := i.next.UpdateCell(ctx, sheet, row, col, value)
	i.track("update_cell", start, err)
	return err
}

func (i *instrumented) UpdateRange(ctx context.Context, sheet string, topLeft Cell, rows [][]string) error {
	start := time.Now()
	err := i.next.UpdateRange(ctx, sheet, topLeft, rows)
	i.track("update_range", start, err)
	return err
}

func (i *instrumented) AppendRow(ctx context.Context, sheet string, row []string) error {
	start := time.Now()
	err := i.next.AppendRow(ctx, sheet, row)
	i.track("append_row", start, err)
	return err
}

func (i *instrumented) GetDataValidationList(ctx context.Context, sheet string, cell Cell) ([]string, error) {
	start := time.Now()
	v, err := i.next.GetDataValidationList(ctx, sheet, cell)
	i.track("get_data_validation_list", start, err)
	return v, err
}
