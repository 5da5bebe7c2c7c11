package model

import "time"

// TableColumn is one table of the seating chart: the header cell plus the
// guest names listed beneath it.
//
// Fields:
//  Name   – table name as written in the header row.
//  Col    – 1-based sheet column (column A is reserved, so Col >= 2).
//  Guests – non-empty guest cells, top to bottom.
//  Cells  – raw guest cells including blanks, SeatingChart.Height long.
type TableColumn struct {
    Name   string   `json:"name"`
    Col    int      `json:"col"`
    Guests []string `json:"guests"`
    Cells  []string `json:"-"`
}

// SeatingChart is a parsed snapshot of the seating-chart sheet.
//
// Fields:
//  Columns – table columns left to right, including columns whose header is
//            empty (their Name is "").
//  Height  – number of guest rows below the header (longest column, counting
//            blank cells in between).
//  Width   – number of table columns (sheet columns B.. onwards).
type SeatingChart struct {
    Columns []TableColumn `json:"columns"`
    Height  int           `json:"height"`
    Width   int           `json:"width"`
}

// Header returns the table names in column order.
func (c SeatingChart) Header() []string {
    out := make([]string, len(c.Columns))
    for i, col := range c.Columns {
        out[i] = col.Name
    }
    return out
}

// LockState is the finalized-seating flag.  Once Locked is true no
// automated synchronization runs.
//
// Fields:
//  Locked   – whether seating is finalized.
//  LockedAt – when the lock was set (nil while unlocked).
//  LockedBy – who set it (admin username or "system").
type LockState struct {
    Locked   bool       `json:"locked"`
    LockedAt *time.Time `json:"locked_at,omitempty"`
    LockedBy string     `json:"locked_by,omitempty"`
}

// EditNotification is the payload an external edit trigger sends when a
// range of cells changed.  Coordinates are 1-based.
type EditNotification struct {
    SheetName string `json:"sheet_name"`
    RowStart  int    `json:"row_start"`
    ColStart  int    `json:"col_start"`
    NumRows   int    `json:"num_rows"`
    NumCols   int    `json:"num_cols"`
}

// CoversColumn reports whether col falls inside the edited column range.
// A zero or negative width is treated as a single-cell edit.
func (n EditNotification) CoversColumn(col int) bool {
    width := n.NumCols
    if width < 1 {
        width = 1
    }
    return col >= n.ColStart && col <= n.ColStart+width-1
}
