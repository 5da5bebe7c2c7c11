package sheets

import (
	"fmt"
	"strconv"
	"strings"
)

// Cell is a 1-based spreadsheet coordinate.
type Cell struct {
	Row int
	Col int
}

// A1 renders the cell in A1 notation, e.g. {2, 7} -> "G2".
func (c Cell) A1() string {
	return ColumnLetter(c.Col) + strconv.Itoa(c.Row)
}

// String implements fmt.Stringer.
func (c Cell) String() string { return c.A1() }

// ColumnLetter converts a 1-based column index into its letter form
// (1 -> A, 26 -> Z, 27 -> AA). Non-positive input yields "".
func ColumnLetter(col int) string {
	if col < 1 {
		return ""
	}
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

// ColumnIndex is the inverse of ColumnLetter. It returns 0 for invalid input.
func ColumnIndex(letters string) int {
	letters = strings.ToUpper(strings.TrimSpace(letters))
	if letters == "" {
		return 0
	}
	n := 0
	for _, r := range letters {
		if r < 'A' || r > 'Z' {
			return 0
		}
		n = n*26 + int(r-'A'+1)
	}
	return n
}

// ParseCell parses an A1 reference such as "G2" or "$G$2".
func ParseCell(ref string) (Cell, error) {
	s := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(ref)), "$", "")
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(s) {
		return Cell{}, fmt.Errorf("invalid cell reference %q", ref)
	}
	row, err := strconv.Atoi(s[i:])
	if err != nil || row < 1 {
		return Cell{}, fmt.Errorf("invalid cell reference %q", ref)
	}
	return Cell{Row: row, Col: ColumnIndex(s[:i])}, nil
}

// quoteSheet quotes a tab name for use in an A1 range ('My Sheet'!A1).
func quoteSheet(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

// rangeRef joins a tab name and an A1 fragment.
func rangeRef(sheet, a1 string) string {
	if a1 == "" {
		return quoteSheet(sheet)
	}
	return quoteSheet(sheet) + "!" + a1
}
