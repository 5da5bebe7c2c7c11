package repository

// Guest-list sheet columns (1-based).  Row 1 holds the column titles.
const (
	ColGuestName      = 1 // A: full name
	ColGuestAge       = 2 // B: age (optional)
	ColGuestConfirmed = 3 // C: "ДА" / "НЕТ"
	ColGuestCategory  = 4 // D: category
	ColGuestSide      = 5 // E: side
	ColGuestAccount   = 6 // F: external account id
	ColGuestTable     = 7 // G: table selector (data-validation bound)
)

// Seating-chart sheet layout.  Column A is reserved for row labels, table
// columns start at B; row 1 is the header and guests start at row 2.
const (
	ChartFirstTableCol = 2
	ChartFirstGuestRow = 2
)
