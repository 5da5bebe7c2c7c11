package model

// Guest represents one row of the guest-list sheet.  The sheet stores
// guests positionally (columns A..G); the repository layer translates
// rows into this record so the rest of the code never indexes cells.
//
// Fields:
//  Row       – 1-based sheet row the guest was read from.  Only valid
//              for the snapshot it came from; never used as identity.
//  Name      – full name, the matching key (see NormalizeName).
//  Age       – free-form age cell, may be empty.
//  Confirmed – attendance flag ("ДА" in the sheet).
//  Category  – guest category (family, friends, ...).
//  Side      – bride's or groom's side.
//  AccountID – external messenger account identifier, may be empty.
//  Table     – assigned table name, empty when unassigned.
type Guest struct {
    Row       int    `json:"row"`        // sheet row
    Name      string `json:"name"`       // column A
    Age       string `json:"age"`        // column B
    Confirmed bool   `json:"confirmed"`  // column C
    Category  string `json:"category"`   // column D
    Side      string `json:"side"`       // column E
    AccountID string `json:"account_id"` // column F
    Table     string `json:"table"`      // column G
}

// Key returns the normalized name used to match this guest.
func (g Guest) Key() string { return NormalizeName(g.Name) }

// HasTable reports whether the guest carries a table assignment.
func (g Guest) HasTable() bool { return NormalizeName(g.Table) != "" }
