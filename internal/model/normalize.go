package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName turns a guest or table name into its matching key:
// NFC-composed, case-folded, inner whitespace collapsed to single spaces,
// leading/trailing whitespace removed.  "  Иван   ПЕТРОВ " and "иван петров"
// share a key.
func NormalizeName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	return cases.Fold().String(norm.NFC.String(s))
}

// SameName reports whether two names refer to the same guest or table.
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}

// CleanName trims and collapses whitespace but keeps the original casing;
// this is the form written back to sheets.
func CleanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
