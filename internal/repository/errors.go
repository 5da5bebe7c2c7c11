// Package repository maps the guest list, the seating chart, the table
// list and the lock onto spreadsheet tabs, and sync runs onto MySQL.
package repository

import "errors"

// ErrGuestNotFound is returned when no guest row matches a name.
var ErrGuestNotFound = errors.New("guest not found")
