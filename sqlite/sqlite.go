// Package sqlite implements repo interfaces
package sqlite

import (
	"errors"
	"strings"
)

var ErrNotFound = errors.New("not found")

// Scannable is satisfied by both *sql.Row and *sql.Rows
type Scannable interface {
	Scan(dest ...any) error
}

// GenerateParameters builds a "(?, ?, ...)" placeholder list for n args
func GenerateParameters(n int) string {
	if n <= 0 {
		return "()"
	}
	return "(" + strings.Repeat("?, ", n-1) + "?)"
}
