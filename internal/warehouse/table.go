package warehouse

import (
	"strings"
	"time"
)

// Table is a full in-memory copy of one warehouse table. Column names are
// upper-cased on load so lookups match the warehouse's canonical spelling
// regardless of driver case folding.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any

	index map[string]int
}

// NewTable builds a table and its column index.
func NewTable(name string, columns []string, rows [][]any) *Table {
	t := &Table{Name: name, Columns: make([]string, len(columns)), Rows: rows}
	t.index = make(map[string]int, len(columns))
	for i, c := range columns {
		up := strings.ToUpper(c)
		t.Columns[i] = up
		t.index[up] = i
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Column returns the position of the named column, or -1.
func (t *Table) Column(name string) int {
	if t == nil {
		return -1
	}
	if i, ok := t.index[strings.ToUpper(name)]; ok {
		return i
	}
	return -1
}

// Value returns the cell at (row, col), or nil when col is out of range.
func (t *Table) Value(row, col int) any {
	if col < 0 || col >= len(t.Rows[row]) {
		return nil
	}
	return t.Rows[row][col]
}

// Time returns the cell as a time when it holds one.
func (t *Table) Time(row, col int) (time.Time, bool) {
	v, ok := t.Value(row, col).(time.Time)
	return v, ok
}

// Snapshot holds the four tables loaded once per session.
type Snapshot struct {
	Providers  *Table
	Patients   *Table
	Cancers    *Table
	Encounters *Table
}

// ServiceDateBounds returns the earliest and latest calendar service date
// across all encounters. ok is false when no encounter has a usable date.
func (s *Snapshot) ServiceDateBounds() (min, max time.Time, ok bool) {
	enc := s.Encounters
	col := enc.Column("SERVICE_DATE")
	if col < 0 {
		return time.Time{}, time.Time{}, false
	}
	for i := 0; i < enc.Len(); i++ {
		ts, has := enc.Time(i, col)
		if !has {
			continue
		}
		d := DateOf(ts)
		if !ok {
			min, max, ok = d, d, true
			continue
		}
		if d.Before(min) {
			min = d
		}
		if d.After(max) {
			max = d
		}
	}
	return min, max, ok
}
