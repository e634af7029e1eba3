// Package warehousetest provides an in-memory stand-in for the warehouse
// connection pool, for tests that need to observe the SQL text and bound
// arguments a component sends.
package warehousetest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Result is a canned response for queries whose SQL contains Match.
type Result struct {
	Match   string
	Columns []string
	Rows    [][]any
	Err     error
}

// Call records one query sent to the fake.
type Call struct {
	SQL  string
	Args []any
}

// Querier answers Query and QueryRow from registered results. The first
// result whose Match is a substring of the SQL wins; unmatched SQL yields
// an empty result set.
type Querier struct {
	mu      sync.Mutex
	results []Result
	calls   []Call
}

func New(results ...Result) *Querier {
	return &Querier{results: results}
}

// On registers another canned result.
func (q *Querier) On(r Result) *Querier {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.results = append(q.results, r)
	return q
}

// Calls returns the queries received so far.
func (q *Querier) Calls() []Call {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Call, len(q.calls))
	copy(out, q.calls)
	return out
}

func (q *Querier) lookup(sql string, args []any) Result {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls = append(q.calls, Call{SQL: sql, Args: args})
	for _, r := range q.results {
		if strings.Contains(sql, r.Match) {
			return r
		}
	}
	return Result{}
}

func (q *Querier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	r := q.lookup(sql, args)
	if r.Err != nil {
		return nil, r.Err
	}
	return &Rows{columns: r.Columns, data: r.Rows, pos: -1}, nil
}

func (q *Querier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	r := q.lookup(sql, args)
	return &Row{res: r}
}

// Rows implements pgx.Rows over canned data.
type Rows struct {
	columns []string
	data    [][]any
	pos     int
	closed  bool
}

func (r *Rows) Close()                        { r.closed = true }
func (r *Rows) Err() error                    { return nil }
func (r *Rows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }
func (r *Rows) Conn() *pgx.Conn               { return nil }

func (r *Rows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.columns))
	for i, c := range r.columns {
		fds[i] = pgconn.FieldDescription{Name: c}
	}
	return fds
}

func (r *Rows) Next() bool {
	if r.closed {
		return false
	}
	r.pos++
	return r.pos < len(r.data)
}

func (r *Rows) Values() ([]any, error) {
	row := r.data[r.pos]
	out := make([]any, len(row))
	copy(out, row)
	return out, nil
}

func (r *Rows) RawValues() [][]byte { return nil }

func (r *Rows) Scan(dest ...any) error {
	return scanInto(r.data[r.pos], dest)
}

// Row implements pgx.Row over the first canned row.
type Row struct {
	res Result
}

func (r *Row) Scan(dest ...any) error {
	if r.res.Err != nil {
		return r.res.Err
	}
	if len(r.res.Rows) == 0 {
		return pgx.ErrNoRows
	}
	return scanInto(r.res.Rows[0], dest)
}

func scanInto(row []any, dest []any) error {
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i := range dest {
		if err := assign(dest[i], row[i]); err != nil {
			return fmt.Errorf("scan column %d: %w", i, err)
		}
	}
	return nil
}

func assign(dest, src any) error {
	switch d := dest.(type) {
	case *any:
		*d = src
	case *string:
		s, ok := src.(string)
		if !ok {
			return fmt.Errorf("cannot scan %T into string", src)
		}
		*d = s
	case **string:
		if src == nil {
			*d = nil
			return nil
		}
		s, ok := src.(string)
		if !ok {
			return fmt.Errorf("cannot scan %T into *string", src)
		}
		*d = &s
	case *int64:
		switch v := src.(type) {
		case int64:
			*d = v
		case int:
			*d = int64(v)
		case int32:
			*d = int64(v)
		default:
			return fmt.Errorf("cannot scan %T into int64", src)
		}
	case *float64:
		switch v := src.(type) {
		case float64:
			*d = v
		case int64:
			*d = float64(v)
		case int:
			*d = float64(v)
		default:
			return fmt.Errorf("cannot scan %T into float64", src)
		}
	case **float64:
		if src == nil {
			*d = nil
			return nil
		}
		f, ok := src.(float64)
		if !ok {
			return fmt.Errorf("cannot scan %T into *float64", src)
		}
		*d = &f
	case *time.Time:
		t, ok := src.(time.Time)
		if !ok {
			return fmt.Errorf("cannot scan %T into time.Time", src)
		}
		*d = t
	default:
		return fmt.Errorf("unsupported scan destination %T", dest)
	}
	return nil
}
