package warehouse

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
)

// Warehouse table names.
const (
	TableProvider   = "PROVIDER"
	TablePatient    = "PATIENT"
	TableCancer     = "CANCER_CATALOG"
	TableEncounters = "ONCOLOGY_ENCOUNTERS"
)

var knownTables = map[string]bool{
	TableProvider:   true,
	TablePatient:    true,
	TableCancer:     true,
	TableEncounters: true,
}

// ErrUnknownTable is returned for names outside the four dashboard tables.
// Table names are interpolated into SQL, so only these are accepted.
var ErrUnknownTable = errors.New("unknown warehouse table")

// Querier is the subset of *pgxpool.Pool the loader uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Loader struct {
	db     Querier
	schema string
	logger zerolog.Logger
}

// NewLoader creates a loader. schema may be empty; when set it must already
// be validated as a plain identifier.
func NewLoader(db Querier, schema string, logger zerolog.Logger) *Loader {
	return &Loader{db: db, schema: schema, logger: logger.With().Str("component", "loader").Logger()}
}

func (l *Loader) qualified(name string) string {
	if l.schema == "" {
		return name
	}
	return l.schema + "." + name
}

// Load reads the whole table. There is no pagination: the dataset is
// expected to fit in memory.
func (l *Loader) Load(ctx context.Context, name string) (*Table, error) {
	if !knownTables[name] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}

	rows, err := l.db.Query(ctx, "SELECT * FROM "+l.qualified(name))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	columns := make([]string, len(fds))
	isDate := make([]bool, len(fds))
	for i, fd := range fds {
		columns[i] = fd.Name
		isDate[i] = IsDateColumn(fd.Name)
	}

	var data [][]any
	coerced := 0
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("load %s: read row: %w", name, err)
		}
		for i, v := range values {
			if isDate[i] {
				nv := NormalizeDate(v)
				if nv == nil && v != nil {
					coerced++
				}
				values[i] = nv
				continue
			}
			values[i] = normalizeValue(v)
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	t := NewTable(name, columns, data)
	l.logger.Info().
		Str("table", name).
		Int("rows", t.Len()).
		Int("columns", len(columns)).
		Int("unparsed_dates", coerced).
		Msg("table loaded")
	return t, nil
}

// LoadAll loads the four dashboard tables. Any failure aborts the whole load.
func (l *Loader) LoadAll(ctx context.Context) (*Snapshot, error) {
	var s Snapshot
	targets := []struct {
		name string
		dst  **Table
	}{
		{TableProvider, &s.Providers},
		{TablePatient, &s.Patients},
		{TableCancer, &s.Cancers},
		{TableEncounters, &s.Encounters},
	}
	for _, tgt := range targets {
		t, err := l.Load(ctx, tgt.name)
		if err != nil {
			return nil, err
		}
		*tgt.dst = t
	}
	return &s, nil
}

// normalizeValue flattens driver-specific types the rest of the code does
// not want to know about.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case []byte:
		return string(x)
	default:
		return v
	}
}
