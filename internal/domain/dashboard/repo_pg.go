package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oncology/dashboard/internal/warehouse"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repoPG struct {
	db      queryable
	catalog Catalog
}

// NewRepoPG returns a Repository backed by a pgx pool (or anything with the
// same Query/QueryRow surface).
func NewRepoPG(db queryable, catalog Catalog) Repository {
	return &repoPG{db: db, catalog: catalog}
}

func (r *repoPG) scalarInt(ctx context.Context, q Query) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, q.SQL, q.Args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", q.Name, err)
	}
	return n, nil
}

func (r *repoPG) scalarFloat(ctx context.Context, q Query) (float64, error) {
	var f float64
	if err := r.db.QueryRow(ctx, q.SQL, q.Args...).Scan(&f); err != nil {
		return 0, fmt.Errorf("%s: %w", q.Name, err)
	}
	return f, nil
}

// categories reads (label, count) rows. A NULL label becomes "".
func (r *repoPG) categories(ctx context.Context, q Query) ([]CategoryCount, error) {
	rows, err := r.db.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", q.Name, err)
	}
	defer rows.Close()

	items := []CategoryCount{}
	for rows.Next() {
		var label *string
		var count int64
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("%s: %w", q.Name, err)
		}
		items = append(items, CategoryCount{Label: deref(label), Count: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", q.Name, err)
	}
	return items, nil
}

func (r *repoPG) stringList(ctx context.Context, q Query) ([]string, error) {
	rows, err := r.db.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", q.Name, err)
	}
	defer rows.Close()

	items := []string{}
	for rows.Next() {
		var s *string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("%s: %w", q.Name, err)
		}
		if s != nil {
			items = append(items, *s)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", q.Name, err)
	}
	return items, nil
}

func (r *repoPG) CountEncounters(ctx context.Context, p StatusPredicate) (int64, error) {
	return r.scalarInt(ctx, r.catalog.TotalEncounters(p))
}

func (r *repoPG) SumBilled(ctx context.Context, p StatusPredicate) (float64, error) {
	return r.scalarFloat(ctx, r.catalog.TotalBilled(p))
}

func (r *repoPG) CountDistinctPatients(ctx context.Context) (int64, error) {
	return r.scalarInt(ctx, r.catalog.UniquePatients())
}

func (r *repoPG) AvgBilled(ctx context.Context) (float64, error) {
	return r.scalarFloat(ctx, r.catalog.AvgBilled())
}

func (r *repoPG) StageDistribution(ctx context.Context) ([]CategoryCount, error) {
	return r.categories(ctx, r.catalog.StageDistribution())
}

func (r *repoPG) EncounterStatuses(ctx context.Context) ([]string, error) {
	return r.stringList(ctx, r.catalog.EncounterStatuses())
}

func (r *repoPG) CancerNames(ctx context.Context) ([]string, error) {
	return r.stringList(ctx, r.catalog.CancerNames())
}

func (r *repoPG) CancerStatusDistribution(ctx context.Context, cancer string, p StatusPredicate) ([]CategoryCount, error) {
	return r.categories(ctx, r.catalog.CancerStatusDistribution(cancer, p))
}

func (r *repoPG) CancerProviderDistribution(ctx context.Context, cancer string) ([]CategoryCount, error) {
	return r.categories(ctx, r.catalog.CancerProviderDistribution(cancer))
}

func (r *repoPG) CancerPatients(ctx context.Context, cancer string) ([]PatientRow, error) {
	q := r.catalog.CancerPatients(cancer)
	rows, err := r.db.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", q.Name, err)
	}
	defer rows.Close()

	items := []PatientRow{}
	for rows.Next() {
		var name, gender, city, state, country, payer *string
		var dob any
		if err := rows.Scan(&name, &gender, &dob, &city, &state, &country, &payer); err != nil {
			return nil, fmt.Errorf("%s: %w", q.Name, err)
		}
		items = append(items, PatientRow{
			Name:    deref(name),
			Gender:  deref(gender),
			DOB:     dateOrNil(dob),
			City:    deref(city),
			State:   deref(state),
			Country: deref(country),
			PayerID: deref(payer),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", q.Name, err)
	}
	return items, nil
}

func (r *repoPG) ProviderEncounterCounts(ctx context.Context) ([]CategoryCount, error) {
	return r.categories(ctx, r.catalog.ProviderEncounterCounts())
}

func (r *repoPG) GenderDistribution(ctx context.Context) ([]CategoryCount, error) {
	return r.categories(ctx, r.catalog.GenderDistribution())
}

func (r *repoPG) CityCounts(ctx context.Context) ([]CategoryCount, error) {
	return r.categories(ctx, r.catalog.CityCounts())
}

func (r *repoPG) BilledByServiceDate(ctx context.Context) ([]AmountPoint, error) {
	q := r.catalog.BilledByServiceDate()
	rows, err := r.db.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", q.Name, err)
	}
	defer rows.Close()

	items := []AmountPoint{}
	for rows.Next() {
		var date any
		var amount *float64
		if err := rows.Scan(&date, &amount); err != nil {
			return nil, fmt.Errorf("%s: %w", q.Name, err)
		}
		p := AmountPoint{Date: dateOrNil(date)}
		if amount != nil {
			p.Amount = *amount
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", q.Name, err)
	}
	return items, nil
}

func (r *repoPG) EncounterPoints(ctx context.Context) ([]EncounterPoint, error) {
	q := r.catalog.EncounterPoints()
	rows, err := r.db.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", q.Name, err)
	}
	defer rows.Close()

	items := []EncounterPoint{}
	for rows.Next() {
		var amount *float64
		var date any
		var status, stage *string
		if err := rows.Scan(&amount, &date, &status, &stage); err != nil {
			return nil, fmt.Errorf("%s: %w", q.Name, err)
		}
		items = append(items, EncounterPoint{
			BilledAmount: amount,
			ServiceDate:  dateOrNil(date),
			Status:       deref(status),
			Stage:        deref(stage),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", q.Name, err)
	}
	return items, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// dateOrNil accepts whatever the driver produced for a date-valued column
// (native date, timestamp or text) and applies the loader's parsing rules.
func dateOrNil(v any) *time.Time {
	t, ok := warehouse.NormalizeDate(v).(time.Time)
	if !ok {
		return nil
	}
	return &t
}
