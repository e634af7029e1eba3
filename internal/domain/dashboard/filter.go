package dashboard

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oncology/dashboard/internal/warehouse"
)

const statusColumn = "ENCOUNTER_STATUS"

// StatusPredicate is the encounter-status restriction chosen in the sidebar.
// It only ever applies to warehouse-side queries; the client-side date mask
// ignores it.
type StatusPredicate struct {
	statuses []string
}

// NewStatusPredicate keeps the selection order and drops blanks and
// duplicates. An empty selection means no restriction.
func NewStatusPredicate(statuses []string) StatusPredicate {
	seen := make(map[string]bool, len(statuses))
	var out []string
	for _, s := range statuses {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return StatusPredicate{statuses: out}
}

func (p StatusPredicate) Empty() bool {
	return len(p.statuses) == 0
}

func (p StatusPredicate) Statuses() []string {
	out := make([]string, len(p.statuses))
	copy(out, p.statuses)
	return out
}

func (p StatusPredicate) quoted() string {
	parts := make([]string, len(p.statuses))
	for i, s := range p.statuses {
		parts[i] = "'" + s + "'"
	}
	return strings.Join(parts, ",")
}

// Legacy renders the fragment with inline single-quoted literals, e.g.
// AND ENCOUNTER_STATUS IN ('COMPLETED'). No escaping is applied, so it only
// goes to the render log; queries use SQL.
func (p StatusPredicate) Legacy() string {
	if p.Empty() {
		return ""
	}
	return "AND " + statusColumn + " IN (" + p.quoted() + ")"
}

// Label is the sidebar caption for the current selection.
func (p StatusPredicate) Label() string {
	if p.Empty() {
		return "ALL"
	}
	return p.quoted()
}

// SQL renders the fragment with one placeholder per status, numbered from
// next, together with the values to bind.
func (p StatusPredicate) SQL(next int) (string, []any) {
	if p.Empty() {
		return "", nil
	}
	holders := make([]string, len(p.statuses))
	args := make([]any, len(p.statuses))
	for i, s := range p.statuses {
		holders[i] = fmt.Sprintf("$%d", next+i)
		args[i] = s
	}
	return "AND " + statusColumn + " IN (" + strings.Join(holders, ", ") + ")", args
}

// DateRange is an inclusive calendar-date interval.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange truncates both ends to calendar dates and clamps them into
// bounds. Start after End is kept as is; it selects nothing.
func NewDateRange(start, end time.Time, bounds DateRange) DateRange {
	return DateRange{
		Start: clampDate(warehouse.DateOf(start), bounds),
		End:   clampDate(warehouse.DateOf(end), bounds),
	}
}

func clampDate(d time.Time, bounds DateRange) time.Time {
	if d.Before(bounds.Start) {
		return bounds.Start
	}
	if d.After(bounds.End) {
		return bounds.End
	}
	return d
}

// Contains reports whether t's calendar date lies within the range.
func (r DateRange) Contains(t time.Time) bool {
	d := warehouse.DateOf(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// DateMask selects the encounter rows whose service date falls inside r.
// Rows without a usable service date are never selected.
func DateMask(enc *warehouse.Table, r DateRange) []bool {
	mask := make([]bool, enc.Len())
	col := enc.Column("SERVICE_DATE")
	if col < 0 {
		return mask
	}
	for i := range mask {
		if ts, ok := enc.Time(i, col); ok {
			mask[i] = r.Contains(ts)
		}
	}
	return mask
}

// DailyCounts counts the masked encounters per calendar date, ascending.
func DailyCounts(enc *warehouse.Table, mask []bool) []DailyCount {
	col := enc.Column("SERVICE_DATE")
	counts := map[time.Time]int{}
	if col >= 0 {
		for i, keep := range mask {
			if !keep {
				continue
			}
			if ts, ok := enc.Time(i, col); ok {
				counts[warehouse.DateOf(ts)]++
			}
		}
	}

	out := make([]DailyCount, 0, len(counts))
	for d, n := range counts {
		out = append(out, DailyCount{Date: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// TopN returns at most n entries ordered by count descending. Equal counts
// keep their incoming order.
func TopN(items []CategoryCount, n int) []CategoryCount {
	out := make([]CategoryCount, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
