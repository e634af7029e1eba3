package dashboard

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Page is one of the seven dashboard pages.
type Page string

const (
	PageOverview         Page = "Overview"
	PageEncounterTrends  Page = "Encounter Trends"
	PageCancerInsights   Page = "Cancer Insights"
	PageProviderInsights Page = "Provider Insights"
	PagePatientInsights  Page = "Patient Insights"
	PageFinancialMetrics Page = "Financial Metrics"
	PageAISearch         Page = "AI Search Assistant"
)

// Pages lists the pages in navigation order.
var Pages = []Page{
	PageOverview,
	PageEncounterTrends,
	PageCancerInsights,
	PageProviderInsights,
	PagePatientInsights,
	PageFinancialMetrics,
	PageAISearch,
}

var ErrUnknownPage = errors.New("unknown page")

// Slug is the URL form of the page name, e.g. "encounter-trends".
func (p Page) Slug() string {
	return strings.ReplaceAll(strings.ToLower(string(p)), " ", "-")
}

// ParsePage accepts either the display name or the slug, case-insensitively.
func ParsePage(s string) (Page, error) {
	s = strings.TrimSpace(s)
	for _, p := range Pages {
		if strings.EqualFold(s, string(p)) || strings.EqualFold(s, p.Slug()) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPage, s)
}

// Selection is everything the user has picked in the sidebar and page body.
type Selection struct {
	Page     Page
	Statuses []string
	Range    DateRange
	Cancer   string
	Question string
}

// Overview holds the four metric tiles of the Overview page.
type Overview struct {
	TotalEncounters int64   `json:"total_encounters"`
	TotalBilled     float64 `json:"total_billed"`
	UniquePatients  int64   `json:"unique_patients"`
	AvgBilled       float64 `json:"avg_billed"`
}

// CategoryCount is one bar or slice of a categorical chart.
type CategoryCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// DailyCount is one point of the locally computed encounter trend.
type DailyCount struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// AmountPoint is one point of the billed-amount series.
type AmountPoint struct {
	Date   *time.Time `json:"date"`
	Amount float64    `json:"amount"`
}

// EncounterPoint is a raw encounter projection used by scatter charts.
type EncounterPoint struct {
	BilledAmount *float64   `json:"billed_amount"`
	ServiceDate  *time.Time `json:"service_date"`
	Status       string     `json:"encounter_status"`
	Stage        string     `json:"disease_stage"`
}

// PatientRow is one line of the cancer patient roster.
type PatientRow struct {
	Name    string     `json:"name"`
	Gender  string     `json:"gender"`
	DOB     *time.Time `json:"dob"`
	City    string     `json:"city"`
	State   string     `json:"state"`
	Country string     `json:"country"`
	PayerID string     `json:"payer_id"`
}

// FilterOptions feeds the sidebar widgets.
type FilterOptions struct {
	Statuses []string  `json:"statuses"`
	MinDate  time.Time `json:"min_date"`
	MaxDate  time.Time `json:"max_date"`
	Cancers  []string  `json:"cancers"`
}

// WidgetKind names how a widget is drawn by the front end.
type WidgetKind string

const (
	WidgetMetric  WidgetKind = "metric"
	WidgetArea    WidgetKind = "area"
	WidgetLine    WidgetKind = "line"
	WidgetBar     WidgetKind = "bar"
	WidgetPie     WidgetKind = "pie"
	WidgetScatter WidgetKind = "scatter"
	WidgetTable   WidgetKind = "table"
	WidgetText    WidgetKind = "text"
)

// Widget describes one rendered element. X, Y and Color name the fields of
// Data rows the chart binds to.
type Widget struct {
	Kind    WidgetKind `json:"kind"`
	Title   string     `json:"title,omitempty"`
	X       string     `json:"x,omitempty"`
	Y       string     `json:"y,omitempty"`
	Color   string     `json:"color,omitempty"`
	Hole    float64    `json:"hole,omitempty"`
	Markers bool       `json:"markers,omitempty"`
	Value   any        `json:"value,omitempty"`
	Data    any        `json:"data,omitempty"`
}

// View is a fully rendered page.
type View struct {
	Page        Page      `json:"page"`
	Title       string    `json:"title"`
	Caption     string    `json:"caption"`
	Background  string    `json:"background,omitempty"`
	StatusLabel string    `json:"status_label"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Header      string    `json:"header,omitempty"`
	Cancers     []string  `json:"cancers,omitempty"`
	Cancer      string    `json:"cancer,omitempty"`
	Widgets     []Widget  `json:"widgets"`
}

func (v *View) add(w Widget) {
	v.Widgets = append(v.Widgets, w)
}
