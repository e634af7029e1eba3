package dashboard

import (
	"context"
	"fmt"
	"math"
)

const (
	viewTitle   = "ONCOLOGY OVERVIEW ⚕️"
	viewCaption = "A real-time analytics dashboard for oncology performance metrics, encounter trends, cancer insights, providers, patients, and financial KPIs."
)

// pageRenderer appends a page's widgets to v, in display order. A failing
// query aborts the whole page.
type pageRenderer func(ctx context.Context, s *Service, sel Selection, v *View) error

var routes = map[Page]pageRenderer{
	PageOverview:         renderOverview,
	PageEncounterTrends:  renderEncounterTrends,
	PageCancerInsights:   renderCancerInsights,
	PageProviderInsights: renderProviderInsights,
	PagePatientInsights:  renderPatientInsights,
	PageFinancialMetrics: renderFinancialMetrics,
	PageAISearch:         renderAISearch,
}

// Render runs every query the selected page needs and returns the finished
// view. Nothing is reused from earlier renders.
func (s *Service) Render(ctx context.Context, sel Selection) (*View, error) {
	render, ok := routes[sel.Page]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPage, sel.Page)
	}

	p := NewStatusPredicate(sel.Statuses)
	v := &View{
		Page:        sel.Page,
		Title:       viewTitle,
		Caption:     viewCaption,
		Background:  s.sess.Background,
		StatusLabel: p.Label(),
		Start:       sel.Range.Start,
		End:         sel.Range.End,
		Widgets:     []Widget{},
	}
	if sel.Page != PageOverview {
		v.Header = string(sel.Page)
	}

	if err := render(ctx, s, sel, v); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("page", string(sel.Page)).
		Str("statuses", p.Label()).
		Str("status_filter", p.Legacy()).
		Time("start", sel.Range.Start).
		Time("end", sel.Range.End).
		Int("widgets", len(v.Widgets)).
		Msg("page rendered")
	return v, nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func renderOverview(ctx context.Context, s *Service, sel Selection, v *View) error {
	o, err := s.Overview(ctx, NewStatusPredicate(sel.Statuses))
	if err != nil {
		return err
	}
	v.add(Widget{Kind: WidgetMetric, Title: "Total Encounters", Value: o.TotalEncounters})
	v.add(Widget{Kind: WidgetMetric, Title: "Total Billed Amount", Value: round2(o.TotalBilled)})
	v.add(Widget{Kind: WidgetMetric, Title: "Unique Patients", Value: o.UniquePatients})
	v.add(Widget{Kind: WidgetMetric, Title: "Avg Bill Amount", Value: round2(o.AvgBilled)})

	v.add(Widget{
		Kind: WidgetArea, Title: "Daily Encounter Trend",
		X: "date", Y: "count",
		Data: s.DailyEncounters(sel.Range),
	})

	stages, err := s.sess.Repo.StageDistribution(ctx)
	if err != nil {
		return err
	}
	v.add(Widget{Kind: WidgetBar, Title: "Disease Stage Distribution", X: "label", Y: "count", Color: "label", Data: stages})
	return nil
}

func renderEncounterTrends(ctx context.Context, s *Service, sel Selection, v *View) error {
	v.add(Widget{
		Kind: WidgetLine, Title: "Daily Encounters",
		X: "date", Y: "count", Markers: true,
		Data: s.DailyEncounters(sel.Range),
	})

	points, err := s.sess.Repo.EncounterPoints(ctx)
	if err != nil {
		return err
	}
	v.add(Widget{
		Kind: WidgetScatter, Title: "Billed Amount by Service Date",
		X: "billed_amount", Y: "service_date", Color: "encounter_status",
		Data: points,
	})
	return nil
}

func renderCancerInsights(ctx context.Context, s *Service, sel Selection, v *View) error {
	cancers, err := s.sess.Repo.CancerNames(ctx)
	if err != nil {
		return err
	}
	v.Cancers = cancers

	cancer := sel.Cancer
	if cancer == "" && len(cancers) > 0 {
		cancer = cancers[0]
	}
	if cancer == "" {
		// Nothing to select yet.
		return nil
	}
	v.Cancer = cancer

	statuses, err := s.sess.Repo.CancerStatusDistribution(ctx, cancer, NewStatusPredicate(sel.Statuses))
	if err != nil {
		return err
	}
	v.add(Widget{Kind: WidgetBar, Title: "Encounter Status", X: "label", Y: "count", Color: "label", Data: statuses})

	providers, err := s.sess.Repo.CancerProviderDistribution(ctx, cancer)
	if err != nil {
		return err
	}
	v.add(Widget{
		Kind: WidgetPie, Title: fmt.Sprintf("BEST HOSPITALS FOR %s", cancer),
		X: "label", Y: "count", Hole: 0.4,
		Data: providers,
	})

	patients, err := s.sess.Repo.CancerPatients(ctx, cancer)
	if err != nil {
		return err
	}
	v.add(Widget{Kind: WidgetTable, Title: "Patients with this Cancer", Data: patients})
	return nil
}

func renderProviderInsights(ctx context.Context, s *Service, sel Selection, v *View) error {
	top, err := s.ProviderLeaderboard(ctx)
	if err != nil {
		return err
	}
	v.add(Widget{Kind: WidgetBar, Title: "Top Providers by Encounters", X: "label", Y: "count", Color: "label", Data: top})
	return nil
}

func renderPatientInsights(ctx context.Context, s *Service, sel Selection, v *View) error {
	genders, err := s.sess.Repo.GenderDistribution(ctx)
	if err != nil {
		return err
	}
	v.add(Widget{Kind: WidgetPie, Title: "Gender", X: "label", Y: "count", Hole: 0.45, Data: genders})

	cities, err := s.TopCities(ctx)
	if err != nil {
		return err
	}
	v.add(Widget{Kind: WidgetBar, Title: "Top Cities", X: "label", Y: "count", Data: cities})
	return nil
}

func renderFinancialMetrics(ctx context.Context, s *Service, sel Selection, v *View) error {
	series, err := s.sess.Repo.BilledByServiceDate(ctx)
	if err != nil {
		return err
	}
	v.add(Widget{Kind: WidgetArea, Title: "Billed Amount over Time", X: "date", Y: "amount", Data: series})

	points, err := s.sess.Repo.EncounterPoints(ctx)
	if err != nil {
		return err
	}
	v.add(Widget{
		Kind: WidgetScatter, Title: "Billed Amount by Status",
		X: "billed_amount", Y: "encounter_status", Color: "disease_stage",
		Data: points,
	})
	return nil
}

func renderAISearch(ctx context.Context, s *Service, sel Selection, v *View) error {
	answer, asked, err := s.Ask(ctx, sel.Question)
	if err != nil {
		return err
	}
	if asked {
		v.add(Widget{Kind: WidgetText, Title: "Answer", Value: answer})
	}
	return nil
}
