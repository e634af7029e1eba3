package dashboard

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/oncology/dashboard/internal/warehouse"
)

func TestNewSession_Bounds(t *testing.T) {
	svc, _, _ := newTestService()
	b := svc.Session().Bounds
	if !b.Start.Equal(day(2023, 12, 31)) || !b.End.Equal(day(2024, 2, 2)) {
		t.Errorf("unexpected bounds %v..%v", b.Start, b.End)
	}
}

func TestNewSession_NoDatedEncounters(t *testing.T) {
	snap := testSnapshot()
	snap.Encounters = warehouse.NewTable(warehouse.TableEncounters, []string{"SERVICE_DATE"}, [][]any{{nil}})
	sess := NewSession(snap, newMockRepo(), nil, "")
	if !sess.Bounds.Start.IsZero() || !sess.Bounds.End.IsZero() {
		t.Errorf("expected zero bounds, got %+v", sess.Bounds)
	}
	svc := NewService(sess, zerolog.Nop())
	if got := svc.DailyEncounters(sess.Bounds); len(got) != 0 {
		t.Errorf("expected no daily counts, got %v", got)
	}
}

func TestService_DefaultSelection(t *testing.T) {
	svc, _, _ := newTestService()
	sel := svc.DefaultSelection()
	if sel.Page != PageOverview {
		t.Errorf("expected Overview, got %s", sel.Page)
	}
	if len(sel.Statuses) != 0 {
		t.Errorf("expected no status restriction, got %v", sel.Statuses)
	}
	if sel.Range != svc.Session().Bounds {
		t.Errorf("expected full bounds, got %+v", sel.Range)
	}
}

func TestService_FilterOptions(t *testing.T) {
	svc, repo, _ := newTestService()
	opts, err := svc.FilterOptions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(opts.Statuses, repo.statuses) {
		t.Errorf("unexpected statuses: %v", opts.Statuses)
	}
	if !reflect.DeepEqual(opts.Cancers, repo.cancers) {
		t.Errorf("unexpected cancers: %v", opts.Cancers)
	}
	if !opts.MinDate.Equal(day(2023, 12, 31)) || !opts.MaxDate.Equal(day(2024, 2, 2)) {
		t.Errorf("unexpected date bounds %v..%v", opts.MinDate, opts.MaxDate)
	}
}

func TestService_Overview_StatusOnlyOnCountAndSum(t *testing.T) {
	svc, repo, _ := newTestService()
	p := NewStatusPredicate([]string{"COMPLETED"})

	o, err := svc.Overview(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.TotalEncounters != 1 || o.UniquePatients != 5 {
		t.Errorf("unexpected overview: %+v", o)
	}

	for _, m := range []string{"CountEncounters", "SumBilled"} {
		calls := repo.callsTo(m)
		if len(calls) != 1 || !reflect.DeepEqual(calls[0].Predicate.Statuses(), []string{"COMPLETED"}) {
			t.Errorf("%s: expected status predicate, got %+v", m, calls)
		}
	}
	for _, m := range []string{"CountDistinctPatients", "AvgBilled"} {
		calls := repo.callsTo(m)
		if len(calls) != 1 || !calls[0].Predicate.Empty() {
			t.Errorf("%s: should ignore the status selection, got %+v", m, calls)
		}
	}
}

func TestService_Overview_Error(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.err = errWarehouse
	if _, err := svc.Overview(context.Background(), NewStatusPredicate(nil)); !errors.Is(err, errWarehouse) {
		t.Errorf("expected warehouse error, got %v", err)
	}
}

func TestService_CancerPatients_RequiresName(t *testing.T) {
	svc, repo, _ := newTestService()
	if _, err := svc.CancerPatients(context.Background(), ""); !errors.Is(err, ErrCancerRequired) {
		t.Errorf("expected ErrCancerRequired, got %v", err)
	}
	if len(repo.callsTo("CancerPatients")) != 0 {
		t.Error("warehouse should not be queried without a cancer name")
	}
}

func TestService_Ask_EmptyQuestionMakesNoCall(t *testing.T) {
	svc, _, asker := newTestService()
	for _, q := range []string{"", "   "} {
		answer, asked, err := svc.Ask(context.Background(), q)
		if err != nil || asked || answer != "" {
			t.Errorf("Ask(%q) = %q, %v, %v", q, answer, asked, err)
		}
	}
	if len(asker.questions) != 0 {
		t.Errorf("expected no completion calls, got %v", asker.questions)
	}
}

func TestService_Ask_NoAssistant(t *testing.T) {
	sess := NewSession(testSnapshot(), newMockRepo(), nil, "")
	svc := NewService(sess, zerolog.Nop())
	if _, _, err := svc.Ask(context.Background(), "how many encounters?"); err == nil {
		t.Error("expected error without a configured assistant")
	}
}

func TestRender_Overview(t *testing.T) {
	svc, _, _ := newTestService()
	sel := Selection{
		Page:     PageOverview,
		Statuses: []string{"COMPLETED"},
		Range:    DateRange{Start: day(2024, 1, 1), End: day(2024, 1, 31)},
	}

	v, err := svc.Render(context.Background(), sel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Title != viewTitle || v.Header != "" {
		t.Errorf("unexpected title/header: %q %q", v.Title, v.Header)
	}
	if v.StatusLabel != "'COMPLETED'" {
		t.Errorf("unexpected status label: %q", v.StatusLabel)
	}
	if v.Background != "https://example.org/bg.jpg" {
		t.Errorf("unexpected background: %q", v.Background)
	}
	if len(v.Widgets) != 6 {
		t.Fatalf("expected 6 widgets, got %d", len(v.Widgets))
	}
	for i := 0; i < 4; i++ {
		if v.Widgets[i].Kind != WidgetMetric {
			t.Errorf("widget %d: expected metric, got %s", i, v.Widgets[i].Kind)
		}
	}
	if v.Widgets[1].Value != 755.46 || v.Widgets[3].Value != 94.43 {
		t.Errorf("expected rounded money tiles, got %v and %v", v.Widgets[1].Value, v.Widgets[3].Value)
	}

	daily, ok := v.Widgets[4].Data.([]DailyCount)
	if !ok {
		t.Fatalf("expected daily counts, got %T", v.Widgets[4].Data)
	}
	// The daily trend ignores the status selection: the cancelled and
	// scheduled January encounters are still counted.
	total := 0
	for _, d := range daily {
		total += d.Count
	}
	if total != 4 {
		t.Errorf("expected 4 encounters in January, got %d", total)
	}
	if v.Widgets[5].Kind != WidgetBar || v.Widgets[5].Title != "Disease Stage Distribution" {
		t.Errorf("unexpected stage widget: %+v", v.Widgets[5])
	}
}

func TestRender_EncounterTrends(t *testing.T) {
	svc, _, _ := newTestService()
	v, err := svc.Render(context.Background(), Selection{Page: PageEncounterTrends, Range: svc.Session().Bounds})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Header != string(PageEncounterTrends) {
		t.Errorf("unexpected header: %q", v.Header)
	}
	if len(v.Widgets) != 2 || v.Widgets[0].Kind != WidgetLine || !v.Widgets[0].Markers || v.Widgets[1].Kind != WidgetScatter {
		t.Errorf("unexpected widgets: %+v", v.Widgets)
	}
}

func TestRender_CancerInsights(t *testing.T) {
	svc, repo, _ := newTestService()
	sel := Selection{Page: PageCancerInsights, Statuses: []string{"COMPLETED"}, Cancer: "Breast Cancer"}

	v, err := svc.Render(context.Background(), sel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Cancer != "Breast Cancer" || !reflect.DeepEqual(v.Cancers, repo.cancers) {
		t.Errorf("unexpected cancer selection: %q %v", v.Cancer, v.Cancers)
	}
	if len(v.Widgets) != 3 {
		t.Fatalf("expected 3 widgets, got %d", len(v.Widgets))
	}
	if v.Widgets[1].Title != "BEST HOSPITALS FOR Breast Cancer" || v.Widgets[1].Hole != 0.4 {
		t.Errorf("unexpected pie: %+v", v.Widgets[1])
	}
	if v.Widgets[2].Kind != WidgetTable || v.Widgets[2].Title != "Patients with this Cancer" {
		t.Errorf("unexpected table: %+v", v.Widgets[2])
	}

	if calls := repo.callsTo("CancerStatusDistribution"); len(calls) != 1 || calls[0].Predicate.Empty() {
		t.Errorf("status distribution should honour the status selection: %+v", calls)
	}
}

func TestRender_CancerInsights_DefaultsToFirstCancer(t *testing.T) {
	svc, _, _ := newTestService()
	v, err := svc.Render(context.Background(), Selection{Page: PageCancerInsights})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Cancer != "Breast Cancer" {
		t.Errorf("expected first cancer, got %q", v.Cancer)
	}
}

func TestRender_CancerInsights_NoMatches(t *testing.T) {
	svc, _, _ := newTestService()
	v, err := svc.Render(context.Background(), Selection{Page: PageCancerInsights, Cancer: "Lung Cancer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Widgets) != 3 {
		t.Fatalf("expected 3 widgets, got %d", len(v.Widgets))
	}
	for _, w := range v.Widgets[:2] {
		if rows, ok := w.Data.([]CategoryCount); !ok || len(rows) != 0 {
			t.Errorf("%s: expected empty categories, got %#v", w.Title, w.Data)
		}
	}
	if rows, ok := v.Widgets[2].Data.([]PatientRow); !ok || len(rows) != 0 {
		t.Errorf("expected empty roster, got %#v", v.Widgets[2].Data)
	}
}

func TestRender_CancerInsights_EmptyCatalog(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.cancers = []string{}
	v, err := svc.Render(context.Background(), Selection{Page: PageCancerInsights})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Widgets) != 0 {
		t.Errorf("expected no widgets, got %d", len(v.Widgets))
	}
}

func TestRender_ProviderInsights(t *testing.T) {
	svc, _, _ := newTestService()
	v, err := svc.Render(context.Background(), Selection{Page: PageProviderInsights})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	top := v.Widgets[0].Data.([]CategoryCount)
	want := []CategoryCount{{"City Hospital", 9}, {"Apollo", 5}, {"Fortis", 5}}
	if !reflect.DeepEqual(top, want) {
		t.Errorf("got %v, want %v", top, want)
	}
}

func TestRender_PatientInsights(t *testing.T) {
	svc, _, _ := newTestService()
	v, err := svc.Render(context.Background(), Selection{Page: PagePatientInsights})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Widgets) != 2 || v.Widgets[0].Kind != WidgetPie || v.Widgets[0].Hole != 0.45 {
		t.Fatalf("unexpected widgets: %+v", v.Widgets)
	}
	cities := v.Widgets[1].Data.([]CategoryCount)
	if cities[0].Label != "Delhi" {
		t.Errorf("expected Delhi first, got %v", cities)
	}
}

func TestRender_FinancialMetrics(t *testing.T) {
	svc, _, _ := newTestService()
	v, err := svc.Render(context.Background(), Selection{Page: PageFinancialMetrics})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Widgets) != 2 || v.Widgets[0].Kind != WidgetArea || v.Widgets[1].Color != "disease_stage" {
		t.Errorf("unexpected widgets: %+v", v.Widgets)
	}
}

func TestRender_AISearch(t *testing.T) {
	svc, _, asker := newTestService()

	v, err := svc.Render(context.Background(), Selection{Page: PageAISearch})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Widgets) != 0 || len(asker.questions) != 0 {
		t.Errorf("expected nothing rendered and no call, got %d widgets, %d calls", len(v.Widgets), len(asker.questions))
	}

	v, err = svc.Render(context.Background(), Selection{Page: PageAISearch, Question: "How many encounters?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Widgets) != 1 || v.Widgets[0].Value != "There were 8 encounters." {
		t.Errorf("unexpected answer widget: %+v", v.Widgets)
	}
}

func TestRender_AISearch_Error(t *testing.T) {
	svc, _, asker := newTestService()
	asker.err = errors.New("completion failed")
	if _, err := svc.Render(context.Background(), Selection{Page: PageAISearch, Question: "q"}); err == nil {
		t.Error("expected completion error to surface")
	}
}

func TestRender_UnknownPage(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Render(context.Background(), Selection{Page: "Billing"}); !errors.Is(err, ErrUnknownPage) {
		t.Errorf("expected ErrUnknownPage, got %v", err)
	}
}

func TestRender_QueryFailureAbortsPage(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.err = errWarehouse
	for _, p := range Pages[:len(Pages)-1] {
		if _, err := svc.Render(context.Background(), Selection{Page: p}); !errors.Is(err, errWarehouse) {
			t.Errorf("%s: expected warehouse error, got %v", p, err)
		}
	}
}

func TestRender_Idempotent(t *testing.T) {
	svc, _, _ := newTestService()
	for _, p := range Pages {
		sel := Selection{Page: p, Statuses: []string{"COMPLETED"}, Range: svc.Session().Bounds, Question: "q"}
		first, err := svc.Render(context.Background(), sel)
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		second, err := svc.Render(context.Background(), sel)
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("%s: rendering the same selection twice differed", p)
		}
	}
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		in   string
		want Page
	}{
		{"Overview", PageOverview},
		{"encounter-trends", PageEncounterTrends},
		{"AI SEARCH ASSISTANT", PageAISearch},
		{" financial-metrics ", PageFinancialMetrics},
	}
	for _, tt := range tests {
		got, err := ParsePage(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParsePage(%q) = %q, %v", tt.in, got, err)
		}
	}
	if _, err := ParsePage("billing"); !errors.Is(err, ErrUnknownPage) {
		t.Errorf("expected ErrUnknownPage, got %v", err)
	}
}

func TestRender_LogsLiteralStatusFilter(t *testing.T) {
	var buf bytes.Buffer
	repo := newMockRepo()
	sess := NewSession(testSnapshot(), repo, &mockAsker{}, "")
	svc := NewService(sess, zerolog.New(&buf).Level(zerolog.DebugLevel))

	sel := Selection{Page: PageOverview, Statuses: []string{"COMPLETED"}, Range: sess.Bounds}
	if _, err := svc.Render(context.Background(), sel); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"status_filter":"AND ENCOUNTER_STATUS IN ('COMPLETED')"`) {
		t.Errorf("expected the literal filter in the render log, got %s", buf.String())
	}
	for _, c := range repo.callsTo("CountEncounters") {
		if c.Predicate.Label() != "'COMPLETED'" {
			t.Errorf("unexpected predicate forwarded: %q", c.Predicate.Label())
		}
	}
}
