package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/oncology/dashboard/internal/warehouse"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// testEncounters spans 2023-12-31 .. 2024-02-02 with one undated row.
func testEncounters() *warehouse.Table {
	return warehouse.NewTable(warehouse.TableEncounters,
		[]string{"ENCOUNTER_ID", "PATIENT_ID", "SERVICE_DATE", "ENCOUNTER_STATUS", "DISEASE_STAGE", "BILLED_AMOUNT"},
		[][]any{
			{"E1", "P1", day(2023, 12, 31), "COMPLETED", "II", 100.0},
			{"E2", "P2", day(2024, 1, 1), "COMPLETED", "I", 200.0},
			{"E3", "P1", time.Date(2024, 1, 1, 16, 30, 0, 0, time.UTC), "CANCELLED", "II", 50.0},
			{"E4", "P3", day(2024, 1, 15), "SCHEDULED", "III", 75.0},
			{"E5", "P2", day(2024, 1, 31), "COMPLETED", "IV", 300.0},
			{"E6", "P4", day(2024, 2, 1), "COMPLETED", "I", 20.0},
			{"E7", "P5", nil, "COMPLETED", "II", 10.0},
			{"E8", "P5", day(2024, 2, 2), "CANCELLED", "III", 0.0},
		})
}

func testSnapshot() *warehouse.Snapshot {
	return &warehouse.Snapshot{
		Providers:  warehouse.NewTable(warehouse.TableProvider, []string{"PROVIDER_ID", "PROVIDER_NAME"}, nil),
		Patients:   warehouse.NewTable(warehouse.TablePatient, []string{"PATIENT_ID"}, nil),
		Cancers:    warehouse.NewTable(warehouse.TableCancer, []string{"CANCER_CODE", "CANCER_NAME"}, nil),
		Encounters: testEncounters(),
	}
}

// -- Mock Repository --

type repoCall struct {
	Method    string
	Cancer    string
	Predicate StatusPredicate
}

type mockRepo struct {
	mu    sync.Mutex
	calls []repoCall
	err   error

	statuses  []string
	cancers   []string
	stages    []CategoryCount
	providers []CategoryCount
	cities    []CategoryCount
	genders   []CategoryCount
	byCancer  map[string][]CategoryCount
	provByCan map[string][]CategoryCount
	roster    map[string][]PatientRow
	series    []AmountPoint
	points    []EncounterPoint
}

func newMockRepo() *mockRepo {
	breast := "Breast Cancer"
	return &mockRepo{
		statuses: []string{"CANCELLED", "COMPLETED", "SCHEDULED"},
		cancers:  []string{breast, "Lung Cancer"},
		stages:   []CategoryCount{{"I", 2}, {"II", 3}, {"III", 2}, {"IV", 1}},
		providers: []CategoryCount{
			{"Apollo", 5}, {"City Hospital", 9}, {"Fortis", 5},
		},
		cities:  []CategoryCount{{"Chennai", 3}, {"Delhi", 7}},
		genders: []CategoryCount{{"F", 4}, {"M", 3}},
		byCancer: map[string][]CategoryCount{
			breast: {{"CANCELLED", 1}, {"COMPLETED", 4}},
		},
		provByCan: map[string][]CategoryCount{
			breast: {{"Apollo", 3}, {"Fortis", 2}},
		},
		roster: map[string][]PatientRow{
			breast: {{Name: "Asha Rao", Gender: "F", City: "Pune", State: "MH", Country: "India", PayerID: "PAY1"}},
		},
		series: []AmountPoint{{Amount: 100}},
		points: []EncounterPoint{{Status: "COMPLETED", Stage: "II"}},
	}
}

func (m *mockRepo) record(method, cancer string, p StatusPredicate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, repoCall{Method: method, Cancer: cancer, Predicate: p})
	return m.err
}

func (m *mockRepo) callsTo(method string) []repoCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repoCall
	for _, c := range m.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (m *mockRepo) CountEncounters(_ context.Context, p StatusPredicate) (int64, error) {
	if err := m.record("CountEncounters", "", p); err != nil {
		return 0, err
	}
	if p.Empty() {
		return 8, nil
	}
	return int64(len(p.Statuses())), nil
}

func (m *mockRepo) SumBilled(_ context.Context, p StatusPredicate) (float64, error) {
	if err := m.record("SumBilled", "", p); err != nil {
		return 0, err
	}
	return 755.456, nil
}

func (m *mockRepo) CountDistinctPatients(_ context.Context) (int64, error) {
	return 5, m.record("CountDistinctPatients", "", StatusPredicate{})
}

func (m *mockRepo) AvgBilled(_ context.Context) (float64, error) {
	return 94.4321, m.record("AvgBilled", "", StatusPredicate{})
}

func (m *mockRepo) StageDistribution(_ context.Context) ([]CategoryCount, error) {
	return m.stages, m.record("StageDistribution", "", StatusPredicate{})
}

func (m *mockRepo) EncounterStatuses(_ context.Context) ([]string, error) {
	return m.statuses, m.record("EncounterStatuses", "", StatusPredicate{})
}

func (m *mockRepo) CancerNames(_ context.Context) ([]string, error) {
	return m.cancers, m.record("CancerNames", "", StatusPredicate{})
}

func (m *mockRepo) CancerStatusDistribution(_ context.Context, cancer string, p StatusPredicate) ([]CategoryCount, error) {
	if err := m.record("CancerStatusDistribution", cancer, p); err != nil {
		return nil, err
	}
	if rows, ok := m.byCancer[cancer]; ok {
		return rows, nil
	}
	return []CategoryCount{}, nil
}

func (m *mockRepo) CancerProviderDistribution(_ context.Context, cancer string) ([]CategoryCount, error) {
	if err := m.record("CancerProviderDistribution", cancer, StatusPredicate{}); err != nil {
		return nil, err
	}
	if rows, ok := m.provByCan[cancer]; ok {
		return rows, nil
	}
	return []CategoryCount{}, nil
}

func (m *mockRepo) CancerPatients(_ context.Context, cancer string) ([]PatientRow, error) {
	if err := m.record("CancerPatients", cancer, StatusPredicate{}); err != nil {
		return nil, err
	}
	if rows, ok := m.roster[cancer]; ok {
		return rows, nil
	}
	return []PatientRow{}, nil
}

func (m *mockRepo) ProviderEncounterCounts(_ context.Context) ([]CategoryCount, error) {
	return m.providers, m.record("ProviderEncounterCounts", "", StatusPredicate{})
}

func (m *mockRepo) GenderDistribution(_ context.Context) ([]CategoryCount, error) {
	return m.genders, m.record("GenderDistribution", "", StatusPredicate{})
}

func (m *mockRepo) CityCounts(_ context.Context) ([]CategoryCount, error) {
	return m.cities, m.record("CityCounts", "", StatusPredicate{})
}

func (m *mockRepo) BilledByServiceDate(_ context.Context) ([]AmountPoint, error) {
	return m.series, m.record("BilledByServiceDate", "", StatusPredicate{})
}

func (m *mockRepo) EncounterPoints(_ context.Context) ([]EncounterPoint, error) {
	return m.points, m.record("EncounterPoints", "", StatusPredicate{})
}

// -- Mock Asker --

type mockAsker struct {
	questions []string
	answer    string
	err       error
}

func (a *mockAsker) Ask(_ context.Context, question string) (string, bool, error) {
	if question == "" {
		return "", false, nil
	}
	a.questions = append(a.questions, question)
	if a.err != nil {
		return "", true, a.err
	}
	return a.answer, true, nil
}

func newTestService() (*Service, *mockRepo, *mockAsker) {
	repo := newMockRepo()
	asker := &mockAsker{answer: "There were 8 encounters."}
	sess := NewSession(testSnapshot(), repo, asker, "https://example.org/bg.jpg")
	return NewService(sess, zerolog.Nop()), repo, asker
}

var errWarehouse = fmt.Errorf("SQL compilation error: unexpected 'AND'")
