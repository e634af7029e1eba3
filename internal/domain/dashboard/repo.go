package dashboard

import (
	"context"
)

// Repository executes the KPI catalog against the warehouse. Every call
// goes to the warehouse; nothing is cached between calls.
type Repository interface {
	CountEncounters(ctx context.Context, p StatusPredicate) (int64, error)
	SumBilled(ctx context.Context, p StatusPredicate) (float64, error)
	CountDistinctPatients(ctx context.Context) (int64, error)
	AvgBilled(ctx context.Context) (float64, error)
	StageDistribution(ctx context.Context) ([]CategoryCount, error)

	EncounterStatuses(ctx context.Context) ([]string, error)
	CancerNames(ctx context.Context) ([]string, error)

	CancerStatusDistribution(ctx context.Context, cancer string, p StatusPredicate) ([]CategoryCount, error)
	CancerProviderDistribution(ctx context.Context, cancer string) ([]CategoryCount, error)
	CancerPatients(ctx context.Context, cancer string) ([]PatientRow, error)

	ProviderEncounterCounts(ctx context.Context) ([]CategoryCount, error)
	GenderDistribution(ctx context.Context) ([]CategoryCount, error)
	CityCounts(ctx context.Context) ([]CategoryCount, error)

	BilledByServiceDate(ctx context.Context) ([]AmountPoint, error)
	EncounterPoints(ctx context.Context) ([]EncounterPoint, error)
}
