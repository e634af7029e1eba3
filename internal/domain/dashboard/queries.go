package dashboard

import (
	"fmt"

	"github.com/oncology/dashboard/internal/warehouse"
)

// Query is one catalog entry ready to execute: SQL text with $n
// placeholders and the values bound to them.
type Query struct {
	Name string
	SQL  string
	Args []any
}

// Catalog builds the fixed set of KPI queries. User-influenced values
// (statuses, cancer name) are always bound, never spliced into the text.
type Catalog struct {
	schema string
}

// NewCatalog returns a catalog whose table references are qualified with
// schema when it is non-empty.
func NewCatalog(schema string) Catalog {
	return Catalog{schema: schema}
}

func (c Catalog) table(name string) string {
	if c.schema == "" {
		return name
	}
	return c.schema + "." + name
}

func (c Catalog) encounters() string { return c.table(warehouse.TableEncounters) }
func (c Catalog) cancers() string    { return c.table(warehouse.TableCancer) }
func (c Catalog) providers() string  { return c.table(warehouse.TableProvider) }
func (c Catalog) patients() string   { return c.table(warehouse.TablePatient) }

// withStatus appends the status fragment after a WHERE clause whose own
// placeholders end just before next.
func withStatus(sql string, p StatusPredicate, next int, args ...any) (string, []any) {
	frag, statusArgs := p.SQL(next)
	if frag != "" {
		sql += " " + frag
	}
	return sql, append(args, statusArgs...)
}

// TotalEncounters counts encounters, honouring the status selection.
func (c Catalog) TotalEncounters(p StatusPredicate) Query {
	sql, args := withStatus(fmt.Sprintf("SELECT COUNT(*) AS T FROM %s WHERE 1=1", c.encounters()), p, 1)
	return Query{Name: "total_encounters", SQL: sql, Args: args}
}

// TotalBilled sums billed amounts, honouring the status selection.
func (c Catalog) TotalBilled(p StatusPredicate) Query {
	sql, args := withStatus(fmt.Sprintf("SELECT COALESCE(SUM(BILLED_AMOUNT), 0) AS A FROM %s WHERE 1=1", c.encounters()), p, 1)
	return Query{Name: "total_billed", SQL: sql, Args: args}
}

// UniquePatients ignores the status selection.
func (c Catalog) UniquePatients() Query {
	return Query{
		Name: "unique_patients",
		SQL:  fmt.Sprintf("SELECT COUNT(DISTINCT PATIENT_ID) AS C FROM %s", c.encounters()),
	}
}

// AvgBilled ignores the status selection.
func (c Catalog) AvgBilled() Query {
	return Query{
		Name: "avg_billed",
		SQL:  fmt.Sprintf("SELECT COALESCE(AVG(BILLED_AMOUNT), 0) AS A FROM %s", c.encounters()),
	}
}

func (c Catalog) StageDistribution() Query {
	return Query{
		Name: "stage_distribution",
		SQL: fmt.Sprintf(`SELECT DISEASE_STAGE, COUNT(*) AS C
		FROM %s
		GROUP BY DISEASE_STAGE
		ORDER BY DISEASE_STAGE`, c.encounters()),
	}
}

func (c Catalog) EncounterStatuses() Query {
	return Query{
		Name: "encounter_statuses",
		SQL:  fmt.Sprintf("SELECT DISTINCT ENCOUNTER_STATUS FROM %s ORDER BY ENCOUNTER_STATUS", c.encounters()),
	}
}

func (c Catalog) CancerNames() Query {
	return Query{
		Name: "cancer_names",
		SQL:  fmt.Sprintf("SELECT DISTINCT CANCER_NAME FROM %s ORDER BY CANCER_NAME", c.cancers()),
	}
}

// CancerStatusDistribution honours the status selection.
func (c Catalog) CancerStatusDistribution(cancer string, p StatusPredicate) Query {
	base := fmt.Sprintf(`SELECT E.ENCOUNTER_STATUS, COUNT(*) AS TOTAL
		FROM %s E
		JOIN %s C ON C.CANCER_CODE = E.CANCER_CODE
		WHERE C.CANCER_NAME = $1`, c.encounters(), c.cancers())
	sql, args := withStatus(base, p, 2, cancer)
	sql += `
		GROUP BY E.ENCOUNTER_STATUS
		ORDER BY E.ENCOUNTER_STATUS`
	return Query{Name: "cancer_status_distribution", SQL: sql, Args: args}
}

// CancerProviderDistribution ignores the status selection.
func (c Catalog) CancerProviderDistribution(cancer string) Query {
	return Query{
		Name: "cancer_provider_distribution",
		SQL: fmt.Sprintf(`SELECT P.PROVIDER_NAME, COUNT(*) AS TOTAL
		FROM %s P
		JOIN %s E ON P.PROVIDER_ID = E.PROVIDER_ID
		JOIN %s C ON C.CANCER_CODE = E.CANCER_CODE
		WHERE C.CANCER_NAME = $1
		GROUP BY P.PROVIDER_NAME
		ORDER BY P.PROVIDER_NAME`, c.providers(), c.encounters(), c.cancers()),
		Args: []any{cancer},
	}
}

// CancerPatients is the roster for one cancer, unrestricted by status or
// date. A patient appears once per matching encounter.
func (c Catalog) CancerPatients(cancer string) Query {
	return Query{
		Name: "cancer_patients",
		SQL: fmt.Sprintf(`SELECT CONCAT(P.FIRST_NAME, ' ', P.LAST_NAME) AS NAME,
			P.GENDER, P.DOB, P.CITY, P.STATE, P.COUNTRY, P.PAYER_ID
		FROM %s P
		JOIN %s E ON P.PATIENT_ID = E.PATIENT_ID
		JOIN %s C ON C.CANCER_CODE = E.CANCER_CODE
		WHERE C.CANCER_NAME = $1
		ORDER BY NAME`, c.patients(), c.encounters(), c.cancers()),
		Args: []any{cancer},
	}
}

// ProviderEncounterCounts covers the full dataset; truncation to the
// leaderboard size happens after the fetch.
func (c Catalog) ProviderEncounterCounts() Query {
	return Query{
		Name: "provider_encounter_counts",
		SQL: fmt.Sprintf(`SELECT P.PROVIDER_NAME, COUNT(*) AS TOTAL
		FROM %s P
		JOIN %s E ON P.PROVIDER_ID = E.PROVIDER_ID
		GROUP BY P.PROVIDER_NAME
		ORDER BY P.PROVIDER_NAME`, c.providers(), c.encounters()),
	}
}

func (c Catalog) GenderDistribution() Query {
	return Query{
		Name: "gender_distribution",
		SQL:  fmt.Sprintf("SELECT GENDER, COUNT(*) AS C FROM %s GROUP BY GENDER ORDER BY GENDER", c.patients()),
	}
}

func (c Catalog) CityCounts() Query {
	return Query{
		Name: "city_counts",
		SQL:  fmt.Sprintf("SELECT CITY, COUNT(*) AS C FROM %s GROUP BY CITY ORDER BY CITY", c.patients()),
	}
}

func (c Catalog) BilledByServiceDate() Query {
	return Query{
		Name: "billed_by_service_date",
		SQL: fmt.Sprintf(`SELECT SERVICE_DATE, SUM(BILLED_AMOUNT) AS AMT
		FROM %s
		GROUP BY SERVICE_DATE
		ORDER BY SERVICE_DATE`, c.encounters()),
	}
}

// EncounterPoints projects every encounter for the scatter charts.
func (c Catalog) EncounterPoints() Query {
	return Query{
		Name: "encounter_points",
		SQL: fmt.Sprintf(`SELECT BILLED_AMOUNT, SERVICE_DATE, ENCOUNTER_STATUS, DISEASE_STAGE
		FROM %s
		ORDER BY ENCOUNTER_ID`, c.encounters()),
	}
}
