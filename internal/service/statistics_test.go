package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyprox-dashboard-server/internal/domain"
)

func TestAggregator_EmptyCohort(t *testing.T) {
	a := NewAggregator(silentLogger())
	institutions := []domain.Institution{{ID: 1}, {ID: 2}}

	stats := a.Aggregate(nil, domain.NewCombinedInvolvement(), institutions)

	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, []int{0, 0}, stats.Institutions)
	assert.Equal(t, [3]int{}, stats.NicotineAbuse)
	assert.Equal(t, [3]int{}, stats.NStatus)
	assert.Equal(t, []int{0, 0, 0, 0}, stats.TStages)
	assert.Equal(t, make([]int, len(domain.SubsiteGroups)), stats.Subsites)

	for _, lnl := range domain.LNLs {
		assert.Equal(t, [3]int{}, stats.Ipsi[lnl], "ipsi %s", lnl)
		assert.Equal(t, [3]int{}, stats.Contra[lnl], "contra %s", lnl)
	}
}

func TestAggregator_Counts(t *testing.T) {
	a := NewAggregator(silentLogger())
	institutions := []domain.Institution{{ID: 10}, {ID: 20}}

	cohort := []domain.Patient{
		{
			ID:            1,
			NicotineAbuse: domain.Positive,
			HPVStatus:     domain.Negative,
			InstitutionID: 10,
			Tumors: []domain.Tumor{
				{Subsite: "C01", TStage: 2, Central: domain.Negative, Extension: domain.Positive},
			},
		},
		{
			ID:            2,
			NicotineAbuse: domain.Unknown,
			HPVStatus:     domain.Positive,
			InstitutionID: 20,
			Tumors: []domain.Tumor{
				{Subsite: "C32.0", TStage: 4, Central: domain.Unknown, Extension: domain.Negative},
			},
		},
	}

	combined := domain.NewCombinedInvolvement()
	combined[domain.Ipsi][1] = involvementWith(map[string]domain.Ternary{"II": domain.Positive, "III": domain.Negative})
	combined[domain.Ipsi][2] = involvementWith(map[string]domain.Ternary{"II": domain.Negative})

	stats := a.Aggregate(cohort, combined, institutions)

	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, []int{1, 1}, stats.Institutions)
	assert.Equal(t, [3]int{1, 1, 0}, stats.NicotineAbuse)
	assert.Equal(t, [3]int{0, 1, 1}, stats.HPVStatus)
	assert.Equal(t, [3]int{0, 1, 1}, stats.NStatus, "patient 1 is N+, patient 2 is N0")
	assert.Equal(t, [3]int{1, 0, 1}, stats.Central)
	assert.Equal(t, [3]int{0, 1, 1}, stats.Extension)
	assert.Equal(t, []int{0, 1, 0, 1}, stats.TStages)

	assert.Equal(t, [3]int{0, 1, 1}, stats.Ipsi["II"])
	assert.Equal(t, [3]int{1, 0, 1}, stats.Ipsi["III"])
	assert.Equal(t, [3]int{2, 0, 0}, stats.Ipsi["IV"], "unreported levels count as unknown")
	assert.Equal(t, [3]int{}, stats.Contra["II"], "no contra entries at all")

	// Subsite group vector: one base tumor, one glottis tumor.
	for i, g := range domain.SubsiteGroups {
		switch g.Name {
		case "base", "glottis":
			assert.Equal(t, 1, stats.Subsites[i], "group %s", g.Name)
		default:
			assert.Equal(t, 0, stats.Subsites[i], "group %s", g.Name)
		}
	}
}

func TestAggregator_TernaryCountsSumToTotal(t *testing.T) {
	a := NewAggregator(silentLogger())
	cohort := testCohort()
	stats := a.Aggregate(cohort, domain.NewCombinedInvolvement(), nil)

	for name, vec := range map[string][3]int{
		"nicotine_abuse":  stats.NicotineAbuse,
		"hpv_status":      stats.HPVStatus,
		"neck_dissection": stats.NeckDissection,
		"n_status":        stats.NStatus,
		"central":         stats.Central,
		"extension":       stats.Extension,
	} {
		sum := vec[0] + vec[1] + vec[2]
		assert.Equal(t, stats.Total, sum, "%s counts must sum to the cohort size", name)
	}
}

func TestAggregator_PatientWithoutTumor(t *testing.T) {
	a := NewAggregator(silentLogger())
	cohort := []domain.Patient{{ID: 1, NicotineAbuse: domain.Positive}}

	stats := a.Aggregate(cohort, domain.NewCombinedInvolvement(), nil)

	assert.Equal(t, 1, stats.Total, "the patient still counts overall")
	assert.Equal(t, []int{0, 0, 0, 0}, stats.TStages)
	assert.Equal(t, [3]int{0, 1, 0}, stats.NicotineAbuse)
}

func TestAggregator_TStageOutOfRange(t *testing.T) {
	a := NewAggregator(silentLogger())
	cohort := []domain.Patient{
		{ID: 1, Tumors: []domain.Tumor{{Subsite: "C01", TStage: 0}}},
	}

	stats := a.Aggregate(cohort, domain.NewCombinedInvolvement(), nil)

	assert.Equal(t, []int{0, 0, 0, 0}, stats.TStages)
	assert.Equal(t, 1, stats.Subsites[0], "subsite count is unaffected")
}

func TestStatistics_ToMap(t *testing.T) {
	a := NewAggregator(silentLogger())
	stats := a.Aggregate(nil, domain.NewCombinedInvolvement(), nil)

	m := stats.ToMap()

	require.Contains(t, m, "total")
	require.Contains(t, m, "t_stages")
	require.Contains(t, m, "n_status")
	for _, lnl := range domain.LNLs {
		assert.Contains(t, m, fmt.Sprintf("ipsi_%s", lnl))
		assert.Contains(t, m, fmt.Sprintf("contra_%s", lnl))
	}
	assert.NotContains(t, m, "ipsi", "sides are flattened into per-level keys")
}
