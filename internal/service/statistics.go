package service

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lyprox-dashboard-server/internal/domain"
)

// Statistics holds every cross-tabulated count the dashboard displays. Each
// length-3 vector is a sum of one-hot ternary encodings: index 0 counts
// unknown, index 1 positive, index 2 negative. No normalization happens
// here; percentage display is a presentation concern.
type Statistics struct {
	Total int `json:"total"`

	// Institutions counts patients per institution, in institution ID order.
	Institutions []int `json:"institutions"`

	NicotineAbuse  [3]int `json:"nicotine_abuse"`
	HPVStatus      [3]int `json:"hpv_status"`
	NeckDissection [3]int `json:"neck_dissection"`
	NStatus        [3]int `json:"n_status"`

	Central   [3]int `json:"central"`
	Extension [3]int `json:"extension"`

	// TStages is a histogram over the recognized T-stage values.
	TStages []int `json:"t_stages"`

	// Subsites sums the subsite-group vectors of every primary tumor.
	Subsites []int `json:"subsites"`

	// Ipsi and Contra hold the one-hot-summed consensus involvement per
	// lymph node level. Patients without an entry on a side are skipped for
	// that side, not counted as unknown.
	Ipsi   map[string][3]int `json:"ipsi"`
	Contra map[string][3]int `json:"contra"`
}

// ToMap flattens the statistics into the flat key to numeric-array mapping
// consumed by the HTML template and the AJAX frontend. Involvement counts
// appear under side_level keys such as "ipsi_II".
func (s *Statistics) ToMap() map[string]any {
	m := map[string]any{
		"total":           s.Total,
		"institutions":    s.Institutions,
		"nicotine_abuse":  s.NicotineAbuse,
		"hpv_status":      s.HPVStatus,
		"neck_dissection": s.NeckDissection,
		"n_status":        s.NStatus,
		"central":         s.Central,
		"extension":       s.Extension,
		"t_stages":        s.TStages,
		"subsites":        s.Subsites,
	}
	for _, lnl := range domain.LNLs {
		m[fmt.Sprintf("%s_%s", domain.Ipsi, lnl)] = s.Ipsi[lnl]
		m[fmt.Sprintf("%s_%s", domain.Contra, lnl)] = s.Contra[lnl]
	}
	return m
}

// Aggregator computes dashboard statistics from a queried cohort.
type Aggregator struct {
	log        *logrus.Logger
	classifier *domain.SubsiteClassifier
}

// NewAggregator creates a new statistics aggregator over the configured
// subsite groups.
func NewAggregator(logger *logrus.Logger) *Aggregator {
	return &Aggregator{
		log:        logger,
		classifier: domain.NewSubsiteClassifier(domain.SubsiteGroups, logger),
	}
}

// Aggregate counts how often the cohort's patients show each characteristic.
// An empty cohort yields all-zero counts of the correct shapes. Patients
// without a primary tumor or with a T-stage outside the recognized range
// are data-quality problems: tumor counts skip them with a warning,
// everything else still counts them.
func (a *Aggregator) Aggregate(cohort []domain.Patient, combined domain.CombinedInvolvement, institutions []domain.Institution) *Statistics {
	start := time.Now()

	stats := &Statistics{
		Total:        len(cohort),
		Institutions: make([]int, len(institutions)),
		TStages:      make([]int, len(domain.TStages)),
		Subsites:     make([]int, len(domain.SubsiteGroups)),
		Ipsi:         make(map[string][3]int, len(domain.LNLs)),
		Contra:       make(map[string][3]int, len(domain.LNLs)),
	}
	for _, lnl := range domain.LNLs {
		stats.Ipsi[lnl] = [3]int{}
		stats.Contra[lnl] = [3]int{}
	}

	instIndex := make(map[int64]int, len(institutions))
	for i, inst := range institutions {
		instIndex[inst.ID] = i
	}

	for i := range cohort {
		p := &cohort[i]

		if idx, ok := instIndex[p.InstitutionID]; ok {
			stats.Institutions[idx]++
		}

		addEncoded(&stats.NicotineAbuse, p.NicotineAbuse)
		addEncoded(&stats.HPVStatus, p.HPVStatus)
		addEncoded(&stats.NeckDissection, p.NeckDissection)

		a.aggregateTumor(stats, p)

		if combined.HasInvolvement(p.ID) {
			addEncoded(&stats.NStatus, domain.Positive)
		} else {
			addEncoded(&stats.NStatus, domain.Negative)
		}

		a.aggregateInvolvement(stats.Ipsi, combined[domain.Ipsi][p.ID])
		a.aggregateInvolvement(stats.Contra, combined[domain.Contra][p.ID])
	}

	a.log.WithFields(logrus.Fields{
		"total":   stats.Total,
		"elapsed": time.Since(start),
	}).Info("Statistics aggregation done")

	return stats
}

func (a *Aggregator) aggregateTumor(stats *Statistics, p *domain.Patient) {
	tumor := p.PrimaryTumor()
	if tumor == nil {
		a.log.WithField("patient_id", p.ID).Warn("Patient has no recorded tumor, skipping tumor counts")
		return
	}

	groups := a.classifier.Classify(tumor.Subsite)
	for i, v := range groups {
		stats.Subsites[i] += v
	}

	counted := false
	for i, stage := range domain.TStages {
		if tumor.TStage == stage {
			stats.TStages[i]++
			counted = true
			break
		}
	}
	if !counted {
		a.log.WithFields(logrus.Fields{
			"patient_id": p.ID,
			"t_stage":    tumor.TStage,
		}).Warn("Tumor T-stage outside recognized range, skipping histogram count")
	}

	addEncoded(&stats.Central, tumor.Central)
	addEncoded(&stats.Extension, tumor.Extension)
}

// aggregateInvolvement adds the one-hot encoding of every level of one
// side's consensus row. A nil row means the patient had no qualifying
// observation on that side and is skipped entirely.
func (a *Aggregator) aggregateInvolvement(counts map[string][3]int, inv domain.Involvement) {
	if inv == nil {
		return
	}
	for _, lnl := range domain.LNLs {
		c := counts[lnl]
		enc := inv[lnl].Encode()
		for i := range c {
			c[i] += enc[i]
		}
		counts[lnl] = c
	}
}

func addEncoded(counts *[3]int, t domain.Ternary) {
	enc := t.Encode()
	for i := range counts {
		counts[i] += enc[i]
	}
}
