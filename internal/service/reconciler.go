package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lyprox-dashboard-server/internal/domain"
)

// Reconciler merges the potentially partial or contradicting diagnostic
// observations of each patient into one consensus involvement value per
// lymph node level and side, and narrows the cohort against the requested
// target pattern.
type Reconciler struct {
	store domain.PatientStore
	log   *logrus.Logger
}

// NewReconciler creates a new reconciler reading diagnoses from the given
// store.
func NewReconciler(store domain.PatientStore, logger *logrus.Logger) *Reconciler {
	return &Reconciler{store: store, log: logger}
}

// Reconcile fetches the cohort's diagnoses for the selected modalities,
// drops patients without any qualifying observation, computes the per-side
// consensus involvement under the query's combination policy, and excludes
// patients whose consensus mismatches the target pattern.
//
// Pattern exclusion runs per side, ipsi first: a patient excluded during the
// ipsi pass stays excluded even when the contra side matches. The returned
// consensus structure keeps entries for excluded patients; downstream stages
// iterate the cohort, never the structure.
func (r *Reconciler) Reconcile(ctx context.Context, cohort []domain.Patient, q Query) ([]domain.Patient, domain.CombinedInvolvement, error) {
	start := time.Now()

	if q.Combine != CombineOR && q.Combine != CombineAND {
		err := domain.NewInvalidConfiguration(
			"modality_combine", "can only combine modalities using OR or AND (logical)",
		)
		r.log.WithField("policy", string(q.Combine)).Error(err.Message)
		return nil, nil, err
	}

	ids := make([]int64, len(cohort))
	for i, p := range cohort {
		ids[i] = p.ID
	}

	diagnoses, err := r.store.ListDiagnoses(ctx, ids, q.Modalities)
	if err != nil {
		return nil, nil, err
	}

	// Stack each patient's qualifying observations per side: rows are
	// modality observations, columns are lymph node levels.
	tables := map[domain.Side]map[int64][]domain.Involvement{
		domain.Ipsi:   {},
		domain.Contra: {},
	}
	for _, d := range diagnoses {
		tables[d.Side][d.PatientID] = append(tables[d.Side][d.PatientID], d.Levels)
	}

	// Patients without a single qualifying observation on either side leave
	// the cohort.
	withDiagnoses := make([]domain.Patient, 0, len(cohort))
	for _, p := range cohort {
		if len(tables[domain.Ipsi][p.ID]) > 0 || len(tables[domain.Contra][p.ID]) > 0 {
			withDiagnoses = append(withDiagnoses, p)
		}
	}

	combined := domain.NewCombinedInvolvement()
	excluded := make(map[int64]bool)

	for _, side := range domain.Sides {
		target := q.Pattern[side]
		for _, p := range withDiagnoses {
			rows := tables[side][p.ID]
			if len(rows) == 0 {
				continue
			}

			consensus := combineRows(rows, q.Combine)
			combined[side][p.ID] = consensus

			if !matchesPattern(consensus, target) {
				excluded[p.ID] = true
			}
		}
	}

	result := make([]domain.Patient, 0, len(withDiagnoses))
	for _, p := range withDiagnoses {
		if !excluded[p.ID] {
			result = append(result, p)
		}
	}

	r.log.WithFields(logrus.Fields{
		"modalities":  q.Modalities,
		"policy":      string(q.Combine),
		"cohort_size": len(result),
		"excluded":    len(excluded),
		"elapsed":     time.Since(start),
	}).Info("Diagnosis reconciliation done")

	return result, combined, nil
}

// combineRows reduces the stacked observations column by column into one
// consensus involvement row.
func combineRows(rows []domain.Involvement, policy CombinePolicy) domain.Involvement {
	consensus := domain.NewInvolvement()
	col := make([]domain.Ternary, 0, len(rows))
	for _, lnl := range domain.LNLs {
		col = col[:0]
		for _, row := range rows {
			col = append(col, row[lnl])
		}
		consensus[lnl] = combineColumn(col, policy)
	}
	return consensus
}

// combineColumn applies the three-valued vote to one column of
// observations. Unknown observations are absent from the vote, never treated
// as negative, and a column of only unknowns yields unknown regardless of
// the policy.
func combineColumn(col []domain.Ternary, policy CombinePolicy) domain.Ternary {
	known, positive, negative := 0, 0, 0
	for _, v := range col {
		switch v {
		case domain.Positive:
			known++
			positive++
		case domain.Negative:
			known++
			negative++
		}
	}

	if known == 0 {
		return domain.Unknown
	}

	switch policy {
	case CombineAND:
		if negative > 0 {
			return domain.Negative
		}
		return domain.Positive
	default: // CombineOR
		if positive > 0 {
			return domain.Positive
		}
		return domain.Negative
	}
}

// matchesPattern compares a consensus row against the target at every level
// where the target specifies a definite value. An unknown consensus never
// equals a definite target.
func matchesPattern(consensus, target domain.Involvement) bool {
	for _, lnl := range domain.LNLs {
		want := target[lnl]
		if !want.Known() {
			continue
		}
		if consensus[lnl] != want {
			return false
		}
	}
	return true
}
