package service

import "github.com/lyprox-dashboard-server/internal/domain"

// FilterNStatus narrows the cohort to N+ or N0 patients. A patient is N+
// when any lymph node level on either side has a positive consensus value;
// a missing side entry counts as no involvement for this classification. A
// Positive target keeps N+ patients, a Negative target keeps N0 patients,
// and an Unknown target passes the cohort through unchanged.
func FilterNStatus(cohort []domain.Patient, combined domain.CombinedInvolvement, target domain.Ternary) []domain.Patient {
	if !target.Known() {
		return cohort
	}

	wantInvolved := target == domain.Positive
	out := make([]domain.Patient, 0, len(cohort))
	for _, p := range cohort {
		if combined.HasInvolvement(p.ID) == wantInvolved {
			out = append(out, p)
		}
	}
	return out
}
