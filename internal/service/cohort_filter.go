package service

import "github.com/lyprox-dashboard-server/internal/domain"

// FilterCohort narrows the cohort by the scalar patient and tumor criteria
// of the query. Filtering is conjunctive across all specified criteria,
// preserves the input order, and is idempotent. Diagnosis-specific criteria
// are not evaluated here.
//
// A tumor criterion keeps a patient when any of their tumors satisfies it;
// each tumor criterion is evaluated independently of the others.
func FilterCohort(cohort []domain.Patient, q Query) []domain.Patient {
	out := make([]domain.Patient, 0, len(cohort))
	for _, p := range cohort {
		if !matchesPatient(&p, q) {
			continue
		}
		if !matchesTumors(p.Tumors, q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesPatient(p *domain.Patient, q Query) bool {
	if q.NicotineAbuse.Known() && p.NicotineAbuse != q.NicotineAbuse {
		return false
	}
	if q.HPVStatus.Known() && p.HPVStatus != q.HPVStatus {
		return false
	}
	if q.NeckDissection.Known() && p.NeckDissection != q.NeckDissection {
		return false
	}
	if q.Institutions != nil && !containsInt64(q.Institutions, p.InstitutionID) {
		return false
	}
	return true
}

func matchesTumors(tumors []domain.Tumor, q Query) bool {
	if q.Subsites != nil && !anyTumor(tumors, func(t *domain.Tumor) bool {
		return containsString(q.Subsites, t.Subsite)
	}) {
		return false
	}
	if q.TStages != nil && !anyTumor(tumors, func(t *domain.Tumor) bool {
		return containsInt(q.TStages, t.TStage)
	}) {
		return false
	}
	if q.Central.Known() && !anyTumor(tumors, func(t *domain.Tumor) bool {
		return t.Central == q.Central
	}) {
		return false
	}
	if q.Extension.Known() && !anyTumor(tumors, func(t *domain.Tumor) bool {
		return t.Extension == q.Extension
	}) {
		return false
	}
	return true
}

func anyTumor(tumors []domain.Tumor, pred func(*domain.Tumor) bool) bool {
	for i := range tumors {
		if pred(&tumors[i]) {
			return true
		}
	}
	return false
}

func containsString(hay []string, needle string) bool {
	for _, s := range hay {
		if s == needle {
			return true
		}
	}
	return false
}

func containsInt(hay []int, needle int) bool {
	for _, v := range hay {
		if v == needle {
			return true
		}
	}
	return false
}

func containsInt64(hay []int64, needle int64) bool {
	for _, v := range hay {
		if v == needle {
			return true
		}
	}
	return false
}
