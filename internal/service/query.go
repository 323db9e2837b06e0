// Package service implements the dashboard query pipeline: cohort filtering
// by patient and tumor attributes, reconciliation of multi-modality
// diagnostic observations into a per-level consensus, N-status
// classification, and aggregation into the cross-tabulated counts the
// dashboard displays.
package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lyprox-dashboard-server/internal/domain"
)

// CombinePolicy selects how observations from several modalities are merged
// into one consensus value per lymph node level.
type CombinePolicy string

const (
	CombineOR  CombinePolicy = "OR"
	CombineAND CombinePolicy = "AND"
)

// Query holds every supported dashboard filter field. Ternary fields left
// Unknown and nil slices are unspecified and do not narrow the cohort; a
// non-nil empty slice matches nothing.
type Query struct {
	// Diagnosis-specific criteria.
	Modalities []string
	Combine    CombinePolicy
	Pattern    domain.Pattern

	// Patient-specific criteria.
	NicotineAbuse  domain.Ternary
	HPVStatus      domain.Ternary
	NeckDissection domain.Ternary
	Institutions   []int64
	NStatus        domain.Ternary

	// Tumor-specific criteria. Subsites holds ICD codes, not group names.
	Subsites  []string
	TStages   []int
	Central   domain.Ternary
	Extension domain.Ternary
}

// DefaultQuery returns the query the dashboard starts out with: every
// modality except the planning CT, OR combination, all subsites, all
// T-stages, and no further narrowing.
func DefaultQuery() Query {
	return Query{
		Modalities: append([]string(nil), domain.DefaultModalities...),
		Combine:    CombineOR,
		Pattern:    domain.NewPattern(),
		Subsites:   domain.AllSubsiteCodes(),
		TStages:    append([]int(nil), domain.TStages...),
	}
}

// QueryService runs the full dashboard pipeline against a patient store.
type QueryService struct {
	store      domain.PatientStore
	reconciler *Reconciler
	aggregator *Aggregator
	log        *logrus.Logger
}

// NewQueryService creates a new query service.
func NewQueryService(store domain.PatientStore, logger *logrus.Logger) *QueryService {
	return &QueryService{
		store:      store,
		reconciler: NewReconciler(store, logger),
		aggregator: NewAggregator(logger),
		log:        logger,
	}
}

// ExecuteQuery runs filter, reconciliation and N-status classification and
// returns the matching cohort together with the consensus involvement the
// statistics are computed from. The consensus structure lives only for this
// query.
func (s *QueryService) ExecuteQuery(ctx context.Context, q Query) ([]domain.Patient, domain.CombinedInvolvement, error) {
	start := time.Now()

	patients, err := s.store.ListPatients(ctx)
	if err != nil {
		return nil, nil, err
	}

	cohort := FilterCohort(patients, q)

	cohort, combined, err := s.reconciler.Reconcile(ctx, cohort, q)
	if err != nil {
		return nil, nil, err
	}

	cohort = FilterNStatus(cohort, combined, q.NStatus)

	s.log.WithFields(logrus.Fields{
		"cohort_size": len(cohort),
		"elapsed":     time.Since(start),
	}).Info("Query executed")

	return cohort, combined, nil
}

// ListInstitutions exposes the institution catalog to the API layer.
func (s *QueryService) ListInstitutions(ctx context.Context) ([]domain.Institution, error) {
	return s.store.ListInstitutions(ctx)
}

// ComputeStatistics aggregates the queried cohort into the counts structure
// the dashboard displays.
func (s *QueryService) ComputeStatistics(ctx context.Context, cohort []domain.Patient, combined domain.CombinedInvolvement) (*Statistics, error) {
	institutions, err := s.store.ListInstitutions(ctx)
	if err != nil {
		return nil, err
	}
	return s.aggregator.Aggregate(cohort, combined, institutions), nil
}
