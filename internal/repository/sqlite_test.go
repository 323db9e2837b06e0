package repository

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyprox-dashboard-server/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := NewSQLiteStore(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func seedPatient(t *testing.T, store *SQLiteStore, hash string) *domain.Patient {
	t.Helper()
	ctx := context.Background()

	inst := &domain.Institution{Name: "University Hospital Zurich", Shortname: "USZ"}
	require.NoError(t, store.SaveInstitution(ctx, inst))

	p := &domain.Patient{
		Hash:          hash,
		Sex:           "male",
		Age:           63,
		DiagnoseDate:  time.Date(2021, 4, 12, 0, 0, 0, 0, time.UTC),
		NicotineAbuse: domain.Positive,
		HPVStatus:     domain.Negative,
		TNMEdition:    8,
		StagePrefix:   "c",
		InstitutionID: inst.ID,
	}
	require.NoError(t, store.SavePatient(ctx, p))
	return p
}

func TestSQLiteStore_PatientRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := seedPatient(t, store, "a1b2c3")

	patients, err := store.ListPatients(ctx)
	require.NoError(t, err)
	require.Len(t, patients, 1)

	got := patients[0]
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "a1b2c3", got.Hash)
	assert.Equal(t, domain.Positive, got.NicotineAbuse)
	assert.Equal(t, domain.Negative, got.HPVStatus)
	assert.Equal(t, domain.Unknown, got.NeckDissection, "unset ternary reads back as unknown")
	assert.Empty(t, got.Tumors)
}

func TestSQLiteStore_GeneratesPatientHash(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inst := &domain.Institution{Name: "Inselspital", Shortname: "ISB"}
	require.NoError(t, store.SaveInstitution(ctx, inst))

	p := &domain.Patient{
		Sex:           "female",
		Age:           71,
		DiagnoseDate:  time.Date(2022, 2, 2, 0, 0, 0, 0, time.UTC),
		StagePrefix:   "c",
		TNMEdition:    8,
		InstitutionID: inst.ID,
	}
	require.NoError(t, store.SavePatient(ctx, p))
	assert.NotEmpty(t, p.Hash)
}

func TestSQLiteStore_TumorLocationAndTStageRollup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := seedPatient(t, store, "d4e5f6")

	first := &domain.Tumor{PatientID: p.ID, Subsite: "C01", TStage: 2, StagePrefix: "c"}
	require.NoError(t, store.SaveTumor(ctx, first))
	assert.Equal(t, "oropharynx", first.Location)

	second := &domain.Tumor{PatientID: p.ID, Subsite: "C32.0", TStage: 3, StagePrefix: "p"}
	require.NoError(t, store.SaveTumor(ctx, second))
	assert.Equal(t, "larynx", second.Location)

	patients, err := store.ListPatients(ctx)
	require.NoError(t, err)
	require.Len(t, patients, 1)

	got := patients[0]
	require.Len(t, got.Tumors, 2)
	assert.Equal(t, 3, got.TStage, "patient T-stage follows the highest-staged tumor")
	assert.Equal(t, "p", got.StagePrefix)
	assert.Equal(t, "oropharynx", got.Tumors[0].Location)
}

func TestSQLiteStore_DiagnosisRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := seedPatient(t, store, "0a0b0c")

	levels := domain.NewInvolvement()
	levels["IIa"] = domain.Positive
	levels["III"] = domain.Negative

	d := &domain.Diagnosis{
		PatientID: p.ID,
		Modality:  "MRI",
		Side:      domain.Ipsi,
		Levels:    levels,
	}
	require.NoError(t, store.SaveDiagnosis(ctx, d))

	diagnoses, err := store.ListDiagnoses(ctx, []int64{p.ID}, []string{"MRI"})
	require.NoError(t, err)
	require.Len(t, diagnoses, 1)

	got := diagnoses[0]
	assert.Equal(t, domain.Ipsi, got.Side)
	assert.Equal(t, domain.Positive, got.Levels["IIa"])
	assert.Equal(t, domain.Positive, got.Levels["II"], "superlevel was inferred before persisting")
	assert.Equal(t, domain.Negative, got.Levels["III"])
	assert.Equal(t, domain.Unknown, got.Levels["IV"])
}

func TestSQLiteStore_ListDiagnosesFiltersModalities(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := seedPatient(t, store, "f0f1f2")

	for _, modality := range []string{"CT", "pCT"} {
		levels := domain.NewInvolvement()
		levels["II"] = domain.Positive
		require.NoError(t, store.SaveDiagnosis(ctx, &domain.Diagnosis{
			PatientID: p.ID,
			Modality:  modality,
			Side:      domain.Contra,
			Levels:    levels,
		}))
	}

	diagnoses, err := store.ListDiagnoses(ctx, []int64{p.ID}, []string{"CT"})
	require.NoError(t, err)
	require.Len(t, diagnoses, 1)
	assert.Equal(t, "CT", diagnoses[0].Modality)

	diagnoses, err = store.ListDiagnoses(ctx, []int64{p.ID}, nil)
	require.NoError(t, err)
	assert.Empty(t, diagnoses, "no modality selection yields no diagnoses")
}

func TestSQLiteStore_RejectsVoidDiagnosis(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := seedPatient(t, store, "deadbe")

	err := store.SaveDiagnosis(ctx, &domain.Diagnosis{
		PatientID: p.ID,
		Modality:  "CT",
		Side:      domain.Ipsi,
		Levels:    domain.NewInvolvement(),
	})
	assert.ErrorIs(t, err, domain.ErrVoidDiagnosis)

	diagnoses, err := store.ListDiagnoses(ctx, []int64{p.ID}, []string{"CT"})
	require.NoError(t, err)
	assert.Empty(t, diagnoses)
}

func TestSQLiteStore_RejectsUnknownModality(t *testing.T) {
	store := newTestStore(t)

	levels := domain.NewInvolvement()
	levels["II"] = domain.Positive

	err := store.SaveDiagnosis(context.Background(), &domain.Diagnosis{
		PatientID: 1,
		Modality:  "ultrasound",
		Side:      domain.Ipsi,
		Levels:    levels,
	})
	assert.Error(t, err)
}

func TestSQLiteStore_ListInstitutionsOrdered(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Zurich", "Aarau", "Bern"} {
		require.NoError(t, store.SaveInstitution(ctx, &domain.Institution{Name: name, Shortname: name[:2]}))
	}

	institutions, err := store.ListInstitutions(ctx)
	require.NoError(t, err)
	require.Len(t, institutions, 3)
	for i := 1; i < len(institutions); i++ {
		assert.Less(t, institutions[i-1].ID, institutions[i].ID)
	}
}
