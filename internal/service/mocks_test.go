package service

import (
	"context"
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/lyprox-dashboard-server/internal/domain"
)

var errTestStore = errors.New("store unavailable")

// fakeStore is an in-memory PatientStore serving canned data to the
// pipeline tests.
type fakeStore struct {
	institutions []domain.Institution
	patients     []domain.Patient
	diagnoses    []domain.Diagnosis
	listErr      error
}

func (f *fakeStore) ListInstitutions(ctx context.Context) ([]domain.Institution, error) {
	return f.institutions, nil
}

func (f *fakeStore) ListPatients(ctx context.Context) ([]domain.Patient, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.patients, nil
}

func (f *fakeStore) ListDiagnoses(ctx context.Context, patientIDs []int64, modalities []string) ([]domain.Diagnosis, error) {
	ids := make(map[int64]bool, len(patientIDs))
	for _, id := range patientIDs {
		ids[id] = true
	}
	mods := make(map[string]bool, len(modalities))
	for _, m := range modalities {
		mods[m] = true
	}

	var out []domain.Diagnosis
	for _, d := range f.diagnoses {
		if ids[d.PatientID] && mods[d.Modality] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) SaveInstitution(ctx context.Context, inst *domain.Institution) error {
	inst.ID = int64(len(f.institutions) + 1)
	f.institutions = append(f.institutions, *inst)
	return nil
}

func (f *fakeStore) SavePatient(ctx context.Context, p *domain.Patient) error {
	p.ID = int64(len(f.patients) + 1)
	f.patients = append(f.patients, *p)
	return nil
}

func (f *fakeStore) SaveTumor(ctx context.Context, t *domain.Tumor) error {
	for i := range f.patients {
		if f.patients[i].ID == t.PatientID {
			f.patients[i].Tumors = append(f.patients[i].Tumors, *t)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeStore) SaveDiagnosis(ctx context.Context, d *domain.Diagnosis) error {
	if d.IsVoid() {
		return domain.ErrVoidDiagnosis
	}
	d.ID = int64(len(f.diagnoses) + 1)
	f.diagnoses = append(f.diagnoses, *d)
	return nil
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func involvementWith(levels map[string]domain.Ternary) domain.Involvement {
	inv := domain.NewInvolvement()
	for lnl, v := range levels {
		inv[lnl] = v
	}
	return inv
}

// diagnosisFor builds one qualifying observation for the given patient.
func diagnosisFor(patientID int64, modality string, side domain.Side, levels map[string]domain.Ternary) domain.Diagnosis {
	return domain.Diagnosis{
		PatientID: patientID,
		Modality:  modality,
		Side:      side,
		Levels:    involvementWith(levels),
	}
}
