package domain

import "context"

// PatientStore is the persistent patient-record store the query pipeline
// reads from. Implementations must provide read-consistent snapshots per
// query sequence; the pipeline itself performs reads only.
type PatientStore interface {
	// ListInstitutions enumerates all institutions ordered by ID. The order
	// fixes the layout of the per-institution count vector.
	ListInstitutions(ctx context.Context) ([]Institution, error)

	// ListPatients enumerates all patients with their tumors attached, in
	// recording order.
	ListPatients(ctx context.Context) ([]Patient, error)

	// ListDiagnoses enumerates the diagnoses of the given patients that were
	// reached with one of the given modalities.
	ListDiagnoses(ctx context.Context, patientIDs []int64, modalities []string) ([]Diagnosis, error)

	// SaveInstitution persists an institution and assigns its ID.
	SaveInstitution(ctx context.Context, inst *Institution) error

	// SavePatient persists a patient and assigns its ID.
	SavePatient(ctx context.Context, p *Patient) error

	// SaveTumor persists a tumor, deriving its location from the subsite and
	// rolling the patient's T-stage up to the maximum over their tumors.
	SaveTumor(ctx context.Context, t *Tumor) error

	// SaveDiagnosis persists a diagnosis after applying the sublevel
	// consistency rule. A void diagnosis is rejected with ErrVoidDiagnosis.
	SaveDiagnosis(ctx context.Context, d *Diagnosis) error
}
