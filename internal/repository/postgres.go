package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/lyprox-dashboard-server/internal/domain"
)

// PostgresStore implements domain.PatientStore on a pgx connection pool.
type PostgresStore struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPostgresStore creates a new postgres-backed patient store.
func NewPostgresStore(db *pgxpool.Pool, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{
		db:  db,
		log: logger,
	}
}

// ListInstitutions enumerates all institutions ordered by ID.
func (s *PostgresStore) ListInstitutions(ctx context.Context) ([]domain.Institution, error) {
	query := `
		SELECT id, name, shortname
		FROM institutions
		ORDER BY id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		s.log.WithError(err).Error("Failed to list institutions")
		return nil, fmt.Errorf("listing institutions: %w", err)
	}
	defer rows.Close()

	var institutions []domain.Institution
	for rows.Next() {
		var inst domain.Institution
		if err := rows.Scan(&inst.ID, &inst.Name, &inst.Shortname); err != nil {
			return nil, fmt.Errorf("scanning institution row: %w", err)
		}
		institutions = append(institutions, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating institution rows: %w", err)
	}

	return institutions, nil
}

// ListPatients enumerates all patients with their tumors attached, in
// recording order.
func (s *PostgresStore) ListPatients(ctx context.Context) ([]domain.Patient, error) {
	query := `
		SELECT id, hash, sex, age, diagnose_date, alcohol_abuse, nicotine_abuse,
			   hpv_status, neck_dissection, t_stage, n_stage, m_stage,
			   stage_prefix, tnm_edition, institution_id
		FROM patients
		ORDER BY id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		s.log.WithError(err).Error("Failed to list patients")
		return nil, fmt.Errorf("listing patients: %w", err)
	}
	defer rows.Close()

	var patients []domain.Patient
	index := make(map[int64]int)
	for rows.Next() {
		var p domain.Patient
		var alcohol, nicotine, hpv, dissection *bool

		err := rows.Scan(
			&p.ID, &p.Hash, &p.Sex, &p.Age, &p.DiagnoseDate,
			&alcohol, &nicotine, &hpv, &dissection,
			&p.TStage, &p.NStage, &p.MStage,
			&p.StagePrefix, &p.TNMEdition, &p.InstitutionID,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning patient row: %w", err)
		}

		p.AlcoholAbuse = domain.TernaryFromPtr(alcohol)
		p.NicotineAbuse = domain.TernaryFromPtr(nicotine)
		p.HPVStatus = domain.TernaryFromPtr(hpv)
		p.NeckDissection = domain.TernaryFromPtr(dissection)

		index[p.ID] = len(patients)
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating patient rows: %w", err)
	}

	if err := s.attachTumors(ctx, patients, index); err != nil {
		return nil, err
	}

	return patients, nil
}

func (s *PostgresStore) attachTumors(ctx context.Context, patients []domain.Patient, index map[int64]int) error {
	query := `
		SELECT id, patient_id, location, subsite, central, extension, volume,
			   t_stage, stage_prefix
		FROM tumors
		ORDER BY id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("listing tumors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t domain.Tumor
		var central, extension *bool

		err := rows.Scan(
			&t.ID, &t.PatientID, &t.Location, &t.Subsite,
			&central, &extension, &t.Volume,
			&t.TStage, &t.StagePrefix,
		)
		if err != nil {
			return fmt.Errorf("scanning tumor row: %w", err)
		}

		t.Central = domain.TernaryFromPtr(central)
		t.Extension = domain.TernaryFromPtr(extension)

		if i, ok := index[t.PatientID]; ok {
			patients[i].Tumors = append(patients[i].Tumors, t)
		}
	}
	return rows.Err()
}

// ListDiagnoses enumerates the diagnoses of the given patients reached with
// one of the given modalities.
func (s *PostgresStore) ListDiagnoses(ctx context.Context, patientIDs []int64, modalities []string) ([]domain.Diagnosis, error) {
	if len(patientIDs) == 0 || len(modalities) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, patient_id, modality, side, diagnose_date, %s
		FROM diagnoses
		WHERE patient_id = ANY($1) AND modality = ANY($2)
		ORDER BY id`, strings.Join(lnlColumns(), ", "))

	rows, err := s.db.Query(ctx, query, patientIDs, modalities)
	if err != nil {
		s.log.WithError(err).Error("Failed to list diagnoses")
		return nil, fmt.Errorf("listing diagnoses: %w", err)
	}
	defer rows.Close()

	var diagnoses []domain.Diagnosis
	for rows.Next() {
		var d domain.Diagnosis
		levels := make([]*bool, len(domain.LNLs))

		dest := []any{&d.ID, &d.PatientID, &d.Modality, &d.Side, &d.DiagnoseDate}
		for i := range levels {
			dest = append(dest, &levels[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning diagnosis row: %w", err)
		}

		d.Levels = involvementFromPtrs(levels)
		diagnoses = append(diagnoses, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating diagnosis rows: %w", err)
	}

	return diagnoses, nil
}

// SaveInstitution persists an institution and assigns its ID.
func (s *PostgresStore) SaveInstitution(ctx context.Context, inst *domain.Institution) error {
	query := `
		INSERT INTO institutions (name, shortname)
		VALUES ($1, $2)
		RETURNING id`

	if err := s.db.QueryRow(ctx, query, inst.Name, inst.Shortname).Scan(&inst.ID); err != nil {
		return fmt.Errorf("creating institution: %w", err)
	}
	return nil
}

// SavePatient persists a patient and assigns its ID. A missing hash gets a
// fresh random identifier.
func (s *PostgresStore) SavePatient(ctx context.Context, p *domain.Patient) error {
	if p.Hash == "" {
		p.Hash = uuid.New().String()
	}

	query := `
		INSERT INTO patients (
			hash, sex, age, diagnose_date, alcohol_abuse, nicotine_abuse,
			hpv_status, neck_dissection, t_stage, n_stage, m_stage,
			stage_prefix, tnm_edition, institution_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	err := s.db.QueryRow(ctx, query,
		p.Hash, p.Sex, p.Age, p.DiagnoseDate,
		p.AlcoholAbuse.Ptr(), p.NicotineAbuse.Ptr(),
		p.HPVStatus.Ptr(), p.NeckDissection.Ptr(),
		p.TStage, p.NStage, p.MStage,
		p.StagePrefix, p.TNMEdition, p.InstitutionID,
	).Scan(&p.ID)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"hash":  p.Hash,
			"error": err,
		}).Error("Failed to create patient")
		return fmt.Errorf("creating patient: %w", err)
	}

	return nil
}

// SaveTumor persists a tumor, deriving its location from the subsite and
// rolling the patient's T-stage up to the maximum over their tumors.
func (s *PostgresStore) SaveTumor(ctx context.Context, t *domain.Tumor) error {
	if !deriveLocation(t) {
		s.log.WithFields(logrus.Fields{
			"patient_id": t.PatientID,
			"subsite":    t.Subsite,
		}).Warn("Could not derive tumor location from subsite")
	}

	query := `
		INSERT INTO tumors (
			patient_id, location, subsite, central, extension, volume,
			t_stage, stage_prefix
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := s.db.QueryRow(ctx, query,
		t.PatientID, t.Location, t.Subsite,
		t.Central.Ptr(), t.Extension.Ptr(), t.Volume,
		t.TStage, t.StagePrefix,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("creating tumor: %w", err)
	}

	return s.rollUpTStage(ctx, t.PatientID)
}

// rollUpTStage updates the patient's T-stage and stage prefix to those of
// their highest-staged tumor.
func (s *PostgresStore) rollUpTStage(ctx context.Context, patientID int64) error {
	query := `
		UPDATE patients
		SET t_stage = sub.t_stage, stage_prefix = sub.stage_prefix
		FROM (
			SELECT t_stage, stage_prefix
			FROM tumors
			WHERE patient_id = $1
			ORDER BY t_stage DESC, id
			LIMIT 1
		) AS sub
		WHERE patients.id = $1`

	if _, err := s.db.Exec(ctx, query, patientID); err != nil {
		return fmt.Errorf("updating patient T-stage: %w", err)
	}
	return nil
}

// SaveDiagnosis persists a diagnosis after applying the sublevel
// consistency rule. A void diagnosis is rejected with ErrVoidDiagnosis.
func (s *PostgresStore) SaveDiagnosis(ctx context.Context, d *domain.Diagnosis) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if d.IsVoid() {
		s.log.WithFields(logrus.Fields{
			"patient_id": d.PatientID,
			"modality":   d.Modality,
		}).Warn("Refusing to persist void diagnosis")
		return domain.ErrVoidDiagnosis
	}

	d.InferSuperlevels()

	cols := lnlColumns()
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+5)
	}

	query := fmt.Sprintf(`
		INSERT INTO diagnoses (patient_id, modality, side, diagnose_date, %s)
		VALUES ($1, $2, $3, $4, %s)
		RETURNING id`,
		strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	args := []any{d.PatientID, d.Modality, string(d.Side), d.DiagnoseDate}
	args = append(args, involvementToPtrs(d.Levels)...)

	if err := s.db.QueryRow(ctx, query, args...).Scan(&d.ID); err != nil {
		return fmt.Errorf("creating diagnosis: %w", err)
	}

	return nil
}
