package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/lyprox-dashboard-server/internal/domain"
)

// SQLiteStore implements domain.PatientStore on an embedded sqlite
// database. It serves small single-node installations and tests.
type SQLiteStore struct {
	db  *sql.DB
	log *logrus.Logger
}

// NewSQLiteStore opens (or creates) the sqlite database at path and
// initializes the schema. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db, log: logger}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createSchema() error {
	lvlDefs := make([]string, 0, len(domain.LNLs))
	for _, col := range lnlColumns() {
		lvlDefs = append(lvlDefs, col+" BOOLEAN")
	}

	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS institutions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		shortname TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS patients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hash TEXT NOT NULL UNIQUE,
		sex TEXT NOT NULL,
		age INTEGER NOT NULL,
		diagnose_date TIMESTAMP NOT NULL,
		alcohol_abuse BOOLEAN,
		nicotine_abuse BOOLEAN,
		hpv_status BOOLEAN,
		neck_dissection BOOLEAN,
		t_stage INTEGER NOT NULL DEFAULT 0,
		n_stage INTEGER NOT NULL DEFAULT 0,
		m_stage INTEGER NOT NULL DEFAULT 0,
		stage_prefix TEXT NOT NULL DEFAULT 'c',
		tnm_edition INTEGER NOT NULL DEFAULT 8,
		institution_id INTEGER NOT NULL REFERENCES institutions(id)
	);

	CREATE TABLE IF NOT EXISTS tumors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		patient_id INTEGER NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
		location TEXT NOT NULL DEFAULT '',
		subsite TEXT NOT NULL,
		central BOOLEAN,
		extension BOOLEAN,
		volume REAL,
		t_stage INTEGER NOT NULL DEFAULT 0,
		stage_prefix TEXT NOT NULL DEFAULT 'c'
	);

	CREATE TABLE IF NOT EXISTS diagnoses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		patient_id INTEGER NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
		modality TEXT NOT NULL,
		side TEXT NOT NULL,
		diagnose_date TIMESTAMP,
		%s
	);

	CREATE INDEX IF NOT EXISTS idx_tumors_patient ON tumors(patient_id);
	CREATE INDEX IF NOT EXISTS idx_diagnoses_patient ON diagnoses(patient_id);
	CREATE INDEX IF NOT EXISTS idx_diagnoses_modality ON diagnoses(modality);
	`, strings.Join(lvlDefs, ",\n\t\t"))

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating sqlite schema: %w", err)
	}
	return nil
}

// ListInstitutions enumerates all institutions ordered by ID.
func (s *SQLiteStore) ListInstitutions(ctx context.Context) ([]domain.Institution, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, shortname FROM institutions ORDER BY id")
	if err != nil {
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
	return institutions, rows.Err()
}

// ListPatients enumerates all patients with their tumors attached, in
// recording order.
func (s *SQLiteStore) ListPatients(ctx context.Context) ([]domain.Patient, error) {
	query := `
		SELECT id, hash, sex, age, diagnose_date, alcohol_abuse, nicotine_abuse,
			   hpv_status, neck_dissection, t_stage, n_stage, m_stage,
			   stage_prefix, tnm_edition, institution_id
		FROM patients
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
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

func (s *SQLiteStore) attachTumors(ctx context.Context, patients []domain.Patient, index map[int64]int) error {
	query := `
		SELECT id, patient_id, location, subsite, central, extension, volume,
			   t_stage, stage_prefix
		FROM tumors
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
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
func (s *SQLiteStore) ListDiagnoses(ctx context.Context, patientIDs []int64, modalities []string) ([]domain.Diagnosis, error) {
	if len(patientIDs) == 0 || len(modalities) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(patientIDs)+len(modalities))
	idMarks := make([]string, len(patientIDs))
	for i, id := range patientIDs {
		idMarks[i] = "?"
		args = append(args, id)
	}
	modMarks := make([]string, len(modalities))
	for i, m := range modalities {
		modMarks[i] = "?"
		args = append(args, m)
	}

	query := fmt.Sprintf(`
		SELECT id, patient_id, modality, side, diagnose_date, %s
		FROM diagnoses
		WHERE patient_id IN (%s) AND modality IN (%s)
		ORDER BY id`,
		strings.Join(lnlColumns(), ", "),
		strings.Join(idMarks, ", "), strings.Join(modMarks, ", "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing diagnoses: %w", err)
	}
	defer rows.Close()

	var diagnoses []domain.Diagnosis
	for rows.Next() {
		var d domain.Diagnosis
		var side string
		levels := make([]*bool, len(domain.LNLs))

		dest := []any{&d.ID, &d.PatientID, &d.Modality, &side, &d.DiagnoseDate}
		for i := range levels {
			dest = append(dest, &levels[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning diagnosis row: %w", err)
		}

		d.Side = domain.Side(side)
		d.Levels = involvementFromPtrs(levels)
		diagnoses = append(diagnoses, d)
	}
	return diagnoses, rows.Err()
}

// SaveInstitution persists an institution and assigns its ID.
func (s *SQLiteStore) SaveInstitution(ctx context.Context, inst *domain.Institution) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO institutions (name, shortname) VALUES (?, ?)",
		inst.Name, inst.Shortname)
	if err != nil {
		return fmt.Errorf("creating institution: %w", err)
	}

	inst.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading institution id: %w", err)
	}
	return nil
}

// SavePatient persists a patient and assigns its ID. A missing hash gets a
// fresh random identifier.
func (s *SQLiteStore) SavePatient(ctx context.Context, p *domain.Patient) error {
	if p.Hash == "" {
		p.Hash = uuid.New().String()
	}

	query := `
		INSERT INTO patients (
			hash, sex, age, diagnose_date, alcohol_abuse, nicotine_abuse,
			hpv_status, neck_dissection, t_stage, n_stage, m_stage,
			stage_prefix, tnm_edition, institution_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, query,
		p.Hash, p.Sex, p.Age, p.DiagnoseDate,
		p.AlcoholAbuse.Ptr(), p.NicotineAbuse.Ptr(),
		p.HPVStatus.Ptr(), p.NeckDissection.Ptr(),
		p.TStage, p.NStage, p.MStage,
		p.StagePrefix, p.TNMEdition, p.InstitutionID,
	)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"hash":  p.Hash,
			"error": err,
		}).Error("Failed to create patient")
		return fmt.Errorf("creating patient: %w", err)
	}

	p.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading patient id: %w", err)
	}
	return nil
}

// SaveTumor persists a tumor, deriving its location from the subsite and
// rolling the patient's T-stage up to the maximum over their tumors.
func (s *SQLiteStore) SaveTumor(ctx context.Context, t *domain.Tumor) error {
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
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, query,
		t.PatientID, t.Location, t.Subsite,
		t.Central.Ptr(), t.Extension.Ptr(), t.Volume,
		t.TStage, t.StagePrefix,
	)
	if err != nil {
		return fmt.Errorf("creating tumor: %w", err)
	}

	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading tumor id: %w", err)
	}

	return s.rollUpTStage(ctx, t.PatientID)
}

func (s *SQLiteStore) rollUpTStage(ctx context.Context, patientID int64) error {
	query := `
		UPDATE patients
		SET t_stage = (
			SELECT t_stage FROM tumors
			WHERE patient_id = ?
			ORDER BY t_stage DESC, id LIMIT 1
		), stage_prefix = (
			SELECT stage_prefix FROM tumors
			WHERE patient_id = ?
			ORDER BY t_stage DESC, id LIMIT 1
		)
		WHERE id = ?`

	if _, err := s.db.ExecContext(ctx, query, patientID, patientID, patientID); err != nil {
		return fmt.Errorf("updating patient T-stage: %w", err)
	}
	return nil
}

// SaveDiagnosis persists a diagnosis after applying the sublevel
// consistency rule. A void diagnosis is rejected with ErrVoidDiagnosis.
func (s *SQLiteStore) SaveDiagnosis(ctx context.Context, d *domain.Diagnosis) error {
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
	marks := make([]string, len(cols))
	for i := range marks {
		marks[i] = "?"
	}

	query := fmt.Sprintf(`
		INSERT INTO diagnoses (patient_id, modality, side, diagnose_date, %s)
		VALUES (?, ?, ?, ?, %s)`,
		strings.Join(cols, ", "), strings.Join(marks, ", "))

	args := []any{d.PatientID, d.Modality, string(d.Side), d.DiagnoseDate}
	args = append(args, involvementToPtrs(d.Levels)...)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("creating diagnosis: %w", err)
	}

	d.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading diagnosis id: %w", err)
	}
	return nil
}
