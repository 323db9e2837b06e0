package domain

import (
	"fmt"
	"time"
)

// Institution is a clinic or hospital contributing patient records.
type Institution struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Shortname string `json:"shortname"`
}

// TStages lists the recognized T-stage values in histogram order.
var TStages = []int{1, 2, 3, 4}

// Patient holds the demographic and staging information of one recorded
// patient, with their tumors attached. Risk factors are ternary: they may be
// positive, negative, or not assessed.
type Patient struct {
	ID           int64     `json:"id"`
	Hash         string    `json:"hash"`
	Sex          string    `json:"sex"`
	Age          int       `json:"age"`
	DiagnoseDate time.Time `json:"diagnose_date"`

	AlcoholAbuse   Ternary `json:"alcohol_abuse"`
	NicotineAbuse  Ternary `json:"nicotine_abuse"`
	HPVStatus      Ternary `json:"hpv_status"`
	NeckDissection Ternary `json:"neck_dissection"`

	TStage      int    `json:"t_stage"`
	NStage      int    `json:"n_stage"`
	MStage      int    `json:"m_stage"`
	StagePrefix string `json:"stage_prefix"`
	TNMEdition  int    `json:"tnm_edition"`

	InstitutionID int64 `json:"institution_id"`

	Tumors []Tumor `json:"tumors,omitempty"`
}

// PrimaryTumor returns the first recorded tumor, the one aggregate tumor
// statistics are computed from, or nil when the patient has none.
func (p *Patient) PrimaryTumor() *Tumor {
	if len(p.Tumors) == 0 {
		return nil
	}
	return &p.Tumors[0]
}

// Tumor describes one primary tumor of a patient. The location is derived
// from the subsite code and never set directly.
type Tumor struct {
	ID        int64  `json:"id"`
	PatientID int64  `json:"patient_id"`
	Location  string `json:"location"`
	Subsite   string `json:"subsite"`

	Central   Ternary  `json:"central"`
	Extension Ternary  `json:"extension"`
	Volume    *float64 `json:"volume,omitempty"`

	TStage      int    `json:"t_stage"`
	StagePrefix string `json:"stage_prefix"`
}

// Diagnosis is one diagnostic observation of one side of a patient's neck:
// a ternary involvement value per lymph node level, reported by a single
// modality.
type Diagnosis struct {
	ID           int64      `json:"id"`
	PatientID    int64      `json:"patient_id"`
	Modality     string     `json:"modality"`
	Side         Side       `json:"side"`
	DiagnoseDate *time.Time `json:"diagnose_date,omitempty"`

	Levels Involvement `json:"levels"`
}

// Validate ensures the diagnosis references a recognized modality and side.
func (d *Diagnosis) Validate() error {
	if _, ok := ModalityByCode(d.Modality); !ok {
		return fmt.Errorf("diagnosis validation: unknown modality %q", d.Modality)
	}
	if !d.Side.IsValid() {
		return fmt.Errorf("diagnosis validation: unknown side %q", d.Side)
	}
	if d.Levels == nil {
		return fmt.Errorf("diagnosis validation: levels are required")
	}
	return nil
}

// IsVoid reports whether the diagnosis carries no information at all. Void
// diagnoses must not be persisted.
func (d *Diagnosis) IsVoid() bool {
	return d.Levels.IsVoid()
}

// InferSuperlevels enforces the sublevel consistency rule on the recorded
// levels, e.g. an involved Ia forces I to be involved.
func (d *Diagnosis) InferSuperlevels() {
	d.Levels.InferSuperlevels()
}
