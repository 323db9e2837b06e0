package domain

// Modality is a diagnostic method together with its fixed specificity and
// sensitivity. The catalog below mirrors the values used when recording
// diagnoses; the probabilities are not consumed by the dashboard itself but
// are reported to the frontend alongside the modality list.
type Modality struct {
	Code  string  `json:"code"`
	Label string  `json:"label"`
	Spec  float64 `json:"specificity"`
	Sens  float64 `json:"sensitivity"`
}

// Modalities is the fixed catalog of recognized diagnostic modalities.
var Modalities = []Modality{
	{Code: "CT", Label: "CT", Spec: 0.76, Sens: 0.81},
	{Code: "MRI", Label: "MRI", Spec: 0.63, Sens: 0.81},
	{Code: "PET", Label: "PET", Spec: 0.86, Sens: 0.79},
	{Code: "FNA", Label: "Fine Needle Aspiration", Spec: 0.98, Sens: 0.80},
	{Code: "diagnostic_consensus", Label: "Diagnostic Consensus", Spec: 0.86, Sens: 0.81},
	{Code: "pathology", Label: "Pathology", Spec: 1.0, Sens: 1.0},
	{Code: "pCT", Label: "Planning CT", Spec: 0.86, Sens: 0.81},
}

// DefaultModalities is the modality selection a dashboard query starts out
// with. The planning CT is excluded by default because it usually duplicates
// the diagnostic CT.
var DefaultModalities = []string{
	"CT", "MRI", "PET", "FNA", "diagnostic_consensus", "pathology",
}

// ModalityByCode looks up a modality in the catalog.
func ModalityByCode(code string) (Modality, bool) {
	for _, m := range Modalities {
		if m.Code == code {
			return m, true
		}
	}
	return Modality{}, false
}
