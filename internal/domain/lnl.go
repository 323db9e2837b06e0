package domain

// LNLs lists the implemented lymph node levels in their canonical order. The
// order fixes the column layout of every involvement vector and the key set
// of the dashboard statistics.
var LNLs = []string{
	"I", "Ia", "Ib", "II", "IIa", "IIb", "III", "IV", "V", "Va", "Vb", "VII",
}

// Side distinguishes the two sides of the neck relative to the primary tumor.
type Side string

const (
	Ipsi   Side = "ipsi"
	Contra Side = "contra"
)

// Sides lists both sides in the order the reconciliation passes run in. The
// order matters: a patient excluded during the ipsi pass stays excluded even
// if the contra side would match.
var Sides = []Side{Ipsi, Contra}

// IsValid reports whether s is a recognized side.
func (s Side) IsValid() bool {
	return s == Ipsi || s == Contra
}

// Involvement holds one ternary value per lymph node level. It represents a
// single diagnostic observation, a consensus row, or a requested target
// pattern. Missing keys read as Unknown.
type Involvement map[string]Ternary

// NewInvolvement returns an involvement row with every level unknown.
func NewInvolvement() Involvement {
	inv := make(Involvement, len(LNLs))
	for _, lnl := range LNLs {
		inv[lnl] = Unknown
	}
	return inv
}

// IsVoid reports whether every level is unknown. A void observation carries
// no information and must not be persisted.
func (inv Involvement) IsVoid() bool {
	for _, lnl := range LNLs {
		if inv[lnl].Known() {
			return false
		}
	}
	return true
}

// HasPositive reports whether any level is definitely involved.
func (inv Involvement) HasPositive() bool {
	for _, lnl := range LNLs {
		if inv[lnl] == Positive {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of the involvement row.
func (inv Involvement) Clone() Involvement {
	out := make(Involvement, len(inv))
	for k, v := range inv {
		out[k] = v
	}
	return out
}

// sublevelGroups ties each superlevel to its a/b sublevels.
var sublevelGroups = []struct {
	Super, A, B string
}{
	{"I", "Ia", "Ib"},
	{"II", "IIa", "IIb"},
	{"V", "Va", "Vb"},
}

// InferSuperlevels enforces the sublevel consistency rule in place: if either
// sublevel is positive the superlevel must be positive, and if both
// sublevels are definitely negative the superlevel must be negative. In all
// other cases the superlevel stays as reported.
func (inv Involvement) InferSuperlevels() {
	for _, g := range sublevelGroups {
		a, b := inv[g.A], inv[g.B]
		if a == Positive || b == Positive {
			inv[g.Super] = Positive
		} else if a == Negative && b == Negative {
			inv[g.Super] = Negative
		}
	}
}

// Pattern is the target involvement requested by the user, per side. Levels
// left unknown are don't-care positions during pattern matching.
type Pattern map[Side]Involvement

// NewPattern returns a pattern with every level on both sides left as
// don't-care.
func NewPattern() Pattern {
	return Pattern{
		Ipsi:   NewInvolvement(),
		Contra: NewInvolvement(),
	}
}

// InferSuperlevels applies the sublevel consistency rule to both sides of
// the pattern, mirroring what diagnosis records guarantee.
func (p Pattern) InferSuperlevels() {
	for _, side := range Sides {
		if inv, ok := p[side]; ok {
			inv.InferSuperlevels()
		}
	}
}

// CombinedInvolvement is the per-patient, per-side consensus involvement
// derived from a set of diagnoses. It lives only for the duration of one
// dashboard query and is never written back to the store. Patients without
// any qualifying observation on a side have no entry for that side.
type CombinedInvolvement map[Side]map[int64]Involvement

// NewCombinedInvolvement returns an empty consensus structure for one query.
func NewCombinedInvolvement() CombinedInvolvement {
	return CombinedInvolvement{
		Ipsi:   make(map[int64]Involvement),
		Contra: make(map[int64]Involvement),
	}
}

// HasInvolvement reports whether the patient has a positive consensus on any
// level of either side. A missing side entry counts as no involvement.
func (ci CombinedInvolvement) HasInvolvement(patientID int64) bool {
	for _, side := range Sides {
		if inv, ok := ci[side][patientID]; ok && inv.HasPositive() {
			return true
		}
	}
	return false
}
