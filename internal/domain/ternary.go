// Package domain contains the core clinical entities and types for exploring
// lymphatic metastatic progression in head-and-neck cancer: three-valued
// diagnostic observations, lymph node levels, diagnostic modalities, tumor
// subsites, and the patient/tumor/diagnosis records the dashboard queries.
package domain

import "fmt"

// Ternary is a three-valued clinical observation: a risk factor or an
// involvement status that can be positive, negative, or not assessed.
type Ternary int

const (
	Unknown Ternary = iota
	Positive
	Negative
)

// Validation errors shared across the domain.
var (
	ErrInvalidTernary = fmt.Errorf("invalid ternary value")
)

// IsValid reports whether t is one of the three defined states.
func (t Ternary) IsValid() bool {
	switch t {
	case Unknown, Positive, Negative:
		return true
	default:
		return false
	}
}

// Known reports whether t carries a definite value.
func (t Ternary) Known() bool {
	return t == Positive || t == Negative
}

// String returns the string representation of the ternary value.
func (t Ternary) String() string {
	switch t {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	default:
		return "unknown"
	}
}

// Encode maps the ternary value to a fixed one-hot vector of length 3.
// Index 0 is unknown, index 1 positive, index 2 negative. The index
// assignment descends from the dashboard form encoding, where unknown,
// positive and negative are submitted as 0, 1 and -1.
func (t Ternary) Encode() [3]int {
	switch t {
	case Positive:
		return [3]int{0, 1, 0}
	case Negative:
		return [3]int{0, 0, 1}
	default:
		return [3]int{1, 0, 0}
	}
}

// DecodeTernary is the inverse of Encode. It fails on any vector that is not
// a valid one-hot encoding.
func DecodeTernary(v [3]int) (Ternary, error) {
	switch v {
	case [3]int{1, 0, 0}:
		return Unknown, nil
	case [3]int{0, 1, 0}:
		return Positive, nil
	case [3]int{0, 0, 1}:
		return Negative, nil
	default:
		return Unknown, fmt.Errorf("decoding one-hot vector %v: %w", v, ErrInvalidTernary)
	}
}

// TernaryFromPtr converts a nullable boolean, the shape ternary fields take
// on in the patient-record store, to a Ternary.
func TernaryFromPtr(b *bool) Ternary {
	if b == nil {
		return Unknown
	}
	if *b {
		return Positive
	}
	return Negative
}

// Ptr converts the ternary value back to a nullable boolean for persistence.
func (t Ternary) Ptr() *bool {
	switch t {
	case Positive:
		v := true
		return &v
	case Negative:
		v := false
		return &v
	default:
		return nil
	}
}

// TernaryFromForm converts the dashboard form integers 1, 0 and -1 to a
// Ternary. Any other value is rejected.
func TernaryFromForm(v int) (Ternary, error) {
	switch v {
	case 1:
		return Positive, nil
	case 0:
		return Unknown, nil
	case -1:
		return Negative, nil
	default:
		return Unknown, fmt.Errorf("form value %d: %w", v, ErrInvalidTernary)
	}
}

// FormValue returns the dashboard form integer for the ternary value.
func (t Ternary) FormValue() int {
	switch t {
	case Positive:
		return 1
	case Negative:
		return -1
	default:
		return 0
	}
}
