package domain

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// SubsiteGroup names a group of anatomical tumor subsites and the ICD-10
// codes that belong to it.
type SubsiteGroup struct {
	Name     string
	Location string
	Codes    []string
}

// SubsiteGroups is the ordered subsite-group configuration. The order fixes
// the layout of the subsite count vector in the dashboard statistics.
//
// C01 and C01.9 refer to the same subsite; both are accepted for resilience
// against differently normalized ICD codes in imported data.
var SubsiteGroups = []SubsiteGroup{
	{Name: "base", Location: LocationOropharynx, Codes: []string{"C01", "C01.9"}},
	{Name: "tonsil", Location: LocationOropharynx, Codes: []string{"C09.0", "C09.1", "C09.8", "C09.9"}},
	{Name: "rest_oro", Location: LocationOropharynx, Codes: []string{
		"C10.0", "C10.1", "C10.2", "C10.3", "C10.4", "C10.8", "C10.9",
	}},
	{Name: "rest_hypo", Location: LocationHypopharynx, Codes: []string{
		"C12", "C12.9", "C13.0", "C13.1", "C13.2", "C13.8", "C13.9",
	}},
	{Name: "glottis", Location: LocationLarynx, Codes: []string{"C32.0"}},
	{Name: "rest_larynx", Location: LocationLarynx, Codes: []string{
		"C32.1", "C32.2", "C32.3", "C32.8", "C32.9",
	}},
	{Name: "tongue", Location: LocationOralCavity, Codes: []string{
		"C02.0", "C02.1", "C02.2", "C02.3", "C02.4", "C02.8", "C02.9",
	}},
	{Name: "gum_cheek", Location: LocationOralCavity, Codes: []string{
		"C03.0", "C03.1", "C03.9", "C06.0", "C06.1", "C06.2", "C06.8", "C06.9",
	}},
	{Name: "mouth_floor", Location: LocationOralCavity, Codes: []string{
		"C04.0", "C04.1", "C04.8", "C04.9",
	}},
	{Name: "palate", Location: LocationOralCavity, Codes: []string{
		"C05.0", "C05.1", "C05.2", "C05.8", "C05.9",
	}},
	{Name: "glands", Location: LocationOralCavity, Codes: []string{
		"C08.0", "C08.1", "C08.9",
	}},
}

// Primary tumor locations in the head and neck region.
const (
	LocationOralCavity  = "oral cavity"
	LocationOropharynx  = "oropharynx"
	LocationHypopharynx = "hypopharynx"
	LocationLarynx      = "larynx"
)

// AllSubsiteCodes returns every ICD code of every configured group, in group
// order.
func AllSubsiteCodes() []string {
	var codes []string
	for _, g := range SubsiteGroups {
		codes = append(codes, g.Codes...)
	}
	return codes
}

// AllSubsiteGroupNames returns the configured group names in order.
func AllSubsiteGroupNames() []string {
	names := make([]string, len(SubsiteGroups))
	for i, g := range SubsiteGroups {
		names[i] = g.Name
	}
	return names
}

// SubsiteCodesFor expands subsite group names to the ICD codes they contain.
// An unknown group name is a configuration error.
func SubsiteCodesFor(groupNames []string) ([]string, error) {
	byName := make(map[string]SubsiteGroup, len(SubsiteGroups))
	for _, g := range SubsiteGroups {
		byName[g.Name] = g
	}

	var codes []string
	for _, name := range groupNames {
		g, ok := byName[name]
		if !ok {
			return nil, NewInvalidConfiguration("subsites", fmt.Sprintf("unknown subsite group %q", name))
		}
		codes = append(codes, g.Codes...)
	}
	return codes, nil
}

// LocationForSubsite derives the primary tumor location from a subsite ICD
// code. The second return value is false when the code matches no configured
// group; callers treat that as a recoverable data-quality problem.
func LocationForSubsite(code string) (string, bool) {
	for _, g := range SubsiteGroups {
		for _, c := range g.Codes {
			if c == code {
				return g.Location, true
			}
		}
	}
	return "", false
}

// SubsiteClassifier maps subsite ICD codes onto the configured group vector.
type SubsiteClassifier struct {
	groups []SubsiteGroup
	log    *logrus.Logger
	warned map[string]bool
}

// NewSubsiteClassifier creates a classifier over the given group
// configuration. Production code passes SubsiteGroups.
func NewSubsiteClassifier(groups []SubsiteGroup, logger *logrus.Logger) *SubsiteClassifier {
	return &SubsiteClassifier{
		groups: groups,
		log:    logger,
		warned: make(map[string]bool),
	}
}

// Classify maps a subsite code to a one-hot vector over the configured
// groups. A code matching no group yields the zero vector. A code matching
// more than one group is a configuration error: a warning is logged once per
// code and the accumulated, non-one-hot vector is returned.
func (sc *SubsiteClassifier) Classify(code string) []int {
	res := make([]int, len(sc.groups))
	hits := 0
	for i, g := range sc.groups {
		for _, c := range g.Codes {
			if c == code {
				res[i] = 1
				hits++
				break
			}
		}
	}

	if hits > 1 && !sc.warned[code] {
		sc.warned[code] = true
		sc.log.WithFields(logrus.Fields{
			"subsite": code,
			"groups":  hits,
		}).Warn("Subsite is associated with more than one group")
	}

	return res
}
