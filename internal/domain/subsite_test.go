package domain

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSubsiteClassifier_Classify(t *testing.T) {
	sc := NewSubsiteClassifier(SubsiteGroups, silentLogger())

	tests := []struct {
		name      string
		code      string
		wantGroup string
	}{
		{name: "tongue base", code: "C01", wantGroup: "base"},
		{name: "tongue base with suffix", code: "C01.9", wantGroup: "base"},
		{name: "tonsil", code: "C09.0", wantGroup: "tonsil"},
		{name: "glottis", code: "C32.0", wantGroup: "glottis"},
		{name: "floor of mouth", code: "C04.1", wantGroup: "mouth_floor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vec := sc.Classify(tt.code)
			require.Len(t, vec, len(SubsiteGroups))

			for i, g := range SubsiteGroups {
				if g.Name == tt.wantGroup {
					assert.Equal(t, 1, vec[i], "group %s", g.Name)
				} else {
					assert.Equal(t, 0, vec[i], "group %s", g.Name)
				}
			}
		})
	}
}

func TestSubsiteClassifier_UnmatchedCode(t *testing.T) {
	sc := NewSubsiteClassifier(SubsiteGroups, silentLogger())
	vec := sc.Classify("C99.9")
	for i, v := range vec {
		assert.Equal(t, 0, v, "group %d", i)
	}
}

func TestSubsiteClassifier_OverlapWarnsOnce(t *testing.T) {
	groups := []SubsiteGroup{
		{Name: "first", Location: LocationOropharynx, Codes: []string{"C01"}},
		{Name: "second", Location: LocationOropharynx, Codes: []string{"C01", "C02.0"}},
	}
	logger, hook := test.NewNullLogger()
	sc := NewSubsiteClassifier(groups, logger)

	vec := sc.Classify("C01")
	assert.Equal(t, []int{1, 1}, vec, "overlapping code accumulates, not one-hot")
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	sc.Classify("C01")
	assert.Len(t, hook.Entries, 1, "warning fires once per code")

	vec = sc.Classify("C02.0")
	assert.Equal(t, []int{0, 1}, vec)
	assert.Len(t, hook.Entries, 1)
}

func TestLocationForSubsite(t *testing.T) {
	tests := []struct {
		code   string
		want   string
		wantOK bool
	}{
		{code: "C01", want: LocationOropharynx, wantOK: true},
		{code: "C13.2", want: LocationHypopharynx, wantOK: true},
		{code: "C32.9", want: LocationLarynx, wantOK: true},
		{code: "C05.1", want: LocationOralCavity, wantOK: true},
		{code: "C99", wantOK: false},
	}

	for _, tt := range tests {
		loc, ok := LocationForSubsite(tt.code)
		assert.Equal(t, tt.wantOK, ok, "code %s", tt.code)
		assert.Equal(t, tt.want, loc, "code %s", tt.code)
	}
}

func TestSubsiteCodesFor(t *testing.T) {
	codes, err := SubsiteCodesFor([]string{"base", "glottis"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"C01", "C01.9", "C32.0"}, codes)

	_, err = SubsiteCodesFor([]string{"base", "nonsense"})
	var invalid *InvalidConfigurationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "subsites", invalid.Field)
}

func TestAllSubsiteGroupNames(t *testing.T) {
	names := AllSubsiteGroupNames()
	require.Len(t, names, len(SubsiteGroups))
	assert.Equal(t, "base", names[0])
	assert.Equal(t, "glands", names[len(names)-1])
}
