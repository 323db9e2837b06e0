package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func involvementWith(levels map[string]Ternary) Involvement {
	inv := NewInvolvement()
	for lnl, v := range levels {
		inv[lnl] = v
	}
	return inv
}

func TestInvolvement_InferSuperlevels(t *testing.T) {
	tests := []struct {
		name  string
		given map[string]Ternary
		want  map[string]Ternary
	}{
		{
			name:  "positive sublevel forces positive superlevel",
			given: map[string]Ternary{"Ia": Positive},
			want:  map[string]Ternary{"I": Positive, "Ia": Positive},
		},
		{
			name:  "both sublevels negative force negative superlevel",
			given: map[string]Ternary{"IIa": Negative, "IIb": Negative},
			want:  map[string]Ternary{"II": Negative},
		},
		{
			name:  "one negative one unknown leaves superlevel untouched",
			given: map[string]Ternary{"Va": Negative},
			want:  map[string]Ternary{"V": Unknown},
		},
		{
			name:  "positive sublevel overrides reported negative superlevel",
			given: map[string]Ternary{"II": Negative, "IIb": Positive},
			want:  map[string]Ternary{"II": Positive},
		},
		{
			name:  "levels without sublevels are never touched",
			given: map[string]Ternary{"III": Positive, "VII": Negative},
			want:  map[string]Ternary{"III": Positive, "VII": Negative, "I": Unknown},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := involvementWith(tt.given)
			inv.InferSuperlevels()
			for lnl, want := range tt.want {
				assert.Equal(t, want, inv[lnl], "level %s", lnl)
			}
		})
	}
}

func TestInvolvement_IsVoid(t *testing.T) {
	assert.True(t, NewInvolvement().IsVoid())
	assert.False(t, involvementWith(map[string]Ternary{"IV": Negative}).IsVoid())
	assert.False(t, involvementWith(map[string]Ternary{"II": Positive}).IsVoid())
}

func TestInvolvement_HasPositive(t *testing.T) {
	assert.False(t, NewInvolvement().HasPositive())
	assert.False(t, involvementWith(map[string]Ternary{"II": Negative}).HasPositive())
	assert.True(t, involvementWith(map[string]Ternary{"Vb": Positive}).HasPositive())
}

func TestPattern_InferSuperlevels(t *testing.T) {
	p := NewPattern()
	p[Ipsi]["IIa"] = Positive
	p[Contra]["Ia"] = Negative
	p[Contra]["Ib"] = Negative

	p.InferSuperlevels()

	assert.Equal(t, Positive, p[Ipsi]["II"])
	assert.Equal(t, Negative, p[Contra]["I"])
}

func TestCombinedInvolvement_HasInvolvement(t *testing.T) {
	ci := NewCombinedInvolvement()
	ci[Ipsi][1] = involvementWith(map[string]Ternary{"II": Negative})
	ci[Contra][1] = involvementWith(map[string]Ternary{"III": Positive})
	ci[Ipsi][2] = involvementWith(map[string]Ternary{"II": Negative})

	assert.True(t, ci.HasInvolvement(1), "contra positive counts")
	assert.False(t, ci.HasInvolvement(2), "all negative is not involved")
	assert.False(t, ci.HasInvolvement(99), "missing entries count as no involvement")
}
