// Package repository provides the PatientStore implementations: a postgres
// store on pgx for production deployments and an embedded sqlite store for
// small installations and tests.
package repository

import (
	"strings"

	"github.com/lyprox-dashboard-server/internal/domain"
)

// lnlColumns maps the configured lymph node levels onto their database
// column names, in LNL order. The columns are nullable booleans; NULL means
// the level was not assessed.
func lnlColumns() []string {
	cols := make([]string, len(domain.LNLs))
	for i, lnl := range domain.LNLs {
		cols[i] = "lvl_" + strings.ToLower(lnl)
	}
	return cols
}

// involvementFromPtrs builds an involvement row from scanned nullable
// booleans, in LNL order.
func involvementFromPtrs(vals []*bool) domain.Involvement {
	inv := domain.NewInvolvement()
	for i, lnl := range domain.LNLs {
		inv[lnl] = domain.TernaryFromPtr(vals[i])
	}
	return inv
}

// involvementToPtrs flattens an involvement row to nullable booleans, in
// LNL order.
func involvementToPtrs(inv domain.Involvement) []any {
	vals := make([]any, len(domain.LNLs))
	for i, lnl := range domain.LNLs {
		vals[i] = inv[lnl].Ptr()
	}
	return vals
}

// deriveLocation fills the tumor's location from its subsite code. It
// reports whether the derivation succeeded; failure is a recoverable
// data-quality problem, not an error.
func deriveLocation(t *domain.Tumor) bool {
	loc, ok := domain.LocationForSubsite(t.Subsite)
	if ok {
		t.Location = loc
	}
	return ok
}
