// Package period manages reporting periods: the window in which institutions
// may assign and finalize approvals for publications of a given year.
package period

import (
	"regexp"
	"time"

	pkgerrors "nvi/pkg/domain-errors"
)

var yearPattern = regexp.MustCompile(`^\d{4}$`)

// Period is the reporting window for one publishing year.
type Period struct {
	PublishingYear string
	StartDate      time.Time
	ReportingDate  time.Time
}

// Validate enforces the structural rules: a four digit year and a start date
// strictly before the reporting date.
func (p Period) Validate() error {
	if !yearPattern.MatchString(p.PublishingYear) {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "publishing year %q is not a four digit year", p.PublishingYear)
	}
	if p.StartDate.IsZero() || p.ReportingDate.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "start date and reporting date are required")
	}
	if !p.StartDate.Before(p.ReportingDate) {
		return pkgerrors.New(pkgerrors.CodeValidation, "start date must be before reporting date")
	}
	return nil
}

// IsOpen reports whether the period accepts approval changes at the given
// time.
func (p Period) IsOpen(now time.Time) bool {
	return !now.Before(p.StartDate) && !now.After(p.ReportingDate)
}
