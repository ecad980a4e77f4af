package models

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	pkgerrors "nvi/pkg/domain-errors"
)

// PointScale is the storage scale for all point values.
const PointScale = 4

var yearPattern = regexp.MustCompile(`^\d{4}$`)

// PublicationDate carries at least a year; month and day are optional.
type PublicationDate struct {
	Year  string
	Month string
	Day   string
}

// Validate checks that the year is a four digit string.
func (d PublicationDate) Validate() error {
	if !yearPattern.MatchString(d.Year) {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "publication year %q is not a four digit year", d.Year)
	}
	return nil
}

// CreatorAffiliationPoints is the share of an institution's points attributed
// to one creator's affiliation with it.
type CreatorAffiliationPoints struct {
	CreatorID     string
	AffiliationID string
	Points        decimal.Decimal
}

// InstitutionPoints is one institution's share of a candidate's total points.
type InstitutionPoints struct {
	InstitutionID string
	Points        decimal.Decimal
	CreatorPoints []CreatorAffiliationPoints
}

// Candidate is the durable evaluation record for one publication.
type Candidate struct {
	PublicationID                string
	PublicationBucketURI         string
	Applicable                   bool
	InstanceType                 InstanceType
	Channel                      Channel
	PublicationDate              PublicationDate
	ReportingYear                string
	Creators                     []Creator
	IsInternationalCollaboration bool
	CollaborationFactor          decimal.Decimal
	BasePoints                   decimal.Decimal
	CreatorShareCount            int
	InstitutionPoints            []InstitutionPoints
	TotalPoints                  decimal.Decimal
}

// InstitutionIDs returns the institutions currently entitled to approve, in
// the order they were scored.
func (c *Candidate) InstitutionIDs() []string {
	ids := make([]string, 0, len(c.InstitutionPoints))
	for _, ip := range c.InstitutionPoints {
		ids = append(ids, ip.InstitutionID)
	}
	return ids
}

// PointsFor returns the points for one institution and whether it is present.
func (c *Candidate) PointsFor(institutionID string) (decimal.Decimal, bool) {
	for _, ip := range c.InstitutionPoints {
		if ip.InstitutionID == institutionID {
			return ip.Points, true
		}
	}
	return decimal.Decimal{}, false
}

// Validate enforces the aggregate invariants before a candidate is persisted:
// the total must equal the sum of institution points, and applicability must
// match the presence of institution points.
func (c *Candidate) Validate() error {
	if c.PublicationID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "publication id is required")
	}
	if err := c.PublicationDate.Validate(); err != nil {
		return err
	}
	if c.Applicable != (len(c.InstitutionPoints) > 0) {
		return pkgerrors.Newf(pkgerrors.CodeValidation,
			"applicable=%t does not match %d institution point entries", c.Applicable, len(c.InstitutionPoints))
	}
	sum := decimal.Zero
	for _, ip := range c.InstitutionPoints {
		if ip.InstitutionID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "institution id is required on institution points")
		}
		sum = sum.Add(ip.Points)
	}
	if !sum.Equal(c.TotalPoints) {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("total points %s does not equal institution sum %s", c.TotalPoints, sum))
	}
	return nil
}
