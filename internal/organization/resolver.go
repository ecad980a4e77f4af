// Package organization resolves publication affiliations to top-level
// organizations and answers whether an institution participates in the
// reporting scheme. Resolution is an external dependency; every failure from
// this package is retryable.
package organization

import (
	"context"
)

// Organization is a node in the organization hierarchy.
type Organization struct {
	ID      string   `json:"id"`
	PartOf  []string `json:"partOf,omitempty"`
	HasPart []string `json:"hasPart,omitempty"`
}

// TopLevel reports whether the organization has no parent.
func (o Organization) TopLevel() bool { return len(o.PartOf) == 0 }

// Resolver is the port the evaluator depends on.
type Resolver interface {
	// ResolveTopLevelOrganization walks the hierarchy from an affiliation URI
	// to its top-level organization.
	ResolveTopLevelOrganization(ctx context.Context, affiliationID string) (Organization, error)

	// IsParticipatingInstitution reports whether a top-level organization
	// takes part in the reporting scheme.
	IsParticipatingInstitution(ctx context.Context, orgID string) (bool, error)
}
