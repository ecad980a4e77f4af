package models

// RoleCreator is the contributor role that earns shares. Other roles (editors,
// supervisors) are carried on the candidate but never counted.
const RoleCreator = "Creator"

// Creator is a sealed union: a contributor is either verified (stable id) or
// unverified (name only). Matching code switches on the concrete type and must
// handle both arms.
type Creator interface {
	// AffiliationIDs lists the contributor's affiliation URIs.
	AffiliationIDs() []string
	// Role returns the contributor role, e.g. "Creator".
	Role() string

	creator()
}

// VerifiedCreator is a contributor with a stable identifier.
type VerifiedCreator struct {
	ID           string
	CreatorRole  string
	Affiliations []string
}

func (c VerifiedCreator) AffiliationIDs() []string { return c.Affiliations }
func (c VerifiedCreator) Role() string             { return c.CreatorRole }
func (c VerifiedCreator) creator()                 {}

// UnverifiedCreator is a contributor known only by name.
type UnverifiedCreator struct {
	Name         string
	CreatorRole  string
	Affiliations []string
}

func (c UnverifiedCreator) AffiliationIDs() []string { return c.Affiliations }
func (c UnverifiedCreator) Role() string             { return c.CreatorRole }
func (c UnverifiedCreator) creator()                 {}

// CreatorIdentity returns the discriminator value of a creator: the stable id
// for verified creators, the name for unverified ones.
func CreatorIdentity(c Creator) string {
	switch v := c.(type) {
	case VerifiedCreator:
		return v.ID
	case UnverifiedCreator:
		return v.Name
	}
	return ""
}
