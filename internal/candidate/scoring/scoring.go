// Package scoring implements the point calculation for publication channels,
// collaboration, and creator shares. It is pure: no I/O, no clocks, no
// randomness; affiliation resolution happens before this package is called.
package scoring

import (
	"math/big"
	"sort"

	"github.com/shopspring/decimal"

	"nvi/internal/candidate/models"
	pkgerrors "nvi/pkg/domain-errors"
)

// sqrtPrecision is the number of decimal digits carried through the square
// root and intermediate multiplications before the final rounding to scale 4.
const sqrtPrecision = 10

// Affiliation is one creator affiliation after organization resolution.
type Affiliation struct {
	// ID is the affiliation URI as it appeared on the publication.
	ID string
	// TopLevelInstitutionID is the resolved top-level organization, or empty
	// when the affiliation does not resolve to a stable institution.
	TopLevelInstitutionID string
	// Participating reports whether the institution takes part in the
	// reporting scheme.
	Participating bool
}

// Contributor is one creator with resolved affiliations. ID is empty for
// unverified creators; Identity falls back to the name in that case.
type Contributor struct {
	ID           string
	Name         string
	Role         string
	Affiliations []Affiliation
}

// Identity returns the discriminator used to key creator points.
func (c Contributor) Identity() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Name
}

// Verified reports whether the contributor has a stable identifier.
func (c Contributor) Verified() bool { return c.ID != "" }

// Input is everything the calculation needs.
type Input struct {
	InstanceType                 models.InstanceType
	Channels                     []models.Channel
	IsInternationalCollaboration bool
	Contributors                 []Contributor
}

// Result is the complete point calculation.
type Result struct {
	Channel             models.Channel
	BasePoints          decimal.Decimal
	CollaborationFactor decimal.Decimal
	CreatorShareCount   int
	InstitutionPoints   []models.InstitutionPoints
	TotalPoints         decimal.Decimal
}

// basePointsTable maps (instance type, channel type, level) to base points.
var basePointsTable = map[models.InstanceType]map[models.ChannelType]map[models.ScientificValue]decimal.Decimal{
	models.InstanceTypeAcademicArticle: {
		models.ChannelTypeJournal: {
			models.ScientificValueLevelOne: decimal.NewFromInt(1),
			models.ScientificValueLevelTwo: decimal.NewFromInt(3),
		},
	},
	models.InstanceTypeAcademicLiteratureReview: {
		models.ChannelTypeJournal: {
			models.ScientificValueLevelOne: decimal.NewFromInt(1),
			models.ScientificValueLevelTwo: decimal.NewFromInt(3),
		},
	},
	models.InstanceTypeAcademicMonograph: {
		models.ChannelTypePublisher: {
			models.ScientificValueLevelOne: decimal.NewFromInt(5),
			models.ScientificValueLevelTwo: decimal.NewFromInt(8),
		},
		models.ChannelTypeSeries: {
			models.ScientificValueLevelOne: decimal.NewFromInt(5),
			models.ScientificValueLevelTwo: decimal.NewFromInt(8),
		},
	},
	models.InstanceTypeAcademicCommentary: {
		models.ChannelTypePublisher: {
			models.ScientificValueLevelOne: decimal.NewFromInt(5),
			models.ScientificValueLevelTwo: decimal.NewFromInt(8),
		},
		models.ChannelTypeSeries: {
			models.ScientificValueLevelOne: decimal.NewFromInt(5),
			models.ScientificValueLevelTwo: decimal.NewFromInt(8),
		},
	},
	models.InstanceTypeAcademicChapter: {
		models.ChannelTypePublisher: {
			models.ScientificValueLevelOne: decimal.NewFromFloat(0.7),
			models.ScientificValueLevelTwo: decimal.NewFromInt(1),
		},
		models.ChannelTypeSeries: {
			models.ScientificValueLevelOne: decimal.NewFromInt(1),
			models.ScientificValueLevelTwo: decimal.NewFromInt(3),
		},
	},
}

var (
	collaborationFactorInternational = decimal.NewFromFloat(1.3)
	collaborationFactorNone          = decimal.NewFromInt(1)
)

// SelectChannel picks the channel that determines base points. Articles and
// reviews use the journal; monographs, commentaries, and chapters use the
// series when its scientific value is assigned, falling back to the publisher.
// A missing channel yields one with value Unassigned, never an error.
func SelectChannel(instanceType models.InstanceType, channels []models.Channel) models.Channel {
	find := func(t models.ChannelType) (models.Channel, bool) {
		for _, ch := range channels {
			if ch.Type == t {
				return ch, true
			}
		}
		return models.Channel{Type: t, ScientificValue: models.ScientificValueUnassigned}, false
	}

	switch instanceType {
	case models.InstanceTypeAcademicArticle, models.InstanceTypeAcademicLiteratureReview:
		ch, _ := find(models.ChannelTypeJournal)
		return ch
	default:
		if series, ok := find(models.ChannelTypeSeries); ok && series.ScientificValue.IsAssigned() {
			return series
		}
		ch, _ := find(models.ChannelTypePublisher)
		return ch
	}
}

// Calculate runs the full point calculation. It fails only for instance type /
// channel / level combinations outside the base points table; that failure is
// final and must not be retried.
func Calculate(in Input) (Result, error) {
	channel := SelectChannel(in.InstanceType, in.Channels)

	base, err := basePoints(in.InstanceType, channel)
	if err != nil {
		return Result{}, err
	}

	factor := collaborationFactorNone
	if in.IsInternationalCollaboration {
		factor = collaborationFactorInternational
	}

	shareCount := CountCreatorShares(in.Contributors)

	result := Result{
		Channel:             channel,
		BasePoints:          base,
		CollaborationFactor: factor,
		CreatorShareCount:   shareCount,
	}
	if shareCount == 0 {
		result.TotalPoints = decimal.Zero.Round(models.PointScale)
		return result, nil
	}

	creatorsByInstitution := groupCreatorsByInstitution(in.Contributors)

	institutionIDs := make([]string, 0, len(creatorsByInstitution))
	for id := range creatorsByInstitution {
		institutionIDs = append(institutionIDs, id)
	}
	sort.Strings(institutionIDs)

	total := decimal.Zero
	for _, institutionID := range institutionIDs {
		group := creatorsByInstitution[institutionID]
		points := institutionPoints(base, factor, len(group.creators), shareCount)
		total = total.Add(points)
		result.InstitutionPoints = append(result.InstitutionPoints, models.InstitutionPoints{
			InstitutionID: institutionID,
			Points:        points,
			CreatorPoints: creatorAffiliationPoints(points, group),
		})
	}
	// The stored total is the sum of the already rounded institution points,
	// never an independent recomputation.
	result.TotalPoints = total
	return result, nil
}

func basePoints(instanceType models.InstanceType, channel models.Channel) (decimal.Decimal, error) {
	byChannel, ok := basePointsTable[instanceType]
	if !ok {
		return decimal.Decimal{}, pkgerrors.Newf(pkgerrors.CodeUnsupported,
			"no base points for instance type %q", instanceType)
	}
	byLevel, ok := byChannel[channel.Type]
	if !ok {
		return decimal.Decimal{}, pkgerrors.Newf(pkgerrors.CodeUnsupported,
			"no base points for instance type %q in channel type %q", instanceType, channel.Type)
	}
	points, ok := byLevel[channel.ScientificValue]
	if !ok {
		return decimal.Decimal{}, pkgerrors.Newf(pkgerrors.CodeUnsupported,
			"no base points for %q in %q at level %q", instanceType, channel.Type, channel.ScientificValue)
	}
	return points, nil
}

// CountCreatorShares sums shares over contributors with the Creator role: one
// share for a creator with no affiliations, one share for a creator whose
// affiliations are unverified only, otherwise one share per distinct top-level
// institution the creator is affiliated with.
func CountCreatorShares(contributors []Contributor) int {
	total := 0
	for _, c := range contributors {
		if c.Role != models.RoleCreator {
			continue
		}
		total += creatorShares(c)
	}
	return total
}

func creatorShares(c Contributor) int {
	if len(c.Affiliations) == 0 {
		return 1
	}
	institutions := map[string]struct{}{}
	for _, a := range c.Affiliations {
		if a.TopLevelInstitutionID != "" {
			institutions[a.TopLevelInstitutionID] = struct{}{}
		}
	}
	if len(institutions) == 0 {
		return 1
	}
	return len(institutions)
}

// institutionGroup gathers everything needed to attribute points to one
// institution.
type institutionGroup struct {
	creators map[string]struct{}
	// entries keeps (creator, affiliation) pairs in contributor order.
	entries []creatorAffiliation
}

type creatorAffiliation struct {
	creatorID     string
	affiliationID string
}

// groupCreatorsByInstitution indexes participating top-level institutions by
// the distinct creators affiliated with them. Institutions without a verified
// creator are dropped: no institution is entitled to approve on the strength
// of unverified contributors alone.
func groupCreatorsByInstitution(contributors []Contributor) map[string]*institutionGroup {
	groups := map[string]*institutionGroup{}
	verified := map[string]bool{}

	for _, c := range contributors {
		if c.Role != models.RoleCreator {
			continue
		}
		seen := map[string]struct{}{}
		for _, a := range c.Affiliations {
			if a.TopLevelInstitutionID == "" || !a.Participating {
				continue
			}
			group, ok := groups[a.TopLevelInstitutionID]
			if !ok {
				group = &institutionGroup{creators: map[string]struct{}{}}
				groups[a.TopLevelInstitutionID] = group
			}
			group.creators[c.Identity()] = struct{}{}
			if c.Verified() {
				verified[a.TopLevelInstitutionID] = true
			}
			// One entry per distinct (creator, affiliation) pair.
			if _, dup := seen[a.ID]; !dup {
				seen[a.ID] = struct{}{}
				group.entries = append(group.entries, creatorAffiliation{
					creatorID:     c.Identity(),
					affiliationID: a.ID,
				})
			}
		}
	}

	for id := range groups {
		if !verified[id] {
			delete(groups, id)
		}
	}
	return groups
}

// institutionPoints computes base × factor × sqrt(creators/shares) at extended
// precision, rounded half up to the storage scale.
func institutionPoints(base, factor decimal.Decimal, institutionCreators, shareCount int) decimal.Decimal {
	ratio := decimal.NewFromInt(int64(institutionCreators)).
		DivRound(decimal.NewFromInt(int64(shareCount)), sqrtPrecision)
	return base.Mul(factor).Mul(sqrtDecimal(ratio)).Round(models.PointScale)
}

// sqrtDecimal takes the square root through big.Float with enough mantissa
// bits for ten significant decimal digits.
func sqrtDecimal(d decimal.Decimal) decimal.Decimal {
	f := new(big.Float).SetPrec(100)
	f.SetString(d.String())
	root := new(big.Float).SetPrec(100).Sqrt(f)
	out, err := decimal.NewFromString(root.Text('f', sqrtPrecision))
	if err != nil {
		// Unreachable for non-negative ratios.
		return decimal.Zero
	}
	return out
}

// creatorAffiliationPoints splits an institution's points evenly over its
// distinct creators; a creator with several affiliations under the same
// institution repeats its share per affiliation entry.
func creatorAffiliationPoints(points decimal.Decimal, group *institutionGroup) []models.CreatorAffiliationPoints {
	perCreator := points.DivRound(decimal.NewFromInt(int64(len(group.creators))), models.PointScale)
	out := make([]models.CreatorAffiliationPoints, 0, len(group.entries))
	for _, e := range group.entries {
		out = append(out, models.CreatorAffiliationPoints{
			CreatorID:     e.creatorID,
			AffiliationID: e.affiliationID,
			Points:        perCreator,
		})
	}
	return out
}
