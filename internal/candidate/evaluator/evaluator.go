// Package evaluator assembles scoring output and publication metadata into an
// evaluation result, applying the applicability rule: a publication is a
// candidate only when at least one verified creator is affiliated with a
// participating top-level institution.
package evaluator

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"nvi/internal/candidate/models"
	"nvi/internal/candidate/scoring"
	"nvi/internal/organization"
)

// maxConcurrentResolutions bounds parallel registry calls per publication.
const maxConcurrentResolutions = 8

// Evaluator turns publication metadata into an evaluation result.
type Evaluator struct {
	resolver organization.Resolver
	logger   *slog.Logger
}

// New builds an Evaluator.
func New(resolver organization.Resolver, logger *slog.Logger) *Evaluator {
	return &Evaluator{resolver: resolver, logger: logger}
}

// resolvedAffiliation is the registry view of one affiliation URI.
type resolvedAffiliation struct {
	topLevelID    string
	participating bool
}

// Evaluate validates the metadata, resolves affiliations, and computes points.
// A publication outside the scheme yields a NonCandidateEvaluation; registry
// failures and unsupported scoring input are returned as errors.
func (e *Evaluator) Evaluate(ctx context.Context, meta models.PublicationMetadata) (models.Evaluation, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	instanceType, covered := models.ParseInstanceType(meta.InstanceType)
	if !covered {
		return models.NonCandidateEvaluation{ID: meta.PublicationID}, nil
	}

	channel := scoring.SelectChannel(instanceType, meta.Channels)
	if !channel.ScientificValue.IsAssigned() {
		// A venue without an assessed level earns nothing; not an error.
		return models.NonCandidateEvaluation{ID: meta.PublicationID}, nil
	}

	resolved, err := e.resolveAffiliations(ctx, meta.Creators)
	if err != nil {
		return nil, err
	}

	contributors := buildContributors(meta.Creators, resolved)
	if !hasQualifyingCreator(contributors) {
		return models.NonCandidateEvaluation{ID: meta.PublicationID}, nil
	}

	calc, err := scoring.Calculate(scoring.Input{
		InstanceType:                 instanceType,
		Channels:                     meta.Channels,
		IsInternationalCollaboration: meta.IsInternationalCollaboration,
		Contributors:                 contributors,
	})
	if err != nil {
		return nil, err
	}
	if len(calc.InstitutionPoints) == 0 {
		return models.NonCandidateEvaluation{ID: meta.PublicationID}, nil
	}

	candidate := models.Candidate{
		PublicationID:                meta.PublicationID,
		PublicationBucketURI:         meta.PublicationBucketURI,
		Applicable:                   true,
		InstanceType:                 instanceType,
		Channel:                      calc.Channel,
		PublicationDate:              meta.PublicationDate,
		ReportingYear:                meta.PublicationDate.Year,
		Creators:                     meta.Creators,
		IsInternationalCollaboration: meta.IsInternationalCollaboration,
		CollaborationFactor:          calc.CollaborationFactor,
		BasePoints:                   calc.BasePoints,
		CreatorShareCount:            calc.CreatorShareCount,
		InstitutionPoints:            calc.InstitutionPoints,
		TotalPoints:                  calc.TotalPoints,
	}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	e.logger.DebugContext(ctx, "publication evaluated",
		"publication_id", meta.PublicationID,
		"institutions", len(candidate.InstitutionPoints),
		"total_points", candidate.TotalPoints.String(),
	)
	return models.CandidateEvaluation{Candidate: candidate}, nil
}

// resolveAffiliations resolves every distinct affiliation URI concurrently.
// The first registry failure cancels the rest; resolution errors are
// retryable by the message-processing boundary.
func (e *Evaluator) resolveAffiliations(ctx context.Context, creators []models.Creator) (map[string]resolvedAffiliation, error) {
	distinct := map[string]struct{}{}
	for _, c := range creators {
		for _, aff := range c.AffiliationIDs() {
			if aff != "" {
				distinct[aff] = struct{}{}
			}
		}
	}

	resolved := make(map[string]resolvedAffiliation, len(distinct))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentResolutions)
	for aff := range distinct {
		aff := aff
		g.Go(func() error {
			ra, err := e.resolveOne(ctx, aff)
			if err != nil {
				return err
			}
			mu.Lock()
			resolved[aff] = ra
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resolved, nil
}

func (e *Evaluator) resolveOne(ctx context.Context, affiliationID string) (resolvedAffiliation, error) {
	org, err := e.resolver.ResolveTopLevelOrganization(ctx, affiliationID)
	if err != nil {
		return resolvedAffiliation{}, err
	}
	if org.ID == "" {
		// Affiliation without a stable institution; counts as unverified.
		return resolvedAffiliation{}, nil
	}
	participating, err := e.resolver.IsParticipatingInstitution(ctx, org.ID)
	if err != nil {
		return resolvedAffiliation{}, err
	}
	return resolvedAffiliation{topLevelID: org.ID, participating: participating}, nil
}

func buildContributors(creators []models.Creator, resolved map[string]resolvedAffiliation) []scoring.Contributor {
	contributors := make([]scoring.Contributor, 0, len(creators))
	for _, c := range creators {
		contributor := scoring.Contributor{Role: c.Role()}
		switch v := c.(type) {
		case models.VerifiedCreator:
			contributor.ID = v.ID
		case models.UnverifiedCreator:
			contributor.Name = v.Name
		}
		for _, aff := range c.AffiliationIDs() {
			ra := resolved[aff]
			contributor.Affiliations = append(contributor.Affiliations, scoring.Affiliation{
				ID:                    aff,
				TopLevelInstitutionID: ra.topLevelID,
				Participating:         ra.participating,
			})
		}
		contributors = append(contributors, contributor)
	}
	return contributors
}

func hasQualifyingCreator(contributors []scoring.Contributor) bool {
	for _, c := range contributors {
		if !c.Verified() || c.Role != models.RoleCreator {
			continue
		}
		for _, a := range c.Affiliations {
			if a.TopLevelInstitutionID != "" && a.Participating {
				return true
			}
		}
	}
	return false
}
