package evaluator

//go:generate mockgen -source=../../organization/resolver.go -destination=../../organization/mocks/mocks.go -package=mocks Resolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"nvi/internal/candidate/models"
	"nvi/internal/organization"
	"nvi/internal/organization/mocks"
	pkgerrors "nvi/pkg/domain-errors"
)

type EvaluatorSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	resolver  *mocks.MockResolver
	evaluator *Evaluator
	ctx       context.Context
}

func (s *EvaluatorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.resolver = mocks.NewMockResolver(s.ctrl)
	s.evaluator = New(s.resolver, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.ctx = context.Background()
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorSuite))
}

func (s *EvaluatorSuite) metadata() models.PublicationMetadata {
	return models.PublicationMetadata{
		PublicationID:   "https://api.example.org/publication/1",
		InstanceType:    "AcademicArticle",
		PublicationDate: models.PublicationDate{Year: "2026"},
		Channels: []models.Channel{
			{ID: "jnl", Type: models.ChannelTypeJournal, ScientificValue: models.ScientificValueLevelOne},
		},
		Creators: []models.Creator{
			models.VerifiedCreator{ID: "c1", CreatorRole: models.RoleCreator, Affiliations: []string{"inst-a/dept"}},
		},
	}
}

func (s *EvaluatorSuite) expectResolution(affiliationID, topLevelID string, participating bool) {
	s.resolver.EXPECT().
		ResolveTopLevelOrganization(gomock.Any(), affiliationID).
		Return(organization.Organization{ID: topLevelID}, nil)
	if topLevelID != "" {
		s.resolver.EXPECT().
			IsParticipatingInstitution(gomock.Any(), topLevelID).
			Return(participating, nil)
	}
}

func (s *EvaluatorSuite) TestEvaluateCandidate() {
	s.Run("qualifying publication becomes a candidate", func() {
		s.expectResolution("inst-a/dept", "inst-a", true)

		eval, err := s.evaluator.Evaluate(s.ctx, s.metadata())
		s.Require().NoError(err)

		candidate, ok := eval.(models.CandidateEvaluation)
		s.Require().True(ok, "expected a candidate evaluation, got %T", eval)
		s.True(candidate.Candidate.Applicable)
		s.Equal("2026", candidate.Candidate.ReportingYear)
		s.Require().Len(candidate.Candidate.InstitutionPoints, 1)
		s.Equal("inst-a", candidate.Candidate.InstitutionPoints[0].InstitutionID)
		s.True(candidate.Candidate.TotalPoints.Equal(decimal.RequireFromString("1.0000")))
	})

	s.Run("each distinct affiliation is resolved once", func() {
		meta := s.metadata()
		meta.Creators = []models.Creator{
			models.VerifiedCreator{ID: "c1", CreatorRole: models.RoleCreator, Affiliations: []string{"inst-a/dept"}},
			models.VerifiedCreator{ID: "c2", CreatorRole: models.RoleCreator, Affiliations: []string{"inst-a/dept"}},
		}
		s.expectResolution("inst-a/dept", "inst-a", true)

		eval, err := s.evaluator.Evaluate(s.ctx, meta)
		s.Require().NoError(err)
		s.IsType(models.CandidateEvaluation{}, eval)
	})
}

func (s *EvaluatorSuite) TestEvaluateNonCandidate() {
	s.Run("uncovered instance type", func() {
		meta := s.metadata()
		meta.InstanceType = "DataSet"

		eval, err := s.evaluator.Evaluate(s.ctx, meta)
		s.Require().NoError(err)
		s.Equal(models.NonCandidateEvaluation{ID: meta.PublicationID}, eval)
	})

	s.Run("unassigned channel level", func() {
		meta := s.metadata()
		meta.Channels[0].ScientificValue = models.ScientificValueUnassigned

		eval, err := s.evaluator.Evaluate(s.ctx, meta)
		s.Require().NoError(err)
		s.IsType(models.NonCandidateEvaluation{}, eval)
	})

	s.Run("no verified creator at a participating institution", func() {
		meta := s.metadata()
		s.expectResolution("inst-a/dept", "inst-a", false)

		eval, err := s.evaluator.Evaluate(s.ctx, meta)
		s.Require().NoError(err)
		s.IsType(models.NonCandidateEvaluation{}, eval)
	})

	s.Run("only unverified creators qualify nothing", func() {
		meta := s.metadata()
		meta.Creators = []models.Creator{
			models.UnverifiedCreator{Name: "N. N.", CreatorRole: models.RoleCreator, Affiliations: []string{"inst-a/dept"}},
		}
		s.expectResolution("inst-a/dept", "inst-a", true)

		eval, err := s.evaluator.Evaluate(s.ctx, meta)
		s.Require().NoError(err)
		s.IsType(models.NonCandidateEvaluation{}, eval)
	})

	s.Run("affiliation without a stable institution counts as unresolved", func() {
		meta := s.metadata()
		s.expectResolution("inst-a/dept", "", false)

		eval, err := s.evaluator.Evaluate(s.ctx, meta)
		s.Require().NoError(err)
		s.IsType(models.NonCandidateEvaluation{}, eval)
	})
}

func (s *EvaluatorSuite) TestEvaluateErrors() {
	s.Run("invalid metadata is a validation error", func() {
		meta := s.metadata()
		meta.PublicationID = ""

		_, err := s.evaluator.Evaluate(s.ctx, meta)
		s.Require().Error(err)
		s.Equal(pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	})

	s.Run("registry failure propagates as retryable", func() {
		meta := s.metadata()
		s.resolver.EXPECT().
			ResolveTopLevelOrganization(gomock.Any(), "inst-a/dept").
			Return(organization.Organization{}, pkgerrors.Wrap(pkgerrors.CodeDependency, "registry", errors.New("boom")))

		_, err := s.evaluator.Evaluate(s.ctx, meta)
		s.Require().Error(err)
		s.True(pkgerrors.IsRetryable(err))
	})
}
