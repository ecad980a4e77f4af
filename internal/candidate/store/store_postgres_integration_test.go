//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"nvi/internal/candidate/models"
	"nvi/pkg/platform/sentinel"
	"nvi/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *PostgresStore
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(Migrate(s.ctx, s.postgres.DB))
	s.store = NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "approvals", "candidates"))
}

func (s *PostgresStoreSuite) newCandidate(publicationID string, institutions ...string) (models.Candidate, []models.Approval) {
	c := models.Candidate{
		PublicationID:       publicationID,
		Applicable:          len(institutions) > 0,
		InstanceType:        models.InstanceTypeAcademicArticle,
		Channel:             models.Channel{ID: "jnl", Type: models.ChannelTypeJournal, ScientificValue: models.ScientificValueLevelOne},
		PublicationDate:     models.PublicationDate{Year: "2026"},
		ReportingYear:       "2026",
		CollaborationFactor: decimal.NewFromInt(1),
		BasePoints:          decimal.NewFromInt(1),
	}
	points := decimal.RequireFromString("0.7071")
	total := decimal.Zero
	approvals := make([]models.Approval, 0, len(institutions))
	for _, inst := range institutions {
		c.InstitutionPoints = append(c.InstitutionPoints, models.InstitutionPoints{
			InstitutionID: inst, Points: points,
		})
		total = total.Add(points)
		approvals = append(approvals, models.NewApproval(inst))
	}
	c.TotalPoints = total
	return c, approvals
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	s.Run("round-trips candidate, points, and approvals", func() {
		candidate, approvals := s.newCandidate("pub-1", "inst-a", "inst-b")
		version, err := s.store.Create(s.ctx, candidate, approvals)
		s.Require().NoError(err)
		s.Require().NotEmpty(version)

		rec, err := s.store.FindByPublicationID(s.ctx, "pub-1")
		s.Require().NoError(err)
		s.Equal(version, rec.Version)
		s.True(rec.Candidate.TotalPoints.Equal(candidate.TotalPoints))
		s.Require().Len(rec.Approvals, 2)
		s.Equal("inst-a", rec.Approvals[0].InstitutionID)
		s.Equal(models.ApprovalStatusNew, rec.Approvals[0].Status)
	})

	s.Run("missing candidate yields ErrNotFound", func() {
		_, err := s.store.FindByPublicationID(s.ctx, "missing")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("concurrent create loses with ErrAlreadyExists", func() {
		candidate, approvals := s.newCandidate("pub-dup", "inst-a")
		_, err := s.store.Create(s.ctx, candidate, approvals)
		s.Require().NoError(err)

		_, err = s.store.Create(s.ctx, candidate, approvals)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyExists)
	})
}

func (s *PostgresStoreSuite) TestUpdate() {
	s.Run("conditional update rotates the version and reconciles approvals", func() {
		candidate, approvals := s.newCandidate("pub-2", "inst-a", "inst-b")
		v1, err := s.store.Create(s.ctx, candidate, approvals)
		s.Require().NoError(err)

		next, nextApprovals := s.newCandidate("pub-2", "inst-b", "inst-c")
		v2, err := s.store.Update(s.ctx, next, nextApprovals, v1)
		s.Require().NoError(err)
		s.NotEqual(v1, v2)

		rec, err := s.store.FindByPublicationID(s.ctx, "pub-2")
		s.Require().NoError(err)
		s.Require().Len(rec.Approvals, 2)
		s.Equal("inst-b", rec.Approvals[0].InstitutionID)
		s.Equal("inst-c", rec.Approvals[1].InstitutionID)
	})

	s.Run("stale version is a conflict, not a silent overwrite", func() {
		candidate, approvals := s.newCandidate("pub-3", "inst-a")
		v1, err := s.store.Create(s.ctx, candidate, approvals)
		s.Require().NoError(err)

		_, err = s.store.Update(s.ctx, candidate, approvals, v1)
		s.Require().NoError(err)

		_, err = s.store.Update(s.ctx, candidate, approvals, v1)
		s.Require().ErrorIs(err, sentinel.ErrVersionConflict)
	})

	s.Run("updating a missing candidate yields ErrNotFound", func() {
		candidate, approvals := s.newCandidate("pub-ghost", "inst-a")
		_, err := s.store.Update(s.ctx, candidate, approvals, "no-such-version")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestSaveApproval() {
	s.Run("persists finalization fields", func() {
		candidate, approvals := s.newCandidate("pub-4", "inst-a")
		v1, err := s.store.Create(s.ctx, candidate, approvals)
		s.Require().NoError(err)

		approval := approvals[0]
		finalizedAt := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
		s.Require().NoError(approval.Finalize(models.ApprovalStatusRejected, "alice", "wrong venue", finalizedAt))

		v2, err := s.store.SaveApproval(s.ctx, "pub-4", approval, v1)
		s.Require().NoError(err)
		s.NotEqual(v1, v2)

		rec, err := s.store.FindByPublicationID(s.ctx, "pub-4")
		s.Require().NoError(err)
		saved := rec.Approvals[0]
		s.Equal(models.ApprovalStatusRejected, saved.Status)
		s.Equal("alice", saved.FinalizedBy)
		s.Equal("wrong venue", saved.Reason)
		s.Require().NotNil(saved.FinalizedDate)
		s.True(saved.FinalizedDate.Equal(finalizedAt))
	})

	s.Run("stale version conflicts without touching the approval", func() {
		candidate, approvals := s.newCandidate("pub-5", "inst-a")
		v1, err := s.store.Create(s.ctx, candidate, approvals)
		s.Require().NoError(err)

		_, err = s.store.SaveApproval(s.ctx, "pub-5", approvals[0], v1)
		s.Require().NoError(err)

		changed := approvals[0]
		s.Require().NoError(changed.Assign("bob"))
		_, err = s.store.SaveApproval(s.ctx, "pub-5", changed, v1)
		s.Require().ErrorIs(err, sentinel.ErrVersionConflict)

		rec, err := s.store.FindByPublicationID(s.ctx, "pub-5")
		s.Require().NoError(err)
		s.Equal(models.ApprovalStatusNew, rec.Approvals[0].Status)
	})
}
