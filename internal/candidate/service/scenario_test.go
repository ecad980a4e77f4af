package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"nvi/internal/candidate/models"
	"nvi/internal/candidate/store"
	"nvi/internal/period"
	"nvi/pkg/requestcontext"
	"nvi/pkg/testutil"
)

// TestReScoredCandidateScenario walks the full approval lifecycle of a
// candidate that is re-evaluated at a higher channel level after one
// institution already approved it.
func TestReScoredCandidateScenario(t *testing.T) {
	st := store.NewMemoryStore()
	periods := period.NewService(period.NewMemoryStore())
	svc := New(st, periods, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx := requestcontext.WithTime(context.Background(), testNow)
	_, err := periods.Create(ctx, period.Period{
		PublishingYear: "2026",
		StartDate:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ReportingDate:  time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	eval := func(level models.ScientificValue, pointsPerInstitution string) models.CandidateEvaluation {
		points := decimal.RequireFromString(pointsPerInstitution)
		c := models.Candidate{
			PublicationID:       "pub-rescored",
			Applicable:          true,
			InstanceType:        models.InstanceTypeAcademicArticle,
			Channel:             models.Channel{ID: "jnl", Type: models.ChannelTypeJournal, ScientificValue: level},
			PublicationDate:     models.PublicationDate{Year: "2026"},
			ReportingYear:       "2026",
			CollaborationFactor: decimal.NewFromInt(1),
			BasePoints:          decimal.NewFromInt(1),
			CreatorShareCount:   2,
		}
		for _, inst := range []string{"inst-a", "inst-b"} {
			c.Creators = append(c.Creators, models.VerifiedCreator{
				ID: "creator-" + inst, CreatorRole: models.RoleCreator, Affiliations: []string{inst + "/dept"},
			})
			c.InstitutionPoints = append(c.InstitutionPoints, models.InstitutionPoints{
				InstitutionID: inst,
				Points:        points,
			})
			c.TotalPoints = c.TotalPoints.Add(points)
		}
		return models.CandidateEvaluation{Candidate: c}
	}

	testutil.Given(t, "a two-institution candidate approved by one of them", func(t *testing.T) {
		_, err := svc.Upsert(ctx, eval(models.ScientificValueLevelOne, "0.7071"))
		require.NoError(t, err)

		userCtx := requestcontext.WithUsername(ctx, "reviewer@inst-a")
		rec, err := svc.UpdateApprovalStatus(userCtx, "pub-rescored", "inst-a", ApprovalUpdate{
			Status: models.ApprovalStatusApproved,
		})
		require.NoError(t, err)
		for _, a := range rec.Approvals {
			if a.InstitutionID == "inst-a" {
				require.Equal(t, models.ApprovalStatusApproved, a.Status)
			}
		}
	})

	testutil.When(t, "a re-evaluation at a higher level changes both institutions' points", func(t *testing.T) {
		_, err := svc.Upsert(ctx, eval(models.ScientificValueLevelTwo, "2.1213"))
		require.NoError(t, err)
	})

	testutil.Then(t, "the earlier approval is reset and review starts over", func(t *testing.T) {
		rec, err := svc.Get(ctx, "pub-rescored")
		require.NoError(t, err)
		require.Len(t, rec.Approvals, 2)
		for _, a := range rec.Approvals {
			require.Equal(t, models.ApprovalStatusNew, a.Status)
			require.Empty(t, a.FinalizedBy)
		}
		require.Equal(t, "4.2426", rec.Candidate.TotalPoints.StringFixed(4))
	})
}
