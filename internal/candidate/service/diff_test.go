package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nvi/internal/candidate/models"
)

func baseCandidate() models.Candidate {
	return models.Candidate{
		PublicationID: "pub-1",
		InstanceType:  models.InstanceTypeAcademicArticle,
		Channel:       models.Channel{ID: "jnl", Type: models.ChannelTypeJournal, ScientificValue: models.ScientificValueLevelOne},
		Creators: []models.Creator{
			models.VerifiedCreator{ID: "c1", CreatorRole: models.RoleCreator, Affiliations: []string{"a1", "a2"}},
		},
	}
}

func TestCriticalFieldsChanged(t *testing.T) {
	t.Run("identical candidates are not critical", func(t *testing.T) {
		assert.False(t, criticalFieldsChanged(baseCandidate(), baseCandidate()))
	})

	t.Run("publication date is never critical", func(t *testing.T) {
		next := baseCandidate()
		next.PublicationDate = models.PublicationDate{Year: "2025", Month: "12"}
		assert.False(t, criticalFieldsChanged(baseCandidate(), next))
	})

	t.Run("instance type change is critical", func(t *testing.T) {
		next := baseCandidate()
		next.InstanceType = models.InstanceTypeAcademicLiteratureReview
		assert.True(t, criticalFieldsChanged(baseCandidate(), next))
	})

	t.Run("channel level change is critical", func(t *testing.T) {
		next := baseCandidate()
		next.Channel.ScientificValue = models.ScientificValueLevelTwo
		assert.True(t, criticalFieldsChanged(baseCandidate(), next))
	})

	t.Run("channel identity change is critical", func(t *testing.T) {
		next := baseCandidate()
		next.Channel.ID = "other-jnl"
		assert.True(t, criticalFieldsChanged(baseCandidate(), next))
	})

	t.Run("creator affiliation change is critical", func(t *testing.T) {
		next := baseCandidate()
		next.Creators = []models.Creator{
			models.VerifiedCreator{ID: "c1", CreatorRole: models.RoleCreator, Affiliations: []string{"a1"}},
		}
		assert.True(t, criticalFieldsChanged(baseCandidate(), next))
	})

	t.Run("affiliation order does not matter", func(t *testing.T) {
		next := baseCandidate()
		next.Creators = []models.Creator{
			models.VerifiedCreator{ID: "c1", CreatorRole: models.RoleCreator, Affiliations: []string{"a2", "a1"}},
		}
		assert.False(t, criticalFieldsChanged(baseCandidate(), next))
	})
}

func TestReconcileApprovals(t *testing.T) {
	institution := func(id, points string) models.InstitutionPoints {
		return models.InstitutionPoints{InstitutionID: id, Points: decimal.RequireFromString(points)}
	}
	approved := func(inst string) models.Approval {
		a := models.NewApproval(inst)
		require.NoError(t, a.Assign("alice"))
		return a
	}

	t.Run("unchanged points keep the approval as is", func(t *testing.T) {
		old := models.Candidate{InstitutionPoints: []models.InstitutionPoints{institution("inst-a", "1.0000")}}
		next := models.Candidate{InstitutionPoints: []models.InstitutionPoints{institution("inst-a", "1.0000")}}

		out, resets := reconcileApprovals([]models.Approval{approved("inst-a")}, old, next)
		require.Len(t, out, 1)
		assert.Zero(t, resets)
		assert.Equal(t, models.ApprovalStatusPending, out[0].Status)
	})

	t.Run("changed points reset only that institution", func(t *testing.T) {
		old := models.Candidate{InstitutionPoints: []models.InstitutionPoints{
			institution("inst-a", "1.0000"), institution("inst-b", "1.0000"),
		}}
		next := models.Candidate{InstitutionPoints: []models.InstitutionPoints{
			institution("inst-a", "3.0000"), institution("inst-b", "1.0000"),
		}}

		out, resets := reconcileApprovals([]models.Approval{approved("inst-a"), approved("inst-b")}, old, next)
		require.Len(t, out, 2)
		assert.Equal(t, 1, resets)
		assert.Equal(t, models.ApprovalStatusNew, out[0].Status)
		assert.Equal(t, models.ApprovalStatusPending, out[1].Status)
	})

	t.Run("new institution gets a fresh approval", func(t *testing.T) {
		old := models.Candidate{InstitutionPoints: []models.InstitutionPoints{institution("inst-a", "1.0000")}}
		next := models.Candidate{InstitutionPoints: []models.InstitutionPoints{
			institution("inst-a", "1.0000"), institution("inst-b", "1.0000"),
		}}

		out, resets := reconcileApprovals([]models.Approval{approved("inst-a")}, old, next)
		require.Len(t, out, 2)
		assert.Zero(t, resets)
		assert.Equal(t, models.ApprovalStatusNew, out[1].Status)
		assert.Empty(t, out[1].Assignee)
	})

	t.Run("removed institution is dropped", func(t *testing.T) {
		old := models.Candidate{InstitutionPoints: []models.InstitutionPoints{
			institution("inst-a", "1.0000"), institution("inst-b", "1.0000"),
		}}
		next := models.Candidate{InstitutionPoints: []models.InstitutionPoints{institution("inst-a", "1.0000")}}

		out, _ := reconcileApprovals([]models.Approval{approved("inst-a"), approved("inst-b")}, old, next)
		require.Len(t, out, 1)
		assert.Equal(t, "inst-a", out[0].InstitutionID)
	})
}
