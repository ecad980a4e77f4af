package service

import (
	"sort"
	"strings"

	"nvi/internal/candidate/models"
)

// criticalFieldsChanged reports whether a re-evaluation differs from the
// stored candidate in a way that can change which institutions are entitled
// to approve or how much is at stake: instance type, channel identity or
// level, or the creator identity/affiliation set. Publication date and point
// magnitudes alone are not critical.
func criticalFieldsChanged(old, next models.Candidate) bool {
	if old.InstanceType != next.InstanceType {
		return true
	}
	if old.Channel.ID != next.Channel.ID ||
		old.Channel.Type != next.Channel.Type ||
		old.Channel.ScientificValue != next.Channel.ScientificValue {
		return true
	}
	return creatorSetChanged(old.Creators, next.Creators)
}

// creatorSetChanged compares creators as a set of (identity, affiliation set)
// pairs; ordering of creators and of affiliations does not matter.
func creatorSetChanged(a, b []models.Creator) bool {
	return creatorSetKey(a) != creatorSetKey(b)
}

func creatorSetKey(creators []models.Creator) string {
	keys := make([]string, 0, len(creators))
	for _, c := range creators {
		affiliations := append([]string(nil), c.AffiliationIDs()...)
		sort.Strings(affiliations)
		keys = append(keys, models.CreatorIdentity(c)+"|"+strings.Join(affiliations, ","))
	}
	sort.Strings(keys)
	return strings.Join(keys, ";")
}

// reconcileApprovals derives the approval set for a re-scored candidate:
// institutions no longer present lose their approval, new institutions get a
// fresh New approval, and retained institutions keep their approval unless
// their point calculation changed, in which case it resets to New.
func reconcileApprovals(existing []models.Approval, old, next models.Candidate) (approvals []models.Approval, resets int) {
	byInstitution := make(map[string]models.Approval, len(existing))
	for _, a := range existing {
		byInstitution[a.InstitutionID] = a
	}

	out := make([]models.Approval, 0, len(next.InstitutionPoints))
	for _, ip := range next.InstitutionPoints {
		current, held := byInstitution[ip.InstitutionID]
		if !held {
			out = append(out, models.NewApproval(ip.InstitutionID))
			continue
		}
		oldPoints, hadPoints := old.PointsFor(ip.InstitutionID)
		if hadPoints && oldPoints.Equal(ip.Points) {
			out = append(out, current)
			continue
		}
		current.Reset()
		resets++
		out = append(out, current)
	}
	return out, resets
}
