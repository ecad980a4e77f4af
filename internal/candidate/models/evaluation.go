package models

import (
	pkgerrors "nvi/pkg/domain-errors"
)

// PublicationMetadata is the decoded evaluation input for one publication. It
// is what the ingestion consumer hands to the evaluator after decoding a
// message; channel levels are still raw strings at this point.
type PublicationMetadata struct {
	PublicationID                string
	PublicationBucketURI         string
	InstanceType                 string
	PublicationDate              PublicationDate
	Channels                     []Channel
	IsInternationalCollaboration bool
	Creators                     []Creator
}

// Validate rejects structurally incomplete metadata. Failures here are final:
// the message goes to the dead-letter destination, never retried.
func (m PublicationMetadata) Validate() error {
	if m.PublicationID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "publication id is required")
	}
	if err := m.PublicationDate.Validate(); err != nil {
		return err
	}
	for i, c := range m.Creators {
		if CreatorIdentity(c) == "" {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "creator %d has neither id nor name", i)
		}
	}
	return nil
}

// ChannelOf returns the publication's channel of the given type, if present.
func (m PublicationMetadata) ChannelOf(t ChannelType) (Channel, bool) {
	for _, ch := range m.Channels {
		if ch.Type == t {
			return ch, true
		}
	}
	return Channel{}, false
}

// Evaluation is the sealed result of evaluating a publication: either a
// candidate with a full point calculation, or a non-candidate for which only
// the publication id is retained. There is no error arm; "no qualifying
// creators" is a result, not a failure.
type Evaluation interface {
	// PublicationID identifies the evaluated publication in either arm.
	PublicationID() string

	evaluation()
}

// CandidateEvaluation is an applicable evaluation result.
type CandidateEvaluation struct {
	Candidate Candidate
}

func (e CandidateEvaluation) PublicationID() string { return e.Candidate.PublicationID }
func (e CandidateEvaluation) evaluation()           {}

// NonCandidateEvaluation marks a publication that does not qualify. All other
// evaluation fields are deliberately absent.
type NonCandidateEvaluation struct {
	ID string
}

func (e NonCandidateEvaluation) PublicationID() string { return e.ID }
func (e NonCandidateEvaluation) evaluation()           {}
