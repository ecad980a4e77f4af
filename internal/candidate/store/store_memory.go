package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"nvi/internal/candidate/models"
	"nvi/pkg/platform/sentinel"
)

// MemoryStore implements CandidateStore with the same conditional-write
// semantics as the postgres store. Used by unit tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*memoryRecord
}

type memoryRecord struct {
	payload   []byte
	approvals []models.Approval
	version   string
}

// NewMemoryStore creates an empty in-memory candidate store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*memoryRecord)}
}

func (s *MemoryStore) FindByPublicationID(_ context.Context, publicationID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[publicationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	candidate, err := DecodeCandidate(rec.payload)
	if err != nil {
		return nil, err
	}
	return &Record{
		Candidate: candidate,
		Approvals: copyApprovals(rec.approvals),
		Version:   rec.version,
	}, nil
}

func (s *MemoryStore) Create(_ context.Context, candidate models.Candidate, approvals []models.Approval) (string, error) {
	payload, err := EncodeCandidate(candidate)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[candidate.PublicationID]; ok {
		return "", sentinel.ErrAlreadyExists
	}
	version := uuid.NewString()
	s.records[candidate.PublicationID] = &memoryRecord{
		payload:   payload,
		approvals: copyApprovals(approvals),
		version:   version,
	}
	return version, nil
}

func (s *MemoryStore) Update(_ context.Context, candidate models.Candidate, approvals []models.Approval, expectedVersion string) (string, error) {
	payload, err := EncodeCandidate(candidate)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[candidate.PublicationID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	if rec.version != expectedVersion {
		return "", sentinel.ErrVersionConflict
	}
	rec.payload = payload
	rec.approvals = copyApprovals(approvals)
	rec.version = uuid.NewString()
	return rec.version, nil
}

func (s *MemoryStore) SaveApproval(_ context.Context, publicationID string, approval models.Approval, expectedVersion string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[publicationID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	if rec.version != expectedVersion {
		return "", sentinel.ErrVersionConflict
	}
	replaced := false
	for i, a := range rec.approvals {
		if a.InstitutionID == approval.InstitutionID {
			rec.approvals[i] = copyApproval(approval)
			replaced = true
			break
		}
	}
	if !replaced {
		return "", sentinel.ErrNotFound
	}
	rec.version = uuid.NewString()
	return rec.version, nil
}

func copyApprovals(in []models.Approval) []models.Approval {
	out := make([]models.Approval, len(in))
	for i, a := range in {
		out[i] = copyApproval(a)
	}
	return out
}

func copyApproval(a models.Approval) models.Approval {
	if a.FinalizedDate != nil {
		t := *a.FinalizedDate
		a.FinalizedDate = &t
	}
	return a
}
