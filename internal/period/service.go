package period

import (
	"context"
	"errors"
	"time"

	pkgerrors "nvi/pkg/domain-errors"
	"nvi/pkg/platform/sentinel"
	"nvi/pkg/requestcontext"
)

// Service wraps the period store with domain rules: periods are created and
// adjusted by administrators, and a period that has passed its reporting date
// can no longer be changed.
type Service struct {
	store Store
}

// NewService builds a period Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Find returns the period for a publishing year.
func (s *Service) Find(ctx context.Context, publishingYear string) (Period, error) {
	p, err := s.store.Find(ctx, publishingYear)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Period{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "no reporting period for year %s", publishingYear)
	}
	if err != nil {
		return Period{}, pkgerrors.Wrap(pkgerrors.CodeDependency, "find period", err)
	}
	return p, nil
}

// List returns all known periods.
func (s *Service) List(ctx context.Context) ([]Period, error) {
	periods, err := s.store.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, "list periods", err)
	}
	return periods, nil
}

// Create registers a new reporting period.
func (s *Service) Create(ctx context.Context, p Period) (Period, error) {
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	err := s.store.Create(ctx, p)
	if errors.Is(err, sentinel.ErrAlreadyExists) {
		return Period{}, pkgerrors.Newf(pkgerrors.CodeConflict, "period for year %s already exists", p.PublishingYear)
	}
	if err != nil {
		return Period{}, pkgerrors.Wrap(pkgerrors.CodeDependency, "create period", err)
	}
	return p, nil
}

// Update adjusts an existing period's dates. Periods whose reporting date has
// passed are closed for good.
func (s *Service) Update(ctx context.Context, p Period) (Period, error) {
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	existing, err := s.Find(ctx, p.PublishingYear)
	if err != nil {
		return Period{}, err
	}
	if requestcontext.Now(ctx).After(existing.ReportingDate) {
		return Period{}, pkgerrors.Newf(pkgerrors.CodePeriodClosed,
			"reporting period for %s has closed and cannot be changed", p.PublishingYear)
	}
	if err := s.store.Update(ctx, p); err != nil {
		return Period{}, pkgerrors.Wrap(pkgerrors.CodeDependency, "update period", err)
	}
	return p, nil
}

// RequireOpen fails with CodePeriodClosed unless the year's period exists and
// is open at the context time.
func (s *Service) RequireOpen(ctx context.Context, publishingYear string) error {
	p, err := s.Find(ctx, publishingYear)
	if err != nil {
		if pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound {
			return pkgerrors.Newf(pkgerrors.CodePeriodClosed, "no open reporting period for year %s", publishingYear)
		}
		return err
	}
	if !p.IsOpen(requestcontext.Now(ctx)) {
		return pkgerrors.Newf(pkgerrors.CodePeriodClosed, "reporting period for %s is not open", publishingYear)
	}
	return nil
}

// IsOpenAt reports whether a period exists and covers the given time.
func (s *Service) IsOpenAt(ctx context.Context, publishingYear string, at time.Time) (bool, error) {
	p, err := s.store.Find(ctx, publishingYear)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, "find period", err)
	}
	return p.IsOpen(at), nil
}
