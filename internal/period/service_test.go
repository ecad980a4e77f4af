package period

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	pkgerrors "nvi/pkg/domain-errors"
	"nvi/pkg/requestcontext"
)

type PeriodServiceSuite struct {
	suite.Suite
	service *Service
	ctx     context.Context
}

func (s *PeriodServiceSuite) SetupTest() {
	s.service = NewService(NewMemoryStore())
	s.ctx = requestcontext.WithTime(context.Background(),
		time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
}

func TestPeriodServiceSuite(t *testing.T) {
	suite.Run(t, new(PeriodServiceSuite))
}

func period2026() Period {
	return Period{
		PublishingYear: "2026",
		StartDate:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ReportingDate:  time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

func (s *PeriodServiceSuite) TestValidate() {
	s.Run("valid period passes", func() {
		s.Require().NoError(period2026().Validate())
	})

	s.Run("bad year fails", func() {
		p := period2026()
		p.PublishingYear = "26"
		err := p.Validate()
		s.Require().Error(err)
		s.Equal(pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	})

	s.Run("start after reporting date fails", func() {
		p := period2026()
		p.StartDate, p.ReportingDate = p.ReportingDate, p.StartDate
		s.Require().Error(p.Validate())
	})

	s.Run("missing dates fail", func() {
		p := period2026()
		p.StartDate = time.Time{}
		s.Require().Error(p.Validate())
	})
}

func (s *PeriodServiceSuite) TestCreateAndFind() {
	s.Run("creates and finds a period", func() {
		_, err := s.service.Create(s.ctx, period2026())
		s.Require().NoError(err)

		found, err := s.service.Find(s.ctx, "2026")
		s.Require().NoError(err)
		s.Equal("2026", found.PublishingYear)
	})

	s.Run("duplicate year conflicts", func() {
		_, err := s.service.Create(s.ctx, period2026())
		s.Require().Error(err)
		s.Equal(pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
	})

	s.Run("unknown year is not found", func() {
		_, err := s.service.Find(s.ctx, "1999")
		s.Require().Error(err)
		s.Equal(pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	})
}

func (s *PeriodServiceSuite) TestUpdate() {
	s.Run("open period can move its reporting date", func() {
		_, err := s.service.Create(s.ctx, period2026())
		s.Require().NoError(err)

		p := period2026()
		p.ReportingDate = time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC)
		updated, err := s.service.Update(s.ctx, p)
		s.Require().NoError(err)
		s.Equal(p.ReportingDate, updated.ReportingDate)
	})

	s.Run("closed period cannot be reopened", func() {
		p := Period{
			PublishingYear: "2020",
			StartDate:      time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			ReportingDate:  time.Date(2021, 3, 31, 0, 0, 0, 0, time.UTC),
		}
		_, err := s.service.Create(s.ctx, p)
		s.Require().NoError(err)

		p.ReportingDate = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		_, err = s.service.Update(s.ctx, p)
		s.Require().Error(err)
		s.Equal(pkgerrors.CodePeriodClosed, pkgerrors.CodeOf(err))
	})
}

func (s *PeriodServiceSuite) TestRequireOpen() {
	_, err := s.service.Create(s.ctx, period2026())
	s.Require().NoError(err)

	s.Run("open period passes", func() {
		s.Require().NoError(s.service.RequireOpen(s.ctx, "2026"))
	})

	s.Run("missing period reads as closed", func() {
		err := s.service.RequireOpen(s.ctx, "1999")
		s.Require().Error(err)
		s.Equal(pkgerrors.CodePeriodClosed, pkgerrors.CodeOf(err))
	})

	s.Run("before the window is closed", func() {
		early := requestcontext.WithTime(context.Background(),
			time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC))
		err := s.service.RequireOpen(early, "2026")
		s.Require().Error(err)
		s.Equal(pkgerrors.CodePeriodClosed, pkgerrors.CodeOf(err))
	})

	s.Run("after the reporting date is closed", func() {
		late := requestcontext.WithTime(context.Background(),
			time.Date(2027, 4, 1, 0, 0, 0, 0, time.UTC))
		err := s.service.RequireOpen(late, "2026")
		s.Require().Error(err)
		s.Equal(pkgerrors.CodePeriodClosed, pkgerrors.CodeOf(err))
	})
}

func (s *PeriodServiceSuite) TestIsOpenAt() {
	_, err := s.service.Create(s.ctx, period2026())
	s.Require().NoError(err)

	open, err := s.service.IsOpenAt(s.ctx, "2026", time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.True(open)

	open, err = s.service.IsOpenAt(s.ctx, "2026", time.Date(2028, 1, 1, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.False(open)

	open, err = s.service.IsOpenAt(s.ctx, "1999", time.Now())
	s.Require().NoError(err)
	s.False(open)
}
