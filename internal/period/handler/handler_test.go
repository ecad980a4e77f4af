package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"nvi/internal/period"
	"nvi/internal/transport/http/shared"
	pkgerrors "nvi/pkg/domain-errors"
	"nvi/pkg/requestcontext"
)

type PeriodHandlerSuite struct {
	suite.Suite
	router chi.Router
}

func (s *PeriodHandlerSuite) SetupTest() {
	service := period.NewService(period.NewMemoryStore())
	h := New(service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func TestPeriodHandlerSuite(t *testing.T) {
	suite.Run(t, new(PeriodHandlerSuite))
}

func (s *PeriodHandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *PeriodHandlerSuite) doAt(method, path string, at time.Time) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req = req.WithContext(requestcontext.WithTime(req.Context(), at))
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *PeriodHandlerSuite) create(year string) {
	body := `{
		"publishingYear": "` + year + `",
		"startDate": "` + year + `-04-01T00:00:00Z",
		"reportingDate": "2099-03-31T00:00:00Z"
	}`
	rr := s.do(http.MethodPost, "/periods", body)
	s.Require().Equal(http.StatusCreated, rr.Code)
}

func (s *PeriodHandlerSuite) TestCreateAndGet() {
	s.create("2026")

	rr := s.do(http.MethodGet, "/periods/2026", "")
	s.Require().Equal(http.StatusOK, rr.Code)

	var resp PeriodResponse
	s.Require().NoError(json.NewDecoder(rr.Body).Decode(&resp))
	s.Equal("2026", resp.PublishingYear)
	s.True(resp.Open)
}

func (s *PeriodHandlerSuite) TestOpenFlagUsesRequestTime() {
	s.create("2026")

	s.Run("before the start date the period is closed", func() {
		rr := s.doAt(http.MethodGet, "/periods/2026", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
		s.Require().Equal(http.StatusOK, rr.Code)

		var resp PeriodResponse
		s.Require().NoError(json.NewDecoder(rr.Body).Decode(&resp))
		s.False(resp.Open)
	})

	s.Run("inside the window the period is open", func() {
		rr := s.doAt(http.MethodGet, "/periods/2026", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
		s.Require().Equal(http.StatusOK, rr.Code)

		var resp PeriodResponse
		s.Require().NoError(json.NewDecoder(rr.Body).Decode(&resp))
		s.True(resp.Open)
	})
}

func (s *PeriodHandlerSuite) TestGetUnknownYear() {
	rr := s.do(http.MethodGet, "/periods/1999", "")
	s.Require().Equal(http.StatusNotFound, rr.Code)
}

func (s *PeriodHandlerSuite) TestCreateValidation() {
	s.Run("invalid body", func() {
		rr := s.do(http.MethodPost, "/periods", `{`)
		s.Require().Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("start after reporting date", func() {
		rr := s.do(http.MethodPost, "/periods", `{
			"publishingYear": "2026",
			"startDate": "2099-01-01T00:00:00Z",
			"reportingDate": "2026-01-01T00:00:00Z"
		}`)
		s.Require().Equal(http.StatusBadRequest, rr.Code)

		var resp shared.ErrorResponse
		s.Require().NoError(json.NewDecoder(rr.Body).Decode(&resp))
		s.Equal(string(pkgerrors.CodeValidation), resp.Code)
	})

	s.Run("duplicate year conflicts", func() {
		s.create("2027")
		rr := s.do(http.MethodPost, "/periods", `{
			"publishingYear": "2027",
			"startDate": "2027-04-01T00:00:00Z",
			"reportingDate": "2099-03-31T00:00:00Z"
		}`)
		s.Require().Equal(http.StatusConflict, rr.Code)
	})
}

func (s *PeriodHandlerSuite) TestUpdate() {
	s.create("2026")

	newDate := time.Date(2099, 6, 30, 0, 0, 0, 0, time.UTC)
	rr := s.do(http.MethodPut, "/periods/2026", `{
		"startDate": "2026-04-01T00:00:00Z",
		"reportingDate": "`+newDate.Format(time.RFC3339)+`"
	}`)
	s.Require().Equal(http.StatusOK, rr.Code)

	var resp PeriodResponse
	s.Require().NoError(json.NewDecoder(rr.Body).Decode(&resp))
	s.True(resp.ReportingDate.Equal(newDate))
}
