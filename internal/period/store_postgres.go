package period

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"nvi/pkg/platform/sentinel"
)

// PostgresStore persists periods in the reporting_periods table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres creates a PostgreSQL-backed period store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Find(ctx context.Context, publishingYear string) (Period, error) {
	var p Period
	err := s.db.QueryRowContext(ctx, `
		SELECT publishing_year, start_date, reporting_date
		FROM reporting_periods
		WHERE publishing_year = $1
	`, publishingYear).Scan(&p.PublishingYear, &p.StartDate, &p.ReportingDate)
	if errors.Is(err, sql.ErrNoRows) {
		return Period{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Period{}, fmt.Errorf("find period: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Period, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT publishing_year, start_date, reporting_date
		FROM reporting_periods
		ORDER BY publishing_year
	`)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	defer rows.Close()

	var out []Period
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.PublishingYear, &p.StartDate, &p.ReportingDate); err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Create(ctx context.Context, p Period) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reporting_periods (publishing_year, start_date, reporting_date)
		VALUES ($1, $2, $3)
	`, p.PublishingYear, p.StartDate, p.ReportingDate)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("create period: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, p Period) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reporting_periods
		SET start_date = $2, reporting_date = $3
		WHERE publishing_year = $1
	`, p.PublishingYear, p.StartDate, p.ReportingDate)
	if err != nil {
		return fmt.Errorf("update period: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update period rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
