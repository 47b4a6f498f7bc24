package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"merabuchpan/internal/domain"
	"merabuchpan/internal/infra"
	"merabuchpan/internal/sqlinline"
)

// AnalyticsRepository stores generation outcomes in PostgreSQL. It never sees
// photos or generated images.
type AnalyticsRepository struct {
	sql infra.SQLExecutor
}

// NewAnalyticsRepository constructs the repository.
func NewAnalyticsRepository(sql infra.SQLExecutor) *AnalyticsRepository {
	return &AnalyticsRepository{sql: sql}
}

// EnsureSchema creates the tables on first start.
func (r *AnalyticsRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QEnsureAnalyticsSchema); err != nil {
		return fmt.Errorf("ensure analytics schema: %w", err)
	}
	return nil
}

// Record stores one event and updates the daily counters.
func (r *AnalyticsRepository) Record(ctx context.Context, event domain.GenerationEvent) error {
	switch event.Outcome {
	case domain.OutcomeSuccess, domain.OutcomeFailure:
	default:
		return fmt.Errorf("record generation event: unknown outcome %q", event.Outcome)
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.sql.Exec(ctx, sqlinline.QRecordGenerationEvent,
		string(event.Outcome),
		event.Duration.Milliseconds(),
		strings.ToUpper(strings.TrimSpace(event.Country)),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("record generation event: %w", err)
	}
	return nil
}

// Daily returns up to limit days of counters, newest first.
func (r *AnalyticsRepository) Daily(ctx context.Context, limit int) ([]domain.DailyStats, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := r.sql.Query(ctx, sqlinline.QDailyStats, limit)
	if err != nil {
		return nil, fmt.Errorf("query daily stats: %w", err)
	}
	defer rows.Close()

	var out []domain.DailyStats
	for rows.Next() {
		var s domain.DailyStats
		if err := rows.Scan(&s.Day, &s.Attempts, &s.Successes, &s.Failures); err != nil {
			return nil, fmt.Errorf("scan daily stats: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily stats: %w", err)
	}
	return out, nil
}

// TopCountries returns the busiest countries over the last days.
func (r *AnalyticsRepository) TopCountries(ctx context.Context, days, limit int) ([]domain.CountryCount, error) {
	if days <= 0 {
		days = 30
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.sql.Query(ctx, sqlinline.QTopCountries, days, limit)
	if err != nil {
		return nil, fmt.Errorf("query top countries: %w", err)
	}
	defer rows.Close()

	var out []domain.CountryCount
	for rows.Next() {
		var c domain.CountryCount
		if err := rows.Scan(&c.Country, &c.Attempts); err != nil {
			return nil, fmt.Errorf("scan top countries: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
