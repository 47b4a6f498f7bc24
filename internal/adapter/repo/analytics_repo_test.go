package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"merabuchpan/internal/domain"
	"merabuchpan/internal/sqlinline"
)

type stubRows struct {
	data   [][]any
	idx    int
	closed bool
	err    error
}

func (r *stubRows) Close()                                       { r.closed = true }
func (r *stubRows) Err() error                                   { return r.err }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Values() ([]any, error)                       { return nil, errors.New("not supported") }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func (r *stubRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	row := r.data[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: got %d dest for %d columns", len(dest), len(row))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *time.Time:
			*d = v.(time.Time)
		case *int:
			*d = v.(int)
		case *string:
			*d = v.(string)
		default:
			return fmt.Errorf("scan: unsupported dest %T", d)
		}
	}
	return nil
}

type stubSQL struct {
	execQuery string
	execArgs  []any
	execErr   error

	queryArgs []any
	rows      *stubRows
	queryErr  error
}

func (s *stubSQL) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.execQuery, s.execArgs = query, args
	return pgconn.NewCommandTag("INSERT 0 1"), s.execErr
}

func (s *stubSQL) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func (s *stubSQL) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	s.queryArgs = args
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.rows, nil
}

func TestRecordEvent(t *testing.T) {
	sql := &stubSQL{}
	repo := NewAnalyticsRepository(sql)
	at := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

	err := repo.Record(context.Background(), domain.GenerationEvent{
		Outcome:   domain.OutcomeFailure,
		Duration:  2500 * time.Millisecond,
		Country:   " id ",
		CreatedAt: at,
	})
	require.NoError(t, err)
	assert.Equal(t, sqlinline.QRecordGenerationEvent, sql.execQuery)
	assert.Equal(t, []any{"failure", int64(2500), "ID", at}, sql.execArgs)
}

func TestRecordRejectsUnknownOutcome(t *testing.T) {
	sql := &stubSQL{}
	err := NewAnalyticsRepository(sql).Record(context.Background(), domain.GenerationEvent{Outcome: "maybe"})
	assert.Error(t, err)
	assert.Empty(t, sql.execQuery)
}

func TestRecordWrapsExecError(t *testing.T) {
	boom := errors.New("db down")
	err := NewAnalyticsRepository(&stubSQL{execErr: boom}).Record(context.Background(), domain.GenerationEvent{Outcome: domain.OutcomeSuccess})
	assert.ErrorIs(t, err, boom)
}

func TestEnsureSchema(t *testing.T) {
	sql := &stubSQL{}
	require.NoError(t, NewAnalyticsRepository(sql).EnsureSchema(context.Background()))
	assert.Equal(t, sqlinline.QEnsureAnalyticsSchema, sql.execQuery)
}

func TestDaily(t *testing.T) {
	d1 := time.Date(2026, 5, 6, 0, 0, 0, 0, time.UTC)
	d0 := d1.AddDate(0, 0, -1)
	rows := &stubRows{data: [][]any{
		{d1, 5, 4, 1},
		{d0, 2, 0, 2},
	}}
	sql := &stubSQL{rows: rows}

	got, err := NewAnalyticsRepository(sql).Daily(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []any{30}, sql.queryArgs, "default limit")
	assert.Equal(t, []domain.DailyStats{
		{Day: d1, Attempts: 5, Successes: 4, Failures: 1},
		{Day: d0, Attempts: 2, Successes: 0, Failures: 2},
	}, got)
	assert.True(t, rows.closed)
}

func TestDailyPropagatesRowsError(t *testing.T) {
	boom := errors.New("conn lost")
	sql := &stubSQL{rows: &stubRows{err: boom}}

	_, err := NewAnalyticsRepository(sql).Daily(context.Background(), 7)
	assert.ErrorIs(t, err, boom)
}

func TestTopCountries(t *testing.T) {
	sql := &stubSQL{rows: &stubRows{data: [][]any{{"ID", 9}, {"US", 3}}}}

	got, err := NewAnalyticsRepository(sql).TopCountries(context.Background(), 7, 5)
	require.NoError(t, err)
	assert.Equal(t, []any{7, 5}, sql.queryArgs)
	assert.Equal(t, []domain.CountryCount{{Country: "ID", Attempts: 9}, {Country: "US", Attempts: 3}}, got)
}
