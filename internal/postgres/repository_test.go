package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/network-analytics/internal/domain"
)

func newTestRepository(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := NewRepositoryWithDB(mock, "lobby-1", logger)
	repo.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return repo, mock
}

func TestLogPlayer(t *testing.T) {
	repo, mock := newTestRepository(t)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO player_stats")).
		WithArgs(id, "Notch", int64(1_700_000_000), "lobby-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.LogPlayer(context.Background(), id, "Notch"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogPlayerError(t *testing.T) {
	repo, mock := newTestRepository(t)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO player_stats")).
		WithArgs(id, "Notch", int64(1_700_000_000), "lobby-1").
		WillReturnError(errors.New("connection refused"))

	err := repo.LogPlayer(context.Background(), id, "Notch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging player")
}

func TestIncrementMinutesPlayed(t *testing.T) {
	repo, mock := newTestRepository(t)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE player_stats SET minutes_played = minutes_played + $2")).
		WithArgs(id, int64(25)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.IncrementMinutesPlayed(context.Background(), id, 25))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPlayer(t *testing.T) {
	repo, mock := newTestRepository(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, first_login, last_login, last_seen_instance, times_connected, minutes_played")).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "username", "first_login", "last_login", "last_seen_instance", "times_connected", "minutes_played",
		}).AddRow(id, "Notch", int64(1_000), int64(2_000), "survival-1", int64(7), int64(120)))

	rec, err := repo.GetPlayer(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, &domain.PlayerRecord{
		ID:               id,
		Username:         "Notch",
		FirstLogin:       1_000,
		LastLogin:        2_000,
		LastSeenInstance: "survival-1",
		TimesConnected:   7,
		MinutesPlayed:    120,
	}, rec)
}

func TestGetPlayerNotFound(t *testing.T) {
	repo, mock := newTestRepository(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username")).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetPlayer(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
}

func TestGetUsername(t *testing.T) {
	repo, mock := newTestRepository(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT username FROM player_stats WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"username"}).AddRow("Notch"))

	username, err := repo.GetUsername(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Notch", username)
}

func TestLookupID(t *testing.T) {
	repo, mock := newTestRepository(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM player_stats WHERE username = $1")).
		WithArgs("Notch").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))

	got, err := repo.LookupID(context.Background(), "Notch")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestLookupIDNotFound(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM player_stats WHERE username = $1")).
		WithArgs("nobody").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.LookupID(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
}

func TestGetStats(t *testing.T) {
	repo, mock := newTestRepository(t)

	now := int64(1_700_000_000)
	month := now - domain.WindowMonth
	week := now - domain.WindowWeek
	day := now - domain.WindowDay

	counts := []struct {
		query string
		args  []any
		value int64
	}{
		{`SELECT COUNT(*) FROM player_stats WHERE minutes_played > $1`, []any{int64(60)}, 300},
		{`SELECT COUNT(*) FROM player_stats WHERE minutes_played > $1`, []any{int64(360)}, 90},
		{`SELECT COUNT(*) FROM player_stats WHERE times_connected > $1`, []any{int64(50)}, 45},
		{`SELECT COUNT(*) FROM player_stats WHERE last_login < $1`, []any{month}, 600},
		{`SELECT COUNT(*) FROM player_stats WHERE last_login < $1`, []any{week}, 700},
		{`SELECT COUNT(*) FROM player_stats WHERE times_connected < $1`, []any{int64(10)}, 800},
		{`SELECT COUNT(*) FROM player_stats WHERE minutes_played < $1`, []any{int64(30)}, 500},
		{`SELECT COUNT(*) FROM player_stats`, nil, 1000},
		{`SELECT COALESCE(SUM(minutes_played), 0) FROM player_stats`, nil, 120_000},
		{`SELECT COALESCE(SUM(times_connected), 0) FROM player_stats`, nil, 5000},
		{`SELECT COUNT(*) FROM player_stats WHERE last_login > $1`, []any{month}, 400},
		{`SELECT COUNT(*) FROM player_stats WHERE first_login > $1`, []any{month}, 100},
		{`SELECT COUNT(*) FROM player_stats WHERE last_login > $1`, []any{week}, 150},
		{`SELECT COUNT(*) FROM player_stats WHERE first_login > $1`, []any{week}, 30},
		{`SELECT COUNT(*) FROM player_stats WHERE last_login > $1`, []any{day}, 40},
		{`SELECT COUNT(*) FROM player_stats WHERE first_login > $1`, []any{day}, 8},
	}
	for _, c := range counts {
		exp := mock.ExpectQuery(regexp.QuoteMeta(c.query))
		if c.args != nil {
			exp.WithArgs(c.args...)
		}
		exp.WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(c.value))
	}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(AVG(minutes_played), 0) FROM player_stats`)).
		WillReturnRows(pgxmock.NewRows([]string{"avg"}).AddRow(float64(205.8)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(AVG(times_connected), 0) FROM player_stats`)).
		WillReturnRows(pgxmock.NewRows([]string{"avg"}).AddRow(float64(5.4)))

	s, err := repo.GetStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(300), s.NumWithPtGreaterThan1h)
	assert.Equal(t, int64(1000), s.UniqueJoins)
	assert.Equal(t, int64(120_000), s.TotalTimePlayed)

	// Averages drop the fractional part
	assert.Equal(t, int64(205), s.AverageMinutesPlayed)
	assert.Equal(t, int64(5), s.AverageTimesConnected)

	// Returning players are derived, never queried
	assert.Equal(t, int64(300), s.ReturningPlayersMonth)
	assert.Equal(t, int64(120), s.ReturningPlayersWeek)
	assert.Equal(t, int64(32), s.ReturningPlayersToday)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStatsSingleFailureAborts(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM player_stats WHERE minutes_played > $1`)).
		WithArgs(int64(60)).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.GetStats(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying stats")
}
