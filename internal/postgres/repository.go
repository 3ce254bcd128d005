package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/network-analytics/internal/config"
	"github.com/network-analytics/internal/domain"
)

// DB is the subset of pgxpool.Pool the repository uses
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	// logPlayerSQL is a single atomic upsert: concurrent logins must not
	// lose an increment, so the counter bump happens inside the statement.
	logPlayerSQL = `
		INSERT INTO player_stats (id, username, first_login, last_login, last_seen_instance, times_connected, minutes_played)
		VALUES ($1, $2, $3, $3, $4, 1, 0)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			last_login = EXCLUDED.last_login,
			last_seen_instance = EXCLUDED.last_seen_instance,
			times_connected = player_stats.times_connected + 1
	`

	incrementMinutesSQL = `UPDATE player_stats SET minutes_played = minutes_played + $2 WHERE id = $1`

	selectPlayerSQL = `
		SELECT id, username, first_login, last_login, last_seen_instance, times_connected, minutes_played
		FROM player_stats WHERE id = $1
	`
	selectUsernameSQL = `SELECT username FROM player_stats WHERE id = $1`
	selectIDSQL       = `SELECT id FROM player_stats WHERE username = $1`
)

// Repository provides PostgreSQL-based access to the durable per-player
// statistics table
type Repository struct {
	db         DB
	pool       *pgxpool.Pool
	instanceID string
	logger     *slog.Logger
	now        func() time.Time
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, instanceID string, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	r := NewRepositoryWithDB(pool, instanceID, logger)
	r.pool = pool
	return r, nil
}

// NewRepositoryWithDB creates a repository on an existing database handle
func NewRepositoryWithDB(db DB, instanceID string, logger *slog.Logger) *Repository {
	return &Repository{
		db:         db,
		instanceID: instanceID,
		logger:     logger,
		now:        time.Now,
	}
}

// Close closes the database connection pool
func (r *Repository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS player_stats (
			id UUID PRIMARY KEY,
			username VARCHAR(32) NOT NULL,
			first_login BIGINT NOT NULL,
			last_login BIGINT NOT NULL,
			last_seen_instance VARCHAR(64) NOT NULL,
			times_connected BIGINT NOT NULL,
			minutes_played BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_player_stats_last_login ON player_stats(last_login)`,
		`CREATE INDEX IF NOT EXISTS idx_player_stats_first_login ON player_stats(first_login)`,
		`CREATE INDEX IF NOT EXISTS idx_player_stats_username ON player_stats(username)`,
	}

	for _, migration := range migrations {
		_, err := r.db.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// LogPlayer records a login. The first occurrence creates the row with
// times_connected=1 and first_login=last_login=now; later occurrences update
// username, last_login and last_seen_instance and bump times_connected.
func (r *Repository) LogPlayer(ctx context.Context, id uuid.UUID, username string) error {
	now := r.now().Unix()
	_, err := r.db.Exec(ctx, logPlayerSQL, id, username, now, r.instanceID)
	if err != nil {
		return fmt.Errorf("logging player: %w", err)
	}
	return nil
}

// IncrementMinutesPlayed adds minutes to a player's play-time counter.
// Callers only invoke it with minutes > 0.
func (r *Repository) IncrementMinutesPlayed(ctx context.Context, id uuid.UUID, minutes int64) error {
	_, err := r.db.Exec(ctx, incrementMinutesSQL, id, minutes)
	if err != nil {
		return fmt.Errorf("incrementing minutes played: %w", err)
	}
	return nil
}

// GetPlayer retrieves a player's durable record
func (r *Repository) GetPlayer(ctx context.Context, id uuid.UUID) (*domain.PlayerRecord, error) {
	var rec domain.PlayerRecord
	err := r.db.QueryRow(ctx, selectPlayerSQL, id).Scan(
		&rec.ID,
		&rec.Username,
		&rec.FirstLogin,
		&rec.LastLogin,
		&rec.LastSeenInstance,
		&rec.TimesConnected,
		&rec.MinutesPlayed,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("getting player: %w", err)
	}
	return &rec, nil
}

// GetUsername returns the last known username for a player id
func (r *Repository) GetUsername(ctx context.Context, id uuid.UUID) (string, error) {
	var username string
	err := r.db.QueryRow(ctx, selectUsernameSQL, id).Scan(&username)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", domain.ErrPlayerNotFound
		}
		return "", fmt.Errorf("getting username: %w", err)
	}
	return username, nil
}

// LookupID returns the player id last seen using a username
func (r *Repository) LookupID(ctx context.Context, username string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, selectIDSQL, username).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return uuid.Nil, domain.ErrPlayerNotFound
		}
		return uuid.Nil, fmt.Errorf("looking up id: %w", err)
	}
	return id, nil
}

// GetStats computes the cohort metrics relative to now. The underlying
// queries run independently rather than in one transaction, so the summary
// can be slightly inconsistent across counters under concurrent writes; a
// failure of any single query fails the whole summary.
func (r *Repository) GetStats(ctx context.Context) (*domain.StatsSummary, error) {
	now := r.now().Unix()
	month := now - domain.WindowMonth
	week := now - domain.WindowWeek
	day := now - domain.WindowDay

	var (
		s   domain.StatsSummary
		err error
	)

	counts := []struct {
		dest  *int64
		query string
		args  []any
	}{
		{&s.NumWithPtGreaterThan1h, `SELECT COUNT(*) FROM player_stats WHERE minutes_played > $1`, []any{int64(60)}},
		{&s.NumWithPtGreaterThan6h, `SELECT COUNT(*) FROM player_stats WHERE minutes_played > $1`, []any{int64(360)}},
		{&s.NumWithConnGreaterThan50, `SELECT COUNT(*) FROM player_stats WHERE times_connected > $1`, []any{int64(50)}},
		{&s.NumWithLastLoginMoreThan1moAgo, `SELECT COUNT(*) FROM player_stats WHERE last_login < $1`, []any{month}},
		{&s.NumWithLastLoginMoreThan1wAgo, `SELECT COUNT(*) FROM player_stats WHERE last_login < $1`, []any{week}},
		{&s.NumWithConnLessThan10, `SELECT COUNT(*) FROM player_stats WHERE times_connected < $1`, []any{int64(10)}},
		{&s.NumWithPtLessThan30m, `SELECT COUNT(*) FROM player_stats WHERE minutes_played < $1`, []any{int64(30)}},
		{&s.UniqueJoins, `SELECT COUNT(*) FROM player_stats`, nil},
		{&s.TotalTimePlayed, `SELECT COALESCE(SUM(minutes_played), 0) FROM player_stats`, nil},
		{&s.TotalConnections, `SELECT COALESCE(SUM(times_connected), 0) FROM player_stats`, nil},
		{&s.UniqueJoinsMonth, `SELECT COUNT(*) FROM player_stats WHERE last_login > $1`, []any{month}},
		{&s.NewPlayersMonth, `SELECT COUNT(*) FROM player_stats WHERE first_login > $1`, []any{month}},
		{&s.UniqueJoinsWeek, `SELECT COUNT(*) FROM player_stats WHERE last_login > $1`, []any{week}},
		{&s.NewPlayersWeek, `SELECT COUNT(*) FROM player_stats WHERE first_login > $1`, []any{week}},
		{&s.UniqueJoinsToday, `SELECT COUNT(*) FROM player_stats WHERE last_login > $1`, []any{day}},
		{&s.NewPlayersToday, `SELECT COUNT(*) FROM player_stats WHERE first_login > $1`, []any{day}},
	}

	for _, c := range counts {
		*c.dest, err = r.queryInt64(ctx, c.query, c.args...)
		if err != nil {
			return nil, err
		}
	}

	s.AverageMinutesPlayed, err = r.queryAverage(ctx, `SELECT COALESCE(AVG(minutes_played), 0) FROM player_stats`)
	if err != nil {
		return nil, err
	}
	s.AverageTimesConnected, err = r.queryAverage(ctx, `SELECT COALESCE(AVG(times_connected), 0) FROM player_stats`)
	if err != nil {
		return nil, err
	}

	s.ReturningPlayersMonth = s.UniqueJoinsMonth - s.NewPlayersMonth
	s.ReturningPlayersWeek = s.UniqueJoinsWeek - s.NewPlayersWeek
	s.ReturningPlayersToday = s.UniqueJoinsToday - s.NewPlayersToday

	return &s, nil
}

func (r *Repository) queryInt64(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("querying stats: %w", err)
	}
	return n, nil
}

func (r *Repository) queryAverage(ctx context.Context, query string) (int64, error) {
	var avg float64
	if err := r.db.QueryRow(ctx, query).Scan(&avg); err != nil {
		return 0, fmt.Errorf("querying stats average: %w", err)
	}
	return int64(avg), nil
}
