package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/network-analytics/internal/domain"
	"github.com/network-analytics/internal/presence"
	"github.com/network-analytics/internal/report"
	"github.com/network-analytics/internal/session"
	"github.com/network-analytics/internal/worker"
)

// Repository is the persistent stats store the service writes to and
// queries. All calls run on the worker pool, never on the caller.
type Repository interface {
	LogPlayer(ctx context.Context, id uuid.UUID, username string) error
	IncrementMinutesPlayed(ctx context.Context, id uuid.UUID, minutes int64) error
	GetStats(ctx context.Context) (*domain.StatsSummary, error)
	GetPlayer(ctx context.Context, id uuid.UUID) (*domain.PlayerRecord, error)
	LookupID(ctx context.Context, username string) (uuid.UUID, error)
}

// Analytics ties together the session tracker, the stats repository and the
// fleet presence store.
type Analytics struct {
	repo     Repository
	pool     *worker.Pool
	sessions *session.Tracker
	store    *presence.Store
	logger   *slog.Logger
	now      func() time.Time
}

// NewAnalytics creates the analytics service
func NewAnalytics(repo Repository, pool *worker.Pool, sessions *session.Tracker, store *presence.Store, logger *slog.Logger) *Analytics {
	return &Analytics{
		repo:     repo,
		pool:     pool,
		sessions: sessions,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleLogin records a new local session and upserts the player's durable
// row. The write is fire-and-forget: its failure is logged, not surfaced.
func (a *Analytics) HandleLogin(id uuid.UUID, username string) *worker.Future[struct{}] {
	a.sessions.Begin(id, username, a.now())

	return worker.SubmitErr(a.pool, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.repo.LogPlayer(ctx, id, username); err != nil {
			a.logger.Error("failed to log player", "player_id", id, "error", err)
			return err
		}
		return nil
	})
}

// HandleJoin attaches the protocol/locale tags once the player has finished
// joining
func (a *Analytics) HandleJoin(id uuid.UUID, version, locale string) {
	a.sessions.Tag(id, version, locale)
}

// HandleDisconnect ends the local session and credits the elapsed whole
// minutes to the player's play-time counter. Sessions shorter than a minute
// contribute nothing.
func (a *Analytics) HandleDisconnect(id uuid.UUID) *worker.Future[struct{}] {
	info, ok := a.sessions.End(id)
	if !ok {
		return nil
	}

	minutes := int64(a.now().Sub(info.ConnectedAt).Seconds()) / 60
	if minutes <= 0 {
		return nil
	}

	return worker.SubmitErr(a.pool, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.repo.IncrementMinutesPlayed(ctx, id, minutes); err != nil {
			a.logger.Error("failed to increment minutes played", "player_id", id, "error", err)
			return err
		}
		return nil
	})
}

// Report compiles the formatted analytics summary. Storage failures surface
// as ErrStatsUnavailable, never as raw repository errors.
func (a *Analytics) Report(ctx context.Context) (string, error) {
	future := worker.Submit(a.pool, func() (*domain.StatsSummary, error) {
		return a.repo.GetStats(ctx)
	})
	stats, err := future.Wait(ctx)
	if err != nil {
		a.logger.Error("failed to retrieve monitoring data", "error", err)
		return "", domain.ErrStatsUnavailable
	}

	return report.RenderSummary(stats, a.store.SnapshotAll()), nil
}

// PlayerVersion finds a player across all live snapshots by username or id
// string
func (a *Analytics) PlayerVersion(ctx context.Context, query string) (domain.OnlinePlayerRecord, error) {
	rec, ok := report.FindPlayer(a.store.SnapshotAll(), query)
	if !ok {
		return domain.OnlinePlayerRecord{}, domain.ErrPlayerNotFound
	}
	return rec, nil
}

// PlayerRecord fetches a player's durable row by id string or username. A
// query that parses as a UUID is treated as an id, anything else as the last
// known username, case preserved as stored.
func (a *Analytics) PlayerRecord(ctx context.Context, query string) (*domain.PlayerRecord, error) {
	future := worker.Submit(a.pool, func() (*domain.PlayerRecord, error) {
		id, err := uuid.Parse(query)
		if err != nil {
			id, err = a.repo.LookupID(ctx, query)
			if err != nil {
				return nil, err
			}
		}
		return a.repo.GetPlayer(ctx, id)
	})
	return future.Wait(ctx)
}

// FleetPresence reports the live snapshots and the fleet-wide player count
func (a *Analytics) FleetPresence() ([]domain.InstanceSnapshot, int) {
	snaps := a.store.SnapshotAll()
	return snaps, len(report.Flatten(snaps))
}
