package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/network-analytics/internal/domain"
	"github.com/network-analytics/internal/presence"
	"github.com/network-analytics/internal/session"
	"github.com/network-analytics/internal/worker"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) LogPlayer(ctx context.Context, id uuid.UUID, username string) error {
	return m.Called(ctx, id, username).Error(0)
}

func (m *MockRepository) IncrementMinutesPlayed(ctx context.Context, id uuid.UUID, minutes int64) error {
	return m.Called(ctx, id, minutes).Error(0)
}

func (m *MockRepository) GetStats(ctx context.Context) (*domain.StatsSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StatsSummary), args.Error(1)
}

func (m *MockRepository) GetPlayer(ctx context.Context, id uuid.UUID) (*domain.PlayerRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PlayerRecord), args.Error(1)
}

func (m *MockRepository) LookupID(ctx context.Context, username string) (uuid.UUID, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type fixture struct {
	repo     *MockRepository
	sessions *session.Tracker
	store    *presence.Store
	pool     *worker.Pool
	svc      *Analytics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     new(MockRepository),
		sessions: session.NewTracker(),
		store:    presence.NewStore(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.pool = worker.NewPool(2, 16, logger)
	t.Cleanup(f.pool.Shutdown)
	f.svc = NewAnalytics(f.repo, f.pool, f.sessions, f.store, logger)
	return f
}

func TestHandleLogin(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	f.repo.On("LogPlayer", mock.Anything, id, "Notch").Return(nil)

	future := f.svc.HandleLogin(id, "Notch")
	require.NotNil(t, future)
	_, err := future.Wait(context.Background())
	require.NoError(t, err)

	// The local session exists regardless of the durable write
	assert.Equal(t, 1, f.sessions.Len())
	f.repo.AssertExpectations(t)
}

func TestHandleLoginWriteFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	f.repo.On("LogPlayer", mock.Anything, id, "Notch").Return(errors.New("db down"))

	future := f.svc.HandleLogin(id, "Notch")
	_, err := future.Wait(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1, f.sessions.Len())
}

func TestHandleDisconnectCreditsWholeMinutes(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	f.repo.On("LogPlayer", mock.Anything, id, "Notch").Return(nil)
	f.repo.On("IncrementMinutesPlayed", mock.Anything, id, int64(2)).Return(nil)

	start := time.Unix(1_000, 0)
	f.svc.now = func() time.Time { return start }
	f.svc.HandleLogin(id, "Notch")

	// 125 seconds elapsed: exactly two whole minutes
	f.svc.now = func() time.Time { return start.Add(125 * time.Second) }

	future := f.svc.HandleDisconnect(id)
	require.NotNil(t, future)
	_, err := future.Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, f.sessions.Len())
	f.repo.AssertCalled(t, "IncrementMinutesPlayed", mock.Anything, id, int64(2))
}

func TestHandleDisconnectShortSessionSkipsWrite(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	f.repo.On("LogPlayer", mock.Anything, id, "Notch").Return(nil)

	start := time.Unix(1_000, 0)
	f.svc.now = func() time.Time { return start }
	f.svc.HandleLogin(id, "Notch")

	f.svc.now = func() time.Time { return start.Add(59 * time.Second) }
	future := f.svc.HandleDisconnect(id)

	assert.Nil(t, future)
	assert.Equal(t, 0, f.sessions.Len())
	f.repo.AssertNotCalled(t, "IncrementMinutesPlayed", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleDisconnectUnknownSession(t *testing.T) {
	f := newFixture(t)
	assert.Nil(t, f.svc.HandleDisconnect(uuid.New()))
}

func TestHandleJoinTagsSession(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	f.repo.On("LogPlayer", mock.Anything, id, "Notch").Return(nil)

	f.svc.HandleLogin(id, "Notch")
	f.svc.HandleJoin(id, "1.21", "en_US")

	info, ok := f.sessions.Get(id)
	require.True(t, ok)
	assert.Equal(t, "1.21", info.Version)
	assert.Equal(t, "en_US", info.Locale)
}

func TestReport(t *testing.T) {
	f := newFixture(t)
	f.repo.On("GetStats", mock.Anything).Return(&domain.StatsSummary{UniqueJoins: 1000}, nil)

	f.store.Upsert(domain.InstanceSnapshot{
		InstanceID: "lobby-1",
		TimeSent:   time.Now().Unix(),
		Players:    []domain.OnlinePlayerRecord{{ID: uuid.New(), Username: "Notch"}},
	})

	out, err := f.svc.Report(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out, "Unique joins: 1,000")
	assert.Contains(t, out, "Players online: 1 across 1 instances")
}

func TestReportStorageFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.On("GetStats", mock.Anything).Return(nil, errors.New("connection reset"))

	_, err := f.svc.Report(context.Background())
	assert.ErrorIs(t, err, domain.ErrStatsUnavailable)
}

func TestPlayerVersion(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	f.store.Upsert(domain.InstanceSnapshot{
		InstanceID: "lobby-1",
		Players:    []domain.OnlinePlayerRecord{{ID: id, Username: "Notch", Version: "1.21"}},
	})

	rec, err := f.svc.PlayerVersion(context.Background(), "notch")
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)

	_, err = f.svc.PlayerVersion(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
}

func TestPlayerRecordByID(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	rec := &domain.PlayerRecord{ID: id, Username: "Notch", TimesConnected: 7}
	f.repo.On("GetPlayer", mock.Anything, id).Return(rec, nil)

	got, err := f.svc.PlayerRecord(context.Background(), id.String())
	require.NoError(t, err)
	assert.Equal(t, rec, got)
	f.repo.AssertNotCalled(t, "LookupID", mock.Anything, mock.Anything)
}

func TestPlayerRecordByUsername(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	rec := &domain.PlayerRecord{ID: id, Username: "Notch"}
	f.repo.On("LookupID", mock.Anything, "Notch").Return(id, nil)
	f.repo.On("GetPlayer", mock.Anything, id).Return(rec, nil)

	got, err := f.svc.PlayerRecord(context.Background(), "Notch")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestPlayerRecordUnknownUsername(t *testing.T) {
	f := newFixture(t)
	f.repo.On("LookupID", mock.Anything, "nobody").Return(uuid.Nil, domain.ErrPlayerNotFound)

	_, err := f.svc.PlayerRecord(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
}

func TestFleetPresence(t *testing.T) {
	f := newFixture(t)
	f.store.Upsert(domain.InstanceSnapshot{
		InstanceID: "lobby-1",
		Players:    []domain.OnlinePlayerRecord{{Username: "a"}, {Username: "b"}},
	})
	f.store.Upsert(domain.InstanceSnapshot{
		InstanceID: "survival-1",
		Players:    []domain.OnlinePlayerRecord{{Username: "c"}},
	})

	snaps, online := f.svc.FleetPresence()
	assert.Len(t, snaps, 2)
	assert.Equal(t, 3, online)
}

func TestRepeatedLoginsBumpNothingLocally(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	f.repo.On("LogPlayer", mock.Anything, id, "Notch").Return(nil)

	for i := 0; i < 5; i++ {
		future := f.svc.HandleLogin(id, "Notch")
		_, err := future.Wait(context.Background())
		require.NoError(t, err)
	}

	// One durable row's worth of sessions locally, five upsert calls
	assert.Equal(t, 1, f.sessions.Len())
	f.repo.AssertNumberOfCalls(t, "LogPlayer", 5)
}
