package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Info holds the per-session values attached at login: the connection
// timestamp plus the protocol/locale tags learned once the player finishes
// joining. Tags stay raw strings here; decoding to option values happens at
// read time.
type Info struct {
	Username    string
	ConnectedAt time.Time
	Version     string
	Locale      string
}

// Entry pairs a player id with its session info.
type Entry struct {
	ID   uuid.UUID
	Info Info
}

// Tracker maps locally connected players to their session context. It is the
// only registry of local presence: a player is "connected here" exactly while
// an entry exists. Safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]Info
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		sessions: make(map[uuid.UUID]Info),
	}
}

// Begin records a new session at login time
func (t *Tracker) Begin(id uuid.UUID, username string, connectedAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[id] = Info{
		Username:    username,
		ConnectedAt: connectedAt,
	}
}

// Tag attaches the protocol/locale tags once the player has finished joining.
// No-op if the session is gone.
func (t *Tracker) Tag(id uuid.UUID, version, locale string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	info, ok := t.sessions[id]
	if !ok {
		return
	}
	info.Version = version
	info.Locale = locale
	t.sessions[id] = info
}

// Get returns a session's info
func (t *Tracker) Get(id uuid.UUID) (Info, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	info, ok := t.sessions[id]
	return info, ok
}

// End removes a session and returns its final info
func (t *Tracker) End(id uuid.UUID) (Info, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	info, ok := t.sessions[id]
	if ok {
		delete(t.sessions, id)
	}
	return info, ok
}

// All returns every live session
func (t *Tracker) All() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entries := make([]Entry, 0, len(t.sessions))
	for id, info := range t.sessions {
		entries = append(entries, Entry{ID: id, Info: info})
	}
	return entries
}

// Len returns the number of live sessions
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}
