package services

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/naramuhl/finance-friend-central/internal/cache"
	"github.com/naramuhl/finance-friend-central/internal/log"
	"github.com/naramuhl/finance-friend-central/internal/records"
)

var ErrNoSession = errors.New("no active session")

// SessionManagerConfig bounds how many sessions are kept and for how long an
// idle one survives.
type SessionManagerConfig struct {
	TTL             time.Duration
	MaxSessions     int
	CleanupInterval time.Duration
}

// SessionManager keeps one Session per user. Sessions leave the cache on
// expiry, eviction or End, and are torn down when they do.
type SessionManager struct {
	store     records.Store
	snapshots SnapshotRecorder
	logger    *log.Logger
	now       func() time.Time

	sessions *cache.LRUCache[*Session]
	cleaner  *cache.Manager

	// starts collapses concurrent loads of the same user into one.
	starts singleflight.Group
}

func NewSessionManager(store records.Store, snapshots SnapshotRecorder, cfg SessionManagerConfig, logger *log.Logger) *SessionManager {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	m := &SessionManager{
		store:     store,
		snapshots: snapshots,
		logger:    logger,
		now:       time.Now,
		cleaner:   cache.NewManager(),
	}
	m.sessions = cache.NewLRUCache[*Session](cfg.MaxSessions, cfg.TTL).
		OnEvict(func(userID string, s *Session) {
			s.End()
			m.logger.Debug("Session removed", log.FieldUserID, userID)
		})
	m.cleaner.Register(m.sessions)
	m.cleaner.StartCleanup(cfg.CleanupInterval)
	return m
}

// WithClock sets the clock handed to new sessions.
func (m *SessionManager) WithClock(now func() time.Time) *SessionManager {
	m.now = now
	return m
}

// Start returns the user's session. A live session is refreshed from the
// store, which also rescans goals for notifications; otherwise a new session
// is loaded.
func (m *SessionManager) Start(ctx context.Context, userID string) (*Session, error) {
	if s, ok := m.sessions.Get(userID); ok && !s.Closed() {
		err := s.Refresh(ctx)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, ErrSessionClosed) {
			return nil, err
		}
	}

	v, err, _ := m.starts.Do(userID, func() (any, error) {
		if s, ok := m.sessions.Get(userID); ok && !s.Closed() {
			return s, nil
		}
		s := NewSession(userID, m.store,
			WithSnapshotRecorder(m.snapshots),
			WithClock(m.now),
			WithLogger(m.logger))
		if err := s.Load(ctx); err != nil {
			s.End()
			return nil, err
		}
		m.sessions.Set(userID, s)
		m.logger.InfoContext(ctx, "Session started", log.FieldUserID, userID)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Get returns the cached session of userID.
func (m *SessionManager) Get(userID string) (*Session, error) {
	s, ok := m.sessions.Get(userID)
	if !ok || s.Closed() {
		return nil, ErrNoSession
	}
	return s, nil
}

// End tears down the user's session, if any.
func (m *SessionManager) End(userID string) {
	m.sessions.Delete(userID)
}

// Active returns the number of cached sessions.
func (m *SessionManager) Active() int {
	return m.sessions.Size()
}

// Close ends every session and stops background cleanup.
func (m *SessionManager) Close() {
	m.cleaner.Stop()
	m.sessions.Clear()
}
