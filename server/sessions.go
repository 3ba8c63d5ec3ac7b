package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"graphdb.evalgo.org/common"
	"graphdb.evalgo.org/session"
)

// ClientSession is one authenticated server-side session: an embedded
// engine session plus identity, an optional explicit transaction, running
// queries and the idle timestamp the reaper watches.
type ClientSession struct {
	ID       string
	Username string
	Role     Role

	mu      sync.Mutex
	inner   *session.Session
	tx      *session.Transaction
	queries *QueryManager
	idleAt  time.Time
}

// Inner returns the embedded engine session.
func (cs *ClientSession) Inner() *session.Session { return cs.inner }

// Queries returns the session's query tracker.
func (cs *ClientSession) Queries() *QueryManager { return cs.queries }

// Touch resets the idle clock.
func (cs *ClientSession) Touch() {
	cs.mu.Lock()
	cs.idleAt = time.Now()
	cs.mu.Unlock()
}

// IdleFor reports how long the session has been idle.
func (cs *ClientSession) IdleFor() time.Duration {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return time.Since(cs.idleAt)
}

func (cs *ClientSession) currentTx() *session.Transaction {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.tx
}

func (cs *ClientSession) setTx(tx *session.Transaction) {
	cs.mu.Lock()
	cs.tx = tx
	cs.mu.Unlock()
}

// releaseTransaction rolls back any live explicit transaction; used on
// signout and by the reaper.
func (cs *ClientSession) releaseTransaction() {
	cs.mu.Lock()
	tx := cs.tx
	cs.tx = nil
	cs.mu.Unlock()
	if tx != nil {
		tx.Close()
	}
}

// SessionInfo is the read-only session snapshot served by list/get.
type SessionInfo struct {
	ID           string
	Username     string
	Role         Role
	Space        string
	IdleFor      time.Duration
	RunningCount int
	InTxn        bool
}

// SessionManager is the registry of live sessions plus its idle reaper.
type SessionManager struct {
	mu          sync.Mutex
	sessions    map[string]*ClientSession
	maxSessions int
	idleTimeout time.Duration
	logger      *logrus.Entry

	stop chan struct{}
	done chan struct{}
}

// NewSessionManager creates a registry. maxSessions <= 0 means unlimited;
// idleTimeout <= 0 disables reaping.
func NewSessionManager(maxSessions int, idleTimeout time.Duration, logger *logrus.Logger) *SessionManager {
	if logger == nil {
		logger = common.Logger
	}
	return &SessionManager{
		sessions:    make(map[string]*ClientSession),
		maxSessions: maxSessions,
		idleTimeout: idleTimeout,
		logger:      logger.WithField("component", "sessions"),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// StartReaper launches the idle-session reaper.
func (m *SessionManager) StartReaper(interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.reapIdle()
			case <-m.stop:
				return
			}
		}
	}()
}

// StopReaper terminates the reaper loop.
func (m *SessionManager) StopReaper() {
	close(m.stop)
	<-m.done
}

func (m *SessionManager) reapIdle() {
	if m.idleTimeout <= 0 {
		return
	}
	m.mu.Lock()
	var expired []*ClientSession
	for id, cs := range m.sessions {
		if cs.IdleFor() > m.idleTimeout {
			expired = append(expired, cs)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, cs := range expired {
		cs.Queries().CancelAll()
		cs.releaseTransaction()
		m.logger.WithFields(logrus.Fields{"session": cs.ID, "user": cs.Username}).Info("idle session reaped")
	}
}

// Add registers a new session, failing when the connection cap is
// reached.
func (m *SessionManager) Add(username string, role Role, inner *session.Session) (*ClientSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, common.WrapError(common.KindPermissionDenied, "connection cap reached", ErrTooManyConnections)
	}
	cs := &ClientSession{
		ID:       uuid.NewString(),
		Username: username,
		Role:     role,
		inner:    inner,
		queries:  NewQueryManager(),
		idleAt:   time.Now(),
	}
	m.sessions[cs.ID] = cs
	return cs, nil
}

// Get resolves a session by id.
func (m *SessionManager) Get(id string) (*ClientSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cs, ok := m.sessions[id]
	if !ok {
		return nil, common.WrapError(common.KindNotFound, "session "+id, ErrSessionNotFound)
	}
	return cs, nil
}

// Remove unregisters a session, rolling back any live transaction.
func (m *SessionManager) Remove(id string) error {
	m.mu.Lock()
	cs, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return common.WrapError(common.KindNotFound, "session "+id, ErrSessionNotFound)
	}
	cs.Queries().CancelAll()
	cs.releaseTransaction()
	return nil
}

// List snapshots every live session.
func (m *SessionManager) List() []SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SessionInfo, 0, len(m.sessions))
	for _, cs := range m.sessions {
		out = append(out, sessionInfoOf(cs))
	}
	return out
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func sessionInfoOf(cs *ClientSession) SessionInfo {
	return SessionInfo{
		ID:           cs.ID,
		Username:     cs.Username,
		Role:         cs.Role,
		Space:        cs.inner.CurrentSpace(),
		IdleFor:      cs.IdleFor(),
		RunningCount: len(cs.Queries().List()),
		InTxn:        cs.currentTx() != nil,
	}
}
