package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"graphdb.evalgo.org/common"
)

// RunningQuery tracks one statement in flight on a session. Cancellation
// flips a flag the execution layers observe at their component
// boundaries.
type RunningQuery struct {
	ID        string
	Text      string
	StartedAt time.Time
	cancelled atomic.Bool
	onCancel  func()
}

// Cancel marks the query cancelled and notifies the execution hook.
func (q *RunningQuery) Cancel() {
	if q.cancelled.CompareAndSwap(false, true) && q.onCancel != nil {
		q.onCancel()
	}
}

// Cancelled reports the cancellation flag.
func (q *RunningQuery) Cancelled() bool { return q.cancelled.Load() }

// Elapsed reports how long the query has been running.
func (q *RunningQuery) Elapsed() time.Duration { return time.Since(q.StartedAt) }

// QueryManager tracks the running queries of one session.
type QueryManager struct {
	mu      sync.Mutex
	queries map[string]*RunningQuery
}

// NewQueryManager creates an empty tracker.
func NewQueryManager() *QueryManager {
	return &QueryManager{queries: make(map[string]*RunningQuery)}
}

// Track registers a statement and returns its query record. onCancel is
// invoked once when the query is killed; it may be nil.
func (m *QueryManager) Track(text string, onCancel func()) *RunningQuery {
	q := &RunningQuery{
		ID:        uuid.NewString(),
		Text:      text,
		StartedAt: time.Now(),
		onCancel:  onCancel,
	}
	m.mu.Lock()
	m.queries[q.ID] = q
	m.mu.Unlock()
	return q
}

// Finish forgets a settled query.
func (m *QueryManager) Finish(id string) {
	m.mu.Lock()
	delete(m.queries, id)
	m.mu.Unlock()
}

// Kill cancels a running query.
func (m *QueryManager) Kill(id string) error {
	m.mu.Lock()
	q, ok := m.queries[id]
	m.mu.Unlock()
	if !ok {
		return common.WrapError(common.KindNotFound, "query "+id, ErrQueryNotFound)
	}
	q.Cancel()
	return nil
}

// List returns the running queries, unordered.
func (m *QueryManager) List() []*RunningQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*RunningQuery, 0, len(m.queries))
	for _, q := range m.queries {
		out = append(out, q)
	}
	return out
}

// CancelAll cancels every running query; used when the session dies.
func (m *QueryManager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.queries {
		q.Cancel()
	}
}
