// Package txn implements the transaction subsystem: transaction ids and
// lifecycle, durability levels, the active-transaction map, nested named
// savepoints and the timeout reaper. Transactions execute against a
// storage.Tx whose change-log supplies the checkpoint primitive savepoints
// roll back to.
package txn

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"graphdb.evalgo.org/common"
	"graphdb.evalgo.org/storage"
)

// State is the transaction lifecycle state.
type State int

const (
	StateActive State = iota
	StateCommitted
	StateAborted
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "Active"
	case StateCommitted:
		return "Committed"
	case StateAborted:
		return "Aborted"
	case StateTimedOut:
		return "TimedOut"
	default:
		return "Unknown"
	}
}

// Durability selects what the commit path flushes.
type Durability int

const (
	// DurabilityNone commits without any explicit flush.
	DurabilityNone Durability = iota
	// DurabilityImmediate writes buffers without fsync.
	DurabilityImmediate
	// DurabilityFsync writes buffers and fsyncs.
	DurabilityFsync
)

// Options configures one transaction.
type Options struct {
	Timeout        time.Duration
	ReadOnly       bool
	Durability     Durability
	TwoPhaseCommit bool
}

// Errors of the transaction subsystem.
var (
	ErrTooManyTransactions = errors.New("too many active transactions")
	ErrInvalidState        = errors.New("transaction is not active")
	ErrUnknownTransaction  = errors.New("unknown transaction")
	ErrUnknownSavepoint    = errors.New("unknown savepoint")
)

// transaction is the manager's record of one transaction.
type transaction struct {
	id         uint64
	state      State
	opts       Options
	start      time.Time
	tx         *storage.Tx
	savepoints []*savepoint
	nextSeq    int
}

// Info is a read-only transaction snapshot.
type Info struct {
	ID             uint64
	State          State
	ReadOnly       bool
	Durability     Durability
	Elapsed        time.Duration
	SavepointCount int
}

// PrepareFunc is the collaborator-defined prepare step run before the
// durability step when two-phase commit is requested.
type PrepareFunc func(id uint64) error

// Config tunes a Manager.
type Config struct {
	// MaxActive caps concurrently active transactions; 0 means unlimited.
	MaxActive int
	// DefaultTimeout applies when Options.Timeout is zero.
	DefaultTimeout time.Duration
	Prepare        PrepareFunc
	Logger         *logrus.Logger
}

// Manager owns the active-transaction map and drives the state machine:
// Active moves to Committed or Aborted (or TimedOut) exactly once; settled
// transactions stay visible until reaped.
type Manager struct {
	mu     sync.Mutex
	store  *storage.Store
	nextID uint64
	txns   map[uint64]*transaction
	cfg    Config
	logger *logrus.Entry
}

// NewManager creates a manager over a store.
func NewManager(store *storage.Store, cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = common.Logger
	}
	return &Manager{
		store:  store,
		txns:   make(map[uint64]*transaction),
		cfg:    cfg,
		logger: cfg.Logger.WithField("component", "txn"),
	}
}

// Begin allocates a fresh monotonic id and records the transaction as
// Active. Fails when the active cap is reached.
func (m *Manager) Begin(opts Options) (uint64, error) {
	if opts.Timeout == 0 {
		opts.Timeout = m.cfg.DefaultTimeout
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg.MaxActive > 0 {
		active := 0
		for _, t := range m.txns {
			if t.state == StateActive {
				active++
			}
		}
		if active >= m.cfg.MaxActive {
			return 0, common.WrapError(common.KindTransactionFailed, "transaction cap reached", ErrTooManyTransactions)
		}
	}
	tx, err := m.store.Begin(opts.ReadOnly)
	if err != nil {
		return 0, err
	}
	m.nextID++
	id := m.nextID
	m.txns[id] = &transaction{
		id:    id,
		state: StateActive,
		opts:  opts,
		start: time.Now(),
		tx:    tx,
	}
	m.logger.WithFields(logrus.Fields{"txn": id, "read_only": opts.ReadOnly}).Debug("transaction started")
	return id, nil
}

func (m *Manager) activeTxn(id uint64) (*transaction, error) {
	t, ok := m.txns[id]
	if !ok {
		return nil, common.Errorf(common.KindNotFound, "transaction %d not found", id)
	}
	if t.state != StateActive {
		return nil, common.Errorf(common.KindTransactionFailed, "transaction %d is %s: %v", id, t.state, ErrInvalidState)
	}
	return t, nil
}

// StorageTx exposes the storage transaction so callers can execute
// reads and writes inside the transaction.
func (m *Manager) StorageTx(id uint64) (*storage.Tx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.activeTxn(id)
	if err != nil {
		return nil, err
	}
	return t.tx, nil
}

// Commit settles the transaction. Durability runs first; the Committed
// transition happens only after the storage commit succeeds. On a
// durability failure the transaction stays Active and the error is
// surfaced so the caller may retry or abort explicitly.
func (m *Manager) Commit(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.activeTxn(id)
	if err != nil {
		return err
	}
	if t.opts.TwoPhaseCommit && m.cfg.Prepare != nil {
		if err := m.cfg.Prepare(id); err != nil {
			return common.WrapError(common.KindTransactionFailed, "prepare step failed", err)
		}
	}
	if err := t.tx.Commit(t.opts.Durability == DurabilityFsync); err != nil {
		m.logger.WithField("txn", id).WithError(err).Error("commit durability step failed")
		return err
	}
	t.state = StateCommitted
	t.savepoints = nil
	m.logger.WithField("txn", id).Debug("transaction committed")
	return nil
}

// Abort settles the transaction, discarding all buffered writes.
func (m *Manager) Abort(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.activeTxn(id)
	if err != nil {
		return err
	}
	t.tx.Rollback()
	t.state = StateAborted
	t.savepoints = nil
	m.logger.WithField("txn", id).Debug("transaction aborted")
	return nil
}

// IsActive reports whether the transaction exists and is Active.
func (m *Manager) IsActive(id uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	return ok && t.state == StateActive
}

// Get returns a snapshot of the transaction's state.
func (m *Manager) Get(id uint64) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	if !ok {
		return Info{}, common.Errorf(common.KindNotFound, "transaction %d not found", id)
	}
	return Info{
		ID:             t.id,
		State:          t.state,
		ReadOnly:       t.opts.ReadOnly,
		Durability:     t.opts.Durability,
		Elapsed:        time.Since(t.start),
		SavepointCount: len(t.savepoints),
	}, nil
}

// ActiveCount returns the number of Active transactions.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.txns {
		if t.state == StateActive {
			n++
		}
	}
	return n
}

// AbortTimedOut aborts every Active transaction whose elapsed time
// exceeds its timeout, marking it TimedOut. Returns the ids it settled.
func (m *Manager) AbortTimedOut() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var reaped []uint64
	now := time.Now()
	for id, t := range m.txns {
		if t.state != StateActive || t.opts.Timeout <= 0 {
			continue
		}
		if now.Sub(t.start) > t.opts.Timeout {
			t.tx.Rollback()
			t.state = StateTimedOut
			t.savepoints = nil
			reaped = append(reaped, id)
			m.logger.WithField("txn", id).Warn("transaction timed out")
		}
	}
	return reaped
}

// Reap removes settled transactions from the map.
func (m *Manager) Reap() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, t := range m.txns {
		if t.state != StateActive {
			delete(m.txns, id)
			n++
		}
	}
	return n
}
