package session

import (
	"sync"

	"github.com/google/uuid"

	"graphdb.evalgo.org/schema"
	"graphdb.evalgo.org/txn"
	"graphdb.evalgo.org/value"
)

// Session binds a storage handle, an optional current space, an
// auto-commit flag, and the query and transaction APIs. Sessions are safe
// for use from one goroutine at a time; the mutable slots are guarded for
// the registry's reaper.
type Session struct {
	db *Database
	id string

	mu               sync.Mutex
	currentSpaceID   *uint64
	currentSpaceName string
	autoCommit       bool
}

func newSession(db *Database) *Session {
	return &Session{
		db:         db,
		id:         uuid.NewString(),
		autoCommit: true,
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Database returns the owning database.
func (s *Session) Database() *Database { return s.db }

// AutoCommit reports the auto-commit flag.
func (s *Session) AutoCommit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoCommit
}

// SetAutoCommit toggles auto-commit.
func (s *Session) SetAutoCommit(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoCommit = on
}

// UseSpace resolves a space by name and binds it as the session's current
// space.
func (s *Session) UseSpace(name string) error {
	space, err := s.db.catalog.GetSpace(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := space.ID
	s.currentSpaceID = &id
	s.currentSpaceName = space.Name
	return nil
}

// CurrentSpace returns the bound space name, empty when none.
func (s *Session) CurrentSpace() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentSpaceName
}

// CurrentSpaceID returns the bound space id.
func (s *Session) CurrentSpaceID() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentSpaceID == nil {
		return 0, false
	}
	return *s.currentSpaceID, true
}

func (s *Session) queryContext(params map[string]value.Value) *QueryContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	qctx := &QueryContext{
		AutoCommit: s.autoCommit,
		Parameters: params,
	}
	if s.currentSpaceID != nil {
		id := *s.currentSpaceID
		qctx.SpaceID = &id
	}
	return qctx
}

// Execute hands a statement to the query API under this session's space
// binding.
func (s *Session) Execute(query string) (*QueryResult, error) {
	return s.db.runPipeline(s.queryContext(nil), query)
}

// ExecuteWithParams is Execute with per-query parameters.
func (s *Session) ExecuteWithParams(query string, params map[string]value.Value) (*QueryResult, error) {
	return s.db.runPipeline(s.queryContext(params), query)
}

// BeginTransaction starts an explicit transaction. The returned handle
// must be settled; Close rolls back if still active.
func (s *Session) BeginTransaction(opts txn.Options) (*Transaction, error) {
	id, err := s.db.txns.Begin(opts)
	if err != nil {
		return nil, err
	}
	return &Transaction{session: s, id: id}, nil
}

// WithTransaction runs fn inside a transaction, committing on nil error
// and rolling back otherwise.
func (s *Session) WithTransaction(fn func(tx *Transaction) error) error {
	tx, err := s.BeginTransaction(txn.Options{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// BatchInserter returns a builder that buffers vertices and edges and
// flushes them in batch-sized transactions.
func (s *Session) BatchInserter(batchSize int) *BatchInserter {
	return newBatchInserter(s.db, batchSize)
}

// Prepare stores the statement text together with the session's current
// space binding; Execute on the returned statement rebinds parameters per
// call.
func (s *Session) Prepare(query string) *PreparedStatement {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := &PreparedStatement{db: s.db, query: query, autoCommit: s.autoCommit}
	if s.currentSpaceID != nil {
		id := *s.currentSpaceID
		ps.spaceID = &id
	}
	return ps
}

// CreateSpace creates a space through this session.
func (s *Session) CreateSpace(name string, cfg schema.SpaceConfig) (*schema.Space, error) {
	return s.db.CreateSpace(name, cfg)
}

// DropSpace drops a space. Dropping the session's current space unbinds
// it.
func (s *Session) DropSpace(name string) error {
	if err := s.db.DropSpace(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentSpaceName == name {
		s.currentSpaceID = nil
		s.currentSpaceName = ""
	}
	return nil
}

// ListSpaces lists all spaces.
func (s *Session) ListSpaces() []*schema.Space {
	return s.db.ListSpaces()
}
