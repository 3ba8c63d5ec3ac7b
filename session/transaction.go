package session

import (
	"graphdb.evalgo.org/common"
	"graphdb.evalgo.org/storage"
	"graphdb.evalgo.org/txn"
	"graphdb.evalgo.org/value"
)

// Transaction is the explicit transaction handle returned by
// Session.BeginTransaction. It wraps a manager-tracked transaction and
// exposes savepoints and direct graph operations. Close rolls back a
// still-active transaction, so `defer tx.Close()` gives drop-rollback
// semantics.
type Transaction struct {
	session *Session
	id      uint64
	settled bool
}

// ID returns the manager-assigned transaction id.
func (t *Transaction) ID() uint64 { return t.id }

// IsActive reports whether the transaction is still active.
func (t *Transaction) IsActive() bool {
	return !t.settled && t.session.db.txns.IsActive(t.id)
}

// Handle exposes the underlying storage transaction for direct reads and
// writes inside the transaction.
func (t *Transaction) Handle() (*storage.Tx, error) {
	return t.session.db.txns.StorageTx(t.id)
}

// Execute runs a statement inside this transaction.
func (t *Transaction) Execute(query string) (*QueryResult, error) {
	return t.ExecuteWithParams(query, nil)
}

// ExecuteWithParams runs a parameterised statement inside this
// transaction.
func (t *Transaction) ExecuteWithParams(query string, params map[string]value.Value) (*QueryResult, error) {
	qctx := t.session.queryContext(params)
	id := t.id
	qctx.TransactionID = &id
	qctx.AutoCommit = false
	return t.session.db.runPipeline(qctx, query)
}

// Commit settles the transaction, making its writes durable per the
// transaction's durability level.
func (t *Transaction) Commit() error {
	if err := t.session.db.txns.Commit(t.id); err != nil {
		return err
	}
	t.settled = true
	return nil
}

// Rollback discards the transaction's writes.
func (t *Transaction) Rollback() error {
	if err := t.session.db.txns.Abort(t.id); err != nil {
		return err
	}
	t.settled = true
	return nil
}

// Close rolls back if the transaction is still active. Safe to defer
// alongside an explicit Commit.
func (t *Transaction) Close() {
	if !t.settled && t.session.db.txns.IsActive(t.id) {
		_ = t.session.db.txns.Abort(t.id)
		t.settled = true
	}
}

// CreateSavepoint pushes a named savepoint.
func (t *Transaction) CreateSavepoint(name string) (string, error) {
	return t.session.db.txns.CreateSavepoint(t.id, name)
}

// RollbackToSavepoint undoes every change made after the named savepoint.
func (t *Transaction) RollbackToSavepoint(name string) error {
	spID, ok := t.session.db.txns.FindSavepointByName(t.id, name)
	if !ok {
		return common.Errorf(common.KindNotFound, "savepoint %s not found", name)
	}
	return t.session.db.txns.RollbackToSavepoint(spID)
}

// ReleaseSavepoint removes the named savepoint and everything above it,
// keeping changes.
func (t *Transaction) ReleaseSavepoint(name string) error {
	spID, ok := t.session.db.txns.FindSavepointByName(t.id, name)
	if !ok {
		return common.Errorf(common.KindNotFound, "savepoint %s not found", name)
	}
	return t.session.db.txns.ReleaseSavepoint(spID)
}

// FindSavepoint reports whether a named savepoint exists.
func (t *Transaction) FindSavepoint(name string) bool {
	_, ok := t.session.db.txns.FindSavepointByName(t.id, name)
	return ok
}

// ListSavepoints returns the savepoint stack bottom-to-top.
func (t *Transaction) ListSavepoints() ([]txn.SavepointInfo, error) {
	return t.session.db.txns.ActiveSavepoints(t.id)
}

// Info returns the transaction's state snapshot.
func (t *Transaction) Info() (txn.Info, error) {
	return t.session.db.txns.Get(t.id)
}

// InsertVertex writes a vertex inside this transaction.
func (t *Transaction) InsertVertex(v *value.Vertex) (value.Value, error) {
	h, err := t.Handle()
	if err != nil {
		return value.Value{}, err
	}
	return h.InsertNode(v)
}

// InsertEdge writes an edge inside this transaction.
func (t *Transaction) InsertEdge(e *value.Edge) error {
	h, err := t.Handle()
	if err != nil {
		return err
	}
	return h.InsertEdge(e)
}

// GetVertex reads a vertex inside this transaction.
func (t *Transaction) GetVertex(vid value.Value) (*value.Vertex, error) {
	h, err := t.Handle()
	if err != nil {
		return nil, err
	}
	return h.GetNode(vid)
}

// DeleteVertex removes a vertex and its incident edges inside this
// transaction.
func (t *Transaction) DeleteVertex(vid value.Value) error {
	h, err := t.Handle()
	if err != nil {
		return err
	}
	return h.DeleteNode(vid)
}
