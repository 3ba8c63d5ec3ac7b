package txn

import (
	"github.com/google/uuid"

	"graphdb.evalgo.org/common"
)

// savepoint is a named checkpoint inside an active transaction. The
// checkpoint field is the owning storage transaction's change-log
// position at creation time.
type savepoint struct {
	id         string
	name       string
	txnID      uint64
	seq        int
	checkpoint int
}

// SavepointInfo is a read-only savepoint snapshot.
type SavepointInfo struct {
	ID       string
	Name     string
	TxnID    uint64
	Sequence int
}

// CreateSavepoint pushes a savepoint onto the transaction's stack and
// returns its id. The transaction must be Active.
func (m *Manager) CreateSavepoint(txnID uint64, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.activeTxn(txnID)
	if err != nil {
		return "", err
	}
	sp := &savepoint{
		id:         uuid.NewString(),
		name:       name,
		txnID:      txnID,
		seq:        t.nextSeq,
		checkpoint: t.tx.Checkpoint(),
	}
	t.nextSeq++
	t.savepoints = append(t.savepoints, sp)
	m.logger.WithField("txn", txnID).WithField("savepoint", name).Debug("savepoint created")
	return sp.id, nil
}

// RollbackToSavepoint discards every change made after the savepoint. The
// savepoint itself stays on the stack, so rolling back twice is a no-op;
// savepoints created after it are destroyed.
func (m *Manager) RollbackToSavepoint(spID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, idx, err := m.findSavepoint(spID)
	if err != nil {
		return err
	}
	sp := t.savepoints[idx]
	if err := t.tx.RollbackTo(sp.checkpoint); err != nil {
		return err
	}
	t.savepoints = t.savepoints[:idx+1]
	return nil
}

// ReleaseSavepoint removes the savepoint and everything above it from the
// stack, keeping all changes.
func (m *Manager) ReleaseSavepoint(spID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, idx, err := m.findSavepoint(spID)
	if err != nil {
		return err
	}
	t.savepoints = t.savepoints[:idx]
	return nil
}

// FindSavepointByName returns the topmost savepoint with the given name.
func (m *Manager) FindSavepointByName(txnID uint64, name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[txnID]
	if !ok {
		return "", false
	}
	for i := len(t.savepoints) - 1; i >= 0; i-- {
		if t.savepoints[i].name == name {
			return t.savepoints[i].id, true
		}
	}
	return "", false
}

// ActiveSavepoints lists the transaction's savepoints bottom-to-top.
func (m *Manager) ActiveSavepoints(txnID uint64) ([]SavepointInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[txnID]
	if !ok {
		return nil, common.Errorf(common.KindNotFound, "transaction %d not found", txnID)
	}
	out := make([]SavepointInfo, len(t.savepoints))
	for i, sp := range t.savepoints {
		out[i] = SavepointInfo{ID: sp.id, Name: sp.name, TxnID: sp.txnID, Sequence: sp.seq}
	}
	return out, nil
}

func (m *Manager) findSavepoint(spID string) (*transaction, int, error) {
	for _, t := range m.txns {
		if t.state != StateActive {
			continue
		}
		for i, sp := range t.savepoints {
			if sp.id == spID {
				return t, i, nil
			}
		}
	}
	return nil, 0, common.Errorf(common.KindNotFound, "savepoint %s not found: %v", spID, ErrUnknownSavepoint)
}
