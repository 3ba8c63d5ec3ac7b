package txn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphdb.evalgo.org/common"
	"graphdb.evalgo.org/storage"
	"graphdb.evalgo.org/value"
)

func newTestManager(t *testing.T, cfg Config) (*Manager, *storage.Store) {
	t.Helper()
	store := storage.OpenInMemory(storage.Options{})
	t.Cleanup(func() { _ = store.Close() })
	return NewManager(store, cfg), store
}

func vertex(vid string) *value.Vertex {
	v := value.NewVertexEntity(value.NewString(vid))
	v.AddTag("user", map[string]value.Value{"name": value.NewString(vid)})
	return v
}

func TestLifecycle(t *testing.T) {
	m, store := newTestManager(t, Config{})

	id, err := m.Begin(Options{})
	require.NoError(t, err)
	assert.True(t, m.IsActive(id))

	tx, err := m.StorageTx(id)
	require.NoError(t, err)
	_, err = tx.InsertNode(vertex("u1"))
	require.NoError(t, err)

	require.NoError(t, m.Commit(id))
	assert.False(t, m.IsActive(id))

	info, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, info.State)

	got, err := store.GetNode(value.NewString("u1"))
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestAbortRestoresState(t *testing.T) {
	m, store := newTestManager(t, Config{})
	_, err := store.InsertNode(vertex("before"))
	require.NoError(t, err)

	id, err := m.Begin(Options{})
	require.NoError(t, err)
	tx, err := m.StorageTx(id)
	require.NoError(t, err)
	_, err = tx.InsertNode(vertex("inside"))
	require.NoError(t, err)
	require.NoError(t, tx.DeleteNode(value.NewString("before")))
	require.NoError(t, m.Abort(id))

	all, err := store.ScanAllVertices()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "before", all[0].VID.String())
}

func TestInvalidStateTransitions(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	id, err := m.Begin(Options{})
	require.NoError(t, err)
	require.NoError(t, m.Commit(id))

	assert.True(t, common.IsKind(m.Commit(id), common.KindTransactionFailed))
	assert.True(t, common.IsKind(m.Abort(id), common.KindTransactionFailed))

	_, err = m.Get(99999)
	assert.True(t, common.IsKind(err, common.KindNotFound))
}

func TestMonotonicIDs(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	a, err := m.Begin(Options{})
	require.NoError(t, err)
	b, err := m.Begin(Options{})
	require.NoError(t, err)
	assert.Greater(t, b, a)
}

func TestActiveCap(t *testing.T) {
	m, _ := newTestManager(t, Config{MaxActive: 2})
	_, err := m.Begin(Options{})
	require.NoError(t, err)
	id2, err := m.Begin(Options{})
	require.NoError(t, err)

	_, err = m.Begin(Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooManyTransactions)

	// settling one frees a slot
	require.NoError(t, m.Abort(id2))
	_, err = m.Begin(Options{})
	assert.NoError(t, err)
}

func TestTwoPhaseCommitPrepare(t *testing.T) {
	prepared := 0
	store := storage.OpenInMemory(storage.Options{})
	t.Cleanup(func() { _ = store.Close() })
	m := NewManager(store, Config{Prepare: func(uint64) error { prepared++; return nil }})

	id, err := m.Begin(Options{TwoPhaseCommit: true})
	require.NoError(t, err)
	require.NoError(t, m.Commit(id))
	assert.Equal(t, 1, prepared)

	// without the flag, the prepare hook stays idle
	id, err = m.Begin(Options{})
	require.NoError(t, err)
	require.NoError(t, m.Commit(id))
	assert.Equal(t, 1, prepared)
}

func TestTimeoutReaping(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	id, err := m.Begin(Options{Timeout: time.Nanosecond})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	reaped := m.AbortTimedOut()
	assert.Contains(t, reaped, id)

	info, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StateTimedOut, info.State)

	// a slow transaction with headroom is untouched
	keep, err := m.Begin(Options{Timeout: time.Hour})
	require.NoError(t, err)
	assert.Empty(t, m.AbortTimedOut())
	assert.True(t, m.IsActive(keep))

	// reap removes only settled transactions
	removed := m.Reap()
	assert.Equal(t, 1, removed)
	assert.True(t, m.IsActive(keep))
}

func TestGetInfo(t *testing.T) {
	m, _ := newTestManager(t, Config{DefaultTimeout: time.Minute})
	id, err := m.Begin(Options{ReadOnly: true, Durability: DurabilityFsync})
	require.NoError(t, err)
	_, err = m.CreateSavepoint(id, "a")
	require.NoError(t, err)

	info, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StateActive, info.State)
	assert.True(t, info.ReadOnly)
	assert.Equal(t, DurabilityFsync, info.Durability)
	assert.Equal(t, 1, info.SavepointCount)
	assert.GreaterOrEqual(t, info.Elapsed, time.Duration(0))
}

func TestSavepointSemantics(t *testing.T) {
	m, store := newTestManager(t, Config{})
	id, err := m.Begin(Options{})
	require.NoError(t, err)
	tx, err := m.StorageTx(id)
	require.NoError(t, err)

	_, err = tx.InsertNode(vertex("v1"))
	require.NoError(t, err)

	spA, err := m.CreateSavepoint(id, "a")
	require.NoError(t, err)

	_, err = tx.InsertNode(vertex("v2"))
	require.NoError(t, err)

	// rollback undoes everything after the savepoint, keeps what preceded it
	require.NoError(t, m.RollbackToSavepoint(spA))
	got, err := tx.GetNode(value.NewString("v2"))
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = tx.GetNode(value.NewString("v1"))
	require.NoError(t, err)
	assert.NotNil(t, got)

	// repeating the same rollback is a no-op and the savepoint survives
	require.NoError(t, m.RollbackToSavepoint(spA))
	sps, err := m.ActiveSavepoints(id)
	require.NoError(t, err)
	require.Len(t, sps, 1)
	assert.Equal(t, "a", sps[0].Name)

	require.NoError(t, m.Commit(id))
	all, err := store.ScanAllVertices()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSavepointStackOrder(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	id, err := m.Begin(Options{})
	require.NoError(t, err)

	_, err = m.CreateSavepoint(id, "a")
	require.NoError(t, err)
	_, err = m.CreateSavepoint(id, "b")
	require.NoError(t, err)
	spA2, err := m.CreateSavepoint(id, "a")
	require.NoError(t, err)

	// the topmost savepoint with a duplicated name wins
	found, ok := m.FindSavepointByName(id, "a")
	require.True(t, ok)
	assert.Equal(t, spA2, found)

	sps, err := m.ActiveSavepoints(id)
	require.NoError(t, err)
	require.Len(t, sps, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{sps[0].Sequence, sps[1].Sequence, sps[2].Sequence})
}

func TestRollbackDestroysLaterSavepoints(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	id, err := m.Begin(Options{})
	require.NoError(t, err)

	spA, err := m.CreateSavepoint(id, "a")
	require.NoError(t, err)
	_, err = m.CreateSavepoint(id, "b")
	require.NoError(t, err)

	require.NoError(t, m.RollbackToSavepoint(spA))
	_, ok := m.FindSavepointByName(id, "b")
	assert.False(t, ok)
	_, ok = m.FindSavepointByName(id, "a")
	assert.True(t, ok)
}

func TestReleaseSavepoint(t *testing.T) {
	m, store := newTestManager(t, Config{})
	id, err := m.Begin(Options{})
	require.NoError(t, err)
	tx, err := m.StorageTx(id)
	require.NoError(t, err)

	spA, err := m.CreateSavepoint(id, "a")
	require.NoError(t, err)
	_, err = tx.InsertNode(vertex("kept"))
	require.NoError(t, err)
	_, err = m.CreateSavepoint(id, "b")
	require.NoError(t, err)

	// release removes the savepoint and everything above, keeping changes
	require.NoError(t, m.ReleaseSavepoint(spA))
	sps, err := m.ActiveSavepoints(id)
	require.NoError(t, err)
	assert.Empty(t, sps)

	require.NoError(t, m.Commit(id))
	got, err := store.GetNode(value.NewString("kept"))
	require.NoError(t, err)
	assert.NotNil(t, got)

	require.Error(t, m.RollbackToSavepoint(spA))
}

func TestSavepointRequiresActiveTxn(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	id, err := m.Begin(Options{})
	require.NoError(t, err)
	require.NoError(t, m.Commit(id))

	_, err = m.CreateSavepoint(id, "late")
	assert.Error(t, err)
}

func TestReaperLoop(t *testing.T) {
	m, _ := newTestManager(t, Config{})
	id, err := m.Begin(Options{Timeout: time.Millisecond})
	require.NoError(t, err)

	r := NewReaper(m, 5*time.Millisecond)
	r.Start()
	defer r.Stop()

	assert.Eventually(t, func() bool {
		return !m.IsActive(id)
	}, time.Second, 5*time.Millisecond)
}
