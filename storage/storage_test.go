package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphdb.evalgo.org/codec"
	"graphdb.evalgo.org/common"
	"graphdb.evalgo.org/value"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := OpenInMemory(Options{})
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newUser(vid, name string, age int64) *value.Vertex {
	v := value.NewVertexEntity(value.NewString(vid))
	v.AddTag("user", map[string]value.Value{
		"name": value.NewString(name),
		"age":  value.NewInt(age),
	})
	return v
}

func TestNodeCRUD(t *testing.T) {
	s := newTestStore(t)

	vid, err := s.InsertNode(newUser("u1", "Alice", 30))
	require.NoError(t, err)
	assert.Equal(t, "u1", vid.String())

	got, err := s.GetNode(vid)
	require.NoError(t, err)
	require.NotNil(t, got)
	name, _ := got.Property("name")
	assert.Equal(t, "Alice", name.String())

	// cache-first read returns the same vertex
	again, err := s.GetNode(vid)
	require.NoError(t, err)
	require.NotNil(t, again)

	updated := newUser("u1", "Alice", 31)
	require.NoError(t, s.UpdateNode(updated))
	got, err = s.GetNode(vid)
	require.NoError(t, err)
	age, _ := got.Property("age")
	assert.True(t, value.NewInt(31).Equal(age))

	require.NoError(t, s.DeleteNode(vid))
	got, err = s.GetNode(vid)
	require.NoError(t, err)
	assert.Nil(t, got)

	err = s.DeleteNode(vid)
	assert.True(t, common.IsKind(err, common.KindNotFound))
}

func TestInsertAssignsVid(t *testing.T) {
	s := newTestStore(t)
	v := value.NewVertexEntity(value.Empty)
	v.AddTag("user", map[string]value.Value{"name": value.NewString("anon")})

	vid, err := s.InsertNode(v)
	require.NoError(t, err)
	_, isInt := vid.Int()
	assert.True(t, isInt, "assigned vid should be an integer")

	got, err := s.GetNode(vid)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestUpdateRequiresVid(t *testing.T) {
	s := newTestStore(t)
	v := value.NewVertexEntity(value.Empty)
	err := s.UpdateNode(v)
	assert.True(t, common.IsKind(err, common.KindInvalidParameter))

	v2 := newUser("ghost", "Ghost", 1)
	err = s.UpdateNode(v2)
	assert.True(t, common.IsKind(err, common.KindNotFound))
}

func TestScans(t *testing.T) {
	s := newTestStore(t)
	for i, name := range []string{"Alice", "Bob", "Cara"} {
		_, err := s.InsertNode(newUser(name, name, int64(20+i)))
		require.NoError(t, err)
	}
	other := value.NewVertexEntity(value.NewString("m1"))
	other.AddTag("machine", map[string]value.Value{"cpu": value.NewInt(8)})
	_, err := s.InsertNode(other)
	require.NoError(t, err)

	all, err := s.ScanAllVertices()
	require.NoError(t, err)
	assert.Len(t, all, 4)

	users, err := s.ScanVerticesByTag("user")
	require.NoError(t, err)
	assert.Len(t, users, 3)

	byProp, err := s.ScanVerticesByProp("user", "name", value.NewString("Bob"))
	require.NoError(t, err)
	require.Len(t, byProp, 1)
	assert.Equal(t, "Bob", byProp[0].VID.String())

	none, err := s.ScanVerticesByProp("user", "name", value.NewString("Zed"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPropIndexDeltaOnUpdate(t *testing.T) {
	s := newTestStore(t)
	_, err := s.InsertNode(newUser("u1", "Alice", 30))
	require.NoError(t, err)

	require.NoError(t, s.UpdateNode(newUser("u1", "Alicia", 30)))

	stale, err := s.ScanVerticesByProp("user", "name", value.NewString("Alice"))
	require.NoError(t, err)
	assert.Empty(t, stale, "old property index entry must be removed")

	fresh, err := s.ScanVerticesByProp("user", "name", value.NewString("Alicia"))
	require.NoError(t, err)
	assert.Len(t, fresh, 1)

	unchanged, err := s.ScanVerticesByProp("user", "age", value.NewInt(30))
	require.NoError(t, err)
	assert.Len(t, unchanged, 1)
}

func edgeBetween(src, dst, kind string) *value.Edge {
	e := value.NewEdgeEntity(value.NewString(src), value.NewString(dst), kind)
	e.Props["weight"] = value.NewInt(1)
	return e
}

func TestEdgeCRUDAndAdjacency(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"a", "b", "c"} {
		_, err := s.InsertNode(newUser(name, name, 1))
		require.NoError(t, err)
	}
	require.NoError(t, s.InsertEdge(edgeBetween("a", "b", "knows")))
	require.NoError(t, s.InsertEdge(edgeBetween("b", "c", "knows")))
	require.NoError(t, s.InsertEdge(edgeBetween("a", "c", "likes")))

	e, err := s.GetEdge(value.NewString("a"), value.NewString("b"), "knows")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "knows", e.Type)

	out, err := s.GetNodeEdges(value.NewString("a"), value.DirOut)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	in, err := s.GetNodeEdges(value.NewString("b"), value.DirIn)
	require.NoError(t, err)
	assert.Len(t, in, 1)

	both, err := s.GetNodeEdges(value.NewString("b"), value.DirBoth)
	require.NoError(t, err)
	assert.Len(t, both, 2)

	filtered, err := s.GetNodeEdgesFiltered(value.NewString("a"), value.DirOut, func(e *value.Edge) bool {
		return e.Type == "likes"
	})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "likes", filtered[0].Type)

	byType, err := s.ScanEdgesByType("knows")
	require.NoError(t, err)
	assert.Len(t, byType, 2)

	allEdges, err := s.ScanAllEdges()
	require.NoError(t, err)
	assert.Len(t, allEdges, 3)

	require.NoError(t, s.DeleteEdge(value.NewString("a"), value.NewString("b"), "knows"))
	e, err = s.GetEdge(value.NewString("a"), value.NewString("b"), "knows")
	require.NoError(t, err)
	assert.Nil(t, e)

	out, err = s.GetNodeEdges(value.NewString("a"), value.DirOut)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestDeleteNodeCascadesEdges(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"a", "b", "c"} {
		_, err := s.InsertNode(newUser(name, name, 1))
		require.NoError(t, err)
	}
	require.NoError(t, s.InsertEdge(edgeBetween("a", "b", "knows")))
	require.NoError(t, s.InsertEdge(edgeBetween("c", "b", "knows")))

	require.NoError(t, s.DeleteNode(value.NewString("b")))

	// both incident edges are gone in both directions
	edges, err := s.ScanAllEdges()
	require.NoError(t, err)
	assert.Empty(t, edges)

	aOut, err := s.GetNodeEdges(value.NewString("a"), value.DirBoth)
	require.NoError(t, err)
	assert.Empty(t, aOut)

	byType, err := s.ScanEdgesByType("knows")
	require.NoError(t, err)
	assert.Empty(t, byType)
}

// TestIndexConsistency cross-checks the physical index rows against a full
// scan: no dangling and no orphaned entries.
func TestIndexConsistency(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"a", "b", "c", "d"} {
		_, err := s.InsertNode(newUser(name, name, 1))
		require.NoError(t, err)
	}
	require.NoError(t, s.InsertEdge(edgeBetween("a", "b", "knows")))
	require.NoError(t, s.InsertEdge(edgeBetween("b", "c", "knows")))
	require.NoError(t, s.UpdateNode(newUser("a", "a2", 2)))
	require.NoError(t, s.DeleteNode(value.NewString("c")))
	require.NoError(t, s.DeleteEdge(value.NewString("a"), value.NewString("b"), "knows"))

	tx, err := s.Begin(true)
	require.NoError(t, err)
	defer tx.Rollback()

	vertices, err := tx.ScanAllVertices()
	require.NoError(t, err)

	// every persisted vertex appears exactly once in the tag index per tag
	for _, v := range vertices {
		nodeKey, err := codec.NodeKey(v.VID)
		require.NoError(t, err)
		for _, tag := range v.Tags {
			list, err := tx.readIndexList(codec.TagIndexKey(tag.Name))
			require.NoError(t, err)
			count := 0
			for _, item := range list {
				if string(item) == string(nodeKey) {
					count++
				}
			}
			assert.Equal(t, 1, count, "vertex %s tag %s", v.VID, tag.Name)
			for prop, pv := range tag.Props {
				pk, err := codec.PropIndexKey(tag.Name, prop, pv)
				require.NoError(t, err)
				plist, err := tx.readIndexList(pk)
				require.NoError(t, err)
				pcount := 0
				for _, item := range plist {
					if string(item) == string(nodeKey) {
						pcount++
					}
				}
				assert.Equal(t, 1, pcount, "vertex %s prop %s", v.VID, prop)
			}
		}
	}

	// every tag-index entry resolves to a live vertex row
	list, err := tx.readIndexList(codec.TagIndexKey("user"))
	require.NoError(t, err)
	for _, nk := range list {
		raw, err := tx.get(TableNodes, nk)
		require.NoError(t, err)
		assert.NotNil(t, raw, "tag index points at a missing node row")
	}

	// every persisted edge has adjacency entries on both endpoints and a
	// type index entry
	edges, err := tx.ScanAllEdges()
	require.NoError(t, err)
	for _, e := range edges {
		edgeKey, err := codec.EdgeKey(e.Src, e.Dst, e.Type)
		require.NoError(t, err)
		for _, endpoint := range []value.Value{e.Src, e.Dst} {
			adjKey, err := codec.NodeEdgeIndexKey(endpoint)
			require.NoError(t, err)
			adj, err := tx.readIndexList(adjKey)
			require.NoError(t, err)
			found := 0
			for _, item := range adj {
				if string(item) == string(edgeKey) {
					found++
				}
			}
			assert.Equal(t, 1, found, "edge %s endpoint %s", e, endpoint)
		}
		typeList, err := tx.readIndexList(codec.EdgeTypeIndexKey(e.Type))
		require.NoError(t, err)
		found := 0
		for _, item := range typeList {
			if string(item) == string(edgeKey) {
				found++
			}
		}
		assert.Equal(t, 1, found)
	}
}

func TestTransactionProgramOrderReads(t *testing.T) {
	s := newTestStore(t)
	tx, err := s.Begin(false)
	require.NoError(t, err)
	defer tx.Rollback()

	vid, err := tx.InsertNode(newUser("u1", "Alice", 30))
	require.NoError(t, err)

	got, err := tx.GetNode(vid)
	require.NoError(t, err)
	require.NotNil(t, got, "own writes are visible in program order")

	require.NoError(t, tx.DeleteNode(vid))
	got, err = tx.GetNode(vid)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTransactionAtomicity(t *testing.T) {
	s := newTestStore(t)
	_, err := s.InsertNode(newUser("keep", "Keep", 1))
	require.NoError(t, err)

	tx, err := s.Begin(false)
	require.NoError(t, err)
	_, err = tx.InsertNode(newUser("tmp1", "T", 1))
	require.NoError(t, err)
	_, err = tx.InsertNode(newUser("tmp2", "T", 2))
	require.NoError(t, err)
	require.NoError(t, tx.DeleteNode(value.NewString("keep")))
	tx.Rollback()

	// the state after abort equals the state at begin
	all, err := s.ScanAllVertices()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "keep", all[0].VID.String())
}

func TestCheckpointRollback(t *testing.T) {
	s := newTestStore(t)
	tx, err := s.Begin(false)
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = tx.InsertNode(newUser("a", "A", 1))
	require.NoError(t, err)

	cp := tx.Checkpoint()
	_, err = tx.InsertNode(newUser("b", "B", 2))
	require.NoError(t, err)

	require.NoError(t, tx.RollbackTo(cp))
	got, err := tx.GetNode(value.NewString("b"))
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = tx.GetNode(value.NewString("a"))
	require.NoError(t, err)
	assert.NotNil(t, got)

	// rolling back to the same checkpoint twice is a no-op
	require.NoError(t, tx.RollbackTo(cp))
	got, err = tx.GetNode(value.NewString("a"))
	require.NoError(t, err)
	assert.NotNil(t, got)

	assert.Error(t, tx.RollbackTo(999))
}

func TestSnapshotIsolation(t *testing.T) {
	s := newTestStore(t)
	reader, err := s.Begin(true)
	require.NoError(t, err)
	defer reader.Rollback()

	_, err = s.InsertNode(newUser("late", "Late", 1))
	require.NoError(t, err)

	// a reader that began before the commit does not observe it
	got, err := reader.GetNode(value.NewString("late"))
	require.NoError(t, err)
	assert.Nil(t, got)

	// a fresh read transaction does
	fresh, err := s.Begin(true)
	require.NoError(t, err)
	defer fresh.Rollback()
	got, err = fresh.GetNode(value.NewString("late"))
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestReadOnlyTransactionRejectsWrites(t *testing.T) {
	s := newTestStore(t)
	tx, err := s.Begin(true)
	require.NoError(t, err)
	defer tx.Rollback()
	_, err = tx.InsertNode(newUser("x", "X", 1))
	assert.Error(t, err)
}

func TestSettledTransactionRejected(t *testing.T) {
	s := newTestStore(t)
	tx, err := s.Begin(false)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(false))
	assert.Error(t, tx.Commit(false))
	_, err = tx.GetNode(value.NewString("x"))
	assert.Error(t, err)
}

func TestCancelStopsScans(t *testing.T) {
	s := newTestStore(t)
	_, err := s.InsertNode(newUser("a", "A", 1))
	require.NoError(t, err)

	tx, err := s.Begin(true)
	require.NoError(t, err)
	defer tx.Rollback()
	tx.Cancel()
	_, err = tx.ScanAllVertices()
	assert.Error(t, err)
}

func TestBatchInsert(t *testing.T) {
	s := newTestStore(t)
	vertices := make([]*value.Vertex, 0, 50)
	for i := 0; i < 50; i++ {
		vertices = append(vertices, newUser(string(rune('A'+i%26))+string(rune('0'+i/26)), "u", int64(i)))
	}
	vids, err := s.BatchInsertNodes(vertices)
	require.NoError(t, err)
	assert.Len(t, vids, 50)

	all, err := s.ScanAllVertices()
	require.NoError(t, err)
	assert.Len(t, all, 50)
}

func TestFileBackedStoreAndLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.db")

	s, err := Open(path, Options{})
	require.NoError(t, err)

	_, err = s.InsertNode(newUser("u1", "Alice", 30))
	require.NoError(t, err)

	// the lock file is exclusive while the handle is open
	_, err = Open(path, Options{})
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindPermissionDenied))

	require.NoError(t, s.Close())

	// reopening reads the persisted state
	s2, err := Open(path, Options{})
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.GetNode(value.NewString("u1"))
	require.NoError(t, err)
	require.NotNil(t, got)
	name, _ := got.Property("name")
	assert.Equal(t, "Alice", name.String())
}

func TestDurabilityFsyncCommit(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "graph.db"), Options{})
	require.NoError(t, err)
	defer s.Close()

	tx, err := s.Begin(false)
	require.NoError(t, err)
	_, err = tx.InsertNode(newUser("u1", "A", 1))
	require.NoError(t, err)
	require.NoError(t, tx.Commit(true))

	got, err := s.GetNode(value.NewString("u1"))
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestMetaTable(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.MetaPut("k1", []byte("v1")))
	require.NoError(t, s.MetaPut("k2", []byte("v2")))

	raw, err := s.MetaGet("k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), raw)

	var keys []string
	require.NoError(t, s.MetaScan(func(key string, _ []byte) error {
		keys = append(keys, key)
		return nil
	}))
	assert.Equal(t, []string{"k1", "k2"}, keys)

	require.NoError(t, s.MetaDelete("k1"))
	raw, err = s.MetaGet("k1")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestIDGeneratorMonotonic(t *testing.T) {
	g := NewIDGenerator()
	prev := int64(0)
	for i := 0; i < 1000; i++ {
		next := g.Next()
		assert.Greater(t, next, prev)
		prev = next
	}
}
