package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphdb.evalgo.org/common"
	"graphdb.evalgo.org/storage"
)

func newTestManager(t *testing.T) (*Manager, *storage.Store) {
	t.Helper()
	store := storage.OpenInMemory(storage.Options{})
	t.Cleanup(func() { _ = store.Close() })
	m, err := NewManager(store, nil)
	require.NoError(t, err)
	return m, store
}

func TestSpaceLifecycle(t *testing.T) {
	m, _ := newTestManager(t)

	s, err := m.CreateSpace("g", SpaceConfig{})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.ID)
	assert.Equal(t, VidInt, s.Config.VidType)
	assert.Equal(t, 1, s.Config.PartitionNum)

	_, err = m.CreateSpace("g", SpaceConfig{})
	assert.True(t, common.IsKind(err, common.KindSchemaOperationFailed))

	s2, err := m.CreateSpace("h", SpaceConfig{VidType: VidString, Comment: "second"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), s2.ID)

	got, err := m.GetSpace("g")
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	byID, err := m.GetSpaceByID(2)
	require.NoError(t, err)
	assert.Equal(t, "h", byID.Name)

	spaces := m.ListSpaces()
	require.Len(t, spaces, 2)
	assert.Equal(t, "g", spaces[0].Name)

	require.NoError(t, m.DropSpace("g"))
	_, err = m.GetSpace("g")
	assert.True(t, common.IsKind(err, common.KindNotFound))
	assert.True(t, common.IsKind(m.DropSpace("g"), common.KindNotFound))
}

func TestTagAndEdgeTypeOperations(t *testing.T) {
	m, _ := newTestManager(t)
	s, err := m.CreateSpace("g", SpaceConfig{})
	require.NoError(t, err)

	props := []PropertySchema{{Name: "name", Type: "string"}, {Name: "age", Type: "int", Nullable: true}}
	tag, err := m.CreateTag(s.ID, "user", props)
	require.NoError(t, err)
	assert.Len(t, tag.Props, 2)

	_, err = m.CreateTag(s.ID, "user", nil)
	assert.True(t, common.IsKind(err, common.KindSchemaOperationFailed))

	got, err := m.GetTag(s.ID, "user")
	require.NoError(t, err)
	assert.Equal(t, "name", got.Props[0].Name)

	_, err = m.CreateEdgeType(s.ID, "knows", []PropertySchema{{Name: "since", Type: "int"}})
	require.NoError(t, err)
	_, err = m.GetEdgeType(s.ID, "knows")
	require.NoError(t, err)

	assert.Len(t, m.ListTags(s.ID), 1)
	assert.Len(t, m.ListEdgeTypes(s.ID), 1)

	// tags are scoped per space
	other, err := m.CreateSpace("h", SpaceConfig{})
	require.NoError(t, err)
	_, err = m.CreateTag(other.ID, "user", nil)
	require.NoError(t, err)
	assert.Len(t, m.ListTags(other.ID), 1)

	require.NoError(t, m.DropTag(s.ID, "user"))
	_, err = m.GetTag(s.ID, "user")
	assert.True(t, common.IsKind(err, common.KindNotFound))

	require.NoError(t, m.DropEdgeType(s.ID, "knows"))
	assert.True(t, common.IsKind(m.DropEdgeType(s.ID, "knows"), common.KindNotFound))
}

func TestIndexOperations(t *testing.T) {
	m, _ := newTestManager(t)
	s, err := m.CreateSpace("g", SpaceConfig{})
	require.NoError(t, err)
	_, err = m.CreateTag(s.ID, "user", []PropertySchema{{Name: "name", Type: "string"}})
	require.NoError(t, err)

	idx, err := m.CreateIndex(s.ID, "user_by_name", IndexOnTag, "user", []string{"name"})
	require.NoError(t, err)
	assert.Equal(t, IndexOnTag, idx.Target)

	// the target must exist
	_, err = m.CreateIndex(s.ID, "broken", IndexOnTag, "ghost", nil)
	assert.True(t, common.IsKind(err, common.KindSchemaOperationFailed))
	_, err = m.CreateIndex(s.ID, "broken", IndexOnEdgeType, "ghost", nil)
	assert.True(t, common.IsKind(err, common.KindSchemaOperationFailed))

	_, err = m.CreateIndex(s.ID, "user_by_name", IndexOnTag, "user", nil)
	assert.True(t, common.IsKind(err, common.KindSchemaOperationFailed))

	assert.Len(t, m.ListIndexes(s.ID), 1)
	require.NoError(t, m.DropIndex(s.ID, "user_by_name"))
	assert.Empty(t, m.ListIndexes(s.ID))
}

func TestCatalogPersistsAcrossReload(t *testing.T) {
	store := storage.OpenInMemory(storage.Options{})
	t.Cleanup(func() { _ = store.Close() })

	m1, err := NewManager(store, nil)
	require.NoError(t, err)
	s, err := m1.CreateSpace("g", SpaceConfig{VidType: VidString})
	require.NoError(t, err)
	_, err = m1.CreateTag(s.ID, "user", nil)
	require.NoError(t, err)
	_, err = m1.CreateEdgeType(s.ID, "knows", nil)
	require.NoError(t, err)
	_, err = m1.CreateIndex(s.ID, "idx", IndexOnEdgeType, "knows", []string{"since"})
	require.NoError(t, err)

	// a fresh manager over the same store sees the persisted catalog
	m2, err := NewManager(store, nil)
	require.NoError(t, err)
	got, err := m2.GetSpace("g")
	require.NoError(t, err)
	assert.Equal(t, VidString, got.Config.VidType)
	_, err = m2.GetTag(s.ID, "user")
	require.NoError(t, err)
	assert.Len(t, m2.ListIndexes(s.ID), 1)

	// the id counter survives, so new spaces keep increasing ids
	next, err := m2.CreateSpace("h", SpaceConfig{})
	require.NoError(t, err)
	assert.Greater(t, next.ID, s.ID)
}
