package storage

import (
	"bytes"
	"encoding/json"
	"sort"
	"sync/atomic"

	"graphdb.evalgo.org/codec"
	"graphdb.evalgo.org/common"
	"graphdb.evalgo.org/value"
)

// Tx is a storage transaction: a stable snapshot of committed state plus
// an ordered, buffered change-log. Reads see the transaction's own writes
// in program order; nothing is visible outside until Commit. The
// change-log doubles as the savepoint checkpoint primitive.
//
// A Tx is not safe for concurrent use.
type Tx struct {
	store    *Store
	readOnly bool
	snap     snapshot

	ops     []op           // ordered change-log
	overlay map[string]int // table\x00key -> latest op index
	touched map[string]struct{}

	done      bool
	cancelled atomic.Bool
}

func overlayKey(table string, key []byte) string {
	return table + "\x00" + string(key)
}

// Cancel marks the transaction cancelled; scans and writes fail from then
// on. Safe to call from another goroutine.
func (tx *Tx) Cancel() { tx.cancelled.Store(true) }

func (tx *Tx) checkUsable() error {
	if tx.done {
		return common.WrapError(common.KindTransactionFailed, "transaction settled", ErrTxDone)
	}
	if tx.cancelled.Load() {
		return common.WrapError(common.KindTransactionFailed, "transaction cancelled", ErrTxCancelled)
	}
	return nil
}

func (tx *Tx) get(table string, key []byte) ([]byte, error) {
	if idx, ok := tx.overlay[overlayKey(table, key)]; ok {
		o := tx.ops[idx]
		if o.del {
			return nil, nil
		}
		return o.val, nil
	}
	return tx.snap.get(table, key)
}

func (tx *Tx) put(table string, key, val []byte) error {
	if tx.readOnly {
		return common.WrapError(common.KindTransactionFailed, "write in read-only transaction", ErrTxReadOnly)
	}
	tx.ops = append(tx.ops, op{table: table, key: append([]byte(nil), key...), val: val})
	tx.overlay[overlayKey(table, key)] = len(tx.ops) - 1
	tx.touched[overlayKey(table, key)] = struct{}{}
	return nil
}

func (tx *Tx) del(table string, key []byte) error {
	if tx.readOnly {
		return common.WrapError(common.KindTransactionFailed, "write in read-only transaction", ErrTxReadOnly)
	}
	tx.ops = append(tx.ops, op{table: table, key: append([]byte(nil), key...), del: true})
	tx.overlay[overlayKey(table, key)] = len(tx.ops) - 1
	tx.touched[overlayKey(table, key)] = struct{}{}
	return nil
}

// scanTable merges the snapshot with the transaction's own writes.
func (tx *Tx) scanTable(table string, fn func(key, val []byte) error) error {
	if err := tx.checkUsable(); err != nil {
		return err
	}
	prefix := table + "\x00"
	seen := make(map[string]struct{})
	err := tx.snap.scan(table, func(k, v []byte) error {
		if tx.cancelled.Load() {
			return common.WrapError(common.KindTransactionFailed, "scan cancelled", ErrTxCancelled)
		}
		ok := overlayKey(table, k)
		seen[ok] = struct{}{}
		if idx, overlaid := tx.overlay[ok]; overlaid {
			o := tx.ops[idx]
			if o.del {
				return nil
			}
			return fn(k, o.val)
		}
		return fn(k, v)
	})
	if err != nil {
		return err
	}
	// new keys introduced by this transaction, in sorted order
	var fresh []string
	for ok, idx := range tx.overlay {
		if _, already := seen[ok]; already {
			continue
		}
		if len(ok) > len(prefix) && ok[:len(prefix)] == prefix && !tx.ops[idx].del {
			fresh = append(fresh, ok)
		}
	}
	sort.Strings(fresh)
	for _, ok := range fresh {
		o := tx.ops[tx.overlay[ok]]
		if err := fn([]byte(ok[len(prefix):]), o.val); err != nil {
			return err
		}
	}
	return nil
}

// Checkpoint returns the current change-log position. RollbackTo with the
// returned value discards everything written after this point.
func (tx *Tx) Checkpoint() int { return len(tx.ops) }

// RollbackTo truncates the change-log to a previous checkpoint and
// rebuilds the read overlay.
func (tx *Tx) RollbackTo(checkpoint int) error {
	if err := tx.checkUsable(); err != nil {
		return err
	}
	if checkpoint < 0 || checkpoint > len(tx.ops) {
		return common.WrapError(common.KindTransactionFailed, "invalid checkpoint", ErrBadCheckpoint)
	}
	tx.ops = tx.ops[:checkpoint]
	tx.overlay = make(map[string]int, len(tx.ops))
	tx.touched = make(map[string]struct{}, len(tx.ops))
	for i, o := range tx.ops {
		k := overlayKey(o.table, o.key)
		tx.overlay[k] = i
		tx.touched[k] = struct{}{}
	}
	return nil
}

// Commit applies the change-log atomically. sync additionally fsyncs. On
// failure the transaction stays open so the caller may retry or roll
// back. After a successful commit the touched read-cache entries are
// evicted; an aborted transaction leaks no cache state because the cache
// is only ever written by committed reads.
func (tx *Tx) Commit(sync bool) error {
	if err := tx.checkUsable(); err != nil {
		return err
	}
	tx.store.writeMu.Lock()
	err := tx.store.backend.applyBatch(tx.ops, sync)
	tx.store.writeMu.Unlock()
	if err != nil {
		return common.WrapError(common.KindStorageError, "commit failed", err)
	}
	tx.invalidateCaches()
	tx.finish()
	return nil
}

// Rollback discards the change-log.
func (tx *Tx) Rollback() {
	if tx.done {
		return
	}
	tx.finish()
}

func (tx *Tx) finish() {
	tx.done = true
	tx.snap.release()
	tx.ops = nil
	tx.overlay = nil
}

func (tx *Tx) invalidateCaches() {
	nodePrefix := TableNodes + "\x00"
	edgePrefix := TableEdges + "\x00"
	for k := range tx.touched {
		switch {
		case len(k) > len(nodePrefix) && k[:len(nodePrefix)] == nodePrefix:
			tx.store.vertexCache.Remove(k[len(nodePrefix):])
		case len(k) > len(edgePrefix) && k[:len(edgePrefix)] == edgePrefix:
			tx.store.edgeCache.Remove(k[len(edgePrefix):])
		}
	}
}

// ---------------------------------------------------------------------------
// node operations
// ---------------------------------------------------------------------------

// InsertNode writes a vertex, assigning a vid when the input has none.
// Writing an existing vid overwrites (upsert); callers needing insert-only
// must check first within the same transaction.
func (tx *Tx) InsertNode(v *value.Vertex) (value.Value, error) {
	if err := tx.checkUsable(); err != nil {
		return value.Value{}, err
	}
	if v.VID.IsEmpty() || v.VID.IsNull() {
		v.VID = value.NewInt(tx.store.idgen.Next())
	}
	return v.VID, tx.writeNode(v, false)
}

// UpdateNode rewrites a vertex. Unlike InsertNode, an unset vid is an
// error.
func (tx *Tx) UpdateNode(v *value.Vertex) error {
	if err := tx.checkUsable(); err != nil {
		return err
	}
	if v.VID.IsEmpty() || v.VID.IsNull() {
		return common.WrapError(common.KindInvalidParameter, "update requires a vertex id", ErrNilVID)
	}
	return tx.writeNode(v, true)
}

func (tx *Tx) writeNode(v *value.Vertex, mustExist bool) error {
	key, err := codec.NodeKey(v.VID)
	if err != nil {
		return common.WrapError(common.KindStorageError, "failed to encode vid", err)
	}
	oldRaw, err := tx.get(TableNodes, key)
	if err != nil {
		return common.WrapError(common.KindStorageError, "failed to read node", err)
	}
	if mustExist && oldRaw == nil {
		return common.Errorf(common.KindNotFound, "vertex %s not found", v.VID)
	}
	var old *value.Vertex
	if oldRaw != nil {
		if old, err = decodeVertex(oldRaw); err != nil {
			return err
		}
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return common.WrapError(common.KindStorageError, "failed to encode vertex", err)
	}
	if err := tx.put(TableNodes, key, raw); err != nil {
		return err
	}
	return tx.updateNodeIndexes(old, v, key)
}

// updateNodeIndexes rewrites only the changed tag and property index
// entries, comparing old against new to avoid index bloat.
func (tx *Tx) updateNodeIndexes(old, v *value.Vertex, nodeKey []byte) error {
	oldTags := map[string]struct{}{}
	oldProps := map[string][]byte{}
	if old != nil {
		for _, t := range old.Tags {
			oldTags[t.Name] = struct{}{}
			for p, pv := range t.Props {
				k, err := codec.PropIndexKey(t.Name, p, pv)
				if err != nil {
					return common.WrapError(common.KindStorageError, "failed to encode prop index key", err)
				}
				oldProps[string(k)] = k
			}
		}
	}
	newTags := map[string]struct{}{}
	newProps := map[string][]byte{}
	for _, t := range v.Tags {
		newTags[t.Name] = struct{}{}
		for p, pv := range t.Props {
			k, err := codec.PropIndexKey(t.Name, p, pv)
			if err != nil {
				return common.WrapError(common.KindStorageError, "failed to encode prop index key", err)
			}
			newProps[string(k)] = k
		}
	}

	for tag := range oldTags {
		if _, keep := newTags[tag]; !keep {
			if err := tx.removeFromIndexList(codec.TagIndexKey(tag), nodeKey); err != nil {
				return err
			}
		}
	}
	for tag := range newTags {
		if _, had := oldTags[tag]; !had {
			if err := tx.addToIndexList(codec.TagIndexKey(tag), nodeKey); err != nil {
				return err
			}
		}
	}
	for sk, k := range oldProps {
		if _, keep := newProps[sk]; !keep {
			if err := tx.removeFromIndexList(k, nodeKey); err != nil {
				return err
			}
		}
	}
	for sk, k := range newProps {
		if _, had := oldProps[sk]; !had {
			if err := tx.addToIndexList(k, nodeKey); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetNode reads a vertex, observing this transaction's own writes.
func (tx *Tx) GetNode(vid value.Value) (*value.Vertex, error) {
	if err := tx.checkUsable(); err != nil {
		return nil, err
	}
	key, err := codec.NodeKey(vid)
	if err != nil {
		return nil, common.WrapError(common.KindStorageError, "failed to encode vid", err)
	}
	raw, err := tx.get(TableNodes, key)
	if err != nil {
		return nil, common.WrapError(common.KindStorageError, "failed to read node", err)
	}
	if raw == nil {
		return nil, nil
	}
	return decodeVertex(raw)
}

// DeleteNode removes a vertex, all incident edges (both directions) and
// every index entry referring to either.
func (tx *Tx) DeleteNode(vid value.Value) error {
	if err := tx.checkUsable(); err != nil {
		return err
	}
	key, err := codec.NodeKey(vid)
	if err != nil {
		return common.WrapError(common.KindStorageError, "failed to encode vid", err)
	}
	raw, err := tx.get(TableNodes, key)
	if err != nil {
		return common.WrapError(common.KindStorageError, "failed to read node", err)
	}
	if raw == nil {
		return common.Errorf(common.KindNotFound, "vertex %s not found", vid)
	}
	v, err := decodeVertex(raw)
	if err != nil {
		return err
	}

	// incident edges first, so their adjacency entries are gone before the
	// node row goes
	adjKey, err := codec.NodeEdgeIndexKey(vid)
	if err != nil {
		return common.WrapError(common.KindStorageError, "failed to encode adjacency key", err)
	}
	edgeKeys, err := tx.readIndexList(adjKey)
	if err != nil {
		return err
	}
	for _, ek := range edgeKeys {
		edgeRaw, err := tx.get(TableEdges, ek)
		if err != nil {
			return common.WrapError(common.KindStorageError, "failed to read edge", err)
		}
		if edgeRaw == nil {
			continue
		}
		e, err := decodeEdge(edgeRaw)
		if err != nil {
			return err
		}
		if err := tx.DeleteEdge(e.Src, e.Dst, e.Type); err != nil && !common.IsKind(err, common.KindNotFound) {
			return err
		}
	}

	if err := tx.del(TableNodes, key); err != nil {
		return err
	}
	for _, t := range v.Tags {
		if err := tx.removeFromIndexList(codec.TagIndexKey(t.Name), key); err != nil {
			return err
		}
		for p, pv := range t.Props {
			pk, err := codec.PropIndexKey(t.Name, p, pv)
			if err != nil {
				return common.WrapError(common.KindStorageError, "failed to encode prop index key", err)
			}
			if err := tx.removeFromIndexList(pk, key); err != nil {
				return err
			}
		}
	}
	return tx.del(TableIndexes, adjKey)
}

// ScanAllVertices returns every vertex.
func (tx *Tx) ScanAllVertices() ([]*value.Vertex, error) {
	var out []*value.Vertex
	err := tx.scanTable(TableNodes, func(_, raw []byte) error {
		v, err := decodeVertex(raw)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

// ScanVerticesByTag iterates the tag index.
func (tx *Tx) ScanVerticesByTag(tag string) ([]*value.Vertex, error) {
	if err := tx.checkUsable(); err != nil {
		return nil, err
	}
	nodeKeys, err := tx.readIndexList(codec.TagIndexKey(tag))
	if err != nil {
		return nil, err
	}
	return tx.loadVertices(nodeKeys)
}

// ScanVerticesByProp resolves the property index for a (tag, prop, value)
// triple, deduplicating by vid.
func (tx *Tx) ScanVerticesByProp(tag, prop string, v value.Value) ([]*value.Vertex, error) {
	if err := tx.checkUsable(); err != nil {
		return nil, err
	}
	pk, err := codec.PropIndexKey(tag, prop, v)
	if err != nil {
		return nil, common.WrapError(common.KindStorageError, "failed to encode prop index key", err)
	}
	nodeKeys, err := tx.readIndexList(pk)
	if err != nil {
		return nil, err
	}
	return tx.loadVertices(nodeKeys)
}

func (tx *Tx) loadVertices(nodeKeys [][]byte) ([]*value.Vertex, error) {
	seen := make(map[string]struct{}, len(nodeKeys))
	out := make([]*value.Vertex, 0, len(nodeKeys))
	for _, nk := range nodeKeys {
		if tx.cancelled.Load() {
			return nil, common.WrapError(common.KindTransactionFailed, "scan cancelled", ErrTxCancelled)
		}
		if _, dup := seen[string(nk)]; dup {
			continue
		}
		seen[string(nk)] = struct{}{}
		raw, err := tx.get(TableNodes, nk)
		if err != nil {
			return nil, common.WrapError(common.KindStorageError, "failed to read node", err)
		}
		if raw == nil {
			continue
		}
		v, err := decodeVertex(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// edge operations
// ---------------------------------------------------------------------------

// InsertEdge writes an edge and updates the adjacency, type and property
// indexes inside the same transaction.
func (tx *Tx) InsertEdge(e *value.Edge) error {
	if err := tx.checkUsable(); err != nil {
		return err
	}
	key, err := codec.EdgeKey(e.Src, e.Dst, e.Type)
	if err != nil {
		return common.WrapError(common.KindStorageError, "failed to encode edge key", err)
	}
	oldRaw, err := tx.get(TableEdges, key)
	if err != nil {
		return common.WrapError(common.KindStorageError, "failed to read edge", err)
	}
	var old *value.Edge
	if oldRaw != nil {
		if old, err = decodeEdge(oldRaw); err != nil {
			return err
		}
	}

	raw, err := json.Marshal(e)
	if err != nil {
		return common.WrapError(common.KindStorageError, "failed to encode edge", err)
	}
	if err := tx.put(TableEdges, key, raw); err != nil {
		return err
	}

	srcAdj, err := codec.NodeEdgeIndexKey(e.Src)
	if err != nil {
		return common.WrapError(common.KindStorageError, "failed to encode adjacency key", err)
	}
	dstAdj, err := codec.NodeEdgeIndexKey(e.Dst)
	if err != nil {
		return common.WrapError(common.KindStorageError, "failed to encode adjacency key", err)
	}
	if err := tx.addToIndexList(srcAdj, key); err != nil {
		return err
	}
	if err := tx.addToIndexList(dstAdj, key); err != nil {
		return err
	}
	if err := tx.addToIndexList(codec.EdgeTypeIndexKey(e.Type), key); err != nil {
		return err
	}
	return tx.updateEdgePropIndexes(old, e, key)
}

func (tx *Tx) updateEdgePropIndexes(old, e *value.Edge, edgeKey []byte) error {
	oldProps := map[string][]byte{}
	if old != nil {
		for p, pv := range old.Props {
			k, err := codec.PropIndexKey(old.Type, p, pv)
			if err != nil {
				return common.WrapError(common.KindStorageError, "failed to encode prop index key", err)
			}
			oldProps[string(k)] = k
		}
	}
	newProps := map[string][]byte{}
	for p, pv := range e.Props {
		k, err := codec.PropIndexKey(e.Type, p, pv)
		if err != nil {
			return common.WrapError(common.KindStorageError, "failed to encode prop index key", err)
		}
		newProps[string(k)] = k
	}
	for sk, k := range oldProps {
		if _, keep := newProps[sk]; !keep {
			if err := tx.removeFromIndexList(k, edgeKey); err != nil {
				return err
			}
		}
	}
	for sk, k := range newProps {
		if _, had := oldProps[sk]; !had {
			if err := tx.addToIndexList(k, edgeKey); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetEdge reads one edge by its composite identity.
func (tx *Tx) GetEdge(src, dst value.Value, edgeType string) (*value.Edge, error) {
	if err := tx.checkUsable(); err != nil {
		return nil, err
	}
	key, err := codec.EdgeKey(src, dst, edgeType)
	if err != nil {
		return nil, common.WrapError(common.KindStorageError, "failed to encode edge key", err)
	}
	raw, err := tx.get(TableEdges, key)
	if err != nil {
		return nil, common.WrapError(common.KindStorageError, "failed to read edge", err)
	}
	if raw == nil {
		return nil, nil
	}
	return decodeEdge(raw)
}

// GetNodeEdges consults the adjacency index and filters by direction.
func (tx *Tx) GetNodeEdges(vid value.Value, dir value.EdgeDirection) ([]*value.Edge, error) {
	return tx.GetNodeEdgesFiltered(vid, dir, nil)
}

// GetNodeEdgesFiltered additionally applies a predicate before
// materialising.
func (tx *Tx) GetNodeEdgesFiltered(vid value.Value, dir value.EdgeDirection, pred func(*value.Edge) bool) ([]*value.Edge, error) {
	if err := tx.checkUsable(); err != nil {
		return nil, err
	}
	adjKey, err := codec.NodeEdgeIndexKey(vid)
	if err != nil {
		return nil, common.WrapError(common.KindStorageError, "failed to encode adjacency key", err)
	}
	edgeKeys, err := tx.readIndexList(adjKey)
	if err != nil {
		return nil, err
	}
	var out []*value.Edge
	for _, ek := range edgeKeys {
		if tx.cancelled.Load() {
			return nil, common.WrapError(common.KindTransactionFailed, "scan cancelled", ErrTxCancelled)
		}
		raw, err := tx.get(TableEdges, ek)
		if err != nil {
			return nil, common.WrapError(common.KindStorageError, "failed to read edge", err)
		}
		if raw == nil {
			continue
		}
		e, err := decodeEdge(raw)
		if err != nil {
			return nil, err
		}
		switch dir {
		case value.DirOut:
			if !e.Src.Equal(vid) {
				continue
			}
		case value.DirIn:
			if !e.Dst.Equal(vid) {
				continue
			}
		}
		if pred != nil && !pred(e) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// DeleteEdge removes the row and its adjacency (src and dst), type and
// property index entries.
func (tx *Tx) DeleteEdge(src, dst value.Value, edgeType string) error {
	if err := tx.checkUsable(); err != nil {
		return err
	}
	key, err := codec.EdgeKey(src, dst, edgeType)
	if err != nil {
		return common.WrapError(common.KindStorageError, "failed to encode edge key", err)
	}
	raw, err := tx.get(TableEdges, key)
	if err != nil {
		return common.WrapError(common.KindStorageError, "failed to read edge", err)
	}
	if raw == nil {
		return common.Errorf(common.KindNotFound, "edge %s-[%s]->%s not found", src, edgeType, dst)
	}
	e, err := decodeEdge(raw)
	if err != nil {
		return err
	}
	if err := tx.del(TableEdges, key); err != nil {
		return err
	}

	srcAdj, err := codec.NodeEdgeIndexKey(src)
	if err != nil {
		return common.WrapError(common.KindStorageError, "failed to encode adjacency key", err)
	}
	dstAdj, err := codec.NodeEdgeIndexKey(dst)
	if err != nil {
		return common.WrapError(common.KindStorageError, "failed to encode adjacency key", err)
	}
	if err := tx.removeFromIndexList(srcAdj, key); err != nil {
		return err
	}
	if err := tx.removeFromIndexList(dstAdj, key); err != nil {
		return err
	}
	if err := tx.removeFromIndexList(codec.EdgeTypeIndexKey(edgeType), key); err != nil {
		return err
	}
	for p, pv := range e.Props {
		pk, err := codec.PropIndexKey(e.Type, p, pv)
		if err != nil {
			return common.WrapError(common.KindStorageError, "failed to encode prop index key", err)
		}
		if err := tx.removeFromIndexList(pk, key); err != nil {
			return err
		}
	}
	return nil
}

// ScanEdgesByType iterates the edge-type index.
func (tx *Tx) ScanEdgesByType(edgeType string) ([]*value.Edge, error) {
	if err := tx.checkUsable(); err != nil {
		return nil, err
	}
	edgeKeys, err := tx.readIndexList(codec.EdgeTypeIndexKey(edgeType))
	if err != nil {
		return nil, err
	}
	out := make([]*value.Edge, 0, len(edgeKeys))
	for _, ek := range edgeKeys {
		raw, err := tx.get(TableEdges, ek)
		if err != nil {
			return nil, common.WrapError(common.KindStorageError, "failed to read edge", err)
		}
		if raw == nil {
			continue
		}
		e, err := decodeEdge(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// ScanAllEdges returns every edge.
func (tx *Tx) ScanAllEdges() ([]*value.Edge, error) {
	var out []*value.Edge
	err := tx.scanTable(TableEdges, func(_, raw []byte) error {
		e, err := decodeEdge(raw)
		if err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

// ---------------------------------------------------------------------------
// meta operations
// ---------------------------------------------------------------------------

// MetaGet reads a key from the meta table.
func (tx *Tx) MetaGet(key string) ([]byte, error) {
	if err := tx.checkUsable(); err != nil {
		return nil, err
	}
	return tx.get(TableMeta, []byte(key))
}

// MetaPut writes a key to the meta table.
func (tx *Tx) MetaPut(key string, val []byte) error {
	if err := tx.checkUsable(); err != nil {
		return err
	}
	return tx.put(TableMeta, []byte(key), val)
}

// MetaDelete removes a key from the meta table.
func (tx *Tx) MetaDelete(key string) error {
	if err := tx.checkUsable(); err != nil {
		return err
	}
	return tx.del(TableMeta, []byte(key))
}

// MetaScan visits all meta pairs in key order.
func (tx *Tx) MetaScan(fn func(key string, val []byte) error) error {
	return tx.scanTable(TableMeta, func(k, v []byte) error { return fn(string(k), v) })
}

// ---------------------------------------------------------------------------
// index list plumbing
// ---------------------------------------------------------------------------

// Index payloads are JSON lists of byte keys.
func (tx *Tx) readIndexList(key []byte) ([][]byte, error) {
	raw, err := tx.get(TableIndexes, key)
	if err != nil {
		return nil, common.WrapError(common.KindStorageError, "failed to read index", err)
	}
	if raw == nil {
		return nil, nil
	}
	var list [][]byte
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, common.WrapError(common.KindStorageError, "corrupted index entry", err)
	}
	return list, nil
}

func (tx *Tx) writeIndexList(key []byte, list [][]byte) error {
	if len(list) == 0 {
		return tx.del(TableIndexes, key)
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return common.WrapError(common.KindStorageError, "failed to encode index entry", err)
	}
	return tx.put(TableIndexes, key, raw)
}

func (tx *Tx) addToIndexList(key, item []byte) error {
	list, err := tx.readIndexList(key)
	if err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, item) {
			return nil
		}
	}
	return tx.writeIndexList(key, append(list, item))
}

func (tx *Tx) removeFromIndexList(key, item []byte) error {
	list, err := tx.readIndexList(key)
	if err != nil {
		return err
	}
	kept := list[:0]
	found := false
	for _, existing := range list {
		if bytes.Equal(existing, item) {
			found = true
			continue
		}
		kept = append(kept, existing)
	}
	if !found {
		return nil
	}
	return tx.writeIndexList(key, kept)
}
