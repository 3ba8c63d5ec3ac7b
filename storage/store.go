package storage

import (
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"

	"graphdb.evalgo.org/cache"
	"graphdb.evalgo.org/codec"
	"graphdb.evalgo.org/common"
	"graphdb.evalgo.org/value"
)

// DefaultCacheSize is the per-table read-cache capacity.
const DefaultCacheSize = 1000

// Options tunes a Store.
type Options struct {
	CacheSize int
	Logger    *logrus.Logger
	// CacheManager receives the store's read caches for central
	// inspection. Optional.
	CacheManager *cache.Manager
}

func (o *Options) fill() {
	if o.CacheSize <= 0 {
		o.CacheSize = DefaultCacheSize
	}
	if o.Logger == nil {
		o.Logger = common.Logger
	}
}

// Store is the storage handle. Reads are served cache-first from committed
// state; all writes flow through transactions. A single exclusive advisory
// lock serialises access to the database file across processes; within the
// process, writeMu makes commits single-writer.
type Store struct {
	backend backend
	lock    *flock.Flock

	vertexCache *cache.Concurrent[string, *value.Vertex]
	edgeCache   *cache.Concurrent[string, *value.Edge]

	idgen  *IDGenerator
	logger *logrus.Entry

	writeMu sync.Mutex

	mu     sync.Mutex
	closed bool
}

// Open creates or opens a database file and acquires the exclusive
// advisory lock on the sibling <path>.lock file. A held lock fails with a
// PermissionDenied error.
func Open(path string, opts Options) (*Store, error) {
	opts.fill()

	// take the advisory lock before touching the file so a held lock is
	// reported as PermissionDenied rather than an open timeout
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, common.WrapError(common.KindStorageError, "failed to acquire file lock", err)
	}
	if !locked {
		return nil, common.WrapError(common.KindPermissionDenied, "database is locked by another process", ErrLockHeld)
	}

	b, err := openBolt(path)
	if err != nil {
		_ = lock.Unlock()
		return nil, common.WrapError(common.KindStorageError, "failed to open database file", err)
	}

	s := newStore(b, lock, opts)
	if info, statErr := os.Stat(path); statErr == nil {
		s.logger.WithFields(logrus.Fields{
			"path": path,
			"size": humanize.Bytes(uint64(info.Size())),
		}).Info("opened database")
	}
	return s, nil
}

// OpenInMemory creates a volatile store backed by maps. No file, no lock.
func OpenInMemory(opts Options) *Store {
	opts.fill()
	s := newStore(openMemory(), nil, opts)
	s.logger.Info("opened in-memory database")
	return s
}

func newStore(b backend, lock *flock.Flock, opts Options) *Store {
	vertexCache := cache.NewConcurrent[string, *value.Vertex](cache.NewLRU[string, *value.Vertex](opts.CacheSize))
	edgeCache := cache.NewConcurrent[string, *value.Edge](cache.NewLRU[string, *value.Edge](opts.CacheSize))
	if opts.CacheManager != nil {
		opts.CacheManager.Track("storage.vertices", cache.StrategyLRU, opts.CacheSize, vertexCache)
		opts.CacheManager.Track("storage.edges", cache.StrategyLRU, opts.CacheSize, edgeCache)
	}
	return &Store{
		backend:     b,
		lock:        lock,
		vertexCache: vertexCache,
		edgeCache:   edgeCache,
		idgen:       NewIDGenerator(),
		logger:      opts.Logger.WithField("component", "storage"),
	}
}

// Path returns the database file path, or ":memory:".
func (s *Store) Path() string { return s.backend.path() }

// Close releases the lock and the underlying file. Outstanding
// transactions become unusable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.vertexCache.Clear()
	s.edgeCache.Clear()
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			s.logger.WithError(err).Warn("failed to release file lock")
		}
	}
	return s.backend.close()
}

func (s *Store) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.WrapError(common.KindStorageError, "storage closed", ErrClosed)
	}
	return nil
}

// Begin opens a transaction over a stable snapshot of committed state.
func (s *Store) Begin(readOnly bool) (*Tx, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	snap, err := s.backend.snapshot()
	if err != nil {
		return nil, common.WrapError(common.KindStorageError, "failed to open snapshot", err)
	}
	return &Tx{
		store:    s,
		readOnly: readOnly,
		snap:     snap,
		overlay:  make(map[string]int),
		touched:  make(map[string]struct{}),
	}, nil
}

// withWrite runs fn inside a fresh write transaction and commits it with
// buffered (no-fsync) durability.
func (s *Store) withWrite(fn func(tx *Tx) error) error {
	tx, err := s.Begin(false)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit(false)
}

// InsertNode writes a vertex in its own transaction, assigning a vid when
// the input has none. Existing vids are overwritten (upsert).
func (s *Store) InsertNode(v *value.Vertex) (value.Value, error) {
	var vid value.Value
	err := s.withWrite(func(tx *Tx) error {
		var err error
		vid, err = tx.InsertNode(v)
		return err
	})
	return vid, err
}

// GetNode reads a vertex cache-first. A miss decodes from committed state
// and populates the cache. Returns nil without error when absent.
func (s *Store) GetNode(vid value.Value) (*value.Vertex, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	key, err := codec.NodeKey(vid)
	if err != nil {
		return nil, common.WrapError(common.KindStorageError, "failed to encode vid", err)
	}
	if v, ok := s.vertexCache.Get(string(key)); ok {
		return v, nil
	}
	snap, err := s.backend.snapshot()
	if err != nil {
		return nil, common.WrapError(common.KindStorageError, "failed to open snapshot", err)
	}
	defer snap.release()
	raw, err := snap.get(TableNodes, key)
	if err != nil {
		return nil, common.WrapError(common.KindStorageError, "failed to read node", err)
	}
	if raw == nil {
		return nil, nil
	}
	vertex, err := decodeVertex(raw)
	if err != nil {
		return nil, err
	}
	s.vertexCache.Put(string(key), vertex)
	return vertex, nil
}

// UpdateNode rewrites a vertex; the vid must be set.
func (s *Store) UpdateNode(v *value.Vertex) error {
	return s.withWrite(func(tx *Tx) error { return tx.UpdateNode(v) })
}

// DeleteNode removes a vertex and every incident edge.
func (s *Store) DeleteNode(vid value.Value) error {
	return s.withWrite(func(tx *Tx) error { return tx.DeleteNode(vid) })
}

// ScanAllVertices performs a full table scan. Intended for small graphs
// and bootstrap; planners should prefer index-assisted scans.
func (s *Store) ScanAllVertices() ([]*value.Vertex, error) {
	return s.readScanVertices(func(tx *Tx) ([]*value.Vertex, error) { return tx.ScanAllVertices() })
}

// ScanVerticesByTag iterates the tag index.
func (s *Store) ScanVerticesByTag(tag string) ([]*value.Vertex, error) {
	return s.readScanVertices(func(tx *Tx) ([]*value.Vertex, error) { return tx.ScanVerticesByTag(tag) })
}

// ScanVerticesByProp resolves a (tag, prop, value) triple through the
// property index.
func (s *Store) ScanVerticesByProp(tag, prop string, v value.Value) ([]*value.Vertex, error) {
	return s.readScanVertices(func(tx *Tx) ([]*value.Vertex, error) { return tx.ScanVerticesByProp(tag, prop, v) })
}

func (s *Store) readScanVertices(fn func(tx *Tx) ([]*value.Vertex, error)) ([]*value.Vertex, error) {
	tx, err := s.Begin(true)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	return fn(tx)
}

// InsertEdge writes an edge in its own transaction.
func (s *Store) InsertEdge(e *value.Edge) error {
	return s.withWrite(func(tx *Tx) error { return tx.InsertEdge(e) })
}

// GetEdge reads an edge cache-first. Returns nil without error when
// absent.
func (s *Store) GetEdge(src, dst value.Value, edgeType string) (*value.Edge, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	key, err := codec.EdgeKey(src, dst, edgeType)
	if err != nil {
		return nil, common.WrapError(common.KindStorageError, "failed to encode edge key", err)
	}
	if e, ok := s.edgeCache.Get(string(key)); ok {
		return e, nil
	}
	snap, err := s.backend.snapshot()
	if err != nil {
		return nil, common.WrapError(common.KindStorageError, "failed to open snapshot", err)
	}
	defer snap.release()
	raw, err := snap.get(TableEdges, key)
	if err != nil {
		return nil, common.WrapError(common.KindStorageError, "failed to read edge", err)
	}
	if raw == nil {
		return nil, nil
	}
	edge, err := decodeEdge(raw)
	if err != nil {
		return nil, err
	}
	s.edgeCache.Put(string(key), edge)
	return edge, nil
}

// GetNodeEdges returns the edges incident on vid, filtered by direction.
func (s *Store) GetNodeEdges(vid value.Value, dir value.EdgeDirection) ([]*value.Edge, error) {
	return s.readScanEdges(func(tx *Tx) ([]*value.Edge, error) { return tx.GetNodeEdges(vid, dir) })
}

// GetNodeEdgesFiltered additionally applies an in-memory predicate before
// materialising.
func (s *Store) GetNodeEdgesFiltered(vid value.Value, dir value.EdgeDirection, pred func(*value.Edge) bool) ([]*value.Edge, error) {
	return s.readScanEdges(func(tx *Tx) ([]*value.Edge, error) { return tx.GetNodeEdgesFiltered(vid, dir, pred) })
}

// DeleteEdge removes an edge row and its four index entries.
func (s *Store) DeleteEdge(src, dst value.Value, edgeType string) error {
	return s.withWrite(func(tx *Tx) error { return tx.DeleteEdge(src, dst, edgeType) })
}

// ScanEdgesByType iterates the edge-type index.
func (s *Store) ScanEdgesByType(edgeType string) ([]*value.Edge, error) {
	return s.readScanEdges(func(tx *Tx) ([]*value.Edge, error) { return tx.ScanEdgesByType(edgeType) })
}

// ScanAllEdges performs a full edge table scan.
func (s *Store) ScanAllEdges() ([]*value.Edge, error) {
	return s.readScanEdges(func(tx *Tx) ([]*value.Edge, error) { return tx.ScanAllEdges() })
}

func (s *Store) readScanEdges(fn func(tx *Tx) ([]*value.Edge, error)) ([]*value.Edge, error) {
	tx, err := s.Begin(true)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	return fn(tx)
}

// BatchInsertNodes writes all vertices inside one transaction; failure
// rolls the whole batch back.
func (s *Store) BatchInsertNodes(vertices []*value.Vertex) ([]value.Value, error) {
	vids := make([]value.Value, 0, len(vertices))
	err := s.withWrite(func(tx *Tx) error {
		for _, v := range vertices {
			vid, err := tx.InsertNode(v)
			if err != nil {
				return err
			}
			vids = append(vids, vid)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithField("count", humanize.Comma(int64(len(vids)))).Debug("batch inserted nodes")
	return vids, nil
}

// BatchInsertEdges writes all edges inside one transaction.
func (s *Store) BatchInsertEdges(edges []*value.Edge) error {
	err := s.withWrite(func(tx *Tx) error {
		for _, e := range edges {
			if err := tx.InsertEdge(e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.WithField("count", humanize.Comma(int64(len(edges)))).Debug("batch inserted edges")
	return nil
}

// MetaGet reads a key from the meta table.
func (s *Store) MetaGet(key string) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	snap, err := s.backend.snapshot()
	if err != nil {
		return nil, common.WrapError(common.KindStorageError, "failed to open snapshot", err)
	}
	defer snap.release()
	return snap.get(TableMeta, []byte(key))
}

// MetaPut writes a key to the meta table.
func (s *Store) MetaPut(key string, val []byte) error {
	return s.withWrite(func(tx *Tx) error { return tx.MetaPut(key, val) })
}

// MetaDelete removes a key from the meta table.
func (s *Store) MetaDelete(key string) error {
	return s.withWrite(func(tx *Tx) error { return tx.MetaDelete(key) })
}

// MetaScan visits all meta pairs in key order.
func (s *Store) MetaScan(fn func(key string, val []byte) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	snap, err := s.backend.snapshot()
	if err != nil {
		return common.WrapError(common.KindStorageError, "failed to open snapshot", err)
	}
	defer snap.release()
	return snap.scan(TableMeta, func(k, v []byte) error { return fn(string(k), v) })
}

func decodeVertex(raw []byte) (*value.Vertex, error) {
	vertex := &value.Vertex{}
	if err := vertex.UnmarshalJSON(raw); err != nil {
		return nil, common.WrapError(common.KindStorageError, "corrupted vertex row", err)
	}
	return vertex, nil
}

func decodeEdge(raw []byte) (*value.Edge, error) {
	edge := &value.Edge{}
	if err := edge.UnmarshalJSON(raw); err != nil {
		return nil, common.WrapError(common.KindStorageError, "corrupted edge row", err)
	}
	return edge, nil
}
