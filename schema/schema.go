// Package schema manages the catalog: spaces, tags, edge types and index
// definitions. Definitions persist in the storage meta table as JSON and
// are served from an in-memory catalog guarded by a mutex.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"graphdb.evalgo.org/common"
	"graphdb.evalgo.org/storage"
)

// VidType fixes the kind of vertex ids in a space.
type VidType string

const (
	VidInt    VidType = "INT"
	VidString VidType = "STRING"
)

// PropertySchema is one entry of a tag's or edge type's ordered property
// schema.
type PropertySchema struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
}

// SpaceConfig is the caller-supplied space configuration.
type SpaceConfig struct {
	VidType       VidType `json:"vid_type"`
	PartitionNum  int     `json:"partition_num"`
	ReplicaFactor int     `json:"replica_factor"`
	Comment       string  `json:"comment,omitempty"`
}

// Space is a named, isolated graph with its own schema and vid type.
type Space struct {
	ID     uint64      `json:"id"`
	Name   string      `json:"name"`
	Config SpaceConfig `json:"config"`
}

// TagDef is a label with an associated property schema.
type TagDef struct {
	SpaceID uint64           `json:"space_id"`
	Name    string           `json:"name"`
	Props   []PropertySchema `json:"props"`
}

// EdgeTypeDef is a named relation with a property schema and a default
// version.
type EdgeTypeDef struct {
	SpaceID        uint64           `json:"space_id"`
	Name           string           `json:"name"`
	Props          []PropertySchema `json:"props"`
	DefaultVersion int64            `json:"default_version"`
}

// IndexTarget discriminates what an index covers.
type IndexTarget string

const (
	IndexOnTag      IndexTarget = "tag"
	IndexOnEdgeType IndexTarget = "edge"
)

// IndexDef names an index over a tag's or edge type's properties. The
// planner consults these; the storage layer maintains the physical
// property indexes regardless.
type IndexDef struct {
	SpaceID uint64      `json:"space_id"`
	Name    string      `json:"name"`
	Target  IndexTarget `json:"target"`
	OnName  string      `json:"on_name"`
	Props   []string    `json:"props"`
}

const (
	metaSpacePrefix    = "schema:space:"
	metaTagPrefix      = "schema:tag:"
	metaEdgePrefix     = "schema:edge:"
	metaIndexPrefix    = "schema:index:"
	metaNextSpaceIDKey = "schema:next_space_id"
)

// Manager is the catalog. All mutations write through to the meta table
// before updating the in-memory maps.
type Manager struct {
	mu     sync.Mutex
	store  *storage.Store
	spaces map[string]*Space
	tags   map[string]*TagDef      // spaceID:name
	edges  map[string]*EdgeTypeDef // spaceID:name
	idx    map[string]*IndexDef    // spaceID:name
	nextID uint64
	logger *logrus.Entry
}

// NewManager loads the catalog from the store.
func NewManager(store *storage.Store, logger *logrus.Logger) (*Manager, error) {
	if logger == nil {
		logger = common.Logger
	}
	m := &Manager{
		store:  store,
		spaces: make(map[string]*Space),
		tags:   make(map[string]*TagDef),
		edges:  make(map[string]*EdgeTypeDef),
		idx:    make(map[string]*IndexDef),
		nextID: 1,
		logger: logger.WithField("component", "schema"),
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func scopedKey(spaceID uint64, name string) string {
	return strconv.FormatUint(spaceID, 10) + ":" + name
}

func (m *Manager) load() error {
	return m.store.MetaScan(func(key string, val []byte) error {
		switch {
		case key == metaNextSpaceIDKey:
			id, err := strconv.ParseUint(string(val), 10, 64)
			if err != nil {
				return common.WrapError(common.KindStorageError, "corrupted space id counter", err)
			}
			m.nextID = id
		case strings.HasPrefix(key, metaSpacePrefix):
			var s Space
			if err := json.Unmarshal(val, &s); err != nil {
				return common.WrapError(common.KindStorageError, "corrupted space definition", err)
			}
			m.spaces[s.Name] = &s
		case strings.HasPrefix(key, metaTagPrefix):
			var t TagDef
			if err := json.Unmarshal(val, &t); err != nil {
				return common.WrapError(common.KindStorageError, "corrupted tag definition", err)
			}
			m.tags[scopedKey(t.SpaceID, t.Name)] = &t
		case strings.HasPrefix(key, metaEdgePrefix):
			var e EdgeTypeDef
			if err := json.Unmarshal(val, &e); err != nil {
				return common.WrapError(common.KindStorageError, "corrupted edge type definition", err)
			}
			m.edges[scopedKey(e.SpaceID, e.Name)] = &e
		case strings.HasPrefix(key, metaIndexPrefix):
			var i IndexDef
			if err := json.Unmarshal(val, &i); err != nil {
				return common.WrapError(common.KindStorageError, "corrupted index definition", err)
			}
			m.idx[scopedKey(i.SpaceID, i.Name)] = &i
		}
		return nil
	})
}

func (m *Manager) persist(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return common.WrapError(common.KindStorageError, "failed to encode definition", err)
	}
	return m.store.MetaPut(key, raw)
}

// CreateSpace assigns an id and persists the space. Duplicate names fail.
func (m *Manager) CreateSpace(name string, cfg SpaceConfig) (*Space, error) {
	if name == "" {
		return nil, common.NewError(common.KindInvalidParameter, "space name must not be empty")
	}
	if cfg.VidType == "" {
		cfg.VidType = VidInt
	}
	if cfg.PartitionNum <= 0 {
		cfg.PartitionNum = 1
	}
	if cfg.ReplicaFactor <= 0 {
		cfg.ReplicaFactor = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.spaces[name]; exists {
		return nil, common.Errorf(common.KindSchemaOperationFailed, "space %s already exists", name)
	}
	s := &Space{ID: m.nextID, Name: name, Config: cfg}
	m.nextID++
	if err := m.store.MetaPut(metaNextSpaceIDKey, []byte(strconv.FormatUint(m.nextID, 10))); err != nil {
		return nil, err
	}
	if err := m.persist(metaSpacePrefix+name, s); err != nil {
		return nil, err
	}
	m.spaces[name] = s
	m.logger.WithFields(logrus.Fields{"space": name, "id": s.ID}).Info("space created")
	return s, nil
}

// DropSpace removes the space and all its tag, edge type and index
// definitions.
func (m *Manager) DropSpace(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, exists := m.spaces[name]
	if !exists {
		return common.Errorf(common.KindNotFound, "space %s not found", name)
	}
	if err := m.store.MetaDelete(metaSpacePrefix + name); err != nil {
		return err
	}
	for key, t := range m.tags {
		if t.SpaceID == s.ID {
			if err := m.store.MetaDelete(metaTagPrefix + key); err != nil {
				return err
			}
			delete(m.tags, key)
		}
	}
	for key, e := range m.edges {
		if e.SpaceID == s.ID {
			if err := m.store.MetaDelete(metaEdgePrefix + key); err != nil {
				return err
			}
			delete(m.edges, key)
		}
	}
	for key, i := range m.idx {
		if i.SpaceID == s.ID {
			if err := m.store.MetaDelete(metaIndexPrefix + key); err != nil {
				return err
			}
			delete(m.idx, key)
		}
	}
	delete(m.spaces, name)
	m.logger.WithField("space", name).Info("space dropped")
	return nil
}

// GetSpace resolves a space by name.
func (m *Manager) GetSpace(name string) (*Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.spaces[name]
	if !ok {
		return nil, common.Errorf(common.KindNotFound, "space %s not found", name)
	}
	return s, nil
}

// GetSpaceByID resolves a space by id.
func (m *Manager) GetSpaceByID(id uint64) (*Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.spaces {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, common.Errorf(common.KindNotFound, "space %d not found", id)
}

// ListSpaces returns all spaces sorted by name.
func (m *Manager) ListSpaces() []*Space {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Space, 0, len(m.spaces))
	for _, s := range m.spaces {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CreateTag attaches a tag schema to a space.
func (m *Manager) CreateTag(spaceID uint64, name string, props []PropertySchema) (*TagDef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scopedKey(spaceID, name)
	if _, exists := m.tags[key]; exists {
		return nil, common.Errorf(common.KindSchemaOperationFailed, "tag %s already exists", name)
	}
	t := &TagDef{SpaceID: spaceID, Name: name, Props: props}
	if err := m.persist(metaTagPrefix+key, t); err != nil {
		return nil, err
	}
	m.tags[key] = t
	return t, nil
}

// DropTag removes a tag definition.
func (m *Manager) DropTag(spaceID uint64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scopedKey(spaceID, name)
	if _, exists := m.tags[key]; !exists {
		return common.Errorf(common.KindNotFound, "tag %s not found", name)
	}
	if err := m.store.MetaDelete(metaTagPrefix + key); err != nil {
		return err
	}
	delete(m.tags, key)
	return nil
}

// GetTag resolves a tag in a space.
func (m *Manager) GetTag(spaceID uint64, name string) (*TagDef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tags[scopedKey(spaceID, name)]
	if !ok {
		return nil, common.Errorf(common.KindNotFound, "tag %s not found", name)
	}
	return t, nil
}

// ListTags returns a space's tags sorted by name.
func (m *Manager) ListTags(spaceID uint64) []*TagDef {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*TagDef
	for _, t := range m.tags {
		if t.SpaceID == spaceID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CreateEdgeType attaches an edge type schema to a space.
func (m *Manager) CreateEdgeType(spaceID uint64, name string, props []PropertySchema) (*EdgeTypeDef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scopedKey(spaceID, name)
	if _, exists := m.edges[key]; exists {
		return nil, common.Errorf(common.KindSchemaOperationFailed, "edge type %s already exists", name)
	}
	e := &EdgeTypeDef{SpaceID: spaceID, Name: name, Props: props}
	if err := m.persist(metaEdgePrefix+key, e); err != nil {
		return nil, err
	}
	m.edges[key] = e
	return e, nil
}

// DropEdgeType removes an edge type definition.
func (m *Manager) DropEdgeType(spaceID uint64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scopedKey(spaceID, name)
	if _, exists := m.edges[key]; !exists {
		return common.Errorf(common.KindNotFound, "edge type %s not found", name)
	}
	if err := m.store.MetaDelete(metaEdgePrefix + key); err != nil {
		return err
	}
	delete(m.edges, key)
	return nil
}

// GetEdgeType resolves an edge type in a space.
func (m *Manager) GetEdgeType(spaceID uint64, name string) (*EdgeTypeDef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.edges[scopedKey(spaceID, name)]
	if !ok {
		return nil, common.Errorf(common.KindNotFound, "edge type %s not found", name)
	}
	return e, nil
}

// ListEdgeTypes returns a space's edge types sorted by name.
func (m *Manager) ListEdgeTypes(spaceID uint64) []*EdgeTypeDef {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*EdgeTypeDef
	for _, e := range m.edges {
		if e.SpaceID == spaceID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CreateIndex records an index over a tag or edge type. The target must
// exist.
func (m *Manager) CreateIndex(spaceID uint64, name string, target IndexTarget, onName string, props []string) (*IndexDef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scopedKey(spaceID, name)
	if _, exists := m.idx[key]; exists {
		return nil, common.Errorf(common.KindSchemaOperationFailed, "index %s already exists", name)
	}
	switch target {
	case IndexOnTag:
		if _, ok := m.tags[scopedKey(spaceID, onName)]; !ok {
			return nil, common.Errorf(common.KindSchemaOperationFailed, "index target tag %s not found", onName)
		}
	case IndexOnEdgeType:
		if _, ok := m.edges[scopedKey(spaceID, onName)]; !ok {
			return nil, common.Errorf(common.KindSchemaOperationFailed, "index target edge type %s not found", onName)
		}
	default:
		return nil, common.Errorf(common.KindInvalidParameter, "unknown index target %q", target)
	}
	i := &IndexDef{SpaceID: spaceID, Name: name, Target: target, OnName: onName, Props: props}
	if err := m.persist(metaIndexPrefix+key, i); err != nil {
		return nil, err
	}
	m.idx[key] = i
	return i, nil
}

// DropIndex removes an index definition.
func (m *Manager) DropIndex(spaceID uint64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scopedKey(spaceID, name)
	if _, exists := m.idx[key]; !exists {
		return common.Errorf(common.KindNotFound, "index %s not found", name)
	}
	if err := m.store.MetaDelete(metaIndexPrefix + key); err != nil {
		return err
	}
	delete(m.idx, key)
	return nil
}

// ListIndexes returns a space's indexes sorted by name.
func (m *Manager) ListIndexes(spaceID uint64) []*IndexDef {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*IndexDef
	for _, i := range m.idx {
		if i.SpaceID == spaceID {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// String renders a space for logs.
func (s *Space) String() string {
	return fmt.Sprintf("%s(id=%d, vid=%s)", s.Name, s.ID, s.Config.VidType)
}
