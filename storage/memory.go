package storage

import (
	"sort"
	"sync"
)

// memoryBackend keeps all tables in maps. Snapshots clone every table,
// giving readers the same stable view the file backend provides.
// Intended for OpenInMemory and tests.
type memoryBackend struct {
	mu     sync.RWMutex
	tables map[string]map[string][]byte
}

func openMemory() *memoryBackend {
	tables := make(map[string]map[string][]byte, len(allTables))
	for _, t := range allTables {
		tables[t] = make(map[string][]byte)
	}
	return &memoryBackend{tables: tables}
}

func (b *memoryBackend) snapshot() (snapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	clone := make(map[string]map[string][]byte, len(b.tables))
	for name, table := range b.tables {
		copied := make(map[string][]byte, len(table))
		for k, v := range table {
			copied[k] = v
		}
		clone[name] = copied
	}
	return &memorySnapshot{tables: clone}, nil
}

func (b *memoryBackend) applyBatch(ops []op, _ bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, o := range ops {
		table := b.tables[o.table]
		if o.del {
			delete(table, string(o.key))
		} else {
			val := make([]byte, len(o.val))
			copy(val, o.val)
			table[string(o.key)] = val
		}
	}
	return nil
}

func (b *memoryBackend) close() error { return nil }

func (b *memoryBackend) path() string { return ":memory:" }

type memorySnapshot struct {
	tables map[string]map[string][]byte
}

func (s *memorySnapshot) get(table string, key []byte) ([]byte, error) {
	val, ok := s.tables[table][string(key)]
	if !ok {
		return nil, nil
	}
	return val, nil
}

func (s *memorySnapshot) scan(table string, fn func(key, val []byte) error) error {
	t := s.tables[table]
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn([]byte(k), t[k]); err != nil {
			return err
		}
	}
	return nil
}

func (s *memorySnapshot) release() {}
