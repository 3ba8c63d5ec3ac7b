package storage

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// boltBackend stores all tables as buckets of a single bbolt file. The DB
// is opened NoSync: commit durability is decided per transaction by the
// sync flag of applyBatch.
type boltBackend struct {
	db     *bolt.DB
	dbPath string
}

func openBolt(path string) (*boltBackend, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
		NoSync:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, table := range allTables {
			if _, err := tx.CreateBucketIfNotExists([]byte(table)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &boltBackend{db: db, dbPath: path}, nil
}

func (b *boltBackend) snapshot() (snapshot, error) {
	tx, err := b.db.Begin(false)
	if err != nil {
		return nil, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	return &boltSnapshot{tx: tx}, nil
}

func (b *boltBackend) applyBatch(ops []op, sync bool) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		for _, o := range ops {
			bucket := tx.Bucket([]byte(o.table))
			if bucket == nil {
				return fmt.Errorf("bucket not found: %s", o.table)
			}
			if o.del {
				if err := bucket.Delete(o.key); err != nil {
					return err
				}
			} else if err := bucket.Put(o.key, o.val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if sync {
		if err := b.db.Sync(); err != nil {
			return fmt.Errorf("fsync failed: %w", err)
		}
	}
	return nil
}

func (b *boltBackend) close() error { return b.db.Close() }

func (b *boltBackend) path() string { return b.dbPath }

type boltSnapshot struct {
	tx *bolt.Tx
}

func (s *boltSnapshot) get(table string, key []byte) ([]byte, error) {
	bucket := s.tx.Bucket([]byte(table))
	if bucket == nil {
		return nil, fmt.Errorf("bucket not found: %s", table)
	}
	val := bucket.Get(key)
	if val == nil {
		return nil, nil
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (s *boltSnapshot) scan(table string, fn func(key, val []byte) error) error {
	bucket := s.tx.Bucket([]byte(table))
	if bucket == nil {
		return fmt.Errorf("bucket not found: %s", table)
	}
	return bucket.ForEach(fn)
}

func (s *boltSnapshot) release() {
	_ = s.tx.Rollback()
}
