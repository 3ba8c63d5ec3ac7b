// Package session implements the embedded API surface: the Database
// handle, Sessions bound to it, explicit Transaction handles with
// savepoints, the batch inserter and prepared statements. It is the
// boundary both the embedded and the server APIs sit on.
package session

import (
	"time"

	"github.com/sirupsen/logrus"

	"graphdb.evalgo.org/cache"
	"graphdb.evalgo.org/common"
	"graphdb.evalgo.org/config"
	"graphdb.evalgo.org/expr"
	"graphdb.evalgo.org/schema"
	"graphdb.evalgo.org/storage"
	"graphdb.evalgo.org/txn"
	"graphdb.evalgo.org/value"
)

// QueryContext carries the execution context of one statement into the
// pipeline manager.
type QueryContext struct {
	SpaceID       *uint64
	TransactionID *uint64
	AutoCommit    bool
	Parameters    map[string]value.Value
}

// PipelineManager is the external parser+planner collaborator. It turns a
// statement into an execution plan over expression trees and runs it.
type PipelineManager interface {
	Execute(qctx *QueryContext, query string) (*QueryResult, error)
}

// Options tunes a Database.
type Options struct {
	CacheSize      int
	MaxActiveTxns  int
	DefaultTimeout time.Duration
	ReaperInterval time.Duration
	Logger         *logrus.Logger
}

func (o *Options) fill() {
	if o.DefaultTimeout <= 0 {
		o.DefaultTimeout = 60 * time.Second
	}
	if o.ReaperInterval <= 0 {
		o.ReaperInterval = time.Second
	}
	if o.Logger == nil {
		o.Logger = common.Logger
	}
}

// Database owns the engine components: storage, the transaction and
// savepoint managers, the schema catalog, the function registry and the
// cache registry.
type Database struct {
	store    *storage.Store
	txns     *txn.Manager
	catalog  *schema.Manager
	registry *expr.Registry
	caches   *cache.Manager
	pipeline PipelineManager
	reaper   *txn.Reaper
	opts     Options
	logger   *logrus.Entry
}

// Open opens or creates a database file.
func Open(path string, opts Options) (*Database, error) {
	opts.fill()
	caches := cache.NewManager()
	store, err := storage.Open(path, storage.Options{
		CacheSize:    opts.CacheSize,
		Logger:       opts.Logger,
		CacheManager: caches,
	})
	if err != nil {
		return nil, err
	}
	return newDatabase(store, caches, opts)
}

// OpenWithConfig opens a database using the loaded engine configuration.
func OpenWithConfig(cfg config.Config) (*Database, error) {
	opts := Options{
		MaxActiveTxns:  cfg.Database.MaxConnections,
		DefaultTimeout: cfg.DefaultTimeout(),
		Logger: common.NewLogger(common.LoggerConfig{
			Level:  cfg.Log.Level,
			Format: "text",
		}),
	}
	if cfg.Database.StoragePath == ":memory:" {
		return OpenInMemory(opts)
	}
	return Open(cfg.Database.StoragePath, opts)
}

// OpenInMemory creates a volatile database.
func OpenInMemory(opts Options) (*Database, error) {
	opts.fill()
	caches := cache.NewManager()
	store := storage.OpenInMemory(storage.Options{
		CacheSize:    opts.CacheSize,
		Logger:       opts.Logger,
		CacheManager: caches,
	})
	return newDatabase(store, caches, opts)
}

func newDatabase(store *storage.Store, caches *cache.Manager, opts Options) (*Database, error) {
	catalog, err := schema.NewManager(store, opts.Logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	txns := txn.NewManager(store, txn.Config{
		MaxActive:      opts.MaxActiveTxns,
		DefaultTimeout: opts.DefaultTimeout,
		Logger:         opts.Logger,
	})
	db := &Database{
		store:    store,
		txns:     txns,
		catalog:  catalog,
		registry: expr.NewRegistry(),
		caches:   caches,
		opts:     opts,
		logger:   opts.Logger.WithField("component", "database"),
	}
	db.reaper = txn.NewReaper(txns, opts.ReaperInterval)
	db.reaper.Start()
	return db, nil
}

// Close stops the reaper and releases the storage handle.
func (db *Database) Close() error {
	db.reaper.Stop()
	return db.store.Close()
}

// Session opens a session bound to this database. Auto-commit defaults to
// true.
func (db *Database) Session() *Session {
	return newSession(db)
}

// SetPipelineManager installs the parser+planner collaborator queries run
// through.
func (db *Database) SetPipelineManager(pm PipelineManager) {
	db.pipeline = pm
}

// Execute runs a statement on a throwaway session.
func (db *Database) Execute(query string) (*QueryResult, error) {
	return db.Session().Execute(query)
}

// ExecuteWithParams runs a parameterised statement on a throwaway session.
func (db *Database) ExecuteWithParams(query string, params map[string]value.Value) (*QueryResult, error) {
	return db.Session().ExecuteWithParams(query, params)
}

// CreateSpace creates a named space.
func (db *Database) CreateSpace(name string, cfg schema.SpaceConfig) (*schema.Space, error) {
	return db.catalog.CreateSpace(name, cfg)
}

// DropSpace removes a space and its schema.
func (db *Database) DropSpace(name string) error {
	return db.catalog.DropSpace(name)
}

// ListSpaces lists all spaces.
func (db *Database) ListSpaces() []*schema.Space {
	return db.catalog.ListSpaces()
}

// Store exposes the storage handle.
func (db *Database) Store() *storage.Store { return db.store }

// Transactions exposes the transaction manager.
func (db *Database) Transactions() *txn.Manager { return db.txns }

// Schema exposes the schema catalog.
func (db *Database) Schema() *schema.Manager { return db.catalog }

// Registry exposes the function registry for user-function registration.
func (db *Database) Registry() *expr.Registry { return db.registry }

// Caches exposes the cache registry.
func (db *Database) Caches() *cache.Manager { return db.caches }

func (db *Database) runPipeline(qctx *QueryContext, query string) (*QueryResult, error) {
	if db.pipeline == nil {
		return nil, common.NewError(common.KindQueryExecutionFailed, "no pipeline manager configured")
	}
	start := time.Now()
	result, err := db.pipeline.Execute(qctx, query)
	if err != nil {
		if exprErr, ok := err.(*expr.Error); ok {
			return nil, common.WrapError(common.KindQueryExecutionFailed, exprErr.Type.String(), err)
		}
		if _, ok := err.(*common.Error); ok {
			return nil, err
		}
		return nil, common.WrapError(common.KindQueryExecutionFailed, "pipeline execution failed", err)
	}
	if result != nil && result.Elapsed == 0 {
		result.Elapsed = time.Since(start)
	}
	return result, nil
}
