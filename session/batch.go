package session

import (
	"graphdb.evalgo.org/value"
)

// BatchResult accumulates the outcome of a batch insert run.
type BatchResult struct {
	VerticesInserted int
	EdgesInserted    int
	Errors           []error
}

// BatchInserter buffers vertices and edges and flushes each full batch in
// one storage transaction. With ContinueOnError set, a failed batch is
// recorded and the run continues; otherwise the first failure stops it.
type BatchInserter struct {
	db              *Database
	batchSize       int
	continueOnError bool

	vertices []*value.Vertex
	edges    []*value.Edge
	result   BatchResult
	failed   bool
}

const defaultBatchSize = 100

func newBatchInserter(db *Database, batchSize int) *BatchInserter {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &BatchInserter{db: db, batchSize: batchSize}
}

// ContinueOnError makes the inserter accumulate failures instead of
// stopping at the first one.
func (b *BatchInserter) ContinueOnError() *BatchInserter {
	b.continueOnError = true
	return b
}

// AddVertex buffers a vertex, flushing when the batch is full.
func (b *BatchInserter) AddVertex(v *value.Vertex) error {
	if b.failed {
		return b.result.Errors[len(b.result.Errors)-1]
	}
	b.vertices = append(b.vertices, v)
	if len(b.vertices) >= b.batchSize {
		return b.flushVertices()
	}
	return nil
}

// AddEdge buffers an edge, flushing when the batch is full.
func (b *BatchInserter) AddEdge(e *value.Edge) error {
	if b.failed {
		return b.result.Errors[len(b.result.Errors)-1]
	}
	b.edges = append(b.edges, e)
	if len(b.edges) >= b.batchSize {
		return b.flushEdges()
	}
	return nil
}

func (b *BatchInserter) flushVertices() error {
	if len(b.vertices) == 0 {
		return nil
	}
	batch := b.vertices
	b.vertices = nil
	if _, err := b.db.store.BatchInsertNodes(batch); err != nil {
		return b.recordError(err)
	}
	b.result.VerticesInserted += len(batch)
	return nil
}

func (b *BatchInserter) flushEdges() error {
	if len(b.edges) == 0 {
		return nil
	}
	batch := b.edges
	b.edges = nil
	if err := b.db.store.BatchInsertEdges(batch); err != nil {
		return b.recordError(err)
	}
	b.result.EdgesInserted += len(batch)
	return nil
}

func (b *BatchInserter) recordError(err error) error {
	b.result.Errors = append(b.result.Errors, err)
	if !b.continueOnError {
		b.failed = true
		return err
	}
	return nil
}

// Flush writes any partial batches.
func (b *BatchInserter) Flush() error {
	if err := b.flushVertices(); err != nil {
		return err
	}
	return b.flushEdges()
}

// Execute flushes remaining buffers and returns the accumulated result.
func (b *BatchInserter) Execute() (BatchResult, error) {
	err := b.Flush()
	return b.result, err
}
