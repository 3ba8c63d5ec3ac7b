package session

import "graphdb.evalgo.org/value"

// PreparedStatement pairs a statement text with the space binding the
// session had at Prepare time. Each Execute call rebinds parameters.
type PreparedStatement struct {
	db         *Database
	query      string
	spaceID    *uint64
	autoCommit bool
}

// Query returns the statement text.
func (p *PreparedStatement) Query() string { return p.query }

// Execute runs the statement with fresh parameters.
func (p *PreparedStatement) Execute(params map[string]value.Value) (*QueryResult, error) {
	qctx := &QueryContext{
		AutoCommit: p.autoCommit,
		Parameters: params,
	}
	if p.spaceID != nil {
		id := *p.spaceID
		qctx.SpaceID = &id
	}
	return p.db.runPipeline(qctx, p.query)
}
