package server

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"graphdb.evalgo.org/common"
	"graphdb.evalgo.org/session"
	"graphdb.evalgo.org/txn"
	"graphdb.evalgo.org/value"
)

// Config tunes the graph service.
type Config struct {
	EnableAuthorize     bool
	MaxConnections      int
	FailedLoginAttempts int
	SessionIdleTimeout  time.Duration
	ReaperInterval      time.Duration
	DefaultUsername     string
	DefaultPassword     string
}

// GraphService is the session-oriented server facade: authentication, the
// session registry, statement dispatch with in-band transaction control,
// and the permission checker.
type GraphService struct {
	db       *session.Database
	users    *UserStore
	sessions *SessionManager
	checker  *PermissionChecker
	logger   *logrus.Entry
}

// NewGraphService wires a service over a database. The default user is
// seeded with the GOD role when configured.
func NewGraphService(db *session.Database, cfg Config, logger *logrus.Logger) *GraphService {
	if logger == nil {
		logger = common.Logger
	}
	users := NewUserStore(cfg.FailedLoginAttempts)
	if cfg.DefaultUsername != "" {
		if err := users.CreateUser(cfg.DefaultUsername, cfg.DefaultPassword, RoleGod); err != nil {
			logger.WithError(err).Warn("failed to seed default user")
		}
	}
	sm := NewSessionManager(cfg.MaxConnections, cfg.SessionIdleTimeout, logger)
	sm.StartReaper(cfg.ReaperInterval)
	return &GraphService{
		db:       db,
		users:    users,
		sessions: sm,
		checker:  NewPermissionChecker(cfg.EnableAuthorize),
		logger:   logger.WithField("component", "server"),
	}
}

// Close stops the session reaper.
func (g *GraphService) Close() {
	g.sessions.StopReaper()
}

// Users exposes the user store for administration.
func (g *GraphService) Users() *UserStore { return g.users }

// Checker exposes the permission checker.
func (g *GraphService) Checker() *PermissionChecker { return g.checker }

// Authenticate validates credentials and opens a session.
func (g *GraphService) Authenticate(username, password string) (string, error) {
	if username == "" || password == "" {
		return "", common.WrapError(common.KindInvalidParameter, "empty credentials", ErrEmptyCredentials)
	}
	role, err := g.users.Authenticate(username, password)
	if err != nil {
		g.logger.WithField("user", username).Warn("authentication failed")
		return "", err
	}
	cs, err := g.sessions.Add(username, role, g.db.Session())
	if err != nil {
		return "", err
	}
	g.logger.WithFields(logrus.Fields{"user": username, "session": cs.ID}).Info("session opened")
	return cs.ID, nil
}

// Signout closes a session, rolling back any live transaction.
func (g *GraphService) Signout(sessionID string) error {
	return g.sessions.Remove(sessionID)
}

// ListSessions snapshots all live sessions.
func (g *GraphService) ListSessions() []SessionInfo {
	return g.sessions.List()
}

// GetSessionInfo returns one session's snapshot.
func (g *GraphService) GetSessionInfo(sessionID string) (SessionInfo, error) {
	cs, err := g.sessions.Get(sessionID)
	if err != nil {
		return SessionInfo{}, err
	}
	return sessionInfoOf(cs), nil
}

// KillSession terminates a session. Non-owners need the GOD role.
func (g *GraphService) KillSession(sessionID, currentUser string) error {
	cs, err := g.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	role := RoleGuest
	if r, err := g.users.GetRole(currentUser); err == nil {
		role = r
	}
	if err := g.checker.Check(currentUser, role, OpKillSession, Target{User: cs.Username}); err != nil {
		return err
	}
	return g.sessions.Remove(sessionID)
}

// KillQuery cancels one running query of a session.
func (g *GraphService) KillQuery(sessionID, queryID string) error {
	cs, err := g.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	return cs.Queries().Kill(queryID)
}

// Execute dispatches one statement on a session. BEGIN/START TRANSACTION,
// COMMIT, ROLLBACK [TO name], SAVEPOINT and USE are handled in-band;
// everything else runs through the pipeline manager, inside the session's
// explicit transaction when one is open.
func (g *GraphService) Execute(sessionID, statement string) (*session.QueryResult, error) {
	return g.ExecuteWithParams(sessionID, statement, nil)
}

// ExecuteWithParams is Execute with per-query parameters.
func (g *GraphService) ExecuteWithParams(sessionID, statement string, params map[string]value.Value) (*session.QueryResult, error) {
	cs, err := g.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	cs.Touch()

	trimmed := strings.TrimSuffix(strings.TrimSpace(statement), ";")
	upper := strings.ToUpper(trimmed)

	switch {
	case upper == "BEGIN" || upper == "START TRANSACTION":
		return g.beginTransaction(cs)
	case upper == "COMMIT":
		return g.commitTransaction(cs)
	case upper == "ROLLBACK":
		return g.rollbackTransaction(cs)
	case strings.HasPrefix(upper, "ROLLBACK TO "):
		name := strings.TrimSpace(trimmed[len("ROLLBACK TO "):])
		return g.rollbackToSavepoint(cs, name)
	case strings.HasPrefix(upper, "SAVEPOINT "):
		name := strings.TrimSpace(trimmed[len("SAVEPOINT "):])
		return g.createSavepoint(cs, name)
	case strings.HasPrefix(upper, "USE "):
		name := strings.TrimSpace(trimmed[len("USE "):])
		return g.useSpace(cs, name)
	}

	if err := g.checker.Check(cs.Username, cs.Role, OpReadData, Target{}); err != nil {
		return nil, err
	}

	query := cs.Queries().Track(trimmed, nil)
	defer cs.Queries().Finish(query.ID)

	if tx := cs.currentTx(); tx != nil {
		return tx.ExecuteWithParams(trimmed, params)
	}
	return cs.Inner().ExecuteWithParams(trimmed, params)
}

func emptyResult() *session.QueryResult {
	return session.NewQueryResult()
}

func (g *GraphService) beginTransaction(cs *ClientSession) (*session.QueryResult, error) {
	if cs.currentTx() != nil {
		return nil, common.WrapError(common.KindTransactionFailed, "nested BEGIN", ErrInTransaction)
	}
	tx, err := cs.Inner().BeginTransaction(txn.Options{})
	if err != nil {
		return nil, err
	}
	cs.setTx(tx)
	return emptyResult(), nil
}

func (g *GraphService) commitTransaction(cs *ClientSession) (*session.QueryResult, error) {
	tx := cs.currentTx()
	if tx == nil {
		return nil, common.WrapError(common.KindTransactionFailed, "COMMIT outside a transaction", ErrNoTransaction)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	cs.setTx(nil)
	return emptyResult(), nil
}

func (g *GraphService) rollbackTransaction(cs *ClientSession) (*session.QueryResult, error) {
	tx := cs.currentTx()
	if tx == nil {
		return nil, common.WrapError(common.KindTransactionFailed, "ROLLBACK outside a transaction", ErrNoTransaction)
	}
	if err := tx.Rollback(); err != nil {
		return nil, err
	}
	cs.setTx(nil)
	return emptyResult(), nil
}

func (g *GraphService) rollbackToSavepoint(cs *ClientSession, name string) (*session.QueryResult, error) {
	tx := cs.currentTx()
	if tx == nil {
		return nil, common.WrapError(common.KindTransactionFailed, "ROLLBACK TO outside a transaction", ErrNoTransaction)
	}
	if err := tx.RollbackToSavepoint(name); err != nil {
		return nil, err
	}
	return emptyResult(), nil
}

func (g *GraphService) createSavepoint(cs *ClientSession, name string) (*session.QueryResult, error) {
	tx := cs.currentTx()
	if tx == nil {
		return nil, common.WrapError(common.KindTransactionFailed, "SAVEPOINT outside a transaction", ErrNoTransaction)
	}
	if _, err := tx.CreateSavepoint(name); err != nil {
		return nil, err
	}
	return emptyResult(), nil
}

func (g *GraphService) useSpace(cs *ClientSession, name string) (*session.QueryResult, error) {
	if err := cs.Inner().UseSpace(name); err != nil {
		return nil, err
	}
	return emptyResult(), nil
}
