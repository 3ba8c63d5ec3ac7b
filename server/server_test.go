package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphdb.evalgo.org/common"
	"graphdb.evalgo.org/schema"
	"graphdb.evalgo.org/session"
	"graphdb.evalgo.org/value"
)

func newTestService(t *testing.T, cfg Config) (*GraphService, *session.Database) {
	t.Helper()
	db, err := session.OpenInMemory(session.Options{})
	require.NoError(t, err)
	if cfg.DefaultUsername == "" {
		cfg.DefaultUsername = "root"
		cfg.DefaultPassword = "root"
	}
	svc := NewGraphService(db, cfg, nil)
	t.Cleanup(func() {
		svc.Close()
		_ = db.Close()
	})
	return svc, db
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService(t, Config{})

	_, err := svc.Authenticate("", "")
	assert.ErrorIs(t, err, ErrEmptyCredentials)

	_, err = svc.Authenticate("root", "wrong")
	assert.ErrorIs(t, err, ErrAuthFailed)

	sid, err := svc.Authenticate("root", "root")
	require.NoError(t, err)
	assert.NotEmpty(t, sid)

	info, err := svc.GetSessionInfo(sid)
	require.NoError(t, err)
	assert.Equal(t, "root", info.Username)
	assert.Equal(t, RoleGod, info.Role)

	require.NoError(t, svc.Signout(sid))
	_, err = svc.GetSessionInfo(sid)
	assert.True(t, common.IsKind(err, common.KindNotFound))
}

func TestConnectionCap(t *testing.T) {
	svc, _ := newTestService(t, Config{MaxConnections: 1})
	_, err := svc.Authenticate("root", "root")
	require.NoError(t, err)

	_, err = svc.Authenticate("root", "root")
	assert.ErrorIs(t, err, ErrTooManyConnections)
}

func TestFailedLoginLockout(t *testing.T) {
	svc, _ := newTestService(t, Config{FailedLoginAttempts: 2})
	_, err := svc.Authenticate("root", "bad")
	assert.ErrorIs(t, err, ErrAuthFailed)
	_, err = svc.Authenticate("root", "bad")
	assert.ErrorIs(t, err, ErrAuthFailed)

	// the account is now locked even with the right password
	_, err = svc.Authenticate("root", "root")
	assert.ErrorIs(t, err, ErrAccountLocked)

	// a password change unlocks
	require.NoError(t, svc.Users().ChangePassword("root", "newpass"))
	_, err = svc.Authenticate("root", "newpass")
	assert.NoError(t, err)
}

func TestTransactionControlStatements(t *testing.T) {
	svc, db := newTestService(t, Config{})
	sid, err := svc.Authenticate("root", "root")
	require.NoError(t, err)

	_, err = svc.Execute(sid, "BEGIN")
	require.NoError(t, err)

	info, err := svc.GetSessionInfo(sid)
	require.NoError(t, err)
	assert.True(t, info.InTxn)

	// nested BEGIN is rejected
	_, err = svc.Execute(sid, "START TRANSACTION")
	assert.ErrorIs(t, err, ErrInTransaction)

	_, err = svc.Execute(sid, "SAVEPOINT sp1;")
	require.NoError(t, err)

	_, err = svc.Execute(sid, "ROLLBACK TO sp1")
	require.NoError(t, err)

	_, err = svc.Execute(sid, "COMMIT")
	require.NoError(t, err)

	info, err = svc.GetSessionInfo(sid)
	require.NoError(t, err)
	assert.False(t, info.InTxn)

	// control statements outside a transaction fail
	_, err = svc.Execute(sid, "COMMIT")
	assert.ErrorIs(t, err, ErrNoTransaction)
	_, err = svc.Execute(sid, "ROLLBACK")
	assert.ErrorIs(t, err, ErrNoTransaction)
	_, err = svc.Execute(sid, "SAVEPOINT x")
	assert.ErrorIs(t, err, ErrNoTransaction)

	_ = db
}

func TestTransactionalWritesThroughService(t *testing.T) {
	svc, db := newTestService(t, Config{})
	sid, err := svc.Authenticate("root", "root")
	require.NoError(t, err)

	_, err = svc.Execute(sid, "BEGIN")
	require.NoError(t, err)

	// write inside the explicit transaction through the storage handle
	cs, err := svc.sessions.Get(sid)
	require.NoError(t, err)
	tx := cs.currentTx()
	require.NotNil(t, tx)
	v := value.NewVertexEntity(value.NewString("u1"))
	v.AddTag("user", map[string]value.Value{"name": value.NewString("A")})
	_, err = tx.InsertVertex(v)
	require.NoError(t, err)

	// not visible before commit
	got, err := db.Store().GetNode(value.NewString("u1"))
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = svc.Execute(sid, "COMMIT")
	require.NoError(t, err)

	got, err = db.Store().GetNode(value.NewString("u1"))
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	svc, db := newTestService(t, Config{})
	sid, err := svc.Authenticate("root", "root")
	require.NoError(t, err)

	_, err = svc.Execute(sid, "BEGIN")
	require.NoError(t, err)
	cs, err := svc.sessions.Get(sid)
	require.NoError(t, err)
	v := value.NewVertexEntity(value.NewString("gone"))
	_, err = cs.currentTx().InsertVertex(v)
	require.NoError(t, err)
	_, err = svc.Execute(sid, "ROLLBACK")
	require.NoError(t, err)

	got, err := db.Store().GetNode(value.NewString("gone"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUseStatement(t *testing.T) {
	svc, db := newTestService(t, Config{})
	_, err := db.CreateSpace("g", schema.SpaceConfig{})
	require.NoError(t, err)

	sid, err := svc.Authenticate("root", "root")
	require.NoError(t, err)

	_, err = svc.Execute(sid, "USE g")
	require.NoError(t, err)

	info, err := svc.GetSessionInfo(sid)
	require.NoError(t, err)
	assert.Equal(t, "g", info.Space)

	_, err = svc.Execute(sid, "USE missing")
	assert.True(t, common.IsKind(err, common.KindNotFound))
}

func TestSignoutRollsBackTransaction(t *testing.T) {
	svc, db := newTestService(t, Config{})
	sid, err := svc.Authenticate("root", "root")
	require.NoError(t, err)
	_, err = svc.Execute(sid, "BEGIN")
	require.NoError(t, err)
	cs, err := svc.sessions.Get(sid)
	require.NoError(t, err)
	_, err = cs.currentTx().InsertVertex(value.NewVertexEntity(value.NewString("orphan")))
	require.NoError(t, err)

	require.NoError(t, svc.Signout(sid))

	got, err := db.Store().GetNode(value.NewString("orphan"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestKillSessionPermissions(t *testing.T) {
	svc, _ := newTestService(t, Config{EnableAuthorize: true})
	require.NoError(t, svc.Users().CreateUser("alice", "secret123", RoleUser))
	require.NoError(t, svc.Users().CreateUser("bob", "secret123", RoleUser))

	aliceSid, err := svc.Authenticate("alice", "secret123")
	require.NoError(t, err)

	// bob may not kill alice's session
	err = svc.KillSession(aliceSid, "bob")
	assert.True(t, common.IsKind(err, common.KindPermissionDenied))

	// alice may kill her own; root may kill anyone
	require.NoError(t, svc.KillSession(aliceSid, "alice"))

	bobSid, err := svc.Authenticate("bob", "secret123")
	require.NoError(t, err)
	require.NoError(t, svc.KillSession(bobSid, "root"))
}

func TestKillQuery(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	sid, err := svc.Authenticate("root", "root")
	require.NoError(t, err)
	cs, err := svc.sessions.Get(sid)
	require.NoError(t, err)

	cancelled := false
	q := cs.Queries().Track("MATCH (n) RETURN n", func() { cancelled = true })
	require.NoError(t, svc.KillQuery(sid, q.ID))
	assert.True(t, q.Cancelled())
	assert.True(t, cancelled)

	assert.True(t, common.IsKind(svc.KillQuery(sid, "nope"), common.KindNotFound))
}

func TestIdleSessionReaper(t *testing.T) {
	db, err := session.OpenInMemory(session.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := NewGraphService(db, Config{
		DefaultUsername:    "root",
		DefaultPassword:    "root",
		SessionIdleTimeout: 10 * time.Millisecond,
		ReaperInterval:     5 * time.Millisecond,
	}, nil)
	t.Cleanup(svc.Close)

	sid, err := svc.Authenticate("root", "root")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := svc.GetSessionInfo(sid)
		return common.IsKind(err, common.KindNotFound)
	}, time.Second, 5*time.Millisecond)
}

func TestPermissionChecker(t *testing.T) {
	c := NewPermissionChecker(true)
	tests := []struct {
		name    string
		role    Role
		op      Operation
		target  Target
		allowed bool
	}{
		{"GuestReads", RoleGuest, OpReadData, Target{}, true},
		{"GuestCannotWriteData", RoleGuest, OpWriteData, Target{}, false},
		{"UserWritesData", RoleUser, OpWriteData, Target{}, true},
		{"UserCannotWriteSchema", RoleUser, OpWriteSchema, Target{}, false},
		{"AdminWritesSchema", RoleAdmin, OpWriteSchema, Target{}, true},
		{"AdminCannotWriteSpace", RoleAdmin, OpWriteSpace, Target{}, false},
		{"GodWritesSpace", RoleGod, OpWriteSpace, Target{}, true},
		{"AdminCannotWriteUser", RoleAdmin, OpWriteUser, Target{}, false},
		{"GodWritesUser", RoleGod, OpWriteUser, Target{}, true},
		{"AdminGrantsUser", RoleAdmin, OpGrantRole, Target{Role: RoleUser}, true},
		{"AdminCannotGrantGod", RoleAdmin, OpGrantRole, Target{Role: RoleGod}, false},
		{"GodCannotGrantGod", RoleGod, OpGrantRole, Target{Role: RoleGod}, false},
		{"UserCannotGrant", RoleUser, OpGrantRole, Target{Role: RoleUser}, false},
		{"SelfPasswordChange", RoleUser, OpChangePassword, Target{User: "me"}, true},
		{"OtherPasswordChangeDenied", RoleAdmin, OpChangePassword, Target{User: "other"}, false},
		{"GodChangesAnyPassword", RoleGod, OpChangePassword, Target{User: "other"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Check("me", tt.role, tt.op, tt.target)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.True(t, common.IsKind(err, common.KindPermissionDenied))
			}
		})
	}
}

func TestPermissionCheckerDisabled(t *testing.T) {
	c := NewPermissionChecker(false)
	assert.NoError(t, c.Check("anyone", RoleGuest, OpWriteSpace, Target{}))
	assert.NoError(t, c.Check("anyone", RoleGuest, OpGrantRole, Target{Role: RoleGod}))
	assert.False(t, c.Enabled())
}

func TestUserStoreRoles(t *testing.T) {
	s := NewUserStore(0)
	require.NoError(t, s.CreateUser("u", "password1", RoleUser))
	assert.ErrorIs(t, s.CreateUser("u", "password1", RoleUser), ErrUserExists)

	role, err := s.GetRole("u")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, role)

	require.NoError(t, s.GrantRole("u", RoleAdmin))
	role, _ = s.GetRole("u")
	assert.Equal(t, RoleAdmin, role)

	assert.True(t, s.Exists("u"))
	require.NoError(t, s.DropUser("u"))
	assert.False(t, s.Exists("u"))
	assert.ErrorIs(t, s.DropUser("u"), ErrUserNotFound)
}
