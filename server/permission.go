package server

import (
	"graphdb.evalgo.org/common"
)

// Operation is the closed set of permission-checked actions. A single
// Check entry dispatches on it; the can-style helpers are thin wrappers.
type Operation int

const (
	OpReadData Operation = iota
	OpWriteData
	OpReadSchema
	OpWriteSchema
	OpWriteSpace
	OpWriteUser
	OpGrantRole
	OpChangePassword
	OpKillSession
)

func (o Operation) String() string {
	switch o {
	case OpReadData:
		return "READ_DATA"
	case OpWriteData:
		return "WRITE_DATA"
	case OpReadSchema:
		return "READ_SCHEMA"
	case OpWriteSchema:
		return "WRITE_SCHEMA"
	case OpWriteSpace:
		return "WRITE_SPACE"
	case OpWriteUser:
		return "WRITE_USER"
	case OpGrantRole:
		return "GRANT_ROLE"
	case OpChangePassword:
		return "CHANGE_PASSWORD"
	case OpKillSession:
		return "KILL_SESSION"
	default:
		return "UNKNOWN"
	}
}

// Target carries the optional operation target.
type Target struct {
	Space string
	User  string
	Role  Role
}

// PermissionChecker enforces the role rules. With authorization disabled
// every check passes.
type PermissionChecker struct {
	enabled bool
}

// NewPermissionChecker creates a checker.
func NewPermissionChecker(enabled bool) *PermissionChecker {
	return &PermissionChecker{enabled: enabled}
}

// Enabled reports whether authorization is enforced.
func (c *PermissionChecker) Enabled() bool { return c.enabled }

// Check authorises op for a requester. Rules: space writes require God;
// schema writes require Admin or above; data writes forbid Guest; user
// writes require God; role grants require Admin or above and can never
// grant God; password change is self-only except for God; killing a
// session is self-only except for God.
func (c *PermissionChecker) Check(requester string, role Role, op Operation, target Target) error {
	if !c.enabled {
		return nil
	}
	deny := func() error {
		return common.Errorf(common.KindPermissionDenied, "%s requires more than %s", op, role)
	}
	switch op {
	case OpReadData, OpReadSchema:
		return nil
	case OpWriteData:
		if role <= RoleGuest {
			return deny()
		}
		return nil
	case OpWriteSchema:
		if role < RoleAdmin {
			return deny()
		}
		return nil
	case OpWriteSpace, OpWriteUser:
		if role < RoleGod {
			return deny()
		}
		return nil
	case OpGrantRole:
		if role < RoleAdmin {
			return deny()
		}
		if target.Role >= RoleGod {
			return common.NewError(common.KindPermissionDenied, "the GOD role cannot be granted")
		}
		return nil
	case OpChangePassword:
		if role >= RoleGod || target.User == requester {
			return nil
		}
		return common.NewError(common.KindPermissionDenied, "password change is self-only")
	case OpKillSession:
		if role >= RoleGod || target.User == requester {
			return nil
		}
		return common.NewError(common.KindPermissionDenied, "killing another user's session requires GOD")
	}
	return common.Errorf(common.KindPermissionDenied, "unknown operation %d", int(op))
}

// CanWriteData is a convenience wrapper over Check.
func (c *PermissionChecker) CanWriteData(requester string, role Role) bool {
	return c.Check(requester, role, OpWriteData, Target{}) == nil
}

// CanWriteSchema is a convenience wrapper over Check.
func (c *PermissionChecker) CanWriteSchema(requester string, role Role) bool {
	return c.Check(requester, role, OpWriteSchema, Target{}) == nil
}
