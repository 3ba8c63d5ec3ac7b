// Package server implements the session-oriented server API: the user
// store, the permission checker, the session registry with its idle
// reaper, per-session query tracking, and the GraphService facade that
// recognises in-band transaction-control statements.
package server

import (
	"sync"

	"golang.org/x/crypto/bcrypt"

	"graphdb.evalgo.org/common"
)

// Role is the authorization ladder. Higher values grant more.
type Role int

const (
	RoleGuest Role = iota
	RoleUser
	RoleAdmin
	RoleGod
)

func (r Role) String() string {
	switch r {
	case RoleGuest:
		return "GUEST"
	case RoleUser:
		return "USER"
	case RoleAdmin:
		return "ADMIN"
	case RoleGod:
		return "GOD"
	default:
		return "UNKNOWN"
	}
}

// bcryptCost is the hashing cost for stored passwords.
const bcryptCost = 10

type userRecord struct {
	name         string
	passwordHash string
	role         Role
	failedLogins int
	locked       bool
}

// UserStore keeps users in memory: username, bcrypt password hash, role
// and a failed-login counter with lockout.
type UserStore struct {
	mu          sync.Mutex
	users       map[string]*userRecord
	maxFailures int
}

// NewUserStore creates a store; maxFailures <= 0 disables lockout.
func NewUserStore(maxFailures int) *UserStore {
	return &UserStore{
		users:       make(map[string]*userRecord),
		maxFailures: maxFailures,
	}
}

// CreateUser registers a user with a hashed password.
func (s *UserStore) CreateUser(name, password string, role Role) error {
	if name == "" || password == "" {
		return common.WrapError(common.KindInvalidParameter, "empty credentials", ErrEmptyCredentials)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return common.WrapError(common.KindInternal, "failed to hash password", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[name]; exists {
		return common.WrapError(common.KindInvalidParameter, "duplicate user", ErrUserExists)
	}
	s.users[name] = &userRecord{name: name, passwordHash: string(hash), role: role}
	return nil
}

// DropUser removes a user.
func (s *UserStore) DropUser(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[name]; !exists {
		return common.WrapError(common.KindNotFound, "user "+name, ErrUserNotFound)
	}
	delete(s.users, name)
	return nil
}

// Authenticate validates credentials. Repeated failures lock the account
// when a failure cap is configured.
func (s *UserStore) Authenticate(name, password string) (Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[name]
	if !ok {
		return 0, common.WrapError(common.KindPermissionDenied, "authentication failed", ErrAuthFailed)
	}
	if u.locked {
		return 0, common.WrapError(common.KindPermissionDenied, "account locked", ErrAccountLocked)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password)); err != nil {
		u.failedLogins++
		if s.maxFailures > 0 && u.failedLogins >= s.maxFailures {
			u.locked = true
		}
		return 0, common.WrapError(common.KindPermissionDenied, "authentication failed", ErrAuthFailed)
	}
	u.failedLogins = 0
	return u.role, nil
}

// ChangePassword replaces a user's password hash.
func (s *UserStore) ChangePassword(name, newPassword string) error {
	if newPassword == "" {
		return common.WrapError(common.KindInvalidParameter, "empty password", ErrEmptyCredentials)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return common.WrapError(common.KindInternal, "failed to hash password", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[name]
	if !ok {
		return common.WrapError(common.KindNotFound, "user "+name, ErrUserNotFound)
	}
	u.passwordHash = string(hash)
	u.locked = false
	u.failedLogins = 0
	return nil
}

// GrantRole changes a user's role.
func (s *UserStore) GrantRole(name string, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[name]
	if !ok {
		return common.WrapError(common.KindNotFound, "user "+name, ErrUserNotFound)
	}
	u.role = role
	return nil
}

// GetRole returns a user's role.
func (s *UserStore) GetRole(name string) (Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[name]
	if !ok {
		return 0, common.WrapError(common.KindNotFound, "user "+name, ErrUserNotFound)
	}
	return u.role, nil
}

// Exists reports whether a user is registered.
func (s *UserStore) Exists(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[name]
	return ok
}
