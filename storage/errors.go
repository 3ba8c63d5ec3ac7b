package storage

import "errors"

// Storage errors.
var (
	ErrClosed        = errors.New("storage handle is closed")
	ErrTxDone        = errors.New("transaction already settled")
	ErrTxReadOnly    = errors.New("transaction is read-only")
	ErrTxCancelled   = errors.New("transaction cancelled")
	ErrNilVID        = errors.New("vertex id is null")
	ErrLockHeld      = errors.New("database is locked by another process")
	ErrBadCheckpoint = errors.New("checkpoint is out of range")
)
