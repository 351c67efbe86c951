package domain

import "errors"

var (
	// ErrDuplicateKey is returned when a session id already exists.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrForeignKeyViolation is returned when a message references a missing session.
	ErrForeignKeyViolation = errors.New("foreign key violation")
	// ErrUnknownSession is returned when a caller-supplied session id is not in the store.
	ErrUnknownSession = errors.New("unknown session")
	// ErrCompletionFailed is returned when the model backend fails, times out or returns garbage.
	ErrCompletionFailed = errors.New("completion failed")
	// ErrStorageUnavailable wraps connection and write failures at the store layer.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrMessageRejected is returned when the admission policy denies a message.
	ErrMessageRejected = errors.New("message rejected")
)
