package sleep

import "errors"

var (
	// ErrAlreadySleeping rejects a second concurrent session.
	ErrAlreadySleeping = errors.New("a sleep session is already in progress")
	// ErrInvalidState is returned by End when no start time is known.
	ErrInvalidState = errors.New("no sleep session in progress")
	// ErrStoreUnavailable wraps persistent store failures. The engine keeps
	// running in memory after one.
	ErrStoreUnavailable = errors.New("sleep data could not be saved")
)
