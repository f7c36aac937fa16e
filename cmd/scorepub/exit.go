package main

import (
	"errors"

	"scorepub/internal/daemon"
	"scorepub/internal/hooks"
	"scorepub/internal/lock"
)

// Process exit codes.
const (
	exitOK           = 0
	exitError        = 1
	exitLockConflict = 2
	exitLockLost     = 3
	exitHookFailure  = 4
	exitRedeployed   = 5
)

// codeError carries an explicit exit code. A nil err prints nothing.
type codeError struct {
	code int
	err  error
}

func (e *codeError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *codeError) Unwrap() error { return e.err }

func silent(err error) bool {
	var ce *codeError
	return errors.As(err, &ce) && ce.err == nil
}

func exitCode(err error) int {
	var ce *codeError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ce):
		return ce.code
	case errors.Is(err, lock.ErrAlreadyRunning):
		return exitLockConflict
	case lock.IsIntegrityError(err):
		return exitLockLost
	case errors.Is(err, hooks.ErrHookFailed):
		return exitHookFailure
	case errors.Is(err, daemon.ErrRedeployed):
		return exitRedeployed
	default:
		return exitError
	}
}
