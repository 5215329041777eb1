package tracker

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("project not found")
	ErrNoSessions      = errors.New("project has no sessions")
	ErrNoActiveSession = errors.New("no active session")
	ErrAlreadyPaused   = errors.New("already paused")
	ErrAlreadyRunning  = errors.New("already running")
	ErrCompleted       = errors.New("project completed")
)

// RejectedError is a transition refused because of the project's state. It is
// reported to the user, never treated as a failure of the command.
type RejectedError struct {
	ID  int
	Err error
	msg string
}

func (e *RejectedError) Error() string { return e.msg }

func (e *RejectedError) Unwrap() error { return e.Err }

func reject(id int, err error, format string, args ...any) error {
	return &RejectedError{ID: id, Err: err, msg: fmt.Sprintf(format, args...)}
}

func notFound(id int) error {
	return reject(id, ErrNotFound, "No project found with ID: %d", id)
}

// IsRejected reports whether err is a state rejection rather than an I/O error.
func IsRejected(err error) bool {
	var rej *RejectedError
	return errors.As(err, &rej)
}
