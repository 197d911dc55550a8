package domain

import (
	"errors"
	"fmt"
)

// Failure taxonomy for transfer coordination. Commands invoked outside
// their valid phase are caller bugs (InvalidState); remote rejections
// carry the server detail and may be retried by the operator; transient
// errors belong to the poller's backoff loop and never surface to the
// user; unrecoverable errors end the flow.

// ErrInvalidState marks a command invoked outside its valid phase or
// role. Defensive: a correct caller never triggers it.
var ErrInvalidState = errors.New("invalid state for command")

// ErrCommandInFlight rejects re-entrant invocation while another
// command on the same coordinator is outstanding.
var ErrCommandInFlight = errors.New("command already in flight")

// MissingParameterError reports an absent required entry parameter.
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Name)
}

// RemoteError is a non-success response from the signaling service,
// with the human-readable detail when the server sent one.
type RemoteError struct {
	Status int
	Detail string
}

func (e *RemoteError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("signaling service rejected request (%d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("signaling service rejected request (%d)", e.Status)
}

// TransientError wraps a network or 5xx failure on a poll. The poller
// backs off and retries; nothing else should see one.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable by the poller.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// UnrecoverableError is a media connect/disconnect failure after a
// state-changing remote call already succeeded. The participant must
// restart the flow manually.
type UnrecoverableError struct {
	Err error
}

func (e *UnrecoverableError) Error() string {
	return fmt.Sprintf("unrecoverable, restart the flow: %v", e.Err)
}
func (e *UnrecoverableError) Unwrap() error { return e.Err }
