package imap

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a message cannot be retrieved with any of the
// supported fetch formats. It is a not-found condition, not a connection
// fault, and callers are expected to record it per item.
var ErrNotFound = errors.New("message not found")

// ConnectionError indicates that establishing a usable session failed:
// dialing, reading the greeting, STARTTLS negotiation, or selecting the
// requested mailbox. It is fatal for the whole operation.
type ConnectionError struct {
	Op   string // "connect", "greeting", "starttls", "select"
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("imap %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err (or any error in its chain) is a
// ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// AuthError indicates that the server rejected the configured credentials.
type AuthError struct {
	Username string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %v", e.Username, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// StatusError is a soft, per-command failure: the server answered the tagged
// command with NO or BAD. Bulk operations record these per item; fast paths
// treat them as a signal to fall back.
type StatusError struct {
	Command string
	Status  string
	Info    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: server said %s %s", e.Command, e.Status, e.Info)
}
