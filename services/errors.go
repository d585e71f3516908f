package services

import (
	"errors"
	"fmt"

	"vibin_client/models"
)

var (
	// ErrTransportUnavailable means the backend could not be reached or
	// rejected the call.
	ErrTransportUnavailable = errors.New("transport unavailable")

	// ErrInvalidState means an operation was invoked while the engine was in a
	// state that does not allow it. Nothing was changed.
	ErrInvalidState = errors.New("invalid state")

	// ErrIncompleteData means a fetched record lacks required fields.
	ErrIncompleteData = errors.New("incomplete data")

	// ErrInvalidMessage means a send request is malformed.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrSessionNotFound is returned by the session registry for unknown ids.
	ErrSessionNotFound = errors.New("session not found")
)

func IsTransportUnavailable(err error) bool { return errors.Is(err, ErrTransportUnavailable) }
func IsInvalidState(err error) bool         { return errors.Is(err, ErrInvalidState) }
func IsIncompleteData(err error) bool       { return errors.Is(err, ErrIncompleteData) }

// SendError reports a send that the transport did not confirm. Message is
// the timeline entry, flagged as failed.
type SendError struct {
	Message models.Message
	Err     error
}

func (e *SendError) Error() string {
	return "send message " + e.Message.ID + ": " + e.Err.Error()
}

func (e *SendError) Unwrap() error { return e.Err }

// transportError tags a collaborator failure. Errors the collaborator already
// classified keep their class; anything else is ErrTransportUnavailable.
func transportError(op string, err error) error {
	if errors.Is(err, ErrTransportUnavailable) || errors.Is(err, ErrIncompleteData) || errors.Is(err, ErrInvalidState) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransportUnavailable, err)
}
