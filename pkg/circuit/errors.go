package circuit

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConnection matches every connection rejected by Validate
	ErrInvalidConnection = errors.New("invalid connection")

	ErrUnknownSource  = errors.New("unknown source")
	ErrUnknownGate    = errors.New("unknown target gate")
	ErrUnknownInput   = errors.New("unknown input node")
	ErrSlotOutOfRange = errors.New("slot out of range")
	ErrSlotOccupied   = errors.New("slot already driven")
	ErrSelfLoop       = errors.New("gate cannot drive itself")
	ErrCycle          = errors.New("connection would create a cycle")

	// ErrDuplicateID is returned when a node or gate ID is already taken
	ErrDuplicateID = errors.New("duplicate id")
)

// InvalidConnectionError reports why a connection was refused
type InvalidConnectionError struct {
	Connection Connection
	Reason     error
}

func (e *InvalidConnectionError) Error() string {
	return fmt.Sprintf("invalid connection %s: %v", e.Connection, e.Reason)
}

// Unwrap exposes the reason so errors.Is matches the specific sentinel
func (e *InvalidConnectionError) Unwrap() error {
	return e.Reason
}

// Is makes every InvalidConnectionError match ErrInvalidConnection
func (e *InvalidConnectionError) Is(target error) bool {
	return target == ErrInvalidConnection
}

func invalid(conn Connection, reason error) error {
	return &InvalidConnectionError{Connection: conn, Reason: reason}
}
