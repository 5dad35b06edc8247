package light

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned when a command needs a control channel that is not open
var ErrNotConnected = errors.New("light control channel not connected")

// ErrorType represents the category of a light error
type ErrorType int

const (
	// ErrTypeDial indicates the control channel could not be opened
	ErrTypeDial ErrorType = iota
	// ErrTypeWrite indicates a command could not be sent
	ErrTypeWrite
	// ErrTypeProtocol indicates the light sent something we could not understand,
	// or answered a command with an error
	ErrTypeProtocol
	// ErrTypeTransition indicates an illegal status change was requested
	ErrTypeTransition
	// ErrTypeClosed indicates the light closed the control channel
	ErrTypeClosed
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeDial:
		return "Dial Error"
	case ErrTypeWrite:
		return "Write Error"
	case ErrTypeProtocol:
		return "Protocol Error"
	case ErrTypeTransition:
		return "Transition Error"
	case ErrTypeClosed:
		return "Connection Closed"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error represents a failure on one light's control channel
type Error struct {
	Type    ErrorType // Category of error
	LightID string    // Light identifier (for context)
	Message string    // Human-readable error message
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: light %s: %s (caused by: %v)", e.Type, e.LightID, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: light %s: %s", e.Type, e.LightID, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// IsErrorType checks if an error is a light Error of the specified type
func IsErrorType(err error, errType ErrorType) bool {
	var lightErr *Error
	if errors.As(err, &lightErr) {
		return lightErr.Type == errType
	}
	return false
}
