package kverr

import (
	"fmt"
	"runtime"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNotFound indicates the requested key is absent from the index
	ErrorTypeNotFound ErrorType = "NOT_FOUND"
	// ErrorTypeInvalidValue indicates a key or value the engine refuses to store
	ErrorTypeInvalidValue ErrorType = "INVALID_VALUE"
	// ErrorTypeCorruptRecord indicates on-disk bytes inconsistent with the record framing
	ErrorTypeCorruptRecord ErrorType = "CORRUPT_RECORD"
	// ErrorTypeIO indicates a filesystem or OS failure
	ErrorTypeIO ErrorType = "IO"
	// ErrorTypeInternal indicates an internal error
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// KVError represents a custom error with additional context
type KVError struct {
	Type    ErrorType
	Message string
	Err     error
	Stack   string
}

// Error implements the error interface
func (e *KVError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *KVError) Unwrap() error {
	return e.Err
}

// New creates a new KVError
func New(errType ErrorType, message string, err error) *KVError {
	// Capture the caller site
	_, file, line, _ := runtime.Caller(1)
	stack := fmt.Sprintf("%s:%d", file, line)

	return &KVError{
		Type:    errType,
		Message: message,
		Err:     err,
		Stack:   stack,
	}
}

// TypeOf returns the ErrorType of err, or ErrorTypeInternal for foreign errors
func TypeOf(err error) ErrorType {
	if kvErr, ok := err.(*KVError); ok {
		return kvErr.Type
	}
	return ErrorTypeInternal
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	if kvErr, ok := err.(*KVError); ok {
		return kvErr.Type == ErrorTypeNotFound
	}
	return false
}

// IsInvalidValue checks if the error is an invalid value error
func IsInvalidValue(err error) bool {
	if kvErr, ok := err.(*KVError); ok {
		return kvErr.Type == ErrorTypeInvalidValue
	}
	return false
}

// IsCorruptRecord checks if the error is a corrupt record error
func IsCorruptRecord(err error) bool {
	if kvErr, ok := err.(*KVError); ok {
		return kvErr.Type == ErrorTypeCorruptRecord
	}
	return false
}

// IsIO checks if the error is an IO error
func IsIO(err error) bool {
	if kvErr, ok := err.(*KVError); ok {
		return kvErr.Type == ErrorTypeIO
	}
	return false
}

// IsInternal checks if the error is an internal error
func IsInternal(err error) bool {
	if kvErr, ok := err.(*KVError); ok {
		return kvErr.Type == ErrorTypeInternal
	}
	return false
}

// RecoverError recovers from a panic and converts it to a KVError
func RecoverError(r interface{}) error {
	if r == nil {
		return nil
	}

	var err error
	switch v := r.(type) {
	case error:
		err = v
	case string:
		err = fmt.Errorf("%s", v)
	default:
		err = fmt.Errorf("%v", v)
	}

	return New(ErrorTypeInternal, "recovered from panic", err)
}
