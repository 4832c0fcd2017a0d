package addrspace

import (
	"errors"
	"fmt"
)

// Error is a domain error returned by address space and store operations.
//
// These are model errors (node not found, wrong data type, ...) as opposed to
// infrastructure errors from a backing store, which are wrapped with ErrIOError.
// Service adapters translate Code into their own status codes.
type Error struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// NodeID is the node the error relates to, if any
	NodeID string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.NodeID != "" {
		return e.Message + ": " + e.NodeID
	}
	return e.Message
}

// ErrorCode represents the category of an address space error.
type ErrorCode int

const (
	// ErrNotFound indicates the node, namespace or child does not exist
	ErrNotFound ErrorCode = iota

	// ErrAlreadyExists indicates a node id or sibling browse name is taken
	ErrAlreadyExists

	// ErrInvalidArgument indicates malformed input, e.g. an undeclared optional member
	ErrInvalidArgument

	// ErrTypeMismatch indicates a value whose data type differs from the variable's
	ErrTypeMismatch

	// ErrBadNodeClass indicates the node exists but has the wrong class for the operation
	ErrBadNodeClass

	// ErrNamespaceExhausted indicates no namespace index is left to assign
	ErrNamespaceExhausted

	// ErrNoSpace indicates the store refused more nodes
	ErrNoSpace

	// ErrReadOnly indicates a mutation was attempted inside a read-only view
	ErrReadOnly

	// ErrNotWritable indicates a client write to a read-only variable
	ErrNotWritable

	// ErrIOError indicates the backing store failed
	ErrIOError
)

var codeNames = map[ErrorCode]string{
	ErrNotFound:           "NotFound",
	ErrAlreadyExists:      "AlreadyExists",
	ErrInvalidArgument:    "InvalidArgument",
	ErrTypeMismatch:       "TypeMismatch",
	ErrBadNodeClass:       "BadNodeClass",
	ErrNamespaceExhausted: "NamespaceExhausted",
	ErrNoSpace:            "NoSpace",
	ErrReadOnly:           "ReadOnly",
	ErrNotWritable:        "NotWritable",
	ErrIOError:            "IOError",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsNotFound reports whether err means "no such node/namespace/child".
func IsNotFound(err error) bool {
	return IsCode(err, ErrNotFound)
}

// NewError builds an *Error. Store backends use it to report domain failures.
func NewError(code ErrorCode, id NodeID, format string, args ...any) *Error {
	e := &Error{Code: code, Message: fmt.Sprintf(format, args...)}
	if !id.IsNull() {
		e.NodeID = id.String()
	}
	return e
}

// NotFoundError is the error every lookup returns for an unknown node id.
func NotFoundError(id NodeID) *Error {
	return &Error{Code: ErrNotFound, Message: "node not found", NodeID: id.String()}
}

func invalidArgument(format string, args ...any) *Error {
	return &Error{Code: ErrInvalidArgument, Message: fmt.Sprintf(format, args...)}
}
