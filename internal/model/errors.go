package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound matches any NotFoundError via errors.Is
	ErrNotFound = errors.New("not found")

	// ErrValidation matches any ValidationError via errors.Is
	ErrValidation = errors.New("validation failed")

	// ErrTransition matches any TransitionError via errors.Is
	ErrTransition = errors.New("invalid transition")
)

// NotFoundError reports a missing record together with its identifier
type NotFoundError struct {
	Kind string // claim, run, interpretation set, ...
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// Is lets errors.Is(err, ErrNotFound) succeed
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFound builds a NotFoundError
func NewNotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// Issue is a single validation finding
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Field == "" {
		return i.Message
	}
	return i.Field + ": " + i.Message
}

// ValidationError rejects malformed input before it reaches the engine
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrValidation) succeed
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// TransitionError reports a workflow action that is not allowed
type TransitionError struct {
	From   ProposalStatus
	Action ProposalAction
	Role   Role
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s proposal in status %q as %s: %s", e.Action, e.From, e.Role, e.Reason)
}

// Is lets errors.Is(err, ErrTransition) succeed
func (e *TransitionError) Is(target error) bool {
	return target == ErrTransition
}

// StorageError wraps a backend failure with the backend and operation
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s storage: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError builds a StorageError
func NewStorageError(backend, op string, err error) *StorageError {
	return &StorageError{Backend: backend, Op: op, Err: err}
}
