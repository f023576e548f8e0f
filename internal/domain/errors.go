package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrPermissionDeny     = errors.New("permission denied")
	ErrConflict           = errors.New("concurrent modification")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrSeparationOfDuties = errors.New("separation of duties violation")
)

// UnauthorizedError reports that a role lacks the permission named by an action.
type UnauthorizedError struct {
	Role   Role
	Action WorkflowAction
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("role %s is not permitted to %s", e.Role, e.Action)
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized || target == ErrPermissionDeny
}

// InvalidTransitionError reports an action that the document's current status
// does not allow.
type InvalidTransitionError struct {
	From   ApprovalStatus
	Action WorkflowAction
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return e.Reason
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// SeparationOfDutiesError is returned when the creator of a document attempts
// to approve it, or when the document has no recorded creator to compare with.
type SeparationOfDutiesError struct {
	ActorID        string
	DocumentID     string
	UnknownCreator bool
}

func (e *SeparationOfDutiesError) Error() string {
	if e.UnknownCreator {
		return "Separation of Duties violation: a document without a recorded creator cannot be approved"
	}
	return "Separation of Duties violation: the creator of a document cannot approve it"
}

func (e *SeparationOfDutiesError) Is(target error) bool {
	return target == ErrSeparationOfDuties || target == ErrPermissionDeny
}
