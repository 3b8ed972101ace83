package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an application, opportunity, role or creator id is unknown.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateApplication is returned when the creator already holds a pending or
	// accepted application for the same opportunity and role.
	ErrDuplicateApplication = errors.New("an active application already exists for this role")
	// ErrInvalidTransition is returned for accept/reject/withdraw on a non-pending application.
	ErrInvalidTransition = errors.New("invalid application status transition")
	// ErrCollaboratorUnavailable wraps failures of the persistence or notification layer.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	// ErrRoleUnavailable is returned when submitting to a role that is not open.
	ErrRoleUnavailable = errors.New("role is not open for applications")
	// ErrRoleFilled is returned when accepting into a role with no remaining capacity.
	ErrRoleFilled = errors.New("role has no remaining capacity")
	// ErrValidation marks malformed caller input.
	ErrValidation = errors.New("validation failed")
	// ErrEmailTaken is returned by signup when the address is already registered.
	ErrEmailTaken = errors.New("email already exists")
)

// TransitionError records the state an application was actually in when a transition was refused.
type TransitionError struct {
	ID   string
	From ApplicationStatus
	To   ApplicationStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("application %s: cannot move from %s to %s", e.ID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// Unavailable wraps err so that errors.Is(err, ErrCollaboratorUnavailable) holds.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %v", op, ErrCollaboratorUnavailable, err)
}

// NotFound builds an ErrNotFound carrying the kind and id that were looked up.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// Invalid builds an ErrValidation with a human-readable reason.
func Invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}
