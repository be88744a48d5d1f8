/*
errors.go - Centralized error types for the leave core

PURPOSE:

	All core error types in one place. The HTTP layer maps these onto
	status codes using the taxonomy helpers at the bottom.

ERROR CATEGORIES:
 1. Validation errors  - rejected before any state mutation
 2. Conflict errors    - operation fully rolled back, resubmit differently
 3. Authorization      - actor not permitted, request state untouched
 4. Invariant errors   - caller sequencing bug; logged distinctly because
    silently absorbing one would corrupt a balance

SEE ALSO:
  - ledger.go: raises InsufficientBalance / InvalidReservationState
  - workflow.go: raises the workflow transition errors
*/
package leave

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRange is returned when a range's end precedes its start.
	ErrInvalidRange = errors.New("invalid range: end before start")

	// ErrZeroDurationRequest is returned when a request covers no working
	// days (e.g. a weekend-only range).
	ErrZeroDurationRequest = errors.New("request covers zero working days")

	// ErrMissingRejectionComment is returned when a rejection carries no
	// comment. Rejections must be explained.
	ErrMissingRejectionComment = errors.New("rejection requires a comment")

	// ErrOverlappingRequest is returned when a candidate range intersects
	// an active request for the same employee.
	ErrOverlappingRequest = errors.New("overlapping leave request")

	// ErrInsufficientBalance is returned when a reservation would push
	// used+pending past the quota.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrDelegationConflict is returned when a delegation's range overlaps
	// an existing active delegation for the same delegator.
	ErrDelegationConflict = errors.New("delegation range conflict")

	// ErrAlreadyInitialized is returned when a balance record already
	// exists for (employee, leave type, year).
	ErrAlreadyInitialized = errors.New("balance already initialized")

	// ErrNoApproverAvailable is returned at submission when the approval
	// chain cannot be staffed (no manager, or no HR admin for a request
	// that needs HR review).
	ErrNoApproverAvailable = errors.New("no approver available")

	// ErrNotAuthorizedApprover is returned when the acting identity is not
	// the resolved approver for the current step.
	ErrNotAuthorizedApprover = errors.New("not the designated approver")

	// ErrInvalidReservationState is returned on double commit or double
	// release of a reservation. Never absorb this silently: a second
	// commit would double-count used days.
	ErrInvalidReservationState = errors.New("invalid reservation state")

	// ErrInvalidStateTransition is returned when a transition is attempted
	// from a state that does not permit it.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrHierarchyCycle is returned when a manager assignment would make
	// the reporting graph cyclic.
	ErrHierarchyCycle = errors.New("manager assignment creates cycle")

	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidRangeError reports a range whose end precedes its start.
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: %s after %s",
		e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"))
}

func (e *InvalidRangeError) Unwrap() error { return ErrInvalidRange }

// InsufficientBalanceError reports a quota shortfall.
type InsufficientBalanceError struct {
	EmployeeID  string
	LeaveTypeID string
	Year        int
	Available   Days
	Requested   Days
	Shortfall   Days
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s/%s/%d: available %s, requested %s, shortfall %s",
		e.EmployeeID, e.LeaveTypeID, e.Year, e.Available, e.Requested, e.Shortfall)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// OverlapError reports the existing request that blocks a submission.
type OverlapError struct {
	EmployeeID        string
	Candidate         DateRange
	ExistingRequestID string
	ExistingRange     DateRange
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("range %s..%s overlaps request %s (%s..%s)",
		e.Candidate.Start.Format("2006-01-02"), e.Candidate.End.Format("2006-01-02"),
		e.ExistingRequestID,
		e.ExistingRange.Start.Format("2006-01-02"), e.ExistingRange.End.Format("2006-01-02"))
}

func (e *OverlapError) Unwrap() error { return ErrOverlappingRequest }

// DelegationConflictError reports the delegation that blocks creation.
type DelegationConflictError struct {
	DelegatorID          string
	Candidate            DateRange
	ExistingDelegationID string
}

func (e *DelegationConflictError) Error() string {
	return fmt.Sprintf("delegation for %s over %s..%s conflicts with %s",
		e.DelegatorID,
		e.Candidate.Start.Format("2006-01-02"), e.Candidate.End.Format("2006-01-02"),
		e.ExistingDelegationID)
}

func (e *DelegationConflictError) Unwrap() error { return ErrDelegationConflict }

// TransitionError reports a forbidden state-machine transition.
type TransitionError struct {
	RequestID string
	From      Status
	Attempted string // "approve", "reject", "cancel"
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s request %s in state %s", e.Attempted, e.RequestID, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidStateTransition }

// =============================================================================
// TAXONOMY HELPERS
// =============================================================================

// IsValidation reports an input error; safe to retry after correction.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrZeroDurationRequest) ||
		errors.Is(err, ErrMissingRejectionComment)
}

// IsConflict reports a fully-rolled-back conflict; resubmit with
// different parameters.
func IsConflict(err error) bool {
	return errors.Is(err, ErrOverlappingRequest) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrDelegationConflict) ||
		errors.Is(err, ErrAlreadyInitialized)
}

// IsInvariant reports a caller sequencing bug that would otherwise
// violate a core invariant.
func IsInvariant(err error) bool {
	return errors.Is(err, ErrInvalidReservationState) ||
		errors.Is(err, ErrInvalidStateTransition)
}

// IsNotFound reports a missing entity reference.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
