/*
Package leave implements the leave management core: the balance ledger,
the multi-level approval workflow engine, and the calendar/delegation
collaborators they consult.

PURPOSE:

	A leave request is submitted against a per-employee, per-leave-type
	annual quota, routed through a conditional approval chain (direct
	manager, then the manager's manager, then HR for long requests), and
	reconciled against a balance ledger that never lets committed time
	exceed quota.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee/Role: directory entries with a self-referential manager link
  - LeaveType: quota metadata, including the HR-review threshold
  - Request/ApprovalStep: a request and its materialized approval steps
  - Days: a decimal day quantity (half days are representable)

DESIGN PRINCIPLES:
 1. Precision: decimal.Decimal for all day quantities, never float64
 2. Exclusive ownership: balance records belong to the Ledger, requests
    and their steps belong to the Engine
 3. Lazy steps: only completed and current approval steps are stored;
    the next step's approver is resolved when the level is reached

SEE ALSO:
  - ledger.go: balance records and reservations
  - workflow.go: the approval state machine
  - calendar.go: holidays and working-day counting
  - directory.go: employee hierarchy and delegation resolution
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DAY QUANTITIES
// =============================================================================

// Days is a day quantity. Decimal so half-day units stay exact.
type Days = decimal.Decimal

func DaysOf(n int) Days            { return decimal.NewFromInt(int64(n)) }
func DaysFromFloat(f float64) Days { return decimal.NewFromFloat(f) }

// ZeroDays is the additive identity for day quantities.
var ZeroDays = decimal.Zero

// =============================================================================
// EMPLOYEES
// =============================================================================

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleHRAdmin  Role = "hr_admin"
)

// Employee is a directory entry. ManagerID is a back-reference into the
// same directory; the directory enforces acyclicity at assignment time.
type Employee struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Role         Role
	ManagerID    string // empty = no manager
	Department   string
	HireDate     time.Time
	Active       bool
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

// LeaveType describes a category of leave and its quota rules.
// HRReviewThreshold only matters when RequiresHRReview is set: requests
// longer than the threshold gain a final HR approval level.
type LeaveType struct {
	ID                    string
	Name                  string
	AnnualQuota           Days
	RequiresHRReview      bool
	HRReviewThreshold     Days
	RequiresDocumentation bool
	IsPaid                bool
	Active                bool
}

// DefaultHRReviewThreshold is used when a leave type requires HR review
// but no explicit threshold was configured.
var DefaultHRReviewThreshold = DaysOf(5)

func (lt LeaveType) hrThreshold() Days {
	if lt.HRReviewThreshold.IsZero() {
		return DefaultHRReviewThreshold
	}
	return lt.HRReviewThreshold
}

// NeedsHRReview reports whether a request of the given length must end
// with an HR approval level.
func (lt LeaveType) NeedsHRReview(totalDays Days) bool {
	return lt.RequiresHRReview && totalDays.GreaterThan(lt.hrThreshold())
}

// =============================================================================
// DATE RANGES
// =============================================================================

// DateRange is an inclusive [Start, End] calendar-date range.
// Times are normalized to midnight UTC by NewDateRange.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange normalizes both bounds to dates and validates ordering.
func NewDateRange(start, end time.Time) (DateRange, error) {
	s, e := DateOf(start), DateOf(end)
	if s.After(e) {
		return DateRange{}, &InvalidRangeError{Start: s, End: e}
	}
	return DateRange{Start: s, End: e}, nil
}

// Overlaps reports whether two inclusive ranges intersect.
func (r DateRange) Overlaps(other DateRange) bool {
	return !r.Start.After(other.End) && !other.Start.After(r.End)
}

// Contains reports whether the date falls inside the range (inclusive).
func (r DateRange) Contains(date time.Time) bool {
	d := DateOf(date)
	return !d.Before(r.Start) && !d.After(r.End)
}

// DateOf truncates a time to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date is a convenience constructor for calendar dates.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// REQUESTS AND APPROVAL STEPS
// =============================================================================

// Status is the workflow state of a request. The three pending variants
// carry the approval level currently awaited.
type Status string

const (
	StatusPendingL1 Status = "pending_level_1"
	StatusPendingL2 Status = "pending_level_2"
	StatusPendingL3 Status = "pending_level_3"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Pending reports whether the status is a non-terminal pending level.
func (s Status) Pending() bool {
	return s == StatusPendingL1 || s == StatusPendingL2 || s == StatusPendingL3
}

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// PendingStatus returns the pending variant for an approval level.
func PendingStatus(level int) Status {
	switch level {
	case 1:
		return StatusPendingL1
	case 2:
		return StatusPendingL2
	default:
		return StatusPendingL3
	}
}

// Level returns the awaited approval level, or 0 for terminal states.
func (s Status) Level() int {
	switch s {
	case StatusPendingL1:
		return 1
	case StatusPendingL2:
		return 2
	case StatusPendingL3:
		return 3
	default:
		return 0
	}
}

type StepOutcome string

const (
	StepPending  StepOutcome = "pending"
	StepApproved StepOutcome = "approved"
	StepRejected StepOutcome = "rejected"
)

// ApprovalStep is one materialized level of a request's approval chain.
// ApproverID is fixed when the level is reached (delegation resolved at
// that moment); a recorded decision is never rewritten afterwards.
type ApprovalStep struct {
	Level      int
	ApproverID string
	Outcome    StepOutcome
	Comments   string
	DecidedAt  time.Time
}

// Request is a leave request owned by the workflow engine. Everything
// except Status and Steps is immutable after submission.
type Request struct {
	ID          string
	EmployeeID  string
	LeaveTypeID string
	Range       DateRange
	TotalDays   Days
	Reason      string
	Status      Status
	Steps       []ApprovalStep
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Chain requirements, fixed at submission.
	RequiresLevel2 bool
	RequiresLevel3 bool
}

// Year returns the quota year the request draws from (its start year).
func (r *Request) Year() int { return r.Range.Start.Year() }

// CurrentStep returns the step awaiting a decision, or nil in a
// terminal state.
func (r *Request) CurrentStep() *ApprovalStep {
	if !r.Status.Pending() || len(r.Steps) == 0 {
		return nil
	}
	last := &r.Steps[len(r.Steps)-1]
	if last.Outcome != StepPending {
		return nil
	}
	return last
}

// clone returns a deep copy safe to hand outside the engine.
func (r *Request) clone() *Request {
	out := *r
	out.Steps = make([]ApprovalStep, len(r.Steps))
	copy(out.Steps, r.Steps)
	return &out
}

// =============================================================================
// DELEGATIONS AND HOLIDAYS
// =============================================================================

// Delegation hands an approver's authority to a substitute for a date
// range. Ranges for the same delegator must not overlap.
type Delegation struct {
	ID          string
	DelegatorID string
	DelegateID  string
	Range       DateRange
	Active      bool
}

// Holiday is a non-working date. Membership only; holidays carry no
// workflow semantics beyond exclusion from day counting.
type Holiday struct {
	ID   string
	Date time.Time
	Name string
}

func (h Holiday) Year() int { return h.Date.Year() }
