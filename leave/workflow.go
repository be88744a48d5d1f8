/*
workflow.go - Approval workflow engine

PURPOSE:

	Drives a leave request from submission to a terminal outcome:

	  submit -> Pending(L1) -> [Pending(L2)] -> [Pending(L3)] -> Approved
	                  \-> Rejected (approver) / Cancelled (requester)

CHAIN CONSTRUCTION (evaluated once at submission):
  - Level 1: always; the employee's direct manager. No manager means the
    submission fails outright.
  - Level 2: only if the manager has a manager.
  - Level 3: only if the leave type requires HR review and the request
    exceeds the review threshold, regardless of whether level 2 ran.

LAZY STEPS:

	Only completed and current steps are stored. When a level is reached
	its approver is resolved at that moment - hierarchy lookup first, then
	delegation substitution - so a delegation created after submission
	still applies to later steps. Recorded decisions are immutable.

BALANCE SIDE EFFECTS:

	Submission reserves, the final approval commits, rejection and
	cancellation release. Intermediate approvals never touch the ledger.

CONCURRENCY:

	Transitions on one request serialize on the request's own lock.
	Submissions for one employee serialize on a per-employee lock so two
	overlapping requests cannot both slip past the overlap guard.

SEE ALSO:
  - ledger.go: reservation lifecycle
  - directory.go: hierarchy and delegation resolution
*/
package leave

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine owns all leave requests and their approval steps.
type Engine struct {
	Ledger    *Ledger
	Directory *Directory
	Calendar  *Calendar

	// Now and NewID are injectable for tests.
	Now   func() time.Time
	NewID func() string

	mu         sync.RWMutex
	requests   map[string]*requestEntry
	byEmployee map[string][]*requestEntry
	empLocks   map[string]*sync.Mutex
	leaveTypes map[string]LeaveType
}

// requestEntry pairs a request with its lock and live reservation.
// The reservation is nil once the request is terminal.
type requestEntry struct {
	mu  sync.Mutex
	req *Request
	res *Reservation
}

func NewEngine(ledger *Ledger, dir *Directory, cal *Calendar) *Engine {
	return &Engine{
		Ledger:     ledger,
		Directory:  dir,
		Calendar:   cal,
		Now:        time.Now,
		NewID:      uuid.NewString,
		requests:   make(map[string]*requestEntry),
		byEmployee: make(map[string][]*requestEntry),
		empLocks:   make(map[string]*sync.Mutex),
		leaveTypes: make(map[string]LeaveType),
	}
}

// =============================================================================
// LEAVE TYPE REGISTRY
// =============================================================================

// PutLeaveType registers or updates a leave type.
func (e *Engine) PutLeaveType(lt LeaveType) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.leaveTypes[lt.ID] = lt
}

// LeaveType looks up a leave type.
func (e *Engine) LeaveType(id string) (LeaveType, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	lt, ok := e.leaveTypes[id]
	if !ok {
		return LeaveType{}, fmt.Errorf("%w: leave type %s", ErrNotFound, id)
	}
	return lt, nil
}

// LeaveTypes returns all leave types ordered by id.
func (e *Engine) LeaveTypes() []LeaveType {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]LeaveType, 0, len(e.leaveTypes))
	for _, lt := range e.leaveTypes {
		out = append(out, lt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Submit validates a request, reserves balance and enters Pending(L1).
// Error order: range validation, zero duration, chain feasibility,
// overlap, then balance - so no error leaves a partial reservation.
func (e *Engine) Submit(employeeID, leaveTypeID string, start, end time.Time, reason string) (*Request, error) {
	emp, err := e.Directory.Employee(employeeID)
	if err != nil {
		return nil, err
	}
	if !emp.Active {
		return nil, fmt.Errorf("%w: employee %s is inactive", ErrNotFound, employeeID)
	}
	lt, err := e.LeaveType(leaveTypeID)
	if err != nil {
		return nil, err
	}

	rng, err := NewDateRange(start, end)
	if err != nil {
		return nil, err
	}
	total := WorkingDays(rng, e.Calendar)
	if total.IsZero() {
		return nil, fmt.Errorf("%w: %s..%s", ErrZeroDurationRequest,
			rng.Start.Format("2006-01-02"), rng.End.Format("2006-01-02"))
	}

	// Chain feasibility before any state changes.
	manager, ok := e.Directory.Manager(employeeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no manager", ErrNoApproverAvailable, employeeID)
	}
	_, needsL2 := e.Directory.SecondLevelManager(employeeID)
	needsL3 := lt.NeedsHRReview(total)
	if needsL3 {
		if _, ok := e.Directory.HRAdmin(); !ok {
			return nil, fmt.Errorf("%w: no HR admin for review of %s-day request", ErrNoApproverAvailable, total)
		}
	}

	// Per-employee critical section: overlap check + reserve + index.
	empLock := e.employeeLock(employeeID)
	empLock.Lock()
	defer empLock.Unlock()

	if err := e.checkOverlap(employeeID, rng); err != nil {
		return nil, err
	}

	key := BalanceKey{EmployeeID: employeeID, LeaveTypeID: leaveTypeID, Year: rng.Start.Year()}
	res, err := e.Ledger.Reserve(key, total)
	if err != nil {
		return nil, err
	}

	now := e.Now()
	req := &Request{
		ID:             e.NewID(),
		EmployeeID:     employeeID,
		LeaveTypeID:    leaveTypeID,
		Range:          rng,
		TotalDays:      total,
		Reason:         reason,
		Status:         StatusPendingL1,
		CreatedAt:      now,
		UpdatedAt:      now,
		RequiresLevel2: needsL2,
		RequiresLevel3: needsL3,
	}
	req.Steps = append(req.Steps, ApprovalStep{
		Level:      1,
		ApproverID: e.Directory.ResolveApprover(manager.ID, now),
		Outcome:    StepPending,
	})

	entry := &requestEntry{req: req, res: res}
	e.mu.Lock()
	e.requests[req.ID] = entry
	e.byEmployee[employeeID] = append(e.byEmployee[employeeID], entry)
	e.mu.Unlock()

	return req.clone(), nil
}

// checkOverlap is the overlap guard: any pending or approved request
// whose range intersects the candidate blocks submission.
func (e *Engine) checkOverlap(employeeID string, rng DateRange) error {
	e.mu.RLock()
	entries := e.byEmployee[employeeID]
	e.mu.RUnlock()

	for _, entry := range entries {
		entry.mu.Lock()
		status, id, existing := entry.req.Status, entry.req.ID, entry.req.Range
		entry.mu.Unlock()
		if status != StatusApproved && !status.Pending() {
			continue
		}
		if existing.Overlaps(rng) {
			return &OverlapError{
				EmployeeID:        employeeID,
				Candidate:         rng,
				ExistingRequestID: id,
				ExistingRange:     existing,
			}
		}
	}
	return nil
}

// =============================================================================
// DECISIONS
// =============================================================================

// Action is a decision verb on a pending request.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Decide applies an approve or reject decision by the given actor.
func (e *Engine) Decide(requestID, actorID string, action Action, comments string) (*Request, error) {
	switch action {
	case ActionApprove:
		return e.Approve(requestID, actorID, comments)
	case ActionReject:
		return e.Reject(requestID, actorID, comments)
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}
}

// Approve records the current step's approval. If a further level is
// required the request advances and that step's approver is resolved
// now; otherwise the request is approved and the reservation committed.
func (e *Engine) Approve(requestID, actorID, comments string) (*Request, error) {
	entry, err := e.entry(requestID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	req := entry.req
	step := req.CurrentStep()
	if step == nil {
		return nil, &TransitionError{RequestID: requestID, From: req.Status, Attempted: "approve"}
	}
	if step.ApproverID != actorID {
		return nil, fmt.Errorf("%w: %s is not the level-%d approver for request %s",
			ErrNotAuthorizedApprover, actorID, step.Level, requestID)
	}

	now := e.Now()
	nextLevel := req.nextLevel(step.Level)

	// Resolve the next approver before mutating anything, so a failed
	// resolution leaves the request untouched.
	var nextApprover string
	if nextLevel != 0 {
		nextApprover, err = e.resolveLevelApprover(req, nextLevel, now)
		if err != nil {
			return nil, err
		}
	}

	step.Outcome = StepApproved
	step.Comments = comments
	step.DecidedAt = now
	req.UpdatedAt = now

	if nextLevel != 0 {
		req.Status = PendingStatus(nextLevel)
		req.Steps = append(req.Steps, ApprovalStep{
			Level:      nextLevel,
			ApproverID: nextApprover,
			Outcome:    StepPending,
		})
		return req.clone(), nil
	}

	// Final approval: commit the reservation atomically with the
	// transition (both happen under the request lock).
	if err := e.Ledger.Commit(entry.res); err != nil {
		// Roll the step back; the request stays pending.
		step.Outcome = StepPending
		step.Comments = ""
		step.DecidedAt = time.Time{}
		return nil, err
	}
	req.Status = StatusApproved
	entry.res = nil
	return req.clone(), nil
}

// Reject records the current step's rejection, transitions to Rejected
// and releases the reservation. Comments are mandatory.
func (e *Engine) Reject(requestID, actorID, comments string) (*Request, error) {
	if strings.TrimSpace(comments) == "" {
		return nil, ErrMissingRejectionComment
	}
	entry, err := e.entry(requestID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	req := entry.req
	step := req.CurrentStep()
	if step == nil {
		return nil, &TransitionError{RequestID: requestID, From: req.Status, Attempted: "reject"}
	}
	if step.ApproverID != actorID {
		return nil, fmt.Errorf("%w: %s is not the level-%d approver for request %s",
			ErrNotAuthorizedApprover, actorID, step.Level, requestID)
	}

	if err := e.Ledger.Release(entry.res); err != nil {
		return nil, err
	}

	now := e.Now()
	step.Outcome = StepRejected
	step.Comments = comments
	step.DecidedAt = now
	req.Status = StatusRejected
	req.UpdatedAt = now
	entry.res = nil
	return req.clone(), nil
}

// Cancel withdraws a pending request. Only the original requester may
// cancel, and only while the request is pending.
func (e *Engine) Cancel(requestID, actorID string) (*Request, error) {
	entry, err := e.entry(requestID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	req := entry.req
	if !req.Status.Pending() {
		return nil, &TransitionError{RequestID: requestID, From: req.Status, Attempted: "cancel"}
	}
	if req.EmployeeID != actorID {
		return nil, fmt.Errorf("%w: only the requester may cancel request %s",
			ErrNotAuthorizedApprover, requestID)
	}

	if err := e.Ledger.Release(entry.res); err != nil {
		return nil, err
	}

	req.Status = StatusCancelled
	req.UpdatedAt = e.Now()
	entry.res = nil
	return req.clone(), nil
}

// nextLevel returns the next required approval level after the given
// one, or 0 when the chain is complete.
func (r *Request) nextLevel(after int) int {
	if after < 2 && r.RequiresLevel2 {
		return 2
	}
	if after < 3 && r.RequiresLevel3 {
		return 3
	}
	return 0
}

// resolveLevelApprover computes the nominal approver for a level and
// applies delegation as of now.
func (e *Engine) resolveLevelApprover(req *Request, level int, now time.Time) (string, error) {
	var nominal Employee
	var ok bool
	switch level {
	case 1:
		nominal, ok = e.Directory.Manager(req.EmployeeID)
	case 2:
		nominal, ok = e.Directory.SecondLevelManager(req.EmployeeID)
	case 3:
		nominal, ok = e.Directory.HRAdmin()
	}
	if !ok {
		return "", fmt.Errorf("%w: level %d for request %s", ErrNoApproverAvailable, level, req.ID)
	}
	return e.Directory.ResolveApprover(nominal.ID, now), nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Request returns a copy of one request.
func (e *Engine) Request(id string) (*Request, error) {
	entry, err := e.entry(id)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.req.clone(), nil
}

// RequestsForEmployee returns copies of an employee's requests, newest
// first. An empty status filter matches everything.
func (e *Engine) RequestsForEmployee(employeeID string, statusFilter Status) []*Request {
	e.mu.RLock()
	entries := append([]*requestEntry(nil), e.byEmployee[employeeID]...)
	e.mu.RUnlock()

	var out []*Request
	for _, entry := range entries {
		entry.mu.Lock()
		if statusFilter == "" || entry.req.Status == statusFilter {
			out = append(out, entry.req.clone())
		}
		entry.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// PendingApprovals returns copies of requests whose current step awaits
// the given approver.
func (e *Engine) PendingApprovals(approverID string) []*Request {
	e.mu.RLock()
	entries := make([]*requestEntry, 0, len(e.requests))
	for _, entry := range e.requests {
		entries = append(entries, entry)
	}
	e.mu.RUnlock()

	var out []*Request
	for _, entry := range entries {
		entry.mu.Lock()
		if step := entry.req.CurrentStep(); step != nil && step.ApproverID == approverID {
			out = append(out, entry.req.clone())
		}
		entry.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ApprovedInRange returns an employee's approved requests intersecting
// the window (team calendar queries).
func (e *Engine) ApprovedInRange(employeeID string, window DateRange) []*Request {
	var out []*Request
	for _, req := range e.RequestsForEmployee(employeeID, StatusApproved) {
		if req.Range.Overlaps(window) {
			out = append(out, req)
		}
	}
	return out
}

// =============================================================================
// RESTORATION
// =============================================================================

// RestoreRequest re-registers a persisted request after a restart.
// Pending requests get their reservation handle reattached; the
// persisted balance record already carries the pending days.
func (e *Engine) RestoreRequest(req *Request) error {
	if req.ID == "" {
		return fmt.Errorf("restore: request without id")
	}
	entry := &requestEntry{req: req.clone()}
	if req.Status.Pending() {
		key := BalanceKey{EmployeeID: req.EmployeeID, LeaveTypeID: req.LeaveTypeID, Year: req.Year()}
		res, err := e.Ledger.Reattach(key, req.TotalDays)
		if err != nil {
			return fmt.Errorf("restore request %s: %w", req.ID, err)
		}
		entry.res = res
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.requests[req.ID]; exists {
		return fmt.Errorf("restore: request %s already registered", req.ID)
	}
	e.requests[req.ID] = entry
	e.byEmployee[req.EmployeeID] = append(e.byEmployee[req.EmployeeID], entry)
	return nil
}

// =============================================================================
// INTERNAL
// =============================================================================

func (e *Engine) entry(id string) (*requestEntry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: request %s", ErrNotFound, id)
	}
	return entry, nil
}

func (e *Engine) employeeLock(employeeID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.empLocks[employeeID]
	if !ok {
		lock = &sync.Mutex{}
		e.empLocks[employeeID] = lock
	}
	return lock
}
