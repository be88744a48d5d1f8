package leave_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// testEngine wires an engine over a fresh org:
//
//	ceo <- manager <- worker        (worker has a two-level chain)
//	       manager <- solo's boss?  no: solo reports to ceo directly,
//	                                 so solo has a one-level chain
//	hr                              (active HR admin)
//
// Every employee gets a 20-day "annual" balance for 2025, and "annual"
// requires HR review above 5 days.
type testEngine struct {
	*leave.Engine
	now time.Time
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	dir := leave.NewDirectory()
	require.NoError(t, dir.PutEmployee(emp("ceo", leave.RoleManager, "")))
	require.NoError(t, dir.PutEmployee(emp("manager", leave.RoleManager, "ceo")))
	require.NoError(t, dir.PutEmployee(emp("worker", leave.RoleEmployee, "manager")))
	require.NoError(t, dir.PutEmployee(emp("solo", leave.RoleEmployee, "ceo")))
	require.NoError(t, dir.PutEmployee(emp("hr", leave.RoleHRAdmin, "")))
	require.NoError(t, dir.PutEmployee(emp("orphan", leave.RoleEmployee, "")))

	ledger := leave.NewLedger()
	for _, id := range []string{"ceo", "manager", "worker", "solo", "orphan"} {
		_, err := ledger.InitializeYear(leave.BalanceKey{EmployeeID: id, LeaveTypeID: "annual", Year: 2025}, leave.DaysOf(20))
		require.NoError(t, err)
	}

	eng := leave.NewEngine(ledger, dir, leave.NewCalendar())
	eng.PutLeaveType(leave.LeaveType{
		ID:               "annual",
		Name:             "Annual Leave",
		AnnualQuota:      leave.DaysOf(20),
		RequiresHRReview: true,
		IsPaid:           true,
		Active:           true,
	})

	te := &testEngine{Engine: eng, now: leave.Date(2025, time.May, 1)}
	eng.Now = func() time.Time { return te.now }

	seq := 0
	eng.NewID = func() string { seq++; return fmt.Sprintf("req-%d", seq) }
	return te
}

func (te *testEngine) balance(t *testing.T, employee string) leave.BalanceRecord {
	t.Helper()
	rec, err := te.Ledger.Balance(leave.BalanceKey{EmployeeID: employee, LeaveTypeID: "annual", Year: 2025})
	require.NoError(t, err)
	return rec
}

// Mon Jun 2 .. Wed Jun 4 2025: 3 working days.
func threeDay() (time.Time, time.Time) {
	return leave.Date(2025, time.June, 2), leave.Date(2025, time.June, 4)
}

// Mon Jun 2 .. Tue Jun 10 2025: 7 working days.
func sevenDay() (time.Time, time.Time) {
	return leave.Date(2025, time.June, 2), leave.Date(2025, time.June, 10)
}

// =============================================================================
// SUBMISSION
// =============================================================================

func TestSubmit_ReservesAndEntersLevel1(t *testing.T) {
	te := newTestEngine(t)

	start, end := threeDay()
	req, err := te.Submit("worker", "annual", start, end, "trip")
	require.NoError(t, err)

	assert.Equal(t, leave.StatusPendingL1, req.Status)
	assert.True(t, req.TotalDays.Equal(leave.DaysOf(3)))
	require.Len(t, req.Steps, 1)
	assert.Equal(t, 1, req.Steps[0].Level)
	assert.Equal(t, "manager", req.Steps[0].ApproverID)
	assert.True(t, req.RequiresLevel2, "manager has a manager")
	assert.False(t, req.RequiresLevel3, "3 days is under the HR threshold")

	assert.True(t, te.balance(t, "worker").Pending.Equal(leave.DaysOf(3)))
}

func TestSubmit_ZeroWorkingDays(t *testing.T) {
	te := newTestEngine(t)

	// Sat..Sun: valid range, zero chargeable days.
	_, err := te.Submit("worker", "annual", leave.Date(2025, time.June, 7), leave.Date(2025, time.June, 8), "")
	assert.ErrorIs(t, err, leave.ErrZeroDurationRequest)
	assert.True(t, te.balance(t, "worker").Pending.IsZero(), "no reservation left behind")
}

func TestSubmit_InvalidRange(t *testing.T) {
	te := newTestEngine(t)
	_, err := te.Submit("worker", "annual", leave.Date(2025, time.June, 4), leave.Date(2025, time.June, 2), "")
	assert.ErrorIs(t, err, leave.ErrInvalidRange)
}

func TestSubmit_NoManager(t *testing.T) {
	te := newTestEngine(t)
	start, end := threeDay()
	_, err := te.Submit("orphan", "annual", start, end, "")
	assert.ErrorIs(t, err, leave.ErrNoApproverAvailable)
	assert.True(t, te.balance(t, "orphan").Pending.IsZero())
}

func TestSubmit_InsufficientBalance(t *testing.T) {
	te := newTestEngine(t)

	// Jun 2 .. Jul 11 2025 is 30 weekdays, over the 20-day quota.
	_, err := te.Submit("worker", "annual", leave.Date(2025, time.June, 2), leave.Date(2025, time.July, 11), "")
	assert.ErrorIs(t, err, leave.ErrInsufficientBalance)
	assert.True(t, te.balance(t, "worker").Pending.IsZero())
}

// =============================================================================
// OVERLAP GUARD
// =============================================================================

func TestSubmit_OverlapWithApproved(t *testing.T) {
	// GIVEN: approved request Jun 2..5 (all weekdays in 2025)
	te := newTestEngine(t)

	req, err := te.Submit("solo", "annual", leave.Date(2025, time.June, 2), leave.Date(2025, time.June, 5), "")
	require.NoError(t, err)
	_, err = te.Approve(req.ID, "ceo", "ok")
	require.NoError(t, err)

	// WHEN: submitting Jun 4..6 -> overlap
	_, err = te.Submit("solo", "annual", leave.Date(2025, time.June, 4), leave.Date(2025, time.June, 6), "")
	assert.ErrorIs(t, err, leave.ErrOverlappingRequest)

	// AND: Jun 6..10 is disjoint -> accepted
	_, err = te.Submit("solo", "annual", leave.Date(2025, time.June, 6), leave.Date(2025, time.June, 10), "")
	assert.NoError(t, err)
}

func TestSubmit_OverlapWithPending(t *testing.T) {
	te := newTestEngine(t)
	start, end := threeDay()
	_, err := te.Submit("worker", "annual", start, end, "")
	require.NoError(t, err)

	_, err = te.Submit("worker", "annual", end, end.AddDate(0, 0, 2), "")
	assert.ErrorIs(t, err, leave.ErrOverlappingRequest)
}

func TestSubmit_CancelledAndRejectedDoNotBlock(t *testing.T) {
	te := newTestEngine(t)
	start, end := threeDay()

	req1, err := te.Submit("worker", "annual", start, end, "")
	require.NoError(t, err)
	_, err = te.Cancel(req1.ID, "worker")
	require.NoError(t, err)

	req2, err := te.Submit("worker", "annual", start, end, "")
	require.NoError(t, err)
	_, err = te.Reject(req2.ID, "manager", "cover needed")
	require.NoError(t, err)

	_, err = te.Submit("worker", "annual", start, end, "")
	assert.NoError(t, err, "terminal requests do not block resubmission")
}

func TestSubmit_ConcurrentOverlapping_OneWins(t *testing.T) {
	te := newTestEngine(t)
	start, end := threeDay()

	const workers = 6
	var wg sync.WaitGroup
	errs := make([]error, workers)
	gate := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-gate
			_, errs[i] = te.Submit("worker", "annual", start, end, "")
		}(i)
	}
	close(gate)
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, leave.ErrOverlappingRequest)
		}
	}
	assert.Equal(t, 1, successes)
	assert.True(t, te.balance(t, "worker").Pending.Equal(leave.DaysOf(3)))
}

// =============================================================================
// CHAIN CONSTRUCTION
// =============================================================================

func TestChain_SingleLevel(t *testing.T) {
	// GIVEN: solo's manager (ceo) has no further manager, 3-day request
	// THEN: exactly one step; one approval reaches Approved

	te := newTestEngine(t)
	start, end := threeDay()
	req, err := te.Submit("solo", "annual", start, end, "")
	require.NoError(t, err)
	assert.False(t, req.RequiresLevel2)
	assert.False(t, req.RequiresLevel3)

	final, err := te.Approve(req.ID, "ceo", "fine")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, final.Status)
	require.Len(t, final.Steps, 1)

	rec := te.balance(t, "solo")
	assert.True(t, rec.Used.Equal(leave.DaysOf(3)))
	assert.True(t, rec.Pending.IsZero())
}

func TestChain_ThreeLevels_For7DayRequest(t *testing.T) {
	// GIVEN: worker (manager has a manager), 7-day request, 7 > 5
	// THEN: L1 -> L2 -> L3(HR) -> Approved

	te := newTestEngine(t)
	start, end := sevenDay()
	req, err := te.Submit("worker", "annual", start, end, "long trip")
	require.NoError(t, err)
	require.True(t, req.TotalDays.Equal(leave.DaysOf(7)))
	assert.True(t, req.RequiresLevel2)
	assert.True(t, req.RequiresLevel3)

	// Level 1: manager. Balance must not change on intermediate approvals.
	req, err = te.Approve(req.ID, "manager", "ok")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPendingL2, req.Status)
	assert.Equal(t, "ceo", req.CurrentStep().ApproverID)
	assert.True(t, te.balance(t, "worker").Used.IsZero())
	assert.True(t, te.balance(t, "worker").Pending.Equal(leave.DaysOf(7)))

	// Level 2: ceo.
	req, err = te.Approve(req.ID, "ceo", "ok")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPendingL3, req.Status)
	assert.Equal(t, "hr", req.CurrentStep().ApproverID)
	assert.True(t, te.balance(t, "worker").Used.IsZero())

	// Level 3: HR. Final approval commits.
	req, err = te.Approve(req.ID, "hr", "ok")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, req.Status)
	require.Len(t, req.Steps, 3)

	rec := te.balance(t, "worker")
	assert.True(t, rec.Used.Equal(leave.DaysOf(7)))
	assert.True(t, rec.Pending.IsZero())
}

func TestChain_HRLevelSkippedForShortRequest(t *testing.T) {
	// 5 working days is not "> 5": no HR level.
	te := newTestEngine(t)
	req, err := te.Submit("worker", "annual", leave.Date(2025, time.June, 2), leave.Date(2025, time.June, 6), "")
	require.NoError(t, err)
	require.True(t, req.TotalDays.Equal(leave.DaysOf(5)))
	assert.False(t, req.RequiresLevel3)

	req, err = te.Approve(req.ID, "manager", "")
	require.NoError(t, err)
	req, err = te.Approve(req.ID, "ceo", "")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, req.Status)
	require.Len(t, req.Steps, 2)
}

func TestChain_HRLevelWithoutSecondManager(t *testing.T) {
	// solo reports to ceo (no level 2) but a 7-day request still needs HR.
	te := newTestEngine(t)
	start, end := sevenDay()
	req, err := te.Submit("solo", "annual", start, end, "")
	require.NoError(t, err)
	assert.False(t, req.RequiresLevel2)
	assert.True(t, req.RequiresLevel3)

	req, err = te.Approve(req.ID, "ceo", "")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPendingL3, req.Status)
	assert.Equal(t, "hr", req.CurrentStep().ApproverID)
}

func TestChain_NonHRTypeNeverGetsLevel3(t *testing.T) {
	te := newTestEngine(t)
	te.PutLeaveType(leave.LeaveType{ID: "sick", Name: "Sick Leave", AnnualQuota: leave.DaysOf(10), Active: true})
	_, err := te.Ledger.InitializeYear(leave.BalanceKey{EmployeeID: "worker", LeaveTypeID: "sick", Year: 2025}, leave.DaysOf(10))
	require.NoError(t, err)

	start, end := sevenDay()
	req, err := te.Submit("worker", "sick", start, end, "flu")
	require.NoError(t, err)
	assert.False(t, req.RequiresLevel3, "sick leave does not require HR review")
}

// =============================================================================
// TRANSITIONS
// =============================================================================

func TestApprove_WrongApprover(t *testing.T) {
	te := newTestEngine(t)
	start, end := threeDay()
	req, err := te.Submit("worker", "annual", start, end, "")
	require.NoError(t, err)

	_, err = te.Approve(req.ID, "ceo", "jumping the queue")
	assert.ErrorIs(t, err, leave.ErrNotAuthorizedApprover)

	_, err = te.Approve(req.ID, "worker", "self-approval")
	assert.ErrorIs(t, err, leave.ErrNotAuthorizedApprover)

	got, err := te.Request(req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPendingL1, got.Status, "request state untouched")
}

func TestReject_RequiresComment(t *testing.T) {
	te := newTestEngine(t)
	start, end := threeDay()
	req, err := te.Submit("worker", "annual", start, end, "")
	require.NoError(t, err)

	_, err = te.Reject(req.ID, "manager", "   ")
	assert.ErrorIs(t, err, leave.ErrMissingRejectionComment)

	rejected, err := te.Reject(req.ID, "manager", "team is short-staffed")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusRejected, rejected.Status)
	assert.Equal(t, leave.StepRejected, rejected.Steps[0].Outcome)

	rec := te.balance(t, "worker")
	assert.True(t, rec.Pending.IsZero(), "rejection releases the reservation")
	assert.True(t, rec.Used.IsZero())
}

func TestCancel_OnlyRequesterWhilePending(t *testing.T) {
	te := newTestEngine(t)
	start, end := threeDay()
	req, err := te.Submit("worker", "annual", start, end, "")
	require.NoError(t, err)

	_, err = te.Cancel(req.ID, "manager")
	assert.ErrorIs(t, err, leave.ErrNotAuthorizedApprover)

	cancelled, err := te.Cancel(req.ID, "worker")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusCancelled, cancelled.Status)
	assert.True(t, te.balance(t, "worker").Pending.IsZero())
}

func TestCancel_MidChainReleases(t *testing.T) {
	// Cancelling while Pending(L2) still releases the reservation.
	te := newTestEngine(t)
	start, end := sevenDay()
	req, err := te.Submit("worker", "annual", start, end, "")
	require.NoError(t, err)
	_, err = te.Approve(req.ID, "manager", "")
	require.NoError(t, err)

	_, err = te.Cancel(req.ID, "worker")
	require.NoError(t, err)
	assert.True(t, te.balance(t, "worker").Pending.IsZero())
}

func TestTerminalStates_RejectFurtherTransitions(t *testing.T) {
	te := newTestEngine(t)
	start, end := threeDay()
	req, err := te.Submit("solo", "annual", start, end, "")
	require.NoError(t, err)
	_, err = te.Approve(req.ID, "ceo", "")
	require.NoError(t, err)

	_, err = te.Approve(req.ID, "ceo", "again")
	assert.ErrorIs(t, err, leave.ErrInvalidStateTransition)
	_, err = te.Reject(req.ID, "ceo", "too late")
	assert.ErrorIs(t, err, leave.ErrInvalidStateTransition)
	_, err = te.Cancel(req.ID, "solo")
	assert.ErrorIs(t, err, leave.ErrInvalidStateTransition, "approved requests cannot be cancelled")

	rec := te.balance(t, "solo")
	assert.True(t, rec.Used.Equal(leave.DaysOf(3)), "used unchanged by refused transitions")
}

func TestConcurrentDecisions_OnlyOneApplies(t *testing.T) {
	// Two approvers' calls on the same single-level request: one approval
	// lands, the other fails on the terminal state.
	te := newTestEngine(t)
	start, end := threeDay()
	req, err := te.Submit("solo", "annual", start, end, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	gate := make(chan struct{})
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-gate
			_, errs[i] = te.Approve(req.ID, "ceo", "ok")
		}(i)
	}
	close(gate)
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, leave.ErrInvalidStateTransition)
		}
	}
	assert.Equal(t, 1, successes)
	assert.True(t, te.balance(t, "solo").Used.Equal(leave.DaysOf(3)), "committed exactly once")
}

// =============================================================================
// DELEGATION TIMING
// =============================================================================

func TestDelegation_ResolvedAtStepMaterialization(t *testing.T) {
	// GIVEN: a pending L1 request, then ceo delegates to hr
	// WHEN: level 2 is materialized after the delegation starts
	// THEN: the L2 step resolves to hr, and the recorded L1 decision is
	//       untouched by later delegation changes

	te := newTestEngine(t)
	start, end := sevenDay()
	req, err := te.Submit("worker", "annual", start, end, "")
	require.NoError(t, err)
	assert.Equal(t, "manager", req.CurrentStep().ApproverID)

	// Delegation created AFTER submission but before level 2 is reached.
	require.NoError(t, te.Directory.CreateDelegation(leave.Delegation{
		ID:          "del-1",
		DelegatorID: "ceo",
		DelegateID:  "hr",
		Range:       leave.DateRange{Start: leave.Date(2025, time.June, 1), End: leave.Date(2025, time.June, 10)},
		Active:      true,
	}))

	te.now = leave.Date(2025, time.June, 5) // inside the window
	req, err = te.Approve(req.ID, "manager", "")
	require.NoError(t, err)
	assert.Equal(t, "hr", req.CurrentStep().ApproverID, "L2 resolved through delegation")

	// The nominal approver is no longer authorized for this step.
	_, err = te.Approve(req.ID, "ceo", "")
	assert.ErrorIs(t, err, leave.ErrNotAuthorizedApprover)

	// Recorded L1 decision is immutable.
	assert.Equal(t, leave.StepApproved, req.Steps[0].Outcome)
	assert.Equal(t, "manager", req.Steps[0].ApproverID)
}

func TestDelegation_ExpiredWindowResolvesNominal(t *testing.T) {
	te := newTestEngine(t)
	require.NoError(t, te.Directory.CreateDelegation(leave.Delegation{
		ID:          "del-1",
		DelegatorID: "ceo",
		DelegateID:  "hr",
		Range:       leave.DateRange{Start: leave.Date(2025, time.June, 1), End: leave.Date(2025, time.June, 10)},
		Active:      true,
	}))

	te.now = leave.Date(2025, time.June, 15) // after the window
	start, end := threeDay()
	req, err := te.Submit("solo", "annual", start, end, "")
	require.NoError(t, err)
	assert.Equal(t, "ceo", req.CurrentStep().ApproverID)
}

// =============================================================================
// QUERIES
// =============================================================================

func TestPendingApprovals_FollowsCurrentStep(t *testing.T) {
	te := newTestEngine(t)
	start, end := sevenDay()
	req, err := te.Submit("worker", "annual", start, end, "")
	require.NoError(t, err)

	inbox := te.PendingApprovals("manager")
	require.Len(t, inbox, 1)
	assert.Equal(t, req.ID, inbox[0].ID)
	assert.Empty(t, te.PendingApprovals("ceo"))

	_, err = te.Approve(req.ID, "manager", "")
	require.NoError(t, err)

	assert.Empty(t, te.PendingApprovals("manager"))
	require.Len(t, te.PendingApprovals("ceo"), 1)
}

func TestRequestsForEmployee_StatusFilter(t *testing.T) {
	te := newTestEngine(t)
	start, end := threeDay()
	req, err := te.Submit("worker", "annual", start, end, "")
	require.NoError(t, err)
	_, err = te.Cancel(req.ID, "worker")
	require.NoError(t, err)
	_, err = te.Submit("worker", "annual", start.AddDate(0, 0, 7), end.AddDate(0, 0, 7), "")
	require.NoError(t, err)

	assert.Len(t, te.RequestsForEmployee("worker", ""), 2)
	assert.Len(t, te.RequestsForEmployee("worker", leave.StatusCancelled), 1)
	assert.Len(t, te.RequestsForEmployee("worker", leave.StatusPendingL1), 1)
}

// =============================================================================
// RESTORATION
// =============================================================================

func TestRestoreRequest_PendingReattachesReservation(t *testing.T) {
	// Simulate restart: a pending request and its balance come back from
	// the store, then the approval chain continues as if uninterrupted.
	dir := leave.NewDirectory()
	require.NoError(t, dir.PutEmployee(emp("ceo", leave.RoleManager, "")))
	require.NoError(t, dir.PutEmployee(emp("solo", leave.RoleEmployee, "ceo")))

	ledger := leave.NewLedger()
	require.NoError(t, ledger.Restore(leave.BalanceRecord{
		Key:     leave.BalanceKey{EmployeeID: "solo", LeaveTypeID: "annual", Year: 2025},
		Total:   leave.DaysOf(20),
		Pending: leave.DaysOf(3),
	}))

	eng := leave.NewEngine(ledger, dir, leave.NewCalendar())
	eng.PutLeaveType(leave.LeaveType{ID: "annual", Name: "Annual", AnnualQuota: leave.DaysOf(20), Active: true})

	rng := leave.DateRange{Start: leave.Date(2025, time.June, 2), End: leave.Date(2025, time.June, 4)}
	require.NoError(t, eng.RestoreRequest(&leave.Request{
		ID:          "req-restored",
		EmployeeID:  "solo",
		LeaveTypeID: "annual",
		Range:       rng,
		TotalDays:   leave.DaysOf(3),
		Status:      leave.StatusPendingL1,
		Steps:       []leave.ApprovalStep{{Level: 1, ApproverID: "ceo", Outcome: leave.StepPending}},
	}))

	final, err := eng.Approve("req-restored", "ceo", "ok")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, final.Status)

	rec, err := ledger.Balance(leave.BalanceKey{EmployeeID: "solo", LeaveTypeID: "annual", Year: 2025})
	require.NoError(t, err)
	assert.True(t, rec.Used.Equal(leave.DaysOf(3)))
	assert.True(t, rec.Pending.IsZero())
}
