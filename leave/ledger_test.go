package leave_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func key2025(employee string) leave.BalanceKey {
	return leave.BalanceKey{EmployeeID: employee, LeaveTypeID: "annual", Year: 2025}
}

func newLedgerWith(t *testing.T, employee string, quota int) *leave.Ledger {
	t.Helper()
	l := leave.NewLedger()
	_, err := l.InitializeYear(key2025(employee), leave.DaysOf(quota))
	require.NoError(t, err)
	return l
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func TestLedger_InitializeYear_Duplicate(t *testing.T) {
	l := newLedgerWith(t, "emp-1", 20)

	_, err := l.InitializeYear(key2025("emp-1"), leave.DaysOf(25))
	assert.ErrorIs(t, err, leave.ErrAlreadyInitialized)

	// Other keys are independent.
	_, err = l.InitializeYear(leave.BalanceKey{EmployeeID: "emp-1", LeaveTypeID: "sick", Year: 2025}, leave.DaysOf(10))
	assert.NoError(t, err)
	_, err = l.InitializeYear(leave.BalanceKey{EmployeeID: "emp-1", LeaveTypeID: "annual", Year: 2026}, leave.DaysOf(20))
	assert.NoError(t, err)
}

func TestLedger_Balance_UnknownKey(t *testing.T) {
	l := leave.NewLedger()
	_, err := l.Balance(key2025("ghost"))
	assert.ErrorIs(t, err, leave.ErrNotFound)
}

// =============================================================================
// RESERVE / COMMIT / RELEASE
// =============================================================================

func TestLedger_ReserveCommit(t *testing.T) {
	// GIVEN: 20-day quota
	// WHEN: 3 days reserved then committed
	// THEN: pending returns to 0 and used becomes 3

	l := newLedgerWith(t, "emp-1", 20)

	res, err := l.Reserve(key2025("emp-1"), leave.DaysOf(3))
	require.NoError(t, err)

	rec, err := l.Balance(key2025("emp-1"))
	require.NoError(t, err)
	assert.True(t, rec.Pending.Equal(leave.DaysOf(3)))
	assert.True(t, rec.Available().Equal(leave.DaysOf(17)))

	require.NoError(t, l.Commit(res))

	rec, err = l.Balance(key2025("emp-1"))
	require.NoError(t, err)
	assert.True(t, rec.Pending.IsZero())
	assert.True(t, rec.Used.Equal(leave.DaysOf(3)))
	assert.True(t, rec.Available().Equal(leave.DaysOf(17)))
}

func TestLedger_ReleaseRestoresPending(t *testing.T) {
	// GIVEN: a 3-day reservation
	// WHEN: released (rejection path)
	// THEN: pending returns to its pre-reservation value, used untouched

	l := newLedgerWith(t, "emp-1", 20)

	res, err := l.Reserve(key2025("emp-1"), leave.DaysOf(3))
	require.NoError(t, err)
	require.NoError(t, l.Release(res))

	rec, err := l.Balance(key2025("emp-1"))
	require.NoError(t, err)
	assert.True(t, rec.Pending.IsZero())
	assert.True(t, rec.Used.IsZero())
	assert.True(t, rec.Available().Equal(leave.DaysOf(20)))
}

func TestLedger_InsufficientBalance_Shortfall(t *testing.T) {
	l := newLedgerWith(t, "emp-1", 10)

	_, err := l.Reserve(key2025("emp-1"), leave.DaysOf(8))
	require.NoError(t, err)

	_, err = l.Reserve(key2025("emp-1"), leave.DaysOf(5))
	require.ErrorIs(t, err, leave.ErrInsufficientBalance)

	var ibe *leave.InsufficientBalanceError
	require.ErrorAs(t, err, &ibe)
	assert.True(t, ibe.Available.Equal(leave.DaysOf(2)))
	assert.True(t, ibe.Shortfall.Equal(leave.DaysOf(3)))
}

func TestLedger_FractionalDays(t *testing.T) {
	// Half-day units are exact, not floating point approximations.
	l := leave.NewLedger()
	_, err := l.InitializeYear(key2025("emp-1"), leave.DaysFromFloat(2.5))
	require.NoError(t, err)

	res, err := l.Reserve(key2025("emp-1"), leave.DaysFromFloat(0.5))
	require.NoError(t, err)
	require.NoError(t, l.Commit(res))

	rec, err := l.Balance(key2025("emp-1"))
	require.NoError(t, err)
	assert.True(t, rec.Available().Equal(leave.DaysFromFloat(2)))
}

// =============================================================================
// RESERVATION STATE MACHINE
// =============================================================================

func TestLedger_DoubleCommitFails(t *testing.T) {
	// Committing twice must fail the second call and leave used unchanged.
	l := newLedgerWith(t, "emp-1", 20)

	res, err := l.Reserve(key2025("emp-1"), leave.DaysOf(4))
	require.NoError(t, err)
	require.NoError(t, l.Commit(res))

	err = l.Commit(res)
	assert.ErrorIs(t, err, leave.ErrInvalidReservationState)

	rec, err := l.Balance(key2025("emp-1"))
	require.NoError(t, err)
	assert.True(t, rec.Used.Equal(leave.DaysOf(4)), "used unchanged after failed double commit")
}

func TestLedger_DoubleReleaseFails(t *testing.T) {
	l := newLedgerWith(t, "emp-1", 20)

	res, err := l.Reserve(key2025("emp-1"), leave.DaysOf(4))
	require.NoError(t, err)
	require.NoError(t, l.Release(res))

	assert.ErrorIs(t, l.Release(res), leave.ErrInvalidReservationState)
	assert.ErrorIs(t, l.Commit(res), leave.ErrInvalidReservationState)
}

func TestLedger_NilReservation(t *testing.T) {
	l := newLedgerWith(t, "emp-1", 20)
	assert.ErrorIs(t, l.Commit(nil), leave.ErrInvalidReservationState)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestLedger_ConcurrentReservations_ExactlyOneWins(t *testing.T) {
	// GIVEN: total=10
	// WHEN: 8 concurrent reservations of 6 days each
	// THEN: exactly one succeeds, the rest fail with InsufficientBalance

	const workers = 8
	l := newLedgerWith(t, "emp-1", 10)

	var wg sync.WaitGroup
	errs := make([]error, workers)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = l.Reserve(key2025("emp-1"), leave.DaysOf(6))
		}(i)
	}
	close(start)
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, leave.ErrInsufficientBalance)
		}
	}
	assert.Equal(t, 1, successes)

	rec, err := l.Balance(key2025("emp-1"))
	require.NoError(t, err)
	assert.True(t, rec.Pending.Equal(leave.DaysOf(6)))
	assert.True(t, rec.Used.Add(rec.Pending).LessThanOrEqual(rec.Total), "invariant holds")
}

// =============================================================================
// RESTORATION
// =============================================================================

func TestLedger_RestoreRejectsCorruptState(t *testing.T) {
	l := leave.NewLedger()
	err := l.Restore(leave.BalanceRecord{
		Key:     key2025("emp-1"),
		Total:   leave.DaysOf(10),
		Used:    leave.DaysOf(8),
		Pending: leave.DaysOf(5),
	})
	assert.Error(t, err, "used+pending exceeding total must not restore")
}

func TestLedger_ReattachThenCommit(t *testing.T) {
	// Simulates restart: record persisted with pending=3, reservation
	// handle recreated without touching the balance.
	l := leave.NewLedger()
	require.NoError(t, l.Restore(leave.BalanceRecord{
		Key:     key2025("emp-1"),
		Total:   leave.DaysOf(20),
		Used:    leave.DaysOf(2),
		Pending: leave.DaysOf(3),
	}))

	res, err := l.Reattach(key2025("emp-1"), leave.DaysOf(3))
	require.NoError(t, err)
	require.NoError(t, l.Commit(res))

	rec, err := l.Balance(key2025("emp-1"))
	require.NoError(t, err)
	assert.True(t, rec.Used.Equal(leave.DaysOf(5)))
	assert.True(t, rec.Pending.IsZero())
}

func TestLedger_ReattachMoreThanPendingFails(t *testing.T) {
	l := leave.NewLedger()
	require.NoError(t, l.Restore(leave.BalanceRecord{
		Key:     key2025("emp-1"),
		Total:   leave.DaysOf(20),
		Pending: leave.DaysOf(1),
	}))
	_, err := l.Reattach(key2025("emp-1"), leave.DaysOf(3))
	assert.Error(t, err)
}
