package leave_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func emp(id string, role leave.Role, managerID string) leave.Employee {
	return leave.Employee{
		ID:        id,
		Email:     id + "@example.com",
		FullName:  id,
		Role:      role,
		ManagerID: managerID,
		Active:    true,
	}
}

// newOrgDirectory builds: ceo <- manager <- worker, plus one HR admin.
func newOrgDirectory(t *testing.T) *leave.Directory {
	t.Helper()
	d := leave.NewDirectory()
	require.NoError(t, d.PutEmployee(emp("ceo", leave.RoleManager, "")))
	require.NoError(t, d.PutEmployee(emp("manager", leave.RoleManager, "ceo")))
	require.NoError(t, d.PutEmployee(emp("worker", leave.RoleEmployee, "manager")))
	require.NoError(t, d.PutEmployee(emp("hr", leave.RoleHRAdmin, "")))
	return d
}

// =============================================================================
// HIERARCHY
// =============================================================================

func TestDirectory_ManagerChain(t *testing.T) {
	d := newOrgDirectory(t)

	m, ok := d.Manager("worker")
	require.True(t, ok)
	assert.Equal(t, "manager", m.ID)

	mm, ok := d.SecondLevelManager("worker")
	require.True(t, ok)
	assert.Equal(t, "ceo", mm.ID)

	_, ok = d.Manager("ceo")
	assert.False(t, ok)
	_, ok = d.SecondLevelManager("manager")
	assert.False(t, ok)
}

func TestDirectory_CycleDetection(t *testing.T) {
	// GIVEN: ceo <- manager <- worker
	// WHEN: assigning ceo under worker
	// THEN: rejected at assignment time, not discovered at traversal time

	d := newOrgDirectory(t)

	err := d.PutEmployee(emp("ceo", leave.RoleManager, "worker"))
	assert.ErrorIs(t, err, leave.ErrHierarchyCycle)

	// Self-management is the degenerate cycle.
	err = d.PutEmployee(emp("worker", leave.RoleEmployee, "worker"))
	assert.ErrorIs(t, err, leave.ErrHierarchyCycle)

	// The original chain is untouched.
	m, ok := d.Manager("ceo")
	assert.False(t, ok, "ceo still has no manager, got %v", m)
}

func TestDirectory_HRAdminDeterministic(t *testing.T) {
	d := leave.NewDirectory()
	require.NoError(t, d.PutEmployee(emp("hr-b", leave.RoleHRAdmin, "")))
	require.NoError(t, d.PutEmployee(emp("hr-a", leave.RoleHRAdmin, "")))

	inactive := emp("hr-0", leave.RoleHRAdmin, "")
	inactive.Active = false
	require.NoError(t, d.PutEmployee(inactive))

	hr, ok := d.HRAdmin()
	require.True(t, ok)
	assert.Equal(t, "hr-a", hr.ID, "lowest active id wins")
}

func TestDirectory_DirectReports(t *testing.T) {
	d := newOrgDirectory(t)
	reports := d.DirectReports("manager")
	require.Len(t, reports, 1)
	assert.Equal(t, "worker", reports[0].ID)
}

// =============================================================================
// DELEGATIONS
// =============================================================================

func delegation(id, delegator, delegate string, start, end time.Time) leave.Delegation {
	return leave.Delegation{
		ID:          id,
		DelegatorID: delegator,
		DelegateID:  delegate,
		Range:       leave.DateRange{Start: leave.DateOf(start), End: leave.DateOf(end)},
		Active:      true,
	}
}

func TestDirectory_ResolveApprover(t *testing.T) {
	// GIVEN: manager delegates to ceo for Jun 1..10
	// THEN: resolution inside the window substitutes, outside it does not

	d := newOrgDirectory(t)
	require.NoError(t, d.CreateDelegation(delegation("del-1", "manager", "ceo",
		leave.Date(2025, time.June, 1), leave.Date(2025, time.June, 10))))

	assert.Equal(t, "ceo", d.ResolveApprover("manager", leave.Date(2025, time.June, 5)))
	assert.Equal(t, "manager", d.ResolveApprover("manager", leave.Date(2025, time.June, 15)))
	assert.Equal(t, "worker", d.ResolveApprover("worker", leave.Date(2025, time.June, 5)),
		"no delegation resolves to self")
}

func TestDirectory_DelegationConflict(t *testing.T) {
	d := newOrgDirectory(t)
	require.NoError(t, d.CreateDelegation(delegation("del-1", "manager", "ceo",
		leave.Date(2025, time.June, 1), leave.Date(2025, time.June, 10))))

	// Overlapping range for the same delegator.
	err := d.CreateDelegation(delegation("del-2", "manager", "hr",
		leave.Date(2025, time.June, 8), leave.Date(2025, time.June, 20)))
	assert.ErrorIs(t, err, leave.ErrDelegationConflict)

	// Adjacent range is fine.
	assert.NoError(t, d.CreateDelegation(delegation("del-3", "manager", "hr",
		leave.Date(2025, time.June, 11), leave.Date(2025, time.June, 20))))

	// Same range for a different delegator is fine.
	assert.NoError(t, d.CreateDelegation(delegation("del-4", "ceo", "hr",
		leave.Date(2025, time.June, 1), leave.Date(2025, time.June, 10))))
}

func TestDirectory_RevokedDelegationIgnored(t *testing.T) {
	d := newOrgDirectory(t)
	require.NoError(t, d.CreateDelegation(delegation("del-1", "manager", "ceo",
		leave.Date(2025, time.June, 1), leave.Date(2025, time.June, 10))))
	require.NoError(t, d.RevokeDelegation("del-1"))

	assert.Equal(t, "manager", d.ResolveApprover("manager", leave.Date(2025, time.June, 5)))

	// A revoked delegation no longer blocks a new one over the same range.
	assert.NoError(t, d.CreateDelegation(delegation("del-2", "manager", "hr",
		leave.Date(2025, time.June, 1), leave.Date(2025, time.June, 10))))
}

func TestDirectory_DelegationUnknownParties(t *testing.T) {
	d := newOrgDirectory(t)
	err := d.CreateDelegation(delegation("del-1", "ghost", "ceo",
		leave.Date(2025, time.June, 1), leave.Date(2025, time.June, 10)))
	assert.ErrorIs(t, err, leave.ErrNotFound)
}
