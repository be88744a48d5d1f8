/*
directory.go - Employee hierarchy and approval delegation

PURPOSE:

	Two read-mostly indexes the workflow engine consults:

	1. The employee directory: id -> employee, with the manager
	   back-reference. Cycle detection runs at assignment time so that
	   Manager/SecondLevelManager lookups stay O(1) and cannot loop.
	2. The delegation directory: time-bounded substitutions of approval
	   authority. ResolveApprover is re-evaluated every time an approval
	   step is materialized, so a delegation created after submission
	   still takes effect for later steps.

INVARIANTS:
  - The reporting graph is acyclic.
  - Active delegations for one delegator never overlap in time.

SEE ALSO:
  - workflow.go: consumes Manager, HRAdmin and ResolveApprover
*/
package leave

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Directory holds employees, the reporting hierarchy and delegations.
// Safe for concurrent use.
type Directory struct {
	mu          sync.RWMutex
	employees   map[string]Employee
	delegations map[string][]Delegation // keyed by delegator
}

func NewDirectory() *Directory {
	return &Directory{
		employees:   make(map[string]Employee),
		delegations: make(map[string][]Delegation),
	}
}

// =============================================================================
// EMPLOYEES AND HIERARCHY
// =============================================================================

// PutEmployee inserts or updates an employee. A manager assignment is
// validated against the acyclicity invariant before it lands.
func (d *Directory) PutEmployee(e Employee) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e.ManagerID != "" {
		if err := d.checkAcyclicLocked(e.ID, e.ManagerID); err != nil {
			return err
		}
	}
	d.employees[e.ID] = e
	return nil
}

// checkAcyclicLocked walks the manager chain from the proposed manager
// and fails if it reaches the employee being assigned.
func (d *Directory) checkAcyclicLocked(employeeID, managerID string) error {
	if employeeID == managerID {
		return fmt.Errorf("%w: %s cannot manage themselves", ErrHierarchyCycle, employeeID)
	}
	seen := map[string]bool{employeeID: true}
	for cur := managerID; cur != ""; {
		if seen[cur] {
			return fmt.Errorf("%w: assigning %s under %s", ErrHierarchyCycle, employeeID, managerID)
		}
		seen[cur] = true
		next, ok := d.employees[cur]
		if !ok {
			break
		}
		cur = next.ManagerID
	}
	return nil
}

// Employee looks up one employee.
func (d *Directory) Employee(id string) (Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.employees[id]
	if !ok {
		return Employee{}, fmt.Errorf("%w: employee %s", ErrNotFound, id)
	}
	return e, nil
}

// Manager returns an employee's direct manager, if any.
func (d *Directory) Manager(employeeID string) (Employee, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.employees[employeeID]
	if !ok || e.ManagerID == "" {
		return Employee{}, false
	}
	m, ok := d.employees[e.ManagerID]
	return m, ok
}

// SecondLevelManager follows the chain one step further.
func (d *Directory) SecondLevelManager(employeeID string) (Employee, bool) {
	m, ok := d.Manager(employeeID)
	if !ok {
		return Employee{}, false
	}
	return d.Manager(m.ID)
}

// HRAdmin returns an active HR admin, if the organization has one.
// Deterministic: lowest id wins when there are several.
func (d *Directory) HRAdmin() (Employee, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var best Employee
	found := false
	for _, e := range d.employees {
		if e.Role != RoleHRAdmin || !e.Active {
			continue
		}
		if !found || e.ID < best.ID {
			best = e
			found = true
		}
	}
	return best, found
}

// Employees returns all employees ordered by id.
func (d *Directory) Employees() []Employee {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Employee, 0, len(d.employees))
	for _, e := range d.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DirectReports returns the employees managed by the given manager.
func (d *Directory) DirectReports(managerID string) []Employee {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Employee
	for _, e := range d.employees {
		if e.ManagerID == managerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EmployeeByEmail looks up an employee by email address.
func (d *Directory) EmployeeByEmail(email string) (Employee, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, e := range d.employees {
		if e.Email == email {
			return e, true
		}
	}
	return Employee{}, false
}

// =============================================================================
// DELEGATIONS
// =============================================================================

// CreateDelegation registers a substitution of approval authority.
// Active ranges for one delegator must not overlap.
func (d *Directory) CreateDelegation(del Delegation) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.employees[del.DelegatorID]; !ok {
		return fmt.Errorf("%w: delegator %s", ErrNotFound, del.DelegatorID)
	}
	if _, ok := d.employees[del.DelegateID]; !ok {
		return fmt.Errorf("%w: delegate %s", ErrNotFound, del.DelegateID)
	}

	for _, existing := range d.delegations[del.DelegatorID] {
		if existing.Active && existing.Range.Overlaps(del.Range) {
			return &DelegationConflictError{
				DelegatorID:          del.DelegatorID,
				Candidate:            del.Range,
				ExistingDelegationID: existing.ID,
			}
		}
	}

	d.delegations[del.DelegatorID] = append(d.delegations[del.DelegatorID], del)
	return nil
}

// RevokeDelegation deactivates a delegation by id.
func (d *Directory) RevokeDelegation(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for delegator, dels := range d.delegations {
		for i := range dels {
			if dels[i].ID == id {
				d.delegations[delegator][i].Active = false
				return nil
			}
		}
	}
	return fmt.Errorf("%w: delegation %s", ErrNotFound, id)
}

// ResolveApprover returns the delegate active for the nominal approver
// on the given date, or the nominal approver unchanged.
func (d *Directory) ResolveApprover(nominalID string, onDate time.Time) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, del := range d.delegations[nominalID] {
		if del.Active && del.Range.Contains(onDate) {
			return del.DelegateID
		}
	}
	return nominalID
}

// Delegations returns all delegations, ordered by delegator then start.
func (d *Directory) Delegations() []Delegation {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Delegation
	for _, dels := range d.delegations {
		out = append(out, dels...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DelegatorID != out[j].DelegatorID {
			return out[i].DelegatorID < out[j].DelegatorID
		}
		return out[i].Range.Start.Before(out[j].Range.Start)
	})
	return out
}
