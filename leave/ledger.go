/*
ledger.go - Balance ledger with atomic reserve/commit/release

PURPOSE:

	One BalanceRecord per (employee, leave type, year) tracks total, used
	and pending days. All mutation goes through reservations:

	  reserve -> pending += days            (submission)
	  commit  -> pending -= days, used += days   (final approval)
	  release -> pending -= days            (rejection / cancellation)

INVARIANT:

	used + pending <= total, and all three fields >= 0, at all times.

	The check-and-increment in Reserve is a single critical section per
	record, so two concurrent reservations that together exceed the quota
	cannot both succeed. Records for different keys are independent; there
	is no cross-record locking.

RESERVATION LIFECYCLE:

	held -> committed   (exactly once)
	held -> released    (exactly once)
	Anything else is a caller sequencing bug and fails with
	InvalidReservationState rather than silently corrupting `used`.

SEE ALSO:
  - workflow.go: the only caller of commit/release in this module
*/
package leave

import (
	"fmt"
	"sync"
)

// =============================================================================
// BALANCE RECORDS
// =============================================================================

// BalanceKey identifies one annual quota bucket.
type BalanceKey struct {
	EmployeeID  string
	LeaveTypeID string
	Year        int
}

func (k BalanceKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.EmployeeID, k.LeaveTypeID, k.Year)
}

// BalanceRecord is the quota bucket. Owned exclusively by the Ledger;
// callers only ever see copies.
type BalanceRecord struct {
	Key     BalanceKey
	Total   Days
	Used    Days
	Pending Days
}

// Available returns total - used - pending. Never negative while the
// record is only mutated through the ledger.
func (b BalanceRecord) Available() Days {
	return b.Total.Sub(b.Used).Sub(b.Pending)
}

// balanceEntry pairs a record with its per-record lock.
type balanceEntry struct {
	mu  sync.Mutex
	rec BalanceRecord
}

// =============================================================================
// RESERVATIONS
// =============================================================================

type reservationState int

const (
	reservationHeld reservationState = iota
	reservationCommitted
	reservationReleased
)

// Reservation is the handle for days moved into pending. State changes
// happen under the owning record's lock.
type Reservation struct {
	Key  BalanceKey
	Days Days

	state reservationState
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger holds all balance records. The outer lock only guards the map;
// every balance mutation serializes on the record's own lock.
type Ledger struct {
	mu      sync.RWMutex
	records map[BalanceKey]*balanceEntry
}

func NewLedger() *Ledger {
	return &Ledger{records: make(map[BalanceKey]*balanceEntry)}
}

// InitializeYear creates a fresh record for the key. Records are never
// deleted, only superseded by the next year's record.
func (l *Ledger) InitializeYear(key BalanceKey, totalQuota Days) (BalanceRecord, error) {
	if totalQuota.IsNegative() {
		return BalanceRecord{}, fmt.Errorf("negative quota %s for %s", totalQuota, key)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.records[key]; exists {
		return BalanceRecord{}, fmt.Errorf("%w: %s", ErrAlreadyInitialized, key)
	}
	entry := &balanceEntry{rec: BalanceRecord{Key: key, Total: totalQuota, Used: ZeroDays, Pending: ZeroDays}}
	l.records[key] = entry
	return entry.rec, nil
}

// Balance returns a copy of the record for the key.
func (l *Ledger) Balance(key BalanceKey) (BalanceRecord, error) {
	entry, err := l.entry(key)
	if err != nil {
		return BalanceRecord{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.rec, nil
}

// Balances returns copies of all records for an employee.
func (l *Ledger) Balances(employeeID string) []BalanceRecord {
	l.mu.RLock()
	entries := make([]*balanceEntry, 0)
	for k, e := range l.records {
		if k.EmployeeID == employeeID {
			entries = append(entries, e)
		}
	}
	l.mu.RUnlock()

	out := make([]BalanceRecord, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.rec)
		e.mu.Unlock()
	}
	return out
}

// Reserve moves days into pending if quota allows. The balance check and
// the increment are one atomic unit per record.
func (l *Ledger) Reserve(key BalanceKey, days Days) (*Reservation, error) {
	if !days.IsPositive() {
		return nil, fmt.Errorf("reserve amount must be positive, got %s", days)
	}
	entry, err := l.entry(key)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	available := entry.rec.Available()
	if days.GreaterThan(available) {
		return nil, &InsufficientBalanceError{
			EmployeeID:  key.EmployeeID,
			LeaveTypeID: key.LeaveTypeID,
			Year:        key.Year,
			Available:   available,
			Requested:   days,
			Shortfall:   days.Sub(available),
		}
	}

	entry.rec.Pending = entry.rec.Pending.Add(days)
	return &Reservation{Key: key, Days: days, state: reservationHeld}, nil
}

// Commit moves a held reservation's days from pending to used.
func (l *Ledger) Commit(res *Reservation) error {
	return l.settle(res, true)
}

// Release returns a held reservation's days to available.
func (l *Ledger) Release(res *Reservation) error {
	return l.settle(res, false)
}

func (l *Ledger) settle(res *Reservation, commit bool) error {
	if res == nil {
		return fmt.Errorf("%w: nil reservation", ErrInvalidReservationState)
	}
	entry, err := l.entry(res.Key)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if res.state != reservationHeld {
		return fmt.Errorf("%w: reservation for %s already settled", ErrInvalidReservationState, res.Key)
	}

	entry.rec.Pending = entry.rec.Pending.Sub(res.Days)
	if commit {
		entry.rec.Used = entry.rec.Used.Add(res.Days)
		res.state = reservationCommitted
	} else {
		res.state = reservationReleased
	}
	return nil
}

// Restore rebuilds a record from persisted state (startup hydration).
// Rejects state that would violate the ledger invariant.
func (l *Ledger) Restore(rec BalanceRecord) error {
	if rec.Total.IsNegative() || rec.Used.IsNegative() || rec.Pending.IsNegative() {
		return fmt.Errorf("negative field in persisted balance %s", rec.Key)
	}
	if rec.Used.Add(rec.Pending).GreaterThan(rec.Total) {
		return fmt.Errorf("persisted balance %s violates used+pending<=total", rec.Key)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.records[rec.Key]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyInitialized, rec.Key)
	}
	l.records[rec.Key] = &balanceEntry{rec: rec}
	return nil
}

// Reattach recreates the reservation handle for a pending request after
// a restart. The persisted record's pending already includes the days,
// so nothing is incremented.
func (l *Ledger) Reattach(key BalanceKey, days Days) (*Reservation, error) {
	entry, err := l.entry(key)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if days.GreaterThan(entry.rec.Pending) {
		return nil, fmt.Errorf("cannot reattach %s days to %s: only %s pending", days, key, entry.rec.Pending)
	}
	return &Reservation{Key: key, Days: days, state: reservationHeld}, nil
}

func (l *Ledger) entry(key BalanceKey) (*balanceEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry, ok := l.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: balance %s", ErrNotFound, key)
	}
	return entry, nil
}
