/*
Package sqlite persists the leave core's entities.

PURPOSE:

	The core (leave package) is the in-memory source of truth with defined
	mutation contracts; this store is its write-through snapshot. The HTTP
	layer saves after each successful core mutation, and cmd/server
	hydrates a fresh core from here on startup.

KEY TABLES:

	employees:       directory entries (manager back-reference inline)
	leave_types:     quota metadata
	holidays:        the organization's non-working dates
	delegations:     time-bounded approval substitutions
	balances:        one row per (employee, leave_type, year)
	leave_requests:  requests; steps live in approval_steps
	approval_steps:  materialized approval steps, ordered by level

AMOUNT ENCODING:

	Day quantities are stored as decimal strings, never floats, so
	half-day units survive the round trip exactly.

WAL MODE:

	SQLite is opened with WAL for read concurrency; a single writer at a
	time matches the write-through pattern.

SEE ALSO:
  - leave: entity definitions and invariants
  - cmd/server: hydration on startup
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/leave"
)

const dateLayout = "2006-01-02"

// Store persists leave entities in SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		full_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		manager_id TEXT,
		department TEXT,
		hire_date TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS leave_types (
		id TEXT PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		annual_quota TEXT NOT NULL,
		requires_hr_review INTEGER NOT NULL DEFAULT 0,
		hr_review_threshold TEXT NOT NULL DEFAULT '0',
		requires_documentation INTEGER NOT NULL DEFAULT 0,
		is_paid INTEGER NOT NULL DEFAULT 1,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS delegations (
		id TEXT PRIMARY KEY,
		delegator_id TEXT NOT NULL,
		delegate_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_delegations_delegator
		ON delegations(delegator_id);

	CREATE TABLE IF NOT EXISTS balances (
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		total TEXT NOT NULL,
		used TEXT NOT NULL,
		pending TEXT NOT NULL,
		PRIMARY KEY (employee_id, leave_type_id, year)
	);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		total_days TEXT NOT NULL,
		reason TEXT,
		status TEXT NOT NULL,
		requires_level2 INTEGER NOT NULL,
		requires_level3 INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_requests_employee
		ON leave_requests(employee_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON leave_requests(status);

	CREATE TABLE IF NOT EXISTS approval_steps (
		request_id TEXT NOT NULL,
		level INTEGER NOT NULL,
		approver_id TEXT NOT NULL,
		outcome TEXT NOT NULL,
		comments TEXT,
		decided_at TEXT,
		PRIMARY KEY (request_id, level)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (s *Store) SaveEmployee(ctx context.Context, e leave.Employee) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, email, full_name, password_hash, role, manager_id, department, hire_date, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email=excluded.email, full_name=excluded.full_name,
			password_hash=excluded.password_hash, role=excluded.role,
			manager_id=excluded.manager_id, department=excluded.department,
			hire_date=excluded.hire_date, active=excluded.active`,
		e.ID, e.Email, e.FullName, e.PasswordHash, string(e.Role),
		nullable(e.ManagerID), e.Department, e.HireDate.Format(dateLayout), boolInt(e.Active))
	return err
}

func (s *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, full_name, password_hash, role, manager_id, department, hire_date, active
		FROM employees ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.Employee
	for rows.Next() {
		var e leave.Employee
		var role, hireDate string
		var managerID sql.NullString
		var active int
		if err := rows.Scan(&e.ID, &e.Email, &e.FullName, &e.PasswordHash, &role, &managerID, &e.Department, &hireDate, &active); err != nil {
			return nil, err
		}
		e.Role = leave.Role(role)
		e.ManagerID = managerID.String
		e.Active = active != 0
		if e.HireDate, err = time.Parse(dateLayout, hireDate); err != nil {
			return nil, fmt.Errorf("employee %s: bad hire date: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

func (s *Store) SaveLeaveType(ctx context.Context, lt leave.LeaveType) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_types (id, name, annual_quota, requires_hr_review, hr_review_threshold, requires_documentation, is_paid, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, annual_quota=excluded.annual_quota,
			requires_hr_review=excluded.requires_hr_review,
			hr_review_threshold=excluded.hr_review_threshold,
			requires_documentation=excluded.requires_documentation,
			is_paid=excluded.is_paid, active=excluded.active`,
		lt.ID, lt.Name, lt.AnnualQuota.String(), boolInt(lt.RequiresHRReview),
		lt.HRReviewThreshold.String(), boolInt(lt.RequiresDocumentation),
		boolInt(lt.IsPaid), boolInt(lt.Active))
	return err
}

func (s *Store) ListLeaveTypes(ctx context.Context) ([]leave.LeaveType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, annual_quota, requires_hr_review, hr_review_threshold, requires_documentation, is_paid, active
		FROM leave_types ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.LeaveType
	for rows.Next() {
		var lt leave.LeaveType
		var quota, threshold string
		var hrReview, reqDoc, isPaid, active int
		if err := rows.Scan(&lt.ID, &lt.Name, &quota, &hrReview, &threshold, &reqDoc, &isPaid, &active); err != nil {
			return nil, err
		}
		if lt.AnnualQuota, err = decimal.NewFromString(quota); err != nil {
			return nil, fmt.Errorf("leave type %s: bad quota: %w", lt.ID, err)
		}
		if lt.HRReviewThreshold, err = decimal.NewFromString(threshold); err != nil {
			return nil, fmt.Errorf("leave type %s: bad threshold: %w", lt.ID, err)
		}
		lt.RequiresHRReview = hrReview != 0
		lt.RequiresDocumentation = reqDoc != 0
		lt.IsPaid = isPaid != 0
		lt.Active = active != 0
		out = append(out, lt)
	}
	return out, rows.Err()
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (s *Store) SaveHoliday(ctx context.Context, h leave.Holiday) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (id, date, name) VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET id=excluded.id, name=excluded.name`,
		h.ID, h.Date.Format(dateLayout), h.Name)
	return err
}

func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = ?`, id)
	return err
}

func (s *Store) ListHolidays(ctx context.Context) ([]leave.Holiday, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, date, name FROM holidays ORDER BY date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.Holiday
	for rows.Next() {
		var h leave.Holiday
		var date string
		if err := rows.Scan(&h.ID, &date, &h.Name); err != nil {
			return nil, err
		}
		if h.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("holiday %s: bad date: %w", h.ID, err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// =============================================================================
// DELEGATIONS
// =============================================================================

func (s *Store) SaveDelegation(ctx context.Context, d leave.Delegation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO delegations (id, delegator_id, delegate_id, start_date, end_date, active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET active=excluded.active`,
		d.ID, d.DelegatorID, d.DelegateID,
		d.Range.Start.Format(dateLayout), d.Range.End.Format(dateLayout), boolInt(d.Active))
	return err
}

func (s *Store) ListDelegations(ctx context.Context) ([]leave.Delegation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, delegator_id, delegate_id, start_date, end_date, active
		FROM delegations ORDER BY delegator_id, start_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.Delegation
	for rows.Next() {
		var d leave.Delegation
		var start, end string
		var active int
		if err := rows.Scan(&d.ID, &d.DelegatorID, &d.DelegateID, &start, &end, &active); err != nil {
			return nil, err
		}
		d.Active = active != 0
		if d.Range, err = parseRange(start, end); err != nil {
			return nil, fmt.Errorf("delegation %s: %w", d.ID, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// =============================================================================
// BALANCES
// =============================================================================

func (s *Store) SaveBalance(ctx context.Context, b leave.BalanceRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO balances (employee_id, leave_type_id, year, total, used, pending)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, leave_type_id, year) DO UPDATE SET
			total=excluded.total, used=excluded.used, pending=excluded.pending`,
		b.Key.EmployeeID, b.Key.LeaveTypeID, b.Key.Year,
		b.Total.String(), b.Used.String(), b.Pending.String())
	return err
}

func (s *Store) ListBalances(ctx context.Context) ([]leave.BalanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, leave_type_id, year, total, used, pending
		FROM balances ORDER BY employee_id, leave_type_id, year`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.BalanceRecord
	for rows.Next() {
		var b leave.BalanceRecord
		var total, used, pending string
		if err := rows.Scan(&b.Key.EmployeeID, &b.Key.LeaveTypeID, &b.Key.Year, &total, &used, &pending); err != nil {
			return nil, err
		}
		if b.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("balance %s: bad total: %w", b.Key, err)
		}
		if b.Used, err = decimal.NewFromString(used); err != nil {
			return nil, fmt.Errorf("balance %s: bad used: %w", b.Key, err)
		}
		if b.Pending, err = decimal.NewFromString(pending); err != nil {
			return nil, fmt.Errorf("balance %s: bad pending: %w", b.Key, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// =============================================================================
// REQUESTS
// =============================================================================

// SaveRequest upserts a request and replaces its steps atomically.
func (s *Store) SaveRequest(ctx context.Context, r *leave.Request) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO leave_requests (id, employee_id, leave_type_id, start_date, end_date, total_days, reason, status, requires_level2, requires_level3, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status, updated_at=excluded.updated_at`,
		r.ID, r.EmployeeID, r.LeaveTypeID,
		r.Range.Start.Format(dateLayout), r.Range.End.Format(dateLayout),
		r.TotalDays.String(), r.Reason, string(r.Status),
		boolInt(r.RequiresLevel2), boolInt(r.RequiresLevel3),
		r.CreatedAt.UTC().Format(time.RFC3339), r.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM approval_steps WHERE request_id = ?`, r.ID); err != nil {
		return err
	}
	for _, step := range r.Steps {
		decidedAt := ""
		if !step.DecidedAt.IsZero() {
			decidedAt = step.DecidedAt.UTC().Format(time.RFC3339)
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO approval_steps (request_id, level, approver_id, outcome, comments, decided_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, step.Level, step.ApproverID, string(step.Outcome), step.Comments, decidedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) ListRequests(ctx context.Context) ([]*leave.Request, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, leave_type_id, start_date, end_date, total_days, reason, status, requires_level2, requires_level3, created_at, updated_at
		FROM leave_requests ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*leave.Request
	for rows.Next() {
		r := &leave.Request{}
		var start, end, total, status, createdAt, updatedAt string
		var l2, l3 int
		if err := rows.Scan(&r.ID, &r.EmployeeID, &r.LeaveTypeID, &start, &end, &total, &r.Reason, &status, &l2, &l3, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if r.Range, err = parseRange(start, end); err != nil {
			return nil, fmt.Errorf("request %s: %w", r.ID, err)
		}
		if r.TotalDays, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("request %s: bad total_days: %w", r.ID, err)
		}
		r.Status = leave.Status(status)
		r.RequiresLevel2 = l2 != 0
		r.RequiresLevel3 = l3 != 0
		if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("request %s: bad created_at: %w", r.ID, err)
		}
		if r.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, fmt.Errorf("request %s: bad updated_at: %w", r.ID, err)
		}
		if r.Steps, err = s.loadSteps(ctx, r.ID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) loadSteps(ctx context.Context, requestID string) ([]leave.ApprovalStep, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT level, approver_id, outcome, comments, decided_at
		FROM approval_steps WHERE request_id = ? ORDER BY level`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.ApprovalStep
	for rows.Next() {
		var step leave.ApprovalStep
		var outcome, decidedAt string
		if err := rows.Scan(&step.Level, &step.ApproverID, &outcome, &step.Comments, &decidedAt); err != nil {
			return nil, err
		}
		step.Outcome = leave.StepOutcome(outcome)
		if decidedAt != "" {
			if step.DecidedAt, err = time.Parse(time.RFC3339, decidedAt); err != nil {
				return nil, fmt.Errorf("request %s step %d: bad decided_at: %w", requestID, step.Level, err)
			}
		}
		out = append(out, step)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func parseRange(start, end string) (leave.DateRange, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return leave.DateRange{}, fmt.Errorf("bad start date: %w", err)
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return leave.DateRange{}, fmt.Errorf("bad end date: %w", err)
	}
	return leave.NewDateRange(s, e)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
