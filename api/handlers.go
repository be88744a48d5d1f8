/*
handlers.go - HTTP handlers over the leave core

PURPOSE:

	Exposes the leave management core via REST. Handlers parse HTTP,
	resolve the acting identity, call the core, persist the outcome
	write-through, and serialize the response.

ENDPOINTS:

	Auth:
	  POST   /api/auth/register             Create an account
	  POST   /api/auth/login                Issue a session token
	  GET    /api/auth/me                   Current employee

	Employees:
	  GET    /api/employees                 List employees
	  GET    /api/employees/{id}            One employee
	  GET    /api/employees/{id}/team       Direct reports

	Leave types (hr_admin to create):
	  GET    /api/leave-types
	  POST   /api/leave-types

	Balances:
	  GET    /api/balances/me
	  GET    /api/balances/{employeeID}     manager / hr_admin
	  POST   /api/balances/initialize/{year}  hr_admin; bulk per-year init

	Requests:
	  POST   /api/requests                  Submit (as the caller)
	  GET    /api/requests?status=          Own requests
	  GET    /api/requests/pending-approvals  Approver inbox
	  GET    /api/requests/{id}
	  POST   /api/requests/{id}/approve
	  POST   /api/requests/{id}/reject
	  DELETE /api/requests/{id}             Cancel (requester only)

	Holidays (hr_admin to mutate):
	  GET    /api/holidays?year=
	  POST   /api/holidays
	  DELETE /api/holidays/{id}

	Delegations:
	  GET    /api/delegations
	  POST   /api/delegations               Delegator is the caller

	Reports:
	  GET    /api/reports/team-calendar?from=&to=
	  GET    /api/reports/leave-summary?employee_id=&year=

ERROR HANDLING:

	Core errors map by taxonomy: validation 400, conflict 409, not found
	404, authorization 403, invariant violations 500 with a distinct log
	line (they mean a caller sequencing bug, not user input).

SEE ALSO:
  - dto.go: request/response shapes
  - server.go: routing and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

const dateLayout = "2006-01-02"

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine    *leave.Engine
	Store     *sqlite.Store // nil in unit tests; persistence becomes a no-op
	JWTSecret string
	TokenTTL  time.Duration
	NewID     func() string
}

func NewHandler(engine *leave.Engine, store *sqlite.Store, jwtSecret string) *Handler {
	return &Handler{
		Engine:    engine,
		Store:     store,
		JWTSecret: jwtSecret,
		TokenTTL:  8 * time.Hour,
		NewID:     uuid.NewString,
	}
}

// =============================================================================
// AUTH
// =============================================================================

// Register creates an account. The first account may be created openly;
// after that the route sits behind hr_admin (see server.go).
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if body.Email == "" || body.Password == "" || body.FullName == "" {
		writeError(w, http.StatusBadRequest, "email, full_name and password are required", nil)
		return
	}
	role := leave.Role(body.Role)
	switch role {
	case leave.RoleEmployee, leave.RoleManager, leave.RoleHRAdmin:
	case "":
		role = leave.RoleEmployee
	default:
		writeError(w, http.StatusBadRequest, "Unknown role", nil)
		return
	}
	if _, exists := h.Engine.Directory.EmployeeByEmail(body.Email); exists {
		writeError(w, http.StatusConflict, "Email already registered", nil)
		return
	}

	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password", err)
		return
	}
	emp := leave.Employee{
		ID:           h.NewID(),
		Email:        body.Email,
		FullName:     body.FullName,
		PasswordHash: hash,
		Role:         role,
		ManagerID:    body.ManagerID,
		Department:   body.Department,
		HireDate:     leave.DateOf(time.Now()),
		Active:       true,
	}
	if err := h.Engine.Directory.PutEmployee(emp); err != nil {
		writeCoreError(w, err)
		return
	}
	h.persistEmployee(r, emp)
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// Login verifies credentials and issues a token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	emp, ok := h.Engine.Directory.EmployeeByEmail(body.Email)
	if !ok || !emp.Active || auth.CheckPassword(emp.PasswordHash, body.Password) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}
	token, err := auth.GenerateToken(h.JWTSecret, emp.ID, string(emp.Role), h.TokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		Employee:    toEmployeeDTO(emp),
	})
}

// Me returns the authenticated employee.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	emp, err := h.Engine.Directory.Employee(identity.EmployeeID)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees := h.Engine.Directory.Employees()
	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Engine.Directory.Employee(chi.URLParam(r, "id"))
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	reports := h.Engine.Directory.DirectReports(chi.URLParam(r, "id"))
	dtos := make([]EmployeeDTO, len(reports))
	for i, e := range reports {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

func (h *Handler) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	types := h.Engine.LeaveTypes()
	dtos := make([]LeaveTypeDTO, len(types))
	for i, lt := range types {
		dtos[i] = toLeaveTypeDTO(lt)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateLeaveType(w http.ResponseWriter, r *http.Request) {
	var body CreateLeaveTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if body.ID == "" || body.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}
	quota, err := decimal.NewFromString(body.AnnualQuota)
	if err != nil || quota.IsNegative() {
		writeError(w, http.StatusBadRequest, "annual_quota must be a non-negative decimal", err)
		return
	}
	threshold := decimal.Zero
	if body.HRReviewThreshold != "" {
		if threshold, err = decimal.NewFromString(body.HRReviewThreshold); err != nil {
			writeError(w, http.StatusBadRequest, "hr_review_threshold must be a decimal", err)
			return
		}
	}
	lt := leave.LeaveType{
		ID:                    body.ID,
		Name:                  body.Name,
		AnnualQuota:           quota,
		RequiresHRReview:      body.RequiresHRReview,
		HRReviewThreshold:     threshold,
		RequiresDocumentation: body.RequiresDocumentation,
		IsPaid:                body.IsPaid,
		Active:                true,
	}
	h.Engine.PutLeaveType(lt)
	if h.Store != nil {
		if err := h.Store.SaveLeaveType(r.Context(), lt); err != nil {
			log.Printf("persist leave type %s: %v", lt.ID, err)
		}
	}
	writeJSON(w, http.StatusCreated, toLeaveTypeDTO(lt))
}

// =============================================================================
// BALANCES
// =============================================================================

func (h *Handler) MyBalances(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	h.writeBalances(w, identity.EmployeeID)
}

func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	employeeID := chi.URLParam(r, "employeeID")
	if !h.maySeeEmployee(identity, employeeID) {
		writeError(w, http.StatusForbidden, "Not allowed to view this employee's balances", nil)
		return
	}
	h.writeBalances(w, employeeID)
}

func (h *Handler) writeBalances(w http.ResponseWriter, employeeID string) {
	records := h.Engine.Ledger.Balances(employeeID)
	dtos := make([]BalanceDTO, len(records))
	for i, b := range records {
		dtos[i] = toBalanceDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// InitializeYear creates balance records for every active employee and
// active leave type for the year. Existing records are left untouched.
func (h *Handler) InitializeYear(w http.ResponseWriter, r *http.Request) {
	year, err := intParam(r, "year")
	if err != nil || year < 2000 || year > 2200 {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	created, skipped := 0, 0
	for _, emp := range h.Engine.Directory.Employees() {
		if !emp.Active {
			continue
		}
		for _, lt := range h.Engine.LeaveTypes() {
			if !lt.Active {
				continue
			}
			key := leave.BalanceKey{EmployeeID: emp.ID, LeaveTypeID: lt.ID, Year: year}
			rec, err := h.Engine.Ledger.InitializeYear(key, lt.AnnualQuota)
			if errors.Is(err, leave.ErrAlreadyInitialized) {
				skipped++
				continue
			}
			if err != nil {
				writeCoreError(w, err)
				return
			}
			created++
			if h.Store != nil {
				if err := h.Store.SaveBalance(r.Context(), rec); err != nil {
					log.Printf("persist balance %s: %v", rec.Key, err)
				}
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": created, "skipped": skipped})
}

// =============================================================================
// REQUESTS
// =============================================================================

func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	var body SubmitRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	start, err := time.Parse(dateLayout, body.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD", err)
		return
	}
	end, err := time.Parse(dateLayout, body.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD", err)
		return
	}

	req, err := h.Engine.Submit(identity.EmployeeID, body.LeaveTypeID, start, end, body.Reason)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	h.persistRequestAndBalance(r, req)
	writeJSON(w, http.StatusCreated, toRequestDTO(req))
}

func (h *Handler) ListMyRequests(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	status := leave.Status(r.URL.Query().Get("status"))
	writeJSON(w, http.StatusOK, toRequestDTOs(h.Engine.RequestsForEmployee(identity.EmployeeID, status)))
}

func (h *Handler) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	writeJSON(w, http.StatusOK, toRequestDTOs(h.Engine.PendingApprovals(identity.EmployeeID)))
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	req, err := h.Engine.Request(chi.URLParam(r, "id"))
	if err != nil {
		writeCoreError(w, err)
		return
	}
	if req.EmployeeID != identity.EmployeeID && !h.maySeeEmployee(identity, req.EmployeeID) && !isCurrentApprover(req, identity.EmployeeID) {
		writeError(w, http.StatusForbidden, "Not allowed to view this request", nil)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, leave.ActionApprove)
}

func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, leave.ActionReject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, action leave.Action) {
	identity, _ := IdentityFrom(r.Context())
	var body DecisionRequestDTO
	if r.Body != nil {
		// An empty body is fine for approvals.
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	req, err := h.Engine.Decide(chi.URLParam(r, "id"), identity.EmployeeID, action, body.Comments)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	h.persistRequestAndBalance(r, req)
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	req, err := h.Engine.Cancel(chi.URLParam(r, "id"), identity.EmployeeID)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	h.persistRequestAndBalance(r, req)
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	var holidays []leave.Holiday
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		year, err := parseInt(yearStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		holidays = h.Engine.Calendar.Year(year)
	} else {
		holidays = h.Engine.Calendar.All()
	}
	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = HolidayDTO{ID: hol.ID, Date: hol.Date.Format(dateLayout), Name: hol.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var body CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	date, err := time.Parse(dateLayout, body.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD", err)
		return
	}
	if body.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	hol := leave.Holiday{ID: h.NewID(), Date: leave.DateOf(date), Name: body.Name}
	h.Engine.Calendar.Add(hol)
	if h.Store != nil {
		if err := h.Store.SaveHoliday(r.Context(), hol); err != nil {
			log.Printf("persist holiday %s: %v", hol.ID, err)
		}
	}
	writeJSON(w, http.StatusCreated, HolidayDTO{ID: hol.ID, Date: hol.Date.Format(dateLayout), Name: hol.Name})
}

func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.Engine.Calendar.Remove(id) {
		writeError(w, http.StatusNotFound, "Holiday not found", nil)
		return
	}
	if h.Store != nil {
		if err := h.Store.DeleteHoliday(r.Context(), id); err != nil {
			log.Printf("delete holiday %s: %v", id, err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// DELEGATIONS
// =============================================================================

func (h *Handler) ListDelegations(w http.ResponseWriter, r *http.Request) {
	dels := h.Engine.Directory.Delegations()
	dtos := make([]DelegationDTO, len(dels))
	for i, d := range dels {
		dtos[i] = toDelegationDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateDelegation registers a delegation with the caller as delegator.
func (h *Handler) CreateDelegation(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	var body CreateDelegationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	start, err := time.Parse(dateLayout, body.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD", err)
		return
	}
	end, err := time.Parse(dateLayout, body.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD", err)
		return
	}
	rng, err := leave.NewDateRange(start, end)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	if body.DelegateID == identity.EmployeeID {
		writeError(w, http.StatusBadRequest, "Cannot delegate to yourself", nil)
		return
	}

	del := leave.Delegation{
		ID:          h.NewID(),
		DelegatorID: identity.EmployeeID,
		DelegateID:  body.DelegateID,
		Range:       rng,
		Active:      true,
	}
	if err := h.Engine.Directory.CreateDelegation(del); err != nil {
		writeCoreError(w, err)
		return
	}
	if h.Store != nil {
		if err := h.Store.SaveDelegation(r.Context(), del); err != nil {
			log.Printf("persist delegation %s: %v", del.ID, err)
		}
	}
	writeJSON(w, http.StatusCreated, toDelegationDTO(del))
}

// RevokeDelegation deactivates a delegation. Only the delegator or an
// hr_admin may revoke.
func (h *Handler) RevokeDelegation(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	id := chi.URLParam(r, "id")

	var target *leave.Delegation
	for _, d := range h.Engine.Directory.Delegations() {
		if d.ID == id {
			target = &d
			break
		}
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "Delegation not found", nil)
		return
	}
	if target.DelegatorID != identity.EmployeeID && identity.Role != leave.RoleHRAdmin {
		writeError(w, http.StatusForbidden, "Not allowed to revoke this delegation", nil)
		return
	}
	if err := h.Engine.Directory.RevokeDelegation(id); err != nil {
		writeCoreError(w, err)
		return
	}
	target.Active = false
	if h.Store != nil {
		if err := h.Store.SaveDelegation(r.Context(), *target); err != nil {
			log.Printf("persist delegation %s: %v", id, err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REPORTS
// =============================================================================

// TeamCalendar lists approved leave for the caller's direct reports
// inside a date window.
func (h *Handler) TeamCalendar(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	from, err := time.Parse(dateLayout, r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD", err)
		return
	}
	to, err := time.Parse(dateLayout, r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD", err)
		return
	}
	window, err := leave.NewDateRange(from, to)
	if err != nil {
		writeCoreError(w, err)
		return
	}

	entries := []TeamCalendarEntryDTO{}
	for _, member := range h.Engine.Directory.DirectReports(identity.EmployeeID) {
		for _, req := range h.Engine.ApprovedInRange(member.ID, window) {
			entries = append(entries, TeamCalendarEntryDTO{
				EmployeeID: member.ID,
				FullName:   member.FullName,
				RequestID:  req.ID,
				StartDate:  req.Range.Start.Format(dateLayout),
				EndDate:    req.Range.End.Format(dateLayout),
				TotalDays:  req.TotalDays.String(),
			})
		}
	}
	writeJSON(w, http.StatusOK, entries)
}

// LeaveSummary returns an employee's balances and request history for a
// year.
func (h *Handler) LeaveSummary(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	employeeID := r.URL.Query().Get("employee_id")
	if employeeID == "" {
		employeeID = identity.EmployeeID
	}
	if employeeID != identity.EmployeeID && !h.maySeeEmployee(identity, employeeID) {
		writeError(w, http.StatusForbidden, "Not allowed to view this employee's summary", nil)
		return
	}
	year := time.Now().Year()
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		y, err := parseInt(yearStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = y
	}

	summary := LeaveSummaryDTO{EmployeeID: employeeID, Year: year, Balances: []BalanceDTO{}, Requests: []RequestDTO{}}
	for _, b := range h.Engine.Ledger.Balances(employeeID) {
		if b.Key.Year == year {
			summary.Balances = append(summary.Balances, toBalanceDTO(b))
		}
	}
	for _, req := range h.Engine.RequestsForEmployee(employeeID, "") {
		if req.Year() == year {
			summary.Requests = append(summary.Requests, toRequestDTO(req))
		}
	}
	writeJSON(w, http.StatusOK, summary)
}

// =============================================================================
// HELPERS
// =============================================================================

// maySeeEmployee: HR sees everyone, a manager sees anyone in their
// management chain.
func (h *Handler) maySeeEmployee(identity Identity, employeeID string) bool {
	if identity.Role == leave.RoleHRAdmin {
		return true
	}
	// Walk up from the employee; the directory is acyclic so this
	// terminates.
	cur := employeeID
	for {
		m, ok := h.Engine.Directory.Manager(cur)
		if !ok {
			return false
		}
		if m.ID == identity.EmployeeID {
			return true
		}
		cur = m.ID
	}
}

func isCurrentApprover(req *leave.Request, actorID string) bool {
	step := req.CurrentStep()
	return step != nil && step.ApproverID == actorID
}

// persistRequestAndBalance writes the request and its balance record
// through to the store after a successful core mutation.
func (h *Handler) persistRequestAndBalance(r *http.Request, req *leave.Request) {
	if h.Store == nil {
		return
	}
	ctx := r.Context()
	if err := h.Store.SaveRequest(ctx, req); err != nil {
		log.Printf("persist request %s: %v", req.ID, err)
	}
	key := leave.BalanceKey{EmployeeID: req.EmployeeID, LeaveTypeID: req.LeaveTypeID, Year: req.Year()}
	rec, err := h.Engine.Ledger.Balance(key)
	if err != nil {
		log.Printf("read balance %s: %v", key, err)
		return
	}
	if err := h.Store.SaveBalance(ctx, rec); err != nil {
		log.Printf("persist balance %s: %v", key, err)
	}
}

func (h *Handler) persistEmployee(r *http.Request, emp leave.Employee) {
	if h.Store == nil {
		return
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		log.Printf("persist employee %s: %v", emp.ID, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeCoreError maps a core error onto a status by taxonomy.
func writeCoreError(w http.ResponseWriter, err error) {
	switch {
	case leave.IsValidation(err):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	case leave.IsConflict(err):
		writeError(w, http.StatusConflict, "Conflict", err)
	case errors.Is(err, leave.ErrNotAuthorizedApprover):
		writeError(w, http.StatusForbidden, "Not authorized for this action", err)
	case errors.Is(err, leave.ErrNoApproverAvailable):
		writeError(w, http.StatusUnprocessableEntity, "No approver available", err)
	case errors.Is(err, leave.ErrHierarchyCycle):
		writeError(w, http.StatusBadRequest, "Hierarchy cycle", err)
	case leave.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case leave.IsInvariant(err):
		// Sequencing bugs get a distinct log line; they are not user input
		// problems.
		log.Printf("INVARIANT: %v", err)
		writeError(w, http.StatusConflict, "Request state does not permit this action", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func intParam(r *http.Request, name string) (int, error) {
	return parseInt(chi.URLParam(r, name))
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(s)
}
