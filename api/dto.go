/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:

	JSON structures decoupling the leave core's domain model from the
	external API contract. Day quantities are serialized as strings so
	fractional units are never mangled by float formatting.

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients

SEE ALSO:
  - handlers.go: uses these types
*/
package api

import (
	"time"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// AUTH
// =============================================================================

type RegisterRequest struct {
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	ManagerID  string `json:"manager_id,omitempty"`
	Department string `json:"department,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	Employee    EmployeeDTO `json:"employee"`
}

// =============================================================================
// EMPLOYEES
// =============================================================================

type EmployeeDTO struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	ManagerID  string `json:"manager_id,omitempty"`
	Department string `json:"department,omitempty"`
	HireDate   string `json:"hire_date"`
	Active     bool   `json:"active"`
}

func toEmployeeDTO(e leave.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:         e.ID,
		Email:      e.Email,
		FullName:   e.FullName,
		Role:       string(e.Role),
		ManagerID:  e.ManagerID,
		Department: e.Department,
		HireDate:   e.HireDate.Format("2006-01-02"),
		Active:     e.Active,
	}
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

type LeaveTypeDTO struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	AnnualQuota           string `json:"annual_quota"`
	RequiresHRReview      bool   `json:"requires_hr_review"`
	HRReviewThreshold     string `json:"hr_review_threshold,omitempty"`
	RequiresDocumentation bool   `json:"requires_documentation"`
	IsPaid                bool   `json:"is_paid"`
	Active                bool   `json:"active"`
}

type CreateLeaveTypeRequest struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	AnnualQuota           string `json:"annual_quota"`
	RequiresHRReview      bool   `json:"requires_hr_review"`
	HRReviewThreshold     string `json:"hr_review_threshold,omitempty"`
	RequiresDocumentation bool   `json:"requires_documentation"`
	IsPaid                bool   `json:"is_paid"`
}

func toLeaveTypeDTO(lt leave.LeaveType) LeaveTypeDTO {
	return LeaveTypeDTO{
		ID:                    lt.ID,
		Name:                  lt.Name,
		AnnualQuota:           lt.AnnualQuota.String(),
		RequiresHRReview:      lt.RequiresHRReview,
		HRReviewThreshold:     lt.HRReviewThreshold.String(),
		RequiresDocumentation: lt.RequiresDocumentation,
		IsPaid:                lt.IsPaid,
		Active:                lt.Active,
	}
}

// =============================================================================
// BALANCES
// =============================================================================

type BalanceDTO struct {
	EmployeeID  string `json:"employee_id"`
	LeaveTypeID string `json:"leave_type_id"`
	Year        int    `json:"year"`
	Total       string `json:"total"`
	Used        string `json:"used"`
	Pending     string `json:"pending"`
	Available   string `json:"available"`
}

func toBalanceDTO(b leave.BalanceRecord) BalanceDTO {
	return BalanceDTO{
		EmployeeID:  b.Key.EmployeeID,
		LeaveTypeID: b.Key.LeaveTypeID,
		Year:        b.Key.Year,
		Total:       b.Total.String(),
		Used:        b.Used.String(),
		Pending:     b.Pending.String(),
		Available:   b.Available().String(),
	}
}

// =============================================================================
// REQUESTS
// =============================================================================

type SubmitRequestDTO struct {
	LeaveTypeID string `json:"leave_type_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Reason      string `json:"reason,omitempty"`
}

type DecisionRequestDTO struct {
	Comments string `json:"comments,omitempty"`
}

type ApprovalStepDTO struct {
	Level      int    `json:"level"`
	ApproverID string `json:"approver_id"`
	Outcome    string `json:"outcome"`
	Comments   string `json:"comments,omitempty"`
	DecidedAt  string `json:"decided_at,omitempty"`
}

type RequestDTO struct {
	ID          string            `json:"id"`
	EmployeeID  string            `json:"employee_id"`
	LeaveTypeID string            `json:"leave_type_id"`
	StartDate   string            `json:"start_date"`
	EndDate     string            `json:"end_date"`
	TotalDays   string            `json:"total_days"`
	Reason      string            `json:"reason,omitempty"`
	Status      string            `json:"status"`
	Steps       []ApprovalStepDTO `json:"steps"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

func toRequestDTO(r *leave.Request) RequestDTO {
	steps := make([]ApprovalStepDTO, len(r.Steps))
	for i, s := range r.Steps {
		steps[i] = ApprovalStepDTO{
			Level:      s.Level,
			ApproverID: s.ApproverID,
			Outcome:    string(s.Outcome),
			Comments:   s.Comments,
		}
		if !s.DecidedAt.IsZero() {
			steps[i].DecidedAt = s.DecidedAt.UTC().Format(time.RFC3339)
		}
	}
	return RequestDTO{
		ID:          r.ID,
		EmployeeID:  r.EmployeeID,
		LeaveTypeID: r.LeaveTypeID,
		StartDate:   r.Range.Start.Format("2006-01-02"),
		EndDate:     r.Range.End.Format("2006-01-02"),
		TotalDays:   r.TotalDays.String(),
		Reason:      r.Reason,
		Status:      string(r.Status),
		Steps:       steps,
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toRequestDTOs(rs []*leave.Request) []RequestDTO {
	out := make([]RequestDTO, len(rs))
	for i, r := range rs {
		out[i] = toRequestDTO(r)
	}
	return out
}

// =============================================================================
// HOLIDAYS AND DELEGATIONS
// =============================================================================

type HolidayDTO struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Name string `json:"name"`
}

type CreateHolidayRequest struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

type DelegationDTO struct {
	ID          string `json:"id"`
	DelegatorID string `json:"delegator_id"`
	DelegateID  string `json:"delegate_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Active      bool   `json:"active"`
}

type CreateDelegationRequest struct {
	DelegateID string `json:"delegate_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

func toDelegationDTO(d leave.Delegation) DelegationDTO {
	return DelegationDTO{
		ID:          d.ID,
		DelegatorID: d.DelegatorID,
		DelegateID:  d.DelegateID,
		StartDate:   d.Range.Start.Format("2006-01-02"),
		EndDate:     d.Range.End.Format("2006-01-02"),
		Active:      d.Active,
	}
}

// =============================================================================
// REPORTS
// =============================================================================

type TeamCalendarEntryDTO struct {
	EmployeeID string `json:"employee_id"`
	FullName   string `json:"full_name"`
	RequestID  string `json:"request_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	TotalDays  string `json:"total_days"`
}

type LeaveSummaryDTO struct {
	EmployeeID string       `json:"employee_id"`
	Year       int          `json:"year"`
	Balances   []BalanceDTO `json:"balances"`
	Requests   []RequestDTO `json:"requests"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
