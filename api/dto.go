/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - vacation/types.go: The domain model these project
*/
package api

import (
	"time"

	"github.com/nimbus-hr/vacation-engine/vacation"
)

// =============================================================================
// REQUEST BODIES
// =============================================================================

// SubmitRequestDTO is the body for submitting a vacation request.
// EmployeeID defaults to the acting identity; a mismatching value is
// rejected by the engine.
type SubmitRequestDTO struct {
	EmployeeID string `json:"employee_id,omitempty"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

// DecisionRequest is the body for approve/deny.
type DecisionRequest struct {
	Note string `json:"note"`
}

// ProcessRequest is the body for HR processing.
type ProcessRequest struct {
	Note string `json:"hr_note"`
}

// ImportHolidaysRequest is the body for a holiday import run.
type ImportHolidaysRequest struct {
	Year int `json:"year"`
}

// DeprecateHolidayRequest is the body for deprecating a holiday.
type DeprecateHolidayRequest struct {
	Reason string `json:"reason"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// RequestDTO represents a vacation request in API responses.
type RequestDTO struct {
	ID           string  `json:"id"`
	Code         string  `json:"code"`
	EmployeeID   string  `json:"employee_id"`
	EmployeeName string  `json:"employee_name,omitempty"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	NumberOfDays int     `json:"number_of_days"`
	Status       string  `json:"status"`
	ManagerNote  string  `json:"manager_note,omitempty"`
	HRNote       string  `json:"hr_note,omitempty"`
	SubmittedAt  string  `json:"submitted_at"`
	DecidedAt    *string `json:"decided_at,omitempty"`
	ProcessedAt  *string `json:"processed_at,omitempty"`
}

// BalanceDTO is the reconciled balance view. Official and Tentative are
// null when the system of record is unavailable.
type BalanceDTO struct {
	EmployeeID  string  `json:"employee_id"`
	Official    *string `json:"official"`
	Tentative   *string `json:"tentative"`
	Unavailable bool    `json:"unavailable"`
	Message     string  `json:"message,omitempty"`
}

// ComputeDaysDTO is the working-day preview response.
type ComputeDaysDTO struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Days      int    `json:"days"`
}

// HolidayDTO represents a holiday in API responses.
type HolidayDTO struct {
	ID                string `json:"id"`
	Date              string `json:"date"`
	Name              string `json:"name"`
	Status            string `json:"status"`
	DeprecationReason string `json:"deprecation_reason,omitempty"`
}

// OverlapDTO references a teammate request intersecting a candidate's range.
type OverlapDTO struct {
	RequestID    string `json:"request_id"`
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name,omitempty"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	Status       string `json:"status"`
}

// RequestDetailDTO is the manager's decision-support view.
type RequestDetailDTO struct {
	Request  RequestDTO   `json:"request"`
	Holidays []HolidayDTO `json:"holidays"`
	Overlaps []OverlapDTO `json:"overlaps"`
}

// DashboardDTO is the employee home view.
type DashboardDTO struct {
	Balance      BalanceDTO   `json:"balance"`
	MyRequests   []RequestDTO `json:"my_requests"`
	TeamRequests []RequestDTO `json:"team_requests"`
	Holidays     []HolidayDTO `json:"holidays"`
}

// CalendarDTO is the shared team calendar view.
type CalendarDTO struct {
	Requests []RequestDTO `json:"requests"`
	Holidays []HolidayDTO `json:"holidays"`
}

// ImportResultDTO summarizes a holiday import run.
type ImportResultDTO struct {
	Year     int    `json:"year"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Outcome  string `json:"outcome"`
	Message  string `json:"message,omitempty"`
}

// ErrorResponse is the standard error envelope. Retryable hints whether
// the same call might succeed later.
type ErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func toRequestDTO(req *vacation.Request) RequestDTO {
	return RequestDTO{
		ID:           string(req.ID),
		Code:         req.Code,
		EmployeeID:   string(req.EmployeeID),
		EmployeeName: req.EmployeeName,
		StartDate:    req.StartDate.String(),
		EndDate:      req.EndDate.String(),
		NumberOfDays: req.NumberOfDays,
		Status:       string(req.Status),
		ManagerNote:  req.ManagerNote,
		HRNote:       req.HRNote,
		SubmittedAt:  req.SubmittedAt.Format(time.RFC3339),
		DecidedAt:    formatTimePtr(req.DecidedAt),
		ProcessedAt:  formatTimePtr(req.ProcessedAt),
	}
}

func toRequestDTOs(reqs []*vacation.Request) []RequestDTO {
	dtos := make([]RequestDTO, len(reqs))
	for i, req := range reqs {
		dtos[i] = toRequestDTO(req)
	}
	return dtos
}

func toBalanceDTO(employeeID vacation.EmployeeID, snap vacation.BalanceSnapshot) BalanceDTO {
	dto := BalanceDTO{
		EmployeeID:  string(employeeID),
		Unavailable: snap.Unavailable,
		Message:     snap.Message,
	}
	if snap.Official != nil {
		s := snap.Official.String()
		dto.Official = &s
	}
	if snap.Tentative != nil {
		s := snap.Tentative.String()
		dto.Tentative = &s
	}
	return dto
}

func toHolidayDTO(h vacation.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:                string(h.ID),
		Date:              h.Date.String(),
		Name:              h.Name,
		Status:            string(h.Status),
		DeprecationReason: h.DeprecationReason,
	}
}

func toHolidayDTOs(holidays []vacation.Holiday) []HolidayDTO {
	dtos := make([]HolidayDTO, len(holidays))
	for i, h := range holidays {
		dtos[i] = toHolidayDTO(h)
	}
	return dtos
}

func toOverlapDTOs(overlaps []vacation.OverlapRecord) []OverlapDTO {
	dtos := make([]OverlapDTO, len(overlaps))
	for i, o := range overlaps {
		dtos[i] = OverlapDTO{
			RequestID:    string(o.RequestID),
			EmployeeID:   string(o.EmployeeID),
			EmployeeName: o.EmployeeName,
			StartDate:    o.StartDate.String(),
			EndDate:      o.EndDate.String(),
			Status:       string(o.Status),
		}
	}
	return dtos
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
