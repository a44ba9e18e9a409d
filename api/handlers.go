/*
handlers.go - HTTP API handlers for the vacation lifecycle engine

PURPOSE:
  Exposes the lifecycle engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Requests:
    POST   /api/requests                      Submit a vacation request
    GET    /api/requests/{id}                 Decision-support detail
    GET    /api/requests/pending              Manager queue (team-scoped)
    GET    /api/requests/approved             HR processing queue
    POST   /api/requests/{id}/approve         Manager approval
    POST   /api/requests/{id}/deny            Manager denial
    POST   /api/requests/{id}/process         HR processing (deduction)

  Balance / planning:
    GET    /api/compute-days                  Working-day preview
    GET    /api/employees/{id}/balance        Reconciled balance
    GET    /api/employees/{id}/dashboard      Employee home view
    GET    /api/calendar                      Shared team calendar

  Holidays:
    GET    /api/holidays?year=YYYY            Holidays of a year
    GET    /api/holidays/years                Years with imported holidays
    POST   /api/holidays/import               Import a year (admin)
    POST   /api/holidays/{id}/deprecate       Deprecate a holiday (admin)

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (engine)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Domain errors map to HTTP statuses in writeDomainError:
  - 400: Validation errors (range, notice, insufficient balance)
  - 401: Missing identity
  - 403: Authorization denied (role or team relationship)
  - 404: Unknown request/holiday
  - 409: Illegal state transition, lost concurrent race
  - 502: External deduction rejected or unreachable
  - 503: Balance system of record unavailable
  Responses carry a retryable hint so clients know whether to try again.

SEE ALSO:
  - dto.go: Request/response data structures
  - identity.go: Acting identity extraction
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nimbus-hr/vacation-engine/vacation"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *vacation.Engine
}

// NewHandler creates a new handler around the engine.
func NewHandler(engine *vacation.Engine) *Handler {
	return &Handler{Engine: engine}
}

// =============================================================================
// REQUEST LIFECYCLE
// =============================================================================

// SubmitRequest creates a PENDING vacation request for the acting employee.
// POST /api/requests
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var body SubmitRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := vacation.ParseDate(body.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
		return
	}
	end, err := vacation.ParseDate(body.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
		return
	}

	actor := actorFrom(r)
	employeeID := vacation.EmployeeID(body.EmployeeID)
	if employeeID == "" {
		employeeID = actor.ID
	}
	req, err := h.Engine.Submit(r.Context(), actor, vacation.SubmitInput{
		EmployeeID: employeeID,
		StartDate:  start,
		EndDate:    end,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRequestDTO(req))
}

// GetRequest returns the decision-support detail for one request.
// GET /api/requests/{id}
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id := vacation.RequestID(chi.URLParam(r, "id"))

	detail, err := h.Engine.Detail(r.Context(), actorFrom(r), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RequestDetailDTO{
		Request:  toRequestDTO(detail.Request),
		Holidays: toHolidayDTOs(detail.Holidays),
		Overlaps: toOverlapDTOs(detail.Overlaps),
	})
}

// ListPendingRequests returns the manager's pending queue, oldest first.
// GET /api/requests/pending
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Engine.PendingQueue(r.Context(), actorFrom(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

// ListApprovedRequests returns the HR processing queue, oldest first.
// GET /api/requests/approved
func (h *Handler) ListApprovedRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Engine.ApprovedQueue(r.Context(), actorFrom(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

// ApproveRequest performs the manager transition PENDING -> APPROVED.
// POST /api/requests/{id}/approve
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

// DenyRequest performs the manager transition PENDING -> DENIED.
// POST /api/requests/{id}/deny
func (h *Handler) DenyRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	id := vacation.RequestID(chi.URLParam(r, "id"))

	var body DecisionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	req, err := h.Engine.Decide(r.Context(), actorFrom(r), vacation.DecideInput{
		RequestID: id,
		Approve:   approve,
		Note:      body.Note,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// ProcessRequestHandler performs the HR transition APPROVED -> PROCESSED,
// including the external balance deduction.
// POST /api/requests/{id}/process
func (h *Handler) ProcessRequestHandler(w http.ResponseWriter, r *http.Request) {
	id := vacation.RequestID(chi.URLParam(r, "id"))

	var body ProcessRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	req, err := h.Engine.Process(r.Context(), actorFrom(r), vacation.ProcessInput{
		RequestID: id,
		HRNote:    body.Note,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// =============================================================================
// BALANCE / PLANNING
// =============================================================================

// ComputeDays previews the chargeable working days for a date range.
// GET /api/compute-days?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handler) ComputeDays(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseRange(w, r)
	if !ok {
		return
	}

	days, err := h.Engine.PreviewDays(r.Context(), start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ComputeDaysDTO{
		StartDate: start.String(),
		EndDate:   end.String(),
		Days:      days,
	})
}

// GetBalance returns the reconciled balance for an employee.
// GET /api/employees/{id}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	employeeID := vacation.EmployeeID(chi.URLParam(r, "id"))

	snap, err := h.Engine.BalanceFor(r.Context(), actorFrom(r), employeeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(employeeID, snap))
}

// GetDashboard returns the employee home view over a date range.
// GET /api/employees/{id}/dashboard?start=...&end=...
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	if vacation.EmployeeID(chi.URLParam(r, "id")) != actor.ID {
		writeError(w, http.StatusForbidden, "Dashboard is only visible to its owner", nil)
		return
	}

	start, end, ok := parseRange(w, r)
	if !ok {
		return
	}

	view, err := h.Engine.Dashboard(r.Context(), actor, start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DashboardDTO{
		Balance:      toBalanceDTO(actor.ID, view.Balance),
		MyRequests:   toRequestDTOs(view.MyRequests),
		TeamRequests: toRequestDTOs(view.TeamRequests),
		Holidays:     toHolidayDTOs(view.Holidays),
	})
}

// GetCalendar returns the shared team calendar over a date range.
// GET /api/calendar?start=...&end=...
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseRange(w, r)
	if !ok {
		return
	}

	view, err := h.Engine.TeamCalendar(r.Context(), actorFrom(r), start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CalendarDTO{
		Requests: toRequestDTOs(view.Requests),
		Holidays: toHolidayDTOs(view.Holidays),
	})
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// ListHolidays returns the imported holidays of a year.
// GET /api/holidays?year=YYYY
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or missing year parameter", err)
		return
	}

	holidays, err := h.Engine.HolidaysForYear(r.Context(), year)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHolidayDTOs(holidays))
}

// ListHolidayYears returns the years that have imported holidays.
// GET /api/holidays/years
func (h *Handler) ListHolidayYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.Engine.ImportedYears(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if years == nil {
		years = []int{}
	}
	writeJSON(w, http.StatusOK, years)
}

// ImportHolidays runs a holiday import for one year.
// POST /api/holidays/import
func (h *Handler) ImportHolidays(w http.ResponseWriter, r *http.Request) {
	var body ImportHolidaysRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Engine.ImportHolidays(r.Context(), actorFrom(r), body.Year)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ImportResultDTO{
		Year:     result.Year,
		Imported: result.Imported,
		Skipped:  result.Skipped,
		Outcome:  result.Outcome,
		Message:  result.Message,
	})
}

// DeprecateHoliday retires a holiday from future computations.
// POST /api/holidays/{id}/deprecate
func (h *Handler) DeprecateHoliday(w http.ResponseWriter, r *http.Request) {
	id := vacation.HolidayID(chi.URLParam(r, "id"))

	var body DeprecateHolidayRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	holiday, err := h.Engine.DeprecateHoliday(r.Context(), actorFrom(r), id, body.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHolidayDTO(*holiday))
}

// =============================================================================
// HELPERS
// =============================================================================

func parseRange(w http.ResponseWriter, r *http.Request) (start, end vacation.Date, ok bool) {
	var err error
	if start, err = vacation.ParseDate(r.URL.Query().Get("start")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start parameter (use YYYY-MM-DD)", err)
		return start, end, false
	}
	if end, err = vacation.ParseDate(r.URL.Query().Get("end")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end parameter (use YYYY-MM-DD)", err)
		return start, end, false
	}
	return start, end, true
}

// writeDomainError maps engine errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case vacation.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, vacation.ErrAuthorizationDenied):
		writeError(w, http.StatusForbidden, "Authorization denied", err)
	case errors.Is(err, vacation.ErrInvalidStateTransition),
		errors.Is(err, vacation.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "Conflicting state change", err)
	case errors.Is(err, vacation.ErrBalanceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Balance system unavailable", err)
	case errors.Is(err, vacation.ErrExternalDeduction):
		writeError(w, http.StatusBadGateway, "External deduction failed", err)
	case vacation.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
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
		resp.Retryable = vacation.IsRetryable(err)
	}
	writeJSON(w, status, resp)
}
