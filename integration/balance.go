/*
Package integration holds HTTP clients for the external systems the engine
depends on: the balance system of record and the public-holiday feed.

PURPOSE:
  The balance service is the single system of record for official vacation
  balances. It is also known to be unreliable, so every call here is
  wrapped in bounded retries with backoff, and unavailability is reported
  as a value (vacation.BalanceResult / vacation.DeductionResult), never as
  a Go error. The engine decides what unavailability means per operation
  (fail-closed on submission, request stays APPROVED on processing).

KEY BEHAVIORS:
  - OfficialBalance: GET with retries; exhausted retries -> Unavailable
  - Deduct: POST with retries; the Idempotency-Key header carries the
    request id, so a retry after a lost response cannot double-deduct

SEE ALSO:
  - vacation/balance.go: BalanceProvider contract and reconciliation
  - integration/holidays.go: the holiday feed client
*/
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nimbus-hr/vacation-engine/vacation"
)

const (
	balanceCallTimeout = 3 * time.Second
	maxResponseBytes   = 1 << 20
)

// Retry schedules: delay before each attempt, in seconds. Reads tolerate
// one more attempt than deductions because deductions hold a request lock.
var (
	balanceBackoff   = []time.Duration{0, 1 * time.Second, 2 * time.Second, 4 * time.Second}
	deductionBackoff = []time.Duration{0, 1 * time.Second, 2 * time.Second}
)

// BalanceClient implements vacation.BalanceProvider against the external
// balance service.
type BalanceClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewBalanceClient creates a client for the balance service at baseURL.
// token is sent as a bearer token when non-empty.
func NewBalanceClient(baseURL, token string) *BalanceClient {
	return &BalanceClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: balanceCallTimeout},
	}
}

type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

type deductionRequest struct {
	EmployeeID string `json:"employeeId"`
	Days       int    `json:"days"`
}

type deductionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// OfficialBalance reads the employee's official balance. Unreachability,
// non-2xx responses and malformed bodies all collapse to Unavailable.
func (c *BalanceClient) OfficialBalance(ctx context.Context, employeeID vacation.EmployeeID) vacation.BalanceResult {
	url := fmt.Sprintf("%s/balances/%s", c.baseURL, employeeID)

	var lastErr error
	for _, delay := range balanceBackoff {
		if err := sleepCtx(ctx, delay); err != nil {
			return vacation.UnavailableBalance("balance lookup canceled")
		}

		body, err := c.get(ctx, url, employeeID)
		if err != nil {
			lastErr = err
			continue
		}

		var parsed balanceResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			lastErr = fmt.Errorf("malformed balance response: %w", err)
			continue
		}
		return vacation.AvailableBalance(parsed.Balance)
	}

	return vacation.UnavailableBalance(fmt.Sprintf("balance service unavailable: %v", lastErr))
}

// Deduct removes days from the official balance. The request id rides in
// both the Idempotency-Key and X-Request-Id headers so the remote side can
// deduplicate retried calls.
func (c *BalanceClient) Deduct(ctx context.Context, employeeID vacation.EmployeeID, days int, requestID vacation.RequestID) vacation.DeductionResult {
	url := c.baseURL + "/deductions"
	payload, err := json.Marshal(deductionRequest{
		EmployeeID: string(employeeID),
		Days:       days,
	})
	if err != nil {
		return vacation.DeductionResult{Message: "failed to encode deduction: " + err.Error()}
	}

	var lastErr error
	for _, delay := range deductionBackoff {
		if err := sleepCtx(ctx, delay); err != nil {
			return vacation.DeductionResult{Unavailable: true, Message: "deduction canceled"}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return vacation.DeductionResult{Message: "failed to build deduction request: " + err.Error()}
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", string(requestID))
		req.Header.Set("X-Request-Id", string(requestID))
		c.authorize(req)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		switch {
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("deduction returned %s", resp.Status)
			continue
		case resp.StatusCode >= 400:
			// A definitive rejection. Retrying cannot change the answer.
			return vacation.DeductionResult{Message: rejectionMessage(body, resp.Status)}
		}

		var parsed deductionResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			lastErr = fmt.Errorf("malformed deduction response: %w", err)
			continue
		}
		return vacation.DeductionResult{Success: parsed.Success, Message: parsed.Message}
	}

	return vacation.DeductionResult{
		Unavailable: true,
		Message:     fmt.Sprintf("deduction service unavailable: %v", lastErr),
	}
}

func (c *BalanceClient) get(ctx context.Context, url string, employeeID vacation.EmployeeID) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-User-Id", string(employeeID))
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("balance service returned %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}

func (c *BalanceClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func rejectionMessage(body []byte, status string) string {
	var parsed deductionResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	return "deduction rejected: " + status
}

// sleepCtx waits for delay or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
