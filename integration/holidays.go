/*
holidays.go - Public-holiday feed client

PURPOSE:
  Implements vacation.HolidayFeed over the external public-holiday API.
  Unlike the balance client, a failed fetch IS a Go error here: holiday
  import is an explicit admin action whose outcome (success / partial /
  failure) the engine reports, so the caller wants the reason.

SEE ALSO:
  - vacation/holidays.go: import orchestration, year bounds, outcomes
*/
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nimbus-hr/vacation-engine/vacation"
)

const (
	holidayFetchTimeout  = 10 * time.Second
	holidayFetchAttempts = 3
	holidayFetchBackoff  = 2 * time.Second
)

// HolidayFeedClient fetches public holidays for a year from an external feed.
type HolidayFeedClient struct {
	baseURL string
	client  *http.Client
}

// NewHolidayFeedClient creates a client for the feed at baseURL.
func NewHolidayFeedClient(baseURL string) *HolidayFeedClient {
	return &HolidayFeedClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: holidayFetchTimeout},
	}
}

// FetchYear returns the feed's holidays for the given year. Transport
// failures and 5xx responses are retried; the last error is returned
// when all attempts fail.
func (c *HolidayFeedClient) FetchYear(ctx context.Context, year int) ([]vacation.HolidayPayload, error) {
	url := fmt.Sprintf("%s/holidays?year=%d", c.baseURL, year)

	var lastErr error
	for attempt := 0; attempt < holidayFetchAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, holidayFetchBackoff); err != nil {
				return nil, err
			}
		}

		payloads, retryable, err := c.fetch(ctx, url)
		if err == nil {
			return payloads, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, fmt.Errorf("holiday feed failed: %w", lastErr)
}

func (c *HolidayFeedClient) fetch(ctx context.Context, url string) (payloads []vacation.HolidayPayload, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode >= 500, fmt.Errorf("holiday feed returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, true, err
	}
	if err := json.Unmarshal(body, &payloads); err != nil {
		return nil, false, fmt.Errorf("malformed holiday feed response: %w", err)
	}
	return payloads, false, nil
}
