package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FreeBusyClient talks to the calendar provider's free/busy endpoint. The
// provider returns the busy intervals of a single calendar within a window;
// whether the calendar is reachable at all is part of the response contract
// (404 = calendar not connected, 403 = access revoked).
type FreeBusyClient struct {
	baseURL    string
	httpClient *http.Client
}

type freeBusyRequest struct {
	Participant string    `json:"participant"`
	TimeMin     time.Time `json:"time_min"`
	TimeMax     time.Time `json:"time_max"`
}

type freeBusyResponse struct {
	Busy []BusyInterval `json:"busy"`
}

type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ProviderError distinguishes "this calendar cannot be read" from transport
// failures so the caller can surface a per-participant reason.
type ProviderError struct {
	StatusCode int
	Reason     string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("free/busy provider returned %d: %s", e.StatusCode, e.Reason)
}

func NewFreeBusyClient(baseURL string, timeout time.Duration) *FreeBusyClient {
	return &FreeBusyClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Query fetches the busy intervals for one participant within [timeMin, timeMax).
func (c *FreeBusyClient) Query(ctx context.Context, participant string, timeMin, timeMax time.Time) ([]BusyInterval, error) {
	payload, err := json.Marshal(freeBusyRequest{
		Participant: participant,
		TimeMin:     timeMin,
		TimeMax:     timeMax,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal free/busy request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/freebusy", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create free/busy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("free/busy request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read free/busy response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, &ProviderError{StatusCode: resp.StatusCode, Reason: "calendar not connected"}
	case http.StatusForbidden:
		return nil, &ProviderError{StatusCode: resp.StatusCode, Reason: "calendar access revoked"}
	default:
		return nil, &ProviderError{StatusCode: resp.StatusCode, Reason: "calendar provider error"}
	}

	var decoded freeBusyResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode free/busy response: %w", err)
	}

	return decoded.Busy, nil
}
