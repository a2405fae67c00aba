// Package eventsource fetches status-change logs from the remote API.
package eventsource

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"uptimeline/internal/models"
)

const (
	// MaxRecords mirrors the server-side safety bound per request.
	MaxRecords = 1000

	defaultTimeout = 10 * time.Second
	maxAttempts    = 3
	retryBackoff   = 500 * time.Millisecond
)

// Client talks to the status-log API for one deployment.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	backoff time.Duration
}

// NewClient builds a client for the given base URL. token may be empty.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Transport: transport, Timeout: timeout},
		backoff: retryBackoff,
	}
}

// Fetch retrieves the status events for one device over a window. Records
// are validated as they decode; any malformed record fails the fetch.
// Transport errors and 5xx responses are retried with backoff, 4xx are
// not.
func (c *Client) Fetch(ctx context.Context, deviceID string, window models.Window) ([]models.StatusEvent, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("start", window.Start.UTC().Format(time.RFC3339))
	query.Set("end", window.End.UTC().Format(time.RFC3339))
	query.Set("limit", strconv.Itoa(MaxRecords))
	endpoint := fmt.Sprintf("%s/devices/%s/status-log?%s", c.baseURL, url.PathEscape(deviceID), query.Encode())

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}

		events, retryable, err := c.fetchOnce(ctx, endpoint)
		if err == nil {
			return events, nil
		}
		if !retryable {
			return nil, fmt.Errorf("fetch status log for %s: %w", deviceID, err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("fetch status log for %s: %w", deviceID, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, endpoint string) ([]models.StatusEvent, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, true, fmt.Errorf("event source returned %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("event source returned %s", resp.Status)
	}

	var events []models.StatusEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, false, fmt.Errorf("decode status log: %w", err)
	}
	if len(events) > MaxRecords {
		events = events[:MaxRecords]
	}
	return events, false, nil
}
