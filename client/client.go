// Package client provides a Go client for a remote BlankLogo management
// API.
//
// Usage:
//
//	c := client.New("https://jobs.example.com")
//
//	// Submit a job.
//	j, err := c.SubmitJob(ctx, client.SubmitJobRequest{
//	    SourceURL: "https://cdn.example.com/video.mp4",
//	    Mode:      "auto",
//	})
//
//	// Poll until it reaches a terminal status.
//	j, err = c.GetJob(ctx, j.ID)
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/IsaiahDupree/BlankLogo-sub004/api"
	"github.com/IsaiahDupree/BlankLogo-sub004/id"
	"github.com/IsaiahDupree/BlankLogo-sub004/job"
)

// SubmitJobRequest mirrors the POST /v1/jobs body.
type SubmitJobRequest = api.SubmitJobRequest

// Client talks to a remote BlankLogo management API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitJob enqueues a new watermark-removal job.
func (c *Client) SubmitJob(ctx context.Context, req SubmitJobRequest) (*job.Job, error) {
	var j job.Job
	if err := c.do(ctx, http.MethodPost, "/v1/jobs", req, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// GetJob retrieves a job by ID.
func (c *Client) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	var j job.Job
	if err := c.do(ctx, http.MethodGet, "/v1/jobs/"+jobID.String(), nil, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// ListEvents returns a job's event log in append order.
func (c *Client) ListEvents(ctx context.Context, jobID id.JobID) ([]*job.Event, error) {
	var events []*job.Event
	if err := c.do(ctx, http.MethodGet, "/v1/jobs/"+jobID.String()+"/events", nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CancelJob cancels a queued job.
func (c *Client) CancelJob(ctx context.Context, jobID id.JobID) error {
	return c.do(ctx, http.MethodPost, "/v1/jobs/"+jobID.String()+"/cancel", nil, nil)
}

// Stats returns job counts per status.
func (c *Client) Stats(ctx context.Context) (*api.JobCountsResponse, error) {
	var counts api.JobCountsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/stats", nil, &counts); err != nil {
		return nil, err
	}
	return &counts, nil
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("blanklogo/client: %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("blanklogo/client: marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("blanklogo/client: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("blanklogo/client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr != nil {
			apiErr.Error = resp.Status
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("blanklogo/client: decode response: %w", err)
	}
	return nil
}
