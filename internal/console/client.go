package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dusk-indust/analyst/internal/export"
	"github.com/dusk-indust/analyst/internal/history"
	"github.com/dusk-indust/analyst/internal/orchestrator"
	"github.com/r3labs/sse/v2"
	"gopkg.in/cenkalti/backoff.v1"
)

// Client talks to a running console server.
type Client struct {
	base   string
	http   *http.Client
	stream *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the timeout for request/response calls. Event streams
// are not subject to it.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the *http.Client used for request/response calls.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a client for the console at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: 30 * time.Second},
		stream: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the console.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("console: HTTP %d: %s", e.StatusCode, e.Message)
}

// SubmitQuery asks the console to start a run.
func (c *Client) SubmitQuery(ctx context.Context, text string) (QueryResponse, error) {
	body, err := json.Marshal(QueryRequest{Text: text})
	if err != nil {
		return QueryResponse{}, fmt.Errorf("console: marshal query: %w", err)
	}
	var resp QueryResponse
	err = c.do(ctx, http.MethodPost, "/api/query", bytes.NewReader(body), &resp)
	return resp, err
}

// State returns the console's current snapshot.
func (c *Client) State(ctx context.Context) (orchestrator.Snapshot, error) {
	var snap orchestrator.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/state", nil, &snap)
	return snap, err
}

// ListRuns returns one page of the run history.
func (c *Client) ListRuns(ctx context.Context, req history.ListRequest) (history.ListResponse, error) {
	q := url.Values{}
	if req.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(req.PageSize))
	}
	if req.PageToken != "" {
		q.Set("pageToken", req.PageToken)
	}
	if req.Phase != "" {
		q.Set("phase", string(req.Phase))
	}
	path := "/api/runs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp history.ListResponse
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp, err
}

// GetRun returns one recorded run.
func (c *Client) GetRun(ctx context.Context, id string) (orchestrator.Snapshot, error) {
	var snap orchestrator.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/runs/"+url.PathEscape(id), nil, &snap)
	return snap, err
}

// Export streams the results of run id in the given format to w.
func (c *Client) Export(ctx context.Context, id string, format export.Format, w io.Writer) error {
	path := fmt.Sprintf("/api/runs/%s/results?format=%s", url.PathEscape(id), url.QueryEscape(string(format)))
	resp, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("console: read export: %w", err)
	}
	return nil
}

// Watch follows the event stream and calls fn for every snapshot until fn
// returns false, ctx is done or the server closes the stream. The first
// snapshot is the server's current state. Stopping through fn returns nil.
func (c *Client) Watch(ctx context.Context, fn func(orchestrator.Snapshot) bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := sse.NewClient(c.base + "/api/events")
	client.Connection = c.stream
	client.ReconnectStrategy = &backoff.StopBackOff{}

	var (
		stopped bool
		decErr  error
	)
	err := client.SubscribeWithContext(ctx, "", func(msg *sse.Event) {
		if stopped || len(msg.Data) == 0 {
			return
		}
		var snap orchestrator.Snapshot
		if err := json.Unmarshal(msg.Data, &snap); err != nil {
			decErr = fmt.Errorf("console: decode event: %w", err)
			stopped = true
			cancel()
			return
		}
		if !fn(snap) {
			stopped = true
			cancel()
		}
	})

	switch {
	case decErr != nil:
		return decErr
	case stopped:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case err != nil:
		return fmt.Errorf("console: watch: %w", err)
	}
	return nil
}

// WaitForRun watches the stream until run id reaches a terminal phase and
// returns that snapshot. onUpdate, when non-nil, sees every snapshot of the
// run along the way.
func (c *Client) WaitForRun(ctx context.Context, id string, onUpdate func(orchestrator.Snapshot)) (orchestrator.Snapshot, error) {
	var final orchestrator.Snapshot
	done := false
	err := c.Watch(ctx, func(snap orchestrator.Snapshot) bool {
		if snap.RunID != id {
			return true
		}
		if onUpdate != nil {
			onUpdate(snap)
		}
		if snap.State.Phase.IsTerminal() {
			final, done = snap, true
			return false
		}
		return true
	})
	if err != nil {
		return orchestrator.Snapshot{}, err
	}
	if !done {
		// The stream ended first; the run may have finished in between.
		return c.GetRun(ctx, id)
	}
	return final, nil
}

// Ask submits text and follows the resulting run to its terminal state.
// The event stream is opened before submitting so no transition is missed;
// onUpdate, when non-nil, sees every snapshot of the run. A submission the
// console ignores is returned as *NotAcceptedError.
func (c *Client) Ask(ctx context.Context, text string, onUpdate func(orchestrator.Snapshot)) (orchestrator.Snapshot, error) {
	watchCtx, stop := context.WithCancel(ctx)
	defer stop()

	frames := make(chan orchestrator.Snapshot, 64)
	ready := make(chan struct{})
	watchErr := make(chan error, 1)
	go func() {
		defer close(frames)
		first := true
		watchErr <- c.Watch(watchCtx, func(snap orchestrator.Snapshot) bool {
			if first {
				first = false
				close(ready)
				return true
			}
			select {
			case frames <- snap:
				return true
			case <-watchCtx.Done():
				return false
			}
		})
	}()

	select {
	case <-ready:
	case err := <-watchErr:
		if err == nil {
			err = errors.New("console: event stream closed")
		}
		return orchestrator.Snapshot{}, err
	case <-ctx.Done():
		return orchestrator.Snapshot{}, ctx.Err()
	}

	resp, err := c.SubmitQuery(ctx, text)
	if err != nil {
		return orchestrator.Snapshot{}, err
	}
	if !resp.Accepted {
		return orchestrator.Snapshot{}, &NotAcceptedError{Reason: resp.Reason}
	}

	for snap := range frames {
		if snap.RunID != resp.RunID {
			continue
		}
		if onUpdate != nil {
			onUpdate(snap)
		}
		if snap.State.Phase.IsTerminal() {
			return snap, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return orchestrator.Snapshot{}, err
	}
	// The stream ended before the run did; report what the server recorded.
	return c.GetRun(ctx, resp.RunID)
}

// NotAcceptedError reports a submission the console ignored.
type NotAcceptedError struct {
	Reason string
}

func (e *NotAcceptedError) Error() string {
	return "console: query not accepted: " + e.Reason
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("console: decode %s: %w", path, err)
	}
	return nil
}

// send performs the request and returns the response when its status is
// 2xx. Other statuses are read and returned as *APIError.
func (c *Client) send(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("console: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("console: %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	var er ErrorResponse
	if json.Unmarshal(data, &er) == nil && er.Error != "" {
		apiErr.Message = er.Error
	}
	return nil, apiErr
}
