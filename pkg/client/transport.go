package client

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

	"github.com/aretw0/graphlab/pkg/domain"
)

// Transport delivers one step request and returns its event.
type Transport interface {
	Step(ctx context.Context, sessionID string) (domain.Event, error)
	Close() error
}

// Journal is implemented by transports that can replay a session's events.
type Journal interface {
	Events(ctx context.Context, sessionID string, after int64) ([]domain.Event, error)
}

// errorBody is the error envelope of both server transports.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// asError maps a server error envelope back to the domain sentinel.
func (b errorBody) asError() error {
	var sentinel error
	switch b.Code {
	case "invalid_input":
		sentinel = domain.ErrInvalidInput
	case "session_not_found":
		sentinel = domain.ErrSessionNotFound
	case "session_ended":
		sentinel = domain.ErrSessionEnded
	case "step_in_flight":
		sentinel = domain.ErrStepInFlight
	case "invalid_state":
		sentinel = domain.ErrInvalidState
	default:
		return fmt.Errorf("server error: %s", b.Error)
	}
	return fmt.Errorf("%w (server: %s)", sentinel, b.Error)
}

// HTTPTransport talks to the call/response endpoints.
// Network failures are reported as domain.ErrTransport.
type HTTPTransport struct {
	base   string
	client *http.Client
}

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		t.client = c
	}
}

// NewHTTPTransport creates a transport for the server at baseURL.
func NewHTTPTransport(baseURL string, opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CreateRequest is the graph and options of a new session.
type CreateRequest struct {
	Graph     domain.Graph
	Algorithm domain.Algorithm
	Start     domain.NodeID
}

// Create starts a session and returns its id.
func (t *HTTPTransport) Create(ctx context.Context, req CreateRequest) (string, error) {
	q := url.Values{}
	if req.Algorithm != "" {
		q.Set("algo", string(req.Algorithm))
	}
	if req.Start != "" {
		q.Set("start", string(req.Start))
	}
	path := "/sessions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := t.do(ctx, http.MethodPost, path, req.Graph, &out); err != nil {
		return "", err
	}
	return out.SessionID, nil
}

// Step requests one event.
func (t *HTTPTransport) Step(ctx context.Context, sessionID string) (domain.Event, error) {
	var raw json.RawMessage
	if err := t.do(ctx, http.MethodPost, "/sessions/"+url.PathEscape(sessionID)+"/step", nil, &raw); err != nil {
		return domain.Event{}, err
	}
	return DecodeEvent(raw)
}

// Events fetches the journal after seq.
func (t *HTTPTransport) Events(ctx context.Context, sessionID string, after int64) ([]domain.Event, error) {
	var events []domain.Event
	path := "/sessions/" + url.PathEscape(sessionID) + "/events?after=" + strconv.FormatInt(after, 10)
	if err := t.do(ctx, http.MethodGet, path, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Get fetches the session description.
func (t *HTTPTransport) Get(ctx context.Context, sessionID string) (*domain.SessionInfo, error) {
	var info domain.SessionInfo
	if err := t.do(ctx, http.MethodGet, "/sessions/"+url.PathEscape(sessionID), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// List returns the server's session ids.
func (t *HTTPTransport) List(ctx context.Context) ([]string, error) {
	var ids []string
	if err := t.do(ctx, http.MethodGet, "/sessions", nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// Delete tears a session down.
func (t *HTTPTransport) Delete(ctx context.Context, sessionID string) error {
	return t.do(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(sessionID), nil, nil)
}

// Close releases idle connections.
func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

func (t *HTTPTransport) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrTransport, err)
	}

	if resp.StatusCode >= 300 {
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil && eb.Error != "" {
			return eb.asError()
		}
		return fmt.Errorf("%w: unexpected status %d", domain.ErrTransport, resp.StatusCode)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	return nil
}

// isTransportFailure reports whether err calls for switching transports.
// A malformed payload is dropped instead.
func isTransportFailure(err error) bool {
	return errors.Is(err, domain.ErrTransport) && !errors.Is(err, domain.ErrMalformedEvent)
}
