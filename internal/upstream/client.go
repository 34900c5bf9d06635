// Package upstream talks to the PKI authority that performs the actual
// certificate validation and issuance for delegated hostnames.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Resource is the authority's view of a delegated hostname.
type Resource struct {
	ID       string `json:"id"`
	Hostname string `json:"hostname"`
	Status   string `json:"status"`
	SSL      SSL    `json:"ssl"`
}

// SSL is the certificate sub-resource of a hostname.
type SSL struct {
	Status           string     `json:"status"`
	ValidationErrors []string   `json:"validation_errors,omitempty"`
	IssuedAt         *time.Time `json:"issued_at,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
}

// Client is the contract the orchestrator needs from the authority.
type Client interface {
	Create(ctx context.Context, hostname string) (*Resource, error)
	Get(ctx context.Context, id string) (*Resource, error)
	Recheck(ctx context.Context, id string) (*Resource, error)
	Delete(ctx context.Context, id string) error
}

// ErrNotFound matches any *Error with HTTP status 404.
var ErrNotFound = errors.New("upstream resource not found")

// Error is a non-2xx response from the authority. Transient reports whether
// retrying may help (5xx and transport failures).
type Error struct {
	Op         string
	StatusCode int
	Body       string
	Transient  bool
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("upstream %s: %s", e.Op, e.Body)
	}
	return fmt.Sprintf("upstream %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// IsTransient reports whether err is an upstream failure worth retrying
// (network error, timeout, or 5xx).
func IsTransient(err error) bool {
	var ue *Error
	return errors.As(err, &ue) && ue.Transient
}

// HTTPClient is the production Client backed by the authority's REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Create(ctx context.Context, hostname string) (*Resource, error) {
	payload := map[string]any{"hostname": hostname}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal create hostname: %w", err)
	}
	return c.doResource(ctx, "create", http.MethodPost, "/hostnames", body)
}

func (c *HTTPClient) Get(ctx context.Context, id string) (*Resource, error) {
	return c.doResource(ctx, "get", http.MethodGet, "/hostnames/"+id, nil)
}

// Recheck forces the authority to re-run validation for the hostname and
// returns the refreshed snapshot.
func (c *HTTPClient) Recheck(ctx context.Context, id string) (*Resource, error) {
	return c.doResource(ctx, "recheck", http.MethodPost, "/hostnames/"+id+"/recheck", nil)
}

func (c *HTTPClient) Delete(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/hostnames/"+id, nil)
	if err != nil {
		return &Error{Op: "delete", Body: err.Error(), Transient: true}
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return c.statusError("delete", resp)
}

func (c *HTTPClient) doResource(ctx context.Context, op, method, path string, body []byte) (*Resource, error) {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return nil, &Error{Op: op, Body: err.Error(), Transient: true}
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.statusError(op, resp)
	}

	var res Resource
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", op, err)
	}
	return &res, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

func (c *HTTPClient) statusError(op string, resp *http.Response) error {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &Error{
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
		Transient:  resp.StatusCode >= 500,
	}
}
