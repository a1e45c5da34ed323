// Package client implements governance.API over the contacts HTTP API.
package client

import (
	"bytes"
	"contacts-backend/internal/api"
	"contacts-backend/internal/governance"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultTimeout = 30 * time.Second

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New returns a client for the API mounted at baseURL, for example
// "http://localhost:8080/api/v1". token is the bearer token of the tenant user.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ governance.API = (*Client)(nil)

func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.send(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) send(ctx context.Context, method, path string, body, result any) error {
	resp, err := c.open(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if result == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &governance.Error{Kind: governance.KindTransient, Err: fmt.Errorf("decoding %s %s response: %w", method, path, err)}
	}
	return nil
}

// open performs the request and returns the response of a 2xx status.
// Any other status is converted with statusError.
func (c *Client) open(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &governance.Error{Kind: governance.KindTransient, Err: fmt.Errorf("executing request: %w", err)}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, statusError(resp)
}

// statusError classifies a failed response by status code and keeps the
// server's message for the user.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var apiErr api.ApiError
	message := ""
	if err := json.Unmarshal(raw, &apiErr); err == nil {
		message = apiErr.Error
	}

	kind := governance.KindTransient
	switch resp.StatusCode {
	case http.StatusBadRequest:
		kind = governance.KindValidation
	case http.StatusForbidden:
		kind = governance.KindNotAllowed
	case http.StatusNotFound:
		kind = governance.KindNotFound
	case http.StatusConflict:
		kind = governance.KindConflict
	}

	return &governance.Error{
		Kind:    kind,
		Message: message,
		Err: &StatusError{
			Method:     resp.Request.Method,
			Path:       resp.Request.URL.Path,
			StatusCode: resp.StatusCode,
		},
	}
}

// StatusError is the transport detail behind a non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// IsUnauthorized reports whether err is a rejected or expired token.
func IsUnauthorized(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized
}
