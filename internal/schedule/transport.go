// Package schedule fetches and decodes the irrigation schedule served by the
// scheduling host.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"
)

const maxBodyBytes = 64 << 10

// ErrStatus marks a response whose status code was not 200.
var ErrStatus = errors.New("unexpected status")

// HTTPTransport issues GET requests against a fixed host and port.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

func NewHTTPTransport(host string, port int, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		baseURL: "http://" + net.JoinHostPort(host, strconv.Itoa(port)),
		client:  &http.Client{Timeout: timeout},
	}
}

// Get returns the status code and body of GET path. Transport failures
// return a non-nil error and a zero status.
func (t *HTTPTransport) Get(ctx context.Context, path string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to fetch schedule: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read schedule body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// URL is the full address polled for path.
func (t *HTTPTransport) URL(path string) string {
	return t.baseURL + path
}
