// Package gateway is a JSON client of external HTTP services, guarded by a circuit breaker.
//
// Responses with 4xx status are permanent failures (retry.IsPermanent).
// Transport errors, 5xx and an open breaker are transient.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/fairtrace/fairtrace/pkg/utils/retry"
	"github.com/sony/gobreaker"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("service unavailable")

// ErrStatus is a non-2xx response.
type ErrStatus struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *ErrStatus) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

type Client struct {
	name     string
	endpoint string
	token    string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
}

type Option func(*Client) *Client

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) *Client {
		cl.http = c
		return cl
	}
}

// WithBreaker sets when the breaker trips and how long it stays open.
//
// Defaults are 5 consecutive failures and 30 seconds.
func WithBreaker(consecutiveFailures uint32, openFor time.Duration) Option {
	return func(cl *Client) *Client {
		cl.breaker = newBreaker(cl.name, consecutiveFailures, openFor)
		return cl
	}
}

func newBreaker(name string, consecutiveFailures uint32, openFor time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return consecutiveFailures <= counts.ConsecutiveFailures
		},
		// the service has answered. The request was wrong.
		IsSuccessful: func(err error) bool {
			return err == nil || retry.IsPermanent(err)
		},
	})
}

// New creates a client of the service at endpoint.
//
// name identifies the service in errors and breaker. token is sent as a bearer token, if not empty.
func New(name string, endpoint string, token string, options ...Option) *Client {
	cl := &Client{
		name:     name,
		endpoint: strings.TrimSuffix(endpoint, "/"),
		token:    token,
		http:     http.DefaultClient,
	}
	cl.breaker = newBreaker(name, 5, 30*time.Second)
	for _, o := range options {
		cl = o(cl)
	}
	return cl
}

// State of the breaker: "closed", "half-open" or "open".
func (cl *Client) State() string {
	return cl.breaker.State().String()
}

// Do sends body as JSON to the path, and decodes the response into out.
//
// body and out may be nil. header is added to the request.
func (cl *Client) Do(ctx context.Context, method string, path string, header http.Header, body any, out any) error {
	_, err := cl.breaker.Execute(func() (interface{}, error) {
		return nil, cl.do(ctx, method, path, header, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, cl.name, err)
	}
	return err
}

func (cl *Client) do(ctx context.Context, method string, path string, header http.Header, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return retry.Permanent(xe.Wrap(err))
		}
		reader = bytes.NewReader(buf)
	}

	url := cl.endpoint + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return retry.Permanent(xe.Wrap(err))
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}

	resp, err := cl.http.Do(req)
	if err != nil {
		return xe.WrapWithNote(cl.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || 300 <= resp.StatusCode {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		errStatus := &ErrStatus{
			Method: method, URL: url, Status: resp.StatusCode,
			Body: strings.TrimSpace(string(msg)),
		}
		if 400 <= resp.StatusCode && resp.StatusCode < 500 &&
			resp.StatusCode != http.StatusRequestTimeout &&
			resp.StatusCode != http.StatusTooManyRequests {
			return retry.Permanent(errStatus)
		}
		return errStatus
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return xe.WrapWithNote(cl.name+": malformed response", err)
	}
	return nil
}
