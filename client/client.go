// Package client is a thin HTTP client for the revenue API. Every method issues exactly one
// request and returns the response as data; a non-2xx status is not an error here; only
// transport failures are.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Logger receives a debug line for every request. *log.Logger from charmbracelet/log
// satisfies it.
type Logger interface {
	Debugf(format string, args ...interface{})
}

type nullLogger struct{}

func (nullLogger) Debugf(string, ...interface{}) {}

// APIClient sends requests to the revenue API with the shared auth header.
type APIClient struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
	logger     Logger
}

func New(baseURL, token string, timeout time.Duration, logger Logger) *APIClient {
	if logger == nil {
		logger = nullLogger{}
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authHeader: "Bearer " + token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// WithLogger returns a client that shares this client's settings but logs to logger.
func (c *APIClient) WithLogger(logger Logger) *APIClient {
	ret := *c
	if logger == nil {
		logger = nullLogger{}
	}
	ret.logger = logger
	return &ret
}

func (c *APIClient) BaseURL() string {
	return c.baseURL
}

// AuthHeader is the value sent in the Authorization header of every request.
func (c *APIClient) AuthHeader() string {
	return c.authHeader
}

// Do sends a single request. body, if not nil, is marshaled as JSON. accept defaults to
// application/json.
func (c *APIClient) Do(
	ctx context.Context,
	method, path string,
	query url.Values,
	body interface{},
	accept string,
) (Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return Response{}, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return Response{}, err
	}
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("accept", accept)
	req.Header.Set("Authorization", c.authHeader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		c.logger.Debugf("%s %s %s", method, target, string(data))
	} else {
		c.logger.Debugf("%s %s", method, target)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response of %s %s: %w", method, path, err)
	}
	c.logger.Debugf("%s %s returned HTTP %d (%d bytes)", method, path, resp.StatusCode, len(respData))
	return Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: respData}, nil
}

// Response is the raw outcome of one request.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Succeeded reports whether the status is 2xx.
func (r Response) Succeeded() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON parses the body. ok is false if the body is not valid JSON.
func (r Response) JSON() (value ldvalue.Value, ok bool) {
	if !json.Valid(r.Body) {
		return ldvalue.Null(), false
	}
	return ldvalue.Parse(r.Body), true
}

// ErrorEnvelope is the {error, status_code} object recorded for an unexpected status.
func (r Response) ErrorEnvelope() ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("error", ldvalue.String(string(r.Body))).
		Set("status_code", ldvalue.Int(r.StatusCode)).
		Build()
}

// Expecting returns the decoded body if the status is the expected one, otherwise the
// error envelope.
func (r Response) Expecting(status int) ldvalue.Value {
	if r.StatusCode == status {
		if v, ok := r.JSON(); ok {
			return v
		}
	}
	return r.ErrorEnvelope()
}

// Lenient returns the decoded body whatever the status, or {text} if it is not JSON.
func (r Response) Lenient() ldvalue.Value {
	if v, ok := r.JSON(); ok {
		return v
	}
	return ldvalue.ObjectBuild().Set("text", ldvalue.String(string(r.Body))).Build()
}
