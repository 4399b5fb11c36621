// Package httpclient provides a small JSON REST client with
// personal-access-token authentication and request/response logging.
package httpclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"digital.vasic.harness/pkg/logging"
)

// ContentTypeJSON is the default request content type.
const ContentTypeJSON = "application/json"

// ContentTypeJSONPatch is used for JSON Patch documents.
const ContentTypeJSONPatch = "application/json-patch+json"

const bodyPreviewLimit = 512

// StatusError is returned for any non-2xx response. It keeps the
// diagnostic detail the remote side exposed.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf(
		"%s %s returned HTTP %d (%s): %s",
		e.Method, e.URL, e.StatusCode, e.Status, e.Body,
	)
}

// ClientOption configures an APIClient via functional options.
type ClientOption func(*APIClient)

// APIClient wraps net/http.Client with Basic personal-access-token
// authentication for calling REST APIs.
type APIClient struct {
	baseURL    string
	authHeader string
	logger     logging.Logger
	httpClient *http.Client
}

// NewAPIClient creates an API client targeting the given base URL.
// Relative paths passed to the request methods are joined to it.
func NewAPIClient(baseURL string, opts ...ClientOption) *APIClient {
	c := &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logging.NullLogger{},
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BasicToken builds the Authorization value for a token used with
// an empty user name.
func BasicToken(token string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(":" + token))
}

// WithBasicToken authenticates every request with the given token.
func WithBasicToken(token string) ClientOption {
	return func(c *APIClient) {
		if token != "" {
			c.authHeader = BasicToken(token)
		}
	}
}

// WithTimeout overrides the default HTTP client timeout. Zero
// leaves only the caller's context in charge.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *APIClient) { c.httpClient.Timeout = d }
}

// WithLogger sets the logger used for request/response records.
func WithLogger(l logging.Logger) ClientOption {
	return func(c *APIClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *APIClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// BaseURL returns the configured base URL.
func (c *APIClient) BaseURL() string {
	return c.baseURL
}

func (c *APIClient) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Do sends a request and returns the status code and raw body.
// Non-2xx responses yield a *StatusError alongside the body.
func (c *APIClient) Do(
	ctx context.Context, method, path, contentType string, body []byte,
) (int, []byte, error) {
	url := c.resolve(path)
	req, err := http.NewRequestWithContext(
		ctx, method, url, bytes.NewReader(body),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		if contentType == "" {
			contentType = ContentTypeJSON
		}
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", ContentTypeJSON)
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}

	requestID := uuid.NewString()
	headers := make(map[string]string, len(req.Header))
	for k := range req.Header {
		headers[k] = req.Header.Get(k)
	}
	c.logger.LogAPIRequest(logging.APIRequestLog{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		RequestID:  requestID,
		Method:     method,
		URL:        url,
		Headers:    headers,
		BodyLength: len(body),
	})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}

	preview := string(data)
	if len(preview) > bodyPreviewLimit {
		preview = preview[:bodyPreviewLimit]
	}
	c.logger.LogAPIResponse(logging.APIResponseLog{
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		RequestID:      requestID,
		StatusCode:     resp.StatusCode,
		BodyPreview:    preview,
		BodyLength:     len(data),
		ResponseTimeMs: time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, data, &StatusError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       string(data),
		}
	}
	return resp.StatusCode, data, nil
}

// GetJSON performs a GET and decodes the JSON response into out.
func (c *APIClient) GetJSON(
	ctx context.Context, path string, out any,
) (int, error) {
	status, data, err := c.Do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return status, err
	}
	return status, decode(data, out)
}

// SendJSON encodes in as the request body, sends it with the given
// method and decodes the response into out when out is non-nil.
func (c *APIClient) SendJSON(
	ctx context.Context, method, path, contentType string, in, out any,
) (int, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}
	status, data, err := c.Do(ctx, method, path, contentType, payload)
	if err != nil {
		return status, err
	}
	return status, decode(data, out)
}

func decode(data []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
