package tableau

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	dphttp "github.com/ONSdigital/dp-net/v2/http"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

const authHeader = "X-Tableau-Auth"

// APIError is a non-2xx response from the REST API.
type APIError struct {
	Status  int
	Code    string
	Summary string
	Detail  string
	Method  string
	Path    string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.Status)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Summary != "" {
		msg += ": " + e.Summary
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap classifies the response: 401 is an authentication failure, anything
// else a publish failure.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return csv2hyper.ErrAuthenticationFailed
	}
	return csv2hyper.ErrPublishFailed
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sends requests through hc. Its Timeout is replaced when
// WithTimeout is also given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = &dphttp.Client{HTTPClient: hc}
	}
}

// WithTimeout bounds each request, upload parts included. Defaults to
// csv2hyper.DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithAPIVersion pins the REST API version, e.g. "3.19".
func WithAPIVersion(version string) Option {
	return func(c *Client) {
		c.version = version
	}
}

// WithChunkSize sets the upload size above which files are sent in chunks,
// and the chunk size itself.
func WithChunkSize(n int64) Option {
	return func(c *Client) {
		c.chunkSize = n
	}
}

// Client talks to one Tableau Server or Tableau Cloud pod.
// It is not safe for concurrent sign-in; requests after SignIn may be concurrent.
type Client struct {
	server  string
	version string
	http    dphttp.Clienter
	timeout time.Duration

	chunkSize int64

	token  string
	siteID string
	userID string
}

// NewClient creates a client for server (scheme and host, e.g. https://tableau.example.com).
func NewClient(server string, opts ...Option) *Client {
	c := &Client{
		server:    strings.TrimRight(server, "/"),
		timeout:   csv2hyper.DefaultTimeout,
		chunkSize: csv2hyper.UploadChunkSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = dphttp.NewClient()
	}
	c.http.SetTimeout(c.timeout)
	// Upload bodies are streamed once and cannot be replayed.
	c.http.SetMaxRetries(0)
	return c
}

// APIVersion returns the REST API version in use.
func (c *Client) APIVersion() string {
	return c.version
}

// SiteID returns the site id from the last sign-in.
func (c *Client) SiteID() string {
	return c.siteID
}

// SignedIn reports whether the client holds a session token.
func (c *Client) SignedIn() bool {
	return c.token != ""
}

// UseServerVersion asks the server for its newest REST API version and uses it.
// serverinfo is queried through the oldest version that offers it.
func (c *Client) UseServerVersion(ctx context.Context) (string, error) {
	var resp tsResponse
	path := "/api/" + csv2hyper.DefaultAPIVersion + "/serverinfo"
	if err := c.doXML(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", fmt.Errorf("failed to query server version: %w", err)
	}
	if resp.ServerInfo == nil || resp.ServerInfo.RestAPIVersion == "" {
		return "", fmt.Errorf("serverinfo response has no restApiVersion: %w", csv2hyper.ErrPublishFailed)
	}
	c.version = resp.ServerInfo.RestAPIVersion
	return c.version, nil
}

// apiPath joins the versioned API prefix with the given segments.
func (c *Client) apiPath(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return "/api/" + c.version + "/" + strings.Join(escaped, "/")
}

// sitePath is apiPath under the signed-in site.
func (c *Client) sitePath(segments ...string) string {
	return c.apiPath(append([]string{"sites", c.siteID}, segments...)...)
}

// doXML sends an optional XML body and decodes an optional XML response.
func (c *Client) doXML(ctx context.Context, method, path string, body *tsRequest, out *tsResponse) error {
	var r io.Reader
	contentType := ""
	if body != nil {
		buf, err := xml.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		r = bytes.NewReader(buf)
		contentType = "application/xml"
	}
	return c.do(ctx, method, path, nil, contentType, r, out)
}

// do sends one request; a non-empty query is appended to path.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader, out *tsResponse) error {
	u := c.server + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/xml")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set(authHeader, c.token)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, errors.Join(csv2hyper.ErrPublishFailed, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: failed to read response: %w", method, path, errors.Join(csv2hyper.ErrPublishFailed, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Method: method, Path: path}
		var parsed tsResponse
		if xml.Unmarshal(data, &parsed) == nil && parsed.Error != nil {
			apiErr.Code = parsed.Error.Code
			apiErr.Summary = strings.TrimSpace(parsed.Error.Summary)
			apiErr.Detail = strings.TrimSpace(parsed.Error.Detail)
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := xml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, errors.Join(csv2hyper.ErrPublishFailed, err))
	}
	return nil
}
