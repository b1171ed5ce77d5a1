// Package datatracker provides an HTTP client for the IETF Datatracker API
// and the NomCom private feedback pages.
package datatracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/nomcom-feedback/internal/logger"
)

// DefaultBaseURL is the public Datatracker instance
const DefaultBaseURL = "https://datatracker.ietf.org"

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; NomComFeedback/1.0)"

// SessionCookie is the name of the Datatracker session cookie
const SessionCookie = "sessionid"

// Error represents a failed Datatracker request.
type Error struct {
	URL        string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("datatracker error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("datatracker error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the client.
type Options struct {
	BaseURL    string
	NomcomID   string
	NomcomYear string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
	Logger     logger.Logger
}

// DefaultOptions returns sensible defaults for the public Datatracker.
func DefaultOptions() *Options {
	return &Options{
		BaseURL:   DefaultBaseURL,
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

// Client talks to one Datatracker instance on behalf of one NomCom.
type Client struct {
	baseURL    string
	nomcomID   string
	nomcomYear string
	userAgent  string
	http       *http.Client
	log        logger.Logger
}

// New creates a Client. A nil opts uses DefaultOptions.
func New(opts *Options) *Client {
	if opts == nil {
		opts = DefaultOptions()
	}
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		nomcomID:   opts.NomcomID,
		nomcomYear: opts.NomcomYear,
		userAgent:  ua,
		http:       httpClient,
		log:        log,
	}
}

// BaseURL returns the base URL requests are sent to
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) buildURL(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// get performs a GET and returns the body. Any status other than 200 is an error.
func (c *Client) get(ctx context.Context, urlStr string, cookies ...*http.Cookie) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{URL: urlStr, StatusCode: resp.StatusCode, Message: "failed to read response body", Cause: err}
	}

	c.log.Debug("datatracker request",
		logger.String("url", urlStr),
		logger.Int("status", resp.StatusCode),
		logger.Int("bytes", len(body)),
		logger.Any("duration", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			URL:        urlStr,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP status %d", resp.StatusCode),
		}
	}
	return body, nil
}

// getJSON performs a GET on an API path and decodes the JSON body into v.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	urlStr := c.buildURL(path, query)
	body, err := c.get(ctx, urlStr)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &Error{URL: urlStr, StatusCode: http.StatusOK, Message: "failed to decode JSON", Cause: err}
	}
	return nil
}
