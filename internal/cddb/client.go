package cddb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Fetcher performs the two CDDB round trips.
type Fetcher interface {
	Query(ctx context.Context, query string) (string, error)
	Read(ctx context.Context, token string) (string, error)
}

// Client talks to a CDDB-over-HTTP server.
type Client struct {
	baseURL    string
	hello      string
	httpClient *http.Client
}

var _ Fetcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// New creates a CDDB client. hello is the "user+host+client+version" greeting.
func New(baseURL, hello string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("cddb base url required")
	}
	hello = strings.TrimSpace(hello)
	if hello == "" {
		return nil, errors.New("cddb hello string required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		hello:      strings.ReplaceAll(hello, " ", "+"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Query sends "cddb query" for the given query string.
func (c *Client) Query(ctx context.Context, query string) (string, error) {
	return c.get(ctx, "cddb+query+"+query)
}

// Read sends "cddb read" for a "genre+discid" token.
func (c *Client) Read(ctx context.Context, token string) (string, error) {
	return c.get(ctx, "cddb+read+"+token)
}

// get issues the request. The CDDB protocol uses '+' as the argument
// separator, so the query string is assembled verbatim rather than through
// url.Values, which would escape it.
func (c *Client) get(ctx context.Context, cmd string) (string, error) {
	endpoint := fmt.Sprintf("%s/~cddb/cddb.cgi?cmd=%s&hello=%s&proto=6", c.baseURL, cmd, c.hello)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return "", fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cddb server returned %d (latency=%v)", resp.StatusCode, latency)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read cddb response: %w", err)
	}
	return string(body), nil
}
