package netutil

import (
	"fmt"
	"io"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

// Client issues retried HTTP GET requests for the http Lua binding.
type Client struct {
	inner *retryablehttp.Client
}

// NewClient builds a Client with the given retry ceiling and a silenced
// internal logger — scripts get failures back as Go errors, not log
// noise on the supervisor's stderr.
func NewClient(maxRetries int) *Client {
	c := retryablehttp.NewClient()
	c.RetryMax = maxRetries
	c.Logger = nil
	c.HTTPClient.Timeout = 30 * time.Second
	return &Client{inner: c}
}

// Response is the structured shape returned to scripts.
type Response struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
}

// Get fetches url and returns its status code and body as a string.
func (c *Client) Get(url string) (Response, error) {
	resp, err := c.inner.Get(url)
	if err != nil {
		return Response{}, fmt.Errorf("netutil: http get failed: %w", err)
	}
	defer resp.Body.Close()

	const maxBody = 10 << 20 // 10 MiB, a script has no business pulling more
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Response{}, fmt.Errorf("netutil: failed to read response body: %w", err)
	}

	return Response{StatusCode: resp.StatusCode, Body: string(body)}, nil
}
