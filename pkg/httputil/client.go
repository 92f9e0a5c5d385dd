package httputil

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/matzehuels/dynsvg/pkg/buildinfo"
	apperrors "github.com/matzehuels/dynsvg/pkg/errors"
	"github.com/matzehuels/dynsvg/pkg/observability"
)

// MaxBodySize caps the size of a fetched document.
const MaxBodySize = 32 << 20

// Client fetches documents over HTTP with retries.
type Client struct {
	// HTTP is the underlying client. Nil uses a client with a 30s timeout.
	HTTP *http.Client
	// UserAgent defaults to "dynsvg/<version>".
	UserAgent string
	// Attempts defaults to 3.
	Attempts int
	// Delay is the first backoff interval and defaults to one second.
	Delay time.Duration
}

// maxDelay caps the backoff between attempts.
const maxDelay = 10 * time.Second

// NewClient returns a client with the given request timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

// Get fetches rawURL and returns the response body.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid url %q", rawURL)
	}
	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	attempts, delay := c.Attempts, c.Delay
	if attempts <= 0 {
		attempts = 3
	}
	if delay <= 0 {
		delay = time.Second
	}

	var body []byte
	err = Backoff{Attempts: attempts, Delay: delay, MaxDelay: maxDelay}.Retry(ctx, func() error {
		b, err := c.do(ctx, client, u)
		body = b
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, client *http.Client, u *url.URL) ([]byte, error) {
	hooks := observability.HTTP()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	ua := c.UserAgent
	if ua == "" {
		ua = "dynsvg/" + buildinfo.Get().Version
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "image/svg+xml, application/xml;q=0.9, */*;q=0.5")

	hooks.OnRequest(ctx, req.Method, u.Host, u.Path)
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, u.Host, u.Path, err)
		if ctx.Err() != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeTimeout, err, "fetch %s", u)
		}
		return nil, Retryable(apperrors.Wrap(apperrors.ErrCodeNetwork, err, "fetch %s", u))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, u.Host, u.Path, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "%s: not found", u)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, Retryable(apperrors.New(apperrors.ErrCodeNetwork, "%s: %s", u, resp.Status))
	case resp.StatusCode >= 400:
		return nil, apperrors.New(apperrors.ErrCodeNetwork, "%s: %s", u, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, Retryable(apperrors.Wrap(apperrors.ErrCodeNetwork, err, "read %s", u))
	}
	if len(body) > MaxBodySize {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "%s: body exceeds %d bytes", u, MaxBodySize)
	}
	return body, nil
}

