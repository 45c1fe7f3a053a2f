// Package upstream is the HTTP client of the point-set manager.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/triangulator/internal/logging"
	"github.com/aretw0/triangulator/pkg/domain"
	"github.com/aretw0/triangulator/pkg/ports"
	"github.com/aretw0/triangulator/pkg/wire"
	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultTimeout         = 10 * time.Second
	DefaultRetries         = 2
	DefaultInitialInterval = 100 * time.Millisecond
	// DefaultMaxBodyBytes bounds the payload read from the manager.
	DefaultMaxBodyBytes = 256 << 20
)

// Client implements ports.PointSetSource over HTTP: GET {base}/pointsets/{id}.
type Client struct {
	baseURL         *url.URL
	http            *http.Client
	timeout         time.Duration
	retries         uint64
	initialInterval time.Duration
	maxBodyBytes    int64
	logger          *slog.Logger
}

var _ ports.PointSetSource = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithTimeout bounds each fetch, retries included.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRetries sets how many times a transient failure is retried.
func WithRetries(n uint64) Option {
	return func(c *Client) {
		c.retries = n
	}
}

// WithInitialInterval sets the first backoff delay.
func WithInitialInterval(d time.Duration) Option {
	return func(c *Client) {
		c.initialInterval = d
	}
}

// WithMaxBodyBytes bounds the accepted payload size.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		c.maxBodyBytes = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for the manager at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream base url %q", baseURL)
	}
	c := &Client{
		baseURL:         u,
		http:            &http.Client{},
		timeout:         DefaultTimeout,
		retries:         DefaultRetries,
		initialInterval: DefaultInitialInterval,
		maxBodyBytes:    DefaultMaxBodyBytes,
		logger:          logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) endpoint(id string) string {
	return c.baseURL.JoinPath("pointsets", id).String()
}

// FetchPointSet downloads and decodes a point set. Connection failures and
// 5xx answers are retried with exponential backoff inside the timeout.
func (c *Client) FetchPointSet(ctx context.Context, id string) (domain.PointSet, error) {
	fetchCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	policy := backoff.NewExponentialBackOff(backoff.WithInitialInterval(c.initialInterval))
	attempt := 0
	op := func() ([]domain.Point, error) {
		attempt++
		points, err := c.fetchOnce(fetchCtx, id)
		if err != nil && !isPermanent(err) {
			c.logger.Debug("upstream fetch failed, will retry", "point_set_id", id, "attempt", attempt, "error", err)
		}
		return points, err
	}

	points, err := backoff.RetryWithData(op, backoff.WithContext(backoff.WithMaxRetries(policy, c.retries), fetchCtx))
	if err != nil {
		return domain.PointSet{}, c.classify(ctx, fetchCtx, id, err)
	}
	return domain.PointSet{ID: id, Points: points}, nil
}

func isPermanent(err error) bool {
	var p *backoff.PermanentError
	return errors.As(err, &p)
}

// classify maps a failed fetch onto the domain taxonomy.
func (c *Client) classify(parent, fetchCtx context.Context, id string, err error) error {
	switch {
	case errors.Is(err, domain.ErrPointSetNotFound):
		return err
	case parent.Err() != nil && !errors.Is(parent.Err(), context.DeadlineExceeded):
		return parent.Err()
	case errors.Is(fetchCtx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		c.logger.Warn("upstream fetch timed out", "point_set_id", id, "timeout", c.timeout)
		return fmt.Errorf("%w: point set %s after %v", domain.ErrUpstreamTimeout, id, c.timeout)
	case errors.Is(err, domain.ErrUpstream):
		c.logger.Warn("upstream fetch failed", "point_set_id", id, "error", err)
		return err
	default:
		c.logger.Warn("upstream fetch failed", "point_set_id", id, "error", err)
		return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
}

func (c *Client) fetchOnce(ctx context.Context, id string) ([]domain.Point, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(id), nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: build request: %v", domain.ErrUpstream, err))
	}
	req.Header.Set("Accept", wire.ContentType)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", domain.ErrPointSetNotFound, id))
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: point set %s: status %d", domain.ErrUpstream, id, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, backoff.Permanent(fmt.Errorf("%w: point set %s: status %d", domain.ErrUpstream, id, resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, backoff.Permanent(fmt.Errorf("%w: point set %s: reading body: %v", domain.ErrUpstream, id, err))
	}
	if int64(len(data)) > c.maxBodyBytes {
		return nil, backoff.Permanent(fmt.Errorf("%w: point set %s: body exceeds %d bytes", domain.ErrUpstream, id, c.maxBodyBytes))
	}

	points, err := wire.DecodePointSet(data)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: point set %s: %v", domain.ErrUpstream, id, err))
	}
	return points, nil
}
