// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package pool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/juju/errors"
	"golang.org/x/time/rate"
)

// Unbounded is the wire value of valid-till for flags that never lapse.
const Unbounded int64 = -1

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// Config holds the settings of a Client.
type Config struct {
	// Pools maps pool names to the base URL of their sticky flag API.
	Pools map[string]string

	// HTTPClient is used for every request. It defaults to a client with
	// no timeout, requests are bounded by their context.
	HTTPClient *http.Client

	// RateLimit is the number of requests per second sent to each pool.
	// Zero means no limit.
	RateLimit float64

	// Burst is the number of requests that may exceed RateLimit at once.
	Burst int
}

// Validate returns an error if the config cannot be used to create a
// Client.
func (c Config) Validate() error {
	if len(c.Pools) == 0 {
		return errors.NotValidf("empty Pools")
	}
	for name, base := range c.Pools {
		if name == "" {
			return errors.NotValidf("empty pool name")
		}
		u, err := url.Parse(base)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.NotValidf("pool %q url %q", name, base)
		}
	}
	if c.RateLimit < 0 {
		return errors.NotValidf("negative RateLimit")
	}
	if c.RateLimit > 0 && c.Burst <= 0 {
		return errors.NotValidf("non-positive Burst")
	}
	return nil
}

type endpoint struct {
	url     string
	limiter *rate.Limiter
}

// Client sets and clears sticky flags on pools over HTTP.
type Client struct {
	http  *http.Client
	pools map[string]endpoint
}

// NewClient returns a Client for the config.
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}

	hc := config.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	pools := make(map[string]endpoint, len(config.Pools))
	for name, base := range config.Pools {
		limit := rate.Inf
		if config.RateLimit > 0 {
			limit = rate.Limit(config.RateLimit)
		}
		pools[name] = endpoint{
			url:     strings.TrimRight(base, "/") + "/v1/sticky",
			limiter: rate.NewLimiter(limit, config.Burst),
		}
	}
	return &Client{http: hc, pools: pools}, nil
}

// StickyRequest is the body sent to a pool.
type StickyRequest struct {
	FileID string `json:"file-id"`
	On     bool   `json:"on"`
	Owner  string `json:"owner"`

	// ValidTill is in unix milliseconds, Unbounded for flags that never
	// lapse.
	ValidTill int64 `json:"valid-till"`
}

// RejectedError is returned when a pool answers with a non 2xx status.
type RejectedError struct {
	Pool string
	Code int
	Body string
}

// Error implements error.
func (e *RejectedError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("pool %s rejected request: %d %s", e.Pool, e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("pool %s rejected request: %d %s: %s", e.Pool, e.Code, http.StatusText(e.Code), e.Body)
}

// SetSticky sets or clears the sticky flag of the file owned by owner on
// the pool. A nil validTill never lapses. Unknown pools are NotFound and
// requests that time out are Timeout errors.
func (c *Client) SetSticky(ctx context.Context, pool, fileID string, on bool, owner string, validTill *time.Time) error {
	ep, ok := c.pools[pool]
	if !ok {
		return errors.NotFoundf("pool %q", pool)
	}

	// Wait fails early when the deadline would pass before a token is
	// available.
	if err := ep.limiter.Wait(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return errors.Trace(err)
		}
		return errors.NewTimeout(err, fmt.Sprintf("waiting to call pool %s", pool))
	}

	req := StickyRequest{FileID: fileID, On: on, Owner: owner, ValidTill: Unbounded}
	if validTill != nil {
		req.ValidTill = validTill.UnixMilli()
	}
	body, err := json.Marshal(req)
	if err != nil {
		return errors.Trace(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.url, bytes.NewReader(body))
	if err != nil {
		return errors.Trace(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return errors.Annotatef(timeoutOr(ctx, err), "calling pool %s", pool)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RejectedError{Pool: pool, Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return nil
}

// Pools returns the names of the configured pools.
func (c *Client) Pools() []string {
	names := make([]string, 0, len(c.pools))
	for name := range c.pools {
		names = append(names, name)
	}
	return names
}

// timeoutOr returns a Timeout error if err was caused by a deadline, and
// err otherwise.
func timeoutOr(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return errors.NewTimeout(err, "")
	}
	return err
}
