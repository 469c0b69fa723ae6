// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package pins is the client of the pin manager HTTP API.
package pins

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

	"github.com/juju/errors"

	"github.com/canonical/pinmanager/apiserver/params"
	pinerrors "github.com/canonical/pinmanager/domain/pin/errors"
)

// maxResponseSize bounds response bodies.
const maxResponseSize = 1 << 20

// Client calls the pin manager API on behalf of a user.
type Client struct {
	baseURL string
	subject string
	http    *http.Client
}

// NewClient returns a Client for the API at baseURL acting as subject. A
// nil hc uses a client with a 30 second timeout.
func NewClient(baseURL, subject string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		subject: subject,
		http:    hc,
	}
}

// Error is returned when the API answers with a failure. It satisfies
// errors.Is for the outcome kind named by its code.
type Error struct {
	Status  int
	Code    string
	Message string
}

// Error implements error.
func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is the outcome kind of the error.
func (e *Error) Is(target error) bool {
	kind, ok := target.(errors.ConstError)
	return ok && string(kind) == e.Code && pinerrors.Kind(kind) == kind
}

// PinFile pins the file on the pool. A negative lifetime never expires.
func (c *Client) PinFile(ctx context.Context, fileID, pool string, lifetime time.Duration) (params.Pin, error) {
	var out params.Pin
	err := c.call(ctx, http.MethodPost, c.filePath(fileID, "pins"), params.PinFileArgs{
		Pool:            pool,
		LifetimeSeconds: seconds(lifetime),
	}, &out)
	return out, errors.Trace(err)
}

// ListPins returns the pins of the file, on every pool when pool is empty.
func (c *Client) ListPins(ctx context.Context, fileID, pool string) ([]params.Pin, error) {
	path := c.filePath(fileID, "pins")
	if pool != "" {
		path += "?" + url.Values{"pool": {pool}}.Encode()
	}
	var out params.PinsResult
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, errors.Trace(err)
	}
	return out.Pins, nil
}

// ExtendPin asks for the pin to stay valid for at least lifetime. It
// returns the resulting expiration, nil when unbounded.
func (c *Client) ExtendPin(ctx context.Context, fileID, pinID string, lifetime time.Duration) (*time.Time, error) {
	secs := seconds(lifetime)
	var out params.ExtendPinResult
	err := c.call(ctx, http.MethodPost, c.filePath(fileID, "pins", pinID, "extend"), params.ExtendPinArgs{
		LifetimeSeconds: &secs,
	}, &out)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return out.Expiration, nil
}

// Unpin releases the pin.
func (c *Client) Unpin(ctx context.Context, fileID, pinID string) error {
	return errors.Trace(c.call(ctx, http.MethodDelete, c.filePath(fileID, "pins", pinID), nil, nil))
}

// MovePins moves the pins of the file off the source pool.
func (c *Client) MovePins(ctx context.Context, fileID string, args params.MovePinsArgs) (params.MovePinsResult, error) {
	var out params.MovePinsResult
	err := c.call(ctx, http.MethodPost, c.filePath(fileID, "move"), args, &out)
	return out, errors.Trace(err)
}

// Version returns the version of the server.
func (c *Client) Version(ctx context.Context) (string, error) {
	var out params.VersionResult
	if err := c.call(ctx, http.MethodGet, "/v1/version", nil, &out); err != nil {
		return "", errors.Trace(err)
	}
	return out.Version, nil
}

func (c *Client) filePath(fileID string, parts ...string) string {
	escaped := make([]string, 0, len(parts)+2)
	escaped = append(escaped, "/v1/files", url.PathEscape(fileID))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return strings.Join(escaped, "/")
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Trace(err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Trace(err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.subject != "" {
		req.Header.Set(params.SubjectHeader, c.subject)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Annotatef(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return errors.Annotatef(err, "reading response to %s %s", method, path)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var perr params.Error
		if err := json.Unmarshal(raw, &perr); err != nil || perr.Message == "" {
			return &Error{
				Status:  resp.StatusCode,
				Code:    string(pinerrors.GenericFailure),
				Message: fmt.Sprintf("%s %s: %d %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw))),
			}
		}
		return &Error{Status: resp.StatusCode, Code: perr.Code, Message: perr.Message}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	return errors.Annotatef(json.Unmarshal(raw, out), "decoding response to %s %s", method, path)
}

func seconds(d time.Duration) int64 {
	if d < 0 {
		return params.UnboundedLifetime
	}
	return int64(d / time.Second)
}
