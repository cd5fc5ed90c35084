package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	v1 "github.com/routepeer-io/routepeer/pkg/apis/delivery/v1"
	"github.com/routepeer-io/routepeer/pkg/status"
)

const maxErrorBody = 64 << 10

// Client talks to the hub HTTP API on behalf of one driver.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// NewClient returns a client for the hub at baseURL authenticating with token.
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse hub url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("hub url %q is not absolute", baseURL)
	}
	return &Client{
		base:  u,
		token: token,
		http:  &http.Client{Timeout: timeout},
	}, nil
}

// UpdateStopStatus asks the hub to move a stop to st.
func (c *Client) UpdateStopStatus(ctx context.Context, routeID, stopID string, st status.StopStatus, notes string) (*v1.UpdateStopStatusResponse, error) {
	body, err := json.Marshal(v1.UpdateStopStatusRequest{Status: st, DeliveryNotes: notes})
	if err != nil {
		return nil, err
	}
	var out v1.UpdateStopStatusResponse
	if err := c.do(ctx, http.MethodPost, c.path("v1", "routes", routeID, "stops", stopID, "status"), "application/json", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadPhoto stores a proof of delivery photo. The hub derives the object key
// from the route and stop, so repeating an upload overwrites it.
func (c *Client) UploadPhoto(ctx context.Context, routeID, stopID, contentType string, data []byte) (string, error) {
	var out v1.PhotoResponse
	if err := c.do(ctx, http.MethodPut, c.path("v1", "routes", routeID, "stops", stopID, "photo"), contentType, data, &out); err != nil {
		return "", err
	}
	return out.Key, nil
}

// SendLocation reports one GPS fix. The hub answers 429 when pings arrive
// faster than its per-driver interval.
func (c *Client) SendLocation(ctx context.Context, ping v1.LocationPing) error {
	body, err := json.Marshal(ping)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, c.path("v1", "locations"), "application/json", body, nil)
}

// ListStops returns the stops of a route assigned to the caller.
func (c *Client) ListStops(ctx context.Context, routeID string) (*v1.StopList, error) {
	var out v1.StopList
	if err := c.do(ctx, http.MethodGet, c.path("v1", "routes", routeID, "stops"), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) path(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.base.String() + "/" + strings.Join(escaped, "/")
}

func (c *Client) do(ctx context.Context, method, target, contentType string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: Transient, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return &Error{Kind: Transient, StatusCode: resp.StatusCode, Message: "decode response", Err: err}
		}
		return nil
	}

	var eb v1.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(raw, &eb); err != nil {
		eb.Error = strings.TrimSpace(string(raw))
	}
	return newHTTPError(resp.StatusCode, &eb)
}
