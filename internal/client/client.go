package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"plenum/internal/api"
	"plenum/internal/config"
)

const userAgent = "plenum/0.1"

// ErrAPIUnavailable marks failures caused by an unreachable backend rather
// than a backend-reported error.
var ErrAPIUnavailable = errors.New("backend API unavailable")

// StatusError reports a non-2xx backend response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("backend returned status %d", e.Code)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Body)
}

// Client talks to the plenum backend REST API.
type Client struct {
	base *url.URL
	http *http.Client
}

// New builds a client from application config.
func New(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("client: config required")
	}
	timeout := time.Duration(cfg.API.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return NewWithBase(cfg.API.BaseURL, timeout)
}

// NewWithBase builds a client against an explicit base URL.
func NewWithBase(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("client: base URL required")
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("client: parse base URL: %w", err)
	}
	base.Path = strings.TrimRight(base.Path, "/")
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base: base,
		http: &http.Client{Timeout: timeout},
	}, nil
}

// ChannelStatus fetches the full channel status snapshot.
func (c *Client) ChannelStatus(ctx context.Context) ([]api.Channel, error) {
	var payload struct {
		Channels []api.Channel `json:"channels"`
	}
	if err := c.getJSON(ctx, "/api/channels/status", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Channels, nil
}

// LiveMeetings lists meetings that are currently live.
func (c *Client) LiveMeetings(ctx context.Context) ([]api.Meeting, error) {
	var payload api.MeetingList
	if err := c.getJSON(ctx, "/api/meetings/live", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Meetings, nil
}

// Meetings lists meetings, newest first. limit <= 0 leaves paging to the
// backend default.
func (c *Client) Meetings(ctx context.Context, limit, offset int) (*api.MeetingList, error) {
	values := url.Values{}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		values.Set("offset", strconv.Itoa(offset))
	}
	var payload api.MeetingList
	if err := c.getJSON(ctx, "/api/meetings", values, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Meeting fetches one meeting by id.
func (c *Client) Meeting(ctx context.Context, id int64) (*api.Meeting, error) {
	var payload api.Meeting
	if err := c.getJSON(ctx, fmt.Sprintf("/api/meetings/%d", id), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// MeetingSubtitles fetches the stored subtitles of a meeting.
func (c *Client) MeetingSubtitles(ctx context.Context, id int64) ([]api.Subtitle, error) {
	var payload struct {
		Subtitles []api.Subtitle `json:"subtitles"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/api/meetings/%d/subtitles", id), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Subtitles, nil
}

// Search queries stored subtitles. The query is NFC-normalized before
// sending so composed and decomposed input match the same records.
func (c *Client) Search(ctx context.Context, query string, limit int) (*api.SearchResponse, error) {
	query = norm.NFC.String(strings.TrimSpace(query))
	if query == "" {
		return nil, errors.New("client: search query required")
	}
	values := url.Values{}
	values.Set("q", query)
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	var payload api.SearchResponse
	if err := c.getJSON(ctx, "/api/search", values, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// CreateMeeting registers a new meeting.
func (c *Client) CreateMeeting(ctx context.Context, req api.CreateMeetingRequest) (*api.Meeting, error) {
	var payload api.Meeting
	if err := c.postJSON(ctx, "/api/meetings", req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// CreateMeetingFromURL registers a meeting from a broadcast page URL; the
// backend resolves title and channel from the page.
func (c *Client) CreateMeetingFromURL(ctx context.Context, pageURL string) (*api.Meeting, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return nil, errors.New("client: url required")
	}
	var payload api.Meeting
	if err := c.postJSON(ctx, "/api/meetings/from-url", api.CreateMeetingFromURLRequest{URL: pageURL}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// StatusStream opens the status delta event stream. The caller owns the
// returned body and must close it; there is no client-side timeout because
// the stream blocks until the backend pushes or the context ends.
func (c *Client) StatusStream(ctx context.Context) (io.ReadCloser, error) {
	endpoint := c.base.ResolveReference(&url.URL{Path: "/api/channels/status/stream"})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/event-stream")

	streamClient := &http.Client{Transport: c.http.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, wrapTransportError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, readStatusError(resp)
	}
	return resp.Body, nil
}

// BaseURL returns the resolved API root, for diagnostics output.
func (c *Client) BaseURL() string {
	if c == nil || c.base == nil {
		return ""
	}
	return c.base.String()
}

func (c *Client) getJSON(ctx context.Context, path string, values url.Values, out any) error {
	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: values.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return wrapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readStatusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

func wrapTransportError(err error) error {
	return fmt.Errorf("%w: %w", ErrAPIUnavailable, err)
}

// IsUnavailable reports whether err stems from an unreachable backend as
// opposed to a backend-reported failure.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAPIUnavailable) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
