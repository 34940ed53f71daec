package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"f1replaybot/log"
	"f1replaybot/pkg/telemetry"
)

// DefaultTimeout covers the backend's slow first load of a session.
const DefaultTimeout = 30 * time.Second

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Code   int
	Detail string
	URL    string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %d for %s: %s", e.Code, e.URL, e.Detail)
	}
	return fmt.Sprintf("backend returned %d for %s", e.Code, e.URL)
}

// NotFound reports whether err is a 404 from the backend.
func NotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

type Health struct {
	Status        string `json:"status"`
	FastF1Version string `json:"fastf1_version"`
}

type (
	Client struct {
		baseURL string
		http    *http.Client
		timeout time.Duration
		l       *log.Logger
	}
	Option func(*Client)
)

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		l:       log.Default().Named("client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.l = l
	}
}

// Fetch implements the replay controller's fetcher.
func (c *Client) Fetch(ctx context.Context, key telemetry.LookupKey) (*telemetry.Payload, error) {
	return c.FetchTelemetry(ctx, key)
}

// FetchTelemetry loads the fastest lap of every driver of a session. When the
// key names a driver the payload is reduced to that driver.
func (c *Client) FetchTelemetry(ctx context.Context, key telemetry.LookupKey) (*telemetry.Payload, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	var payload *telemetry.Payload
	err := c.get(ctx, c.sessionPath("telemetry", key), func(r io.Reader) error {
		var err error
		payload, err = telemetry.Decode(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	if key.Driver == "" {
		return payload, nil
	}
	single, ok := payload.Driver(key.Driver)
	if !ok {
		return nil, errors.Errorf("driver %s has no telemetry in %s", key.Driver, key)
	}
	return single, nil
}

// FetchLap loads the detailed fastest lap of key.Driver.
func (c *Client) FetchLap(ctx context.Context, key telemetry.LookupKey) (*telemetry.Lap, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if key.Driver == "" {
		return nil, errors.New("a driver is required for lap telemetry")
	}
	var lap *telemetry.Lap
	err := c.get(ctx, c.sessionPath("lap_telemetry", key)+"/"+url.PathEscape(key.Driver), func(r io.Reader) error {
		var err error
		lap, err = telemetry.DecodeLap(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lap, nil
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.get(ctx, "/api/health", func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&h)
	})
	return h, err
}

func (c *Client) sessionPath(resource string, key telemetry.LookupKey) string {
	return fmt.Sprintf("/api/%s/%s/%s/%s",
		resource,
		strconv.Itoa(key.Year),
		url.PathEscape(key.Location),
		url.PathEscape(string(key.Session)))
}

func (c *Client) get(ctx context.Context, path string, decode func(io.Reader) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "requesting %s", target)
	}
	defer resp.Body.Close()
	c.l.Debug("backend response",
		log.String("url", target),
		log.Int("status", resp.StatusCode),
		log.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Detail: detail(resp.Body), URL: target}
	}
	return errors.Wrapf(decode(resp.Body), "reading %s", target)
}

// detail extracts the error message of an error response body.
func detail(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var msg struct {
		Detail any `json:"detail"`
	}
	if json.Unmarshal(body, &msg) == nil && msg.Detail != nil {
		if s, ok := msg.Detail.(string); ok {
			return s
		}
		b, _ := json.Marshal(msg.Detail)
		return string(b)
	}
	return strings.TrimSpace(string(body))
}
