// Package gateway talks to the REST gateway in front of the door
// controllers.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
	jsonpkg "github.com/BrandonDHaskell/Portunus/doorsync/internal/pkg/json"
)

const (
	DefaultTimeout   = 3 * time.Second
	DefaultRangeHint = 1000

	// maxBodyBytes bounds how much of a response is read.
	maxBodyBytes = 1 << 20
)

var (
	// ErrUpstream wraps every failure to get a usable answer from the gateway.
	ErrUpstream = errors.New("gateway upstream error")
	// ErrNotFound is a 404 from the gateway. It also matches ErrUpstream.
	ErrNotFound = errors.New("gateway resource not found")
)

// StatusError is a non-2xx answer from the gateway.
type StatusError struct {
	Status int
	URL    string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway %s: status %d: %s", e.URL, e.Status, e.Body)
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUpstream:
		return true
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

type Config struct {
	BaseURL   string // e.g. http://127.0.0.1:8080/uhppote
	Timeout   time.Duration
	RangeHint int

	// HTTPClient overrides the default client; its Timeout is left alone.
	HTTPClient *http.Client
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	rangeHint  int
	logger     logrus.FieldLogger
}

func NewClient(cfg Config, logger logrus.FieldLogger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RangeHint <= 0 {
		cfg.RangeHint = DefaultRangeHint
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:          20,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				ResponseHeaderTimeout: cfg.Timeout,
			},
			Timeout: cfg.Timeout,
		}
	}
	return &Client{
		httpClient: hc,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		rangeHint:  cfg.RangeHint,
		logger:     logger.WithField("component", "gateway"),
	}
}

type rangeResponse struct {
	Events *struct {
		First *uint32 `json:"first"`
		Last  *uint32 `json:"last"`
	} `json:"events"`
}

// EventRange returns the inclusive bounds of the controller's ring buffer.
func (c *Client) EventRange(ctx context.Context, controllerID uint32) (types.EventRange, error) {
	var out rangeResponse
	path := fmt.Sprintf("/device/%d/events/%d", controllerID, c.rangeHint)
	if err := c.get(ctx, path, &out); err != nil {
		return types.EventRange{}, err
	}
	if out.Events == nil || out.Events.First == nil || out.Events.Last == nil {
		return types.EventRange{}, fmt.Errorf("%w: %s: missing events.first/last", ErrUpstream, path)
	}
	return types.EventRange{First: *out.Events.First, Last: *out.Events.Last}, nil
}

// EventRaw returns the body of the event at index, unparsed.
func (c *Client) EventRaw(ctx context.Context, controllerID, index uint32) (jsonpkg.RawMessage, error) {
	var out struct {
		Event jsonpkg.RawMessage `json:"event"`
	}
	path := fmt.Sprintf("/device/%d/event/%d", controllerID, index)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	if len(out.Event) == 0 || string(out.Event) == "null" {
		return nil, fmt.Errorf("%w: %s: missing event", ErrUpstream, path)
	}
	return out.Event, nil
}

func (c *Client) Event(ctx context.Context, controllerID, index uint32) (types.GatewayEvent, error) {
	raw, err := c.EventRaw(ctx, controllerID, index)
	if err != nil {
		return types.GatewayEvent{}, err
	}
	return DecodeEvent(raw)
}

// DeviceRaw returns the gateway's device record for the controller.
func (c *Client) DeviceRaw(ctx context.Context, controllerID uint32) (jsonpkg.RawMessage, error) {
	var out struct {
		Device jsonpkg.RawMessage `json:"device"`
	}
	path := fmt.Sprintf("/device/%d", controllerID)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	if len(out.Device) == 0 || string(out.Device) == "null" {
		return nil, fmt.Errorf("%w: %s: missing device", ErrUpstream, path)
	}
	return out.Device, nil
}

func DecodeEvent(raw jsonpkg.RawMessage) (types.GatewayEvent, error) {
	var ev types.GatewayEvent
	if err := jsonpkg.Unmarshal(raw, &ev); err != nil {
		return types.GatewayEvent{}, fmt.Errorf("%w: decode event: %v", ErrUpstream, err)
	}
	return ev, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	url := c.baseURL + path
	log := c.logger.WithField("url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("gateway request failed")
		return fmt.Errorf("%w: GET %s: %w", ErrUpstream, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrUpstream, url, err)
	}
	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "elapsed": time.Since(start)})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("gateway non-2xx")
		return &StatusError{Status: resp.StatusCode, URL: url, Body: strings.TrimSpace(string(body))}
	}
	log.Debug("gateway ok")

	if err := jsonpkg.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUpstream, url, err)
	}
	return nil
}
