package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/cache"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
	jsonpkg "github.com/BrandonDHaskell/Portunus/doorsync/internal/pkg/json"
)

// StatusTTL is how long a device status stays cached; the status carries the
// controller clock and goes stale quickly.
const StatusTTL = 60 * time.Second

// Cached serves event bodies and device status through a cache.Store and
// falls back to the Client on a miss. Event ranges are never cached.
type Cached struct {
	client *Client
	cache  *cache.Store
}

func NewCached(client *Client, store *cache.Store) *Cached {
	return &Cached{client: client, cache: store}
}

func EventKey(controllerID, index uint32) string {
	return fmt.Sprintf("controller_%d_event_%d", controllerID, index)
}

func StatusKey(controllerID uint32) string {
	return fmt.Sprintf("controller_%d_status", controllerID)
}

// ControllerPattern matches every cache key belonging to the controller.
func ControllerPattern(controllerID uint32) string {
	return fmt.Sprintf("controller_%d_*", controllerID)
}

func (c *Cached) EventRange(ctx context.Context, controllerID uint32) (types.EventRange, error) {
	return c.client.EventRange(ctx, controllerID)
}

// Event bodies at a given index never change, so they are kept for the
// store's default TTL.
func (c *Cached) Event(ctx context.Context, controllerID, index uint32) (types.GatewayEvent, error) {
	key := EventKey(controllerID, index)
	if raw, ok := c.cache.Get(key); ok {
		if ev, err := DecodeEvent(raw); err == nil {
			return ev, nil
		}
		c.cache.Invalidate(key)
	}

	raw, err := c.client.EventRaw(ctx, controllerID, index)
	if err != nil {
		return types.GatewayEvent{}, err
	}
	ev, err := DecodeEvent(raw)
	if err != nil {
		return types.GatewayEvent{}, err
	}
	c.cache.Set(key, raw, 0)
	return ev, nil
}

func (c *Cached) DeviceRaw(ctx context.Context, controllerID uint32) (jsonpkg.RawMessage, error) {
	key := StatusKey(controllerID)
	if raw, ok := c.cache.Get(key); ok {
		return raw, nil
	}
	raw, err := c.client.DeviceRaw(ctx, controllerID)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, raw, StatusTTL)
	return raw, nil
}

// InvalidateController drops every cached entry for the controller.
func (c *Cached) InvalidateController(controllerID uint32) int {
	return c.cache.InvalidatePattern(ControllerPattern(controllerID))
}
