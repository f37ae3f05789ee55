package gateway_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/cache"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/gateway"
)

func silentLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

const eventBody = `{"event":{"device-id":405419896,"event-id":42,"event-type":1,"event-type-text":"card swipe",
"access-granted":true,"door-id":3,"direction":1,"direction-text":"in","card-number":8165538,
"timestamp":"2026-02-15 12:00:00 CST","event-reason":1,"event-reason-text":"swipe"}}`

type fakeGateway struct {
	hits atomic.Int64
}

func (f *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.hits.Add(1)
	switch {
	case r.URL.Path == "/uhppote/device/405419896/events/1000":
		fmt.Fprint(w, `{"events":{"first":1,"last":42}}`)
	case r.URL.Path == "/uhppote/device/405419896/event/42":
		fmt.Fprint(w, eventBody)
	case r.URL.Path == "/uhppote/device/405419896":
		fmt.Fprint(w, `{"device":{"device-id":405419896,"ip-address":"192.168.1.100"}}`)
	case r.URL.Path == "/uhppote/device/1/events/1000":
		fmt.Fprint(w, `{"events":{}}`)
	case strings.HasPrefix(r.URL.Path, "/uhppote/device/500/"):
		http.Error(w, "boom", http.StatusInternalServerError)
	default:
		http.NotFound(w, r)
	}
}

func newClient(t *testing.T, h http.Handler) *gateway.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return gateway.NewClient(gateway.Config{BaseURL: srv.URL + "/uhppote/"}, silentLogger())
}

func TestClient_EventRange(t *testing.T) {
	c := newClient(t, &fakeGateway{})

	r, err := c.EventRange(context.Background(), 405419896)
	require.NoError(t, err)
	assert.Equal(t, types.EventRange{First: 1, Last: 42}, r)
}

func TestClient_EventRangeMissingBounds(t *testing.T) {
	c := newClient(t, &fakeGateway{})

	_, err := c.EventRange(context.Background(), 1)
	assert.ErrorIs(t, err, gateway.ErrUpstream)
}

func TestClient_Event(t *testing.T) {
	c := newClient(t, &fakeGateway{})

	ev, err := c.Event(context.Background(), 405419896, 42)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), ev.EventID)
	assert.Equal(t, uint32(8165538), ev.CardNumber)
	assert.Equal(t, "2026-02-15 12:00:00 CST", ev.Timestamp)
	assert.True(t, ev.AccessGranted)
	assert.Equal(t, 3, ev.DoorID)
}

func TestClient_ErrorsAreClassified(t *testing.T) {
	c := newClient(t, &fakeGateway{})
	ctx := context.Background()

	_, err := c.Event(ctx, 405419896, 7)
	assert.ErrorIs(t, err, gateway.ErrNotFound)
	assert.ErrorIs(t, err, gateway.ErrUpstream)

	_, err = c.Event(ctx, 500, 1)
	assert.ErrorIs(t, err, gateway.ErrUpstream)
	assert.NotErrorIs(t, err, gateway.ErrNotFound)

	var se *gateway.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
}

func TestClient_TimeoutIsUpstreamError(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(block)
		srv.Close()
	})

	c := gateway.NewClient(gateway.Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, silentLogger())

	start := time.Now()
	_, err := c.EventRange(context.Background(), 1)
	assert.ErrorIs(t, err, gateway.ErrUpstream)
	assert.Less(t, time.Since(start), 2*time.Second)
}

// ── Cached ───────────────────────────────────────────────────────────────────

func TestCached_EventServedFromCacheOnSecondCall(t *testing.T) {
	fg := &fakeGateway{}
	store := cache.New(cache.Config{Dir: t.TempDir(), Enabled: true}, silentLogger())
	c := gateway.NewCached(newClient(t, fg), store)
	ctx := context.Background()

	first, err := c.Event(ctx, 405419896, 42)
	require.NoError(t, err)
	second, err := c.Event(ctx, 405419896, 42)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), fg.hits.Load())
	assert.Equal(t, int64(1), store.Stats().Hits)
}

func TestCached_DisabledCacheAlwaysFetches(t *testing.T) {
	fg := &fakeGateway{}
	store := cache.New(cache.Config{Dir: t.TempDir(), Enabled: false}, silentLogger())
	c := gateway.NewCached(newClient(t, fg), store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.DeviceRaw(ctx, 405419896)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), fg.hits.Load())
}

func TestCached_FailuresAreNotCached(t *testing.T) {
	fg := &fakeGateway{}
	store := cache.New(cache.Config{Dir: t.TempDir(), Enabled: true}, silentLogger())
	c := gateway.NewCached(newClient(t, fg), store)

	_, err := c.Event(context.Background(), 405419896, 7)
	require.ErrorIs(t, err, gateway.ErrNotFound)
	assert.Zero(t, store.Stats().FileCount)
}

func TestCached_InvalidateController(t *testing.T) {
	fg := &fakeGateway{}
	store := cache.New(cache.Config{Dir: t.TempDir(), Enabled: true}, silentLogger())
	c := gateway.NewCached(newClient(t, fg), store)
	ctx := context.Background()

	_, err := c.Event(ctx, 405419896, 42)
	require.NoError(t, err)
	_, err = c.DeviceRaw(ctx, 405419896)
	require.NoError(t, err)
	require.True(t, store.Set(gateway.StatusKey(303986753), map[string]int{"device-id": 303986753}, time.Minute))

	assert.Equal(t, 2, c.InvalidateController(405419896))
	assert.Equal(t, int64(1), store.Stats().FileCount)
}
