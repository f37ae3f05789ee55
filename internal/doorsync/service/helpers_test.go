package service_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/service"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/store/memory"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/gateway"
)

const (
	frontDoor uint32 = 405419896
	workshop  uint32 = 303986753
)

func silentLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeSource is an in-memory controller gateway.
type fakeSource struct {
	mu        sync.Mutex
	ranges    map[uint32]types.EventRange
	events    map[uint32]map[uint32]types.GatewayEvent
	rangeErr  map[uint32]error
	eventErr  map[uint32]map[uint32]error
	fetches   map[uint32]int
	rangeHits map[uint32]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		ranges:    map[uint32]types.EventRange{},
		events:    map[uint32]map[uint32]types.GatewayEvent{},
		rangeErr:  map[uint32]error{},
		eventErr:  map[uint32]map[uint32]error{},
		fetches:   map[uint32]int{},
		rangeHits: map[uint32]int{},
	}
}

// add appends events to the controller's buffer at consecutive indices
// starting after the current last index.
func (f *fakeSource) add(controllerID uint32, evs ...types.GatewayEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.ranges[controllerID]
	if !ok {
		r = types.EventRange{First: 1, Last: 0}
	}
	if f.events[controllerID] == nil {
		f.events[controllerID] = map[uint32]types.GatewayEvent{}
	}
	for _, ev := range evs {
		r.Last++
		ev.DeviceID = controllerID
		if ev.EventID == 0 {
			ev.EventID = r.Last
		}
		f.events[controllerID][r.Last] = ev
	}
	f.ranges[controllerID] = r
}

func (f *fakeSource) failEvent(controllerID, index uint32, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.eventErr[controllerID] == nil {
		f.eventErr[controllerID] = map[uint32]error{}
	}
	f.eventErr[controllerID][index] = err
}

func (f *fakeSource) EventRange(_ context.Context, controllerID uint32) (types.EventRange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rangeHits[controllerID]++
	if err := f.rangeErr[controllerID]; err != nil {
		return types.EventRange{}, err
	}
	return f.ranges[controllerID], nil
}

func (f *fakeSource) Event(_ context.Context, controllerID, index uint32) (types.GatewayEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[controllerID]++
	if err := f.eventErr[controllerID][index]; err != nil {
		return types.GatewayEvent{}, err
	}
	ev, ok := f.events[controllerID][index]
	if !ok {
		return types.GatewayEvent{}, &gateway.StatusError{Status: 404, URL: fmt.Sprintf("/device/%d/event/%d", controllerID, index)}
	}
	return ev, nil
}

func (f *fakeSource) fetchCount(controllerID uint32) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[controllerID]
}

func swipe(card uint32, ts string) types.GatewayEvent {
	return types.GatewayEvent{
		EventType:       1,
		EventTypeText:   "card swipe",
		AccessGranted:   true,
		DoorID:          1,
		Direction:       1,
		DirectionText:   "in",
		CardNumber:      card,
		Timestamp:       ts,
		EventReason:     1,
		EventReasonText: "swipe",
	}
}

func directory() *memory.MemberStore {
	return memory.NewMemberStore(
		types.Member{CardNumber: 1001, Name: "Ada", Email: "ada@example.org", MembershipType: "member"},
		types.Member{CardNumber: 1002, Name: "Grace", Email: "grace@example.org", MembershipType: "admin"},
	)
}

func registry(controllers ...types.Controller) *service.ControllerRegistry {
	if len(controllers) == 0 {
		controllers = []types.Controller{
			{ID: frontDoor, Name: "Front Door", Timezone: "America/Chicago"},
			{ID: workshop, Name: "Workshop"},
		}
	}
	return service.NewControllerRegistry(controllers, "UTC", silentLogger())
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent map[uint32][]types.EventRecord
}

func (p *recordingPublisher) PublishEvents(_ context.Context, controllerID uint32, recs []types.EventRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sent == nil {
		p.sent = map[uint32][]types.EventRecord{}
	}
	p.sent[controllerID] = append(p.sent[controllerID], recs...)
	return nil
}

type reconcileFixture struct {
	source  *fakeSource
	log     *memory.EventLogStore
	members *memory.MemberStore
	pub     *recordingPublisher
	rec     *service.EventReconciler
}

func newReconcileFixture(t *testing.T, cfg service.ReconcilerConfig) *reconcileFixture {
	t.Helper()
	f := &reconcileFixture{
		source:  newFakeSource(),
		log:     memory.NewEventLogStore(),
		members: directory(),
		pub:     &recordingPublisher{},
	}
	f.rec = service.NewEventReconciler(registry(), f.source, f.log, f.members, f.pub, nil, cfg, silentLogger())
	return f
}
