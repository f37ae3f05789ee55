package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/store"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/gateway"
)

const (
	DefaultPerPage = 50
	MaxPerPage     = 10000
)

var (
	ErrInvalidPage = errors.New("page must be >= 1")
	ErrNoEvents    = errors.New("controller has no events")
)

// EventsView reads controller events straight from the gateway for display,
// joined with the current member directory. It never writes to the log.
type EventsView struct {
	registry *ControllerRegistry
	source   EventSource
	members  store.MemberDirectory
	logger   logrus.FieldLogger
}

func NewEventsView(reg *ControllerRegistry, src EventSource, members store.MemberDirectory, logger logrus.FieldLogger) *EventsView {
	return &EventsView{
		registry: reg,
		source:   src,
		members:  members,
		logger:   logger.WithField("component", "events_view"),
	}
}

// Paginate maps a page of a most-recent-first listing onto ring buffer
// indices. The returned indices run from newest to oldest and are empty for
// a page past the end.
func Paginate(rng types.EventRange, page, perPage int) (types.Pagination, []uint32) {
	total := rng.Count()
	totalPages := (total + perPage - 1) / perPage

	p := types.Pagination{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
	if p.HasPrev {
		prev := page - 1
		p.PrevPage = &prev
	}
	if p.HasNext {
		next := page + 1
		p.NextPage = &next
	}

	start := (page - 1) * perPage
	if start >= total {
		return p, []uint32{}
	}
	end := start + perPage
	if end > total {
		end = total
	}

	indices := make([]uint32, 0, end-start)
	for off := start; off < end; off++ {
		indices = append(indices, rng.Last-uint32(off))
	}
	return p, indices
}

// NormalizePerPage applies the default and clamps to [1, MaxPerPage].
func NormalizePerPage(perPage int) int {
	switch {
	case perPage == 0:
		return DefaultPerPage
	case perPage < 1:
		return 1
	case perPage > MaxPerPage:
		return MaxPerPage
	}
	return perPage
}

func (v *EventsView) Page(ctx context.Context, controllerID uint32, page, perPage int) (types.EventsPage, error) {
	if page < 1 {
		return types.EventsPage{}, ErrInvalidPage
	}
	perPage = NormalizePerPage(perPage)

	if _, err := v.registry.Get(controllerID); err != nil {
		return types.EventsPage{}, err
	}

	rng, err := v.source.EventRange(ctx, controllerID)
	if err != nil {
		return types.EventsPage{}, fmt.Errorf("event range: %w", err)
	}

	pagination, indices := Paginate(rng, page, perPage)

	snap, err := v.members.Snapshot(ctx)
	if err != nil {
		return types.EventsPage{}, fmt.Errorf("member snapshot: %w", err)
	}

	events := make([]types.ViewEvent, 0, len(indices))
	for _, idx := range indices {
		ev, err := v.source.Event(ctx, controllerID, idx)
		if err != nil {
			return types.EventsPage{}, fmt.Errorf("event %d: %w", idx, err)
		}
		events = append(events, enrich(idx, ev, snap))
	}

	return types.EventsPage{
		ControllerID: controllerID,
		Range:        rng,
		Events:       events,
		Pagination:   pagination,
	}, nil
}

// ETag is the weak validator for the event at index.
func ETag(index uint32) string {
	return fmt.Sprintf(`W/"%d"`, index)
}

// Last returns the newest event the controller still holds. When ifNoneMatch
// equals the current ETag the event is not fetched and nil is returned with
// that ETag. If the newest index has already gone, the one before it is used.
func (v *EventsView) Last(ctx context.Context, controllerID uint32, ifNoneMatch string) (*types.LastEvent, string, error) {
	if _, err := v.registry.Get(controllerID); err != nil {
		return nil, "", err
	}

	rng, err := v.source.EventRange(ctx, controllerID)
	if err != nil {
		return nil, "", fmt.Errorf("event range: %w", err)
	}
	if rng.Empty() {
		return nil, "", ErrNoEvents
	}

	idx := rng.Last
	etag := ETag(idx)
	if ifNoneMatch != "" && ifNoneMatch == etag {
		return nil, etag, nil
	}

	ev, err := v.source.Event(ctx, controllerID, idx)
	if errors.Is(err, gateway.ErrNotFound) && rng.Last > rng.First {
		v.logger.WithFields(logrus.Fields{"controller_id": controllerID, "index": idx}).
			Debug("last event gone, falling back one index")
		idx = rng.Last - 1
		etag = ETag(idx)
		ev, err = v.source.Event(ctx, controllerID, idx)
	}
	if err != nil {
		return nil, "", fmt.Errorf("event %d: %w", idx, err)
	}

	snap := types.MemberSnapshot{}
	if m, ok, err := v.members.Lookup(ctx, ev.CardNumber); err != nil {
		v.logger.WithError(err).WithField("controller_id", controllerID).Warn("member lookup failed")
	} else if ok {
		snap[m.CardNumber] = m
	}

	return &types.LastEvent{
		ControllerID: controllerID,
		Index:        idx,
		Event:        enrich(idx, ev, snap),
	}, etag, nil
}
