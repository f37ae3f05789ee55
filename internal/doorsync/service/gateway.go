package service

import (
	"context"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
)

// EventSource is the part of the controller gateway the services read from.
type EventSource interface {
	EventRange(ctx context.Context, controllerID uint32) (types.EventRange, error)
	Event(ctx context.Context, controllerID, index uint32) (types.GatewayEvent, error)
}

// EventPublisher announces rows that were just committed to the event log.
type EventPublisher interface {
	PublishEvents(ctx context.Context, controllerID uint32, recs []types.EventRecord) error
}

type nopPublisher struct{}

func (nopPublisher) PublishEvents(context.Context, uint32, []types.EventRecord) error { return nil }

// backwardIndices lists the indices of r from newest to oldest. A positive
// limit keeps only the newest limit indices.
func backwardIndices(r types.EventRange, limit int) []uint32 {
	n := r.Count()
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, r.Last-uint32(i))
	}
	return out
}

// enrich copies the member's profile onto a view event, or marks it
// Undefined when the card is unknown.
func enrich(index uint32, ev types.GatewayEvent, snap types.MemberSnapshot) types.ViewEvent {
	v := types.ViewEvent{Index: index, GatewayEvent: ev}
	if m, ok := snap[ev.CardNumber]; ok {
		v.Name, v.Email, v.MembershipType = m.Name, m.Email, m.MembershipType
	} else {
		v.Name, v.Email, v.MembershipType = types.UnknownMember, types.UnknownMember, types.UnknownMember
	}
	return v
}
