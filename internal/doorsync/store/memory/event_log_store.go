package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/store"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
)

// EventLogStore is an in-memory event log. It is intended for tests and dev
// runs without a database file.
type EventLogStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []types.EventRecord
}

func NewEventLogStore() *EventLogStore {
	return &EventLogStore{nextID: 1}
}

// Batch holds the store lock for the whole callback, so batches are
// serialised like database transactions.
func (s *EventLogStore) Batch(ctx context.Context, fn func(ctx context.Context, b store.EventLogBatch) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := &eventBatch{s: s, nextID: s.nextID}
	if err := fn(ctx, b); err != nil {
		return err
	}
	s.rows = append(s.rows, b.staged...)
	s.nextID = b.nextID
	return nil
}

type eventBatch struct {
	s      *EventLogStore
	staged []types.EventRecord
	nextID int64
}

func (b *eventBatch) Exists(_ context.Context, id types.EventIdentity) (bool, error) {
	for _, r := range b.s.rows {
		if r.Identity() == id {
			return true, nil
		}
	}
	for _, r := range b.staged {
		if r.Identity() == id {
			return true, nil
		}
	}
	return false, nil
}

func (b *eventBatch) Insert(_ context.Context, rec types.EventRecord) (int64, error) {
	rec.ID = b.nextID
	b.nextID++
	b.staged = append(b.staged, rec)
	return rec.ID, nil
}

func (s *EventLogStore) Query(_ context.Context, f types.EventFilter) ([]types.EventRecord, int, error) {
	f = store.NormalizeFilter(f)

	s.mu.Lock()
	var matched []types.EventRecord
	for _, r := range s.rows {
		if f.ControllerID != 0 && r.ControllerID != f.ControllerID {
			continue
		}
		if f.CardNumber != 0 && r.CardNumber != f.CardNumber {
			continue
		}
		if f.DoorID != 0 && r.DoorID != f.DoorID {
			continue
		}
		matched = append(matched, r)
	}
	s.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		ti, tj := matched[i].TimestampUTC, matched[j].TimestampUTC
		switch {
		case ti == nil && tj == nil:
			return matched[i].ID > matched[j].ID
		case ti == nil:
			return false
		case tj == nil:
			return true
		case !ti.Equal(*tj):
			return ti.After(*tj)
		default:
			return matched[i].ID > matched[j].ID
		}
	})

	total := len(matched)
	if f.Offset >= total {
		return []types.EventRecord{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return matched[f.Offset:end], total, nil
}

func (s *EventLogStore) All(_ context.Context) ([]types.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.EventRecord, len(s.rows))
	copy(out, s.rows)
	return out, nil
}
