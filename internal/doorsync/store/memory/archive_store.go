package memory

import (
	"context"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/store"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
)

// ArchiveStore imports into a MemberStore and an EventLogStore. Changes are
// staged and applied only when the import callback succeeds.
type ArchiveStore struct {
	members *MemberStore
	events  *EventLogStore
}

func NewArchiveStore(members *MemberStore, events *EventLogStore) *ArchiveStore {
	return &ArchiveStore{members: members, events: events}
}

func (s *ArchiveStore) Import(ctx context.Context, fn func(ctx context.Context, b store.ArchiveBatch) error) error {
	s.members.mu.Lock()
	defer s.members.mu.Unlock()
	s.events.mu.Lock()
	defer s.events.mu.Unlock()

	b := &archiveBatch{
		members:      append([]types.Member(nil), s.members.members...),
		events:       append([]types.EventRecord(nil), s.events.rows...),
		nextMemberID: s.members.nextID,
		nextEventID:  s.events.nextID,
	}
	if err := fn(ctx, b); err != nil {
		return err
	}

	s.members.members = b.members
	s.members.nextID = b.nextMemberID
	s.events.rows = b.events
	s.events.nextID = b.nextEventID
	return nil
}

type archiveBatch struct {
	members      []types.Member
	events       []types.EventRecord
	nextMemberID int64
	nextEventID  int64
}

func (b *archiveBatch) Truncate(context.Context) error {
	b.members = nil
	b.events = nil
	return nil
}

func (b *archiveBatch) MemberExists(_ context.Context, cardNumber uint32) (bool, error) {
	for _, m := range b.members {
		if m.CardNumber == cardNumber {
			return true, nil
		}
	}
	return false, nil
}

func (b *archiveBatch) InsertMember(ctx context.Context, m types.Member) error {
	if ok, _ := b.MemberExists(ctx, m.CardNumber); ok {
		return errDuplicateCard(m.CardNumber)
	}
	m.ID = b.nextMemberID
	b.nextMemberID++
	b.members = append(b.members, m)
	return nil
}

func (b *archiveBatch) EventExists(_ context.Context, controllerID, eventID uint32, timestamp string) (bool, error) {
	for _, r := range b.events {
		if r.ControllerID == controllerID && r.EventID == eventID && r.Timestamp == timestamp {
			return true, nil
		}
	}
	return false, nil
}

func (b *archiveBatch) InsertEvent(_ context.Context, rec types.EventRecord) error {
	rec.ID = b.nextEventID
	b.nextEventID++
	b.events = append(b.events, rec)
	return nil
}
