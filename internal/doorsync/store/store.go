package store

import (
	"context"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
)

const (
	DefaultQueryLimit = 100
	MaxQueryLimit     = 1000
)

// EventLogBatch is the event log as seen from inside one transaction. Rows
// inserted earlier in the same batch are visible to Exists.
type EventLogBatch interface {
	Exists(ctx context.Context, id types.EventIdentity) (bool, error)
	Insert(ctx context.Context, rec types.EventRecord) (int64, error)
}

// EventLogStore persists the append-only event log.
type EventLogStore interface {
	// Batch runs fn in a single transaction. Rows inserted by fn are
	// committed only if fn returns nil.
	Batch(ctx context.Context, fn func(ctx context.Context, b EventLogBatch) error) error

	// Query returns one page of rows ordered by timestamp_utc descending,
	// plus the number of rows matching the filter.
	Query(ctx context.Context, f types.EventFilter) ([]types.EventRecord, int, error)

	// All returns every row in insertion order.
	All(ctx context.Context) ([]types.EventRecord, error)
}

// MemberDirectory is the read side of the card/member directory.
type MemberDirectory interface {
	Snapshot(ctx context.Context) (types.MemberSnapshot, error)
	Lookup(ctx context.Context, cardNumber uint32) (types.Member, bool, error)
	List(ctx context.Context) ([]types.Member, error)
}

// ArchiveBatch is the member directory and event log inside one import
// transaction.
type ArchiveBatch interface {
	Truncate(ctx context.Context) error
	MemberExists(ctx context.Context, cardNumber uint32) (bool, error)
	InsertMember(ctx context.Context, m types.Member) error
	EventExists(ctx context.Context, controllerID, eventID uint32, timestamp string) (bool, error)
	InsertEvent(ctx context.Context, rec types.EventRecord) error
}

type ArchiveStore interface {
	Import(ctx context.Context, fn func(ctx context.Context, b ArchiveBatch) error) error
}

// NormalizeFilter applies the default and maximum page size.
func NormalizeFilter(f types.EventFilter) types.EventFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultQueryLimit
	}
	if f.Limit > MaxQueryLimit {
		f.Limit = MaxQueryLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
