package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/store"
	sqlitestore "github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/store/sqlite"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
)

// ═══════════════════════════════════════════════════════════════════════════
// Batch: insert and duplicate detection
// ═══════════════════════════════════════════════════════════════════════════

func TestEventLogStore_Batch_InsertedRowIsFoundByIdentity(t *testing.T) {
	conn := openTestDB(t)
	s := sqlitestore.NewEventLogStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	rec := sampleRecord(42, 1001, time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC))

	err := s.Batch(ctx, func(ctx context.Context, b store.EventLogBatch) error {
		found, err := b.Exists(ctx, rec.Identity())
		if err != nil {
			return err
		}
		if found {
			t.Errorf("Exists before insert = true")
		}
		if _, err := b.Insert(ctx, rec); err != nil {
			return err
		}
		// Rows inserted earlier in the batch are visible.
		found, err = b.Exists(ctx, rec.Identity())
		if err != nil {
			return err
		}
		if !found {
			t.Errorf("Exists after insert in same batch = false")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}

	err = s.Batch(ctx, func(ctx context.Context, b store.EventLogBatch) error {
		found, err := b.Exists(ctx, rec.Identity())
		if err != nil {
			return err
		}
		if !found {
			t.Errorf("Exists after commit = false")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
}

func TestEventLogStore_Batch_AnyFieldDifferenceIsNotDuplicate(t *testing.T) {
	conn := openTestDB(t)
	s := sqlitestore.NewEventLogStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	rec := sampleRecord(42, 1001, time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC))
	insertAll(t, s, rec)

	variants := map[string]func(id *types.EventIdentity){
		"controller":  func(id *types.EventIdentity) { id.ControllerID++ },
		"event id":    func(id *types.EventIdentity) { id.EventID++ },
		"timestamp":   func(id *types.EventIdentity) { id.Timestamp += "x" },
		"card":        func(id *types.EventIdentity) { id.CardNumber++ },
		"type":        func(id *types.EventIdentity) { id.EventType++ },
		"type text":   func(id *types.EventIdentity) { id.EventTypeText = "other" },
		"granted":     func(id *types.EventIdentity) { id.AccessGranted = !id.AccessGranted },
		"door":        func(id *types.EventIdentity) { id.DoorID++ },
		"direction":   func(id *types.EventIdentity) { id.Direction = 2 },
		"dir text":    func(id *types.EventIdentity) { id.DirectionText = "out" },
		"reason":      func(id *types.EventIdentity) { id.EventReason++ },
		"reason text": func(id *types.EventIdentity) { id.EventReasonText = "other" },
	}

	for name, mutate := range variants {
		t.Run(name, func(t *testing.T) {
			id := rec.Identity()
			mutate(&id)
			err := s.Batch(ctx, func(ctx context.Context, b store.EventLogBatch) error {
				found, err := b.Exists(ctx, id)
				if err != nil {
					return err
				}
				if found {
					t.Errorf("identity differing in %s reported as duplicate", name)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("Batch: %v", err)
			}
		})
	}
}

func TestEventLogStore_Batch_ErrorRollsBack(t *testing.T) {
	conn := openTestDB(t)
	s := sqlitestore.NewEventLogStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	boom := errors.New("upstream failed")
	err := s.Batch(ctx, func(ctx context.Context, b store.EventLogBatch) error {
		if _, err := b.Insert(ctx, sampleRecord(1, 1001, time.Now().UTC())); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Batch err = %v, want %v", err, boom)
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected rollback to leave 0 rows, got %d", len(all))
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Round trip of column values
// ═══════════════════════════════════════════════════════════════════════════

func TestEventLogStore_All_ReturnsStoredValues(t *testing.T) {
	conn := openTestDB(t)
	s := sqlitestore.NewEventLogStore(conn, newTestWriter(t, conn))

	ts := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	want := sampleRecord(7, 1002, ts)
	want.TimestampUTC = nil
	insertAll(t, s, want)

	all, err := s.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 row, got %d", len(all))
	}
	got := all[0]

	if got.ID == 0 {
		t.Errorf("ID not populated")
	}
	if got.Identity() != want.Identity() {
		t.Errorf("identity = %+v, want %+v", got.Identity(), want.Identity())
	}
	if got.TimestampUTC != nil {
		t.Errorf("TimestampUTC = %v, want nil", got.TimestampUTC)
	}
	if got.InsertTimestampUTC == nil || !got.InsertTimestampUTC.Equal(*want.InsertTimestampUTC) {
		t.Errorf("InsertTimestampUTC = %v, want %v", got.InsertTimestampUTC, want.InsertTimestampUTC)
	}
	if got.Name != want.Name || got.Email != want.Email || got.MembershipType != want.MembershipType {
		t.Errorf("member fields = %q/%q/%q", got.Name, got.Email, got.MembershipType)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Query: filters, order, paging
// ═══════════════════════════════════════════════════════════════════════════

func TestEventLogStore_Query_FiltersAndOrders(t *testing.T) {
	conn := openTestDB(t)
	s := sqlitestore.NewEventLogStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	base := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	a := sampleRecord(1, 1001, base)
	b := sampleRecord(2, 1002, base.Add(time.Hour))
	c := sampleRecord(3, 1001, base.Add(2*time.Hour))
	c.ControllerID = 303986753
	c.DoorID = 2
	insertAll(t, s, a, b, c)

	got, total, err := s.Query(ctx, types.EventFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 3 || len(got) != 3 {
		t.Fatalf("total=%d len=%d, want 3/3", total, len(got))
	}
	if got[0].EventID != 3 || got[2].EventID != 1 {
		t.Errorf("order = %d,%d,%d, want newest first", got[0].EventID, got[1].EventID, got[2].EventID)
	}

	got, total, err = s.Query(ctx, types.EventFilter{CardNumber: 1001})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 2 || len(got) != 2 {
		t.Errorf("card filter total=%d len=%d, want 2/2", total, len(got))
	}

	got, total, err = s.Query(ctx, types.EventFilter{ControllerID: 405419896, DoorID: 1})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 2 {
		t.Errorf("controller+door filter total=%d, want 2", total)
	}

	got, total, err = s.Query(ctx, types.EventFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 3 || len(got) != 1 || got[0].EventID != 2 {
		t.Errorf("page = total %d, %d rows, first %v", total, len(got), got)
	}
}

func TestNormalizeFilter_Bounds(t *testing.T) {
	if got := store.NormalizeFilter(types.EventFilter{}).Limit; got != store.DefaultQueryLimit {
		t.Errorf("default limit = %d", got)
	}
	if got := store.NormalizeFilter(types.EventFilter{Limit: 5000}).Limit; got != store.MaxQueryLimit {
		t.Errorf("capped limit = %d", got)
	}
	if got := store.NormalizeFilter(types.EventFilter{Offset: -3}).Offset; got != 0 {
		t.Errorf("offset = %d", got)
	}
}

func insertAll(t *testing.T, s *sqlitestore.EventLogStore, recs ...types.EventRecord) {
	t.Helper()
	err := s.Batch(context.Background(), func(ctx context.Context, b store.EventLogBatch) error {
		for _, r := range recs {
			if _, err := b.Insert(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
}
