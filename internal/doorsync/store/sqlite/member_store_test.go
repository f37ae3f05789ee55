package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/db"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/store"
	sqlitestore "github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/store/sqlite"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
)

func TestMemberStore_SnapshotAndLookup(t *testing.T) {
	conn := openTestDB(t)
	s := sqlitestore.NewMemberStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	if err := db.SeedDev(ctx, conn, db.SeedDevOptions{}); err != nil {
		t.Fatalf("SeedDev: %v", err)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("snapshot size = %d, want 2", len(snap))
	}
	if snap[1001].Name != "Dev Member" {
		t.Errorf("snap[1001] = %+v", snap[1001])
	}

	m, ok, err := s.Lookup(ctx, 1002)
	if err != nil || !ok {
		t.Fatalf("Lookup(1002) = %v, %v", ok, err)
	}
	if m.MembershipType != "admin" {
		t.Errorf("membership = %q", m.MembershipType)
	}

	_, ok, err = s.Lookup(ctx, 9999)
	if err != nil || ok {
		t.Errorf("Lookup(9999) = %v, %v; want not found", ok, err)
	}
}

func TestMemberStore_AddRejectsDuplicateCard(t *testing.T) {
	conn := openTestDB(t)
	s := sqlitestore.NewMemberStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	uid := int64(77)
	id, err := s.Add(ctx, types.Member{CardNumber: 5, Name: "A", UID: &uid})
	if err != nil || id == 0 {
		t.Fatalf("Add = %d, %v", id, err)
	}
	if _, err := s.Add(ctx, types.Member{CardNumber: 5, Name: "B"}); err == nil {
		t.Errorf("expected unique violation on card_number")
	}

	m, _, _ := s.Lookup(ctx, 5)
	if m.UID == nil || *m.UID != 77 {
		t.Errorf("UID = %v", m.UID)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// ArchiveStore
// ═══════════════════════════════════════════════════════════════════════════

func TestArchiveStore_TruncateAndExists(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	members := sqlitestore.NewMemberStore(conn, w)
	events := sqlitestore.NewEventLogStore(conn, w)
	archive := sqlitestore.NewArchiveStore(w)
	ctx := context.Background()

	if _, err := members.Add(ctx, types.Member{CardNumber: 1001}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	rec := sampleRecord(9, 1001, time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC))
	insertAll(t, events, rec)

	err := archive.Import(ctx, func(ctx context.Context, b store.ArchiveBatch) error {
		if ok, err := b.MemberExists(ctx, 1001); err != nil || !ok {
			t.Errorf("MemberExists = %v, %v", ok, err)
		}
		if ok, err := b.EventExists(ctx, rec.ControllerID, rec.EventID, rec.Timestamp); err != nil || !ok {
			t.Errorf("EventExists = %v, %v", ok, err)
		}
		if err := b.Truncate(ctx); err != nil {
			return err
		}
		if ok, _ := b.MemberExists(ctx, 1001); ok {
			t.Errorf("member survived truncate")
		}
		return b.InsertMember(ctx, types.Member{CardNumber: 2002, Name: "Imported"})
	})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	all, _ := events.All(ctx)
	if len(all) != 0 {
		t.Errorf("event_log rows after truncate = %d", len(all))
	}
	list, _ := members.List(ctx)
	if len(list) != 1 || list[0].CardNumber != 2002 {
		t.Errorf("members after import = %+v", list)
	}
}
