package sqlite_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/db"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
)

// openTestDB returns an in-memory SQLite connection with the same PRAGMAs
// and schema as production. The connection is closed automatically when the
// test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Each test gets its own named shared-cache database so that sql.DB
	// reopening the underlying conn keeps the data.
	conn, err := db.OpenMemory(context.Background(), "test_"+strings.ReplaceAll(t.Name(), "/", "_"))
	if err != nil {
		t.Fatalf("openTestDB: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker backed by conn. The worker is closed
// automatically when the test finishes.
func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(func() { w.Close() })
	return w
}

func sampleRecord(eventID uint32, card uint32, ts time.Time) types.EventRecord {
	inserted := ts.Add(time.Minute)
	return types.EventRecord{
		ControllerID:       405419896,
		EventID:            eventID,
		Timestamp:          ts.Format("2006-01-02 15:04:05") + " UTC",
		TimestampUTC:       &ts,
		CardNumber:         card,
		EventType:          1,
		EventTypeText:      "card swipe",
		AccessGranted:      true,
		DoorID:             1,
		Direction:          1,
		DirectionText:      "in",
		EventReason:        1,
		EventReasonText:    "swipe",
		InsertTimestampUTC: &inserted,
		Name:               "Dev Member",
		Email:              "dev@example.org",
		MembershipType:     "member",
	}
}
