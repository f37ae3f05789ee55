package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portunus/doorsync/internal/db"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/store"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
)

const eventColumns = `id, controller_id, event_id, timestamp, card_number, event_type, event_type_text,
  access_granted, door_id, direction, direction_text, event_reason, event_reason_text,
  timestamp_utc_ms, insert_timestamp_utc_ms, name, email, membership_type`

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type EventLogStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewEventLogStore(db *sql.DB, writer *dbpkg.Worker) *EventLogStore {
	return &EventLogStore{db: db, writer: writer}
}

func (s *EventLogStore) Batch(ctx context.Context, fn func(ctx context.Context, b store.EventLogBatch) error) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, eventTx{tx: tx})
	})
}

type eventTx struct {
	tx *sql.Tx
}

func (b eventTx) Exists(ctx context.Context, id types.EventIdentity) (bool, error) {
	return eventExists(ctx, b.tx, id)
}

func (b eventTx) Insert(ctx context.Context, rec types.EventRecord) (int64, error) {
	return insertEvent(ctx, b.tx, rec)
}

func eventExists(ctx context.Context, q execer, id types.EventIdentity) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `
SELECT 1 FROM event_log
WHERE controller_id = ? AND event_id = ? AND timestamp = ? AND card_number = ?
  AND event_type = ? AND event_type_text = ? AND access_granted = ? AND door_id = ?
  AND direction = ? AND direction_text = ? AND event_reason = ? AND event_reason_text = ?
LIMIT 1;
`,
		id.ControllerID, id.EventID, id.Timestamp, id.CardNumber,
		id.EventType, id.EventTypeText, boolInt(id.AccessGranted), id.DoorID,
		id.Direction, id.DirectionText, id.EventReason, id.EventReasonText,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("event exists: %w", err)
	}
	return true, nil
}

func insertEvent(ctx context.Context, q execer, rec types.EventRecord) (int64, error) {
	res, err := q.ExecContext(ctx, `
INSERT INTO event_log(
  controller_id, event_id, timestamp, card_number, event_type, event_type_text,
  access_granted, door_id, direction, direction_text, event_reason, event_reason_text,
  timestamp_utc_ms, insert_timestamp_utc_ms, name, email, membership_type
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
		rec.ControllerID, rec.EventID, rec.Timestamp, rec.CardNumber, rec.EventType, rec.EventTypeText,
		boolInt(rec.AccessGranted), rec.DoorID, rec.Direction, rec.DirectionText, rec.EventReason, rec.EventReasonText,
		msOrNil(rec.TimestampUTC), msOrNil(rec.InsertTimestampUTC), rec.Name, rec.Email, rec.MembershipType,
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return res.LastInsertId()
}

func (s *EventLogStore) Query(ctx context.Context, f types.EventFilter) ([]types.EventRecord, int, error) {
	f = store.NormalizeFilter(f)

	var (
		where []string
		args  []any
	)
	if f.ControllerID != 0 {
		where = append(where, "controller_id = ?")
		args = append(args, f.ControllerID)
	}
	if f.CardNumber != 0 {
		where = append(where, "card_number = ?")
		args = append(args, f.CardNumber)
	}
	if f.DoorID != 0 {
		where = append(where, "door_id = ?")
		args = append(args, f.DoorID)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM event_log"+cond+";", args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM event_log"+cond+
			" ORDER BY timestamp_utc_ms DESC, id DESC LIMIT ? OFFSET ?;",
		append(args, f.Limit, f.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out, err := scanEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *EventLogStore) All(ctx context.Context) ([]types.EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+eventColumns+" FROM event_log ORDER BY id;")
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]types.EventRecord, error) {
	out := []types.EventRecord{}
	for rows.Next() {
		var (
			r                types.EventRecord
			granted          int
			tsMs, insertedMs sql.NullInt64
		)
		if err := rows.Scan(
			&r.ID, &r.ControllerID, &r.EventID, &r.Timestamp, &r.CardNumber, &r.EventType, &r.EventTypeText,
			&granted, &r.DoorID, &r.Direction, &r.DirectionText, &r.EventReason, &r.EventReasonText,
			&tsMs, &insertedMs, &r.Name, &r.Email, &r.MembershipType,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		r.AccessGranted = granted != 0
		r.TimestampUTC = timeOrNil(tsMs)
		r.InsertTimestampUTC = timeOrNil(insertedMs)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func msOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().UnixMilli()
}

func timeOrNil(ms sql.NullInt64) *time.Time {
	if !ms.Valid {
		return nil
	}
	t := time.UnixMilli(ms.Int64).UTC()
	return &t
}
