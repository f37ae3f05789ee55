package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	dbpkg "github.com/BrandonDHaskell/Portunus/doorsync/internal/db"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/store"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
)

// ArchiveStore runs administrative imports across the member directory and
// the event log in one transaction.
type ArchiveStore struct {
	writer *dbpkg.Worker
}

func NewArchiveStore(writer *dbpkg.Worker) *ArchiveStore {
	return &ArchiveStore{writer: writer}
}

func (s *ArchiveStore) Import(ctx context.Context, fn func(ctx context.Context, b store.ArchiveBatch) error) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, archiveTx{tx: tx})
	})
}

type archiveTx struct {
	tx *sql.Tx
}

// Truncate is the only path that deletes from the event log.
func (b archiveTx) Truncate(ctx context.Context) error {
	if _, err := b.tx.ExecContext(ctx, "DELETE FROM event_log;"); err != nil {
		return fmt.Errorf("truncate event_log: %w", err)
	}
	if _, err := b.tx.ExecContext(ctx, "DELETE FROM members;"); err != nil {
		return fmt.Errorf("truncate members: %w", err)
	}
	return nil
}

func (b archiveTx) MemberExists(ctx context.Context, cardNumber uint32) (bool, error) {
	var one int
	err := b.tx.QueryRowContext(ctx, "SELECT 1 FROM members WHERE card_number = ? LIMIT 1;", cardNumber).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("member exists: %w", err)
	}
	return true, nil
}

func (b archiveTx) InsertMember(ctx context.Context, m types.Member) error {
	_, err := insertMember(ctx, b.tx, m)
	return err
}

func (b archiveTx) EventExists(ctx context.Context, controllerID, eventID uint32, timestamp string) (bool, error) {
	var one int
	err := b.tx.QueryRowContext(ctx, `
SELECT 1 FROM event_log WHERE controller_id = ? AND event_id = ? AND timestamp = ? LIMIT 1;
`, controllerID, eventID, timestamp).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("event exists: %w", err)
	}
	return true, nil
}

func (b archiveTx) InsertEvent(ctx context.Context, rec types.EventRecord) error {
	_, err := insertEvent(ctx, b.tx, rec)
	return err
}
