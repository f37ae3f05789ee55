package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portunus/doorsync/internal/db"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
)

const memberColumns = `id, card_number, name, email, phone, login, uid, note, membership_type`

type MemberStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewMemberStore(db *sql.DB, writer *dbpkg.Worker) *MemberStore {
	return &MemberStore{db: db, writer: writer}
}

// Snapshot reads the whole directory at once so a reconcile run joins
// against one consistent view.
func (s *MemberStore) Snapshot(ctx context.Context) (types.MemberSnapshot, error) {
	ms, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	snap := make(types.MemberSnapshot, len(ms))
	for _, m := range ms {
		snap[m.CardNumber] = m
	}
	return snap, nil
}

func (s *MemberStore) Lookup(ctx context.Context, cardNumber uint32) (types.Member, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM members WHERE card_number = ?;", cardNumber)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return types.Member{}, false, nil
	}
	if err != nil {
		return types.Member{}, false, fmt.Errorf("lookup member %d: %w", cardNumber, err)
	}
	return m, true, nil
}

func (s *MemberStore) List(ctx context.Context) ([]types.Member, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+memberColumns+" FROM members ORDER BY id;")
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	out := []types.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return out, nil
}

// Add inserts a member and returns its row id.
func (s *MemberStore) Add(ctx context.Context, m types.Member) (int64, error) {
	var id int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		id, err = insertMember(ctx, tx, m)
		return err
	})
	return id, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(r rowScanner) (types.Member, error) {
	var (
		m   types.Member
		uid sql.NullInt64
	)
	if err := r.Scan(&m.ID, &m.CardNumber, &m.Name, &m.Email, &m.Phone, &m.Login, &uid, &m.Note, &m.MembershipType); err != nil {
		return types.Member{}, err
	}
	if uid.Valid {
		v := uid.Int64
		m.UID = &v
	}
	return m, nil
}

func insertMember(ctx context.Context, q execer, m types.Member) (int64, error) {
	now := time.Now().UTC().UnixMilli()

	var uid any
	if m.UID != nil {
		uid = *m.UID
	}

	res, err := q.ExecContext(ctx, `
INSERT INTO members(
  card_number, name, email, phone, login, uid, note, membership_type,
  created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, m.CardNumber, m.Name, m.Email, m.Phone, m.Login, uid, m.Note, m.MembershipType, now, now)
	if err != nil {
		return 0, fmt.Errorf("insert member %d: %w", m.CardNumber, err)
	}
	return res.LastInsertId()
}
