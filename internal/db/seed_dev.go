package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type SeedMember struct {
	CardNumber     uint32
	Name           string
	Email          string
	MembershipType string
}

type SeedDevOptions struct {
	Members []SeedMember // nil seeds DevMembers
}

// DevMembers is the starter directory used in dev when nothing else is given.
var DevMembers = []SeedMember{
	{CardNumber: 1001, Name: "Dev Member", Email: "dev@example.org", MembershipType: "member"},
	{CardNumber: 1002, Name: "Dev Admin", Email: "admin@example.org", MembershipType: "admin"},
}

// SeedDev inserts the given members, leaving existing card numbers untouched.
func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	members := opt.Members
	if members == nil {
		members = DevMembers
	}
	now := time.Now().UTC().UnixMilli()

	for _, m := range members {
		if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO members(
  card_number, name, email, membership_type, created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?);
`, m.CardNumber, m.Name, m.Email, m.MembershipType, now, now); err != nil {
			return fmt.Errorf("seed member %d: %w", m.CardNumber, err)
		}
	}
	return nil
}
