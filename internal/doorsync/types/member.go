package types

// UnknownMember is shown in place of member fields for cards that are not in
// the directory.
const UnknownMember = "Undefined"

type Member struct {
	ID             int64  `json:"id,omitempty"`
	CardNumber     uint32 `json:"card_number"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Login          string `json:"login"`
	UID            *int64 `json:"uid"`
	Note           string `json:"note"`
	MembershipType string `json:"membership_type"`
}

// MemberSnapshot maps card numbers to members as of one point in time.
type MemberSnapshot map[uint32]Member
