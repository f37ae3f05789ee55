package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
)

type MemberStore struct {
	mu      sync.RWMutex
	nextID  int64
	members []types.Member
}

func NewMemberStore(members ...types.Member) *MemberStore {
	s := &MemberStore{nextID: 1}
	for _, m := range members {
		_, _ = s.Add(context.Background(), m)
	}
	return s
}

func (s *MemberStore) Snapshot(_ context.Context) (types.MemberSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(types.MemberSnapshot, len(s.members))
	for _, m := range s.members {
		snap[m.CardNumber] = m
	}
	return snap, nil
}

func (s *MemberStore) Lookup(_ context.Context, cardNumber uint32) (types.Member, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.CardNumber == cardNumber {
			return m, true, nil
		}
	}
	return types.Member{}, false, nil
}

func (s *MemberStore) List(_ context.Context) ([]types.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Member, len(s.members))
	copy(out, s.members)
	return out, nil
}

// Add inserts m; card numbers are unique.
func (s *MemberStore) Add(_ context.Context, m types.Member) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(m)
}

// Update replaces the profile stored for m.CardNumber.
func (s *MemberStore) Update(_ context.Context, m types.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.members {
		if s.members[i].CardNumber == m.CardNumber {
			m.ID = s.members[i].ID
			s.members[i] = m
			return nil
		}
	}
	return fmt.Errorf("member %d not found", m.CardNumber)
}

func (s *MemberStore) addLocked(m types.Member) (int64, error) {
	for _, existing := range s.members {
		if existing.CardNumber == m.CardNumber {
			return 0, errDuplicateCard(m.CardNumber)
		}
	}
	m.ID = s.nextID
	s.nextID++
	s.members = append(s.members, m)
	return m.ID, nil
}
