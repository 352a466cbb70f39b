package status

import (
	"sort"

	"aggregator/core"
)

// Store collateral and debt flags of every user
type Store struct {
	users map[string]*core.UserStatus
}

// New new status store
func New() *Store {
	return &Store{users: map[string]*core.UserStatus{}}
}

// Get status of user, never nil
func (s *Store) Get(user string) *core.UserStatus {
	if st, ok := s.users[user]; ok {
		return st.Clone()
	}

	return &core.UserStatus{User: user}
}

// Flags flags of user at asset index
func (s *Store) Flags(user string, index int) core.AssetFlags {
	if st, ok := s.users[user]; ok {
		return st.Get(index)
	}

	return core.AssetFlags{}
}

// Set write the flags of user at asset index and report if they changed
func (s *Store) Set(user string, index int, flags core.AssetFlags) bool {
	st, ok := s.users[user]
	if !ok {
		if flags == (core.AssetFlags{}) {
			return false
		}

		st = &core.UserStatus{User: user}
		s.users[user] = st
	}

	if st.Get(index) == flags {
		return false
	}

	st.Set(index, flags)
	return true
}

// Users every user with a status, sorted
func (s *Store) Users() []string {
	users := make([]string, 0, len(s.users))
	for u := range s.users {
		users = append(users, u)
	}

	sort.Strings(users)
	return users
}

// Snapshot deep copy of all statuses
func (s *Store) Snapshot() map[string]*core.UserStatus {
	out := make(map[string]*core.UserStatus, len(s.users))
	for u, st := range s.users {
		out[u] = st.Clone()
	}

	return out
}

// Restore replace all statuses with snapshot
func (s *Store) Restore(snapshot map[string]*core.UserStatus) {
	s.users = make(map[string]*core.UserStatus, len(snapshot))
	for u, st := range snapshot {
		s.users[u] = st.Clone()
	}
}
