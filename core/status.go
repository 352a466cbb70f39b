package core

import (
	"github.com/holiman/uint256"
)

// AssetFlags per asset status of a user
type AssetFlags struct {
	Collateral bool `json:"collateral"`
	Debt       bool `json:"debt"`
}

// UserStatus collateral and debt flags of one user, indexed by asset index
type UserStatus struct {
	User  string       `json:"user"`
	Flags []AssetFlags `json:"flags"`
}

// Get flags of asset index, zero value when unset
func (s *UserStatus) Get(index int) AssetFlags {
	if index < 0 || index >= len(s.Flags) {
		return AssetFlags{}
	}

	return s.Flags[index]
}

// Set flags of asset index, growing the slice on demand
func (s *UserStatus) Set(index int, flags AssetFlags) {
	if index < 0 {
		return
	}

	for len(s.Flags) <= index {
		s.Flags = append(s.Flags, AssetFlags{})
	}

	s.Flags[index] = flags
}

// HasDebt report if any asset is borrowed
func (s *UserStatus) HasDebt() bool {
	for _, f := range s.Flags {
		if f.Debt {
			return true
		}
	}

	return false
}

// Packed two bits per asset, bit 2i collateral and bit 2i+1 debt
func (s *UserStatus) Packed() *uint256.Int {
	packed := new(uint256.Int)
	one := uint256.NewInt(1)
	for idx, f := range s.Flags {
		if idx >= 128 {
			break
		}

		if f.Collateral {
			packed.Or(packed, new(uint256.Int).Lsh(one, uint(2*idx)))
		}

		if f.Debt {
			packed.Or(packed, new(uint256.Int).Lsh(one, uint(2*idx+1)))
		}
	}

	return packed
}

// Clone deep copy
func (s *UserStatus) Clone() *UserStatus {
	flags := make([]AssetFlags, len(s.Flags))
	copy(flags, s.Flags)
	return &UserStatus{
		User:  s.User,
		Flags: flags,
	}
}
