package status

import (
	"testing"

	"aggregator/core"

	"github.com/stretchr/testify/assert"
)

func TestSetGet(t *testing.T) {
	s := New()

	assert.False(t, s.Set("alice", 2, core.AssetFlags{}))
	assert.Empty(t, s.Users())

	assert.True(t, s.Set("alice", 2, core.AssetFlags{Collateral: true}))
	assert.False(t, s.Set("alice", 2, core.AssetFlags{Collateral: true}))
	assert.True(t, s.Set("alice", 0, core.AssetFlags{Debt: true}))

	st := s.Get("alice")
	assert.Equal(t, core.AssetFlags{Debt: true}, st.Get(0))
	assert.Equal(t, core.AssetFlags{}, st.Get(1))
	assert.Equal(t, core.AssetFlags{Collateral: true}, st.Get(2))
	assert.True(t, st.HasDebt())

	// bit 1 for debt at 0, bit 4 for collateral at 2
	assert.Equal(t, uint64(0b10010), st.Packed().Uint64())

	assert.Equal(t, core.AssetFlags{}, s.Flags("bob", 0))
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	s.Set("alice", 0, core.AssetFlags{Collateral: true})

	st := s.Get("alice")
	st.Set(0, core.AssetFlags{})
	assert.Equal(t, core.AssetFlags{Collateral: true}, s.Flags("alice", 0))
}

func TestSnapshotRestore(t *testing.T) {
	s := New()
	s.Set("alice", 0, core.AssetFlags{Collateral: true})
	snap := s.Snapshot()

	s.Set("alice", 0, core.AssetFlags{Debt: true})
	s.Set("bob", 1, core.AssetFlags{Debt: true})

	s.Restore(snap)
	assert.Equal(t, core.AssetFlags{Collateral: true}, s.Flags("alice", 0))
	assert.Equal(t, []string{"alice"}, s.Users())
}
