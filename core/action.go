package core

// Action ledger operation
type Action string

const (
	// ActionSupply supply
	ActionSupply Action = "supply"
	// ActionRedeem redeem
	ActionRedeem Action = "redeem"
	// ActionBorrow borrow
	ActionBorrow Action = "borrow"
	// ActionRepay repay
	ActionRepay Action = "repay"
	// ActionLiquidate liquidate
	ActionLiquidate Action = "liquidate"
	// ActionFlush flush pending supplies
	ActionFlush Action = "flush"
	// ActionAdmin admin change
	ActionAdmin Action = "admin"
)

// PauseMask bitmask of blocked actions
type PauseMask uint8

const (
	// PauseSupply block supply
	PauseSupply PauseMask = 1 << iota
	// PauseRedeem block redeem
	PauseRedeem
	// PauseBorrow block borrow
	PauseBorrow
	// PauseRepay block repay
	PauseRepay
	// PauseLiquidate block liquidate
	PauseLiquidate

	// PauseAll every action
	PauseAll = PauseSupply | PauseRedeem | PauseBorrow | PauseRepay | PauseLiquidate
)

// Mask pause bit of the action, zero for actions that can't be paused
func (a Action) Mask() PauseMask {
	switch a {
	case ActionSupply:
		return PauseSupply
	case ActionRedeem:
		return PauseRedeem
	case ActionBorrow:
		return PauseBorrow
	case ActionRepay:
		return PauseRepay
	case ActionLiquidate:
		return PauseLiquidate
	}

	return 0
}

// Blocks report if the mask blocks the action
func (m PauseMask) Blocks(a Action) bool {
	bit := a.Mask()
	return bit != 0 && m&bit != 0
}
