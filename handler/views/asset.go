package views

import (
	"aggregator/core"
)

// Asset asset view
type Asset struct {
	*core.Asset
	Paused   core.PauseMask     `json:"paused"`
	Indices  *core.Indices      `json:"indices,omitempty"`
	Supplied *core.Totals       `json:"supplied,omitempty"`
	Borrowed *core.Totals       `json:"borrowed,omitempty"`
	Fee      *core.FeeState     `json:"fee,omitempty"`
	Pending  []core.PendingNode `json:"pending,omitempty"`
}
