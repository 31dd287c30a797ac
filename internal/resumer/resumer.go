// Package resumer contains an interface that is used by the counter store for restoring its state after a restart.
package resumer

import "time"

// Resumer provides operations to save and load the counter state.
type Resumer interface {
	// Read returns the last written state. It returns nil State if nothing was written yet.
	Read() (*State, error)
	Write(State) error
}

// State is the persisted form of the counter.
type State struct {
	Value     int64
	Revision  uint64
	UpdatedAt time.Time
}
