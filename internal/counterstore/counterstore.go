// Package counterstore holds the counter value and serializes every mutation on it.
package counterstore

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/counter/internal/resumer"
)

// ErrOverflow is returned when a mutation would move the value out of the int64 range
// and the store is configured with OverflowFail.
var ErrOverflow = errors.New("counter overflow")

// Snapshot is a value and the revision that produced it.
type Snapshot struct {
	Value    int64
	Revision uint64
}

// Store is the single source of truth for the counter.
// All methods are safe for concurrent use.
type Store struct {
	overflow OverflowPolicy
	resumer  resumer.Resumer

	m        sync.RWMutex
	value    int64
	revision uint64
}

// New returns a Store starting at initial with revision 0.
// If res is not nil, a previously written state takes precedence over initial
// and every mutation is written to res before it becomes visible.
func New(initial int64, overflow OverflowPolicy, res resumer.Resumer) (*Store, error) {
	if _, ok := overflowPolicyNames[overflow]; !ok {
		return nil, fmt.Errorf("invalid overflow policy: %s", overflow)
	}
	s := &Store{
		overflow: overflow,
		resumer:  res,
		value:    initial,
	}
	if res == nil {
		return s, nil
	}
	st, err := res.Read()
	if err != nil {
		return nil, fmt.Errorf("cannot read counter state: %w", err)
	}
	if st != nil {
		s.value = st.Value
		s.revision = st.Revision
	}
	return s, nil
}

// Read returns the current snapshot.
func (s *Store) Read() Snapshot {
	s.m.RLock()
	defer s.m.RUnlock()
	return Snapshot{Value: s.value, Revision: s.revision}
}

// ApplyDelta adds step to the value. Negative steps decrement.
func (s *Store) ApplyDelta(step int64) (Snapshot, error) {
	s.m.Lock()
	defer s.m.Unlock()
	return s.apply(s.overflow, step)
}

// ApplyConditionalDelta adds step to the value only if the value equals before.
// When the condition does not hold, the state is unchanged and the returned snapshot
// holds the current value with applied=false.
// An applied result is always before+step, so a saturating store reports ErrOverflow
// here instead of clamping.
func (s *Store) ApplyConditionalDelta(before, step int64) (snap Snapshot, applied bool, err error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.value != before {
		return Snapshot{Value: s.value, Revision: s.revision}, false, nil
	}
	policy := s.overflow
	if policy == OverflowSaturate {
		policy = OverflowFail
	}
	snap, err = s.apply(policy, step)
	if err != nil {
		return snap, false, err
	}
	return snap, true, nil
}

// apply must be called with the write lock held.
// State is committed only after the resumer accepted it.
func (s *Store) apply(policy OverflowPolicy, step int64) (Snapshot, error) {
	cur := Snapshot{Value: s.value, Revision: s.revision}
	value, err := policy.add(s.value, step)
	if err != nil {
		return cur, err
	}
	next := Snapshot{Value: value, Revision: s.revision + 1}
	if s.resumer != nil {
		err = s.resumer.Write(resumer.State{Value: next.Value, Revision: next.Revision, UpdatedAt: time.Now()})
		if err != nil {
			return cur, fmt.Errorf("cannot write counter state: %w", err)
		}
	}
	s.value, s.revision = next.Value, next.Revision
	return next, nil
}

// OverflowPolicy returns the policy the store was created with.
func (s *Store) OverflowPolicy() OverflowPolicy {
	return s.overflow
}

// Persistent reports whether mutations are written to a resumer.
func (s *Store) Persistent() bool {
	return s.resumer != nil
}
