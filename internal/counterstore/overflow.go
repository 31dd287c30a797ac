package counterstore

import (
	"fmt"
	"math"
)

// OverflowPolicy decides what happens when a delta moves the value past the int64 range.
type OverflowPolicy int

const (
	// OverflowFail rejects the mutation with ErrOverflow.
	OverflowFail OverflowPolicy = iota
	// OverflowWrap uses two's complement wraparound.
	OverflowWrap
	// OverflowSaturate clamps to math.MinInt64 or math.MaxInt64.
	OverflowSaturate
)

var overflowPolicyNames = map[OverflowPolicy]string{
	OverflowFail:     "fail",
	OverflowWrap:     "wrap",
	OverflowSaturate: "saturate",
}

func (p OverflowPolicy) String() string {
	if s, ok := overflowPolicyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("OverflowPolicy(%d)", int(p))
}

// ParseOverflowPolicy converts a policy name from configuration.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	for p, name := range overflowPolicyNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown overflow policy: %q", s)
}

// add returns a+b according to the policy.
func (p OverflowPolicy) add(a, b int64) (int64, error) {
	sum := a + b
	overflow := (b > 0 && sum < a) || (b < 0 && sum > a)
	if !overflow {
		return sum, nil
	}
	switch p {
	case OverflowWrap:
		return sum, nil
	case OverflowSaturate:
		if b > 0 {
			return math.MaxInt64, nil
		}
		return math.MinInt64, nil
	default:
		return a, ErrOverflow
	}
}
