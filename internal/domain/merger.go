package domain

import (
	"fmt"
	"time"
)

// CountPolicy combines two non-nil execution counts for the same line.
type CountPolicy func(a, b int) int

// SumCounts accumulates execution evidence across runs.
func SumCounts(a, b int) int { return a + b }

// MaxCounts keeps the highest count seen in any run.
func MaxCounts(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Merge policy names accepted in configuration.
const (
	PolicySum = "sum"
	PolicyMax = "max"
)

// CountPolicyByName resolves a configured policy name. Empty selects sum.
func CountPolicyByName(name string) (CountPolicy, error) {
	switch name {
	case "", PolicySum:
		return SumCounts, nil
	case PolicyMax:
		return MaxCounts, nil
	default:
		return nil, fmt.Errorf("unknown merge policy %q (want %s or %s)", name, PolicySum, PolicyMax)
	}
}

// Merger combines the runs of a resultset into one per-file view.
type Merger struct {
	// Timeout is the maximum age of a run. Zero or negative keeps every run.
	Timeout time.Duration
	// Policy combines counts; nil means SumCounts.
	Policy CountPolicy
	// Now is the clock used for the age cutoff; nil means time.Now.
	Now func() time.Time
}

// Merge drops expired runs and merges the rest. The resultset is not modified.
func (m Merger) Merge(rs Resultset) MergedCoverage {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	return mergeRuns(rs, timeoutSeconds(m.Timeout), now().Unix(), m.Policy)
}

// timeoutSeconds rounds a positive timeout up to whole seconds so that a
// sub-second timeout still enforces a cutoff.
func timeoutSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}

// MergeWithClock merges with an explicit timeout in seconds and current epoch
// second, summing counts.
func MergeWithClock(rs Resultset, timeoutSeconds, now int64) MergedCoverage {
	return mergeRuns(rs, timeoutSeconds, now, SumCounts)
}

func mergeRuns(rs Resultset, timeoutSeconds, now int64, policy CountPolicy) MergedCoverage {
	if policy == nil {
		policy = SumCounts
	}
	merged := make(MergedCoverage)
	for _, name := range rs.RunNames() {
		run := rs[name]
		if timeoutSeconds > 0 && run.Timestamp < now-timeoutSeconds {
			continue
		}
		for file, fc := range run.Coverage {
			existing, ok := merged[file]
			if !ok {
				merged[file] = fc.Lines.Clone()
				continue
			}
			merged[file] = mergeLines(existing, fc.Lines, policy)
		}
	}
	return merged
}

// mergeLines aligns by index up to the shorter list and drops the remainder.
func mergeLines(a, b Lines, policy CountPolicy) Lines {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make(Lines, n)
	for i := 0; i < n; i++ {
		switch {
		case a[i] == nil && b[i] == nil:
		case a[i] == nil:
			v := *b[i]
			out[i] = &v
		case b[i] == nil:
			v := *a[i]
			out[i] = &v
		default:
			v := policy(*a[i], *b[i])
			out[i] = &v
		}
	}
	return out
}
