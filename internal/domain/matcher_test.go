package domain

import (
	"math"
	"testing"
)

func TestPercentFor(t *testing.T) {
	cov := MergedCoverage{
		"/repo/lib/foo.rb":   hits(1, 1, 0, -1),
		"/repo/lib/empty.rb": hits(-1, -1),
	}

	t.Run("matches root joined with module path", func(t *testing.T) {
		got := PercentFor("/repo", "lib/foo.rb", cov)
		if math.Abs(got-66.67) > 0.01 {
			t.Errorf("expected ~66.67, got %v", got)
		}
	})

	t.Run("unmatched module yields zero", func(t *testing.T) {
		if got := PercentFor("/repo", "lib/missing.rb", cov); got != 0 {
			t.Errorf("expected 0, got %v", got)
		}
	})

	t.Run("file without relevant lines yields zero", func(t *testing.T) {
		if got := PercentFor("/repo", "lib/empty.rb", cov); got != 0 {
			t.Errorf("expected 0, got %v", got)
		}
	})

	t.Run("join cleans dot-dot segments of the module path", func(t *testing.T) {
		got := PercentFor("/repo", "lib/sub/../foo.rb", cov)
		if math.Abs(got-66.67) > 0.01 {
			t.Errorf("expected ~66.67 for cleaned key, got %v", got)
		}
		if got := PercentFor("/repo/lib", "../lib//foo.rb", cov); math.Abs(got-66.67) > 0.01 {
			t.Errorf("expected doubled separators to collapse, got %v", got)
		}
	})

	t.Run("empty coverage yields zero", func(t *testing.T) {
		if got := PercentFor("/repo", "lib/foo.rb", nil); got != 0 {
			t.Errorf("expected 0, got %v", got)
		}
	})
}
