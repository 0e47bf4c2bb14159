package domain

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"sort"
)

// Lines holds per-line execution counts for one source file.
// A nil entry marks a line that is not relevant for coverage (blank, comment).
type Lines []*int

// Relevant returns the number of lines that count towards coverage.
func (l Lines) Relevant() int {
	n := 0
	for _, hit := range l {
		if hit != nil {
			n++
		}
	}
	return n
}

// Covered returns the number of relevant lines executed at least once.
func (l Lines) Covered() int {
	n := 0
	for _, hit := range l {
		if hit != nil && *hit > 0 {
			n++
		}
	}
	return n
}

// Missed returns the number of relevant lines that never executed.
func (l Lines) Missed() int {
	return l.Relevant() - l.Covered()
}

// CoveredPercent returns 100 * covered / relevant, or 0 when nothing is relevant.
func (l Lines) CoveredPercent() float64 {
	return PercentageFromRatio(l.Covered(), l.Relevant()).Value()
}

// Clone returns a deep copy so callers can never alias stored counts.
func (l Lines) Clone() Lines {
	if l == nil {
		return nil
	}
	out := make(Lines, len(l))
	for i, hit := range l {
		if hit != nil {
			v := *hit
			out[i] = &v
		}
	}
	return out
}

// FileCoverage is the per-file record stored in a run.
type FileCoverage struct {
	Lines Lines `json:"lines"`
}

// UnmarshalJSON accepts both {"lines": [...]} and the legacy bare array form.
func (f *FileCoverage) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var lines Lines
		if err := json.Unmarshal(trimmed, &lines); err != nil {
			return err
		}
		f.Lines = lines
		return nil
	}
	type plain FileCoverage
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*f = FileCoverage(p)
	return nil
}

// Run is one named entry of a resultset.
type Run struct {
	Coverage  map[string]FileCoverage `json:"coverage"`
	Timestamp int64                   `json:"timestamp"`
}

// Resultset maps run names (e.g. "RSpec", "Minitest") to recorded runs.
type Resultset map[string]Run

// RunNames returns the run names in sorted order.
func (r Resultset) RunNames() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MergedCoverage maps absolute file paths to line counts combined across runs.
type MergedCoverage map[string]Lines

// Files returns the tracked absolute paths in sorted order.
func (m MergedCoverage) Files() []string {
	files := make([]string, 0, len(m))
	for file := range m {
		files = append(files, file)
	}
	sort.Strings(files)
	return files
}

// SourceFiles returns the covered-percent and line-count view of every
// tracked file, sorted by path.
func (m MergedCoverage) SourceFiles() []SourceFileCoverage {
	files := m.Files()
	out := make([]SourceFileCoverage, 0, len(files))
	for _, file := range files {
		out = append(out, SourceFileCoverage{
			Path:           file,
			CoveredPercent: m[file].CoveredPercent(),
			Relevant:       m[file].Relevant(),
			Covered:        m[file].Covered(),
			Missed:         m[file].Missed(),
		})
	}
	return out
}

// Lookup returns the line counts for root joined with a module path.
// The key is built with filepath.Join only; no case folding or symlink resolution.
func (m MergedCoverage) Lookup(root, modulePath string) (Lines, bool) {
	lines, ok := m[filepath.Join(root, modulePath)]
	return lines, ok
}

// SourceFileCoverage is the derived coverage view of one file.
type SourceFileCoverage struct {
	Path           string  `json:"path"`
	CoveredPercent float64 `json:"covered_percent"`
	Relevant       int     `json:"relevant"`
	Covered        int     `json:"covered"`
	Missed         int     `json:"missed"`
}
