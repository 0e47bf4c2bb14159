package resultset

import (
	"errors"

	"github.com/go-logr/logr"

	"github.com/felixgeelhaar/resultcov/internal/domain"
)

// Loader reads, parses and merges the cache once and memoizes the result for
// its own lifetime. Call Invalidate to force a fresh read.
type Loader struct {
	Reader *Reader
	Merger domain.Merger
	Log    logr.Logger

	resultset domain.Resultset
	coverage  domain.MergedCoverage
	parsed    bool
	merged    bool
}

// NewLoader creates a Loader reading from loc.
func NewLoader(loc Location, merger domain.Merger, log logr.Logger) *Loader {
	return &Loader{
		Reader: NewReader(loc),
		Merger: merger,
		Log:    log,
	}
}

// Resultset returns the raw decoded cache. Lock and I/O failures are returned;
// a malformed cache is logged and treated as empty.
func (l *Loader) Resultset() (domain.Resultset, error) {
	if l.parsed {
		return l.resultset, nil
	}

	data, err := l.Reader.Read()
	if err != nil {
		return nil, err
	}

	rs, err := Parse(data)
	if err != nil {
		var perr *ParseError
		if !errors.As(err, &perr) {
			return nil, err
		}
		l.Log.Error(perr, "failed to load resultset, continuing without coverage", "path", l.Reader.Location.Path)
	}

	l.Log.V(1).Info("loaded resultset", "path", l.Reader.Location.Path, "runs", len(rs), "present", data != nil)
	l.resultset = rs
	l.parsed = true
	return rs, nil
}

// Coverage returns the merged per-file coverage.
func (l *Loader) Coverage() (domain.MergedCoverage, error) {
	if l.merged {
		return l.coverage, nil
	}

	rs, err := l.Resultset()
	if err != nil {
		return nil, err
	}

	l.coverage = l.Merger.Merge(rs)
	l.merged = true
	l.Log.V(1).Info("merged resultset", "files", len(l.coverage))
	return l.coverage, nil
}

// CachePath returns the resultset file this Loader reads.
func (l *Loader) CachePath() string {
	return l.Reader.Location.Path
}

// Invalidate drops the memoized resultset and coverage.
func (l *Loader) Invalidate() {
	l.resultset = nil
	l.coverage = nil
	l.parsed = false
	l.merged = false
}
