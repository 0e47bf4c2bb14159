package application

import (
	"context"
	"io"
	"time"

	"github.com/felixgeelhaar/resultcov/internal/domain"
)

type OutputFormat string

const (
	OutputText  OutputFormat = "text"
	OutputJSON  OutputFormat = "json"
	OutputBrief OutputFormat = "brief"
)

// ConfigVersion is the only configuration schema version understood.
const ConfigVersion = 1

// Config represents validated, application-ready configuration.
type Config struct {
	Version int
	// Root is the project root that module paths are relative to.
	Root string
	// CoverageDir overrides the directory holding .resultset.json.
	CoverageDir string
	// MergeTimeout is the maximum age of a run; zero keeps every run.
	MergeTimeout time.Duration
	// MergePolicy selects how counts of one line combine across runs.
	MergePolicy string
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Version:     ConfigVersion,
		Root:        ".",
		MergePolicy: domain.PolicySum,
	}
}

type ConfigLoader interface {
	Load(path string) (Config, error)
	Exists(path string) (bool, error)
}

// CoverageSource provides merged coverage, memoized until Invalidate.
type CoverageSource interface {
	Coverage() (domain.MergedCoverage, error)
	Invalidate()
	// CachePath returns the resultset file the source reads.
	CachePath() string
}

// SourceOpener builds a CoverageSource for a root-resolved configuration.
type SourceOpener func(cfg Config) (CoverageSource, error)

// ProgressReporter receives one Advance per analysed module.
type ProgressReporter interface {
	Advance()
	Done()
}

// ProgressFactory creates a reporter for a run over total modules.
type ProgressFactory func(total int) ProgressReporter

type nopProgress struct{}

func (nopProgress) Advance() {}
func (nopProgress) Done()    {}

// NopProgress discards progress signals.
var NopProgress ProgressReporter = nopProgress{}

type Reporter interface {
	Write(w io.Writer, result AnalysisResult, format OutputFormat) error
}

// FileWatcher abstracts file system watching for the resultset.
type FileWatcher interface {
	WatchFile(path string) error
	Events(ctx context.Context) <-chan struct{}
}

// WatchCallback is called after each analysis in watch mode.
type WatchCallback func(runNumber int, result AnalysisResult, err error)

// AnalysisResult is the outcome of one analysis pass.
type AnalysisResult struct {
	Root      string                 `json:"root"`
	CachePath string                 `json:"cache_path"`
	Modules   []*domain.SourceModule `json:"modules"`
	Average   float64                `json:"average"`
}
