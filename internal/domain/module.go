package domain

// AnalysedModule is a source file under analysis, owned by the caller.
// The analyser only reads its path and writes its coverage.
type AnalysedModule interface {
	// ModulePath returns the path relative to the project root.
	ModulePath() string
	// SetCoverage stores the computed coverage percentage.
	SetCoverage(percent float64)
}

// SourceModule is the plain AnalysedModule used by the CLI.
type SourceModule struct {
	Path     string  `json:"path"`
	Coverage float64 `json:"coverage"`
	Relevant int     `json:"relevant"`
	Covered  int     `json:"covered"`
	Missed   int     `json:"missed"`
}

// NewSourceModules wraps relative paths into modules with zero coverage.
func NewSourceModules(paths []string) []*SourceModule {
	modules := make([]*SourceModule, 0, len(paths))
	for _, p := range paths {
		modules = append(modules, &SourceModule{Path: p})
	}
	return modules
}

func (m *SourceModule) ModulePath() string { return m.Path }

func (m *SourceModule) SetCoverage(percent float64) { m.Coverage = percent }

// SetLineStats copies the line counts of a tracked file onto the module.
func (m *SourceModule) SetLineStats(f SourceFileCoverage) {
	m.Relevant = f.Relevant
	m.Covered = f.Covered
	m.Missed = f.Missed
}

var _ AnalysedModule = (*SourceModule)(nil)
