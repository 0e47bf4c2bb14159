package application

import "github.com/felixgeelhaar/resultcov/internal/domain"

// CoverageAnalyser writes a coverage percentage onto each analysed module.
type CoverageAnalyser struct {
	Source   CoverageSource
	Root     string
	Progress ProgressReporter
}

// Run matches every module against the merged coverage, in order.
// Coverage is loaded before any module is touched, so a lock or I/O failure
// leaves all modules unchanged.
func (a *CoverageAnalyser) Run(modules []domain.AnalysedModule) error {
	progress := a.Progress
	if progress == nil {
		progress = NopProgress
	}
	defer progress.Done()

	cov, err := a.Source.Coverage()
	if err != nil {
		return err
	}
	for _, m := range modules {
		m.SetCoverage(domain.PercentFor(a.Root, m.ModulePath(), cov))
		progress.Advance()
	}
	return nil
}

func (a *CoverageAnalyser) String() string {
	return "simple_cov"
}
