package domain

// PercentFor returns the covered percent of root joined with modulePath.
// Untracked files and files without relevant lines yield 0.
func PercentFor(root, modulePath string, cov MergedCoverage) float64 {
	lines, ok := cov.Lookup(root, modulePath)
	if !ok {
		return 0
	}
	return lines.CoveredPercent()
}
