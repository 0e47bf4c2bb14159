package domain

import "testing"

func TestNewSourceModules(t *testing.T) {
	modules := NewSourceModules([]string{"lib/a.rb", "lib/b.rb"})
	if len(modules) != 2 {
		t.Fatalf("expected 2 modules, got %d", len(modules))
	}
	for _, m := range modules {
		if m.Coverage != 0 {
			t.Errorf("expected zero coverage for %s, got %v", m.Path, m.Coverage)
		}
	}

	var analysed AnalysedModule = modules[1]
	if analysed.ModulePath() != "lib/b.rb" {
		t.Errorf("unexpected path %q", analysed.ModulePath())
	}
	analysed.SetCoverage(75)
	if modules[1].Coverage != 75 {
		t.Errorf("expected coverage written through, got %v", modules[1].Coverage)
	}
}

func TestNewSourceModulesEmpty(t *testing.T) {
	if modules := NewSourceModules(nil); len(modules) != 0 {
		t.Fatalf("expected no modules, got %d", len(modules))
	}
}

func TestSourceModuleSetLineStats(t *testing.T) {
	m := &SourceModule{Path: "lib/a.rb"}
	m.SetLineStats(SourceFileCoverage{Relevant: 4, Covered: 3, Missed: 1})
	if m.Relevant != 4 || m.Covered != 3 || m.Missed != 1 {
		t.Fatalf("unexpected line stats: %+v", m)
	}
}
