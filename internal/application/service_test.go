package application

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/resultcov/internal/domain"
)

type fakeConfigLoader struct {
	exists    bool
	cfg       Config
	existsErr error
	loadErr   error
}

func (f fakeConfigLoader) Exists(path string) (bool, error) {
	return f.exists, f.existsErr
}

func (f fakeConfigLoader) Load(path string) (Config, error) {
	return f.cfg, f.loadErr
}

type fakeSource struct {
	mu          sync.Mutex
	cov         domain.MergedCoverage
	err         error
	loads       int
	invalidated int
}

func (f *fakeSource) Coverage() (domain.MergedCoverage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return f.cov, f.err
}

func (f *fakeSource) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
}

func (f *fakeSource) CachePath() string { return "/repo/coverage/.resultset.json" }

type fakeReporter struct {
	last   AnalysisResult
	writes int
	err    error
}

func (f *fakeReporter) Write(w io.Writer, result AnalysisResult, format OutputFormat) error {
	f.last = result
	f.writes++
	return f.err
}

type countingProgress struct {
	advances int
	done     int
}

func (p *countingProgress) Advance() { p.advances++ }
func (p *countingProgress) Done()    { p.done++ }

func count(n int) *int { return &n }

func repoRoot() string { return filepath.FromSlash("/repo") }

func newTestService(source *fakeSource, reporter *fakeReporter) *Service {
	return &Service{
		ConfigLoader: fakeConfigLoader{exists: true, cfg: Config{Root: repoRoot()}},
		OpenSource:   func(Config) (CoverageSource, error) { return source, nil },
		Reporter:     reporter,
		Out:          &bytes.Buffer{},
	}
}

func TestServiceLoadConfigDefaults(t *testing.T) {
	svc := &Service{ConfigLoader: fakeConfigLoader{exists: false}}
	cfg, err := svc.LoadConfig(".resultcov.yaml")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !filepath.IsAbs(cfg.Root) {
		t.Fatalf("expected absolute root, got %q", cfg.Root)
	}
	if cfg.MergePolicy != domain.PolicySum {
		t.Fatalf("expected sum policy, got %q", cfg.MergePolicy)
	}
	if cfg.MergeTimeout != 0 {
		t.Fatalf("expected unbounded merge timeout")
	}
}

func TestServiceLoadConfigError(t *testing.T) {
	svc := &Service{ConfigLoader: fakeConfigLoader{exists: true, loadErr: errors.New("bad yaml")}}
	if _, err := svc.LoadConfig(".resultcov.yaml"); err == nil {
		t.Fatalf("expected error")
	}
	svc = &Service{ConfigLoader: fakeConfigLoader{existsErr: errors.New("stat failed")}}
	if _, err := svc.LoadConfig(".resultcov.yaml"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestServiceAnalyseGivenPaths(t *testing.T) {
	source := &fakeSource{cov: domain.MergedCoverage{
		filepath.Join(repoRoot(), "lib", "foo.rb"): {count(1), count(1), count(0), nil},
		filepath.Join(repoRoot(), "lib", "bar.rb"): {count(3)},
	}}
	reporter := &fakeReporter{}
	svc := newTestService(source, reporter)

	result, err := svc.Analyse(context.Background(), AnalyseOptions{
		ConfigPath: ".resultcov.yaml",
		Paths:      []string{filepath.Join("lib", "foo.rb"), filepath.Join("lib", "bar.rb"), filepath.Join("lib", "none.rb")},
	})
	if err != nil {
		t.Fatalf("analyse: %v", err)
	}
	if len(result.Modules) != 3 {
		t.Fatalf("expected 3 modules, got %d", len(result.Modules))
	}
	if got := domain.Round2(result.Modules[0].Coverage); got != 66.67 {
		t.Fatalf("expected 66.67, got %v", got)
	}
	if result.Modules[1].Coverage != 100 {
		t.Fatalf("expected 100, got %v", result.Modules[1].Coverage)
	}
	if result.Modules[2].Coverage != 0 {
		t.Fatalf("expected 0 for unmatched module, got %v", result.Modules[2].Coverage)
	}
	if m := result.Modules[0]; m.Relevant != 3 || m.Covered != 2 || m.Missed != 1 {
		t.Fatalf("unexpected line stats for foo.rb: %+v", m)
	}
	if m := result.Modules[2]; m.Relevant != 0 || m.Missed != 0 {
		t.Fatalf("expected zero line stats for unmatched module, got %+v", m)
	}
	if reporter.writes != 1 {
		t.Fatalf("expected one report write, got %d", reporter.writes)
	}
	if result.CachePath != source.CachePath() {
		t.Fatalf("unexpected cache path %q", result.CachePath)
	}
}

func TestServiceAnalyseTrackedFiles(t *testing.T) {
	source := &fakeSource{cov: domain.MergedCoverage{
		filepath.Join(repoRoot(), "lib", "b.rb"): {count(0)},
		filepath.Join(repoRoot(), "lib", "a.rb"): {count(1)},
		filepath.FromSlash("/elsewhere/x.rb"):    {count(1)},
	}}
	svc := newTestService(source, &fakeReporter{})

	result, err := svc.Analyse(context.Background(), AnalyseOptions{})
	if err != nil {
		t.Fatalf("analyse: %v", err)
	}
	if len(result.Modules) != 2 {
		t.Fatalf("expected files outside root to be skipped, got %d modules", len(result.Modules))
	}
	if result.Modules[0].Path != filepath.Join("lib", "a.rb") {
		t.Fatalf("expected sorted module paths, got %q", result.Modules[0].Path)
	}
	if result.Average != 50 {
		t.Fatalf("expected average 50, got %v", result.Average)
	}
	if source.loads != 3 {
		t.Fatalf("expected tracked listing, analyser and line stats to share the source, got %d loads", source.loads)
	}
}

func TestServiceAnalyseSourceError(t *testing.T) {
	source := &fakeSource{err: errors.New("lock failed")}
	reporter := &fakeReporter{}
	svc := newTestService(source, reporter)

	if _, err := svc.Analyse(context.Background(), AnalyseOptions{Paths: []string{"lib/a.rb"}}); err == nil {
		t.Fatalf("expected error")
	}
	if reporter.writes != 0 {
		t.Fatalf("expected no report on failure")
	}
}

func TestServiceAnalyseOpenError(t *testing.T) {
	svc := newTestService(nil, &fakeReporter{})
	svc.OpenSource = func(Config) (CoverageSource, error) { return nil, errors.New("bad policy") }
	if _, err := svc.Analyse(context.Background(), AnalyseOptions{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestServiceAnalyseProgress(t *testing.T) {
	source := &fakeSource{cov: domain.MergedCoverage{}}
	progress := &countingProgress{}
	svc := newTestService(source, &fakeReporter{})
	var total int
	svc.Progress = func(n int) ProgressReporter {
		total = n
		return progress
	}

	if _, err := svc.Analyse(context.Background(), AnalyseOptions{Paths: []string{"a.rb", "b.rb", "c.rb"}}); err != nil {
		t.Fatalf("analyse: %v", err)
	}
	if total != 3 || progress.advances != 3 || progress.done != 1 {
		t.Fatalf("unexpected progress: total=%d advances=%d done=%d", total, progress.advances, progress.done)
	}
}

func TestServiceAnalyseCanceled(t *testing.T) {
	svc := newTestService(&fakeSource{}, &fakeReporter{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Analyse(ctx, AnalyseOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type fakeWatcher struct {
	watched string
	events  chan struct{}
	err     error
}

func (f *fakeWatcher) WatchFile(path string) error {
	f.watched = path
	return f.err
}

func (f *fakeWatcher) Events(ctx context.Context) <-chan struct{} { return f.events }

func TestServiceWatchReanalysesOnChange(t *testing.T) {
	source := &fakeSource{cov: domain.MergedCoverage{}}
	reporter := &fakeReporter{}
	svc := newTestService(source, reporter)
	watcher := &fakeWatcher{events: make(chan struct{})}

	runs := make(chan int, 4)
	done := make(chan error, 1)
	go func() {
		done <- svc.Watch(context.Background(), WatchOptions{Paths: []string{"a.rb"}}, watcher, func(n int, _ AnalysisResult, err error) {
			if err != nil {
				t.Errorf("run %d: %v", n, err)
			}
			runs <- n
		})
	}()

	waitRun(t, runs, 1)
	watcher.events <- struct{}{}
	waitRun(t, runs, 2)
	close(watcher.events)

	if err := <-done; err != nil {
		t.Fatalf("watch: %v", err)
	}
	if watcher.watched != source.CachePath() {
		t.Fatalf("expected resultset to be watched, got %q", watcher.watched)
	}
	source.mu.Lock()
	defer source.mu.Unlock()
	if source.invalidated != 1 {
		t.Fatalf("expected one invalidation, got %d", source.invalidated)
	}
}

func TestServiceWatchFailsWhenWatchFails(t *testing.T) {
	svc := newTestService(&fakeSource{}, &fakeReporter{})
	watcher := &fakeWatcher{err: errors.New("no inotify")}
	if err := svc.Watch(context.Background(), WatchOptions{}, watcher, nil); err == nil {
		t.Fatalf("expected error")
	}
}

func waitRun(t *testing.T, runs <-chan int, want int) {
	t.Helper()
	select {
	case got := <-runs:
		if got != want {
			t.Fatalf("expected run %d, got %d", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for run %d", want)
	}
}
