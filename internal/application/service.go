package application

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"

	"github.com/felixgeelhaar/resultcov/internal/domain"
)

type Service struct {
	ConfigLoader ConfigLoader
	OpenSource   SourceOpener
	Reporter     Reporter
	Progress     ProgressFactory
	Log          logr.Logger
	Out          io.Writer
}

type AnalyseOptions struct {
	ConfigPath string
	Paths      []string
	Output     OutputFormat
}

type WatchOptions struct {
	ConfigPath string
	Paths      []string
	Output     OutputFormat
}

// LoadConfig reads the config file, falling back to defaults when it does
// not exist, and resolves the project root to an absolute path.
func (s *Service) LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		ok, err := s.ConfigLoader.Exists(path)
		if err != nil {
			return Config{}, err
		}
		if ok {
			cfg, err = s.ConfigLoader.Load(path)
			if err != nil {
				return Config{}, fmt.Errorf("load config %s: %w", path, err)
			}
		}
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return Config{}, fmt.Errorf("resolve root %s: %w", cfg.Root, err)
	}
	cfg.Root = root
	return cfg, nil
}

// Analyse computes coverage for the requested paths, or for every tracked
// file under the root when no path is given, and writes the report.
func (s *Service) Analyse(ctx context.Context, opts AnalyseOptions) (AnalysisResult, error) {
	cfg, err := s.LoadConfig(opts.ConfigPath)
	if err != nil {
		return AnalysisResult{}, err
	}
	source, err := s.OpenSource(cfg)
	if err != nil {
		return AnalysisResult{}, err
	}
	result, err := s.analyse(ctx, cfg, source, opts.Paths)
	if err != nil {
		return AnalysisResult{}, err
	}
	return result, s.Reporter.Write(s.Out, result, opts.Output)
}

// Watch analyses once, then again every time the resultset is rewritten.
func (s *Service) Watch(ctx context.Context, opts WatchOptions, watcher FileWatcher, callback WatchCallback) error {
	cfg, err := s.LoadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	source, err := s.OpenSource(cfg)
	if err != nil {
		return err
	}
	if err := watcher.WatchFile(source.CachePath()); err != nil {
		return fmt.Errorf("failed to watch resultset: %w", err)
	}

	runNumber := 1
	s.runWatched(ctx, cfg, source, opts, runNumber, callback)

	events := watcher.Events(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-events:
			if !ok {
				return nil
			}
			runNumber++
			source.Invalidate()
			s.runWatched(ctx, cfg, source, opts, runNumber, callback)
		}
	}
}

func (s *Service) runWatched(ctx context.Context, cfg Config, source CoverageSource, opts WatchOptions, runNumber int, callback WatchCallback) {
	result, err := s.analyse(ctx, cfg, source, opts.Paths)
	if err == nil {
		err = s.Reporter.Write(s.Out, result, opts.Output)
	}
	if callback != nil {
		callback(runNumber, result, err)
	}
}

func (s *Service) analyse(ctx context.Context, cfg Config, source CoverageSource, paths []string) (AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return AnalysisResult{}, err
	}

	if len(paths) == 0 {
		cov, err := source.Coverage()
		if err != nil {
			return AnalysisResult{}, err
		}
		paths = trackedPaths(cfg.Root, cov)
		s.Log.V(1).Info("analysing tracked files", "root", cfg.Root, "count", len(paths))
	}

	sourceModules := domain.NewSourceModules(paths)
	modules := make([]domain.AnalysedModule, len(sourceModules))
	for i, m := range sourceModules {
		modules[i] = m
	}

	progress := NopProgress
	if s.Progress != nil {
		progress = s.Progress(len(modules))
	}
	analyser := &CoverageAnalyser{Source: source, Root: cfg.Root, Progress: progress}
	if err := analyser.Run(modules); err != nil {
		return AnalysisResult{}, err
	}
	cov, err := source.Coverage()
	if err != nil {
		return AnalysisResult{}, err
	}
	attachLineStats(cfg.Root, sourceModules, cov)

	values := make([]float64, len(sourceModules))
	for i, m := range sourceModules {
		values[i] = m.Coverage
	}
	return AnalysisResult{
		Root:      cfg.Root,
		CachePath: source.CachePath(),
		Modules:   sourceModules,
		Average:   domain.AveragePercentage(values).Value(),
	}, nil
}

// attachLineStats copies line counts of tracked files onto matching modules.
// Untracked modules keep zero counts.
func attachLineStats(root string, modules []*domain.SourceModule, cov domain.MergedCoverage) {
	files := make(map[string]domain.SourceFileCoverage, len(cov))
	for _, f := range cov.SourceFiles() {
		files[f.Path] = f
	}
	for _, m := range modules {
		if f, ok := files[filepath.Join(root, m.Path)]; ok {
			m.SetLineStats(f)
		}
	}
}

// trackedPaths converts the absolute keys under root back to module paths.
// Files outside root are skipped.
func trackedPaths(root string, cov domain.MergedCoverage) []string {
	var paths []string
	for _, file := range cov.Files() {
		rel, err := filepath.Rel(root, file)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		paths = append(paths, rel)
	}
	return paths
}
