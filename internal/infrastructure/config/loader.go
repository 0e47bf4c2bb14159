package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/resultcov/internal/application"
	"github.com/felixgeelhaar/resultcov/internal/domain"
)

type Loader struct{}

type fileConfig struct {
	Version      int    `yaml:"version"`
	Root         string `yaml:"root,omitempty"`
	CoverageDir  string `yaml:"coverage_dir,omitempty"`
	MergeTimeout string `yaml:"merge_timeout,omitempty"`
	MergePolicy  string `yaml:"merge_policy,omitempty"`
}

func (l Loader) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Load reads a config file. A relative root is resolved against the
// directory holding the file.
func (l Loader) Load(path string) (application.Config, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- user supplied config path
	if err != nil {
		return application.Config{}, err
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return application.Config{}, err
	}

	if cfg.Version == 0 {
		cfg.Version = application.ConfigVersion
	}
	if cfg.Version != application.ConfigVersion {
		return application.Config{}, fmt.Errorf("unsupported config version %d", cfg.Version)
	}

	timeout, err := parseTimeout(cfg.MergeTimeout)
	if err != nil {
		return application.Config{}, err
	}
	if _, err := domain.CountPolicyByName(cfg.MergePolicy); err != nil {
		return application.Config{}, err
	}
	policy := cfg.MergePolicy
	if policy == "" {
		policy = domain.PolicySum
	}

	root := cfg.Root
	if root == "" {
		root = "."
	}
	if !filepath.IsAbs(root) {
		root = filepath.Join(filepath.Dir(path), root)
	}

	return application.Config{
		Version:      cfg.Version,
		Root:         root,
		CoverageDir:  cfg.CoverageDir,
		MergeTimeout: timeout,
		MergePolicy:  policy,
	}, nil
}

// parseTimeout accepts a Go duration ("10m") or a bare number of seconds.
func parseTimeout(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("merge_timeout must not be negative: %s", value)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid merge_timeout %q: %w", value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("merge_timeout must not be negative: %s", value)
	}
	return d, nil
}

func Write(w io.Writer, cfg application.Config) error {
	out := fileConfig{
		Version:     cfg.Version,
		Root:        cfg.Root,
		CoverageDir: cfg.CoverageDir,
		MergePolicy: cfg.MergePolicy,
	}
	if out.Version == 0 {
		out.Version = application.ConfigVersion
	}
	if cfg.MergeTimeout > 0 {
		out.MergeTimeout = cfg.MergeTimeout.String()
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return enc.Encode(out)
}
