package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"

	"github.com/felixgeelhaar/resultcov/internal/application"
	"github.com/felixgeelhaar/resultcov/internal/domain"
	"github.com/felixgeelhaar/resultcov/internal/infrastructure/config"
	"github.com/felixgeelhaar/resultcov/internal/infrastructure/progress"
	"github.com/felixgeelhaar/resultcov/internal/infrastructure/report"
	"github.com/felixgeelhaar/resultcov/internal/infrastructure/resultset"
	"github.com/felixgeelhaar/resultcov/internal/infrastructure/watcher"
)

const defaultConfigPath = ".resultcov.yaml"

type Service interface {
	LoadConfig(path string) (application.Config, error)
	Analyse(ctx context.Context, opts application.AnalyseOptions) (application.AnalysisResult, error)
	Watch(ctx context.Context, opts application.WatchOptions, watcher application.FileWatcher, callback application.WatchCallback) error
}

type fileWatcher interface {
	application.FileWatcher
	Close() error
}

var newWatcher = func(log logr.Logger) (fileWatcher, error) {
	return watcher.New(watcher.WithDebounce(500*time.Millisecond), watcher.WithLogger(log))
}

func Run(args []string, stdout, stderr io.Writer, svc Service) int {
	if len(args) < 2 {
		usage(stderr)
		return 2
	}

	ctx := context.Background()

	switch args[1] {
	case "analyse", "analyze":
		fs := newFlagSet(args[1], stderr)
		configPath := fs.String("config", defaultConfigPath, "Config file path")
		output := outputFlags(fs)
		verbose := fs.Bool("v", false, "Verbose logging")
		if err := fs.Parse(args[2:]); err != nil {
			return 2
		}
		setVerbose(*verbose)
		_, err := svc.Analyse(ctx, application.AnalyseOptions{
			ConfigPath: *configPath,
			Paths:      fs.Args(),
			Output:     *output,
		})
		return exitCode(err, 1, stderr)
	case "locate":
		fs := newFlagSet("locate", stderr)
		configPath := fs.String("config", defaultConfigPath, "Config file path")
		output := outputFlags(fs)
		if err := fs.Parse(args[2:]); err != nil {
			return 2
		}
		cfg, err := svc.LoadConfig(*configPath)
		if err != nil {
			return exitCode(err, 2, stderr)
		}
		status, err := resultset.Locate(cfg.Root, cfg.CoverageDir).Stat()
		if err != nil {
			return exitCode(err, 1, stderr)
		}
		return exitCode(printStatus(stdout, status, *output), 1, stderr)
	case "watch":
		fs := newFlagSet("watch", stderr)
		configPath := fs.String("config", defaultConfigPath, "Config file path")
		output := outputFlags(fs)
		verbose := fs.Bool("v", false, "Verbose logging")
		if err := fs.Parse(args[2:]); err != nil {
			return 2
		}
		setVerbose(*verbose)
		return runWatch(ctx, stdout, stderr, svc, application.WatchOptions{
			ConfigPath: *configPath,
			Paths:      fs.Args(),
			Output:     *output,
		})
	case "init":
		fs := newFlagSet("init", stderr)
		configPath := fs.String("config", defaultConfigPath, "Config file path")
		force := fs.Bool("force", false, "Overwrite existing config file")
		if err := fs.Parse(args[2:]); err != nil {
			return 2
		}
		if err := writeConfigFile(*configPath, application.DefaultConfig(), stdout, *force); err != nil {
			return exitCode(err, 2, stderr)
		}
		if *configPath != "-" {
			fmt.Fprintf(stdout, "Config written to %s\n", *configPath)
		}
		return 0
	case "version":
		fmt.Fprintf(stdout, "resultcov %s (commit %s, built %s)\n", Version, Commit, Date)
		return 0
	default:
		usage(stderr)
		return 2
	}
}

func BuildService(out *os.File) *application.Service {
	logger := stdr.New(log.New(os.Stderr, "", 0))
	return &application.Service{
		ConfigLoader: config.Loader{},
		OpenSource:   openSource(logger.WithName("resultset")),
		Reporter:     report.Writer{},
		Progress:     progressFactory(os.Stderr),
		Log:          logger,
		Out:          out,
	}
}

func openSource(log logr.Logger) application.SourceOpener {
	return func(cfg application.Config) (application.CoverageSource, error) {
		policy, err := domain.CountPolicyByName(cfg.MergePolicy)
		if err != nil {
			return nil, err
		}
		merger := domain.Merger{Timeout: cfg.MergeTimeout, Policy: policy}
		return resultset.NewLoader(resultset.Locate(cfg.Root, cfg.CoverageDir), merger, log), nil
	}
}

// progressFactory picks the interactive bar on a terminal and dots otherwise.
func progressFactory(w *os.File) application.ProgressFactory {
	interactive := report.IsTerminal(w)
	return func(total int) application.ProgressReporter {
		if interactive {
			return progress.Start(total, w)
		}
		return report.NewDotProgress(w)
	}
}

func setVerbose(verbose bool) {
	if verbose {
		stdr.SetVerbosity(1)
	}
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func outputFlags(fs *flag.FlagSet) *application.OutputFormat {
	output := application.OutputText
	fs.Var((*outputValue)(&output), "output", "Output format: text|json|brief")
	fs.Var((*outputValue)(&output), "o", "Output format: text|json|brief")
	return &output
}

type outputValue application.OutputFormat

func (o *outputValue) String() string { return string(*o) }

func (o *outputValue) Set(value string) error {
	switch value {
	case string(application.OutputText), string(application.OutputJSON), string(application.OutputBrief):
		*o = outputValue(value)
		return nil
	default:
		return fmt.Errorf("invalid output format: %s", value)
	}
}

var createFile = func(path string) (io.WriteCloser, error) {
	return os.Create(path) // #nosec G304 -- user supplied config path
}

func writeConfigFile(path string, cfg application.Config, stdout io.Writer, force bool) error {
	if path == "-" {
		return config.Write(stdout, cfg)
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists", path)
		}
	}
	file, err := createFile(path)
	if err != nil {
		return err
	}
	if err := config.Write(file, cfg); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func printStatus(w io.Writer, status resultset.Status, format application.OutputFormat) error {
	if format == application.OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	_, err := fmt.Fprintf(w, "cache: %s (%s)\nlock:  %s (%s)\n",
		status.Path, presence(status.CacheExists),
		status.LockPath, presence(status.LockExists))
	return err
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "absent"
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `resultcov <command>

Commands:
  analyse  Report per-file coverage from the resultset cache
  locate   Show the cache and lock sentinel paths
  watch    Re-analyse whenever the resultset is rewritten
  init     Write a default .resultcov.yaml
  version  Print version information`)
}

func exitCode(err error, code int, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	fmt.Fprintln(stderr, err)
	return code
}

func runWatch(ctx context.Context, stdout, stderr io.Writer, svc Service, opts application.WatchOptions) int {
	w, err := newWatcher(stdr.New(log.New(stderr, "", 0)).WithName("watcher"))
	if err != nil {
		fmt.Fprintf(stderr, "failed to create watcher: %v\n", err)
		return 1
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(stdout, "Watching the resultset for changes... (Ctrl+C to stop)")

	callback := func(runNumber int, result application.AnalysisResult, runErr error) {
		stamp := time.Now().Format("15:04:05")
		if runErr != nil {
			fmt.Fprintf(stderr, "--- Run #%d at %s failed: %v\n", runNumber, stamp, runErr)
			return
		}
		fmt.Fprintf(stdout, "--- Run #%d at %s: %d files, %s average ---\n",
			runNumber, stamp, len(result.Modules), formatPercent(result.Average))
	}

	if err := svc.Watch(ctx, opts, w, callback); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(stdout, "Stopping watch mode...")
			return 0
		}
		fmt.Fprintf(stderr, "watch error: %v\n", err)
		return 1
	}
	return 0
}

func formatPercent(value float64) string {
	return fmt.Sprintf("%.2f%%", domain.Round2(value))
}
