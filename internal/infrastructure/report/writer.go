package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/felixgeelhaar/resultcov/internal/application"
	"github.com/felixgeelhaar/resultcov/internal/domain"
)

// Coverage bands used for coloring.
const (
	goodCoverage = 90.0
	fairCoverage = 50.0
)

type Writer struct{}

func (Writer) Write(w io.Writer, result application.AnalysisResult, format application.OutputFormat) error {
	switch format {
	case application.OutputJSON:
		payload := struct {
			Root      string                 `json:"root"`
			CachePath string                 `json:"cache_path"`
			Modules   []*domain.SourceModule `json:"modules"`
			Summary   struct {
				Files    int     `json:"files"`
				Average  float64 `json:"average"`
				Untested int     `json:"untested"`
				Missed   int     `json:"missed_lines"`
			} `json:"summary"`
		}{
			Root:      result.Root,
			CachePath: result.CachePath,
			Modules:   result.Modules,
		}
		if payload.Modules == nil {
			payload.Modules = []*domain.SourceModule{}
		}
		average, err := domain.NewPercentage(result.Average)
		if err != nil {
			return fmt.Errorf("average coverage: %w", err)
		}
		payload.Summary.Files = len(result.Modules)
		payload.Summary.Average = average.Rounded()
		payload.Summary.Untested = untested(result)
		for _, m := range result.Modules {
			payload.Summary.Missed += m.Missed
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	case application.OutputBrief:
		return writeBrief(w, result)
	case application.OutputText, "":
		return writeText(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func writeText(w io.Writer, result application.AnalysisResult) error {
	if len(result.Modules) == 0 {
		_, err := fmt.Fprintf(w, "No files analysed (resultset: %s)\n", result.CachePath)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "File\tCoverage\tLines\tMissed")

	colorize := colorEnabled(w)
	for _, m := range result.Modules {
		p, err := domain.NewPercentage(m.Coverage)
		if err != nil {
			return fmt.Errorf("coverage of %s: %w", m.Path, err)
		}
		percent := p.String()
		if colorize {
			percent = styleFor(m.Coverage).Render(percent)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%d\n", m.Path, percent, m.Covered, m.Relevant, m.Missed)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	avg, err := domain.NewPercentage(result.Average)
	if err != nil {
		return fmt.Errorf("average coverage: %w", err)
	}
	average := avg.String()
	if colorize {
		average = styleFor(result.Average).Bold(true).Render(average)
	}
	_, err = fmt.Fprintf(w, "\nAverage coverage: %s over %d files\n", average, len(result.Modules))
	return err
}

// writeBrief outputs a single-line summary.
// Format: XX.XX% average | N files | M untested
func writeBrief(w io.Writer, result application.AnalysisResult) error {
	avg, err := domain.NewPercentage(result.Average)
	if err != nil {
		return fmt.Errorf("average coverage: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s average | %d files | %d untested\n",
		avg, len(result.Modules), untested(result))
	return err
}

// untested counts modules with no executed line. Out-of-range values are
// reported by the writers, so they are not counted here.
func untested(result application.AnalysisResult) int {
	n := 0
	for _, m := range result.Modules {
		if p, err := domain.NewPercentage(m.Coverage); err == nil && p.IsZero() {
			n++
		}
	}
	return n
}

func styleFor(percent float64) lipgloss.Style {
	switch {
	case percent >= goodCoverage:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A"))
	case percent >= fairCoverage:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#CA8A04"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626"))
	}
}

func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return IsTerminal(file)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
