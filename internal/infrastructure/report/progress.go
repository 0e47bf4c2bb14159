package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// DotProgress prints one green dot per analysed module and a newline when
// the run is done.
type DotProgress struct {
	w        io.Writer
	colorize bool
	finished bool
}

// NewDotProgress creates a dot printer writing to w.
func NewDotProgress(w io.Writer) *DotProgress {
	return &DotProgress{w: w, colorize: colorEnabled(w)}
}

var dotStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A"))

func (p *DotProgress) Advance() {
	dot := "."
	if p.colorize {
		dot = dotStyle.Render(dot)
	}
	_, _ = fmt.Fprint(p.w, dot)
}

// Done ends the line. Further calls are no-ops.
func (p *DotProgress) Done() {
	if p.finished {
		return
	}
	p.finished = true
	_, _ = fmt.Fprintln(p.w)
}
