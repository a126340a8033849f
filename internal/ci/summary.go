package ci

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Styles used by the summaries. Lipgloss drops the colours by itself when
// the output is not a terminal.
var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	allowedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// status returns the label shown for a channel.
func status(c ChannelResult) string {
	switch {
	case c.Passed():
		return passStyle.Render("PASS")
	case c.Channel.AllowFailure:
		return allowedStyle.Render("FAIL (allowed)")
	default:
		return failStyle.Render("FAIL")
	}
}

// WriteSummary prints one line per channel, followed by the failing
// step's output for every failed channel.
func WriteSummary(w io.Writer, r *Report) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s pipeline", r.Pipeline)))

	nameWidth := 0
	for _, c := range r.Channels {
		nameWidth = max(nameWidth, len(c.Channel.Name))
	}

	for _, c := range r.Channels {
		steps := make([]string, 0, len(c.Steps))
		for _, s := range c.Steps {
			mark := passStyle.Render("✓")
			if s.Failed() {
				mark = failStyle.Render("✗")
			}
			steps = append(steps, mark+" "+s.Name)
		}
		fmt.Fprintf(w, "  %-*s  %s  %s %s\n",
			nameWidth, c.Channel.Name, status(c), strings.Join(steps, " "),
			dimStyle.Render(c.Duration.Round(time.Millisecond).String()))
	}

	for _, c := range r.Channels {
		if c.Passed() {
			continue
		}
		fmt.Fprintf(w, "\n%s %s\n", failStyle.Render("---"), headerStyle.Render(c.Channel.Name))
		fmt.Fprintln(w, c.Err)
		if n := len(c.Steps); n > 0 {
			if out := strings.TrimSpace(c.Steps[n-1].Output); out != "" {
				fmt.Fprintln(w, out)
			}
		}
	}
}

// WriteCoverage prints the total and the per-file coverage.
func WriteCoverage(w io.Writer, s *CoverageSummary) {
	width := len(s.Total.File)
	for _, f := range s.Files {
		width = max(width, len(f.File))
	}
	for _, f := range s.Files {
		fmt.Fprintf(w, "  %-*s  %6.1f%%\n", width, f.File, f.Percent())
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("  %-*s  %6.1f%%  (%s mode)", width, s.Total.File, s.Total.Percent(), s.Mode)))
}
