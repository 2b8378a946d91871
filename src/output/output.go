// Package output renders human-facing terminal and CI output: framed
// report sections, lint findings and GitHub workflow annotations.
package output

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/mattn/go-isatty"

	"github.com/petrows/github-linters/src/lint"
)

// Colors for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// Printer formats and writes lint findings.
type Printer struct {
	Writer io.Writer
	Color  bool
}

// NewPrinter creates a printer writing to w with color auto-detection.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{Writer: w, Color: UseColor(w)}
}

// Print outputs findings grouped by file, in file then line order.
func (p *Printer) Print(findings []lint.Finding) {
	grouped := make(map[string][]lint.Finding)
	for _, f := range findings {
		grouped[f.File] = append(grouped[f.File], f)
	}

	files := make([]string, 0, len(grouped))
	for f := range grouped {
		files = append(files, f)
	}
	sort.Strings(files)

	for _, file := range files {
		ff := grouped[file]
		sort.SliceStable(ff, func(i, j int) bool {
			if ff[i].Line != ff[j].Line {
				return ff[i].Line < ff[j].Line
			}
			return ff[i].Column < ff[j].Column
		})

		fmt.Fprintf(p.Writer, "\n%s\n", p.colorize(file, colorBold))

		for _, f := range ff {
			loc := fmt.Sprintf("%d", f.Line)
			if f.Column > 0 {
				loc = fmt.Sprintf("%d:%d", f.Line, f.Column)
			}
			fmt.Fprintf(p.Writer, "  %-8s %s %s %s\n",
				p.colorize(loc, colorGray),
				p.colorize("WARN", colorYellow),
				p.colorize(f.Code, colorCyan),
				f.Message,
			)
		}
	}
}

// Summary prints a final summary line.
func (p *Printer) Summary(findings []lint.Finding) {
	fmt.Fprintf(p.Writer, "\n%s\n", FindingsSummaryLine(findings, p.Color))
}

// FindingsSummaryLine returns a one-line findings summary, optionally colored.
func FindingsSummaryLine(findings []lint.Finding, color bool) string {
	if len(findings) == 0 {
		return "no findings"
	}

	files := map[string]bool{}
	for _, f := range findings {
		files[f.File] = true
	}
	total := paint(fmt.Sprintf("%d", len(findings)), colorBold, color)
	return fmt.Sprintf("%s %s in %d files", total, paint("warnings", colorYellow, color), len(files))
}

func (p *Printer) colorize(text, color string) string {
	return paint(text, color, p.Color)
}

func paint(text, color string, enabled bool) string {
	if !enabled {
		return text
	}
	return color + text + colorReset
}

// UseColor returns true if colored output should be used on w.
// Respects NO_COLOR, TERM=dumb and terminal detection.
func UseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) || IsCI()
}
