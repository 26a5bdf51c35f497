// Package output renders query hits in the four formats the CLI supports.
// Color styling uses charmbracelet/lipgloss (a teacher dependency) instead
// of raw ANSI escapes; --ackmate and --no_color are plain fmt.Fprintf
// writers, since no pack library covers either narrow text format.
package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/imyousuf/everdex/internal/rawmatch"
)

var (
	pathStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	lineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	matchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("3"))
)

// Options controls how Writer formats hits, mirroring the query command's
// flags.
type Options struct {
	NoColor  bool
	Ackmate  bool
	PathOnly bool
	NoGroup  bool
}

// Writer renders one hit at a time to an io.Writer.
type Writer struct {
	out       io.Writer
	opts      Options
	lastPath  string
	groupOpen bool
}

// NewWriter creates a Writer. Ackmate implies NoColor, matching the
// original tool's do_query.
func NewWriter(out io.Writer, opts Options) *Writer {
	if opts.Ackmate {
		opts.NoColor = true
	}
	return &Writer{out: out, opts: opts}
}

// Path emits path alone, for --path_only or a content-less query.
func (w *Writer) Path(path string) {
	w.closeGroup()
	switch {
	case w.opts.Ackmate:
		fmt.Fprintf(w.out, ":%s\n", path)
	case w.opts.NoColor:
		fmt.Fprintln(w.out, path)
	default:
		fmt.Fprintln(w.out, pathStyle.Render(path))
	}
}

// StartMatches begins emitting per-line matches for path, deferring the
// path header until the first match is known to exist (a path with no
// surviving match after verification prints nothing, matching the
// original tool's path_output_done guard).
func (w *Writer) StartMatches(path string) {
	w.lastPath = path
	w.groupOpen = false
}

// Match emits one line's matches. lineMatches are every span on that line.
func (w *Writer) Match(path string, lineNo int, lineText string, lineMatches []rawmatch.Span) {
	if !w.groupOpen {
		w.emitPathHeader(path)
		w.groupOpen = true
	}

	if w.opts.Ackmate {
		w.matchInfo(lineNo, lineText, lineMatches)
		return
	}

	if w.opts.NoColor {
		fmt.Fprintf(w.out, "%d: %s\n", lineNo+1, lineText)
		return
	}

	rendered := lineText
	if len(lineMatches) > 0 {
		rendered = highlightRunes(lineText, lineMatches)
	}
	fmt.Fprintf(w.out, "%s: %s\n", lineStyle.Render(fmt.Sprintf("%d", lineNo+1)), rendered)
}

// EndMatches closes the group started by StartMatches, printing the blank
// line that ends each file's group (in every format, ackmate included)
// unless NoGroup is set.
func (w *Writer) EndMatches() {
	if w.groupOpen && !w.opts.NoGroup {
		fmt.Fprintln(w.out)
	}
	w.groupOpen = false
}

func (w *Writer) emitPathHeader(path string) {
	switch {
	case w.opts.Ackmate:
		fmt.Fprintf(w.out, ":%s\n", path)
	case w.opts.NoColor:
		fmt.Fprintln(w.out, path)
	default:
		fmt.Fprintln(w.out, pathStyle.Render(path))
	}
}

// matchInfo accumulates every span on the same line into one ackmate
// record (`<line>;<col> <len>[,<col> <len>]*:<line_text>`), mirroring the
// original tool's matching_info_text accumulation across consecutive spans
// on one line before flushing on a line-number change.
func (w *Writer) matchInfo(lineNo int, lineText string, lineMatches []rawmatch.Span) {
	if len(lineMatches) == 0 {
		return
	}
	fmt.Fprintf(w.out, "%d;%d %d", lineNo+1, lineMatches[0].Col, lineMatches[0].Length)
	for _, m := range lineMatches[1:] {
		fmt.Fprintf(w.out, ",%d %d", m.Col, m.Length)
	}
	fmt.Fprintf(w.out, ":%s\n", lineText)
}

func (w *Writer) closeGroup() {
	if w.groupOpen {
		w.EndMatches()
	}
}

// highlightRunes reverse-highlights every match span in line, operating on
// runes since Span offsets are rune-based.
func highlightRunes(line string, spans []rawmatch.Span) string {
	runes := []rune(line)
	var b []rune
	pos := 0
	for _, s := range spans {
		if s.Col < pos || s.Col+s.Length > len(runes) {
			continue
		}
		b = append(b, runes[pos:s.Col]...)
		highlighted := matchStyle.Render(string(runes[s.Col : s.Col+s.Length]))
		b = append(b, []rune(highlighted)...)
		pos = s.Col + s.Length
	}
	b = append(b, runes[pos:]...)
	return string(b)
}
