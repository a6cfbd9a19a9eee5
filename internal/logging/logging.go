// Package logging writes the diagnostic program's output: plain step
// lines and failure reports on stdout, tagged debug lines on stderr.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

type Logger struct {
	out     io.Writer
	err     io.Writer
	verbose bool
}

func NewLogger(out, err io.Writer, verbose bool) Logger {
	return Logger{
		out:     out,
		err:     err,
		verbose: verbose,
	}
}

// Out writes one plain line to stdout.
func (l *Logger) Out(f string, args ...any) {
	fmt.Fprintf(l.out, f+"\n", args...)
}

// Fail writes one highlighted line to stdout.
func (l *Logger) Fail(f string, args ...any) {
	fmt.Fprintln(l.out, color.HiRedString(f, args...))
}

func (l *Logger) Info(tag string, f string, args ...any) {
	printTagged(l.err, color.New(color.FgHiGreen), tag, f, args...)
}

func (l *Logger) Debug(tag string, f string, args ...any) {
	if l.verbose {
		printTagged(l.err, color.New(color.FgGreen), tag, f, args...)
	}
}

func printTagged(w io.Writer, tagColor *color.Color, tag, f string, args ...any) {
	str := fmt.Sprintf(f, args...)
	for _, line := range strings.Split(str, "\n") {
		fmt.Fprintf(w, "%s  %s\n",
			tagColor.Sprint(tag),
			color.WhiteString(line))
	}
}

// Writer colours every line written through it. Used to pass error
// traces to formatters that take an io.Writer.
type Writer struct {
	pipe io.Writer
	c    *color.Color
}

// TraceWriter returns a Writer onto stdout for error traces.
func (l *Logger) TraceWriter() *Writer {
	return &Writer{
		pipe: l.out,
		c:    color.New(color.FgHiYellow),
	}
}

func (w *Writer) Write(data []byte) (n int, err error) {
	for _, line := range strings.Split(strings.TrimSuffix(string(data), "\n"), "\n") {
		if _, err := fmt.Fprintln(w.pipe, w.c.Sprint(line)); err != nil {
			return 0, err
		}
	}
	return len(data), nil
}
