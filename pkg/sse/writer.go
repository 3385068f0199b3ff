package sse

import (
	"io"
	"strings"
)

// flusher is implemented by buffered writers such as *bufio.Writer.
type flusher interface {
	Flush() error
}

// Writer frames events onto a downstream io.Writer.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer that frames events onto w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteEvent writes ev followed by the blank line delimiter. Multi-line data
// is split across several "data:" fields so the client rejoins it with "\n".
// The underlying writer is flushed when it supports flushing.
func (w *Writer) WriteEvent(ev Event) error {
	var b strings.Builder
	if ev.ID != "" {
		b.WriteString("id: " + ev.ID + "\n")
	}
	if ev.Type != "" {
		b.WriteString("event: " + ev.Type + "\n")
	}
	for line := range strings.SplitSeq(ev.Data, "\n") {
		b.WriteString("data: " + line + "\n")
	}
	b.WriteString("\n")

	if _, err := io.WriteString(w.w, b.String()); err != nil {
		return err
	}
	return w.flush()
}

// Comment writes an SSE comment line, typically used as a keep-alive.
func (w *Writer) Comment(text string) error {
	if _, err := io.WriteString(w.w, ": "+text+"\n\n"); err != nil {
		return err
	}
	return w.flush()
}

func (w *Writer) flush() error {
	if f, ok := w.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
