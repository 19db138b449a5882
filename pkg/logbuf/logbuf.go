// Package logbuf provides a concurrency-safe line buffer for the per-batch
// log artifact. The pipeline appends every log line; the buffer is dumped to
// disk when the batch ends or pauses.
package logbuf

import (
	"strings"
	"sync"
)

// Buffer accumulates log lines for one batch.
type Buffer struct {
	mu    sync.Mutex
	lines []string
}

// New returns an empty buffer.
func New() *Buffer {
	return &Buffer{}
}

// Append adds one line.
func (b *Buffer) Append(line string) {
	b.mu.Lock()
	b.lines = append(b.lines, line)
	b.mu.Unlock()
}

// Len reports the number of buffered lines.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

// Lines returns a copy of the buffered lines.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// String joins the buffered lines with newlines.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, "\n")
}

// Reset discards all buffered lines.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.lines = b.lines[:0]
	b.mu.Unlock()
}
