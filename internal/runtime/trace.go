package runtime

import (
	"fmt"
	"log/slog"
	"strings"
)

// subPrefix is prepended once per nesting depth to a level's log entries,
// so a drained hierarchical log reads correctly in one flat list.
const subPrefix = "  [SUB] "

// Trace is the drainable, ordered action log for one machine level.
// Entries accumulate between drains; draining clears the buffer and is
// not replayable. Every entry is mirrored to the structured logger at
// debug level.
type Trace struct {
	prefix  string
	entries []string
	logger  *slog.Logger
}

// NewTrace creates a trace for the given nesting depth.
func NewTrace(depth int, logger *slog.Logger) *Trace {
	return &Trace{
		prefix: strings.Repeat(subPrefix, depth),
		logger: logger,
	}
}

// Logf appends a formatted entry.
func (t *Trace) Logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	t.entries = append(t.entries, t.prefix+msg)
	t.logger.Debug(msg)
}

// Append bulk-appends entries drained from a child level. Child entries
// already carry their own deeper prefix.
func (t *Trace) Append(entries []string) {
	t.entries = append(t.entries, entries...)
}

// Drain returns the buffered entries and clears the buffer.
func (t *Trace) Drain() []string {
	out := t.entries
	t.entries = nil
	return out
}
