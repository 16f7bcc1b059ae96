// Package logging provides leveled logging and interaction tracing.
// It offers two complementary outputs:
//   - A leveled slog.Logger for operational output
//   - A Tracer for structured JSONL interaction traces
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LevelTrace is a custom slog level below Debug. At this level every
// interaction is worth logging.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// Interaction is one traced pairwise game.
type Interaction struct {
	Trial    int        `json:"trial"`
	Round    int        `json:"round"`
	P1       int        `json:"p1"`
	P2       int        `json:"p2"`
	S1       string     `json:"s1"`
	S2       string     `json:"s2"`
	Intended [2]string  `json:"intended"`
	Realized [2]string  `json:"realized"`
	Payoff   [2]float64 `json:"payoff"`
	Wealth   [2]float64 `json:"wealth"`
}

// Tracer writes interactions as JSONL. It is safe for concurrent use.
// A nil Tracer is safe to use; all methods are no-ops on nil receiver.
type Tracer struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	enc    *json.Encoder
}

// NewTracer traces to w. The caller keeps ownership of w.
func NewTracer(w io.Writer) *Tracer {
	return &Tracer{w: w, enc: json.NewEncoder(w)}
}

// OpenTracer creates path (and its parent directory) for append and
// traces to it. Close releases the file.
func OpenTracer(path string) (*Tracer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	t := NewTracer(f)
	t.closer = f
	return t, nil
}

// Trace writes one interaction as a single line. Safe to call on nil receiver.
func (t *Tracer) Trace(ev Interaction) {
	if t == nil || t.enc == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.enc.Encode(ev)
}

// Close closes the underlying file, if the tracer opened one.
// Safe to call on nil receiver.
func (t *Tracer) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enc = nil
	if t.closer == nil {
		return nil
	}
	err := t.closer.Close()
	t.closer = nil
	return err
}
