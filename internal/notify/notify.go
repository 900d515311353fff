// Package notify delivers toasts to the terminal and the log.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/nikolayk812/licensing-storefront/internal/port"
)

var prefixes = map[port.Level]string{
	port.LevelSuccess: "✓",
	port.LevelError:   "✗",
	port.LevelInfo:    "•",
}

// Printer writes one line per toast.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

func (p *Printer) Notify(_ context.Context, t port.Toast) {
	prefix, ok := prefixes[t.Level]
	if !ok {
		prefix = prefixes[port.LevelInfo]
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.out, "%s %s\n", prefix, t.Message)
}

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (l *Logger) Notify(ctx context.Context, t port.Toast) {
	level := slog.LevelInfo
	if t.Level == port.LevelError {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, "toast", "toast_level", t.Level, "toast_message", t.Message)
}

// Fanout sends every toast to each notifier in order.
type Fanout []port.Notifier

func (f Fanout) Notify(ctx context.Context, t port.Toast) {
	for _, n := range f {
		n.Notify(ctx, t)
	}
}

// Channel forwards toasts to C without blocking; toasts are dropped when C is full.
type Channel struct {
	C chan port.Toast
}

func NewChannel(size int) *Channel {
	return &Channel{C: make(chan port.Toast, size)}
}

func (c *Channel) Notify(_ context.Context, t port.Toast) {
	select {
	case c.C <- t:
	default:
	}
}
