package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/danilofalcao/llama-gateway/internal/constants"
	contextutils "github.com/danilofalcao/llama-gateway/internal/utils/context"
	"github.com/fatih/color"
)

var (
	Fallback = New(context.Background(), "fallback", DEBUG, make(chan string, 1))
)

type Logger struct {
	name    string
	ctx     context.Context
	level   LogLevel
	exitCh  chan string
	out     io.Writer
	mu      *sync.Mutex
	noColor bool
}

func New(ctx context.Context, name string, level LogLevel, exitCh chan string) *Logger {
	return &Logger{
		name:    name,
		ctx:     ctx,
		level:   level,
		exitCh:  exitCh,
		out:     os.Stdout,
		mu:      &sync.Mutex{},
		noColor: color.NoColor,
	}
}

// WithOutput redirects the logger and every clone made from it afterwards.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	l.out = w
	return l
}

// WithoutColor disables the colored level tag.
func (l *Logger) WithoutColor() *Logger {
	l.noColor = true
	return l
}

func (l *Logger) write(ctx context.Context, s string, level LogLevel) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s][%s]", time.Now().Local().Format(time.DateTime), l.tag(level))
	if reqId := contextutils.GetRequestID(ctx); reqId != "" {
		fmt.Fprintf(&b, "[%s]", reqId)
	}
	if l.name != "" {
		fmt.Fprintf(&b, "[%s]", l.name)
	}
	fmt.Fprintf(&b, " %s\n", s)

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, b.String())
}

func (l *Logger) tag(level LogLevel) string {
	if l.noColor {
		return level.String()
	}
	return level.color().Sprint(level.String())
}

// Clone returns a child logger named name and a copy of ctx carrying it. Request
// scoped values of ctx, such as the request ID and deadline, are preserved.
func (l *Logger) Clone(ctx context.Context, name string) (*Logger, context.Context) {
	lgr := &Logger{
		name:    name,
		ctx:     l.ctx,
		level:   l.level,
		exitCh:  l.exitCh,
		out:     l.out,
		mu:      l.mu,
		noColor: l.noColor,
	}
	if ctx == nil {
		ctx = l.ctx
	}
	return lgr, context.WithValue(ctx, constants.LoggerKey, lgr)
}

func (l *Logger) Name() string {
	return l.name
}

func (l *Logger) WithLevel(level LogLevel) *Logger {
	l.level = level
	return l
}

func (l *Logger) Trace(ctx context.Context, s string) {
	if l.level > TRACE {
		return
	}
	l.write(ctx, s, TRACE)
}

func (l *Logger) Tracef(ctx context.Context, s string, args ...any) {
	l.Trace(ctx, fmt.Sprintf(s, args...))
}

func (l *Logger) Debug(ctx context.Context, s string) {
	if l.level > DEBUG {
		return
	}
	l.write(ctx, s, DEBUG)
}

func (l *Logger) Debugf(ctx context.Context, s string, args ...any) {
	l.Debug(ctx, fmt.Sprintf(s, args...))
}

func (l *Logger) Info(ctx context.Context, s string) {
	if l.level > INFO {
		return
	}
	l.write(ctx, s, INFO)
}

func (l *Logger) Infof(ctx context.Context, s string, args ...any) {
	l.Info(ctx, fmt.Sprintf(s, args...))
}

func (l *Logger) Warn(ctx context.Context, s string) {
	if l.level > WARN {
		return
	}
	l.write(ctx, s, WARN)
}

func (l *Logger) Warnf(ctx context.Context, s string, args ...any) {
	l.Warn(ctx, fmt.Sprintf(s, args...))
}

func (l *Logger) Error(ctx context.Context, s string) {
	if l.level > ERROR {
		return
	}
	l.write(ctx, s, ERROR)
}

func (l *Logger) Errorf(ctx context.Context, s string, args ...any) {
	l.Error(ctx, fmt.Sprintf(s, args...))
}

// Fatal logs s and hands it to the exit channel; the owner of the channel decides
// how the process terminates. A full channel never blocks the caller.
func (l *Logger) Fatal(ctx context.Context, s string) {
	if l.level > FATAL {
		return
	}
	l.write(ctx, s, FATAL)
	select {
	case l.exitCh <- s:
	default:
	}
}

func (l *Logger) Fatalf(ctx context.Context, s string, args ...any) {
	l.Fatal(ctx, fmt.Sprintf(s, args...))
}
