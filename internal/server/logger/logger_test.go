package logger

import (
	"bytes"
	"context"
	"testing"

	contextutils "github.com/danilofalcao/llama-gateway/internal/utils/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(level LogLevel) (*Logger, *bytes.Buffer, chan string) {
	var buf bytes.Buffer
	exitCh := make(chan string, 1)
	lgr := New(context.Background(), "test", level, exitCh).WithOutput(&buf).WithoutColor()
	return lgr, &buf, exitCh
}

func TestLevelFromString(t *testing.T) {
	cases := map[string]LogLevel{
		"trace":   TRACE,
		"DEBUG":   DEBUG,
		" info ":  INFO,
		"warning": WARN,
		"error":   ERROR,
		"panic":   FATAL,
		"bogus":   INFO,
		"":        INFO,
	}
	for in, want := range cases {
		assert.Equal(t, want, LevelFromString(in), "level %q", in)
	}
}

func TestLogger_FiltersBelowLevel(t *testing.T) {
	lgr, buf, _ := newTestLogger(WARN)
	ctx := context.Background()

	lgr.Debug(ctx, "hidden")
	lgr.Infof(ctx, "hidden %d", 1)
	lgr.Warn(ctx, "shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN][test] shown")
}

func TestLogger_IncludesRequestID(t *testing.T) {
	lgr, buf, _ := newTestLogger(DEBUG)
	ctx := contextutils.WithRequestID(context.Background(), "abc123")

	lgr.Errorf(ctx, "boom: %s", "bad")

	assert.Contains(t, buf.String(), "[ERROR][abc123][test] boom: bad")
}

func TestLogger_TracefRespectsLevel(t *testing.T) {
	lgr, buf, _ := newTestLogger(DEBUG)
	lgr.Tracef(context.Background(), "noise %d", 1)
	assert.Empty(t, buf.String())
}

func TestLogger_CloneKeepsRequestContext(t *testing.T) {
	lgr, buf, _ := newTestLogger(DEBUG)
	reqCtx := contextutils.WithRequestID(context.Background(), "req-1")

	child, ctx := lgr.Clone(reqCtx, "llama-cli")
	require.Equal(t, "llama-cli", child.Name())
	assert.Equal(t, "req-1", contextutils.GetRequestID(ctx))

	child.Info(ctx, "hello")
	assert.Contains(t, buf.String(), "[INFO][req-1][llama-cli] hello")
}

func TestLogger_FatalNotifiesExitChannel(t *testing.T) {
	lgr, _, exitCh := newTestLogger(INFO)

	lgr.Fatal(context.Background(), "dying")
	// second call must not block on the full channel
	lgr.Fatal(context.Background(), "still dying")

	assert.Equal(t, "dying", <-exitCh)
}
