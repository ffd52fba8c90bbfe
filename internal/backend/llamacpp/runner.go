package llamacpp

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

// Runner executes an external command and captures its output. It exists so
// tests can stand in for llama-cli without spawning processes.
type Runner interface {
	Run(ctx context.Context, name string, args []string) (stdout, stderr []byte, err error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, name string, args []string) ([]byte, []byte, error)

func (f RunnerFunc) Run(ctx context.Context, name string, args []string) ([]byte, []byte, error) {
	return f(ctx, name, args)
}

// ExecRunner runs commands with os/exec. The process is killed when ctx is done.
type ExecRunner struct {
	// WaitDelay bounds how long Run waits for output pipes after the process
	// was killed.
	WaitDelay time.Duration
}

func (r ExecRunner) Run(ctx context.Context, name string, args []string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = 5 * time.Second
	}
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
