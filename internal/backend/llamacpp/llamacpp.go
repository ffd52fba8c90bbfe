// Package llamacpp runs the llama.cpp command line binary once per request.
package llamacpp

import (
	"context"
	"fmt"
	"io/fs"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/danilofalcao/llama-gateway/internal/backend"
	"github.com/danilofalcao/llama-gateway/internal/constants/llama"
	logutils "github.com/danilofalcao/llama-gateway/internal/utils/logger"
	"github.com/pkg/errors"
)

var _ backend.Backend = &llamaCppBackend{}

// Resolver finds the model file for a logical model name.
type Resolver interface {
	Resolve(name string) (string, bool)
}

type llamaCppBackend struct {
	binary    string
	resolver  Resolver
	runner    Runner
	gpuLayers int
	maxTokens int
	timeout   time.Duration
}

type Options struct {
	BinaryPath string
	Resolver   Resolver
	Runner     Runner
	GPULayers  int
	MaxTokens  int
	Timeout    time.Duration
}

func NewLlamaCppBackend(opts Options) backend.Backend {
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	if opts.BinaryPath == "" {
		opts.BinaryPath = llama.DefaultBinary
	}
	if opts.GPULayers <= 0 {
		opts.GPULayers = llama.DefaultGPULayers
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = llama.DefaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = llama.DefaultTimeout
	}
	return &llamaCppBackend{
		binary:    opts.BinaryPath,
		resolver:  opts.Resolver,
		runner:    opts.Runner,
		gpuLayers: opts.GPULayers,
		maxTokens: opts.MaxTokens,
		timeout:   opts.Timeout,
	}
}

// Name returns the name of the backend
func (b *llamaCppBackend) Name() string {
	return "llama-cli"
}

func (b *llamaCppBackend) Chat(ctx context.Context, req *backend.Request) (*backend.Result, error) {
	lgr, ctx := logutils.FromContext(ctx).Clone(ctx, b.Name())

	modelPath, ok := "", false
	if b.resolver != nil {
		modelPath, ok = b.resolver.Resolve(req.Model)
	}
	if !ok {
		return nil, backend.NotFound(req.Model)
	}
	if len(req.Images) > 0 {
		return nil, backend.Unsupported(req.Model, "image attachments are not supported by llama-cli")
	}

	args, err := b.args(modelPath, req)
	if err != nil {
		return nil, backend.Failure(req.Model, err.Error(), err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	lgr.Debugf(ctx, "running %s -m %s (schema=%t, system prompt=%t)", b.binary, modelPath, req.Schema != nil, req.SystemPrompt != "")
	start := time.Now()
	stdout, stderr, err := b.runner.Run(ctx, b.binary, args)
	if err != nil {
		return nil, b.runError(ctx, req.Model, stderr, err)
	}
	lgr.Debugf(ctx, "llama-cli finished in %v, %d bytes", time.Since(start), len(stdout))

	text := strings.TrimSpace(strings.ToValidUTF8(string(stdout), "�"))
	if text == "" {
		text = llama.NoResponse
	}
	return &backend.Result{Text: text, Backend: b.Name()}, nil
}

func (b *llamaCppBackend) args(modelPath string, req *backend.Request) ([]string, error) {
	args := []string{
		"-m", modelPath,
		"--n-gpu-layers", strconv.Itoa(b.gpuLayers),
		"-p", req.Content,
		"-n", strconv.Itoa(b.maxTokens),
		"--single-turn",
	}
	if req.Schema != nil {
		schema, err := backend.CompactSchema(req.Schema)
		if err != nil {
			return nil, err
		}
		args = append(args, "--json-schema", schema)
	}
	if req.SystemPrompt != "" {
		args = append(args, "--system-prompt", req.SystemPrompt)
	}
	return args, nil
}

func (b *llamaCppBackend) runError(ctx context.Context, model string, stderr []byte, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return backend.Timeout(model, err)
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return backend.Failure(model, fmt.Sprintf("llama-cli binary not found at %s", b.binary), err)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		detail := strings.TrimSpace(strings.ToValidUTF8(string(stderr), "�"))
		if detail == "" {
			detail = "Unknown error"
		}
		return backend.Failure(model, detail, err)
	}
	return backend.Failure(model, fmt.Sprintf("llama-cli failed for %s: %s", model, err), err)
}
