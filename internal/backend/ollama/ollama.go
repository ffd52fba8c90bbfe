// Package ollama is the fallback backend. It calls an Ollama daemon through the
// official Go client and serves any model that has no local GGUF file.
package ollama

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/danilofalcao/llama-gateway/internal/backend"
	"github.com/danilofalcao/llama-gateway/internal/constants/llama"
	"github.com/danilofalcao/llama-gateway/internal/utils"
	logutils "github.com/danilofalcao/llama-gateway/internal/utils/logger"
	"github.com/ollama/ollama/api"
	"github.com/pkg/errors"
)

var _ backend.Backend = &ollamaBackend{}

// Chatter is the part of *api.Client the backend uses.
type Chatter interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

type ollamaBackend struct {
	client  Chatter
	timeout time.Duration
}

type Options struct {
	Client  Chatter
	Timeout time.Duration
}

func NewOllamaBackend(opts Options) backend.Backend {
	if opts.Timeout <= 0 {
		opts.Timeout = llama.DefaultTimeout
	}
	return &ollamaBackend{
		client:  opts.Client,
		timeout: opts.Timeout,
	}
}

// NewClient builds an Ollama client for host. An empty host defers to the
// OLLAMA_HOST environment variable and the client's defaults.
func NewClient(host string, httpClient *http.Client) (*api.Client, error) {
	if host == "" {
		client, err := api.ClientFromEnvironment()
		return client, errors.Wrap(err, "error creating ollama client from environment")
	}
	base, err := url.Parse(utils.NormalizeBaseURL(host))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid ollama host %q", host)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return api.NewClient(base, httpClient), nil
}

// Name returns the name of the backend
func (b *ollamaBackend) Name() string {
	return "ollama"
}

func (b *ollamaBackend) Chat(ctx context.Context, req *backend.Request) (*backend.Result, error) {
	lgr, ctx := logutils.FromContext(ctx).Clone(ctx, b.Name())
	if b.client == nil {
		return nil, backend.Unconfigured("ollama client is not configured")
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    req.Model,
		Messages: convertMessages(backend.BuildMessages(req)),
		Stream:   &stream,
	}
	if req.Schema != nil {
		chatReq.Format = req.Schema
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	lgr.Debugf(ctx, "chat model=%s images=%d schema=%t", req.Model, len(req.Images), req.Schema != nil)

	var content string
	err := b.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		content += resp.Message.Content
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, backend.Timeout(req.Model, err)
		}
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return nil, backend.Failure(req.Model, "ollama: "+statusErr.Error(), err)
		}
		return nil, backend.Failure(req.Model, errors.Wrap(err, "ollama chat failed").Error(), err)
	}
	return &backend.Result{Text: content, Backend: b.Name()}, nil
}
