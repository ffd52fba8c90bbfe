// Package llamaserver talks to a llama.cpp llama-server over its
// OpenAI-compatible chat completions API.
package llamaserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	openai "github.com/danilofalcao/llama-gateway/internal/api/openai/v1"
	"github.com/danilofalcao/llama-gateway/internal/backend"
	"github.com/danilofalcao/llama-gateway/internal/constants/llama"
	"github.com/danilofalcao/llama-gateway/internal/utils"
	logutils "github.com/danilofalcao/llama-gateway/internal/utils/logger"
	"github.com/pkg/errors"
	"golang.org/x/net/http2"
)

var _ backend.Backend = &llamaServerBackend{}

type llamaServerBackend struct {
	baseURL   string
	maxTokens int
	timeout   time.Duration
	client    *http.Client
}

type Options struct {
	// BaseURL of the server, with or without scheme.
	BaseURL    string
	MaxTokens  int
	Timeout    time.Duration
	HTTPClient *http.Client
}

func NewLlamaServerBackend(opts Options) backend.Backend {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = llama.DefaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = llama.DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = NewHTTPClient()
	}
	return &llamaServerBackend{
		baseURL:   utils.NormalizeBaseURL(opts.BaseURL),
		maxTokens: opts.MaxTokens,
		timeout:   opts.Timeout,
		client:    opts.HTTPClient,
	}
}

// NewHTTPClient returns a client that negotiates HTTP/2 with TLS servers and
// falls back to HTTP/1.1 for plain http base URLs.
func NewHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// ConfigureTransport only fails when the transport was already configured.
	_ = http2.ConfigureTransport(transport)
	return &http.Client{Transport: transport}
}

// Name returns the name of the backend
func (b *llamaServerBackend) Name() string {
	return "llama-server"
}

// Chat sends one non-streaming completion request.
func (b *llamaServerBackend) Chat(ctx context.Context, req *backend.Request) (*backend.Result, error) {
	lgr, ctx := logutils.FromContext(ctx).Clone(ctx, b.Name())
	if b.baseURL == "" {
		return nil, backend.Unconfigured("LLAMA_SERVER_URL environment variable not set")
	}

	body, err := json.Marshal(openai.ChatCompletionRequest{
		Model:      req.Model,
		Messages:   convertMessages(backend.BuildMessages(req)),
		Stream:     false,
		MaxTokens:  b.maxTokens,
		JSONSchema: req.Schema,
	})
	if err != nil {
		err = errors.Wrap(err, "error marshalling llama-server request")
		return nil, backend.Failure(req.Model, err.Error(), err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	target := b.baseURL + llama.DefaultServerPath
	lgr.Debugf(ctx, "POST %s model=%s images=%d schema=%t", target, req.Model, len(req.Images), req.Schema != nil)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		err = errors.Wrap(err, "error creating llama-server request")
		return nil, backend.Failure(req.Model, err.Error(), err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Accept-Encoding", "gzip, br, deflate")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, b.transportError(ctx, req.Model, err)
	}
	defer resp.Body.Close()

	respBody, err := readResponse(resp)
	if err != nil {
		return nil, b.transportError(ctx, req.Model, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		lgr.Warnf(ctx, "llama-server responded %d: %s", resp.StatusCode, utils.Truncate(string(respBody), 512))
		return nil, backend.Failure(req.Model,
			fmt.Sprintf("llama-server HTTP error %d: %s", resp.StatusCode, utils.Truncate(string(bytes.TrimSpace(respBody)), 200)),
			nil)
	}

	text, err := extractText(respBody)
	if err != nil {
		lgr.Warnf(ctx, "%s: %s", err, utils.Truncate(string(respBody), 512))
		return nil, backend.Failure(req.Model, err.Error(), err)
	}
	return &backend.Result{Text: text, Backend: b.Name()}, nil
}

func (b *llamaServerBackend) transportError(ctx context.Context, model string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return backend.Timeout(model, err)
	}
	return backend.Failure(model, fmt.Sprintf("llama-server request failed: %s", err), err)
}

func extractText(body []byte) (string, error) {
	var resp openai.ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", errors.Wrap(err, "malformed response from llama-server")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("malformed response from llama-server: no choices")
	}
	if resp.Choices[0].Message.Content == nil {
		return "", errors.New("malformed response from llama-server: missing message content")
	}
	return *resp.Choices[0].Message.Content, nil
}
