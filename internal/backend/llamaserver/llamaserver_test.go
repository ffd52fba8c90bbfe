package llamaserver

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	openai "github.com/danilofalcao/llama-gateway/internal/api/openai/v1"
	"github.com/danilofalcao/llama-gateway/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okBody = `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"hello there"},"finish_reason":"stop"}]}`

type captured struct {
	path string
	body map[string]any
}

func newServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &c.body)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func newBackend(srv *httptest.Server, timeout time.Duration) backend.Backend {
	return NewLlamaServerBackend(Options{
		BaseURL:    srv.URL,
		Timeout:    timeout,
		HTTPClient: srv.Client(),
	})
}

func TestChat_Success(t *testing.T) {
	srv, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, okBody)
	})

	res, err := newBackend(srv, time.Second).Chat(context.Background(), &backend.Request{
		Model:        "bar",
		Content:      "hi",
		SystemPrompt: "be brief",
		Schema:       json.RawMessage(`{"type":"object"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", res.Text)
	assert.Equal(t, "llama-server", res.Backend)

	assert.Equal(t, "/v1/chat/completions", c.path)
	assert.Equal(t, "bar", c.body["model"])
	assert.Equal(t, false, c.body["stream"])
	assert.EqualValues(t, 512, c.body["max_tokens"])
	assert.Equal(t, map[string]any{"type": "object"}, c.body["json_schema"])

	msgs := c.body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, map[string]any{"role": "system", "content": "be brief"}, msgs[0])
	assert.Equal(t, map[string]any{"role": "user", "content": "hi"}, msgs[1])
}

func TestChat_ForwardsImages(t *testing.T) {
	srv, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, okBody)
	})
	png := []byte("\x89PNG\r\n\x1a\n0000")

	_, err := newBackend(srv, time.Second).Chat(context.Background(), &backend.Request{
		Model:   "bar",
		Content: "what is this",
		Images:  []backend.Image{{Filename: "a.png", Data: png}},
	})
	require.NoError(t, err)

	msgs := c.body["messages"].([]any)
	require.Len(t, msgs, 1)
	parts := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, map[string]any{"type": "text", "text": "what is this"}, parts[0])
	img := parts[1].(map[string]any)
	assert.Equal(t, "image_url", img["type"])
	assert.True(t, strings.HasPrefix(img["image_url"].(map[string]any)["url"].(string), "data:image/png;base64,"))
	_, hasSchema := c.body["json_schema"]
	assert.False(t, hasSchema)
}

func TestChat_DecodesCompressedBodies(t *testing.T) {
	encoders := map[string]func(io.Writer) io.WriteCloser{
		"gzip": func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) },
		"br":   func(w io.Writer) io.WriteCloser { return brotli.NewWriter(w) },
	}
	for name, enc := range encoders {
		t.Run(name, func(t *testing.T) {
			srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", name)
				zw := enc(w)
				io.WriteString(zw, okBody)
				zw.Close()
			})
			res, err := newBackend(srv, time.Second).Chat(context.Background(), &backend.Request{Model: "bar", Content: "hi"})
			require.NoError(t, err)
			assert.Equal(t, "hello there", res.Text)
		})
	}
}

func TestChat_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   backend.Kind
		wantDetail string
	}{
		{name: "http error", status: http.StatusInternalServerError, body: "model crashed", wantKind: backend.KindBackendFailure, wantDetail: "llama-server HTTP error 500: model crashed"},
		{name: "not json", status: http.StatusOK, body: "<html>", wantKind: backend.KindBackendFailure, wantDetail: "malformed response"},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, wantKind: backend.KindBackendFailure, wantDetail: "no choices"},
		{name: "missing content", status: http.StatusOK, body: `{"choices":[{"message":{"role":"assistant"}}]}`, wantKind: backend.KindBackendFailure, wantDetail: "missing message content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			_, err := newBackend(srv, time.Second).Chat(context.Background(), &backend.Request{Model: "bar", Content: "hi"})
			var be *backend.Error
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tt.wantKind, be.Kind)
			assert.Equal(t, "bar", be.Model)
			assert.Contains(t, be.Detail, tt.wantDetail)
		})
	}
}

func TestChat_EmptyContentIsNotMalformed(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":""}}]}`)
	})
	res, err := newBackend(srv, time.Second).Chat(context.Background(), &backend.Request{Model: "bar", Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "", res.Text)
}

func TestChat_Timeout(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	_, err := newBackend(srv, 50*time.Millisecond).Chat(context.Background(), &backend.Request{Model: "bar", Content: "hi"})
	assert.Equal(t, backend.KindTimeout, backend.KindOf(err))
}

func TestChat_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	b := NewLlamaServerBackend(Options{BaseURL: url, Timeout: time.Second})
	_, err := b.Chat(context.Background(), &backend.Request{Model: "bar", Content: "hi"})
	var be *backend.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, backend.KindBackendFailure, be.Kind)
	assert.Contains(t, be.Detail, "llama-server request failed")
}

func TestChat_Unconfigured(t *testing.T) {
	b := NewLlamaServerBackend(Options{})
	_, err := b.Chat(context.Background(), &backend.Request{Model: "bar", Content: "hi"})
	assert.Equal(t, backend.KindUnconfigured, backend.KindOf(err))
}

func TestChat_BareHostIsNormalized(t *testing.T) {
	srv, c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, okBody)
	})
	b := NewLlamaServerBackend(Options{
		BaseURL:    strings.TrimPrefix(srv.URL, "http://") + "/",
		Timeout:    time.Second,
		HTTPClient: srv.Client(),
	})
	_, err := b.Chat(context.Background(), &backend.Request{Model: "bar", Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "/v1/chat/completions", c.path)
}

func TestConvertMessages_PlainWithoutImages(t *testing.T) {
	out := convertMessages([]backend.Message{{Role: "user", Content: "hi"}})
	require.Len(t, out, 1)
	assert.Equal(t, openai.Message{Role: "user", Content: "hi"}, out[0])
}
