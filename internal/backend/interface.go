package backend

import (
	"context"
	"encoding/json"
	"strings"
)

// Image is an attachment uploaded with a chat request.
type Image struct {
	Filename string
	Data     []byte
}

// Request is the uniform chat request handed to every backend.
type Request struct {
	Model        string
	Content      string
	Mode         Mode
	SystemPrompt string
	Images       []Image
	// Schema constrains the output format. Nil means unconstrained.
	Schema json.RawMessage
}

// Validate checks the preconditions every backend relies on.
func (r *Request) Validate() error {
	if r == nil || strings.TrimSpace(r.Content) == "" {
		return &Error{Kind: KindInvalidRequest, Detail: "missing prompt content"}
	}
	return nil
}

// Result is the uniform success value returned by every backend.
type Result struct {
	Text    string
	Backend string
}

// Backend defines the interface that all text generation backends must implement
type Backend interface {
	// Name returns the name of the backend
	Name() string

	// Chat runs a single, non-streaming completion. Failures are always *Error.
	Chat(ctx context.Context, req *Request) (*Result, error)
}

// Message is a chat message in the shape shared by the HTTP and library backends.
type Message struct {
	Role    string
	Content string
	Images  []Image
}

// BuildMessages returns the optional system message followed by the user message.
// Images are attached to the last message.
func BuildMessages(req *Request) []Message {
	messages := make([]Message, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, Message{Role: "user", Content: req.Content})
	if len(req.Images) > 0 {
		messages[len(messages)-1].Images = req.Images
	}
	return messages
}
