package backend

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies every failure a backend or the dispatcher can report.
type Kind int

const (
	KindUnconfigured Kind = iota + 1
	KindNotFound
	KindTimeout
	KindBackendFailure
	KindInvalidMode
	KindInvalidRequest
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindUnconfigured:
		return "unconfigured"
	case KindNotFound:
		return "not found"
	case KindTimeout:
		return "timeout"
	case KindBackendFailure:
		return "backend failure"
	case KindInvalidMode:
		return "invalid mode"
	case KindInvalidRequest:
		return "invalid request"
	case KindUnsupported:
		return "unsupported"
	}
	return "unknown"
}

// Error is the single error type crossing the dispatch boundary.
type Error struct {
	Kind   Kind
	Model  string
	Mode   Mode
	Detail string
	// Err is the underlying cause, if any. It is kept for logs and errors.Is and
	// never shown to clients.
	Err error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Unconfigured(reason string) *Error {
	return &Error{Kind: KindUnconfigured, Detail: reason}
}

func NotFound(model string) *Error {
	return &Error{Kind: KindNotFound, Model: model, Detail: fmt.Sprintf("model not found: %s", model)}
}

func Timeout(model string, cause error) *Error {
	return &Error{Kind: KindTimeout, Model: model, Detail: fmt.Sprintf("request timed out for model %s", model), Err: cause}
}

func Failure(model, detail string, cause error) *Error {
	return &Error{Kind: KindBackendFailure, Model: model, Detail: detail, Err: cause}
}

func InvalidMode(mode Mode) *Error {
	return &Error{
		Kind:   KindInvalidMode,
		Mode:   mode,
		Detail: fmt.Sprintf("invalid llama_mode %q, valid options are %q or %q", string(mode), ModeServer, ModeCLI),
	}
}

func Unsupported(model, detail string) *Error {
	return &Error{Kind: KindUnsupported, Model: model, Detail: detail}
}

// KindOf reports the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return 0
}
