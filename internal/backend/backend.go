package backend

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Mode is the caller's choice between the two self-hosted transports.
type Mode string

const (
	ModeCLI    Mode = "cli"
	ModeServer Mode = "server"
)

// ParseMode normalizes a mode string. Unknown values are returned as-is so the
// dispatcher can decide whether they matter.
func ParseMode(s string) Mode {
	return Mode(strings.ToLower(strings.TrimSpace(s)))
}

func (m Mode) Valid() bool {
	return m == ModeCLI || m == ModeServer
}

const schemaKey = "schema"

// ParseSchema decodes a client supplied schema descriptor. A descriptor with a
// top-level "schema" key is unwrapped; anything else is used whole. Blank input
// yields a nil schema.
func ParseSchema(raw string) (json.RawMessage, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if !json.Valid([]byte(raw)) {
		return nil, errors.New("invalid json_schema: not valid JSON")
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		if inner, ok := obj[schemaKey]; ok {
			return inner, nil
		}
	}
	return json.RawMessage(raw), nil
}

// CompactSchema renders s on a single line, as command-line flags need it.
func CompactSchema(s json.RawMessage) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, s); err != nil {
		return "", errors.Wrap(err, "compacting schema")
	}
	return buf.String(), nil
}
