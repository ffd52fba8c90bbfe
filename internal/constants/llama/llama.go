// Package llama holds the defaults for the llama.cpp and ollama backends.
package llama

import "time"

const (
	DefaultModel      = "deepseek-coder-v2:latest"
	DefaultModelsDir  = "/data1/GGUF"
	DefaultModelExt   = "gguf"
	DefaultBinary     = "/data1/llama.cpp/bin/llama-cli"
	DefaultGPULayers  = 40
	DefaultMaxTokens  = 512
	DefaultTimeout    = 300 * time.Second
	DefaultServerPath = "/v1/chat/completions"

	// NoResponse is returned by llama-cli when the model printed nothing.
	NoResponse = "No response generated."
)
