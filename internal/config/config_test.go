package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
port: "9000"
llamaserver:
  url: localhost:8080
auth:
  keys:
    - key: AbC-123
      principal: alice
models:
  ext: .gguf
`)
	cfg, err := Load(NewViper(path, nil), true)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "http://localhost:8080", cfg.LlamaServer.URL)
	assert.Equal(t, "gguf", cfg.Models.Ext)
	assert.Equal(t, "/data1/GGUF", cfg.Models.Dir)
	assert.Equal(t, "/data1/llama.cpp/bin/llama-cli", cfg.LlamaCpp.Binary)
	assert.Equal(t, "deepseek-coder-v2:latest", cfg.DefaultModel)
	assert.Equal(t, 40, cfg.LlamaCpp.GPULayers)
	assert.Equal(t, 512, cfg.LlamaCpp.MaxTokens)
	assert.Equal(t, 300*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"*"}, cfg.Cors.AllowedOrigins)
	assert.Equal(t, map[string]string{"AbC-123": "alice"}, cfg.Auth.KeyMap())
}

func TestLoad_LegacyEnvironment(t *testing.T) {
	t.Setenv("GGUF_DIR", "/srv/gguf")
	t.Setenv("LLAMA_CPP_CLI", "/usr/bin/llama-cli")
	t.Setenv("LLAMA_SERVER_URL", "https://llama.internal/")
	t.Setenv("DEFAULT_MODEL", "qwen2.5:7b")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("TIMEOUT", "45s")

	cfg, err := Load(NewViper(writeConfig(t, "{}"), nil), true)
	require.NoError(t, err)

	assert.Equal(t, "/srv/gguf", cfg.Models.Dir)
	assert.Equal(t, "/usr/bin/llama-cli", cfg.LlamaCpp.Binary)
	assert.Equal(t, "https://llama.internal", cfg.LlamaServer.URL)
	assert.Equal(t, "qwen2.5:7b", cfg.DefaultModel)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Auth.RedisURL)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
}

func TestLoad_Flags(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("port", "", "")
	fs.String("log-level", "", "")
	require.NoError(t, fs.Parse([]string{"--port", "7070", "--log-level", "debug"}))

	cfg, err := Load(NewViper(writeConfig(t, "{}"), fs), true)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(NewViper(filepath.Join(t.TempDir(), "nope.yaml"), nil), true)
	assert.Error(t, err)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	err := Config{}.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{"port", "models#dir", "models#ext", "llamacpp#binary", "timeout", "server_timeout", "credential"} {
		assert.Contains(t, msg, want)
	}
}

func TestValidate_OK(t *testing.T) {
	cfg := Config{
		Port:          "5000",
		Timeout:       time.Second,
		ServerTimeout: time.Second,
		Models:        ModelsConfig{Dir: "/m", Ext: "gguf"},
		LlamaCpp:      LlamaCppConfig{Binary: "/bin/llama-cli"},
		Auth:          AuthConfig{Keys: []APIKey{{Key: "k"}}},
	}
	assert.NoError(t, cfg.Validate())
}
