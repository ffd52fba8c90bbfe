// Package config loads the gateway configuration once at startup. The result is
// passed explicitly to every component; nothing reads the environment later.
package config

import (
	"strings"
	"time"

	"github.com/danilofalcao/llama-gateway/internal/constants/llama"
	"github.com/danilofalcao/llama-gateway/internal/utils"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type ModelsConfig struct {
	Dir string `mapstructure:"dir"`
	Ext string `mapstructure:"ext"`
}

type LlamaCppConfig struct {
	Binary    string `mapstructure:"binary"`
	GPULayers int    `mapstructure:"gpu_layers"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type LlamaServerConfig struct {
	URL       string `mapstructure:"url"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type OllamaConfig struct {
	Host string `mapstructure:"host"`
}

// APIKey is a statically configured credential. Keys are a list rather than a
// map because viper lower-cases map keys.
type APIKey struct {
	Key       string `mapstructure:"key"`
	Principal string `mapstructure:"principal"`
}

type AuthConfig struct {
	RedisURL string   `mapstructure:"redis_url"`
	Keys     []APIKey `mapstructure:"keys"`
}

// KeyMap returns the static keys as key -> principal.
func (a AuthConfig) KeyMap() map[string]string {
	m := make(map[string]string, len(a.Keys))
	for _, k := range a.Keys {
		m[k.Key] = k.Principal
	}
	return m
}

type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type Config struct {
	Port          string            `mapstructure:"port"`
	LogLevel      string            `mapstructure:"log_level"`
	LogNoColor    bool              `mapstructure:"log_no_color"`
	Timeout       time.Duration     `mapstructure:"timeout"`
	ServerTimeout time.Duration     `mapstructure:"server_timeout"`
	DefaultModel  string            `mapstructure:"default_model"`
	Models        ModelsConfig      `mapstructure:"models"`
	LlamaCpp      LlamaCppConfig    `mapstructure:"llamacpp"`
	LlamaServer   LlamaServerConfig `mapstructure:"llamaserver"`
	Ollama        OllamaConfig      `mapstructure:"ollama"`
	Auth          AuthConfig        `mapstructure:"auth"`
	Cors          CorsConfig        `mapstructure:"cors"`
}

// legacyEnv maps config keys to the environment variables older deployments set.
var legacyEnv = map[string]string{
	"default_model":   "DEFAULT_MODEL",
	"models#dir":      "GGUF_DIR",
	"llamacpp#binary": "LLAMA_CPP_CLI",
	"llamaserver#url": "LLAMA_SERVER_URL",
	"ollama#host":     "OLLAMA_HOST",
	"auth#redis_url":  "REDIS_URL",
}

// NewViper prepares a viper instance with defaults, environment bindings and,
// when non-nil, the given flags. configPath may be empty, in which case
// ./config.yaml is used if it exists.
func NewViper(configPath string, flags *pflag.FlagSet) *viper.Viper {
	// Have to use custom key delimiter to allow for models with periods in the name
	v := viper.NewWithOptions(
		viper.KeyDelimiter("#"),
		viper.EnvKeyReplacer(strings.NewReplacer("#", "_")),
	)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetDefault("port", "5000")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_no_color", false)
	v.SetDefault("timeout", llama.DefaultTimeout)
	v.SetDefault("server_timeout", llama.DefaultTimeout+30*time.Second)
	v.SetDefault("default_model", llama.DefaultModel)
	v.SetDefault("models#dir", llama.DefaultModelsDir)
	v.SetDefault("models#ext", llama.DefaultModelExt)
	v.SetDefault("llamacpp#binary", llama.DefaultBinary)
	v.SetDefault("llamacpp#gpu_layers", llama.DefaultGPULayers)
	v.SetDefault("llamacpp#max_tokens", llama.DefaultMaxTokens)
	v.SetDefault("llamaserver#max_tokens", llama.DefaultMaxTokens)
	v.SetDefault("cors#allowed_origins", []string{"*"})

	for key, env := range legacyEnv {
		v.BindEnv(key, env)
	}
	v.AutomaticEnv()

	if flags != nil {
		if f := flags.Lookup("port"); f != nil {
			v.BindPFlag("port", f)
		}
		if f := flags.Lookup("log-level"); f != nil {
			v.BindPFlag("log_level", f)
		}
	}
	return v
}

// Load reads the config file, if any, and decodes and validates the result.
// A missing file is only an error when it was asked for explicitly.
func Load(v *viper.Viper, explicitFile bool) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitFile || !errors.As(err, &notFound) {
			return Config{}, errors.Wrap(err, "error reading config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "error unmarshaling config")
	}
	cfg.LlamaServer.URL = utils.NormalizeBaseURL(cfg.LlamaServer.URL)
	cfg.Models.Ext = strings.TrimPrefix(strings.TrimSpace(cfg.Models.Ext), ".")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var result *multierror.Error
	if strings.TrimSpace(c.Port) == "" {
		result = multierror.Append(result, errors.New("port is required"))
	}
	if c.Models.Dir == "" {
		result = multierror.Append(result, errors.New("models#dir (GGUF_DIR) is required"))
	}
	if c.Models.Ext == "" {
		result = multierror.Append(result, errors.New("models#ext is required"))
	}
	if c.LlamaCpp.Binary == "" {
		result = multierror.Append(result, errors.New("llamacpp#binary (LLAMA_CPP_CLI) is required"))
	}
	if c.Timeout <= 0 {
		result = multierror.Append(result, errors.Errorf("timeout must be positive, got %v", c.Timeout))
	}
	if c.ServerTimeout <= 0 {
		result = multierror.Append(result, errors.Errorf("server_timeout must be positive, got %v", c.ServerTimeout))
	}
	if c.Auth.RedisURL == "" && len(c.Auth.Keys) == 0 {
		result = multierror.Append(result, errors.New("no credential source: set auth#redis_url (REDIS_URL) or auth#keys"))
	}
	return result.ErrorOrNil()
}
