package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danilofalcao/llama-gateway/internal/auth"
	"github.com/danilofalcao/llama-gateway/internal/backend/llamacpp"
	"github.com/danilofalcao/llama-gateway/internal/backend/llamaserver"
	"github.com/danilofalcao/llama-gateway/internal/backend/ollama"
	"github.com/danilofalcao/llama-gateway/internal/config"
	"github.com/danilofalcao/llama-gateway/internal/dispatch"
	"github.com/danilofalcao/llama-gateway/internal/locator"
	"github.com/danilofalcao/llama-gateway/internal/server"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

func Run() {
	var configPath *string = pflag.StringP("config", "c", "", "sets the config file location e.g. $HOME/llama-gateway.yaml")
	pflag.String("port", "", "port to listen on (default 5000)")
	pflag.String("log-level", "", "one of trace, debug, info, warn, error, fatal")

	pflag.Parse()

	// .env is optional; real environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("ignoring .env: %s", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	exitCh := make(chan string, 1)

	v := config.NewViper(*configPath, pflag.CommandLine)
	cfg, err := config.Load(v, *configPath != "")
	if err != nil {
		log.Fatal(errors.Wrap(err, "invalid configuration"))
	}

	store, closeStore, err := credentialStore(cfg.Auth)
	if err != nil {
		log.Fatal(err)
	}
	defer closeStore()

	models := locator.New(afero.NewOsFs(), cfg.Models.Dir, cfg.Models.Ext)

	svr, err := server.New(ctx, server.Options{
		Port:           cfg.Port,
		Dispatcher:     newDispatcher(cfg, models),
		Models:         models,
		Credentials:    store,
		DefaultModel:   cfg.DefaultModel,
		AllowedOrigins: cfg.Cors.AllowedOrigins,
		LogLevel:       cfg.LogLevel,
		LogNoColor:     cfg.LogNoColor,
		Timeout:        cfg.ServerTimeout,
		ExitCh:         exitCh,
	})
	if err != nil {
		log.Fatalf("unable to start server %s", err.Error())
	}

	go func() {
		if err := svr.Start(); err != nil {
			exitCh <- err.Error()
		}
	}()

	select {
	case s := <-exitCh:
		log.Fatalf("killed with message %s", s)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := svr.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %s", err)
		}
		log.Print("server stopped")
	}
}

func newDispatcher(cfg config.Config, models *locator.Locator) *dispatch.Dispatcher {
	// the server is built even without a URL so that it reports itself unconfigured
	srv := llamaserver.NewLlamaServerBackend(llamaserver.Options{
		BaseURL:   cfg.LlamaServer.URL,
		MaxTokens: cfg.LlamaServer.MaxTokens,
		Timeout:   cfg.Timeout,
	})

	cli := llamacpp.NewLlamaCppBackend(llamacpp.Options{
		BinaryPath: cfg.LlamaCpp.Binary,
		Resolver:   models,
		GPULayers:  cfg.LlamaCpp.GPULayers,
		MaxTokens:  cfg.LlamaCpp.MaxTokens,
		Timeout:    cfg.Timeout,
	})

	fallbackOpts := ollama.Options{Timeout: cfg.Timeout}
	client, err := ollama.NewClient(cfg.Ollama.Host, nil)
	if err != nil {
		log.Printf("ollama fallback disabled: %s", err)
	} else {
		fallbackOpts.Client = client
	}

	return dispatch.New(dispatch.Options{
		Locator:   models,
		Server:    srv,
		CLI:       cli,
		Fallback:  ollama.NewOllamaBackend(fallbackOpts),
		ServerURL: cfg.LlamaServer.URL,
	})
}

// credentialStore consults static keys before redis.
func credentialStore(cfg config.AuthConfig) (auth.Store, func(), error) {
	var chain auth.ChainStore
	closeFn := func() {}
	if len(cfg.Keys) > 0 {
		chain = append(chain, auth.NewStaticStore(cfg.KeyMap()))
	}
	if cfg.RedisURL != "" {
		rs, err := auth.NewRedisStoreFromURL(cfg.RedisURL)
		if err != nil {
			return nil, closeFn, errors.Wrap(err, "error connecting to redis")
		}
		chain = append(chain, rs)
		closeFn = func() { rs.Close() }
	}
	return chain, closeFn, nil
}
