// Package dispatch picks the backend that serves a chat request.
//
// Local model files are the only signal that a model is self-hosted. A model
// without one always goes to the fallback backend, whatever mode was asked for;
// the mode only chooses between the two self-hosted transports. Checking the
// mode first would let callers force self-hosted paths for models that are not
// on disk.
package dispatch

import (
	"context"
	"time"

	"github.com/danilofalcao/llama-gateway/internal/backend"
	logutils "github.com/danilofalcao/llama-gateway/internal/utils/logger"
)

// Route names the backend chosen for a request.
type Route string

const (
	RouteServer   Route = "server"
	RouteCLI      Route = "cli"
	RouteFallback Route = "fallback"
)

// Availability answers whether a model has a local artifact.
type Availability interface {
	IsAvailableLocally(name string) bool
}

type Options struct {
	Locator  Availability
	Server   backend.Backend
	CLI      backend.Backend
	Fallback backend.Backend
	// ServerURL is the configured llama-server base URL. Empty means server
	// mode is unavailable.
	ServerURL string
}

type Dispatcher struct {
	locator   Availability
	backends  map[Route]backend.Backend
	serverURL string
}

func New(opts Options) *Dispatcher {
	return &Dispatcher{
		locator: opts.Locator,
		backends: map[Route]backend.Backend{
			RouteServer:   opts.Server,
			RouteCLI:      opts.CLI,
			RouteFallback: opts.Fallback,
		},
		serverURL: opts.ServerURL,
	}
}

// Decide returns the route for req without invoking anything.
func (d *Dispatcher) Decide(req *backend.Request) (Route, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if d.locator == nil || !d.locator.IsAvailableLocally(req.Model) {
		return RouteFallback, nil
	}
	switch req.Mode {
	case backend.ModeServer:
		if d.serverURL == "" {
			return "", backend.Unconfigured("LLAMA_SERVER_URL environment variable not set for server mode")
		}
		return RouteServer, nil
	case backend.ModeCLI:
		return RouteCLI, nil
	default:
		return "", backend.InvalidMode(req.Mode)
	}
}

// Route decides and invokes exactly one backend. Backend errors are returned
// unchanged; nothing is retried.
func (d *Dispatcher) Route(ctx context.Context, req *backend.Request) (*backend.Result, error) {
	lgr := logutils.FromContext(ctx)

	route, err := d.Decide(req)
	if err != nil {
		lgr.Warnf(ctx, "rejected model=%s mode=%s: %s", modelOf(req), modeOf(req), err)
		return nil, err
	}

	be := d.backends[route]
	if be == nil {
		return nil, backend.Unconfigured("no backend configured for route " + string(route))
	}

	lgr.Infof(ctx, "dispatching model=%s mode=%s to %s", req.Model, req.Mode, be.Name())
	start := time.Now()
	res, err := be.Chat(ctx, req)
	if err != nil {
		lgr.Errorf(ctx, "%s failed after %v: %s", be.Name(), time.Since(start), err)
		return nil, err
	}
	lgr.Debugf(ctx, "%s answered in %v", be.Name(), time.Since(start))
	return res, nil
}

func modelOf(req *backend.Request) string {
	if req == nil {
		return ""
	}
	return req.Model
}

func modeOf(req *backend.Request) backend.Mode {
	if req == nil {
		return ""
	}
	return req.Mode
}
