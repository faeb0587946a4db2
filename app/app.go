// Package app wires configuration, observability and the selected
// concurrency backend into a running server with signal-driven shutdown.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/searchktools/c10k-httpd/config"
	"github.com/searchktools/c10k-httpd/core"
	"github.com/searchktools/c10k-httpd/core/docroot"
	"github.com/searchktools/c10k-httpd/core/observability"
	"github.com/searchktools/c10k-httpd/core/threadpool"
)

// Backend is the common surface of the three concurrency models.
type Backend interface {
	Run() error
	Shutdown()
}

// App is one configured server instance.
type App struct {
	cfg *config.Config
	log zerolog.Logger
}

// New creates an application instance.
func New(cfg *config.Config, log zerolog.Logger) *App {
	return &App{cfg: cfg, log: log}
}

// Run blocks until the backend exits, normally after SIGINT/SIGTERM.
func (a *App) Run() error {
	resolver, err := docroot.New(a.cfg.DocRoot)
	if err != nil {
		return err
	}

	stats := observability.NewStats()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go stats.Report(ctx, a.cfg.StatsInterval, a.log)

	var admin *observability.AdminServer
	if a.cfg.AdminAddr != "" {
		admin = observability.NewAdminServer(a.cfg.AdminAddr, stats, a.log)
		go func() {
			if err := admin.Run(); err != nil {
				a.log.Error().Err(err).Msg("admin server failed")
			}
		}()
	}

	backend := a.buildBackend(resolver, stats)

	go a.awaitSignal(backend, admin)

	a.log.Info().Str("doc_root", resolver.Root()).Str("backend", a.cfg.Backend).Msg("starting")
	return backend.Run()
}

func (a *App) buildBackend(resolver *docroot.Resolver, stats *observability.Stats) Backend {
	switch a.cfg.Backend {
	case config.BackendThreadPool:
		return threadpool.New(threadpool.Options{
			Bind:             a.cfg.Bind,
			Port:             a.cfg.Port,
			Workers:          a.cfg.Workers,
			QueueSize:        a.cfg.QueueSize,
			KeepAliveMax:     a.cfg.KeepAliveMax,
			KeepAliveTimeout: a.cfg.KeepAliveTimeout,
		}, resolver, stats, a.log)
	case config.BackendPoll:
		return core.NewPollServer(a.reactorOptions(), resolver, stats, a.log)
	default:
		return core.NewNotifyServer(a.reactorOptions(), resolver, stats, a.log)
	}
}

func (a *App) reactorOptions() core.Options {
	return core.Options{
		Bind:           a.cfg.Bind,
		Port:           a.cfg.Port,
		MaxConnections: a.cfg.MaxConnections,
		Preallocate:    a.cfg.Preallocate,
		IdleTimeout:    a.cfg.IdleTimeout,
	}
}

func (a *App) awaitSignal(backend Backend, admin *observability.AdminServer) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	a.log.Info().Str("signal", sig.String()).Msg("shutting down")

	if admin != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		admin.Shutdown(ctx)
	}
	backend.Shutdown()
}
