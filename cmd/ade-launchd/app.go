package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/0xADE/ade-launchd/internal/candidate"
	"github.com/0xADE/ade-launchd/internal/config"
	"github.com/0xADE/ade-launchd/internal/icons"
	"github.com/0xADE/ade-launchd/internal/indexer"
	"github.com/0xADE/ade-launchd/internal/launcher"
	"github.com/0xADE/ade-launchd/internal/logging"
	"github.com/0xADE/ade-launchd/internal/metrics"
	"github.com/0xADE/ade-launchd/internal/search"
	"github.com/0xADE/ade-launchd/internal/usage"
	"github.com/0xADE/ade-launchd/server"
)

// app owns every long-lived component of the daemon.
type app struct {
	cfg      *config.Config
	log      *logging.Logger
	registry *prometheus.Registry
	icons    *icons.Resolver
	indexer  *indexer.Indexer
	engine   *launcher.Engine
	store    *candidate.Store
	server   *server.Server
}

func newApp(ctx context.Context, cfg *config.Config, log *logging.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	m := metrics.New(a.registry)

	if err := os.MkdirAll(cfg.IconCacheDir(), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	res, err := icons.Open(cfg.IconDB(), cfg.IconCacheDir(), cfg.IconPaths(), log)
	if err != nil {
		// icons are cosmetic; run without them
		log.Warn("icon resolver unavailable", "error", err)
	} else {
		a.icons = res
	}

	counter, err := usage.NewCounter(cfg.DataDir())
	if err != nil {
		a.close()
		return nil, err
	}

	a.indexer = indexer.New(indexer.Options{
		Dirs:       cfg.ApplicationDirs(),
		LocalDir:   cfg.LocalApplicationsDir(),
		AliasFile:  cfg.AliasFile(),
		IgnoreFile: cfg.IgnoreFile(),
		ConfigFile: cfg.RCFile(),
		CacheFile:  cfg.DesktopCacheFile(),
		Workers:    cfg.Workers(),
		Logger:     log,
		Icons:      a.iconResolver(),
		Metrics:    m,
	})
	a.engine = launcher.New(launcher.Options{
		LaunchersFile: cfg.LaunchersFile(),
		Indexer:       a.indexer,
		Counter:       counter,
		PathDirs:      cfg.Path(),
		Icons:         a.iconResolver(),
		Logger:        log,
		Metrics:       m,
	})

	snap, err := a.engine.Load(ctx)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to load launchers: %w", err)
	}
	a.store = candidate.NewStore(snap)

	a.server, err = server.NewServer(server.Options{
		Socket:    cfg.UnixSocket(),
		Store:     a.store,
		Engine:    a.engine,
		Terminal:  cfg.Terminal(),
		ListLimit: cfg.ListLimit(),
		Workers:   cfg.Workers(),
		Spawner:   search.NewPool(cfg.Workers()),
		Logger:    log,
		Metrics:   m,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// iconResolver keeps a nil *icons.Resolver from turning into a non-nil
// interface.
func (a *app) iconResolver() indexer.IconResolver {
	if a.icons == nil {
		return nil
	}
	return a.icons
}

// run serves until ctx is done or a component fails.
func (a *app) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := a.cfg.Watch(gctx, config.DefaultDebounce, a.log, func() { a.reload(gctx) }); err != nil {
			a.log.Warn("config watcher stopped", "error", err)
		}
		return nil
	})

	if addr := a.cfg.MetricsAddr(); addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			a.log.Info("serving metrics", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// reload picks up changed configuration files.
func (a *app) reload(ctx context.Context) {
	a.indexer.SetDirs(a.cfg.ApplicationDirs())
	if _, err := a.server.Reindex(ctx); err != nil {
		a.log.Warn("reload failed", "error", err)
	}
}

func (a *app) close() {
	if a.server != nil {
		_ = a.server.Stop()
	}
	if a.indexer != nil {
		a.indexer.Wait()
	}
	if a.icons != nil {
		if err := a.icons.Close(); err != nil {
			a.log.Warn("failed to close icon index", "error", err)
		}
	}
}
