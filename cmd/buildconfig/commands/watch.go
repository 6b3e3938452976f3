package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/buildconfig/internal/config"
	"git.home.luguber.info/inful/buildconfig/internal/config/catalog"
	ferrors "git.home.luguber.info/inful/buildconfig/internal/foundation/errors"
	"git.home.luguber.info/inful/buildconfig/internal/logfields"
	"git.home.luguber.info/inful/buildconfig/internal/metrics"
	"git.home.luguber.info/inful/buildconfig/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Project     string        `arg:"" optional:"" help:"Project checkout directory" default:"." type:"existingdir"`
	ConfigFile  string        `name:"config-file" short:"f" help:"Configuration file relative to the project (default: discover)"`
	MetricsAddr string        `name:"metrics-addr" help:"Serve Prometheus metrics on this address, e.g. :9108"`
	Debounce    time.Duration `help:"Quiet period before re-validating" default:"500ms"`
	CacheSize   int           `name:"cache-size" help:"Validated configurations kept in memory" default:"64"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return w.run(ctx, g, root)
}

func (w *WatchCmd) run(ctx context.Context, g *Global, root *CLI) error {
	project, err := filepath.Abs(w.Project)
	if err != nil {
		return err
	}
	w.Project = project
	env, err := root.environment(g.Logger)
	if err != nil {
		return err
	}

	reg := prom.NewRegistry()
	cache := config.NewSpecCache(w.CacheSize)
	loader := config.NewLoader(
		config.WithLogger(g.Logger),
		config.WithRecorder(metrics.NewPrometheusRecorder(reg)),
		config.WithCache(cache),
	)
	reporter := ferrors.NewCLIErrorAdapter(root.Verbose, g.Logger)

	check := func(ctx context.Context, changed string) {
		if changed != "" {
			cache.Invalidate(changed)
		}
		w.check(ctx, g, loader, env, reporter)
	}

	watcher, err := watch.New(w.Project, w.ConfigFile, check,
		watch.WithDebounce(w.Debounce),
		watch.WithLogger(g.Logger))
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "start watcher").
			WithContext("path", w.Project).
			Build()
	}

	var server *http.Server
	if w.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.HTTPHandler(reg))
		server = &http.Server{Addr: w.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			g.Logger.Info("Serving metrics", slog.String("addr", w.MetricsAddr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				g.Logger.Error("Metrics server failed", logfields.Error(err))
			}
		}()
	}

	check(ctx, "")
	err = watcher.Run(ctx)

	if server != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		if shutdownErr := server.Shutdown(stopCtx); shutdownErr != nil {
			g.Logger.Warn("Failed to stop metrics server", logfields.Error(shutdownErr))
		}
	}
	return err
}

// check validates once and prints a one line report.
func (w *WatchCmd) check(ctx context.Context, g *Global, loader *config.Loader, env *catalog.Environment, reporter *ferrors.CLIErrorAdapter) {
	spec, err := loader.Load(ctx, w.Project, env, w.ConfigFile)
	if err != nil {
		_, _ = fmt.Fprintln(g.Out, reporter.FormatError(config.Classify(err)))
		return
	}
	name := spec.SourceFile
	if rel, relErr := filepath.Rel(w.Project, spec.SourceFile); relErr == nil {
		name = rel
	}
	_, _ = fmt.Fprintf(g.Out, "OK %s (version %d, %s, snapshot %s)\n", name, spec.Version, spec.DocType, spec.Snapshot()[:12])
}
