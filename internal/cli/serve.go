// Serve command for the festivals CLI.
package cli

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/festivals/internal/api"
	"github.com/mesh-intelligence/festivals/internal/directory"
	"github.com/mesh-intelligence/festivals/internal/watch"
	"github.com/mesh-intelligence/festivals/pkg/sqlite"
	"github.com/mesh-intelligence/festivals/pkg/types"
)

const shutdownTimeout = 10 * time.Second

func (a *app) newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the directory over HTTP and keep breadcrumbs fresh",
		Long: `Serve attaches the directory, materializes breadcrumbs for every
festival and serves the REST API. Breadcrumbs are rebuilt after every write
through the API, every rebuild.interval, and, with the sqlite backend and
watch enabled, whenever a JSONL file in the data directory changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.ListenAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return sysError(errors.Wrapf(err, "listen on %s", addr))
			}
			return a.serve(ctx, ln)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: listen_addr from config)")
	return cmd
}

// serve runs until ctx is done. It owns ln.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	dir, err := a.attach()
	if err != nil {
		ln.Close()
		return err
	}
	defer dir.Detach()

	svc, err := a.newService(dir)
	if err != nil {
		ln.Close()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if err := svc.Run(ctx); err != nil {
			a.log.Errorw("Rebuild loop stopped", "error", err)
		}
	}()
	defer func() {
		cancel()
		<-runDone
	}()

	if err := a.startWatcher(ctx, dir, svc); err != nil {
		ln.Close()
		return err
	}

	handler := api.NewHandler(dir, svc, api.Options{
		RebuildsPerMinute: a.cfg.RatePerMinute,
		Logger:            a.log,
	})
	srv := &http.Server{
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Warnw("HTTP shutdown", "error", err)
		}
	}()

	a.log.Infow("Serving festivals directory", "addr", ln.Addr().String(), "backend", a.cfg.Backend)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return sysError(errors.Wrap(err, "serve"))
	}
	a.log.Infow("Server stopped")
	return nil
}

// startWatcher reloads the directory and triggers a full rebuild when its
// JSONL files are edited outside the process. Only the sqlite backend keeps
// such files.
func (a *app) startWatcher(ctx context.Context, dir types.Directory, svc *directory.Service) error {
	reloader, ok := dir.(sqlite.Reloader)
	if !a.cfg.Watch || a.cfg.Backend != types.BackendSQLite || !ok {
		return nil
	}
	w, err := watch.New(a.cfg.DataDir, func() error {
		if err := reloader.Reload(); err != nil {
			return err
		}
		svc.Trigger()
		return nil
	}, watch.Options{Logger: a.log})
	if err != nil {
		return sysError(err)
	}
	go func() {
		if err := w.Run(ctx); err != nil {
			a.log.Errorw("Data watcher stopped", "error", err)
		}
	}()
	return nil
}
