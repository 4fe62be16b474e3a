package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/drQedwards/ppm/pkg/registry"
)

// serveOpts holds the flags for the serve command.
type serveOpts struct {
	addr  string
	dir   string
	token string
}

// serveCommand creates the local registry server command.
func (c *CLI) serveCommand() *cobra.Command {
	opts := &serveOpts{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a local wheel registry",
		Long: `Serve a directory of wheels as a PEP 503 simple index with an
upload endpoint.

Resolvers point at it with --index or --extra-index; "ppm publish"
uploads to it. Uploads require the bearer token (--token or
PPM_REGISTRY_TOKEN); without one, anyone can upload.

Example:
  ppm serve --dir wheelhouse --addr :8420
  ppm resolve --extra-index http://localhost:8420/simple mypkg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":8420", "listen address")
	cmd.Flags().StringVar(&opts.dir, "dir", "wheelhouse", "directory of wheels to serve")
	cmd.Flags().StringVar(&opts.token, "token", os.Getenv("PPM_REGISTRY_TOKEN"), "bearer token required for uploads")

	return cmd
}

func runServe(ctx context.Context, opts *serveOpts) error {
	logger := loggerFromContext(ctx)

	store, err := registry.OpenStore(opts.dir)
	if err != nil {
		return err
	}
	srv := registry.NewServer(store, opts.token, logger)

	httpSrv := &http.Server{
		Addr:              opts.addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Serving %d project(s) from %s on %s", len(store.Projects()), opts.dir, opts.addr)
		if opts.token == "" {
			logger.Warn("no token configured, uploads are unauthenticated")
		}
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
