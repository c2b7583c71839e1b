package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/aretw0/turnstack/pkg/adapters/http"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves the bot over HTTP: POST /conversations/{id}/activities runs a turn,
GET /conversations/{id}/events streams replies, and /metrics exposes Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Addr = addr
		}
		if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
			cfg.HTTP.MetricsAddr = addr
		}

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, a)
	},
}

// serve runs the API server, and a separate metrics server when one is configured,
// until ctx is done or one of them fails.
func serve(ctx context.Context, a *app) error {
	opts := []httpAdapter.Option{httpAdapter.WithLogger(a.logger)}
	servers := []*http.Server{}

	if a.cfg.HTTP.MetricsAddr == "" {
		opts = append(opts, httpAdapter.WithMetricsHandler(a.metricsHandler()))
	} else {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.metricsHandler())
		servers = append(servers, &http.Server{Addr: a.cfg.HTTP.MetricsAddr, Handler: mux})
	}
	servers = append([]*http.Server{{
		Addr:    a.cfg.HTTP.Addr,
		Handler: httpAdapter.NewHandler(a.dispatcher, opts...),
	}}, servers...)

	g, ctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			a.logger.Info("Server listening", "address", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("Shutting down")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
				_ = srv.Close()
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Address to listen on (default from config, \":8080\")")
	serveCmd.Flags().String("metrics-addr", "", "Separate address for /metrics (default: served on --addr)")
}
