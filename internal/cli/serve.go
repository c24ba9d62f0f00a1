package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jbweber/homelab/dao"
	"github.com/jbweber/homelab/dao/internal/api"
	"github.com/jbweber/homelab/dao/internal/config"
	"github.com/jbweber/homelab/dao/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured store over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store dao.Store[Entity]) error {
				return a.serve(ctx, cmd, store)
			})
		},
	}
	cmd.Flags().String("addr", config.NewConfig().Addr, "address to listen on")
	return cmd
}

func (a *app) serve(ctx context.Context, cmd *cobra.Command, store dao.Store[Entity]) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return err
	}

	handler := api.NewRouter(metrics.Instrument(collector, a.cfg.Backend, store), a.logger, reg)

	ln, err := net.Listen("tcp", a.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.Addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	a.logger.Info("starting dao service", "addr", ln.Addr().String(), "backend", a.cfg.Backend, "table", a.cfg.Table)
	fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", ln.Addr())

	select {
	case err := <-errc:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.logger.Info("shutting down dao service")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
