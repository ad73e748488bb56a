package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	promexport "github.com/MrEthical07/hrdesk/metrics/export/prometheus"
)

func newMetricsCmd(a *app) *cobra.Command {
	var listen string
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Probe the backend and print client metrics",
		Long: `Probe the backend with the stored session and print the client
counters in Prometheus text format.

With --listen the probe repeats every --interval and the counters are
served on /metrics until interrupted. The repeated probes keep the
session refreshed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(cmd); err != nil {
				return err
			}
			exporter := promexport.NewExporter(a.client)

			if listen == "" {
				a.probe(cmd.Context())
				return writeMetrics(cmd, exporter)
			}
			return a.serveMetrics(cmd.Context(), exporter, listen, interval)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Serve /metrics on this address instead of printing once")
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "Probe interval with --listen")
	return cmd
}

func (a *app) probe(ctx context.Context) {
	if _, err := a.client.Me(ctx); err != nil {
		a.logger.Warn("probe failed", "error", err)
	}
}

func writeMetrics(cmd *cobra.Command, exporter *promexport.Exporter) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(exporter); err != nil {
		return err
	}
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(out(cmd), mf); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) serveMetrics(ctx context.Context, exporter *promexport.Exporter, addr string, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("--interval must be positive")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	a.logger.Info("serving metrics", "addr", addr, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	a.probe(ctx)
	for {
		select {
		case <-ticker.C:
			if !a.client.Store().LoggedIn() {
				a.logger.Warn("session ended; stopping probes")
				ticker.Stop()
				continue
			}
			a.probe(ctx)
		case err := <-errc:
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}
	}
}
