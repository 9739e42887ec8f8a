package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/edge-infer/scheduler/arbiter"
	"github.com/edge-infer/scheduler/logutil"
	"github.com/edge-infer/scheduler/monitor"
	"github.com/edge-infer/scheduler/partition"
	"github.com/edge-infer/scheduler/registry"
	"github.com/edge-infer/scheduler/sched"
	"github.com/edge-infer/scheduler/schedconfig"
	"github.com/edge-infer/scheduler/transport"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cobra.CheckErr(newRootCmd().ExecuteContext(ctx))
}

func newRootCmd() *cobra.Command {
	var metricsAddr string

	rootCmd := &cobra.Command{
		Use:   "scheduler SOCKET_PATH",
		Short: "Coordinate runtime lifecycle, partitioning, and resource arbitration over a unixgram socket",
		Args:  cobra.ExactArgs(1),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SilenceUsage = true
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := schedconfig.FromEnvironment(args[0])
			if err != nil {
				return err
			}
			if metricsAddr != "" {
				cfg.MetricsAddr = metricsAddr
			}
			return run(cmd.Context(), cfg)
		},
	}

	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (disabled if empty)")
	cobra.EnableCommandSorting = false

	return rootCmd
}

func run(ctx context.Context, cfg *schedconfig.Config) error {
	level := slog.LevelInfo
	if cfg.Debug {
		level = logutil.LevelTrace
	}
	slog.SetDefault(logutil.NewLogger(os.Stderr, level))

	ep, err := transport.Bind(cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	defer ep.Close()

	reg := registry.New()
	part := partition.New()
	arb := arbiter.New(reg)
	controller := sched.New(ep, reg, part, arb)

	cpuSampler := &monitor.ProcStatCPUSampler{}
	mon := monitor.New(cfg.MonitorInterval, cpuSampler, monitor.UnavailableGPUSampler{})
	go mon.Run(ctx)

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			srv.Close()
		}()
		slog.Info("metrics server listening", "addr", cfg.MetricsAddr)
	}

	slog.Info("scheduler listening", "path", cfg.SocketPath)
	return controller.Run(ctx)
}
