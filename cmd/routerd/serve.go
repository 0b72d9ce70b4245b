// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/atp-router/routerd/config"
	"github.com/atp-router/routerd/log"
	"github.com/atp-router/routerd/policy"
	"github.com/atp-router/routerd/server"
)

func serveCmd() *cobra.Command {
	var (
		configPath   string
		registryPath string
		metricsAddr  string
		localRouter  string
		localADN     string
		localCluster string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the router's data-plane and control-plane loops",
		Long: `serve loads the typed configuration and model registry, wires every
component in the §9 root-context composition, and blocks running the
lifecycle, stats-flush, and AGP keepalive loops until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.NewZeroLogger(cmd.OutOrStdout(), zerolog.InfoLevel)

			cfg, err := config.LoadFile(configPath)
			if err != nil {
				logger.Error("config load failed", "error", err)
				return err
			}

			promReg := prometheus.NewRegistry()
			pol := policy.All(policy.ClusterHintEngine{Default: localCluster})

			srv, err := server.New(cfg, logger, promReg, registryPath, pol, localRouter, localADN, localCluster)
			if err != nil {
				return err
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
			httpSrv := &http.Server{Addr: metricsAddr, Handler: mux}
			go func() {
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("metrics server exited", "error", err)
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			logger.Info("routerd starting", "metrics_addr", metricsAddr)
			runErr := srv.Run(ctx)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)

			logger.Info("routerd stopped")
			return runErr
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "./config.yaml", "path to the typed configuration file")
	cmd.Flags().StringVar(&registryPath, "registry", "./data/model_registry.json", "path to the model registry JSON file")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address to serve /metrics on")
	cmd.Flags().StringVar(&localRouter, "router-id", "router-local", "this router's local router_id")
	cmd.Flags().StringVar(&localADN, "adn", "local-adn", "this router's Agent Domain Number")
	cmd.Flags().StringVar(&localCluster, "cluster-id", "default", "this router's local cluster_id")

	return cmd
}
