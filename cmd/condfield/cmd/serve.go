package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/solatis/condfield/internal/core/api"
	"github.com/solatis/condfield/internal/core/auth"
	"github.com/solatis/condfield/internal/core/config"
	"github.com/solatis/condfield/internal/core/metrics"
	"github.com/solatis/condfield/internal/core/server"
	"github.com/solatis/condfield/internal/i18n"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC field service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50051, "gRPC server port")
	serveCmd.Flags().String("metrics-addr", "", "Prometheus listen address (empty disables)")
	serveCmd.Flags().String("locale", "en", "default message locale")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no HMAC secrets configured (set %s_HMAC_SECRET environment variable)", config.EnvPrefix)
	}

	st, queries, closeDB, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	collector := metrics.NewCollector(metrics.DefaultNamespace, metrics.DefaultSubsystem, nil)
	service, err := api.NewFieldService(st, cfg, i18n.Default(), collector, logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	authenticator := auth.NewAuthenticator(secrets, queries)
	grpcServer, err := server.NewGRPCServer(&cfg.Server, service, authenticator, collector, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("starting condfield", "version", Version, "addr", grpcServer.Addr())

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return grpcServer.Start(egctx)
	})

	var metricsServer *server.MetricsServer
	if cfg.Server.MetricsAddr != "" {
		metricsServer = server.NewMetricsServer(cfg.Server.MetricsAddr, collector, logger)
		eg.Go(metricsServer.Start)
	}

	eg.Go(func() error {
		<-egctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if metricsServer != nil {
			_ = metricsServer.Shutdown(shutdownCtx)
		}
		return grpcServer.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
