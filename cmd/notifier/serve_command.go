package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/narwhalmedia/availability/internal/container"
	gormrepo "github.com/narwhalmedia/availability/internal/infrastructure/persistence/gorm"
	"github.com/narwhalmedia/availability/pkg/config"
	"github.com/narwhalmedia/availability/pkg/interfaces"
)

const (
	healthProbeInterval = 15 * time.Second
	shutdownTimeout     = 30 * time.Second
)

func newServeCommand(cmdCtx *commandContext) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Consume media transitions and send availability notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply pending migrations before starting")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, migrate bool) error {
	n, cleanup, err := container.InitializeNotifier(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize notifier: %w", err)
	}
	defer cleanup()

	log := n.Logger
	log.Info("starting service",
		interfaces.String("version", config.GetServiceVersion(&cfg.Service)),
		interfaces.String("environment", cfg.Service.Environment),
		interfaces.String("match_policy", cfg.Dispatch.MatchPolicy),
		interfaces.Any("transports", cfg.Dispatch.Transports),
	)

	if migrate {
		applied, err := gormrepo.Migrate(n.DB, n.Zap)
		if err != nil {
			return err
		}
		log.Info("migrations applied", interfaces.Int("count", len(applied)))
	}

	lis, err := net.Listen("tcp", config.GetGRPCListenAddress(&cfg.Service))
	if err != nil {
		return fmt.Errorf("listen on gRPC port: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		if err := n.Health.Serve(lis); err != nil {
			errCh <- fmt.Errorf("serve gRPC: %w", err)
		}
	}()
	go n.Health.Run(ctx, healthProbeInterval)
	go func() {
		if err := n.Consumer.Run(ctx); err != nil {
			errCh <- fmt.Errorf("transition consumer: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down service")
	case err = <-errCh:
		log.Error("service failed", interfaces.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	n.Health.Stop(shutdownCtx)

	log.Info("service shutdown complete")
	return err
}
