package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"webguard/auth"
	"webguard/config"
	"webguard/database"
	grpcserver "webguard/grpc_server"
	"webguard/registry"
	"webguard/server"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Seed the admin account and serve the HTTP and gRPC endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			a, err := appFrom(cmd.Context())
			if err != nil {
				return err
			}
			cfg, logger := a.cfg, a.logger

			b, err := openBackend(a)
			if err != nil {
				return err
			}
			defer func() {
				if err := database.Close(b.db); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			provider, err := auth.NewAuthenticationProvider(cmd.Context(), b.users, b.roles, b.encoder, seedOptions(cfg), logger)
			if err != nil {
				return fmt.Errorf("failed to bootstrap authentication: %w", err)
			}
			tokens, err := auth.NewTokenIssuer([]byte(cfg.Security.JwtSecret), cfg.Security.TokenTTL, cfg.ServiceName)
			if err != nil {
				return err
			}

			container := server.NewContainer(server.Deps{
				Config:   cfg,
				Logger:   logger,
				Users:    b.users,
				Provider: provider,
				Tokens:   tokens,
				Policy:   auth.DefaultPolicy(),
				Success:  auth.DefaultSuccessHandler(),
			})
			grpcSrv := grpcserver.New(grpcserver.DefaultPolicy(), tokens, logger.Named("grpc"))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Consul.Address != "" {
				deregister, err := registerServices(cfg, logger)
				if err != nil {
					return err
				}
				defer deregister()
			}

			grp, ctx := errgroup.WithContext(ctx)
			grp.Go(func() error {
				return server.ListenAndServe(ctx, cfg.HTTPPort, container, logger)
			})
			grp.Go(func() error {
				return grpcSrv.Serve(ctx, cfg.GRPCPort)
			})
			return grp.Wait()
		},
	}
}

// registerServices announces the HTTP and gRPC endpoints to Consul and
// returns a function removing them again.
func registerServices(cfg *config.Config, logger *zap.Logger) (func(), error) {
	sugar := logger.Sugar()
	reg, err := registry.NewConsulRegistry(cfg.Consul.Address, sugar)
	if err != nil {
		return nil, err
	}

	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	httpID := fmt.Sprintf("%s-http-%s-%d", cfg.ServiceName, host, cfg.HTTPPort)
	grpcID := fmt.Sprintf("%s-grpc-%s-%d", cfg.ServiceName, host, cfg.GRPCPort)

	httpCheck := registry.CreateHTTPCheck(httpID, host, cfg.HTTPPort, "/healthz", "10s", "1s")
	if err := reg.Register(httpID, cfg.ServiceName+"-http", host, cfg.HTTPPort, []string{"http"}, httpCheck); err != nil {
		return nil, err
	}
	grpcCheck := registry.CreateGRPCCheck(grpcID, fmt.Sprintf("%s:%d", host, cfg.GRPCPort), "10s", "1s", false)
	if err := reg.Register(grpcID, cfg.ServiceName+"-grpc", host, cfg.GRPCPort, []string{"grpc"}, grpcCheck); err != nil {
		_ = reg.Deregister(httpID)
		return nil, err
	}

	return func() {
		for _, id := range []string{httpID, grpcID} {
			if err := reg.Deregister(id); err != nil {
				sugar.Warnw("Deregistration failed", "service_id", id, "error", err)
			}
		}
	}, nil
}

// seedCommand runs the bootstrap without serving, e.g. from a deploy hook.
func seedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default roles and reset the admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			a, err := appFrom(cmd.Context())
			if err != nil {
				return err
			}
			b, err := openBackend(a)
			if err != nil {
				return err
			}
			defer func() {
				if err := database.Close(b.db); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			_, err = auth.Seed(cmd.Context(), b.users, b.roles, b.encoder, seedOptions(a.cfg), a.logger)
			return err
		},
	}
}
