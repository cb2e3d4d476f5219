package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"webguard/auth"
	"webguard/config"
	"webguard/database"
	"webguard/repositories"
	"webguard/services"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type appKey struct{}

// app holds what PersistentPreRunE prepared for the subcommands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func rootCommand() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:          "webguard [command] [flags]",
		Short:        "Web application with role based access control",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.InitConfig(configFile); err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			cfg := &config.AppConfig
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			if cfg.InsecureSecret() {
				logger.Warn("Using the built-in JWT secret; set security.jwt_secret or WEBGUARD_SECURITY_JWT_SECRET")
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, &app{cfg: cfg, logger: logger}))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a, ok := cmd.Context().Value(appKey{}).(*app); ok {
				_ = a.logger.Sync() // Make sure the buffer is flushed before the program exits
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to the configuration file (default ./config.yaml)")

	cmd.AddCommand(
		serveCommand(),
		seedCommand(),
		hashPasswordCommand(),
	)
	return cmd
}

func newLogger(level string) (*zap.Logger, error) {
	switch level {
	case "debug":
		return zap.NewDevelopment()
	default:
		return zap.NewProduction()
	}
}

func appFrom(ctx context.Context) (*app, error) {
	a, ok := ctx.Value(appKey{}).(*app)
	if !ok {
		return nil, errors.New("configuration was not loaded")
	}
	return a, nil
}

// backend is the persistence stack shared by serve and seed.
type backend struct {
	db      *gorm.DB
	users   services.UserService
	roles   services.RoleService
	encoder auth.PasswordEncoder
}

func openBackend(a *app) (*backend, error) {
	encoder, err := auth.NewPasswordEncoder(a.cfg.Security.PasswordEncoder, a.cfg.Security.BcryptCost)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(a.cfg.Database, a.logger)
	if err != nil {
		return nil, err
	}
	roleRepo := repositories.NewRoleRepository(db)
	userRepo := repositories.NewUserRepository(db)
	return &backend{
		db:      db,
		users:   services.NewUserService(userRepo, roleRepo, encoder),
		roles:   services.NewRoleService(roleRepo),
		encoder: encoder,
	}, nil
}

func seedOptions(cfg *config.Config) auth.SeedOptions {
	return auth.SeedOptions{
		Roles:         cfg.Seed.Roles,
		AdminUsername: cfg.Seed.AdminUsername,
		AdminPassword: cfg.Seed.AdminPassword,
	}
}
