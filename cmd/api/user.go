package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/itsupport-service/internal/config"
	"github.com/spec-kit/itsupport-service/internal/domain"
	"github.com/spec-kit/itsupport-service/internal/observability"
	"github.com/spec-kit/itsupport-service/internal/persistence"
	"github.com/spec-kit/itsupport-service/internal/repository"
	"github.com/spec-kit/itsupport-service/internal/service"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userCreateOpts struct {
	name     string
	email    string
	password string
	role     string
}

// Support accounts can only be created here; HTTP registration is employee only.
var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account with the given role",
	RunE:  runUserCreate,
}

func init() {
	f := userCreateCmd.Flags()
	f.StringVar(&userCreateOpts.name, "name", "", "display name")
	f.StringVar(&userCreateOpts.email, "email", "", "login email")
	f.StringVar(&userCreateOpts.password, "password", "", "initial password")
	f.StringVar(&userCreateOpts.role, "role", string(domain.UserRoleSupport), "EMPLOYEE or SUPPORT")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")
	userCmd.AddCommand(userCreateCmd)
}

func runUserCreate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	pg, err := persistence.NewPostgres(cmd.Context(), cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()
	if !pg.Enabled() {
		return errors.New("POSTGRES_DSN is required to create accounts")
	}

	authService := service.NewAuthService(cfg.Auth, repository.NewUserRepository(pg.PoolHandle()))
	name := userCreateOpts.name
	if name == "" {
		name = userCreateOpts.email
	}
	result, err := authService.Register(cmd.Context(), service.RegisterInput{
		Name:     name,
		Email:    userCreateOpts.email,
		Password: userCreateOpts.password,
		Role:     domain.UserRole(userCreateOpts.role),
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	logger.Info("user created",
		zap.String("user_id", result.User.ID),
		zap.String("email", result.User.Email),
		zap.String("role", string(result.User.Role)))
	return nil
}
