package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/linkfinder-service/internal/adapter/filesystem"
	"github.com/user/linkfinder-service/internal/adapter/postgres"
	"github.com/user/linkfinder-service/internal/repository"
	"github.com/user/linkfinder-service/pkg/config"
	"github.com/user/linkfinder-service/pkg/logger"
)

// app carries what every subcommand needs once flags and configuration are resolved.
type app struct {
	cfg      *config.Config
	dir      string
	site     string
	logLevel string
	log      *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "linkfinder",
		Short:         "Find, check and rewrite the links of a content corpus",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.dir, "dir", "", "read documents from this directory instead of PostgreSQL")
	root.PersistentFlags().StringVar(&a.site, "site", "", "site URL, overrides SITE_URL")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level, overrides LOG_LEVEL")

	root.AddCommand(newAuditCmd(a), newSelfPingsCmd(a), newApplyCmd(a), newResolveCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.site != "" {
		cfg.SiteURL = a.site
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.NewZap(cmd.ErrOrStderr(), logger.ParseLevel(cfg.LogLevel))
	return nil
}

// openStore returns the filesystem store when --dir is set, PostgreSQL otherwise.
func (a *app) openStore(ctx context.Context) (repository.DocumentRepository, func(), error) {
	if a.dir != "" {
		repo, err := filesystem.NewDocumentRepo(a.dir)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", a.dir, err)
		}
		return repo, func() {}, nil
	}
	pool, err := pgxpool.New(ctx, a.cfg.PostgresURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return postgres.NewDocumentRepo(pool), pool.Close, nil
}
