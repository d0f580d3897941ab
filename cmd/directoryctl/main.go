// Command directoryctl runs maintenance tasks against the directory database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-directory-api/pkg/config"
	"github.com/noah-isme/academic-directory-api/pkg/database"
	"github.com/noah-isme/academic-directory-api/pkg/logger"
)

const programName = "directoryctl"

type cliEnv struct {
	cfg    *config.Config
	logger *zap.Logger
}

type runtimeKey struct{}

func fromContext(ctx context.Context) *cliEnv {
	rt, _ := ctx.Value(runtimeKey{}).(*cliEnv)
	return rt
}

func (rt *cliEnv) openDB() (*sqlx.DB, error) {
	db, err := database.NewPostgres(rt.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Maintenance commands for the academic directory",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey{}, &cliEnv{cfg: cfg, logger: logr}))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt := fromContext(cmd.Context()); rt != nil {
				_ = rt.logger.Sync()
			}
		},
	}

	rootCmd.AddCommand(migrateCommand())
	rootCmd.AddCommand(seedCommand())
	rootCmd.AddCommand(createUserCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}
