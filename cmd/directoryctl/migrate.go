package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/academic-directory-api/migrations"
	"github.com/noah-isme/academic-directory-api/pkg/database"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt := fromContext(cmd.Context())
			db, err := rt.openDB()
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			applied, err := database.Migrate(cmd.Context(), db, migrations.FS, rt.logger)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			}
			for _, version := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", version)
			}
			return nil
		},
	}
}
