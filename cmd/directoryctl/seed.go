package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/noah-isme/academic-directory-api/internal/repository"
	"github.com/noah-isme/academic-directory-api/internal/seed"
	"github.com/noah-isme/academic-directory-api/internal/service"
)

func seedCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load universities, faculties, departments and program durations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt := fromContext(cmd.Context())
			table, err := seed.Load()
			if err != nil {
				return err
			}
			db, err := rt.openDB()
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			svc := service.NewSeedService(repository.NewDirectoryRepository(db), rt.logger)
			report, err := svc.Run(cmd.Context(), table, dryRun)
			if err != nil {
				return err
			}
			printSeedReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be created without writing")
	return cmd
}

func printSeedReport(w io.Writer, report *service.SeedReport) {
	if report.DryRun {
		fmt.Fprintln(w, "dry run: nothing was written")
	}
	rows := []struct {
		name  string
		count service.SeedCount
	}{
		{"universities", report.Universities},
		{"faculties", report.Faculties},
		{"departments", report.Departments},
		{"program durations", report.ProgramDurations},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%-18s created=%d existing=%d\n", row.name, row.count.Created, row.count.Existing)
	}
}
