package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dataflow-compiler/internal/repository"
	"github.com/dataflow-compiler/pkg/errors"
)

var historyLimit int

// historyCmd lists recent compile runs from the history database.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent compile runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := repository.NewGormDB(&cfg.Database)
		if err != nil {
			return errors.Wrap(errors.CodeDatabaseError, "failed to open compile history", err)
		}
		repo := repository.NewGormRunRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			return errors.Wrap(errors.CodeDatabaseError, "failed to migrate compile history", err)
		}

		runs, err := repo.ListRecentRuns(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no compile runs recorded")
			return nil
		}

		fmt.Printf("%-24s %-10s %6s %6s %6s\n", "DESIGN", "STATUS", "NODES", "FIFOS", "EXIT")
		for _, run := range runs {
			fmt.Printf("%-24s %-10s %6d %6d %6d\n",
				run.DesignName, run.Status, run.NodeCount, run.FIFOCount, run.ExitCode)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to list")
}
