package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/accudoc/internal/history"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Long: `Show runs recorded with "accudoc run --record" or history.enabled.

Without --run the most recent runs are listed. With --run the snippet
results of that run are shown.`,
		Args: cobra.NoArgs,
		RunE: historyCommand,
	}

	cmd.Flags().Int("limit", 10, "Number of runs to show")
	cmd.Flags().String("run", "", "Show the snippet results of this run ID")

	return cmd
}

func historyCommand(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	runID, _ := cmd.Flags().GetString("run")
	out := cmd.OutOrStdout()

	dbPath := resolve(root, cfg.History.DBPath)
	if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	store, err := history.Open(cmd.Context(), dbPath)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	if runID != "" {
		records, err := store.RunResults(cmd.Context(), runID)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return fmt.Errorf("no results for run %s", runID)
		}
		for _, rec := range records {
			status := "PASS"
			if !rec.Success {
				status = "FAIL"
			}
			fmt.Fprintf(out, "%s %s:%d (%s)", status, rec.FilePath, rec.SourceLine, rec.Language)
			if rec.ErrorMessage != "" {
				fmt.Fprintf(out, " %s", firstLine(rec.ErrorMessage))
			}
			fmt.Fprintln(out)
		}
		return nil
	}

	runs, err := store.RecentRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}
	for _, run := range runs {
		fmt.Fprintf(out, "%s  %s  %d/%d passed  %d failed  %s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.TotalPassed, run.TotalTests, run.TotalFailed,
			run.Duration.Round(time.Millisecond))
	}
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
