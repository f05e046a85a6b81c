package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"reelscraper/pkg/models"
	"reelscraper/pkg/store"
	"reelscraper/pkg/ui"
)

var (
	// Runs command flags
	runsLimit  int
	runsStatus string
	runsParent string
	runsAll    bool
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect run logs",
	Long: `Inspect the run logs written by daily runs.

Every daily run writes one overall run, one run per project under it and
one run per competitor or hashtag under each project.`,
}

// runsListCmd represents the runs list command
var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	Example: `  # Last 20 daily runs
  reelscraper runs list

  # Failed runs at any level
  reelscraper runs list --all --status failed

  # Project runs of one daily run
  reelscraper runs list --parent 6f1c...`,
	Args: cobra.NoArgs,
	RunE: runRunsList,
}

// runsShowCmd represents the runs show command
var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one run with its error detail and direct children",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)

	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum number of runs to show")
	runsListCmd.Flags().StringVar(&runsStatus, "status", "", "only runs with this status (running, completed, completed_with_errors, failed)")
	runsListCmd.Flags().StringVar(&runsParent, "parent", "", "only direct children of this run")
	runsListCmd.Flags().BoolVar(&runsAll, "all", false, "include project and source runs")
}

func runRunsList(cmd *cobra.Command, args []string) error {
	if runsStatus != "" && !models.IsKnownStatus(runsStatus) {
		return startupError(fmt.Errorf("unknown status %q", runsStatus))
	}

	cfg, err := loadConfig(map[string]interface{}{})
	if err != nil {
		return startupError(err)
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return startupError(err)
	}
	defer st.Close()

	runs, total, err := st.ListRunLogs(cmd.Context(), store.ListOptions{
		Limit:    runsLimit,
		Status:   runsStatus,
		ParentID: runsParent,
		TopLevel: runsParent == "" && !runsAll,
	})
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		ui.PrintInfo("No runs found", "start one with 'reelscraper run'")
		return nil
	}
	fmt.Println(ui.RenderRunTable(runs))
	fmt.Println(ui.Dim(fmt.Sprintf("Showing %d of %d runs", len(runs), total)))
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(map[string]interface{}{})
	if err != nil {
		return startupError(err)
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return startupError(err)
	}
	defer st.Close()

	run, err := st.GetRunLog(cmd.Context(), args[0])
	if errors.Is(err, store.ErrRunLogNotFound) {
		return fmt.Errorf("run %s not found", args[0])
	}
	if err != nil {
		return err
	}

	children, _, err := st.ListRunLogs(cmd.Context(), store.ListOptions{ParentID: run.ID, Limit: 500})
	if err != nil {
		return err
	}

	fmt.Print(ui.RenderRunDetail(run, children))
	return nil
}
