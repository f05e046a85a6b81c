package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"reelscraper/pkg/logger"
	"reelscraper/pkg/scheduler"
	"reelscraper/pkg/ui"
)

var (
	// Schedule command flags
	cronExpr string
	runNow   bool
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the daily ingestion on a cron schedule",
	Long: `Keep running and start the daily ingestion on every cron tick until
interrupted with SIGINT or SIGTERM.

The expression may have 5 fields (minute precision) or 6 fields (with
seconds), or be a descriptor such as @daily. A tick that fires while the
previous run is still going is skipped. On shutdown the running run is
cancelled and its run logs are closed as failed.`,
	Example: `  # Use run.schedule from the configuration (default 0 6 * * *)
  reelscraper schedule

  # Every day at 04:30, plus one run right away
  reelscraper schedule --cron "30 4 * * *" --run-now`,
	Args: cobra.NoArgs,
	RunE: runScheduleCmd,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVar(&cronExpr, "cron", "", "cron expression (overrides run.schedule)")
	scheduleCmd.Flags().BoolVar(&runNow, "run-now", false, "start one run immediately before waiting for the schedule")
	scheduleCmd.Flags().BoolVar(&dryRun, "dry-run", false, "log what would be fetched without calling the actor or writing to the database")
	addPipelineFlags(scheduleCmd)
}

func runScheduleCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flags := pipelineFlags(cmd)
	if cronExpr != "" {
		flags["cron"] = cronExpr
	}
	if dryRun {
		flags["dry-run"] = true
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return startupError(err)
	}
	log := logger.GetLogger()

	if !cfg.Run.DryRun {
		if err := resolveToken(cfg); err != nil {
			return startupError(err)
		}
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return startupError(err)
	}
	defer st.Close()

	orch, err := newOrchestrator(cfg, st, false, log)
	if err != nil {
		return startupError(err)
	}

	job := func(ctx context.Context) error {
		orch.SetObserver(ui.NewConsoleReporter(os.Stdout))
		summary, err := orch.RunDaily(ctx)
		ui.PrintSummary(os.Stdout, summary)
		return err
	}

	sched, err := scheduler.New(cfg.Run.Schedule, job, log)
	if err != nil {
		return startupError(err)
	}

	if runNow {
		if err := job(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("Initial run failed")
		}
	}
	if ctx.Err() != nil {
		return nil
	}

	sched.Start(ctx)
	ui.PrintInfo("Schedule", sched.Spec())
	ui.PrintInfo("Next run", sched.Next().Local().Format("2006-01-02 15:04:05"))

	<-ctx.Done()
	ui.PrintWarning("Shutting down, waiting for the current run to finish")
	sched.Stop()
	return nil
}

