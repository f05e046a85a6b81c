package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"reelscraper/pkg/actor"
	"reelscraper/pkg/checkpoint"
	"reelscraper/pkg/config"
	"reelscraper/pkg/logger"
	"reelscraper/pkg/pipeline"
	"reelscraper/pkg/ratelimit"
	"reelscraper/pkg/reels"
	"reelscraper/pkg/runlog"
	"reelscraper/pkg/store"
	"reelscraper/pkg/ui"
	"reelscraper/pkg/ui/tui"
)

var (
	// Run command flags
	dryRun      bool
	resumeRun   bool
	useTUI      bool
	concurrency int
	minViews    int64
	maxAgeDays  int
	strategy    string
	actorToken  string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily ingestion once",
	Long: `Process every active project of every active user once.

Each competitor account and hashtag of a project is sent to the scraping
actor, the returned items are filtered by type, age and views, and new
reels are stored. Failures are isolated per source and recorded in the
run logs.

Exit codes:
  0  the run completed, possibly with errors
  1  startup failed (configuration, credentials, database)
  2  the overall run failed`,
	Example: `  # Daily run with settings from config and environment
  reelscraper run

  # See what would be fetched without calling the actor or writing
  reelscraper run --dry-run

  # Four sources at a time with the live monitor
  reelscraper run --concurrency 4 --tui

  # Continue an interrupted run, skipping finished sources
  reelscraper run --resume`,
	Args: cobra.NoArgs,
	RunE: runDailyCmd,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "log what would be fetched without calling the actor or writing to the database")
	runCmd.Flags().BoolVar(&resumeRun, "resume", false, "skip sources finished by an interrupted run")
	runCmd.Flags().BoolVar(&useTUI, "tui", false, "show the live run monitor")
	addPipelineFlags(runCmd)
}

// addPipelineFlags registers the flags shared by run and schedule
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "sources processed in parallel per project")
	cmd.Flags().Int64Var(&minViews, "min-views", -1, "minimum view count, 0 disables the filter")
	cmd.Flags().IntVar(&maxAgeDays, "max-age-days", -1, "maximum reel age in days, 0 disables the filter")
	cmd.Flags().StringVar(&strategy, "strategy", "", "persistence strategy (bulk, check_then_insert)")
	cmd.Flags().StringVar(&actorToken, "token", "", "actor API token (prefer 'reelscraper auth set' or REELSCRAPER_ACTOR_TOKEN)")
}

// pipelineFlags collects the pipeline flags that were set
func pipelineFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	if cmd.Flags().Changed("concurrency") {
		flags["concurrency"] = concurrency
	}
	if cmd.Flags().Changed("min-views") {
		flags["min-views"] = minViews
	}
	if cmd.Flags().Changed("max-age-days") {
		flags["max-age-days"] = maxAgeDays
	}
	if strategy != "" {
		flags["strategy"] = strategy
	}
	if actorToken != "" {
		flags["token"] = actorToken
	}
	return flags
}

// newOrchestrator wires the actor client, persister and tracker around st
func newOrchestrator(cfg *config.Config, st *store.Store, resume bool, log logger.Logger) (*pipeline.Orchestrator, error) {
	client := actor.NewClient(cfg.Actor, ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute), log)

	persister, err := reels.NewPersister(st, cfg.Database.PersistStrategy, log)
	if err != nil {
		return nil, err
	}
	tracker := runlog.NewTracker(st, cfg.Run.DryRun, log)

	opts := pipeline.OptionsFromConfig(cfg)
	opts.Resume = resume
	return pipeline.New(st, client, persister, tracker, opts, log), nil
}

func runDailyCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flags := pipelineFlags(cmd)
	if dryRun {
		flags["dry-run"] = true
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return startupError(err)
	}

	if useTUI {
		if cfg.Logging.File == "" {
			cfg.Logging.File = filepath.Join(os.TempDir(), "reelscraper.log")
		}
		if err := logger.InitializeFile(&cfg.Logging); err != nil {
			return startupError(err)
		}
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

	orch, err := newOrchestrator(cfg, st, resumeRun, log)
	if err != nil {
		return startupError(err)
	}
	if resumeRun && cfg.Run.DryRun {
		ui.PrintWarning("--resume is ignored in dry-run mode")
	}
	cp, err := checkpoint.NewManager(cfg.Run.CheckpointDir, log)
	if err != nil {
		log.WithError(err).Warn("Checkpoints disabled")
	} else {
		orch.SetCheckpoints(cp)
	}

	var summary *pipeline.Summary
	if useTUI {
		summary, err = runWithMonitor(ctx, orch)
		fmt.Printf("Logs written to %s\n", cfg.Logging.File)
	} else {
		orch.SetObserver(ui.NewConsoleReporter(os.Stdout))
		summary, err = orch.RunDaily(ctx)
	}
	ui.PrintSummary(os.Stdout, summary)

	if errors.Is(err, pipeline.ErrRunFailed) {
		return &exitError{code: exitRunFailed, err: err}
	}
	return err
}

// runWithMonitor runs the daily run behind the bubbletea monitor. Quitting
// the monitor cancels the run; the summary is returned once the run has
// closed its run logs.
func runWithMonitor(ctx context.Context, orch *pipeline.Orchestrator) (*pipeline.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	monitor := tui.NewMonitor(cancel)
	orch.SetObserver(monitor)

	var (
		summary *pipeline.Summary
		runErr  error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		summary, runErr = orch.RunDaily(ctx)
		monitor.Done(summary, runErr)
		if ctx.Err() != nil {
			monitor.Stop()
		}
	}()

	if err := monitor.Run(); err != nil {
		logger.WithError(err).Error("Monitor stopped")
		cancel()
	}
	<-done
	return summary, runErr
}
