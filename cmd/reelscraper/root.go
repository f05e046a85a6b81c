package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"reelscraper/pkg/auth"
	"reelscraper/pkg/config"
	"reelscraper/pkg/logger"
	"reelscraper/pkg/store"
	"reelscraper/pkg/ui"
)

// Exit codes
const (
	exitOK        = 0
	exitStartup   = 1
	exitRunFailed = 2
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	databaseURL string
	noBanner    bool
)

// exitError carries the process exit code for a failed command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func startupError(err error) error {
	return &exitError{code: exitStartup, err: err}
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reelscraper",
	Short: "Daily ingestion of short-form video posts for tracked accounts and hashtags",
	Long: `reelscraper collects reels for every active user project once a day.

For each project it asks a hosted scraping actor for the reels of the
tracked competitor accounts and hashtags, keeps the ones that pass the
view and age filters, and stores new ones without duplicating a URL.
Every run is recorded as an overall > project > source hierarchy of
run logs that can be inspected with 'reelscraper runs'.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noBanner || cmd.Name() == "help" {
			return
		}
		ui.PrintBanner()
	},
}

// Execute runs the root command and exits with its exit code
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		os.Exit(exitOK)
	}

	code := exitStartup
	var ee *exitError
	if errors.As(err, &ee) {
		code = ee.code
	}
	ui.PrintError("Error", err)
	os.Exit(code)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.reelscraper.yaml or ~/.config/reelscraper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "database url (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().BoolVar(&noBanner, "no-banner", false, "do not print the banner")

	rootCmd.SetVersionTemplate(`reelscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// globalFlags returns the persistent flags in the form config.Load merges
func globalFlags() map[string]interface{} {
	flags := make(map[string]interface{})
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if databaseURL != "" {
		flags["database-url"] = databaseURL
	}
	return flags
}

// loadConfig loads configuration and initializes the global logger
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	for k, v := range globalFlags() {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// openStore connects to the configured database
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(ctx, cfg.Database, logger.GetLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}

// resolveToken fills the actor token from the credential store when it is
// not configured, then checks that one is set.
func resolveToken(cfg *config.Config) error {
	if cfg.Actor.Token == "" {
		if manager, err := auth.NewManager(); err == nil {
			if cred, err := manager.RetrieveDefault(); err == nil {
				cfg.Actor.Token = cred.Token
				logger.WithField("credential", cred.Name).Debug("Using stored actor token")
			}
		} else {
			logger.WithError(err).Warn("Credential store unavailable")
		}
	}
	return cfg.ValidateCredentials()
}
