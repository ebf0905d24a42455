// Package cli wires the planeseed commands: generate, backfill, assign,
// init, doctor and version.
package cli

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/planeseed/planeseed/internal/config"
	"github.com/planeseed/planeseed/internal/logger"
	"github.com/planeseed/planeseed/internal/seed"
)

var (
	verbose  bool
	randSeed int64
	rootCmd  *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "planeseed",
		Short: "planeseed - seed a project management deployment with realistic data",
		Long: `planeseed fills an empty project management deployment with believable
workspaces, projects, issues, users and activity.

It runs in two phases: 'generate' asks a language model for seed data and
writes it to JSON files; 'backfill' replays those files against the target
deployment's REST API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().Int64Var(&randSeed, "seed", 0, "Random seed for reproducible runs (0 = time-based)")
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(assignCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// setup loads config and credentials and initializes logging; every
// subcommand starts here.
func setup() (*config.Config, config.Credentials, seed.Dir, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Credentials{}, "", fmt.Errorf("load config: %w", err)
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger.Init(level, cfg.Log.Format)

	creds := config.LoadCredentials()
	return cfg, creds, seed.Dir(cfg.Seed.Dir), nil
}

// newRNG builds the run's random source from the --seed flag.
func newRNG() *rand.Rand {
	s := randSeed
	if s == 0 {
		s = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(s))
}
