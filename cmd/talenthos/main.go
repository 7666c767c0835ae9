package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/talenthos/talenthos/config"
	"github.com/talenthos/talenthos/logger"
	"go.uber.org/zap"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:   "talenthos",
	Short: "talenthos - interview lifecycle orchestrator",
	Long: `talenthos runs the interview lifecycle backend: the status state
machine, assessment capability tokens, and the durable job queues that
send candidate mail and run AI evaluations.

Examples:
  talenthos serve                    # Run workers and process jobs
  talenthos db migrate               # Apply database migrations
  talenthos interview create --candidate c1 --email a@b.test
  talenthos interview schedule <id> --at 2026-09-15T10:00:00Z
  talenthos jobs failed              # Inspect permanently failed jobs`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgFile != "" {
			cfg, err = config.LoadFromFile(cfgFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		log, err = logger.New(cfg.Log.JSON)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to talenthos.toml")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(interviewCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(dbCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
