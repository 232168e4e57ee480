// Command sync runs the NHL stats sync once and exits.
//
// Usage:
//
//	sync                 # full sequence
//	sync rosters         # a single stage
//	sync --workers 8 --extended
//	sync stages          # list valid stages
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"nhl_stats/ingestion/internal/app"
	"nhl_stats/ingestion/internal/config"
	"nhl_stats/ingestion/internal/logging"
	"nhl_stats/ingestion/internal/pipeline"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var errStagesFailed = errors.New("one or more stages failed")

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var workers int
	var extended bool

	cmd := &cobra.Command{
		Use:           "sync [stage]",
		Short:         "Sync NHL statistics into PostgreSQL",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			stage := ""
			if len(args) == 1 {
				stage = args[0]
			}
			// Reject bad names before touching config, network or storage
			if err := pipeline.ValidateStage(stage); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}

			var overrides app.Overrides
			if cmd.Flags().Changed("workers") {
				overrides.Workers = &workers
			}
			if cmd.Flags().Changed("extended") {
				overrides.Extended = &extended
			}

			err := runSync(stage, overrides)
			if err != nil && !errors.Is(err, errStagesFailed) {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
			}
			return err
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 1, "Concurrent fetches per stage (overrides SYNC_WORKERS)")
	cmd.Flags().BoolVar(&extended, "extended", false, "Include games and amateur_leagues in a full run (overrides SYNC_EXTENDED_STAGES)")

	cmd.AddCommand(stagesCmd())
	return cmd
}

func stagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "List valid stages in execution order",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, s := range pipeline.Stages() {
				line := s.Name
				if len(s.DependsOn) > 0 {
					line += " (after " + strings.Join(s.DependsOn, ", ") + ")"
				}
				if s.Extended {
					line += " [extended]"
				}
				fmt.Fprintln(out, line)
			}
		},
	}
}

// runSync loads config, runs the pipeline and logs the summary
func runSync(stage string, overrides app.Overrides) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	closer := logging.Setup(logging.Options{
		Development:    cfg.IsDevelopment(),
		Level:          cfg.LogLevel,
		File:           cfg.LogFile,
		FileMaxSizeMB:  cfg.LogFileMaxSizeMB,
		FileMaxBackups: cfg.LogFileMaxBackups,
		FileMaxAgeDays: cfg.LogFileMaxAgeDays,
	})
	defer closer.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, overrides)
	if err != nil {
		return err
	}
	defer a.Close()

	if stage == "" {
		log.Info().Msg("Running full sync")
	} else {
		log.Info().Str("stage", stage).Msg("Running single stage")
	}

	summary, err := a.Orchestrator.Run(ctx, stage)
	if err != nil {
		return err
	}

	for _, r := range summary.Results {
		log.Info().Str("stage", r.Stage).Msg(r.String())
	}
	log.Info().Dur("duration", summary.Duration).Msg("Sync finished")

	if summary.Failed() {
		return errStagesFailed
	}
	return nil
}
