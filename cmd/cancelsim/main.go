// Command cancelsim runs a pool of simulated workers that share a single
// cancellation token and reports how they reacted to it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zeebo/cancellation"
)

var rootCmd = &cobra.Command{
	Use:   "cancelsim",
	Short: "Simulate workers cooperating on a shared cancellation token",
	Long: `cancelsim starts a number of workers that each register a callback on one
token and poll it between units of work. The token is cancelled after --delay,
or on SIGINT/SIGTERM, and the run reports how many units completed and how
many callbacks fired.

Every flag can also be set from the environment, e.g. CANCELSIM_WORKERS=8.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return viper.BindPFlags(cmd.Flags())
	},
	RunE: run,
}

func init() {
	flags := rootCmd.Flags()
	flags.Int("workers", 4, "number of concurrent workers")
	flags.Int("units", 100, "work units each worker attempts")
	flags.Duration("work", 10*time.Millisecond, "time spent on a single unit")
	flags.Duration("delay", 250*time.Millisecond, "delay before cancellation, negative for none")
	flags.Bool("debug", false, "enable debug logging")

	viper.SetEnvPrefix("CANCELSIM")
	viper.AutomaticEnv()
}

func run(cmd *cobra.Command, args []string) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if viper.GetBool("debug") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg := Config{
		Workers: viper.GetInt("workers"),
		Units:   viper.GetInt("units"),
		Work:    viper.GetDuration("work"),
		Delay:   viper.GetDuration("delay"),
	}
	if cfg.Delay < 0 {
		cfg.Delay = cancellation.Infinite
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Int("workers", cfg.Workers).
		Int("units", cfg.Units).
		Dur("work", cfg.Work).
		Dur("delay", cfg.Delay).
		Msg("starting simulation")

	rep, err := Run(ctx, cfg, log.Logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "canceled=%t completed=%d notified=%d\n",
		rep.Canceled, rep.Completed, rep.Notified)
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
