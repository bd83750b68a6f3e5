package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// rootOptions holds global flags shared by all subcommands.
type rootOptions struct {
	Verbose bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "clockmesh",
		Short: "Lamport-clock machine cluster simulator",
		Long: `clockmesh runs machines that exchange timestamped messages over TCP
and keep Lamport logical clocks, then audits the logs they produce.

Each machine ticks at its own rate. On every tick it drains one queued
inbound message (advancing its clock to max(own, received)+1) or, when
the queue is empty, randomly sends to one peer, to a second peer, to all
peers, or performs an internal event. Every event is appended to the
machine's log file for later analysis.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(opts.Verbose)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose diagnostics on stderr")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newClusterCommand(opts))
	cmd.AddCommand(newAnalyzeCommand(opts))

	return cmd
}

// setupLogging configures the process-wide diagnostics logger. Machine
// event logs are separate files with their own fixed format; slog only
// carries warnings and debug output.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
