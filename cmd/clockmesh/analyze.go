package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/daviddao/clockmesh/pkg/analyze"
	"github.com/daviddao/clockmesh/pkg/model"
)

// analyzeOptions holds the analyze command's flags.
type analyzeOptions struct {
	*rootOptions
	Timeline bool
}

func newAnalyzeCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &analyzeOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze <log>...",
		Short: "Audit machine logs against the Lamport clock rules",
		Long: `Parse one or more machine log files, check each against the clock
rules (strictly increasing, +1 on local events, >= +1 on receives), and
print a per-machine summary. With --timeline the logs are merged into
the Lamport total order (clock value, ties broken by machine ID).

Example:
  clockmesh analyze machine_1.log machine_2.log machine_3.log --timeline`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Timeline, "timeline", false, "print the merged total-order timeline")

	return cmd
}

func runAnalyze(opts *analyzeOptions, paths []string) error {
	rows := pterm.TableData{
		{"MACHINE", "EVENTS", "RECEIVE", "SEND", "INTERNAL", "TICKS/S", "FINAL CLOCK", "STATUS"},
	}
	perMachine := map[int][]analyze.Entry{}
	dirty := false

	for i, path := range paths {
		entries, err := analyze.ParseFile(path)
		if err != nil {
			return err
		}
		rep := analyze.Audit(filepath.Base(path), entries)

		id := machineIDFromPath(path, i+1)
		perMachine[id] = entries

		sends := rep.Counts[model.EventSendOne] + rep.Counts[model.EventSendOther] + rep.Counts[model.EventBroadcast]
		status := "clean"
		if !rep.Clean() {
			status = fmt.Sprintf("%d violation(s)", len(rep.Violations))
			dirty = true
		}
		rows = append(rows, []string{
			rep.Source,
			strconv.Itoa(rep.Events),
			strconv.Itoa(rep.Counts[model.EventReceive]),
			strconv.Itoa(sends),
			strconv.Itoa(rep.Counts[model.EventInternal]),
			strconv.Itoa(rep.TickRate),
			strconv.FormatInt(rep.FinalClock, 10),
			status,
		})

		for _, v := range rep.Violations {
			pterm.Warning.Printfln("%s: %s", rep.Source, v)
		}
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		return err
	}

	if opts.Timeline {
		printTimeline(perMachine)
	}

	if dirty {
		return fmt.Errorf("clock rule violations found")
	}
	pterm.Success.Println("all logs obey the Lamport clock rules")
	return nil
}

func printTimeline(perMachine map[int][]analyze.Entry) {
	pterm.DefaultSection.Println("Total-order timeline")
	for _, ev := range analyze.MergeTimeline(perMachine) {
		line := fmt.Sprintf("L=%-6d machine %d  %s", ev.Entry.Clock, ev.Machine, ev.Entry.Kind)
		if ev.Entry.HasQueueLen {
			line += fmt.Sprintf("  queue=%d", ev.Entry.QueueLen)
		}
		pterm.Println(line)
	}
}

// machineIDFromPath recovers the machine ID from the conventional
// machine_<id>.log name, falling back to fallback for other names.
func machineIDFromPath(path string, fallback int) int {
	base := filepath.Base(path)
	s := strings.TrimSuffix(strings.TrimPrefix(base, "machine_"), ".log")
	if id, err := strconv.Atoi(s); err == nil && id >= 0 {
		return id
	}
	return fallback
}
