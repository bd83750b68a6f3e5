package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daviddao/clockmesh/pkg/config"
	"github.com/daviddao/clockmesh/pkg/eventlog"
	"github.com/daviddao/clockmesh/pkg/machine"
)

// clusterOptions holds the cluster command's flags.
type clusterOptions struct {
	*rootOptions
	ConfigPath string

	Machines   int
	Host       string
	BasePort   int
	RunSeconds int
	TickBound  int
	Archive    string
}

func newClusterCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &clusterOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Launch a whole cluster in one process",
		Long: `Launch N machines in one process, each on its own port with every
other machine as a peer. Convenient for experiments: one command, N log
files to feed into 'clockmesh analyze'.

Example:
  clockmesh cluster --machines 3 --base-port 5001 --duration 60
  clockmesh cluster --config cluster.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCluster(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "YAML cluster config file")
	cmd.Flags().IntVar(&opts.Machines, "machines", 3, "number of machines to launch")
	cmd.Flags().StringVar(&opts.Host, "host", "127.0.0.1", "host every machine listens on")
	cmd.Flags().IntVar(&opts.BasePort, "base-port", 5001, "first port; machine i gets base-port+i-1")
	cmd.Flags().IntVar(&opts.RunSeconds, "duration", 60, "run duration in seconds")
	cmd.Flags().IntVar(&opts.TickBound, "tick-bound", 0, "upper bound for each machine's random tick rate")
	cmd.Flags().StringVar(&opts.Archive, "archive", "", "shared SQLite archive database path")

	return cmd
}

// clusterMachines returns the per-machine file configs, either loaded
// from --config or synthesized from the flags.
func clusterMachines(opts *clusterOptions) ([]config.Machine, error) {
	if opts.ConfigPath != "" {
		c, err := config.LoadCluster(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		return c.Machines, nil
	}

	if opts.Machines < 2 {
		return nil, fmt.Errorf("a cluster needs at least 2 machines, got %d", opts.Machines)
	}
	var machines []config.Machine
	for i := 0; i < opts.Machines; i++ {
		m := config.Machine{
			ID:          i + 1,
			Host:        opts.Host,
			Port:        opts.BasePort + i,
			RunSeconds:  opts.RunSeconds,
			TickBound:   opts.TickBound,
			ArchivePath: opts.Archive,
		}
		for j := 0; j < opts.Machines; j++ {
			if j == i {
				continue
			}
			m.Peers = append(m.Peers, fmt.Sprintf("%s:%d", opts.Host, opts.BasePort+j))
		}
		machines = append(machines, m)
	}
	return machines, nil
}

func runCluster(cmd *cobra.Command, opts *clusterOptions) error {
	fileCfgs, err := clusterMachines(opts)
	if err != nil {
		return err
	}

	// Build every machine before starting any, so a bad config aborts
	// the whole launch instead of leaving a partial cluster running.
	var ms []*machine.Machine
	for _, fc := range fileCfgs {
		cfg, err := fc.MachineConfig()
		if err != nil {
			return fmt.Errorf("machine %d: %w", fc.ID, err)
		}
		m, err := machine.New(cfg)
		if err != nil {
			return fmt.Errorf("machine %d: %w", fc.ID, err)
		}
		ms = append(ms, m)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make([]error, len(ms))
	var wg sync.WaitGroup
	for i, m := range ms {
		wg.Add(1)
		go func(i int, m *machine.Machine) {
			defer wg.Done()
			errs[i] = m.Run(ctx)
		}(i, m)
	}
	wg.Wait()

	failed := 0
	for i, err := range errs {
		id := fileCfgs[i].ID
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "machine %d failed: %v\n", id, err)
			continue
		}
		logPath := fileCfgs[i].LogPath
		if logPath == "" {
			logPath = eventlog.DefaultPath(id)
		}
		fmt.Fprintf(os.Stdout, "machine %d finished: ticks/s=%d final clock=%d log=%s\n",
			id, ms[i].TicksPerSecond(), ms[i].Clock(), logPath)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d machines failed", failed, len(ms))
	}
	return nil
}
