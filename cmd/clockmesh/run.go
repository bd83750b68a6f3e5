package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daviddao/clockmesh/pkg/config"
	"github.com/daviddao/clockmesh/pkg/machine"
)

// runOptions holds the run command's flags; unset flags fall back to
// values from --config when one is given.
type runOptions struct {
	*rootOptions
	ConfigPath string

	ID         int
	Host       string
	Port       int
	Peers      string
	RunSeconds int
	Ticks      int
	TickBound  int
	LogPath    string
	Archive    string
	NTPServer  string
}

func newRunCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single machine",
		Long: `Run one machine until its configured duration elapses (or ctrl-c).

Example:
  clockmesh run --id 1 --port 5001 --peers 127.0.0.1:5002,127.0.0.1:5003 --duration 60
  clockmesh run --config machine1.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMachine(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "YAML machine config file")
	cmd.Flags().IntVar(&opts.ID, "id", 0, "machine ID")
	cmd.Flags().StringVar(&opts.Host, "host", "127.0.0.1", "host to listen on")
	cmd.Flags().IntVar(&opts.Port, "port", 0, "TCP port to listen on")
	cmd.Flags().StringVar(&opts.Peers, "peers", "", "comma-separated peer list (host:port,host:port)")
	cmd.Flags().IntVar(&opts.RunSeconds, "duration", 60, "run duration in seconds")
	cmd.Flags().IntVar(&opts.Ticks, "ticks", 0, "ticks per second (0 = random)")
	cmd.Flags().IntVar(&opts.TickBound, "tick-bound", 0, "upper bound for the random tick rate")
	cmd.Flags().StringVar(&opts.LogPath, "log", "", "event log path (default machine_<id>.log)")
	cmd.Flags().StringVar(&opts.Archive, "archive", "", "SQLite archive database path")
	cmd.Flags().StringVar(&opts.NTPServer, "ntp", "", "NTP server for a wall-clock offset probe at startup")

	return cmd
}

// buildFileConfig merges --config contents with explicitly set flags;
// flags win.
func buildFileConfig(cmd *cobra.Command, opts *runOptions) (*config.Machine, error) {
	fc := &config.Machine{}
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		fc = loaded
	}

	set := cmd.Flags().Changed
	if set("id") || fc.ID == 0 && opts.ID != 0 {
		fc.ID = opts.ID
	}
	if set("host") || fc.Host == "" {
		fc.Host = opts.Host
	}
	if set("port") || fc.Port == 0 {
		fc.Port = opts.Port
	}
	if set("peers") {
		fc.Peers = splitPeers(opts.Peers)
	}
	if set("duration") || fc.RunSeconds == 0 {
		fc.RunSeconds = opts.RunSeconds
	}
	if set("ticks") {
		fc.Ticks = opts.Ticks
	}
	if set("tick-bound") {
		fc.TickBound = opts.TickBound
	}
	if set("log") {
		fc.LogPath = opts.LogPath
	}
	if set("archive") {
		fc.ArchivePath = opts.Archive
	}
	if set("ntp") {
		fc.NTPServer = opts.NTPServer
	}
	return fc, nil
}

func splitPeers(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func runMachine(cmd *cobra.Command, opts *runOptions) error {
	fc, err := buildFileConfig(cmd, opts)
	if err != nil {
		return err
	}
	cfg, err := fc.MachineConfig()
	if err != nil {
		return err
	}

	m, err := machine.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := m.Run(ctx); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "machine %d finished: ticks/s=%d final clock=%d\n",
		cfg.ID, m.TicksPerSecond(), m.Clock())
	return nil
}
