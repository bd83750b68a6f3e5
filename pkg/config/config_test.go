package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/daviddao/clockmesh/pkg/machine"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAndConvert(t *testing.T) {
	path := writeConfig(t, `
id: 1
host: 127.0.0.1
port: 5001
peers:
  - 127.0.0.1:5002
  - 127.0.0.1:5003
run_seconds: 60
ticks: 4
`)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg, err := m.MachineConfig()
	if err != nil {
		t.Fatalf("MachineConfig: %v", err)
	}
	if cfg.ID != 1 || cfg.Listen.Port != 5001 {
		t.Fatalf("got %+v", cfg)
	}
	if len(cfg.Peers) != 2 || cfg.Peers[1].Port != 5003 {
		t.Fatalf("peers: %+v", cfg.Peers)
	}
	if cfg.Duration != 60*time.Second {
		t.Fatalf("duration: got %v, want 60s", cfg.Duration)
	}
	if cfg.TicksPerSecond != 4 {
		t.Fatalf("ticks: got %d, want 4", cfg.TicksPerSecond)
	}
}

func TestDefaultsApplied(t *testing.T) {
	m := Machine{ID: 2, Port: 5002, RunSeconds: 10}
	cfg, err := m.MachineConfig()
	if err != nil {
		t.Fatalf("MachineConfig: %v", err)
	}
	if cfg.Listen.Host != "127.0.0.1" {
		t.Fatalf("default host: got %q", cfg.Listen.Host)
	}
	// A zero policy passes through; the machine constructor applies its
	// default split.
	if cfg.Policy != (machine.Policy{}) {
		t.Fatalf("expected zero policy passed through, got %+v", cfg.Policy)
	}
}

func TestValidateRejects(t *testing.T) {
	bad := []Machine{
		{ID: -1, Port: 5001, RunSeconds: 10},
		{ID: 1, Port: -5, RunSeconds: 10},
		{ID: 1, Port: 5001, RunSeconds: 0},
		{ID: 1, Port: 5001, RunSeconds: 10, Ticks: -1},
		{ID: 1, Port: 5001, RunSeconds: 10, Peers: []string{"nonsense"}},
	}
	for i, m := range bad {
		if err := m.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error for %+v", i, m)
		}
	}
}

func TestCustomWeights(t *testing.T) {
	m := Machine{ID: 1, Port: 5001, RunSeconds: 10, InternalWeight: 1}
	cfg, err := m.MachineConfig()
	if err != nil {
		t.Fatalf("MachineConfig: %v", err)
	}
	if got := cfg.Policy.Probability(machine.ActionInternal); got != 1.0 {
		t.Fatalf("internal probability: got %v, want 1.0", got)
	}
}

func TestLoadCluster(t *testing.T) {
	path := writeConfig(t, `
machines:
  - id: 1
    port: 5001
    peers: [127.0.0.1:5002]
    run_seconds: 30
  - id: 2
    port: 5002
    peers: [127.0.0.1:5001]
    run_seconds: 30
`)
	c, err := LoadCluster(path)
	if err != nil {
		t.Fatalf("LoadCluster: %v", err)
	}
	if len(c.Machines) != 2 {
		t.Fatalf("got %d machines, want 2", len(c.Machines))
	}
	for _, m := range c.Machines {
		if err := m.Validate(); err != nil {
			t.Fatalf("machine %d: %v", m.ID, err)
		}
	}
}

func TestLoadClusterEmpty(t *testing.T) {
	path := writeConfig(t, "machines: []\n")
	if _, err := LoadCluster(path); err == nil {
		t.Fatal("empty cluster: expected error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file: expected error")
	}
}
