// Package config loads machine and cluster configuration from YAML
// files. The CLI merges flag overrides on top; by the time a
// machine.Config is built everything has been validated, matching the
// contract that the machine itself assumes valid input.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/daviddao/clockmesh/pkg/machine"
	"github.com/daviddao/clockmesh/pkg/model"
	"github.com/daviddao/clockmesh/pkg/peer"
)

// Machine is the YAML shape of one machine's configuration.
type Machine struct {
	ID         int      `yaml:"id"`
	Host       string   `yaml:"host"`
	Port       int      `yaml:"port"`
	Peers      []string `yaml:"peers"`
	RunSeconds int      `yaml:"run_seconds"`

	// Ticks fixes the loop rate; 0 draws uniformly from [1, TickBound].
	Ticks     int `yaml:"ticks,omitempty"`
	TickBound int `yaml:"tick_bound,omitempty"`

	// Weights of the random actions when the inbound queue is empty, in
	// the order send-one, send-other, broadcast, internal. All zero
	// means the default 1/1/1/7 split.
	SendOneWeight   int `yaml:"send_one_weight,omitempty"`
	SendOtherWeight int `yaml:"send_other_weight,omitempty"`
	BroadcastWeight int `yaml:"broadcast_weight,omitempty"`
	InternalWeight  int `yaml:"internal_weight,omitempty"`

	DialAttempts int `yaml:"dial_attempts,omitempty"`

	LogPath     string `yaml:"log_path,omitempty"`
	ArchivePath string `yaml:"archive_path,omitempty"`
	NTPServer   string `yaml:"ntp_server,omitempty"`
}

// Cluster is the YAML shape of a whole-cluster file consumed by the
// cluster launcher.
type Cluster struct {
	Machines []Machine `yaml:"machines"`
}

// Load reads a single-machine YAML file.
func Load(path string) (*Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	var m Machine
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	return &m, nil
}

// LoadCluster reads a cluster YAML file.
func LoadCluster(path string) (*Cluster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cluster config %q: %w", path, err)
	}
	var c Cluster
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse cluster config %q: %w", path, err)
	}
	if len(c.Machines) == 0 {
		return nil, errors.New("cluster config lists no machines")
	}
	return &c, nil
}

// Validate checks everything the machine constructor assumes.
func (m *Machine) Validate() error {
	if m.ID < 0 {
		return fmt.Errorf("machine id %d is negative", m.ID)
	}
	if m.Port < 0 || m.Port > 65535 {
		return fmt.Errorf("port %d out of range", m.Port)
	}
	if m.RunSeconds <= 0 {
		return fmt.Errorf("run_seconds %d must be positive", m.RunSeconds)
	}
	if m.Ticks < 0 {
		return fmt.Errorf("ticks %d is negative", m.Ticks)
	}
	for _, p := range m.Peers {
		if _, err := model.ParsePeerAddr(p); err != nil {
			return err
		}
	}
	return nil
}

// MachineConfig converts to the runtime configuration. Validate must
// have passed.
func (m *Machine) MachineConfig() (machine.Config, error) {
	if err := m.Validate(); err != nil {
		return machine.Config{}, err
	}

	host := m.Host
	if host == "" {
		host = "127.0.0.1"
	}
	var peers []model.PeerAddr
	for _, p := range m.Peers {
		addr, err := model.ParsePeerAddr(p)
		if err != nil {
			return machine.Config{}, err
		}
		peers = append(peers, addr)
	}

	cfg := machine.Config{
		ID:             m.ID,
		Listen:         model.PeerAddr{Host: host, Port: m.Port},
		Peers:          peers,
		Duration:       time.Duration(m.RunSeconds) * time.Second,
		TicksPerSecond: m.Ticks,
		TickRateBound:  m.TickBound,
		LogPath:        m.LogPath,
		ArchivePath:    m.ArchivePath,
		NTPServer:      m.NTPServer,
	}

	if m.SendOneWeight != 0 || m.SendOtherWeight != 0 || m.BroadcastWeight != 0 || m.InternalWeight != 0 {
		p, err := machine.NewPolicy(m.SendOneWeight, m.SendOtherWeight, m.BroadcastWeight, m.InternalWeight)
		if err != nil {
			return machine.Config{}, err
		}
		cfg.Policy = p
	}
	if m.DialAttempts > 0 {
		cfg.Retry = peer.RetryConfig{
			MaxAttempts: m.DialAttempts,
			BaseDelay:   peer.DefaultRetry.BaseDelay,
			MaxDelay:    peer.DefaultRetry.MaxDelay,
		}
	}
	return cfg, nil
}
