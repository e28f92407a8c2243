// Package config loads the peer daemon's on-disk configuration: the
// RunState-recognized options from spec.md §3 plus the ambient transport,
// persistence, and logging settings a running process needs. Grounded on
// the teacher's LoadBootnodes read-file-then-unmarshal shape.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bzz/radicle-peer/peer"
	"github.com/bzz/radicle-peer/waitingroom"
)

// Config is the full on-disk shape for a radicle-peer daemon.
type Config struct {
	Sync        SyncConfig      `yaml:"sync"`
	WaitingRoom WaitingRoom     `yaml:"waitingRoom"`
	Transport   TransportConfig `yaml:"transport"`
	Persist     PersistConfig   `yaml:"persist"`
	Log         LogConfig       `yaml:"log"`
}

// SyncConfig mirrors peer.SyncConfig for the YAML surface (duration
// fields round-trip as Go duration strings, e.g. "10m").
type SyncConfig struct {
	OnStartup bool          `yaml:"onStartup"`
	MaxPeers  int           `yaml:"maxPeers"`
	Period    time.Duration `yaml:"period"`
}

// WaitingRoom mirrors waitingroom.Config for the YAML surface.
type WaitingRoom struct {
	QueryInterval time.Duration `yaml:"queryInterval"`
	RetryInterval time.Duration `yaml:"retryInterval"`
	MaxQueries    int           `yaml:"maxQueries"`
	MaxClones     int           `yaml:"maxClones"`
}

// TransportConfig configures the libp2p host and bootstrap set.
type TransportConfig struct {
	ListenAddrs []string `yaml:"listenAddrs"`
	Bootnodes   []string `yaml:"bootnodes"`
}

// PersistConfig configures the waiting-room's backing store.
type PersistConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures the ambient slog logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the recognized options at their documented defaults,
// mirroring peer.DefaultConfig/waitingroom.DefaultConfig.
func Default() Config {
	return Config{
		Sync: SyncConfig{
			OnStartup: true,
			MaxPeers:  5,
			Period:    10 * time.Minute,
		},
		WaitingRoom: WaitingRoom{
			QueryInterval: 30 * time.Second,
			RetryInterval: 30 * time.Second,
			MaxQueries:    3,
			MaxClones:     3,
		},
		Transport: TransportConfig{
			ListenAddrs: []string{"/ip4/0.0.0.0/udp/9600/quic-v1"},
		},
		Persist: PersistConfig{
			Path: "radicle-peer.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file at path, filling any section the file
// omits with Default's values for that section.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	// Unmarshal onto the defaulted struct so an omitted top-level key
	// (e.g. no "persist:" section at all) keeps its default rather than
	// zeroing out.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// PeerConfig projects the RunState-recognized subset into peer.Config.
func (c Config) PeerConfig() peer.Config {
	return peer.Config{
		Sync: peer.SyncConfig{
			OnStartup: c.Sync.OnStartup,
			MaxPeers:  c.Sync.MaxPeers,
			Period:    c.Sync.Period,
		},
		WaitingRoom: c.WaitingRoomConfig(),
	}
}

// LoadBootnodesFile reads a standalone nodes file (legacy multiaddr-entry
// list or a plain multiaddr string list) and appends its entries to
// c.Transport.Bootnodes, for deployments that keep the bootstrap set in its
// own file instead of inline in the main config.
func (c *Config) LoadBootnodesFile(path string) error {
	nodes, err := LoadBootnodes(path)
	if err != nil {
		return err
	}
	c.Transport.Bootnodes = append(c.Transport.Bootnodes, nodes...)
	return nil
}

// WaitingRoomConfig projects the waiting-room subset into waitingroom.Config.
func (c Config) WaitingRoomConfig() waitingroom.Config {
	return waitingroom.Config{
		QueryInterval: c.WaitingRoom.QueryInterval,
		RetryInterval: c.WaitingRoom.RetryInterval,
		MaxQueries:    c.WaitingRoom.MaxQueries,
		MaxClones:     c.WaitingRoom.MaxClones,
	}
}
