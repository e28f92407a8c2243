package peer

import (
	"time"

	"github.com/bzz/radicle-peer/waitingroom"
)

// Config holds the RunState-recognized options from spec.md §3. The
// waiting-room's own tunables live in waitingroom.Config; RunState carries
// an instance so it can construct the room it owns.
type Config struct {
	Sync        SyncConfig        `yaml:"sync"`
	WaitingRoom waitingroom.Config `yaml:"waitingRoom"`
}

// SyncConfig controls the bootstrap Syncing phase.
type SyncConfig struct {
	OnStartup bool          `yaml:"onStartup"`
	MaxPeers  int           `yaml:"maxPeers"`
	Period    time.Duration `yaml:"period"`
}

// DefaultConfig mirrors the teacher's DefaultGossipsubParams /
// bootnodeRetryInterval style of providing sane out-of-the-box values.
func DefaultConfig() Config {
	return Config{
		Sync: SyncConfig{
			OnStartup: true,
			MaxPeers:  5,
			Period:    10 * time.Minute,
		},
		WaitingRoom: waitingroom.DefaultConfig(),
	}
}
