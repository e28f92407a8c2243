package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// seedEntry is one record in the legacy, struct-per-line seeds file format.
type seedEntry struct {
	Multiaddr string `yaml:"multiaddr"`
}

// LoadBootnodes loads a seeds file and returns the raw bootstrap multiaddr
// strings it names. Two on-disk shapes are accepted, since operators have
// hand-edited both over the years:
//   - struct form:       [{multiaddr: "/ip4/1.2.3.4/udp/9600/quic-v1/p2p/..."}]
//   - plain string form: ["/ip4/1.2.3.4/udp/9600/quic-v1/p2p/..."]
func LoadBootnodes(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seeds: %w", err)
	}

	var entries []seedEntry
	if err := yaml.Unmarshal(data, &entries); err == nil && len(entries) > 0 && entries[0].Multiaddr != "" {
		out := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.Multiaddr != "" {
				out = append(out, e.Multiaddr)
			}
		}
		return out, nil
	}

	var addrs []string
	if err := yaml.Unmarshal(data, &addrs); err != nil {
		return nil, fmt.Errorf("parse seeds: %w", err)
	}
	return addrs, nil
}
