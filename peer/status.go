// Package peer implements the peer run-state core: the RunState reducer
// (spec.md §4.1), its status model (§3), connected-peers ledger (§4's C5),
// and the Input/Command/Event vocabulary (§4, §6) that ties it to the
// surrounding subroutines.
package peer

import (
	"encoding/json"
	"sort"

	"github.com/bzz/radicle-peer/identity"
)

// StatusKind discriminates the Status variants.
type StatusKind int

const (
	StatusStopped StatusKind = iota
	StatusStarted
	StatusOffline
	StatusSyncing
	StatusOnline
)

func (k StatusKind) String() string {
	switch k {
	case StatusStopped:
		return "stopped"
	case StatusStarted:
		return "started"
	case StatusOffline:
		return "offline"
	case StatusSyncing:
		return "syncing"
	case StatusOnline:
		return "online"
	default:
		return "unknown"
	}
}

// Status is the current status of the local peer and its relation to the
// network. Exactly one of the fields below is meaningful, selected by Kind:
// Failed/Succeeded/Syncs for StatusSyncing, Connected for StatusOnline.
type Status struct {
	Kind StatusKind

	// Syncing fields. Pairwise disjoint at all times (spec.md §8).
	Failed    map[identity.PeerID]struct{}
	Succeeded map[identity.PeerID]struct{}
	Syncs     map[identity.PeerID]struct{}

	// Online field.
	Connected int
}

func Stopped() Status { return Status{Kind: StatusStopped} }
func Started() Status { return Status{Kind: StatusStarted} }
func Offline() Status { return Status{Kind: StatusOffline} }

func Online(connected int) Status {
	return Status{Kind: StatusOnline, Connected: connected}
}

func NewSyncing() Status {
	return Status{
		Kind:      StatusSyncing,
		Failed:    make(map[identity.PeerID]struct{}),
		Succeeded: make(map[identity.PeerID]struct{}),
		Syncs:     make(map[identity.PeerID]struct{}),
	}
}

// Equal reports whether s and other represent the same status, field for
// field (used by tests and by StatusChanged event comparisons).
func (s Status) Equal(other Status) bool {
	if s.Kind != other.Kind {
		return false
	}
	switch s.Kind {
	case StatusOnline:
		return s.Connected == other.Connected
	case StatusSyncing:
		return setsEqual(s.Failed, other.Failed) &&
			setsEqual(s.Succeeded, other.Succeeded) &&
			setsEqual(s.Syncs, other.Syncs)
	default:
		return true
	}
}

func setsEqual(a, b map[identity.PeerID]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// sortedPeerIDs returns the set's members sorted for deterministic JSON
// output.
func sortedPeerIDs(set map[identity.PeerID]struct{}) []identity.PeerID {
	out := make([]identity.PeerID, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// statusWire is the external, lowerCamelCase JSON shape spec.md §6 mandates.
type statusWire struct {
	Type      string             `json:"type"`
	Failed    []identity.PeerID  `json:"failed,omitempty"`
	Succeeded []identity.PeerID  `json:"succeeded,omitempty"`
	Syncs     []identity.PeerID  `json:"syncs,omitempty"`
	Connected *int               `json:"connected,omitempty"`
}

func (s Status) MarshalJSON() ([]byte, error) {
	w := statusWire{Type: s.Kind.String()}
	switch s.Kind {
	case StatusSyncing:
		// The three sets are always present for syncing, even when empty.
		return json.Marshal(struct {
			Type      string            `json:"type"`
			Failed    []identity.PeerID `json:"failed"`
			Succeeded []identity.PeerID `json:"succeeded"`
			Syncs     []identity.PeerID `json:"syncs"`
		}{w.Type, sortedPeerIDs(s.Failed), sortedPeerIDs(s.Succeeded), sortedPeerIDs(s.Syncs)})
	case StatusOnline:
		connected := s.Connected
		w.Connected = &connected
	}
	return json.Marshal(w)
}
