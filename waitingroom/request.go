package waitingroom

import (
	"time"

	"github.com/bzz/radicle-peer/identity"
)

// Attempts counts the queries and clones issued for a request.
type Attempts struct {
	Queries int
	Clones  int
}

// Timestamps records the lifecycle instants of a request.
type Timestamps struct {
	Created     time.Time
	LastQueried time.Time
	LastCloning time.Time
	Terminated  time.Time
}

// Request is one waiting-room entry: the lifecycle of a single URN being
// sought from the network.
type Request struct {
	URN        identity.URN
	State      State
	Attempts   Attempts
	Timestamps Timestamps

	// candidateOrder preserves insertion order so next_clone (spec.md §4.2)
	// can deterministically pick "the first unattempted candidate".
	candidateOrder []identity.PeerID
	candidates     map[identity.PeerID]struct{}
	attempted      map[identity.PeerID]struct{}
}

func newRequest(urn identity.URN, now time.Time) *Request {
	return &Request{
		URN:   urn,
		State: Created,
		Timestamps: Timestamps{
			Created: now,
		},
		candidates: make(map[identity.PeerID]struct{}),
		attempted:  make(map[identity.PeerID]struct{}),
	}
}

// Candidates returns the known candidate peers in discovery order.
func (r *Request) Candidates() []identity.PeerID {
	out := make([]identity.PeerID, len(r.candidateOrder))
	copy(out, r.candidateOrder)
	return out
}

func (r *Request) addCandidate(p identity.PeerID) {
	if _, ok := r.candidates[p]; ok {
		return
	}
	r.candidates[p] = struct{}{}
	r.candidateOrder = append(r.candidateOrder, p)
}

func (r *Request) unattemptedCandidate() (identity.PeerID, bool) {
	for _, p := range r.candidateOrder {
		if _, done := r.attempted[p]; !done {
			return p, true
		}
	}
	return identity.PeerID{}, false
}

// clone returns a deep copy of r so callers (e.g. control response sinks,
// persistence snapshots) can hold it without aliasing the room's state.
func (r *Request) clone() *Request {
	cp := &Request{
		URN:        r.URN,
		State:      r.State,
		Attempts:   r.Attempts,
		Timestamps: r.Timestamps,
		candidates: make(map[identity.PeerID]struct{}, len(r.candidates)),
		attempted:  make(map[identity.PeerID]struct{}, len(r.attempted)),
	}
	cp.candidateOrder = append(cp.candidateOrder, r.candidateOrder...)
	for k := range r.candidates {
		cp.candidates[k] = struct{}{}
	}
	for k := range r.attempted {
		cp.attempted[k] = struct{}{}
	}
	return cp
}
