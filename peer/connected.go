package peer

import "github.com/bzz/radicle-peer/identity"

// ConnectedPeers is a multiset-like ledger of active connections per remote
// peer (spec.md §3, §5 "Connection counting"). A peer may hold multiple
// concurrent connections (e.g. gossip + git fetch); membership requires
// count >= 1, and eviction happens only once the count reaches zero. This
// avoids the bug where Connected(p), Connected(p), Disconnecting(p) falsely
// evicted p under a plain set.
type ConnectedPeers struct {
	counts map[identity.PeerID]int
}

// NewConnectedPeers returns an empty ledger.
func NewConnectedPeers() *ConnectedPeers {
	return &ConnectedPeers{counts: make(map[identity.PeerID]int)}
}

// Connected increments p's connection count.
func (c *ConnectedPeers) Connected(p identity.PeerID) {
	c.counts[p]++
}

// Disconnecting decrements p's connection count, evicting p once it reaches
// zero. Decrementing an unknown peer is a no-op.
func (c *ConnectedPeers) Disconnecting(p identity.PeerID) {
	n, ok := c.counts[p]
	if !ok {
		return
	}
	if n <= 1 {
		delete(c.counts, p)
		return
	}
	c.counts[p] = n - 1
}

// Has reports whether p currently holds at least one connection.
func (c *ConnectedPeers) Has(p identity.PeerID) bool {
	return c.counts[p] > 0
}

// Len returns the number of distinct connected peers.
func (c *ConnectedPeers) Len() int { return len(c.counts) }

// Peers returns the set of currently connected peer IDs.
func (c *ConnectedPeers) Peers() map[identity.PeerID]struct{} {
	out := make(map[identity.PeerID]struct{}, len(c.counts))
	for p := range c.counts {
		out[p] = struct{}{}
	}
	return out
}

// replaceFrom resets the ledger to exactly the peers in list, each with a
// count of 1 — used by handleStats when a fresh connected_peers list
// arrives (spec.md §4.1.6: "update connected_peers from the incoming
// list").
func (c *ConnectedPeers) replaceFrom(list []identity.PeerID) {
	c.counts = make(map[identity.PeerID]int, len(list))
	for _, p := range list {
		c.counts[p] = 1
	}
}
