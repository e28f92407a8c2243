package peer

import (
	"github.com/bzz/radicle-peer/identity"
	"github.com/multiformats/go-multiaddr"
)

// PeerInfo is what the protocol layer knows about a remote peer.
type PeerInfo struct {
	PeerID     identity.PeerID
	Advertised []byte // implementation-defined advertisement blob
	SeenAddrs  []multiaddr.Multiaddr
}

// GossipPayload is the content of a gossip announcement: a peer claims to
// hold urn, optionally naming where it got it from (Origin) and at what
// revision (Rev).
type GossipPayload struct {
	URN    identity.URN
	Origin *identity.PeerID
	Rev    *string
}

// PutResult is the outcome of applying a gossip-driven fetch to local
// storage. Acknowledged in GossipFetched events but, per spec.md §9 open
// questions, not currently acted upon by the reducer.
type PutResult int

const (
	PutApplied PutResult = iota
	PutRejected
	PutStale
)

// ProtocolEventKind discriminates ProtocolEvent variants.
type ProtocolEventKind int

const (
	ProtocolEndpointUp ProtocolEventKind = iota
	ProtocolEndpointDown
	ProtocolConnected
	ProtocolDisconnecting
	ProtocolGossipPut
	ProtocolOther
)

// ProtocolEvent is a notification from the underlying P2P/gossip transport.
// Only EndpointUp/EndpointDown/Connected/Disconnecting/GossipPut drive
// reducer behavior (spec.md §4.1.3); any other concrete libp2p event a
// transport adapter observes is folded into ProtocolOther so it still
// reaches handleProtocol's catch-all (no command, no state change) without
// the core needing to know every transport-specific event type.
type ProtocolEvent struct {
	Kind ProtocolEventKind
	Peer identity.PeerID // Connected/Disconnecting

	Gossip   GossipPayload
	Provider PeerInfo
	Result   PutResult
}
