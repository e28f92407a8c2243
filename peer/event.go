package peer

import "github.com/bzz/radicle-peer/identity"

// Event is an externally-observable notification projected from selected
// inputs (spec.md §4.3), consumed by metrics/UI/test subscribers.
type Event interface{ isEvent() }

type EventAnnounced struct{ Updates AnnouncementUpdates }

func (EventAnnounced) isEvent() {}

type EventPeerSynced struct{ Peer identity.PeerID }

func (EventPeerSynced) isEvent() {}

type EventProtocol struct{ Inner ProtocolEvent }

func (EventProtocol) isEvent() {}

type EventRequestCloned struct {
	URN  identity.URN
	Peer identity.PeerID
}

func (EventRequestCloned) isEvent() {}

type EventRequestCloning struct {
	URN  identity.URN
	Peer identity.PeerID
}

func (EventRequestCloning) isEvent() {}

type EventRequestCreated struct{ URN identity.URN }

func (EventRequestCreated) isEvent() {}

type EventRequestQueried struct{ URN identity.URN }

func (EventRequestQueried) isEvent() {}

type EventRequestTick struct{}

func (EventRequestTick) isEvent() {}

type EventRequestTimedOut struct{ URN identity.URN }

func (EventRequestTimedOut) isEvent() {}

// EventStatusChanged is emitted by the dispatcher, not the reducer
// (spec.md §4.3 "Additionally..."); included here so subscribers have a
// single Event sum type to switch over.
type EventStatusChanged struct{ Old, New Status }

func (EventStatusChanged) isEvent() {}

// EventGossipFetched is emitted by the dispatcher for every Protocol
// GossipPut input it consumes; also not produced by ProjectEvent.
type EventGossipFetched struct {
	Provider PeerInfo
	Gossip   GossipPayload
	Result   PutResult
}

func (EventGossipFetched) isEvent() {}

// ProjectEvent maps an Input to its Event per the exhaustive table in
// spec.md §4.3. Inputs with no entry in the table return (nil, false).
func ProjectEvent(input Input) (Event, bool) {
	switch in := input.(type) {
	case AnnounceSucceeded:
		return EventAnnounced{Updates: in.Updates}, true
	case SyncSucceeded:
		return EventPeerSynced{Peer: in.Peer}, true
	case ProtocolInput:
		return EventProtocol{Inner: in.Event}, true
	case RequestCloned:
		return EventRequestCloned{URN: in.URN, Peer: in.Peer}, true
	case RequestCloning:
		return EventRequestCloning{URN: in.URN, Peer: in.Peer}, true
	case RequestQueried:
		return EventRequestQueried{URN: in.URN}, true
	case RequestTick:
		return EventRequestTick{}, true
	case RequestTimedOut:
		return EventRequestTimedOut{URN: in.URN}, true
	default:
		return nil, false
	}
}
