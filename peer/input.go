package peer

import (
	"time"

	"github.com/bzz/radicle-peer/identity"
	"github.com/bzz/radicle-peer/waitingroom"
)

// Input is every stimulus the reducer can receive (spec.md §4). Concrete
// types are grouped by family, named <Family><Variant> to mirror the
// source's nested Input::Family(Family::Variant) shape while staying flat
// Go types switchable in one exhaustive type switch.
type Input interface{ isInput() }

// --- Announce inputs (spec.md §4.1.1) ---

type AnnounceTick struct{}

func (AnnounceTick) isInput() {}

type AnnounceSucceeded struct{ Updates AnnouncementUpdates }

func (AnnounceSucceeded) isInput() {}

// --- Control inputs (spec.md §4.1.2) ---

type ControlCreateRequest struct {
	URN       identity.URN
	Timestamp time.Time
	Sink      Sink[*waitingroom.Request]
}

func (ControlCreateRequest) isInput() {}

type ControlCancelRequest struct {
	URN       identity.URN
	Timestamp time.Time
	Sink      Sink[CancelOutcome]
}

func (ControlCancelRequest) isInput() {}

type ControlGetRequest struct {
	URN  identity.URN
	Sink Sink[*waitingroom.Request]
}

func (ControlGetRequest) isInput() {}

type ControlListRequests struct {
	Sink Sink[[]*waitingroom.Request]
}

func (ControlListRequests) isInput() {}

type ControlStatus struct {
	Sink Sink[Status]
}

func (ControlStatus) isInput() {}

// --- Protocol inputs (spec.md §4.1.3) ---

type ProtocolInput struct{ Event ProtocolEvent }

func (ProtocolInput) isInput() {}

// --- PeerSync inputs (spec.md §4.1.4) ---

type SyncStarted struct{ Peer identity.PeerID }

func (SyncStarted) isInput() {}

type SyncFailed struct{ Peer identity.PeerID }

func (SyncFailed) isInput() {}

type SyncSucceeded struct{ Peer identity.PeerID }

func (SyncSucceeded) isInput() {}

// --- Request inputs (spec.md §4.1.5) ---

type RequestTick struct{}

func (RequestTick) isInput() {}

type RequestQueried struct{ URN identity.URN }

func (RequestQueried) isInput() {}

type RequestCloning struct {
	URN  identity.URN
	Peer identity.PeerID
}

func (RequestCloning) isInput() {}

type RequestCloned struct {
	URN  identity.URN
	Peer identity.PeerID
}

func (RequestCloned) isInput() {}

type RequestFailed struct {
	URN    identity.URN
	Peer   identity.PeerID
	Reason string
}

func (RequestFailed) isInput() {}

type RequestTimedOut struct{ URN identity.URN }

func (RequestTimedOut) isInput() {}

// --- Stats inputs (spec.md §4.1.6) ---

type StatsTick struct{}

func (StatsTick) isInput() {}

type StatsValues struct {
	ConnectedPeers []identity.PeerID
	Stats          Stats
}

func (StatsValues) isInput() {}

// --- Timeout inputs (spec.md §4.1.7) ---

type TimeoutSyncPeriod struct{}

func (TimeoutSyncPeriod) isInput() {}
