package peer

import (
	"time"

	"github.com/bzz/radicle-peer/identity"
	"github.com/bzz/radicle-peer/waitingroom"
)

// Command is a side-effect directive the reducer returns for the caller to
// dispatch to the appropriate subroutine (spec.md §4).
type Command interface{ isCommand() }

type CmdAnnounce struct{}

func (CmdAnnounce) isCommand() {}

type CmdSyncPeer struct{ Peer identity.PeerID }

func (CmdSyncPeer) isCommand() {}

type CmdStartSyncTimeout struct{ Period time.Duration }

func (CmdStartSyncTimeout) isCommand() {}

type CmdStats struct{}

func (CmdStats) isCommand() {}

type CmdControlRespond struct{ Response ControlResponse }

func (CmdControlRespond) isCommand() {}

type CmdEmitEvent struct{ Event Event }

func (CmdEmitEvent) isCommand() {}

// CmdPersistWaitingRoom carries a value-snapshot of the waiting room, never
// a live reference, so the dispatcher can persist it on another goroutine
// without racing the reducer (spec.md §9 "copy-on-emit").
type CmdPersistWaitingRoom struct{ Snapshot []*waitingroom.Request }

func (CmdPersistWaitingRoom) isCommand() {}

type CmdRequestQuery struct{ URN identity.URN }

func (CmdRequestQuery) isCommand() {}

type CmdRequestClone struct {
	URN  identity.URN
	Peer identity.PeerID
}

func (CmdRequestClone) isCommand() {}

// CmdRequestTimedOut is the dispatcher-facing counterpart of the
// RequestTimedOut input: the reducer emits it when a waiting-room operation
// reports ErrTimeOut, and the dispatcher feeds RequestTimedOut back in as
// an Input, whose projected event then notifies observers.
type CmdRequestTimedOut struct{ URN identity.URN }

func (CmdRequestTimedOut) isCommand() {}
