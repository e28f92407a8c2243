package peer

import (
	"log/slog"
	"time"

	"github.com/bzz/radicle-peer/clock"
	"github.com/bzz/radicle-peer/identity"
	"github.com/bzz/radicle-peer/waitingroom"
)

// RunState is the state kept for a running local peer. It exclusively owns
// config, connectedPeers, status, statusSince, stats and waitingRoom — no
// part is shared with other goroutines, and Transition is not reentrant
// (spec.md §3 "Ownership", §5 "Shared resources").
type RunState struct {
	config Config
	clock  clock.Clock
	logger *slog.Logger

	connectedPeers *ConnectedPeers
	status         Status
	statusSince    time.Time
	stats          Stats
	waitingRoom    *waitingroom.WaitingRoom
}

// New constructs a RunState in the initial Stopped status.
func New(cfg Config, clk clock.Clock, logger *slog.Logger) *RunState {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RunState{
		config:         cfg,
		clock:          clk,
		logger:         logger,
		connectedPeers: NewConnectedPeers(),
		status:         Stopped(),
		statusSince:    clk.Now(),
		stats:          Stats{},
		waitingRoom:    waitingroom.New(cfg.WaitingRoom, clk, logger),
	}
}

// Status returns the current status.
func (r *RunState) Status() Status { return r.status }

// StatusSince returns the timestamp of the last status change.
func (r *RunState) StatusSince() time.Time { return r.statusSince }

func (r *RunState) setStatus(s Status) {
	r.status = s
	r.statusSince = r.clock.Now()
}

// Transition applies input and returns the commands the caller should
// dispatch. Synchronous, total, deterministic given state and input
// (spec.md §4.1).
func (r *RunState) Transition(input Input) []Command {
	r.logger.Debug("transition start", "status", r.status.Kind, "input", inputName(input))

	var cmds []Command
	switch in := input.(type) {
	case AnnounceTick, AnnounceSucceeded:
		cmds = r.handleAnnounce(in)
	case ControlCreateRequest, ControlCancelRequest, ControlGetRequest, ControlListRequests, ControlStatus:
		cmds = r.handleControl(in)
	case ProtocolInput:
		cmds = r.handleProtocol(in.Event)
	case SyncStarted, SyncFailed, SyncSucceeded:
		cmds = r.handlePeerSync(in)
	case RequestTick, RequestQueried, RequestCloning, RequestCloned, RequestFailed, RequestTimedOut:
		cmds = r.handleRequest(in)
	case StatsTick, StatsValues:
		cmds = r.handleStats(in)
	case TimeoutSyncPeriod:
		cmds = r.handleTimeout(in)
	default:
		cmds = nil
	}

	r.logger.Debug("transition end", "status", r.status.Kind, "commands", len(cmds))
	return cmds
}

func inputName(input Input) string {
	switch input.(type) {
	case AnnounceTick:
		return "Announce.Tick"
	case AnnounceSucceeded:
		return "Announce.Succeeded"
	case ControlCreateRequest:
		return "Control.CreateRequest"
	case ControlCancelRequest:
		return "Control.CancelRequest"
	case ControlGetRequest:
		return "Control.GetRequest"
	case ControlListRequests:
		return "Control.ListRequests"
	case ControlStatus:
		return "Control.Status"
	case ProtocolInput:
		return "Protocol"
	case SyncStarted:
		return "PeerSync.Started"
	case SyncFailed:
		return "PeerSync.Failed"
	case SyncSucceeded:
		return "PeerSync.Succeeded"
	case RequestTick:
		return "Request.Tick"
	case RequestQueried:
		return "Request.Queried"
	case RequestCloning:
		return "Request.Cloning"
	case RequestCloned:
		return "Request.Cloned"
	case RequestFailed:
		return "Request.Failed"
	case RequestTimedOut:
		return "Request.TimedOut"
	case StatsTick:
		return "Stats.Tick"
	case StatsValues:
		return "Stats.Values"
	case TimeoutSyncPeriod:
		return "Timeout.SyncPeriod"
	default:
		return "unknown"
	}
}

// handleAnnounce implements spec.md §4.1.1.
func (r *RunState) handleAnnounce(input Input) []Command {
	switch input.(type) {
	case AnnounceTick:
		switch r.status.Kind {
		case StatusOnline, StatusStarted, StatusSyncing:
			return []Command{CmdAnnounce{}}
		}
		return nil
	case AnnounceSucceeded:
		// No commands; projected to Event::Announced by the dispatcher via
		// ProjectEvent.
		return nil
	default:
		return nil
	}
}

// handleControl implements spec.md §4.1.2.
func (r *RunState) handleControl(input Input) []Command {
	switch in := input.(type) {
	case ControlCreateRequest:
		req := r.waitingRoom.Request(in.URN, in.Timestamp)
		return []Command{
			CmdControlRespond{Response: RespondStartSearch{Sink: in.Sink, Request: req}},
			CmdEmitEvent{Event: EventRequestCreated{URN: in.URN}},
		}
	case ControlCancelRequest:
		var outcome CancelOutcome
		if err := r.waitingRoom.Canceled(in.URN, in.Timestamp); err != nil {
			outcome.Err = err
		} else {
			outcome.Removed = r.waitingRoom.Get(in.URN)
			r.waitingRoom.Remove(in.URN)
		}
		return []Command{
			CmdControlRespond{Response: RespondCancelSearch{Sink: in.Sink, Outcome: outcome}},
			CmdPersistWaitingRoom{Snapshot: r.waitingRoom.Iter()},
		}
	case ControlGetRequest:
		return []Command{
			CmdControlRespond{Response: RespondGetSearch{Sink: in.Sink, Request: r.waitingRoom.Get(in.URN)}},
		}
	case ControlListRequests:
		return []Command{
			CmdControlRespond{Response: RespondListSearches{Sink: in.Sink, Requests: r.waitingRoom.Iter()}},
		}
	case ControlStatus:
		return []Command{
			CmdControlRespond{Response: RespondCurrentStatus{Sink: in.Sink, Status: r.status}},
		}
	default:
		return nil
	}
}

// handleProtocol implements spec.md §4.1.3.
func (r *RunState) handleProtocol(event ProtocolEvent) []Command {
	switch event.Kind {
	case ProtocolEndpointUp:
		if r.status.Kind == StatusStopped {
			r.setStatus(Started())
		}
		return nil
	case ProtocolEndpointDown:
		r.setStatus(Stopped())
		return nil
	case ProtocolConnected:
		// Ledger-only: no command, no status change. Status transitions to
		// Online/Offline are driven exclusively by Stats::Values
		// (spec.md §4.1.6); this just keeps C5 accurate in between ticks.
		r.connectedPeers.Connected(event.Peer)
		return nil
	case ProtocolDisconnecting:
		r.connectedPeers.Disconnecting(event.Peer)
		return nil
	case ProtocolGossipPut:
		peerID := event.Provider.PeerID
		if err := r.waitingRoom.Found(event.Gossip.URN, peerID, r.clock.Now()); err != nil {
			if isTimeOut(err) {
				return []Command{CmdRequestTimedOut{URN: event.Gossip.URN}}
			}
		}
		return nil
	default:
		return nil
	}
}

// handlePeerSync implements spec.md §4.1.4.
func (r *RunState) handlePeerSync(input Input) []Command {
	if r.status.Kind != StatusSyncing {
		return nil
	}

	var peer identity.PeerID
	switch in := input.(type) {
	case SyncStarted:
		peer = in.Peer
		r.status.Syncs[peer] = struct{}{}
	case SyncFailed:
		peer = in.Peer
		delete(r.status.Syncs, peer)
		r.status.Failed[peer] = struct{}{}
	case SyncSucceeded:
		peer = in.Peer
		delete(r.status.Syncs, peer)
		r.status.Succeeded[peer] = struct{}{}
	default:
		return nil
	}

	if len(r.status.Failed)+len(r.status.Succeeded) >= r.config.Sync.MaxPeers {
		r.setStatus(Online(r.stats.ConnectedPeers))
	}
	return nil
}

// handleRequest implements spec.md §4.1.5.
func (r *RunState) handleRequest(input Input) []Command {
	switch in := input.(type) {
	case RequestTick:
		if r.status.Kind != StatusOnline && r.status.Kind != StatusSyncing {
			return nil
		}
		cmds := make([]Command, 0, 4)
		now := r.clock.Now()
		if urn, ok := r.waitingRoom.NextQuery(now); ok {
			cmds = append(cmds, CmdRequestQuery{URN: urn}, CmdPersistWaitingRoom{Snapshot: r.waitingRoom.Iter()})
		}
		if urn, peer, ok := r.waitingRoom.NextClone(); ok {
			cmds = append(cmds, CmdRequestClone{URN: urn, Peer: peer}, CmdPersistWaitingRoom{Snapshot: r.waitingRoom.Iter()})
		}
		return cmds
	case RequestQueried:
		return r.waitingRoomResult(in.URN, r.waitingRoom.Queried(in.URN, r.clock.Now()))
	case RequestCloning:
		return r.waitingRoomResult(in.URN, r.waitingRoom.Cloning(in.URN, in.Peer, r.clock.Now()))
	case RequestCloned:
		return r.waitingRoomResult(in.URN, r.waitingRoom.Cloned(in.URN, in.Peer, r.clock.Now()))
	case RequestFailed:
		r.logger.Warn("cloning failed", "urn", in.URN, "peer", in.Peer, "reason", in.Reason)
		return r.waitingRoomResult(in.URN, r.waitingRoom.CloningFailed(in.URN, in.Peer, r.clock.Now()))
	case RequestTimedOut:
		// Already surfaced; no further state mutation. Projected to an
		// event by ProjectEvent.
		return nil
	default:
		return nil
	}
}

func (r *RunState) waitingRoomResult(urn identity.URN, err error) []Command {
	if err == nil {
		return []Command{CmdPersistWaitingRoom{Snapshot: r.waitingRoom.Iter()}}
	}
	if isTimeOut(err) {
		return []Command{CmdRequestTimedOut{URN: urn}}
	}
	r.logger.Warn("waiting room error", "urn", urn, "error", err)
	return nil
}

func isTimeOut(err error) bool {
	return err == waitingroom.ErrTimeOut
}

// handleStats implements spec.md §4.1.6.
func (r *RunState) handleStats(input Input) []Command {
	switch in := input.(type) {
	case StatsTick:
		return []Command{CmdStats{}}
	case StatsValues:
		cmds := r.applyStatsValues(in)
		r.connectedPeers.replaceFrom(in.ConnectedPeers)
		r.stats = in.Stats
		return cmds
	default:
		return nil
	}
}

// applyStatsValues follows the priority table in spec.md §4.1.6 top to
// bottom: the first matching row wins, exactly as the source's match arms
// are tried in order.
func (r *RunState) applyStatsValues(in StatsValues) []Command {
	online := r.status.Kind
	switch {
	case (online == StatusOnline || online == StatusSyncing || online == StatusStarted) && in.Stats.ConnectedPeers == 0:
		r.setStatus(Offline())
		return nil
	case online == StatusOffline && in.Stats.ConnectedPeers > 0:
		r.setStatus(Online(in.Stats.ConnectedPeers))
		return nil
	case online == StatusStarted && r.config.Sync.OnStartup && in.Stats.ConnectedPeers > 0:
		r.setStatus(NewSyncing())
		cmds := make([]Command, 0, len(in.ConnectedPeers)+1)
		for _, p := range in.ConnectedPeers {
			cmds = append(cmds, CmdSyncPeer{Peer: p})
		}
		cmds = append(cmds, CmdStartSyncTimeout{Period: r.config.Sync.Period})
		return cmds
	case online == StatusStarted && in.Stats.ConnectedPeers > 0:
		r.setStatus(Online(in.Stats.ConnectedPeers))
		return nil
	case online == StatusSyncing:
		existing := r.connectedPeers.Peers()
		var cmds []Command
		for _, p := range in.ConnectedPeers {
			if _, already := existing[p]; !already {
				cmds = append(cmds, CmdSyncPeer{Peer: p})
			}
		}
		return cmds
	default:
		return nil
	}
}

// handleTimeout implements spec.md §4.1.7.
func (r *RunState) handleTimeout(input Input) []Command {
	switch input.(type) {
	case TimeoutSyncPeriod:
		if r.status.Kind == StatusSyncing {
			r.setStatus(Online(r.connectedPeers.Len()))
		}
		return nil
	default:
		return nil
	}
}
