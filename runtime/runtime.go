// Package runtime owns the single consumer loop that drives the peer
// reducer: it reads inputs off one channel, calls peer.RunState.Transition,
// and dispatches the returned commands to the subroutines below, without
// interleaving commands from two different transitions (spec.md §5).
//
// Grounded on networking.Service's context/cancel/WaitGroup shape.
package runtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/bzz/radicle-peer/identity"
	"github.com/bzz/radicle-peer/peer"
)

// Announcer publishes waiting-room/project updates to the network and
// reports what it announced.
type Announcer interface {
	Announce(ctx context.Context) (peer.AnnouncementUpdates, error)
}

// Syncer performs a bootstrap sync exchange with a newly connected peer.
type Syncer interface {
	SyncPeer(ctx context.Context, p identity.PeerID) error
}

// RequestRunner carries out the work named by a waiting-room next-action:
// broadcasting a query for a URN, or cloning it from a specific peer.
type RequestRunner interface {
	Query(ctx context.Context, urn identity.URN) error
	Clone(ctx context.Context, urn identity.URN, from identity.PeerID) error
}

// StatsSource reports the current connectivity snapshot on demand.
type StatsSource interface {
	Stats(ctx context.Context) (peer.Stats, []identity.PeerID, error)
}

// WaitingRoomStore persists waiting-room snapshots. Called once per command,
// sequentially, with the latest known snapshot — persistence is idempotent
// so the runtime makes no effort to coalesce repeated calls.
type WaitingRoomStore interface {
	Persist(ctx context.Context, snapshot []byte) error
}

// EventSink receives every Event emitted by the reducer (metrics, logs, UI
// subscribers).
type EventSink interface {
	Emit(event peer.Event)
}

// Config controls the runtime's own ticker periods, distinct from the
// peer/waiting-room config the reducer uses for its internal timing.
type Config struct {
	AnnounceInterval time.Duration
	RequestInterval  time.Duration
	StatsInterval    time.Duration
}

func DefaultConfig() Config {
	return Config{
		AnnounceInterval: 30 * time.Second,
		RequestInterval:  5 * time.Second,
		StatsInterval:    10 * time.Second,
	}
}

// Runtime is the single consumer of peer.Input. Subroutine fields are
// optional; a nil subroutine silently drops the commands meant for it
// (useful in tests that only exercise a subset of the wiring).
type Runtime struct {
	state  *peer.RunState
	cfg    Config
	logger *slog.Logger

	inputs chan peer.Input

	announcer Announcer
	syncer    Syncer
	requests  RequestRunner
	stats     StatsSource
	store     WaitingRoomStore
	events    EventSink

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Dependencies struct {
	Announcer Announcer
	Syncer    Syncer
	Requests  RequestRunner
	Stats     StatsSource
	Store     WaitingRoomStore
	Events    EventSink
}

// New constructs a Runtime. Call Start to begin consuming inputs.
func New(ctx context.Context, state *peer.RunState, cfg Config, deps Dependencies, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Runtime{
		state:     state,
		cfg:       cfg,
		logger:    logger,
		inputs:    make(chan peer.Input, 64),
		announcer: deps.Announcer,
		syncer:    deps.Syncer,
		requests:  deps.Requests,
		stats:     deps.Stats,
		store:     deps.Store,
		events:    deps.Events,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Wire attaches subroutine dependencies constructed after the Runtime
// itself — e.g. a transport node that needs the Runtime to forward
// incoming protocol events, so it cannot be built before New returns. Must
// be called before Start: the consumer loop isn't running yet, so there is
// no race with Submit. Nil fields in deps leave the existing dependency
// (if any) untouched.
func (r *Runtime) Wire(deps Dependencies) {
	if deps.Announcer != nil {
		r.announcer = deps.Announcer
	}
	if deps.Syncer != nil {
		r.syncer = deps.Syncer
	}
	if deps.Requests != nil {
		r.requests = deps.Requests
	}
	if deps.Stats != nil {
		r.stats = deps.Stats
	}
	if deps.Store != nil {
		r.store = deps.Store
	}
	if deps.Events != nil {
		r.events = deps.Events
	}
}

// Submit enqueues an input for processing. Safe to call concurrently; the
// consumer loop serializes all Transition calls.
func (r *Runtime) Submit(in peer.Input) {
	select {
	case r.inputs <- in:
	case <-r.ctx.Done():
	}
}

// Start launches the consumer loop and the tick goroutines.
func (r *Runtime) Start() {
	r.wg.Add(1)
	go r.consume()

	r.wg.Add(3)
	go r.tick(r.cfg.AnnounceInterval, func() peer.Input { return peer.AnnounceTick{} })
	go r.tick(r.cfg.RequestInterval, func() peer.Input { return peer.RequestTick{} })
	go r.tick(r.cfg.StatsInterval, func() peer.Input { return peer.StatsTick{} })

	r.logger.Info("runtime started")
}

// Stop cancels the context, drains the consumer, and waits for every
// goroutine to exit.
func (r *Runtime) Stop() {
	r.cancel()
	r.wg.Wait()
	r.logger.Info("runtime stopped")
}

func (r *Runtime) tick(period time.Duration, mk func() peer.Input) {
	defer r.wg.Done()
	if period <= 0 {
		return
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.Submit(mk())
		}
	}
}

func (r *Runtime) consume() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case in := <-r.inputs:
			before := r.state.Status()
			cmds := r.state.Transition(in)
			if after := r.state.Status(); !before.Equal(after) {
				r.dispatchEvent(peer.EventStatusChanged{Old: before, New: after})
			}
			if event, ok := peer.ProjectEvent(in); ok {
				r.dispatchEvent(event)
			}
			if gossip, ok := in.(peer.ProtocolInput); ok && gossip.Event.Kind == peer.ProtocolGossipPut {
				r.dispatchEvent(peer.EventGossipFetched{
					Provider: gossip.Event.Provider,
					Gossip:   gossip.Event.Gossip,
					Result:   gossip.Event.Result,
				})
			}
			for _, cmd := range cmds {
				r.dispatch(cmd)
			}
		}
	}
}

func (r *Runtime) dispatchEvent(event peer.Event) {
	if r.events == nil {
		return
	}
	r.events.Emit(event)
}

// dispatch executes a single command. Every case is independent of the
// others in the same batch; a failure in one is logged and does not abort
// the remaining commands, matching spec.md §7's "the core does not retry".
func (r *Runtime) dispatch(cmd peer.Command) {
	switch c := cmd.(type) {
	case peer.CmdAnnounce:
		if r.announcer == nil {
			return
		}
		updates, err := r.announcer.Announce(r.ctx)
		if err != nil {
			r.logger.Warn("announce failed", "error", err)
			return
		}
		r.Submit(peer.AnnounceSucceeded{Updates: updates})
	case peer.CmdSyncPeer:
		if r.syncer == nil {
			return
		}
		r.Submit(peer.SyncStarted{Peer: c.Peer})
		if err := r.syncer.SyncPeer(r.ctx, c.Peer); err != nil {
			r.Submit(peer.SyncFailed{Peer: c.Peer})
			return
		}
		r.Submit(peer.SyncSucceeded{Peer: c.Peer})
	case peer.CmdStartSyncTimeout:
		r.wg.Add(1)
		go r.syncTimeout(c.Period)
	case peer.CmdStats:
		if r.stats == nil {
			return
		}
		stats, peers, err := r.stats.Stats(r.ctx)
		if err != nil {
			r.logger.Warn("stats fetch failed", "error", err)
			return
		}
		r.Submit(peer.StatsValues{ConnectedPeers: peers, Stats: stats})
	case peer.CmdControlRespond:
		c.Response.Respond()
	case peer.CmdEmitEvent:
		r.dispatchEvent(c.Event)
	case peer.CmdPersistWaitingRoom:
		if r.store == nil {
			return
		}
		data, err := json.Marshal(c.Snapshot)
		if err != nil {
			r.logger.Warn("marshal waiting room snapshot failed", "error", err)
			return
		}
		if err := r.store.Persist(r.ctx, data); err != nil {
			r.logger.Warn("persist waiting room failed", "error", err)
		}
	case peer.CmdRequestQuery:
		if r.requests == nil {
			return
		}
		if err := r.requests.Query(r.ctx, c.URN); err != nil {
			r.logger.Warn("request query failed", "urn", c.URN, "error", err)
			return
		}
		r.Submit(peer.RequestQueried{URN: c.URN})
	case peer.CmdRequestClone:
		if r.requests == nil {
			return
		}
		r.Submit(peer.RequestCloning{URN: c.URN, Peer: c.Peer})
		if err := r.requests.Clone(r.ctx, c.URN, c.Peer); err != nil {
			r.Submit(peer.RequestFailed{URN: c.URN, Peer: c.Peer, Reason: err.Error()})
			return
		}
		r.Submit(peer.RequestCloned{URN: c.URN, Peer: c.Peer})
	case peer.CmdRequestTimedOut:
		r.Submit(peer.RequestTimedOut{URN: c.URN})
	}
}

func (r *Runtime) syncTimeout(period time.Duration) {
	defer r.wg.Done()
	timer := time.NewTimer(period)
	defer timer.Stop()
	select {
	case <-r.ctx.Done():
	case <-timer.C:
		r.Submit(peer.TimeoutSyncPeriod{})
	}
}
