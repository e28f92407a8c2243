package peer

import (
	"testing"
	"time"

	"github.com/bzz/radicle-peer/clock"
	"github.com/bzz/radicle-peer/identity"
	"github.com/bzz/radicle-peer/waitingroom"
)

func newTestState(t *testing.T, cfg Config, status Status, clk *clock.Fake) *RunState {
	t.Helper()
	r := New(cfg, clk, nil)
	r.status = status
	r.statusSince = clk.Now()
	return r
}

func testPeer(b byte) identity.PeerID {
	var p identity.PeerID
	p[0] = b
	return p
}

func testURN(b byte) identity.URN {
	var u identity.URN
	u[0] = b
	return u
}

// Scenario 1: Listen transitions to Started.
func TestTransitionToStartedOnListen(t *testing.T) {
	clk := clock.NewFake(time.Now())
	r := newTestState(t, DefaultConfig(), Stopped(), clk)

	cmds := r.Transition(ProtocolInput{Event: ProtocolEvent{Kind: ProtocolEndpointUp}})

	if len(cmds) != 0 {
		t.Errorf("expected no commands, got %v", cmds)
	}
	if r.Status().Kind != StatusStarted {
		t.Errorf("status = %v, want Started", r.Status().Kind)
	}
}

// Scenario 2: sync disabled goes Online on first connection.
func TestSyncDisabledGoesOnlineOnFirstConnection(t *testing.T) {
	clk := clock.NewFake(time.Now())
	cfg := DefaultConfig()
	cfg.Sync.OnStartup = false
	r := newTestState(t, cfg, Started(), clk)

	cmds := r.Transition(StatsValues{
		ConnectedPeers: []identity.PeerID{testPeer(1)},
		Stats:          Stats{ConnectedPeers: 1},
	})

	if len(cmds) != 0 {
		t.Errorf("expected no commands, got %v", cmds)
	}
	if r.Status().Kind != StatusOnline || r.Status().Connected != 1 {
		t.Errorf("status = %+v, want Online{connected:1}", r.Status())
	}
}

// Scenario 3: sync completes at max_peers.
func TestSyncCompletesAtMaxPeers(t *testing.T) {
	clk := clock.NewFake(time.Now())
	cfg := DefaultConfig()
	cfg.Sync.MaxPeers = 2
	status := NewSyncing()
	other := testPeer(1)
	status.Succeeded[other] = struct{}{}
	last := testPeer(2)
	status.Syncs[last] = struct{}{}
	r := newTestState(t, cfg, status, clk)
	r.stats.ConnectedPeers = 5

	r.Transition(SyncSucceeded{Peer: last})

	if r.Status().Kind != StatusOnline || r.Status().Connected != 5 {
		t.Errorf("status = %+v, want Online{connected:5}", r.Status())
	}
}

// Scenario 4: sync times out.
func TestSyncTimesOut(t *testing.T) {
	clk := clock.NewFake(time.Now())
	r := newTestState(t, DefaultConfig(), NewSyncing(), clk)
	r.connectedPeers.Connected(testPeer(1))
	r.connectedPeers.Connected(testPeer(2))
	r.connectedPeers.Connected(testPeer(3))

	r.Transition(TimeoutSyncPeriod{})

	if r.Status().Kind != StatusOnline || r.Status().Connected != 3 {
		t.Errorf("status = %+v, want Online{connected:3}", r.Status())
	}
}

// Scenario 5: query then clone on found.
func TestQueryThenCloneOnFound(t *testing.T) {
	clk := clock.NewFake(time.Now())
	r := newTestState(t, DefaultConfig(), Online(0), clk)
	urn := testURN(1)
	peer := testPeer(2)
	sink := NewSink[*waitingroom.Request]()

	r.Transition(ControlCreateRequest{URN: urn, Timestamp: clk.Now(), Sink: sink})

	cmds := r.Transition(RequestQueried{URN: urn})
	if !containsPersist(cmds) {
		t.Fatalf("expected PersistWaitingRoom command, got %v", cmds)
	}

	cmds = r.Transition(ProtocolInput{Event: ProtocolEvent{
		Kind:     ProtocolGossipPut,
		Gossip:   GossipPayload{URN: urn},
		Provider: PeerInfo{PeerID: peer},
	}})
	if len(cmds) != 0 {
		t.Fatalf("expected no commands on found, got %v", cmds)
	}

	cmds = r.Transition(RequestTick{})
	found := false
	for _, c := range cmds {
		if clone, ok := c.(CmdRequestClone); ok && clone.URN == urn && clone.Peer == peer {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Request.Clone(%v, %v) among %v", urn, peer, cmds)
	}
}

func containsPersist(cmds []Command) bool {
	for _, c := range cmds {
		if _, ok := c.(CmdPersistWaitingRoom); ok {
			return true
		}
	}
	return false
}

// Scenario 6: announce only when online-ish.
func TestAnnounceOnlyWhenOnlineIsh(t *testing.T) {
	clk := clock.NewFake(time.Now())

	r := newTestState(t, DefaultConfig(), Online(0), clk)
	cmds := r.Transition(AnnounceTick{})
	if len(cmds) != 1 {
		t.Fatalf("expected one command, got %v", cmds)
	}
	if _, ok := cmds[0].(CmdAnnounce); !ok {
		t.Errorf("expected CmdAnnounce, got %T", cmds[0])
	}

	r2 := newTestState(t, DefaultConfig(), Offline(), clk)
	cmds2 := r2.Transition(AnnounceTick{})
	if len(cmds2) != 0 {
		t.Errorf("expected no commands while offline, got %v", cmds2)
	}
}

func TestEndpointDownAlwaysStops(t *testing.T) {
	clk := clock.NewFake(time.Now())
	r := newTestState(t, DefaultConfig(), Online(3), clk)

	r.Transition(ProtocolInput{Event: ProtocolEvent{Kind: ProtocolEndpointDown}})

	if r.Status().Kind != StatusStopped {
		t.Errorf("status = %v, want Stopped", r.Status().Kind)
	}
}

func TestConnectedPeersSurviveDuplicateConnectThenSingleDisconnect(t *testing.T) {
	clk := clock.NewFake(time.Now())
	r := newTestState(t, DefaultConfig(), Online(0), clk)
	p := testPeer(1)

	r.Transition(ProtocolInput{Event: ProtocolEvent{Kind: ProtocolConnected, Peer: p}})
	r.Transition(ProtocolInput{Event: ProtocolEvent{Kind: ProtocolConnected, Peer: p}})
	r.Transition(ProtocolInput{Event: ProtocolEvent{Kind: ProtocolDisconnecting, Peer: p}})

	if !r.connectedPeers.Has(p) {
		t.Error("peer should remain connected after one disconnect following two connects")
	}
}

func TestCreateRequestIsIdempotentThroughControl(t *testing.T) {
	clk := clock.NewFake(time.Now())
	r := newTestState(t, DefaultConfig(), Online(0), clk)
	urn := testURN(3)

	sinkA := NewSink[*waitingroom.Request]()
	sinkB := NewSink[*waitingroom.Request]()

	r.Transition(ControlCreateRequest{URN: urn, Timestamp: clk.Now(), Sink: sinkA})
	r.Transition(ControlCreateRequest{URN: urn, Timestamp: clk.Now().Add(time.Minute), Sink: sinkB})

	if r.waitingRoom.Len() != 1 {
		t.Errorf("waiting room len = %d, want 1", r.waitingRoom.Len())
	}
}

func TestStatsValuesIsIdempotent(t *testing.T) {
	clk := clock.NewFake(time.Now())
	r := newTestState(t, DefaultConfig(), Offline(), clk)

	in := StatsValues{ConnectedPeers: []identity.PeerID{testPeer(1)}, Stats: Stats{ConnectedPeers: 1}}
	r.Transition(in)
	first := r.Status()
	r.Transition(in)
	second := r.Status()

	if !first.Equal(second) {
		t.Errorf("status diverged across repeated Stats.Values: %+v vs %+v", first, second)
	}
}

func TestTransitionIsDeterministicGivenFixedClock(t *testing.T) {
	clk := clock.NewFake(time.Now())
	cfg := DefaultConfig()
	urn := testURN(7)

	r1 := newTestState(t, cfg, Online(0), clk)
	r2 := newTestState(t, cfg, Online(0), clk)

	in := ControlCreateRequest{URN: urn, Timestamp: clk.Now(), Sink: NewSink[*waitingroom.Request]()}
	cmds1 := r1.Transition(in)
	cmds2 := r2.Transition(in)

	if len(cmds1) != len(cmds2) {
		t.Fatalf("command count diverged: %d vs %d", len(cmds1), len(cmds2))
	}
	if r1.Status().Kind != r2.Status().Kind {
		t.Fatalf("status diverged: %v vs %v", r1.Status().Kind, r2.Status().Kind)
	}
}
