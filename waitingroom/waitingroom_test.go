package waitingroom

import (
	"errors"
	"testing"
	"time"

	"github.com/bzz/radicle-peer/identity"
)

func testURN(b byte) identity.URN {
	var u identity.URN
	u[0] = b
	return u
}

func testPeer(b byte) identity.PeerID {
	var p identity.PeerID
	p[0] = b
	return p
}

func newRoom(cfg Config) *WaitingRoom {
	return New(cfg, nil, nil)
}

func TestRequestIsIdempotent(t *testing.T) {
	w := newRoom(DefaultConfig())
	urn := testURN(1)
	now := time.Now()

	first := w.Request(urn, now)
	second := w.Request(urn, now.Add(time.Minute))

	if first != second {
		t.Error("Request should return the existing entry on repeat calls")
	}
	if w.Len() != 1 {
		t.Errorf("Len() = %d, want 1", w.Len())
	}
}

func TestOnlyOneEntryPerURN(t *testing.T) {
	w := newRoom(DefaultConfig())
	urn := testURN(1)
	now := time.Now()

	w.Request(urn, now)
	w.Remove(urn)
	w.Request(urn, now)
	w.Request(urn, now)

	if w.Len() != 1 {
		t.Errorf("Len() = %d, want 1", w.Len())
	}
}

func TestQueriedThenFoundThenClone(t *testing.T) {
	w := newRoom(DefaultConfig())
	urn := testURN(1)
	peer := testPeer(2)
	now := time.Now()

	w.Request(urn, now)
	if err := w.Queried(urn, now); err != nil {
		t.Fatalf("Queried: %v", err)
	}
	if got := w.Get(urn).State; got != Requested {
		t.Fatalf("state after Queried = %v, want Requested", got)
	}

	if err := w.Found(urn, peer, now); err != nil {
		t.Fatalf("Found: %v", err)
	}
	if got := w.Get(urn).State; got != Found {
		t.Fatalf("state after Found = %v, want Found", got)
	}

	gotURN, gotPeer, ok := w.NextClone()
	if !ok || gotURN != urn || gotPeer != peer {
		t.Fatalf("NextClone = (%v, %v, %v), want (%v, %v, true)", gotURN, gotPeer, ok, urn, peer)
	}

	if err := w.Cloning(urn, peer, now); err != nil {
		t.Fatalf("Cloning: %v", err)
	}
	if err := w.Cloned(urn, peer, now); err != nil {
		t.Fatalf("Cloned: %v", err)
	}
	if got := w.Get(urn).State; got != Cloned {
		t.Fatalf("state after Cloned = %v, want Cloned", got)
	}
}

func TestCloningFailedReturnsToFoundWithRemainingCandidates(t *testing.T) {
	w := newRoom(DefaultConfig())
	urn := testURN(1)
	peerA, peerB := testPeer(2), testPeer(3)
	now := time.Now()

	w.Request(urn, now)
	w.Queried(urn, now)
	w.Found(urn, peerA, now)
	w.Found(urn, peerB, now)
	w.Cloning(urn, peerA, now)

	if err := w.CloningFailed(urn, peerA, now); err != nil {
		t.Fatalf("CloningFailed: %v", err)
	}
	if got := w.Get(urn).State; got != Found {
		t.Fatalf("state after CloningFailed with remaining candidate = %v, want Found", got)
	}

	gotURN, gotPeer, ok := w.NextClone()
	if !ok || gotURN != urn || gotPeer != peerB {
		t.Fatalf("NextClone = (%v, %v, %v), want (%v, %v, true)", gotURN, gotPeer, ok, urn, peerB)
	}
}

func TestCloningFailedReturnsToRequestedWithoutCandidates(t *testing.T) {
	w := newRoom(DefaultConfig())
	urn := testURN(1)
	peer := testPeer(2)
	now := time.Now()

	w.Request(urn, now)
	w.Queried(urn, now)
	w.Found(urn, peer, now)
	w.Cloning(urn, peer, now)

	if err := w.CloningFailed(urn, peer, now); err != nil {
		t.Fatalf("CloningFailed: %v", err)
	}
	if got := w.Get(urn).State; got != Requested {
		t.Fatalf("state = %v, want Requested", got)
	}
}

func TestCancelRemovesFromNextQuery(t *testing.T) {
	w := newRoom(DefaultConfig())
	urn := testURN(1)
	now := time.Now()

	w.Request(urn, now)
	if err := w.Canceled(urn, now); err != nil {
		t.Fatalf("Canceled: %v", err)
	}
	if got := w.Get(urn).State; got != Cancelled {
		t.Fatalf("state = %v, want Cancelled", got)
	}

	w.Remove(urn)
	if w.Get(urn) != nil {
		t.Error("expected entry removed")
	}
}

func TestQueriedTimesOutAfterMaxQueries(t *testing.T) {
	cfg := Config{QueryInterval: time.Second, RetryInterval: time.Second, MaxQueries: 2, MaxClones: 2}
	w := newRoom(cfg)
	urn := testURN(1)
	now := time.Now()

	w.Request(urn, now)
	if err := w.Queried(urn, now); err != nil {
		t.Fatalf("first Queried: %v", err)
	}
	if err := w.Queried(urn, now); err != nil {
		t.Fatalf("second Queried: %v", err)
	}
	err := w.Queried(urn, now)
	if !errors.Is(err, ErrTimeOut) {
		t.Fatalf("third Queried = %v, want ErrTimeOut", err)
	}
	if got := w.Get(urn).State; got != TimedOut {
		t.Fatalf("state = %v, want TimedOut", got)
	}
}

func TestInvalidTransitionOnTerminalEntry(t *testing.T) {
	w := newRoom(DefaultConfig())
	urn := testURN(1)
	peer := testPeer(2)
	now := time.Now()

	w.Request(urn, now)
	w.Canceled(urn, now)

	err := w.Cloning(urn, peer, now)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Cloning on cancelled entry = %v, want ErrInvalidTransition", err)
	}
}

func TestNextQueryRespectsInterval(t *testing.T) {
	cfg := Config{QueryInterval: 10 * time.Second, RetryInterval: 10 * time.Second, MaxQueries: 5, MaxClones: 5}
	w := newRoom(cfg)
	urn := testURN(1)
	now := time.Now()

	w.Request(urn, now)
	if _, ok := w.NextQuery(now); !ok {
		t.Fatal("expected a fresh request to be immediately eligible")
	}
	w.Queried(urn, now)

	if _, ok := w.NextQuery(now.Add(time.Second)); ok {
		t.Error("expected NextQuery to withhold urn before the interval elapses")
	}
	if _, ok := w.NextQuery(now.Add(11 * time.Second)); !ok {
		t.Error("expected NextQuery to surface urn once the interval elapses")
	}
}

func TestNextQueryTieBreaksByURNOrder(t *testing.T) {
	cfg := DefaultConfig()
	w := newRoom(cfg)
	now := time.Now()

	urnHigh, urnLow := testURN(9), testURN(1)
	w.Request(urnHigh, now)
	w.Request(urnLow, now)

	got, ok := w.NextQuery(now)
	if !ok || got != urnLow {
		t.Fatalf("NextQuery = (%v, %v), want (%v, true) on URN-order tie-break", got, ok, urnLow)
	}
}

func TestNotFoundOperationsOnMissingURN(t *testing.T) {
	w := newRoom(DefaultConfig())
	urn := testURN(1)
	now := time.Now()

	if err := w.Queried(urn, now); !errors.Is(err, ErrNotFound) {
		t.Errorf("Queried on missing urn = %v, want ErrNotFound", err)
	}
	if err := w.Found(urn, testPeer(2), now); !errors.Is(err, ErrNotFound) {
		t.Errorf("Found on missing urn = %v, want ErrNotFound", err)
	}
}

func TestIterIsDeterministicSnapshot(t *testing.T) {
	w := newRoom(DefaultConfig())
	now := time.Now()
	w.Request(testURN(1), now)
	w.Request(testURN(2), now)

	first := w.Iter()
	w.Found(testURN(1), testPeer(5), now)
	second := w.Iter()

	if len(first[0].Candidates()) != 0 {
		t.Error("snapshot taken before Found should not observe the later mutation")
	}
	if len(second[0].Candidates()) != 1 {
		t.Error("snapshot taken after Found should observe the mutation")
	}
}
