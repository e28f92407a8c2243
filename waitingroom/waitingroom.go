// Package waitingroom implements the per-URN request tracker (spec.md §4.2):
// lifecycle state, candidate peers, timeouts, and the next-action selection
// the RunState reducer drives Request::Tick with.
package waitingroom

import (
	"log/slog"
	"time"

	"github.com/bzz/radicle-peer/clock"
	"github.com/bzz/radicle-peer/identity"
)

// WaitingRoom tracks one entry per URN. All operations are total functions
// of state and time; given identical input sequences and timestamps,
// NextQuery and NextClone return identical results across runs (spec.md §4.2
// "Determinism").
type WaitingRoom struct {
	cfg    Config
	clock  clock.Clock
	logger *slog.Logger

	entries map[identity.URN]*Request
	order   []identity.URN // insertion order, used for deterministic iteration
}

// New creates an empty waiting room.
func New(cfg Config, clk clock.Clock, logger *slog.Logger) *WaitingRoom {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &WaitingRoom{
		cfg:     cfg,
		clock:   clk,
		logger:  logger,
		entries: make(map[identity.URN]*Request),
	}
}

func (w *WaitingRoom) insert(urn identity.URN, now time.Time) *Request {
	r := newRequest(urn, now)
	w.entries[urn] = r
	w.order = append(w.order, urn)
	return r
}

// Request inserts a Created entry for urn if absent, otherwise returns the
// existing entry unchanged ("idempotent", spec.md §4.2).
func (w *WaitingRoom) Request(urn identity.URN, now time.Time) *Request {
	if r, ok := w.entries[urn]; ok {
		return r
	}
	return w.insert(urn, now)
}

// Get returns the entry for urn, or nil if absent.
func (w *WaitingRoom) Get(urn identity.URN) *Request {
	return w.entries[urn]
}

func (w *WaitingRoom) age(r *Request, now time.Time) time.Duration {
	return now.Sub(r.Timestamps.Created)
}

func (w *WaitingRoom) timedOut(r *Request, now time.Time) bool {
	if w.age(r, now) > w.cfg.ceiling() {
		return true
	}
	return r.Attempts.Queries > w.cfg.MaxQueries || r.Attempts.Clones > w.cfg.MaxClones
}

func (w *WaitingRoom) timeOut(r *Request, now time.Time) error {
	r.State = TimedOut
	r.Timestamps.Terminated = now
	w.logger.Debug("waiting room entry timed out", "urn", r.URN, "age", w.age(r, now))
	return ErrTimeOut
}

// Queried records a query attempt. State must be Created or Requested.
func (w *WaitingRoom) Queried(urn identity.URN, now time.Time) error {
	r, ok := w.entries[urn]
	if !ok {
		return ErrNotFound
	}
	if r.State != Created && r.State != Requested {
		w.logger.Warn("queried: invalid transition", "urn", urn, "state", r.State)
		return ErrInvalidTransition
	}

	r.Attempts.Queries++
	r.Timestamps.LastQueried = now
	if w.timedOut(r, now) {
		return w.timeOut(r, now)
	}
	r.State = Requested
	return nil
}

// Found records that peer advertises urn, adding it to the candidate set.
// If the entry was Requested it moves to Found.
func (w *WaitingRoom) Found(urn identity.URN, peer identity.PeerID, now time.Time) error {
	r, ok := w.entries[urn]
	if !ok {
		return ErrNotFound
	}
	if r.State.Terminal() || r.State == Cloning {
		w.logger.Warn("found: invalid transition", "urn", urn, "state", r.State)
		return ErrInvalidTransition
	}

	r.addCandidate(peer)
	if w.timedOut(r, now) {
		return w.timeOut(r, now)
	}
	if r.State == Requested {
		r.State = Found
	}
	return nil
}

// Cloning records that a clone of urn from peer has started. State must be
// Found.
func (w *WaitingRoom) Cloning(urn identity.URN, peer identity.PeerID, now time.Time) error {
	r, ok := w.entries[urn]
	if !ok {
		return ErrNotFound
	}
	if r.State != Found {
		w.logger.Warn("cloning: invalid transition", "urn", urn, "state", r.State)
		return ErrInvalidTransition
	}

	r.attempted[peer] = struct{}{}
	r.Attempts.Clones++
	r.Timestamps.LastCloning = now
	if w.timedOut(r, now) {
		return w.timeOut(r, now)
	}
	r.State = Cloning
	return nil
}

// Cloned marks urn as successfully cloned from peer; terminal.
func (w *WaitingRoom) Cloned(urn identity.URN, peer identity.PeerID, now time.Time) error {
	r, ok := w.entries[urn]
	if !ok {
		return ErrNotFound
	}
	if r.State != Cloning {
		w.logger.Warn("cloned: invalid transition", "urn", urn, "state", r.State)
		return ErrInvalidTransition
	}

	r.State = Cloned
	r.Timestamps.Terminated = now
	return nil
}

// CloningFailed records a failed clone attempt from peer. Moves back to
// Found if other candidates remain, otherwise back to Requested.
func (w *WaitingRoom) CloningFailed(urn identity.URN, peer identity.PeerID, now time.Time) error {
	r, ok := w.entries[urn]
	if !ok {
		return ErrNotFound
	}
	if r.State != Cloning {
		w.logger.Warn("cloningFailed: invalid transition", "urn", urn, "state", r.State)
		return ErrInvalidTransition
	}

	r.attempted[peer] = struct{}{}
	if w.timedOut(r, now) {
		return w.timeOut(r, now)
	}
	if _, ok := r.unattemptedCandidate(); ok {
		r.State = Found
	} else {
		r.State = Requested
	}
	return nil
}

// Canceled marks urn as Cancelled; terminal.
func (w *WaitingRoom) Canceled(urn identity.URN, now time.Time) error {
	r, ok := w.entries[urn]
	if !ok {
		return ErrNotFound
	}
	if r.State.Terminal() {
		w.logger.Warn("canceled: invalid transition", "urn", urn, "state", r.State)
		return ErrInvalidTransition
	}

	r.State = Cancelled
	r.Timestamps.Terminated = now
	return nil
}

// Remove deletes the entry for urn, if any.
func (w *WaitingRoom) Remove(urn identity.URN) {
	if _, ok := w.entries[urn]; !ok {
		return
	}
	delete(w.entries, urn)
	for i, u := range w.order {
		if u == urn {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

// NextQuery returns the URN eligible for re-query: state in {Created,
// Requested}, and either never queried or elapsed >= QueryInterval since
// LastQueried. Chosen by oldest LastQueried first (Created stands in for an
// entry never queried), ties broken by URN order.
func (w *WaitingRoom) NextQuery(now time.Time) (identity.URN, bool) {
	var best identity.URN
	var bestEntry *Request
	found := false

	for _, urn := range w.order {
		r := w.entries[urn]
		if r.State != Created && r.State != Requested {
			continue
		}
		reference := r.Timestamps.LastQueried
		if reference.IsZero() {
			reference = r.Timestamps.Created
		} else if now.Sub(reference) < w.cfg.QueryInterval {
			continue
		}
		if !found {
			best, bestEntry, found = urn, r, true
			continue
		}
		bestRef := bestEntry.Timestamps.LastQueried
		if bestRef.IsZero() {
			bestRef = bestEntry.Timestamps.Created
		}
		switch {
		case reference.Before(bestRef):
			best, bestEntry = urn, r
		case reference.Equal(bestRef) && urn.Less(best):
			best, bestEntry = urn, r
		}
	}

	return best, found
}

// NextClone returns a (URN, PeerID) pair where state = Found and there
// exists a candidate not yet attempted; entries are considered in
// insertion order and the peer is the first unattempted candidate in
// discovery order.
func (w *WaitingRoom) NextClone() (identity.URN, identity.PeerID, bool) {
	for _, urn := range w.order {
		r := w.entries[urn]
		if r.State != Found {
			continue
		}
		if peer, ok := r.unattemptedCandidate(); ok {
			return urn, peer, true
		}
	}
	return identity.URN{}, identity.PeerID{}, false
}

// Iter returns a deep-copied, deterministically ordered snapshot of every
// entry.
func (w *WaitingRoom) Iter() []*Request {
	out := make([]*Request, 0, len(w.order))
	for _, urn := range w.order {
		out = append(out, w.entries[urn].clone())
	}
	return out
}

// Len reports the number of tracked entries.
func (w *WaitingRoom) Len() int { return len(w.entries) }
