package peer

import "github.com/bzz/radicle-peer/waitingroom"

// Sink is a single-producer, single-consumer completion handle for a
// control response (spec.md §9 "Sink ownership for control responses").
// The reducer consumes it by value inside a Respond command; Respond never
// blocks, so attempting to respond after the receiver has stopped listening
// degrades silently rather than wedging the reducer.
type Sink[T any] chan T

// NewSink returns a sink with room for exactly the one response it will
// ever carry.
func NewSink[T any]() Sink[T] {
	return make(Sink[T], 1)
}

// Respond delivers v without blocking. If nothing is listening the value is
// simply dropped.
func (s Sink[T]) Respond(v T) {
	select {
	case s <- v:
	default:
	}
}

// CancelOutcome is the result of canceling a request: the removed entry (if
// any existed and the cancellation succeeded) and any error the waiting
// room reported.
type CancelOutcome struct {
	Removed *waitingroom.Request
	Err     error
}

// ControlResponse is the payload of a Control::Respond command; exactly one
// concrete type per control input family. Respond delivers the payload to
// its own sink, letting the dispatcher treat every variant uniformly.
type ControlResponse interface {
	isControlResponse()
	Respond()
}

type RespondStartSearch struct {
	Sink    Sink[*waitingroom.Request]
	Request *waitingroom.Request
}

func (RespondStartSearch) isControlResponse() {}
func (r RespondStartSearch) Respond()         { r.Sink.Respond(r.Request) }

type RespondCancelSearch struct {
	Sink    Sink[CancelOutcome]
	Outcome CancelOutcome
}

func (RespondCancelSearch) isControlResponse() {}
func (r RespondCancelSearch) Respond()         { r.Sink.Respond(r.Outcome) }

type RespondGetSearch struct {
	Sink    Sink[*waitingroom.Request]
	Request *waitingroom.Request
}

func (RespondGetSearch) isControlResponse() {}
func (r RespondGetSearch) Respond()         { r.Sink.Respond(r.Request) }

type RespondListSearches struct {
	Sink     Sink[[]*waitingroom.Request]
	Requests []*waitingroom.Request
}

func (RespondListSearches) isControlResponse() {}
func (r RespondListSearches) Respond()         { r.Sink.Respond(r.Requests) }

type RespondCurrentStatus struct {
	Sink   Sink[Status]
	Status Status
}

func (RespondCurrentStatus) isControlResponse() {}
func (r RespondCurrentStatus) Respond()         { r.Sink.Respond(r.Status) }
