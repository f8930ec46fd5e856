// Package channel provides the in-memory realizations of the engine's
// abstract transport: a request Ledger for the discrete-event driver and a
// synchronous Network for the agent-per-member runtime.
package channel

import (
	"github.com/cockroachdb/errors"

	"github.com/aldermoor/swim/internal/detector"
	"github.com/aldermoor/swim/internal/member"
)

// ReqID uniquely keys a request record for the life of a run.
type ReqID uint64

// Exchange is the record of one sent probe and its eventual terminal
// outcome. Once failed, or acked and processed, a record is never reused;
// a later probe to the same destination creates a fresh record.
type Exchange struct {
	id        ReqID
	from, to  member.ID
	probe     detector.Probe
	ack       detector.Ack
	answered  bool
	failed    bool
	processed bool
}

func (e *Exchange) ID() ReqID          { return e.id }
func (e *Exchange) From() member.ID    { return e.from }
func (e *Exchange) To() member.ID      { return e.to }
func (e *Exchange) Probe() detector.Probe { return e.probe }
func (e *Exchange) Ack() detector.Ack  { return e.ack }
func (e *Exchange) Answered() bool     { return e.answered }
func (e *Exchange) Failed() bool       { return e.failed }
func (e *Exchange) Processed() bool    { return e.processed }
func (e *Exchange) Unanswered() bool   { return !e.answered && !e.failed }

// Ledger models the reliable request/response channel: every request is
// recorded exactly once, answered at most once, and resolved by exactly one
// of reply-then-process or failure. Double answers and replies to terminal
// records are invariant violations surfaced as errors.
type Ledger struct {
	next      ReqID
	exchanges []*Exchange
	byID      map[ReqID]*Exchange
}

func NewLedger() *Ledger {
	return &Ledger{next: 1, byID: make(map[ReqID]*Exchange)}
}

// SendRequest records a probe from source to dest. Re-sending while an
// identical request is still in flight is a no-op returning the open
// record, matching the idempotence of the transport contract.
func (l *Ledger) SendRequest(from, to member.ID, p detector.Probe) ReqID {
	for _, e := range l.exchanges {
		if e.from == from && e.to == to && e.Unanswered() {
			return e.id
		}
	}
	e := &Exchange{id: l.next, from: from, to: to, probe: p}
	l.next++
	l.exchanges = append(l.exchanges, e)
	l.byID[e.id] = e
	return e.id
}

// SendReply answers an open request.
func (l *Ledger) SendReply(id ReqID, a detector.Ack) error {
	e, ok := l.byID[id]
	if !ok {
		return errors.Newf("channel: reply to unknown request %d", id)
	}
	if e.answered {
		return errors.Newf("channel: request %d answered twice", id)
	}
	if e.failed {
		return errors.Newf("channel: reply to failed request %d", id)
	}
	e.ack, e.answered = a, true
	return nil
}

// Unanswered reports whether the request is still awaiting a reply.
func (l *Ledger) Unanswered(id ReqID) bool {
	e, ok := l.byID[id]
	return ok && e.Unanswered()
}

// Fail terminally marks an unanswered request as failed.
func (l *Ledger) Fail(id ReqID) error {
	e, ok := l.byID[id]
	if !ok {
		return errors.Newf("channel: failure of unknown request %d", id)
	}
	if e.answered || e.failed {
		return errors.Newf("channel: request %d already resolved", id)
	}
	e.failed = true
	return nil
}

// MarkProcessed records that the source consumed the reply, enforcing
// at-most-once processing.
func (l *Ledger) MarkProcessed(id ReqID) error {
	e, ok := l.byID[id]
	if !ok {
		return errors.Newf("channel: processing of unknown request %d", id)
	}
	if !e.answered {
		return errors.Newf("channel: request %d processed before being answered", id)
	}
	if e.processed {
		return errors.Newf("channel: request %d processed twice", id)
	}
	e.processed = true
	return nil
}

// Exchanges returns every record in creation order. The driver scans this
// to enumerate receivable, processable and failable requests.
func (l *Ledger) Exchanges() []*Exchange { return l.exchanges }
