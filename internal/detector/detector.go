// Package detector implements the per-member protocol engine: the five
// atomic actions (probe, receive-probe, receive-ack, probe-failure, expiry)
// that mutate a member's views and gossip buffer, and the fairness policy
// that chooses probe targets.
//
// A Detector owns its view store and buffer exclusively. Drivers decide
// when an action is enabled and call exactly one action at a time; every
// method runs to completion before the next fires.
package detector

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/aldermoor/swim/internal/gossip"
	"github.com/aldermoor/swim/internal/member"
	"github.com/aldermoor/swim/internal/stats"
	"github.com/aldermoor/swim/internal/view"
)

// Detector is the protocol engine for a single member.
type Detector struct {
	Config
	id          member.ID
	incarnation member.Incarnation
	views       *view.Store
	buffer      *gossip.Buffer
	round       int
	sched       *scheduler
	collector   *stats.Collector
}

// New seeds a detector for id among peers. Every peer starts believed
// Alive at incarnation 1 with a full countdown; the member's own
// incarnation starts at 1.
func New(id member.ID, peers []member.ID, cfg Config, collector *stats.Collector) *Detector {
	cfg = cfg.Merge(DefaultConfig())
	return &Detector{
		Config:      cfg,
		id:          id,
		incarnation: 1,
		views:       view.New(id, peers, cfg.SuspicionTimeout),
		buffer:      gossip.NewBuffer(cfg.DisseminationLimit),
		sched:       newScheduler(),
		collector:   collector,
	}
}

func (d *Detector) ID() member.ID                   { return d.id }
func (d *Detector) Incarnation() member.Incarnation { return d.incarnation }
func (d *Detector) Round() int                      { return d.round }
func (d *Detector) Views() *view.Store              { return d.views }
func (d *Detector) Buffer() *gossip.Buffer          { return d.buffer }
func (d *Detector) Outstanding() bool               { return d.sched.outstanding }
func (d *Detector) Attempts(dest member.ID) int     { return d.sched.attempts[dest] }

// Expirable returns the peers this member observes as Suspect with an
// exhausted countdown, in ascending order. While any exist, expiry takes
// priority over probing.
func (d *Detector) Expirable() []member.ID {
	var out []member.ID
	for _, peer := range d.views.Peers() {
		v, _ := d.views.Get(peer)
		if v.State == member.Suspect && v.Countdown <= 0 {
			out = append(out, peer)
		}
	}
	return out
}

// Expire declares a suspect peer dead. Purely local: no response drives it
// and no fairness constraint gates it.
func (d *Detector) Expire(peer member.ID) error {
	v, ok := d.views.Get(peer)
	if !ok {
		return errors.Newf("detector: expire of unknown member %d", peer)
	}
	if v.State != member.Suspect || v.Countdown > 0 {
		return errors.Newf("detector: member %d is not expirable", peer)
	}
	v = member.PeerView{Incarnation: v.Incarnation, State: member.Dead, Countdown: d.SuspicionTimeout}
	d.views.Set(peer, v)
	d.buffer.Put(gossip.Item{Target: peer, Incarnation: v.Incarnation, State: member.Dead})
	d.collector.CountExpiry()
	d.Logger.Debug("expire",
		zap.Uint16("observer", uint16(d.id)),
		zap.Uint16("peer", uint16(peer)),
		zap.Uint32("incarnation", uint32(v.Incarnation)),
	)
	return nil
}

// Targets returns the destinations this member may probe next under the
// fairness policy: no request outstanding, the source's round not ahead of
// minLiveRound (the lowest round among live members), and only valid
// targets holding the lowest-or-tied attempt count.
func (d *Detector) Targets(minLiveRound int) []member.ID {
	if d.round > minLiveRound {
		return nil
	}
	return d.sched.targets(d.views)
}

// BuildProbe assembles the probe for dest, charges the selected gossip
// items with a send, and marks the request pending. Views and the round
// counter are untouched on send.
func (d *Detector) BuildProbe(dest member.ID) (Probe, error) {
	if d.sched.outstanding {
		return Probe{}, errors.Newf("detector: member %d already has a probe outstanding", d.id)
	}
	v, ok := d.views.Get(dest)
	if !ok {
		return Probe{}, errors.Newf("detector: probe of unknown member %d", dest)
	}
	sel := d.buffer.Select(nil, d.PiggybackCapacity)
	d.buffer.MarkSent(sel)
	d.sched.outstanding = true
	d.sched.attempts[dest]++
	d.collector.CountProbe()
	d.collector.CountGossip(d.round, len(sel))
	d.Logger.Debug("probe",
		zap.Uint16("source", uint16(d.id)),
		zap.Uint16("dest", uint16(dest)),
		zap.Int("round", d.round),
		zap.Int("items", len(sel)),
	)
	return Probe{View: v, Round: d.round, Items: sel}, nil
}

// HandleProbe answers an incoming probe. Exactly one branch fires, in
// priority order: adopt a carried incarnation newer than our own (stale
// knowledge from a prior run), refute a Suspect report by bumping our
// incarnation, or ack unchanged. The incoming gossip is merged with the
// buffer, compacted against our views, applied, and reseeded against the
// ack's own selection.
func (d *Detector) HandleProbe(p Probe) (Ack, error) {
	var extra []gossip.Item
	switch {
	case p.View.Incarnation > d.incarnation:
		d.incarnation = p.View.Incarnation + 1
	case p.View.State == member.Suspect:
		d.incarnation++
		extra = []gossip.Item{{Target: d.id, Incarnation: d.incarnation, State: member.Alive}}
		d.collector.CountRefutation()
		d.Logger.Debug("refute",
			zap.Uint16("member", uint16(d.id)),
			zap.Uint32("incarnation", uint32(d.incarnation)),
		)
	}
	out := d.buffer.Select(extra, d.PiggybackCapacity)
	compacted, err := gossip.Compact(d.views, p.Items, d.buffer.Items(), extra)
	if err != nil {
		return Ack{}, err
	}
	changed := gossip.Apply(d.views, compacted, d.SuspicionTimeout)
	d.buffer.Reseed(compacted, out)
	d.collector.CountGossip(d.round, len(out))
	d.collector.CountEffective(d.round, changed)
	return Ack{Incarnation: d.incarnation, Items: out}, nil
}

// HandleAck processes the response to this member's outstanding probe of
// dest. A reported incarnation newer than our record is folded in as a
// synthesized Alive item before the merge. Advances the round and releases
// the pending request.
func (d *Detector) HandleAck(dest member.ID, a Ack) error {
	v, ok := d.views.Get(dest)
	if !ok {
		return errors.Newf("detector: ack from unknown member %d", dest)
	}
	sets := [][]gossip.Item{a.Items, d.buffer.Items()}
	if a.Incarnation > v.Incarnation {
		sets = append(sets, []gossip.Item{{Target: dest, Incarnation: a.Incarnation, State: member.Alive}})
	}
	compacted, err := gossip.Compact(d.views, sets...)
	if err != nil {
		return err
	}
	changed := gossip.Apply(d.views, compacted, d.SuspicionTimeout)
	d.buffer.Reseed(compacted, nil)
	d.collector.CountEffective(d.round, changed)
	d.round++
	d.sched.outstanding = false
	return nil
}

// HandleFailure resolves a probe of dest that will never be answered. If
// the probe's carried incarnation still matches our record and the belief
// has not reached Dead, the belief degrades one step: Alive demotes to
// Suspect with a fresh countdown, Suspect burns one countdown tick. Either
// way the suspicion is enqueued for dissemination, the round advances and
// the pending request is released.
func (d *Detector) HandleFailure(dest member.ID, sent Probe) error {
	v, ok := d.views.Get(dest)
	if !ok {
		return errors.Newf("detector: failure for unknown member %d", dest)
	}
	if sent.View.Incarnation == v.Incarnation && v.State != member.Dead {
		switch v.State {
		case member.Alive:
			v = member.PeerView{Incarnation: v.Incarnation, State: member.Suspect, Countdown: d.SuspicionTimeout}
		case member.Suspect:
			v.Countdown--
		}
		d.views.Set(dest, v)
		d.buffer.Put(gossip.Item{Target: dest, Incarnation: v.Incarnation, State: member.Suspect})
		d.Logger.Debug("suspect",
			zap.Uint16("source", uint16(d.id)),
			zap.Uint16("dest", uint16(dest)),
			zap.Int("countdown", v.Countdown),
		)
	}
	d.collector.CountFailure()
	d.round++
	d.sched.outstanding = false
	return nil
}
