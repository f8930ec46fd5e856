// Package sim drives an ensemble of detectors to convergence. Two
// realizations are provided: Driver, a single-threaded discrete-event loop
// firing one uniformly chosen enabled action per step over a request
// ledger, and Ensemble, one goroutine per live member over a synchronous
// channel network. Both preserve action atomicity; no member's views are
// mutated outside its own actions.
package sim

import (
	"context"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/aldermoor/swim/internal/detector"
	"github.com/aldermoor/swim/internal/member"
	"github.com/aldermoor/swim/internal/stats"
	"github.com/aldermoor/swim/transport/channel"
)

type actionKind byte

const (
	actExpire actionKind = iota
	actProbe
	actReceive
	actAck
	actFail
)

type action struct {
	kind actionKind
	src  member.ID
	dest member.ID
	ex   *channel.Exchange
}

// Driver is the discrete-event realization. Each step enumerates every
// enabled (member, action) pair in a deterministic order, fires one chosen
// by the seeded generator, then re-checks round boundaries and
// convergence. Runs with the same seed and parameters are identical.
type Driver struct {
	truth     member.Group
	detectors map[member.ID]*detector.Detector
	ledger    *channel.Ledger
	collector *stats.Collector
	rng       *rand.Rand
	log       *zap.Logger
	maxSteps  int
	steps     int
	complete  bool
	boundary  int
}

func NewDriver(
	truth member.Group,
	detectors map[member.ID]*detector.Detector,
	collector *stats.Collector,
	seed int64,
	maxSteps int,
	logger *zap.Logger,
) *Driver {
	d := &Driver{
		truth:     truth,
		detectors: detectors,
		ledger:    channel.NewLedger(),
		collector: collector,
		rng:       rand.New(rand.NewSource(seed)),
		log:       logger,
		maxSteps:  maxSteps,
		boundary:  -1,
	}
	d.observe()
	return d
}

func (d *Driver) Converged() bool                          { return d.complete }
func (d *Driver) Steps() int                               { return d.steps }
func (d *Driver) Truth() member.Group                      { return d.truth }
func (d *Driver) Ledger() *channel.Ledger                  { return d.ledger }
func (d *Driver) Detector(id member.ID) *detector.Detector { return d.detectors[id] }

// Step fires one enabled action. It returns false once the run is
// terminal: converged (the designed deadlock), no action enabled, or the
// step budget exhausted.
func (d *Driver) Step() (bool, error) {
	if d.complete || d.steps >= d.maxSteps {
		return false, nil
	}
	acts := d.enabled()
	if len(acts) == 0 {
		return false, nil
	}
	if err := d.apply(acts[d.rng.Intn(len(acts))]); err != nil {
		return false, err
	}
	d.steps++
	d.observe()
	return true, nil
}

// Run steps the simulation to a terminal state.
func (d *Driver) Run(ctx context.Context) (stats.Outcome, error) {
	for {
		if err := ctx.Err(); err != nil {
			return stats.DidNotConverge, err
		}
		more, err := d.Step()
		if err != nil {
			return stats.DidNotConverge, err
		}
		if !more {
			break
		}
	}
	if d.complete {
		return stats.Converged, nil
	}
	return stats.DidNotConverge, nil
}

// MinLiveRound returns the lowest round counter among live members other
// than exclude; the fairness policy forbids a source from probing ahead
// of it.
func (d *Driver) MinLiveRound(exclude member.ID) int {
	min := math.MaxInt
	for _, id := range d.truth.Live() {
		if id == exclude {
			continue
		}
		if r := d.detectors[id].Round(); r < min {
			min = r
		}
	}
	return min
}

func (d *Driver) enabled() []action {
	var acts []action
	for _, id := range d.truth.Live() {
		det := d.detectors[id]
		expirable := det.Expirable()
		for _, peer := range expirable {
			acts = append(acts, action{kind: actExpire, src: id, dest: peer})
		}
		// Expiry has priority: a member with pending expiries may not probe.
		if len(expirable) > 0 {
			continue
		}
		for _, dest := range det.Targets(d.MinLiveRound(id)) {
			acts = append(acts, action{kind: actProbe, src: id, dest: dest})
		}
	}
	for _, ex := range d.ledger.Exchanges() {
		switch {
		case ex.Unanswered() && d.truth.IsLive(ex.To()):
			acts = append(acts, action{kind: actReceive, ex: ex})
		case ex.Unanswered():
			acts = append(acts, action{kind: actFail, ex: ex})
		case ex.Answered() && !ex.Processed():
			acts = append(acts, action{kind: actAck, ex: ex})
		}
	}
	return acts
}

func (d *Driver) apply(a action) error {
	switch a.kind {
	case actExpire:
		return d.detectors[a.src].Expire(a.dest)
	case actProbe:
		p, err := d.detectors[a.src].BuildProbe(a.dest)
		if err != nil {
			return err
		}
		d.ledger.SendRequest(a.src, a.dest, p)
		return nil
	case actReceive:
		ack, err := d.detectors[a.ex.To()].HandleProbe(a.ex.Probe())
		if err != nil {
			return err
		}
		return d.ledger.SendReply(a.ex.ID(), ack)
	case actAck:
		if err := d.detectors[a.ex.From()].HandleAck(a.ex.To(), a.ex.Ack()); err != nil {
			return err
		}
		return d.ledger.MarkProcessed(a.ex.ID())
	case actFail:
		if err := d.detectors[a.ex.From()].HandleFailure(a.ex.To(), a.ex.Probe()); err != nil {
			return err
		}
		return d.ledger.Fail(a.ex.ID())
	}
	return nil
}

// observe snapshots belief gauges at round boundaries and latches the
// completion flag once every live view matches ground truth. Once set, no
// further action is enabled.
func (d *Driver) observe() {
	if r, ok := d.commonRound(); ok && r > d.boundary {
		suspect, dead, pairSuspect, pairDead := Beliefs(d.truth, d.detectors)
		d.collector.SnapshotBeliefs(r, suspect, dead, pairSuspect, pairDead)
		d.boundary = r
	}
	if !d.complete && Converged(d.truth, d.detectors) {
		d.complete = true
		d.log.Debug("converged", zap.Int("steps", d.steps), zap.Int("round", d.boundary))
	}
}

// commonRound reports the round value shared by every live member, if they
// are currently aligned.
func (d *Driver) commonRound() (int, bool) {
	live := d.truth.Live()
	if len(live) == 0 {
		return 0, false
	}
	r := d.detectors[live[0]].Round()
	for _, id := range live[1:] {
		if d.detectors[id].Round() != r {
			return 0, false
		}
	}
	return r, true
}
