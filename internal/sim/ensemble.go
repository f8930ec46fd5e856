package sim

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aldermoor/swim/internal/detector"
	"github.com/aldermoor/swim/internal/member"
	"github.com/aldermoor/swim/internal/stats"
	"github.com/aldermoor/swim/transport/channel"
)

// retryInterval is how long an agent backs off when the fairness policy
// leaves it with no valid probe target.
const retryInterval = 50 * time.Microsecond

// Ensemble is the concurrent realization: one goroutine per live member
// exchanging probes over a synchronous channel network. Dead members never
// route a handler, so probing one returns ErrUnrouted and resolves through
// the failure path. A single ensemble mutex serializes actions, which
// keeps each action atomic exactly as the event driver does; rounds are
// read across members only for the fairness policy, never views.
type Ensemble struct {
	truth     member.Group
	detectors map[member.ID]*detector.Detector
	net       *channel.Network[detector.Probe, detector.Ack]
	collector *stats.Collector
	log       *zap.Logger
	maxSteps  int

	mu       sync.Mutex
	steps    int
	complete bool
	boundary int
}

func NewEnsemble(
	truth member.Group,
	detectors map[member.ID]*detector.Detector,
	collector *stats.Collector,
	maxSteps int,
	logger *zap.Logger,
) *Ensemble {
	e := &Ensemble{
		truth:     truth,
		detectors: detectors,
		net:       channel.NewNetwork[detector.Probe, detector.Ack](),
		collector: collector,
		log:       logger,
		maxSteps:  maxSteps,
		boundary:  -1,
	}
	for _, id := range truth.Live() {
		det := detectors[id]
		e.net.Route(id, func(ctx context.Context, p detector.Probe) (detector.Ack, error) {
			e.mu.Lock()
			defer e.mu.Unlock()
			ack, err := det.HandleProbe(p)
			if err == nil {
				e.stepLocked()
			}
			return ack, err
		})
	}
	e.mu.Lock()
	e.observeLocked()
	e.mu.Unlock()
	return e
}

func (e *Ensemble) Steps() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.steps
}

func (e *Ensemble) Converged() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.complete
}

// Run starts one agent per live member and blocks until the ensemble
// reaches a terminal state.
func (e *Ensemble) Run(ctx context.Context) (stats.Outcome, error) {
	g, ctx := errgroup.WithContext(ctx)
	for _, id := range e.truth.Live() {
		id := id
		g.Go(func() error { return e.agent(ctx, id) })
	}
	if err := g.Wait(); err != nil {
		return stats.DidNotConverge, err
	}
	if e.Converged() {
		return stats.Converged, nil
	}
	return stats.DidNotConverge, nil
}

func (e *Ensemble) agent(ctx context.Context, id member.ID) error {
	det := e.detectors[id]
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.mu.Lock()
		if e.terminalLocked() {
			e.mu.Unlock()
			return nil
		}
		if peers := det.Expirable(); len(peers) > 0 {
			err := det.Expire(peers[0])
			if err == nil {
				e.stepLocked()
			}
			e.mu.Unlock()
			if err != nil {
				return err
			}
			continue
		}
		targets := det.Targets(e.minLiveRoundLocked(id))
		if len(targets) == 0 {
			e.mu.Unlock()
			time.Sleep(retryInterval)
			continue
		}
		dest := targets[0]
		p, err := det.BuildProbe(dest)
		e.mu.Unlock()
		if err != nil {
			return err
		}

		ack, sendErr := e.net.Send(ctx, dest, p)

		e.mu.Lock()
		switch {
		case errors.Is(sendErr, channel.ErrUnrouted):
			err = det.HandleFailure(dest, p)
		case sendErr != nil:
			err = sendErr
		default:
			err = det.HandleAck(dest, ack)
		}
		if err == nil {
			e.stepLocked()
		}
		e.mu.Unlock()
		if err != nil {
			return err
		}
	}
}

func (e *Ensemble) terminalLocked() bool {
	return e.complete || e.steps >= e.maxSteps
}

func (e *Ensemble) minLiveRoundLocked(exclude member.ID) int {
	min := math.MaxInt
	for _, id := range e.truth.Live() {
		if id == exclude {
			continue
		}
		if r := e.detectors[id].Round(); r < min {
			min = r
		}
	}
	return min
}

func (e *Ensemble) stepLocked() {
	e.steps++
	e.observeLocked()
}

func (e *Ensemble) observeLocked() {
	if r, ok := e.commonRoundLocked(); ok && r > e.boundary {
		suspect, dead, pairSuspect, pairDead := Beliefs(e.truth, e.detectors)
		e.collector.SnapshotBeliefs(r, suspect, dead, pairSuspect, pairDead)
		e.boundary = r
	}
	if !e.complete && Converged(e.truth, e.detectors) {
		e.complete = true
		e.log.Debug("converged", zap.Int("steps", e.steps), zap.Int("round", e.boundary))
	}
}

func (e *Ensemble) commonRoundLocked() (int, bool) {
	live := e.truth.Live()
	if len(live) == 0 {
		return 0, false
	}
	r := e.detectors[live[0]].Round()
	for _, id := range live[1:] {
		if e.detectors[id].Round() != r {
			return 0, false
		}
	}
	return r, true
}
