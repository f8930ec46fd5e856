// Package stats aggregates round-indexed protocol counters for a single
// run and renders the resulting report. A Collector is an explicit
// per-run object: constructing a new one is the reset.
package stats

import "sync"

// NotRecorded is returned for rounds that have no snapshot; callers fall
// back to recomputing the gauge from live state.
const NotRecorded = -1

// Collector aggregates counters as protocol actions fire. Counter methods
// are safe for concurrent use so the agent-per-member runtime can share
// one collector.
type Collector struct {
	mu sync.Mutex

	gossip      map[int]int
	effective   map[int]int
	suspect     map[int]int
	dead        map[int]int
	pairSuspect map[int]int
	pairDead    map[int]int
	maxRound    int

	probes      int
	failures    int
	refutations int
	expiries    int

	metrics *metrics
}

// NewCollector returns a fresh collector registering its instruments on
// reg. A nil reg keeps the instruments on a private registry.
func NewCollector(reg Registerer) *Collector {
	return &Collector{
		gossip:      make(map[int]int),
		effective:   make(map[int]int),
		suspect:     make(map[int]int),
		dead:        make(map[int]int),
		pairSuspect: make(map[int]int),
		pairDead:    make(map[int]int),
		metrics:     newMetrics(reg),
	}
}

// CountGossip records n items attached to a message sent by a member whose
// round counter is round.
func (c *Collector) CountGossip(round, n int) {
	if n == 0 {
		return
	}
	c.mu.Lock()
	c.gossip[round] += n
	c.touch(round)
	c.mu.Unlock()
	c.metrics.gossipItems.Add(float64(n))
}

// CountEffective records n applied items that constituted new information.
func (c *Collector) CountEffective(round, n int) {
	if n == 0 {
		return
	}
	c.mu.Lock()
	c.effective[round] += n
	c.touch(round)
	c.mu.Unlock()
	c.metrics.gossipEffective.Add(float64(n))
}

func (c *Collector) CountProbe() {
	c.mu.Lock()
	c.probes++
	c.mu.Unlock()
	c.metrics.probes.Inc()
}

func (c *Collector) CountFailure() {
	c.mu.Lock()
	c.failures++
	c.mu.Unlock()
	c.metrics.probeFailures.Inc()
}

func (c *Collector) CountRefutation() {
	c.mu.Lock()
	c.refutations++
	c.mu.Unlock()
	c.metrics.refutations.Inc()
}

func (c *Collector) CountExpiry() {
	c.mu.Lock()
	c.expiries++
	c.mu.Unlock()
	c.metrics.expiries.Inc()
}

// SnapshotBeliefs records the ensemble-wide belief gauges at a round
// boundary: the step at which every live member's round counter reached
// round.
func (c *Collector) SnapshotBeliefs(round, suspect, dead, pairSuspect, pairDead int) {
	c.mu.Lock()
	c.suspect[round] = suspect
	c.dead[round] = dead
	c.pairSuspect[round] = pairSuspect
	c.pairDead[round] = pairDead
	c.touch(round)
	c.mu.Unlock()
	c.metrics.suspectMembers.Set(float64(suspect))
	c.metrics.deadMembers.Set(float64(dead))
	c.metrics.round.Set(float64(round))
}

// Gossip returns the gossip volume recorded for round, zero when none.
func (c *Collector) Gossip(round int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gossip[round]
}

// Effective returns the effective gossip volume recorded for round.
func (c *Collector) Effective(round int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.effective[round]
}

// Suspect returns the suspect-member gauge snapshotted at round, or
// NotRecorded when the boundary was never observed.
func (c *Collector) Suspect(round int) int { return c.gauge(c.suspect, round) }

// Dead returns the dead-member gauge snapshotted at round, or NotRecorded.
func (c *Collector) Dead(round int) int { return c.gauge(c.dead, round) }

func (c *Collector) PairSuspect(round int) int { return c.gauge(c.pairSuspect, round) }

func (c *Collector) PairDead(round int) int { return c.gauge(c.pairDead, round) }

func (c *Collector) Probes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.probes
}

func (c *Collector) Failures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

func (c *Collector) Refutations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refutations
}

func (c *Collector) Expiries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiries
}

// MaxRound returns the highest round any counter was recorded against.
func (c *Collector) MaxRound() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxRound
}

func (c *Collector) gauge(m map[int]int, round int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := m[round]
	if !ok {
		return NotRecorded
	}
	return v
}

func (c *Collector) touch(round int) {
	if round > c.maxRound {
		c.maxRound = round
	}
}
