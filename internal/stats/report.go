package stats

import (
	"bytes"
	"fmt"
	"io"
)

// Outcome is the terminal result of a run.
type Outcome byte

const (
	Converged Outcome = iota
	DidNotConverge
)

func (o Outcome) String() string {
	if o == Converged {
		return "converged"
	}
	return "did_not_converge"
}

// Params echoes the configuration a run executed under.
type Params struct {
	Members            int
	Dead               int
	SuspicionTimeout   int
	DisseminationLimit int
	PiggybackCapacity  int
	Seed               int64
}

// RoundStats is one completed round boundary.
type RoundStats struct {
	Round       int
	Gossip      int
	Effective   int
	Suspect     int
	Dead        int
	PairSuspect int
	PairDead    int
}

// Report is the full round-indexed series for a finished run.
type Report struct {
	Params         Params
	Rounds         []RoundStats
	Outcome        Outcome
	ConvergedRound int
	Steps          int
	Probes         int
	Failures       int
	Refutations    int
	Expiries       int
}

// BuildReport assembles the round series 0..c.MaxRound() from the
// collector. Gauges for unrecorded boundaries carry the last recorded
// value forward, so a sparse snapshot series still renders densely.
func BuildReport(c *Collector, p Params, outcome Outcome, steps int) *Report {
	r := &Report{
		Params:      p,
		Outcome:     outcome,
		Steps:       steps,
		Probes:      c.Probes(),
		Failures:    c.Failures(),
		Refutations: c.Refutations(),
		Expiries:    c.Expiries(),
	}
	var suspect, dead, pairSuspect, pairDead int
	for round := 0; round <= c.MaxRound(); round++ {
		if v := c.Suspect(round); v != NotRecorded {
			suspect = v
		}
		if v := c.Dead(round); v != NotRecorded {
			dead = v
		}
		if v := c.PairSuspect(round); v != NotRecorded {
			pairSuspect = v
		}
		if v := c.PairDead(round); v != NotRecorded {
			pairDead = v
		}
		r.Rounds = append(r.Rounds, RoundStats{
			Round:       round,
			Gossip:      c.Gossip(round),
			Effective:   c.Effective(round),
			Suspect:     suspect,
			Dead:        dead,
			PairSuspect: pairSuspect,
			PairDead:    pairDead,
		})
	}
	if outcome == Converged {
		r.ConvergedRound = c.MaxRound()
	}
	return r
}

// WriteTo renders the delimited record format: parameter lines, then one
// line per metric per round, then the terminal outcome marker.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "param|members|%d\n", r.Params.Members)
	fmt.Fprintf(&buf, "param|dead|%d\n", r.Params.Dead)
	fmt.Fprintf(&buf, "param|suspicion_timeout|%d\n", r.Params.SuspicionTimeout)
	fmt.Fprintf(&buf, "param|dissemination_limit|%d\n", r.Params.DisseminationLimit)
	fmt.Fprintf(&buf, "param|piggyback_capacity|%d\n", r.Params.PiggybackCapacity)
	fmt.Fprintf(&buf, "param|seed|%d\n", r.Params.Seed)
	for _, rs := range r.Rounds {
		buf.WriteString(rs.render())
	}
	if r.Outcome == Converged {
		fmt.Fprintf(&buf, "converged|%d\n", r.ConvergedRound)
	} else {
		buf.WriteString("did_not_converge\n")
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

func (r *Report) String() string {
	var buf bytes.Buffer
	if _, err := r.WriteTo(&buf); err != nil {
		return err.Error()
	}
	return buf.String()
}

func (rs RoundStats) render() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "gossip|%d|%d\n", rs.Round, rs.Gossip)
	fmt.Fprintf(&buf, "effective|%d|%d\n", rs.Round, rs.Effective)
	fmt.Fprintf(&buf, "suspect|%d|%d\n", rs.Round, rs.Suspect)
	fmt.Fprintf(&buf, "dead|%d|%d\n", rs.Round, rs.Dead)
	fmt.Fprintf(&buf, "pair_suspect|%d|%d\n", rs.Round, rs.PairSuspect)
	fmt.Fprintf(&buf, "pair_dead|%d|%d\n", rs.Round, rs.PairDead)
	return buf.String()
}
