// Package swim models a SWIM-style gossip failure-detection protocol: a
// fixed ensemble of members converges on ground-truth liveness through
// periodic probing and piggybacked gossip, without a central coordinator.
//
// Two run modes are provided. Simulate drives the ensemble with a
// single-threaded discrete-event scheduler, firing one uniformly chosen
// enabled action per step; runs are reproducible from their seed. Converge
// runs one agent goroutine per live member over an in-memory channel
// network. Both produce the same round-indexed statistics report.
package swim

import (
	"context"

	"github.com/aldermoor/swim/internal/archive"
	"github.com/aldermoor/swim/internal/detector"
	"github.com/aldermoor/swim/internal/member"
	"github.com/aldermoor/swim/internal/sim"
	"github.com/aldermoor/swim/internal/stats"
)

// Report is the round-indexed statistics series of a finished run.
type Report = stats.Report

// Outcome is a run's terminal result.
type Outcome = stats.Outcome

const (
	Converged      = stats.Converged
	DidNotConverge = stats.DidNotConverge
)

// Archive persists finished runs; see OpenArchive.
type Archive = archive.Archive

// OpenArchive opens (or creates) a run archive at dirname.
func OpenArchive(dirname string) (*Archive, error) { return archive.Open(dirname) }

// OpenMemArchive opens an archive backed by an in-memory filesystem,
// useful for tests and throwaway runs.
func OpenMemArchive() (*Archive, error) { return archive.OpenMem() }

// Simulate runs the ensemble to a terminal state under the discrete-event
// driver and returns the report.
func Simulate(ctx context.Context, cfg Config) (*Report, error) {
	cfg = cfg.Merge(DefaultConfig())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	collector := stats.NewCollector(cfg.registerer())
	truth, detectors := seedRun(cfg, collector)
	drv := sim.NewDriver(truth, detectors, collector, cfg.Seed, cfg.MaxSteps, cfg.Logger)
	outcome, err := drv.Run(ctx)
	if err != nil {
		return nil, err
	}
	return finish(cfg, collector, outcome, drv.Steps())
}

// Converge runs the ensemble with one concurrent agent per live member and
// returns the report.
func Converge(ctx context.Context, cfg Config) (*Report, error) {
	cfg = cfg.Merge(DefaultConfig())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	collector := stats.NewCollector(cfg.registerer())
	truth, detectors := seedRun(cfg, collector)
	ens := sim.NewEnsemble(truth, detectors, collector, cfg.MaxSteps, cfg.Logger)
	outcome, err := ens.Run(ctx)
	if err != nil {
		return nil, err
	}
	return finish(cfg, collector, outcome, ens.Steps())
}

// seedRun builds ground truth and one detector per live member: members
// 1..Dead start dead at the nil incarnation, everyone else alive at
// incarnation 1, and every view table believes every peer alive.
func seedRun(cfg Config, collector *stats.Collector) (member.Group, map[member.ID]*detector.Detector) {
	truth := make(member.Group, cfg.Members)
	for i := 1; i <= cfg.Members; i++ {
		if i <= cfg.Dead {
			truth[member.ID(i)] = member.Nil
		} else {
			truth[member.ID(i)] = 1
		}
	}
	peers := truth.IDs()
	detectors := make(map[member.ID]*detector.Detector, cfg.Members-cfg.Dead)
	for _, id := range truth.Live() {
		detectors[id] = detector.New(id, peers, cfg.detector(), collector)
	}
	return truth, detectors
}

func finish(cfg Config, collector *stats.Collector, outcome Outcome, steps int) (*Report, error) {
	rep := stats.BuildReport(collector, cfg.params(), outcome, steps)
	if cfg.Archive != nil {
		if err := cfg.Archive.Put(cfg.ArchiveKey, rep); err != nil {
			return nil, err
		}
	}
	return rep, nil
}
