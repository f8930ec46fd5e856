package stats

import "github.com/prometheus/client_golang/prometheus"

// Registerer is the subset of prometheus registration the collector needs.
type Registerer = prometheus.Registerer

type metrics struct {
	gossipItems     prometheus.Counter
	gossipEffective prometheus.Counter
	probes          prometheus.Counter
	probeFailures   prometheus.Counter
	refutations     prometheus.Counter
	expiries        prometheus.Counter
	suspectMembers  prometheus.Gauge
	deadMembers     prometheus.Gauge
	round           prometheus.Gauge
}

func newMetrics(reg Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &metrics{
		gossipItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swim",
			Name:      "gossip_items_total",
			Help:      "Total gossip items attached to probe and ack traffic.",
		}),
		gossipEffective: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swim",
			Name:      "gossip_effective_total",
			Help:      "Gossip items that carried new information when applied.",
		}),
		probes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swim",
			Name:      "probes_total",
			Help:      "Probes sent.",
		}),
		probeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swim",
			Name:      "probe_failures_total",
			Help:      "Probes resolved by the failure path.",
		}),
		refutations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swim",
			Name:      "refutations_total",
			Help:      "Self-refutations issued by suspected members.",
		}),
		expiries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swim",
			Name:      "expiries_total",
			Help:      "Suspicion expiries declaring a peer dead.",
		}),
		suspectMembers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "swim",
			Name:      "suspect_members",
			Help:      "Members currently believed suspect by at least one live observer.",
		}),
		deadMembers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "swim",
			Name:      "dead_members",
			Help:      "Members currently believed dead by at least one live observer.",
		}),
		round: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "swim",
			Name:      "round",
			Help:      "Last completed round boundary.",
		}),
	}
	reg.MustRegister(
		m.gossipItems, m.gossipEffective, m.probes, m.probeFailures,
		m.refutations, m.expiries, m.suspectMembers, m.deadMembers, m.round,
	)
	return m
}
